package output

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteAccessoryRepository stores the accessory table in the accessories
// table. The whole table is replaced on every save.
type SQLiteAccessoryRepository struct {
	db *sql.DB
}

// NewSQLiteAccessoryRepository creates a repository on db.
func NewSQLiteAccessoryRepository(db *sql.DB) *SQLiteAccessoryRepository {
	return &SQLiteAccessoryRepository{db: db}
}

// Replace overwrites the stored table with entries, keeping their order.
func (r *SQLiteAccessoryRepository) Replace(ctx context.Context, entries []Accessory) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM accessories"); err != nil {
		return fmt.Errorf("clearing accessories: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for i, a := range entries {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO accessories (position, accessory_id, kind, pin, slot, saved_at) VALUES (?, ?, ?, ?, ?, ?)",
			i, a.AccessoryID, a.Kind, a.Pin, a.Index, now,
		)
		if err != nil {
			return fmt.Errorf("inserting accessory %s: %w", a.AccessoryID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing accessories: %w", err)
	}
	return nil
}

// Load returns the stored entries in their saved order.
func (r *SQLiteAccessoryRepository) Load(ctx context.Context) ([]Accessory, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT accessory_id, kind, pin, slot FROM accessories ORDER BY position",
	)
	if err != nil {
		return nil, fmt.Errorf("querying accessories: %w", err)
	}
	defer rows.Close()

	var entries []Accessory
	for rows.Next() {
		var a Accessory
		if err := rows.Scan(&a.AccessoryID, &a.Kind, &a.Pin, &a.Index); err != nil {
			return nil, fmt.Errorf("scanning accessory: %w", err)
		}
		entries = append(entries, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accessories: %w", err)
	}
	return entries, nil
}
