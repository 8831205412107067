package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	// historyTimeLayout is fixed width so stored timestamps sort as text.
	historyTimeLayout = "2006-01-02T15:04:05.000000000Z"
)

// ErrDeviceIDRequired is returned when a history call has no device id.
var ErrDeviceIDRequired = errors.New("telemetry: device id is required")

// HistoryEntry is one recorded status change.
type HistoryEntry struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	DeviceID   string    `json:"device_id"`
	Kind       string    `json:"kind"`
	Status     string    `json:"status"`
	Reading    *float64  `json:"reading,omitempty"`
	Source     string    `json:"source"`
	RecordedAt time.Time `json:"recorded_at"`
}

// HistoryRepository stores and queries status history.
type HistoryRepository interface {
	RecordStatus(ctx context.Context, entry HistoryEntry) error
	GetHistory(ctx context.Context, deviceID string, limit int) ([]HistoryEntry, error)
	PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SQLiteHistoryRepository implements HistoryRepository on the
// status_history table.
type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteHistoryRepository creates a repository on db.
func NewSQLiteHistoryRepository(db *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db}
}

// RecordStatus inserts entry. A zero RecordedAt is stamped with the
// current time.
func (r *SQLiteHistoryRepository) RecordStatus(ctx context.Context, entry HistoryEntry) error {
	if entry.DeviceID == "" {
		return ErrDeviceIDRequired
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now()
	}

	var reading sql.NullFloat64
	if entry.Reading != nil {
		reading = sql.NullFloat64{Float64: *entry.Reading, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO status_history (session_id, device_id, kind, status, reading, source, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		entry.DeviceID,
		entry.Kind,
		entry.Status,
		reading,
		entry.Source,
		entry.RecordedAt.UTC().Format(historyTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting status history: %w", err)
	}
	return nil
}

// GetHistory returns the newest entries for deviceID first. limit defaults
// to 50 and is capped at 200.
func (r *SQLiteHistoryRepository) GetHistory(ctx context.Context, deviceID string, limit int) ([]HistoryEntry, error) {
	if deviceID == "" {
		return nil, ErrDeviceIDRequired
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, device_id, kind, status, reading, source, recorded_at
		 FROM status_history
		 WHERE device_id = ?
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`,
		deviceID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying status history: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0, limit)
	for rows.Next() {
		var (
			e          HistoryEntry
			reading    sql.NullFloat64
			recordedAt string
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.DeviceID, &e.Kind, &e.Status, &reading, &e.Source, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning status history: %w", err)
		}
		if reading.Valid {
			v := reading.Float64
			e.Reading = &v
		}
		ts, err := parseHistoryTimestamp(recordedAt)
		if err != nil {
			return nil, err
		}
		e.RecordedAt = ts
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status history: %w", err)
	}

	return entries, nil
}

// PruneHistory deletes entries older than olderThan and returns how many
// were removed.
func (r *SQLiteHistoryRepository) PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(historyTimeLayout)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM status_history WHERE recorded_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting status history: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

func parseHistoryTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("recorded_at is empty")
	}
	ts, err := time.Parse(historyTimeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing recorded_at: %w", err)
	}
	return ts, nil
}
