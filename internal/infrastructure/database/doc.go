// Package database provides SQLite connectivity for DevSpace Core.
//
// The store holds the status transition history and the accessory table so
// both survive restarts. The in-memory device space itself is never
// persisted.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
// Migrations are additive. Each version ships an .up.sql and a .down.sql
// file named YYYYMMDD_HHMMSS_description.
package database
