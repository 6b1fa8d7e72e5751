// Package store persists the anchor/tag roster, ranging-session outcome
// history, and solved-coordinate time series to a local sqlite database,
// the way the teacher's internal/db persists radar/transit history:
// modernc.org/sqlite as the (pure-Go, cgo-free) driver, WAL pragmas for
// concurrent readers, and golang-migrate/migrate/v4 against an embedded
// migrations filesystem.
package store

import (
	"database/sql"
	"embed"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/rtls/internal/eui64"
	"github.com/banshee-data/rtls/internal/tdoa"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a migrated sqlite connection. The embedded *sql.DB lets
// callers (notably internal/admin's tailsql wiring) reach the
// connection pool directly.
type DB struct {
	*sql.DB
}

// Open opens (creating if necessary) the sqlite database at path,
// applies the teacher's concurrency pragmas, and migrates it to the
// latest schema version.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db := &DB{sqlDB}
	if err := db.applyPragmas(); err != nil {
		db.Close()
		return nil, err
	}
	if err := db.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) applyPragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("store: apply %q: %w", p, err)
		}
	}
	return nil
}

// UpsertAnchor records (or updates) a fixed anchor's name and coordinate.
func (db *DB) UpsertAnchor(addr eui64.Addr, name string, coord tdoa.Point) error {
	_, err := db.Exec(`INSERT INTO anchors (eui64, name, x, y, z) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(eui64) DO UPDATE SET name=excluded.name, x=excluded.x, y=excluded.y, z=excluded.z`,
		addr.String(), name, coord.X, coord.Y, coord.Z)
	if err != nil {
		return fmt.Errorf("store: upsert anchor %s: %w", addr, err)
	}
	return nil
}

// UpsertTag records (or updates) a tag's configured name.
func (db *DB) UpsertTag(addr eui64.Addr, name string) error {
	_, err := db.Exec(`INSERT INTO tags (eui64, name) VALUES (?, ?)
		ON CONFLICT(eui64) DO UPDATE SET name=excluded.name`, addr.String(), name)
	if err != nil {
		return fmt.Errorf("store: upsert tag %s: %w", addr, err)
	}
	return nil
}

// AnchorRow is one row of the anchors table.
type AnchorRow struct {
	EUI64 string
	Name  string
	Coord tdoa.Point
}

// ListAnchors returns every anchor on file, for the admin roster view.
func (db *DB) ListAnchors() ([]AnchorRow, error) {
	rows, err := db.Query(`SELECT eui64, name, x, y, z FROM anchors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list anchors: %w", err)
	}
	defer rows.Close()
	var out []AnchorRow
	for rows.Next() {
		var r AnchorRow
		if err := rows.Scan(&r.EUI64, &r.Name, &r.Coord.X, &r.Coord.Y, &r.Coord.Z); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordSessionStart inserts a ranging-session outcome row at creation
// time; RecordSessionOutcome fills in the completion fields once the
// session finishes (solved or not).
func (db *DB) RecordSessionStart(ref, tagEUI64 string, startedUnixNanos int64) error {
	_, err := db.Exec(`INSERT INTO ranging_sessions (ref, tag_eui64, started_unix) VALUES (?, ?, ?)
		ON CONFLICT(ref) DO NOTHING`, ref, tagEUI64, startedUnixNanos)
	if err != nil {
		return fmt.Errorf("store: record session start %s: %w", ref, err)
	}
	return nil
}

// RecordSessionOutcome fills in a ranging session's completion fields.
func (db *DB) RecordSessionOutcome(ref string, finishedUnixNanos int64, anchorCount int, solved bool) error {
	_, err := db.Exec(`UPDATE ranging_sessions SET finished_unix = ?, anchor_count = ?, solved = ? WHERE ref = ?`,
		finishedUnixNanos, anchorCount, solved, ref)
	if err != nil {
		return fmt.Errorf("store: record session outcome %s: %w", ref, err)
	}
	return nil
}

// RecordCoordinate appends one solved-coordinate sample to the tag's time series.
func (db *DB) RecordCoordinate(tagEUI64 string, tsUnixNanos int64, coord, filtered tdoa.Point) error {
	_, err := db.Exec(`INSERT INTO coordinates (tag_eui64, ts_unix_nanos, x, y, z, filtered_x, filtered_y, filtered_z)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tagEUI64, tsUnixNanos, coord.X, coord.Y, coord.Z, filtered.X, filtered.Y, filtered.Z)
	if err != nil {
		return fmt.Errorf("store: record coordinate for %s: %w", tagEUI64, err)
	}
	return nil
}

// RecentCoordinates returns up to limit of a tag's most recent solved
// coordinates, most recent first.
func (db *DB) RecentCoordinates(tagEUI64 string, limit int) ([]tdoa.Point, error) {
	rows, err := db.Query(`SELECT x, y, z FROM coordinates WHERE tag_eui64 = ? ORDER BY ts_unix_nanos DESC LIMIT ?`,
		tagEUI64, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent coordinates for %s: %w", tagEUI64, err)
	}
	defer rows.Close()
	var out []tdoa.Point
	for rows.Next() {
		var p tdoa.Point
		if err := rows.Scan(&p.X, &p.Y, &p.Z); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
