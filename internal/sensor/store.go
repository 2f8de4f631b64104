package sensor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Reading is the stored state for one device: its latest payload and when it
// was last updated.
type Reading struct {
	// DeviceID identifies the reporting device.
	DeviceID string
	// Payload is the latest telemetry document for the device.
	Payload *Payload
	// UpdatedAt is when the payload was last written.
	UpdatedAt time.Time
}

// Store persists the latest sensor reading per device. Implementations must
// be safe for concurrent use.
type Store interface {
	// Save upserts the payload for the given device, replacing any previous
	// reading for the same device ID.
	Save(ctx context.Context, deviceID string, payload *Payload) error
	// Latest returns the most recent reading for the device, or (nil, nil)
	// if the device has never reported.
	Latest(ctx context.Context, deviceID string) (*Reading, error)
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a Store backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// DefaultDBPath returns the default path for the sensor reading database.
// It resolves to ~/.agrirag/sensors.db, creating the directory if needed.
// SENSOR_DB overrides it entirely.
func DefaultDBPath() (string, error) {
	if p := os.Getenv("SENSOR_DB"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("sensor: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".agrirag")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("sensor: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "sensors.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sensor: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS sensor_readings (
    device_id   TEXT PRIMARY KEY,
    payload     TEXT    NOT NULL,  -- JSON document as received
    updated_at  INTEGER NOT NULL   -- Unix timestamp (seconds)
);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("sensor: migrate: %w", err)
	}
	return nil
}

// Save upserts the payload for the given device. A second save for the same
// device ID replaces the previous reading; the table never grows beyond one
// row per device.
func (s *SQLiteStore) Save(ctx context.Context, deviceID string, payload *Payload) error {
	if deviceID == "" {
		return errors.New("sensor: device_id is required")
	}
	if payload == nil {
		return errors.New("sensor: payload is required")
	}

	doc, err := payload.MarshalJSON()
	if err != nil {
		return fmt.Errorf("sensor: save %s: %w", deviceID, err)
	}

	const q = `
INSERT INTO sensor_readings (device_id, payload, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(device_id) DO UPDATE SET
    payload    = excluded.payload,
    updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, q, deviceID, string(doc), time.Now().Unix()); err != nil {
		return fmt.Errorf("sensor: save %s: %w", deviceID, err)
	}
	return nil
}

// Latest returns the most recent reading for the device, or (nil, nil) if the
// device has never reported.
func (s *SQLiteStore) Latest(ctx context.Context, deviceID string) (*Reading, error) {
	const q = `SELECT payload, updated_at FROM sensor_readings WHERE device_id = ?`

	var doc string
	var ts int64
	err := s.db.QueryRowContext(ctx, q, deviceID).Scan(&doc, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sensor: latest %s: %w", deviceID, err)
	}

	var payload Payload
	if err := payload.UnmarshalJSON([]byte(doc)); err != nil {
		return nil, fmt.Errorf("sensor: latest %s: %w", deviceID, err)
	}

	return &Reading{
		DeviceID:  deviceID,
		Payload:   &payload,
		UpdatedAt: time.Unix(ts, 0),
	}, nil
}

// Ping verifies the underlying database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sensor: ping: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sensor: close: %w", err)
	}
	return nil
}
