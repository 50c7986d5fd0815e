package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// migrations are applied in order on open. PRAGMA user_version tracks
// how many have run, so adding a statement migrates existing databases.
var migrations = []string{
	`CREATE TABLE controller_records (
		id                     TEXT     NOT NULL,
		device_id              TEXT     NOT NULL PRIMARY KEY,
		owner_id               TEXT     NOT NULL DEFAULT '',
		address                TEXT     NOT NULL,
		name                   TEXT     NOT NULL DEFAULT '',
		network_name           TEXT     NOT NULL DEFAULT '',
		credential_fingerprint TEXT     NOT NULL DEFAULT '',
		firmware               TEXT     NOT NULL DEFAULT '',
		brand                  TEXT     NOT NULL DEFAULT '',
		configured             INTEGER  NOT NULL DEFAULT 0,
		created_at             DATETIME NOT NULL,
		updated_at             DATETIME NOT NULL
	)`,
	`CREATE INDEX idx_controller_records_owner ON controller_records(owner_id)`,
}

const recordColumns = `id, device_id, owner_id, address, name, network_name,
	credential_fingerprint, firmware, brand, configured, created_at, updated_at`

// SQLiteStore is a Store backed by SQLite via modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	hub *streamHub
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at path, applies the
// recommended pragmas and runs pending schema migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// SQLite performs best with a single write connection. WAL enables
	// concurrent readers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}

	// modernc.org/sqlite wants pragmas as SQL statements, not DSN params.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, hub: newStreamHub()}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		if _, err := s.db.ExecContext(ctx, migrations[i]); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}
	}
	return nil
}

// Save upserts the record keyed by DeviceID. On conflict the existing
// row's id and created_at are preserved and the rest is overwritten.
func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	if rec.DeviceID == "" {
		return ErrEmptyDeviceID
	}

	now := time.Now().UTC()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO controller_records (
			id, device_id, owner_id, address, name, network_name,
			credential_fingerprint, firmware, brand, configured,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			owner_id               = excluded.owner_id,
			address                = excluded.address,
			name                   = excluded.name,
			network_name           = excluded.network_name,
			credential_fingerprint = excluded.credential_fingerprint,
			firmware               = excluded.firmware,
			brand                  = excluded.brand,
			configured             = excluded.configured,
			updated_at             = excluded.updated_at`,
		rec.ID.String(), rec.DeviceID, rec.OwnerID, rec.Address, rec.Name, rec.NetworkName,
		rec.CredentialFingerprint, rec.Firmware, rec.Brand, rec.Configured,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}

	// Publish the canonical row: an update kept the original id and
	// created_at, not the caller's.
	saved, err := s.Get(ctx, rec.DeviceID)
	if err != nil {
		return fmt.Errorf("read back record: %w", err)
	}
	s.hub.publish(saved)
	return nil
}

// Delete removes the record for the device identifier.
func (s *SQLiteStore) Delete(ctx context.Context, deviceID string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM controller_records WHERE device_id = ?", deviceID); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// Get returns the record for the device identifier.
func (s *SQLiteStore) Get(ctx context.Context, deviceID string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM controller_records WHERE device_id = ?", deviceID)
	return scanRecord(row)
}

// Stream returns current records followed by live updates.
func (s *SQLiteStore) Stream(ctx context.Context, ownerID string) (<-chan Record, error) {
	return s.hub.stream(ctx, ownerID, func() ([]Record, error) {
		rows, err := s.db.QueryContext(ctx,
			"SELECT "+recordColumns+` FROM controller_records
			WHERE (? = '' OR owner_id = ?)
			ORDER BY created_at, device_id`, ownerID, ownerID)
		if err != nil {
			return nil, fmt.Errorf("query records: %w", err)
		}
		defer rows.Close()

		var recs []Record
		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				return nil, err
			}
			recs = append(recs, rec)
		}
		return recs, rows.Err()
	})
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec Record
		id  string
	)
	err := row.Scan(&id, &rec.DeviceID, &rec.OwnerID, &rec.Address, &rec.Name,
		&rec.NetworkName, &rec.CredentialFingerprint, &rec.Firmware, &rec.Brand,
		&rec.Configured, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("scan record: %w", err)
	}

	rec.ID, err = uuid.Parse(id)
	if err != nil {
		return Record{}, fmt.Errorf("parse record id %q: %w", id, err)
	}
	return rec, nil
}
