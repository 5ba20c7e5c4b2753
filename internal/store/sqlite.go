package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/gjeldshjelp/debt-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id            TEXT PRIMARY KEY,
	person_id     TEXT NOT NULL,
	snapshot_date TEXT NOT NULL,
	site          TEXT NOT NULL,
	kind          TEXT NOT NULL DEFAULT '',
	validated     INTEGER NOT NULL DEFAULT 1,
	data          TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (person_id, snapshot_date, site, validated)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_person_date ON snapshots(person_id, snapshot_date);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Put(ctx context.Context, key Key, snap model.RawSnapshot) error {
	if err := key.Validate(); err != nil {
		return err
	}
	data, err := encode(snap)
	if err != nil {
		return err
	}
	return s.upsert(ctx, key, string(snap.Kind), true, data)
}

func (s *SQLiteStore) PutUnvalidated(ctx context.Context, key Key, v any) error {
	if err := key.Validate(); err != nil {
		return err
	}
	data, err := encode(v)
	if err != nil {
		return err
	}
	return s.upsert(ctx, key, "", false, data)
}

func (s *SQLiteStore) upsert(ctx context.Context, key Key, kind string, validated bool, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, person_id, snapshot_date, site, kind, validated, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (person_id, snapshot_date, site, validated)
		 DO UPDATE SET kind = excluded.kind, data = excluded.data, created_at = excluded.created_at`,
		uuid.New().String(), key.PersonID, key.Date, key.Site, kind, validated, string(data), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: put %s", key)
}

func (s *SQLiteStore) Get(ctx context.Context, key Key) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots WHERE person_id = ? AND snapshot_date = ? AND site = ? AND validated = 1`,
		key.PersonID, key.Date, key.Site,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: %s", key)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get %s", key)
	}
	return []byte(data), nil
}

func (s *SQLiteStore) ListDates(ctx context.Context, personID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT snapshot_date FROM snapshots WHERE person_id = ? AND validated = 1`,
		personID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list dates for %s", personID)
	}
	dates, err := scanStrings(rows)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list dates")
	}
	return sortDatesDesc(dates), nil
}

func (s *SQLiteStore) ListSites(ctx context.Context, personID, date string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT site FROM snapshots WHERE person_id = ? AND snapshot_date = ? AND validated = 1`,
		personID, date,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list sites for %s/%s", personID, date)
	}
	sites, err := scanStrings(rows)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sites")
	}
	return sortedUnique(sites), nil
}

// GetUnvalidated returns a stored rejected object.
func (s *SQLiteStore) GetUnvalidated(ctx context.Context, key Key) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots WHERE person_id = ? AND snapshot_date = ? AND site = ? AND validated = 0`,
		key.PersonID, key.Date, key.Site,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: unvalidated %s", key)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get unvalidated %s", key)
	}
	return []byte(data), nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close() //nolint:errcheck
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
