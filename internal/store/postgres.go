package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/gjeldshjelp/debt-cli/internal/db"
	"github.com/gjeldshjelp/debt-cli/internal/model"
)

// PostgresStore implements Store using pgxpool. Canonical records from
// tabular and PDF snapshots are also indexed one row per case in
// debt_records.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	person_id     TEXT NOT NULL,
	snapshot_date TEXT NOT NULL,
	site          TEXT NOT NULL,
	kind          TEXT NOT NULL DEFAULT '',
	validated     BOOLEAN NOT NULL DEFAULT true,
	data          JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (person_id, snapshot_date, site, validated)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_person_date ON snapshots(person_id, snapshot_date DESC);

CREATE TABLE IF NOT EXISTS debt_records (
	person_id              TEXT NOT NULL,
	snapshot_date          TEXT NOT NULL,
	site                   TEXT NOT NULL,
	position               INTEGER NOT NULL,
	case_id                TEXT NOT NULL,
	total_amount           NUMERIC(14,2) NOT NULL,
	original_amount        NUMERIC(14,2),
	interest_and_fines     NUMERIC(14,2),
	original_due_date      DATE,
	debt_collector_name    TEXT NOT NULL,
	original_creditor_name TEXT NOT NULL,
	PRIMARY KEY (person_id, snapshot_date, site, position)
);

CREATE INDEX IF NOT EXISTS idx_debt_records_case ON debt_records(debt_collector_name, case_id);
`

var debtRecordColumns = []string{
	"person_id", "snapshot_date", "site", "position", "case_id",
	"total_amount", "original_amount", "interest_and_fines", "original_due_date",
	"debt_collector_name", "original_creditor_name",
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, key Key, snap model.RawSnapshot) error {
	if err := key.Validate(); err != nil {
		return err
	}
	data, err := encode(snap)
	if err != nil {
		return err
	}
	if err := s.upsert(ctx, key, string(snap.Kind), true, data); err != nil {
		return err
	}

	var records []model.DebtRecord
	switch p := snap.Payload.(type) {
	case *model.DebtCollection:
		records = p.Debts
	case *model.PDFDerived:
		records = p.Records
	default:
		return nil
	}
	return s.indexRecords(ctx, key, records)
}

func (s *PostgresStore) PutUnvalidated(ctx context.Context, key Key, v any) error {
	if err := key.Validate(); err != nil {
		return err
	}
	data, err := encode(v)
	if err != nil {
		return err
	}
	return s.upsert(ctx, key, "", false, data)
}

func (s *PostgresStore) upsert(ctx context.Context, key Key, kind string, validated bool, data []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO snapshots (id, person_id, snapshot_date, site, kind, validated, data, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (person_id, snapshot_date, site, validated)
		 DO UPDATE SET kind = EXCLUDED.kind, data = EXCLUDED.data, created_at = EXCLUDED.created_at`,
		uuid.New().String(), key.PersonID, key.Date, key.Site, kind, validated, data, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: put %s", key)
}

// indexRecords replaces the debt_records rows for key with records.
func (s *PostgresStore) indexRecords(ctx context.Context, key Key, records []model.DebtRecord) error {
	rows := make([][]any, len(records))
	for i, r := range records {
		var due any
		if r.OriginalDueDate != nil {
			due = r.OriginalDueDate.Time
		}
		rows[i] = []any{
			key.PersonID, key.Date, key.Site, int32(i), r.CaseID,
			r.TotalAmount, r.OriginalAmount, r.InterestAndFines, due,
			r.DebtCollectorName, r.OriginalCreditorName,
		}
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "debt_records",
		Columns:      debtRecordColumns,
		ConflictKeys: []string{"person_id", "snapshot_date", "site", "position"},
		Scope: map[string]any{
			"person_id":     key.PersonID,
			"snapshot_date": key.Date,
			"site":          key.Site,
		},
	}, rows)
	return eris.Wrapf(err, "postgres: index records for %s", key)
}

func (s *PostgresStore) Get(ctx context.Context, key Key) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM snapshots WHERE person_id = $1 AND snapshot_date = $2 AND site = $3 AND validated`,
		key.PersonID, key.Date, key.Site,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: %s", key)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get %s", key)
	}
	return data, nil
}

func (s *PostgresStore) ListDates(ctx context.Context, personID string) ([]string, error) {
	dates, err := s.queryStrings(ctx,
		`SELECT DISTINCT snapshot_date FROM snapshots WHERE person_id = $1 AND validated`,
		personID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list dates for %s", personID)
	}
	return sortDatesDesc(dates), nil
}

func (s *PostgresStore) ListSites(ctx context.Context, personID, date string) ([]string, error) {
	sites, err := s.queryStrings(ctx,
		`SELECT site FROM snapshots WHERE person_id = $1 AND snapshot_date = $2 AND validated`,
		personID, date,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list sites for %s/%s", personID, date)
	}
	return sortedUnique(sites), nil
}

func (s *PostgresStore) queryStrings(ctx context.Context, sql string, args ...any) ([]string, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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
