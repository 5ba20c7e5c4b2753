package db

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig defines the parameters for a bulk upsert operation.
type UpsertConfig struct {
	Table        string   // target table (e.g., "public.debt_records")
	Columns      []string // all columns being inserted
	ConflictKeys []string // columns forming the unique constraint
	UpdateCols   []string // columns to update on conflict; nil = all non-conflict columns

	// Scope, when set, deletes the rows matching every column = value pair
	// before inserting, so the batch replaces what was stored for that scope.
	Scope map[string]any
}

// BulkUpsert writes rows in one transaction:
//  1. deletes rows in Scope, if any
//  2. COPYs rows into a temp table shaped like the target
//  3. INSERT INTO target SELECT ... FROM temp ON CONFLICT (keys) DO UPDATE
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 && len(cfg.Scope) == 0 {
		return 0, nil
	}
	if len(cfg.Columns) == 0 {
		return 0, eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return 0, eris.New("db: upsert: no conflict keys specified")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if len(cfg.Scope) > 0 {
		where, args := scopeClause(cfg.Scope)
		deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE %s", sanitizeTable(cfg.Table), where)
		if _, err := tx.Exec(ctx, deleteSQL, args...); err != nil {
			return 0, eris.Wrapf(err, "db: upsert: clear scope in %s", cfg.Table)
		}
	}

	var affected int64
	if len(rows) > 0 {
		tempTable := "_tmp_upsert_" + strings.ReplaceAll(cfg.Table, ".", "_")
		createSQL := fmt.Sprintf(
			"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
			pgx.Identifier{tempTable}.Sanitize(),
			sanitizeTable(cfg.Table),
		)
		if _, err := tx.Exec(ctx, createSQL); err != nil {
			return 0, eris.Wrapf(err, "db: upsert: create temp table for %s", cfg.Table)
		}

		if _, err := tx.CopyFrom(ctx, pgx.Identifier{tempTable}, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
			return 0, eris.Wrapf(err, "db: upsert: COPY into temp table for %s", cfg.Table)
		}

		tag, err := tx.Exec(ctx, upsertStatement(cfg, tempTable))
		if err != nil {
			return 0, eris.Wrapf(err, "db: upsert: INSERT ON CONFLICT for %s", cfg.Table)
		}
		affected = tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return affected, nil
}

func upsertStatement(cfg UpsertConfig, source string) string {
	updateCols := cfg.UpdateCols
	if updateCols == nil {
		conflict := make(map[string]bool, len(cfg.ConflictKeys))
		for _, k := range cfg.ConflictKeys {
			conflict[k] = true
		}
		for _, c := range cfg.Columns {
			if !conflict[c] {
				updateCols = append(updateCols, c)
			}
		}
	}

	colList := quoteAndJoin(cfg.Columns)
	action := "DO NOTHING"
	if len(updateCols) > 0 {
		sets := make([]string, len(updateCols))
		for i, col := range updateCols {
			id := pgx.Identifier{col}.Sanitize()
			sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", id, id)
		}
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		sanitizeTable(cfg.Table),
		colList,
		colList,
		pgx.Identifier{source}.Sanitize(),
		quoteAndJoin(cfg.ConflictKeys),
		action,
	)
}

// scopeClause renders scope as "a" = $1 AND "b" = $2 with columns sorted.
func scopeClause(scope map[string]any) (string, []any) {
	cols := make([]string, 0, len(scope))
	for c := range scope {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	parts := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("%s = $%d", pgx.Identifier{c}.Sanitize(), i+1)
		args[i] = scope[c]
	}
	return strings.Join(parts, " AND "), args
}

// sanitizeTable handles schema-qualified table names like "public.debt_records".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
