package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"movie-dq-pipeline/internal/model"
)

// postgresColumns mirrors movieColumns with Postgres types
var postgresColumns = func() []string {
	cols := make([]string, len(model.FieldNames))
	for i, name := range model.FieldNames {
		typ := "TEXT"
		switch name {
		case model.FieldReleasedYear, model.FieldMetaScore, model.FieldNoOfVotes:
			typ = "BIGINT"
		case model.FieldIMDBRating:
			typ = "DOUBLE PRECISION"
		}
		cols[i] = name + " " + typ
	}
	return cols
}()

// IsPostgresURL reports whether dsn selects the Postgres sink
func IsPostgresURL(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// PostgresTable writes transformed records into a Postgres table with COPY
type PostgresTable struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresTable connects to dsn. The caller closes the table.
func NewPostgresTable(ctx context.Context, dsn, table string) (*PostgresTable, error) {
	if table == "" {
		table = model.DefaultTable
	}
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresTable{pool: pool, table: table}, nil
}

// Table returns the destination table name
func (t *PostgresTable) Table() string { return t.table }

// Close releases the connection pool
func (t *PostgresTable) Close() { t.pool.Close() }

// Prepare creates the table if needed and truncates it unless appending
func (t *PostgresTable) Prepare(ctx context.Context, disposition string) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s)`, t.table, strings.Join(postgresColumns, ", "))
	if _, err := t.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", t.table, err)
	}
	if disposition == model.WriteAppend {
		return nil
	}
	if _, err := t.pool.Exec(ctx, `TRUNCATE TABLE `+t.table); err != nil {
		return fmt.Errorf("truncate table %s: %w", t.table, err)
	}
	return nil
}

// WriteBatch copies records in one COPY statement, which is atomic
func (t *PostgresTable) WriteBatch(ctx context.Context, records []model.TransformedRecord) error {
	rows := make([][]any, len(records))
	for i := range records {
		rows[i] = records[i].Values()
	}

	n, err := t.pool.CopyFrom(ctx, pgx.Identifier{t.table}, model.FieldNames, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy into %s: %w", t.table, err)
	}
	if n != int64(len(records)) {
		return fmt.Errorf("copy into %s: wrote %d of %d rows", t.table, n, len(records))
	}
	return nil
}

// Query returns up to limit rows
func (t *PostgresTable) Query(ctx context.Context, limit int) ([]model.TransformedRecord, error) {
	rows, err := t.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM %s LIMIT $1`,
		strings.Join(model.FieldNames, ", "), t.table), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovies(rows)
}
