package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"regexp"
	"strings"

	"movie-dq-pipeline/internal/model"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateTableName rejects names that cannot be used unquoted in DDL
func ValidateTableName(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

// movieColumns pairs every field with its SQL type, in FieldNames order
var movieColumns = func() []string {
	cols := make([]string, len(model.FieldNames))
	for i, name := range model.FieldNames {
		typ := "TEXT"
		switch name {
		case model.FieldReleasedYear, model.FieldMetaScore, model.FieldNoOfVotes:
			typ = "INTEGER"
		case model.FieldIMDBRating:
			typ = "REAL"
		}
		cols[i] = name + " " + typ
	}
	return cols
}()

// MovieTable writes transformed records into a sqlite table
type MovieTable struct {
	db    *sql.DB
	table string
	owned bool
}

// NewMovieTable returns a sink writing to table in db. An empty table name
// uses model.DefaultTable.
func NewMovieTable(db *sql.DB, table string) (*MovieTable, error) {
	if table == "" {
		table = model.DefaultTable
	}
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}
	return &MovieTable{db: db, table: table}, nil
}

// OpenMovieTable opens a separate sqlite file for the valid table. Close
// releases the database.
func OpenMovieTable(dbPath, table string) (*MovieTable, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	t, err := NewMovieTable(db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	t.owned = true
	return t, nil
}

// Table returns the destination table name
func (t *MovieTable) Table() string { return t.table }

// Close closes the database when the table opened it
func (t *MovieTable) Close() {
	if t.owned {
		t.db.Close()
	}
}

// Prepare creates the table if needed and empties it for truncate
func (t *MovieTable) Prepare(ctx context.Context, disposition string) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s)`, t.table, strings.Join(movieColumns, ", "))
	if _, err := t.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", t.table, err)
	}
	if disposition == model.WriteAppend {
		return nil
	}
	if _, err := t.db.ExecContext(ctx, `DELETE FROM `+t.table); err != nil {
		return fmt.Errorf("truncate table %s: %w", t.table, err)
	}
	return nil
}

// WriteBatch inserts records in a single transaction
func (t *MovieTable) WriteBatch(ctx context.Context, records []model.TransformedRecord) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if already committed

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(model.FieldNames)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		t.table, strings.Join(model.FieldNames, ", "), placeholders))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range records {
		if _, err := stmt.ExecContext(ctx, records[i].Values()...); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Query returns up to limit rows in insertion order
func (t *MovieTable) Query(ctx context.Context, limit int) ([]model.TransformedRecord, error) {
	rows, err := t.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM %s ORDER BY rowid LIMIT ?`,
		strings.Join(model.FieldNames, ", "), t.table), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovies(rows)
}

// Count returns the number of rows in the table
func (t *MovieTable) Count(ctx context.Context) (int64, error) {
	var n int64
	err := t.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+t.table).Scan(&n)
	return n, err
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanMovies(rows rowScanner) ([]model.TransformedRecord, error) {
	out := []model.TransformedRecord{}
	for rows.Next() {
		var (
			r      model.TransformedRecord
			rating sql.NullFloat64
		)
		if err := rows.Scan(movieDest(&r, &rating)...); err != nil {
			return nil, err
		}
		// sqlite stores NaN as NULL
		r.IMDBRating = math.NaN()
		if rating.Valid {
			r.IMDBRating = rating.Float64
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// movieDest returns scan targets in FieldNames order
func movieDest(r *model.TransformedRecord, rating *sql.NullFloat64) []any {
	return []any{
		&r.PosterLink, &r.SeriesTitle, &r.ReleasedYear, &r.Certificate,
		&r.Runtime, &r.Genre, rating, &r.Overview,
		&r.MetaScore, &r.Director, &r.Star1, &r.Star2,
		&r.Star3, &r.Star4, &r.NoOfVotes, &r.Gross,
	}
}
