// Package store loads pipeline tables into an in-memory SQLite database
// and answers read-only queries over them.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/carloom-cli/internal/pipeline"
)

// Table names.
const (
	TableCars    = "cars"
	TableSpecs   = "car_specs"
	TablePricing = "pricing"
)

// ErrReadOnly is returned for statements other than a single SELECT.
var ErrReadOnly = errors.New("only a single SELECT statement is allowed")

type column struct {
	name string
	typ  string
}

var carsColumns = []column{
	{pipeline.FieldCarID, "INTEGER PRIMARY KEY"},
	{pipeline.FieldModel, "TEXT NOT NULL"},
	{pipeline.FieldYear, "INTEGER NOT NULL"},
	{pipeline.FieldPrice, "REAL NOT NULL"},
	{pipeline.FieldTransmission, "TEXT NOT NULL"},
	{pipeline.FieldMileage, "REAL NOT NULL"},
	{pipeline.FieldFuelType, "TEXT NOT NULL"},
	{pipeline.FieldTax, "REAL NOT NULL"},
	{pipeline.FieldMPG, "REAL NOT NULL"},
	{pipeline.FieldEngineSize, "REAL NOT NULL"},
	{pipeline.FieldAge, "INTEGER NOT NULL"},
	{pipeline.FieldAutomatic, "INTEGER NOT NULL"},
	{pipeline.FieldDoors, "INTEGER NOT NULL"},
	{pipeline.FieldKM, "REAL NOT NULL"},
}

var specsColumns = []column{
	{pipeline.FieldCarID, "INTEGER PRIMARY KEY"},
	{pipeline.FieldModel, "TEXT NOT NULL"},
	{pipeline.FieldYear, "INTEGER NOT NULL"},
	{pipeline.FieldTransmission, "TEXT NOT NULL"},
	{pipeline.FieldMileage, "REAL NOT NULL"},
	{pipeline.FieldFuelType, "TEXT NOT NULL"},
	{pipeline.FieldMPG, "REAL NOT NULL"},
	{pipeline.FieldEngineSize, "REAL NOT NULL"},
	{pipeline.FieldAge, "INTEGER NOT NULL"},
	{pipeline.FieldAutomatic, "INTEGER NOT NULL"},
	{pipeline.FieldDoors, "INTEGER NOT NULL"},
	{pipeline.FieldKM, "REAL NOT NULL"},
}

var pricingColumns = []column{
	{pipeline.FieldCarID, "INTEGER PRIMARY KEY"},
	{pipeline.FieldPrice, "REAL NOT NULL"},
	{pipeline.FieldTax, "REAL NOT NULL"},
}

// Store is a read-only SQLite view of one pipeline result.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open creates an in-memory database holding the cars, car_specs and pricing tables.
func Open(ctx context.Context, res *pipeline.Result, logger *zap.Logger) (*Store, error) {
	if res == nil {
		return nil, errors.New("store: nil result")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, logger: logger}
	if err := s.load(ctx, res); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA query_only = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set query_only: %w", err)
	}
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) load(ctx context.Context, res *pipeline.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	cars := make([][]any, len(res.Cars))
	for i, c := range res.Cars {
		cars[i] = []any{c.CarID, c.Model, c.Year, c.Price, c.Transmission, c.Mileage,
			c.FuelType, c.Tax, c.MPG, c.EngineSize, c.Age, c.Automatic, c.Doors, c.KM}
	}
	specs := make([][]any, len(res.Specs))
	for i, c := range res.Specs {
		specs[i] = []any{c.CarID, c.Model, c.Year, c.Transmission, c.Mileage,
			c.FuelType, c.MPG, c.EngineSize, c.Age, c.Automatic, c.Doors, c.KM}
	}
	pricing := make([][]any, len(res.Pricing))
	for i, p := range res.Pricing {
		pricing[i] = []any{p.CarID, p.Price, p.Tax}
	}

	for _, t := range []struct {
		name string
		cols []column
		rows [][]any
	}{
		{TableCars, carsColumns, cars},
		{TableSpecs, specsColumns, specs},
		{TablePricing, pricingColumns, pricing},
	} {
		if err := createAndFill(ctx, tx, t.name, t.cols, t.rows); err != nil {
			return err
		}
		s.logger.Debug("loaded table", zap.String("table", t.name), zap.Int("rows", len(t.rows)))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func createAndFill(ctx context.Context, tx *sql.Tx, table string, cols []column, rows [][]any) error {
	defs := make([]string, len(cols))
	names := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = quoteIdent(c.name) + " " + c.typ
		names[i] = quoteIdent(c.name)
	}
	if _, err := tx.ExecContext(ctx, `CREATE TABLE `+quoteIdent(table)+` (`+strings.Join(defs, ",")+`)`); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	ph := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+quoteIdent(table)+` (`+strings.Join(names, ",")+`) VALUES (`+ph+`)`)
	if err != nil {
		return fmt.Errorf("prepare %s: %w", table, err)
	}
	defer stmt.Close()
	for _, args := range rows {
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Rows is a materialized query result rendered as text.
type Rows struct {
	Columns []string
	Values  [][]string
}

// Query runs a read-only SELECT (or WITH ... SELECT) statement.
func (s *Store) Query(ctx context.Context, query string) (*Rows, error) {
	q, err := readOnly(query)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	out := &Rows{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		rec := make([]string, len(cols))
		for i, v := range vals {
			rec[i] = render(v)
		}
		out.Values = append(out.Values, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.logger.Debug("query", zap.String("sql", q), zap.Int("rows", len(out.Values)))
	return out, nil
}

// readOnly accepts one SELECT or WITH statement with an optional trailing semicolon.
func readOnly(query string) (string, error) {
	q := strings.TrimSpace(query)
	q = strings.TrimSpace(strings.TrimSuffix(q, ";"))
	if q == "" || strings.Contains(q, ";") {
		return "", ErrReadOnly
	}
	first := strings.ToLower(strings.Fields(q)[0])
	if first != "select" && first != "with" {
		return "", ErrReadOnly
	}
	return q, nil
}

func render(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return pipeline.FormatFloat(x)
	case []byte:
		return string(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// Table renders rows as a pipe table.
func (r *Rows) Table() string {
	var b strings.Builder
	b.WriteString("| " + strings.Join(r.Columns, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(r.Columns)) + "\n")
	for _, row := range r.Values {
		vals := make([]string, len(row))
		for i, v := range row {
			vals[i] = strings.ReplaceAll(v, "|", "/")
		}
		b.WriteString("| " + strings.Join(vals, " | ") + " |\n")
	}
	return b.String()
}
