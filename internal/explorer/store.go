// Package explorer hands a loaded table to the visual explorer: an Arrow
// stream of the raw table and an in-memory DuckDB for aggregate queries.
package explorer

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/marcboeker/go-duckdb"

	"github.com/eda-explorer/backend/internal/models"
)

// ErrInvalidQuery is returned for queries naming unknown fields or
// aggregates, or applying an aggregate to a field it cannot summarize.
var ErrInvalidQuery = errors.New("invalid query")

const tableName = "dataset"

// Config tunes the embedded database.
type Config struct {
	MemoryLimit      string
	Threads          int
	MaxConcurrency   int
	MaxGroupBy       int
	DefaultLimit     int
	MaxLimit         int
	AppendBatchFlush int
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		MemoryLimit:      "512MB",
		Threads:          2,
		MaxConcurrency:   3,
		MaxGroupBy:       3,
		DefaultLimit:     1000,
		MaxLimit:         10000,
		AppendBatchFlush: 50000,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MemoryLimit == "" {
		c.MemoryLimit = d.MemoryLimit
	}
	if c.Threads <= 0 {
		c.Threads = d.Threads
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = d.MaxConcurrency
	}
	if c.MaxGroupBy <= 0 {
		c.MaxGroupBy = d.MaxGroupBy
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = d.DefaultLimit
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = d.MaxLimit
	}
	if c.AppendBatchFlush <= 0 {
		c.AppendBatchFlush = d.AppendBatchFlush
	}
	return c
}

// Store is an in-memory DuckDB holding one table as "dataset".
type Store struct {
	db     *sql.DB
	cfg    Config
	fields map[string]models.ScalarType
	rows   int

	// limits concurrent queries
	querySem chan struct{}
}

// NewStore creates the database and bulk-loads t through the Appender API.
func NewStore(ctx context.Context, t *models.Table, cfg Config) (*Store, error) {
	cfg = cfg.withDefaults()
	start := time.Now()

	connector, err := duckdb.NewConnector("", func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", cfg.MemoryLimit),
			fmt.Sprintf("PRAGMA threads=%d", cfg.Threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}
	db := sql.OpenDB(connector)

	s := &Store{
		db:       db,
		cfg:      cfg,
		fields:   make(map[string]models.ScalarType, t.NumCols()),
		rows:     t.NumRows(),
		querySem: make(chan struct{}, cfg.MaxConcurrency),
	}
	for _, c := range t.Columns {
		s.fields[c.Name] = c.Type
	}

	if err := s.create(ctx, t); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.appendRows(ctx, t); err != nil {
		db.Close()
		return nil, err
	}

	slog.Debug("[Explorer] store ready", "rows", t.NumRows(), "columns", t.NumCols(), "elapsed", time.Since(start))
	return s, nil
}

func (s *Store) create(ctx context.Context, t *models.Table) error {
	if t.NumCols() == 0 {
		return fmt.Errorf("cannot explore a table without columns")
	}
	defs := make([]string, t.NumCols())
	for i, c := range t.Columns {
		defs[i] = quoteIdent(c.Name) + " " + sqlType(c.Type)
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", tableName, strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

func (s *Store) appendRows(ctx context.Context, t *models.Table) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn any) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}
		appender, err := duckdb.NewAppenderFromConn(dConn, "", tableName)
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		args := make([]driver.Value, t.NumCols())
		for i := 0; i < t.NumRows(); i++ {
			for j := range t.Columns {
				args[j] = driverValue(t.Columns[j].Type, t.Columns[j].Values[i])
			}
			if err := appender.AppendRow(args...); err != nil {
				return fmt.Errorf("failed to append row %d: %w", i, err)
			}
			if (i+1)%s.cfg.AppendBatchFlush == 0 {
				if err := appender.Flush(); err != nil {
					return err
				}
			}
		}
		return appender.Flush()
	})
	if err != nil {
		return fmt.Errorf("appender error: %w", err)
	}
	return nil
}

// Len returns the number of rows loaded.
func (s *Store) Len() int { return s.rows }

// Close releases the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func sqlType(t models.ScalarType) string {
	switch t {
	case models.TypeInt64:
		return "BIGINT"
	case models.TypeFloat64:
		return "DOUBLE"
	case models.TypeBool:
		return "BOOLEAN"
	case models.TypeDatetime:
		return "TIMESTAMP"
	}
	return "VARCHAR"
}

func driverValue(t models.ScalarType, v models.Value) driver.Value {
	if v.IsMissing() {
		return nil
	}
	switch t {
	case models.TypeInt64:
		return v.Int
	case models.TypeFloat64:
		f, _ := v.Number()
		return f
	case models.TypeBool:
		return v.Bool
	case models.TypeDatetime:
		return v.Time
	}
	return v.String()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
