// Package auditquery exposes ad hoc SQL over the audit trail's Parquet
// files, the way the rrdcachectl "history" command lets an operator
// dig past what fits in the in-memory ring. It is read-only and never
// touches the cache, queue or writer.
package auditquery

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

// Service runs SQL queries against the audit trail's Parquet files
// via an in-memory DuckDB instance.
type Service struct {
	mu sync.RWMutex

	auditDir string
	db       *sql.DB

	queriesExecuted int64
	errors          int64
}

// New opens an in-memory DuckDB database for querying auditDir's
// Parquet files. memoryLimit is passed to DuckDB verbatim (e.g.
// "512MB"); an empty string leaves DuckDB's default in place.
func New(auditDir, memoryLimit string) (*Service, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	if memoryLimit != "" {
		if _, err := db.Exec(fmt.Sprintf("SET memory_limit='%s'", memoryLimit)); err != nil {
			db.Close()
			return nil, fmt.Errorf("set memory limit: %w", err)
		}
	}

	return &Service{auditDir: auditDir, db: db}, nil
}

// Close closes the underlying DuckDB connection.
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// pattern returns the glob DuckDB's read_parquet should scan.
func (s *Service) pattern() string {
	return filepath.Join(s.auditDir, "*.parquet")
}

// Tail returns the n most recent audit rows for filename ("" for
// every file), newest first.
func (s *Service) Tail(ctx context.Context, filename string, n int) ([]map[string]any, error) {
	query := fmt.Sprintf(`
		SELECT time_unix_ms, filename, kind, values_num, queue_depth, detail
		FROM read_parquet('%s')
		WHERE ($1 = '' OR filename = $1)
		ORDER BY time_unix_ms DESC
		LIMIT $2
	`, escapeSingleQuotes(s.pattern()))
	return s.query(ctx, query, filename, n)
}

// ExecuteSQL runs an arbitrary read-only SQL query, useful for the
// interactive "history <sql>" command. Callers are expected to
// reference read_parquet('<auditDir>/*.parquet') themselves, or use
// Tail for the common case.
func (s *Service) ExecuteSQL(ctx context.Context, query string) ([]map[string]any, error) {
	return s.query(ctx, query)
}

func (s *Service) query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.errors++
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}

	s.queriesExecuted++
	return results, rows.Err()
}

// Stats reports how many queries have run and how many failed.
type Stats struct {
	QueriesExecuted int64
	Errors          int64
}

// Stats returns a snapshot of query counters.
func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{QueriesExecuted: s.queriesExecuted, Errors: s.errors}
}

func escapeSingleQuotes(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'', '\'')
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}
