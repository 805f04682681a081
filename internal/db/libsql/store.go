// Package libsql implements the icon catalog store on libSQL, using the
// native vector_distance_cos operator for nearest-neighbor queries over
// F32_BLOB embedding columns.
package libsql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"
	"go.uber.org/zap"
)

// Store reads the icons and sources tables. The catalog is read-only from
// this service's perspective; ingestion and embedding population are an
// external batch job.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open connects to a libSQL database at the given URL (local file path or
// libsql:// remote).
func Open(url string, logger *zap.Logger) (*Store, error) {
	dsn := url
	if !strings.HasPrefix(url, "file:") && !strings.HasPrefix(url, "libsql://") {
		dsn = "file:" + url
	}

	database, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: database, logger: logger}
	if err := s.applyPragmas(); err != nil {
		_ = database.Close()
		return nil, err
	}
	return s, nil
}

// applyPragmas tunes the connection for read-mostly workloads. libSQL
// returns result rows for PRAGMA statements, so Query is used over Exec.
func (s *Store) applyPragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		rows, err := s.db.Query(p)
		if err != nil {
			return fmt.Errorf("set pragma: %w", err)
		}
		_ = rows.Close()
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// WaitForReady polls Ping until the database responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	_ = s.db.Close()
}
