package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	// DefaultMaxAttempts is the default number of attempts for a write; writes are not retried
	DefaultMaxAttempts = 1
	// DefaultBaseBackoff is the default base backoff duration
	DefaultBaseBackoff = 50 * time.Millisecond
)

// RetryConfig configures how writes are retried on transient lock failures.
// Retrying is opt-in; the default configuration makes a single attempt.
type RetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: DefaultMaxAttempts,
		BaseBackoff: DefaultBaseBackoff,
	}
}

// SetRetryConfig replaces the write retry configuration
func (s *Store) SetRetryConfig(config RetryConfig) {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	s.retry = config
}

// exec runs a write statement, retrying deadlocks, serialization failures
// and busy databases with exponential backoff
func (s *Store) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	var lastErr error

	for attempt := 0; attempt < s.retry.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("write cancelled before attempt %d: %w", attempt+1, ctx.Err())
		}

		result, err := s.db.ExecContext(ctx, s.bind(query), args...)
		if err == nil {
			return result, nil
		}
		if !IsRetryableError(err) {
			return nil, err
		}
		lastErr = err

		// baseBackoff * 2^attempt
		backoff := s.retry.BaseBackoff * time.Duration(1<<uint(attempt))
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("write cancelled during retry: %w", ctx.Err())
		case <-time.After(backoff):
		}
	}

	if s.retry.MaxAttempts == 1 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("write failed after %d attempts: %w", s.retry.MaxAttempts, lastErr)
}

// IsRetryableError reports whether err is a transient lock failure worth retrying
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isRetryableCode(pgErr.Code)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return isRetryableCode(string(pqErr.Code))
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{"deadlock detected", "could not serialize access", "database is locked"} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

// isRetryableCode matches the PostgreSQL deadlock (40P01) and serialization (40001) codes
func isRetryableCode(code string) bool {
	return code == "40P01" || code == "40001"
}
