// README: ai_usage persistence (Postgres) plus an in-memory store for local runs.
package quota

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store deducts requests from a per-user monthly allowance.
type Store interface {
	// Consume deducts one request. Rows from an earlier month are reset to allowance first.
	// Returns ErrQuotaExceeded when nothing was deducted (exhausted or user absent).
	Consume(ctx context.Context, uid, month string, allowance int) error
	// Ensure creates the user's row with the full allowance if it does not exist.
	Ensure(ctx context.Context, uid, month string, allowance int) error
	// Remaining reports the requests left in month; unknown users have the full allowance.
	Remaining(ctx context.Context, uid, month string, allowance int) (int, error)
}

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Consume checks and deducts in one statement so concurrent requests cannot overdraw.
func (s *PostgresStore) Consume(ctx context.Context, uid, month string, allowance int) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE ai_usage SET
			requests_remaining = CASE WHEN last_reset_month != $1 THEN $2 - 1 ELSE requests_remaining - 1 END,
			last_reset_month = $1
		WHERE uid = $3 AND (last_reset_month < $1 OR requests_remaining > 0)
	`, month, allowance, uid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrQuotaExceeded
	}
	return nil
}

func (s *PostgresStore) Ensure(ctx context.Context, uid, month string, allowance int) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ai_usage (uid, requests_remaining, last_reset_month)
		VALUES ($1, $2, $3)
		ON CONFLICT (uid) DO NOTHING
	`, uid, allowance, month)
	return err
}

func (s *PostgresStore) Remaining(ctx context.Context, uid, month string, allowance int) (int, error) {
	var remaining int
	var last string
	err := s.db.QueryRow(ctx, `SELECT requests_remaining, last_reset_month FROM ai_usage WHERE uid = $1`, uid).
		Scan(&remaining, &last)
	if errors.Is(err, pgx.ErrNoRows) {
		return allowance, nil
	}
	if err != nil {
		return 0, err
	}
	if last < month {
		return allowance, nil
	}
	return remaining, nil
}

type usageRow struct {
	remaining int
	month     string
}

// MemoryStore mirrors PostgresStore semantics in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]usageRow
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]usageRow)}
}

func (m *MemoryStore) Consume(_ context.Context, uid, month string, allowance int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[uid]
	if !ok {
		return ErrQuotaExceeded
	}
	if row.month < month {
		row = usageRow{remaining: allowance, month: month}
	}
	if row.remaining <= 0 {
		return ErrQuotaExceeded
	}
	row.remaining--
	m.rows[uid] = row
	return nil
}

func (m *MemoryStore) Ensure(_ context.Context, uid, month string, allowance int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[uid]; !ok {
		m.rows[uid] = usageRow{remaining: allowance, month: month}
	}
	return nil
}

func (m *MemoryStore) Remaining(_ context.Context, uid, month string, allowance int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[uid]
	if !ok || row.month < month {
		return allowance, nil
	}
	return row.remaining, nil
}

// Seed sets a user's row directly. Intended for tests and fixtures.
func (m *MemoryStore) Seed(uid string, remaining int, month string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[uid] = usageRow{remaining: remaining, month: month}
}
