// Package postgres stores daily allocations in PostgreSQL through sqlx and pgx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/outreach-quota/internal/adapters/repo/record"
	"github.com/bnema/outreach-quota/internal/domain"
	"github.com/bnema/outreach-quota/internal/ports"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver for sqlx
	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS daily_allocations (
	agent_id        TEXT        NOT NULL,
	alloc_date      DATE        NOT NULL,
	accounts        JSONB       NOT NULL DEFAULT '[]'::jsonb,
	total_quota     INTEGER     NOT NULL CHECK (total_quota >= 0),
	remaining_quota INTEGER     NOT NULL CHECK (remaining_quota >= 0 AND remaining_quota <= total_quota),
	pool_status     TEXT        NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (agent_id, alloc_date)
)`

const selectColumns = `agent_id, alloc_date, accounts::text AS accounts, total_quota, remaining_quota, pool_status, created_at, updated_at`

type row struct {
	AgentID        string    `db:"agent_id"`
	AllocDate      time.Time `db:"alloc_date"`
	Accounts       string    `db:"accounts"`
	TotalQuota     int       `db:"total_quota"`
	RemainingQuota int       `db:"remaining_quota"`
	PoolStatus     string    `db:"pool_status"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r row) toDomain() (domain.DailyAllocation, error) {
	return record.Allocation{
		AgentID:        r.AgentID,
		Date:           domain.FormatDate(r.AllocDate),
		AccountsJSON:   r.Accounts,
		TotalQuota:     r.TotalQuota,
		RemainingQuota: r.RemainingQuota,
		PoolStatus:     r.PoolStatus,
		CreatedAt:      record.FormatTimestamp(r.CreatedAt),
		UpdatedAt:      record.FormatTimestamp(r.UpdatedAt),
	}.ToDomain()
}

type Store struct {
	db    *sqlx.DB
	retry *txRetryPolicy
}

var _ ports.AllocationStore = (*Store)(nil)

// Open connects to dsn and creates the schema if needed.
func Open(ctx context.Context, dsn string, maxConns int) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	}

	store := New(db)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db, retry: newTxRetryPolicy()}
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key domain.AllocationKey) (domain.DailyAllocation, error) {
	var r row
	err := s.retry.do(ctx, func() error {
		return s.db.GetContext(ctx, &r,
			`SELECT `+selectColumns+` FROM daily_allocations WHERE agent_id = $1 AND alloc_date = $2`,
			string(key.AgentID), key.Date,
		)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DailyAllocation{}, domain.ErrAllocationNotFound
	}
	if err != nil {
		return domain.DailyAllocation{}, unavailable("get allocation", err)
	}
	return r.toDomain()
}

// InsertIfAbsent issues a single INSERT ... ON CONFLICT DO NOTHING. An empty
// RETURNING set or a unique violation means another writer won; the winner is
// re-read and returned.
func (s *Store) InsertIfAbsent(ctx context.Context, alloc domain.DailyAllocation) (domain.DailyAllocation, bool, error) {
	rec, err := record.FromDomain(alloc)
	if err != nil {
		return domain.DailyAllocation{}, false, err
	}

	created := false
	err = s.retry.do(ctx, func() error {
		var agentID string
		err := s.db.QueryRowxContext(ctx, `
			INSERT INTO daily_allocations
				(agent_id, alloc_date, accounts, total_quota, remaining_quota, pool_status, created_at, updated_at)
			VALUES ($1, $2, $3::jsonb, $4, $5, $6, $7, $8)
			ON CONFLICT (agent_id, alloc_date) DO NOTHING
			RETURNING agent_id`,
			rec.AgentID, alloc.Date, rec.AccountsJSON, rec.TotalQuota, rec.RemainingQuota,
			rec.PoolStatus, alloc.CreatedAt.UTC(), alloc.UpdatedAt.UTC(),
		).Scan(&agentID)
		switch {
		case err == nil:
			created = true
			return nil
		case errors.Is(err, sql.ErrNoRows), isDupEntryError(err):
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return domain.DailyAllocation{}, false, unavailable("insert allocation", err)
	}
	if created {
		return alloc.Clone(), true, nil
	}

	stored, err := s.Get(ctx, alloc.Key())
	if err != nil {
		return domain.DailyAllocation{}, false, fmt.Errorf("re-read conflicting allocation: %w", err)
	}
	return stored, false, nil
}

func (s *Store) Update(ctx context.Context, alloc domain.DailyAllocation) error {
	rec, err := record.FromDomain(alloc)
	if err != nil {
		return err
	}

	var affected int64
	err = s.retry.do(ctx, func() error {
		result, err := s.db.ExecContext(ctx, `
			UPDATE daily_allocations
			SET accounts = $1::jsonb, remaining_quota = $2, updated_at = $3
			WHERE agent_id = $4 AND alloc_date = $5`,
			rec.AccountsJSON, rec.RemainingQuota, alloc.UpdatedAt.UTC(), rec.AgentID, alloc.Date,
		)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return unavailable("update allocation", err)
	}
	if affected == 0 {
		return domain.ErrAllocationNotFound
	}
	return nil
}

func (s *Store) ListRange(ctx context.Context, agentID domain.AgentID, from, to time.Time) ([]domain.DailyAllocation, error) {
	var rows []row
	err := s.retry.do(ctx, func() error {
		rows = rows[:0]
		return s.db.SelectContext(ctx, &rows,
			`SELECT `+selectColumns+` FROM daily_allocations
			WHERE agent_id = $1 AND alloc_date >= $2 AND alloc_date < $3
			ORDER BY alloc_date`,
			string(agentID), domain.NormalizeDate(from), domain.NormalizeDate(to),
		)
	})
	if err != nil {
		return nil, unavailable("list allocations", err)
	}

	allocations := make([]domain.DailyAllocation, 0, len(rows))
	for _, r := range rows {
		alloc, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, alloc)
	}
	return allocations, nil
}

func (s *Store) LatestBefore(ctx context.Context, agentID domain.AgentID, date time.Time) (domain.DailyAllocation, error) {
	var r row
	err := s.retry.do(ctx, func() error {
		return s.db.GetContext(ctx, &r,
			`SELECT `+selectColumns+` FROM daily_allocations
			WHERE agent_id = $1 AND alloc_date < $2
			ORDER BY alloc_date DESC LIMIT 1`,
			string(agentID), domain.NormalizeDate(date),
		)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DailyAllocation{}, domain.ErrAllocationNotFound
	}
	if err != nil {
		return domain.DailyAllocation{}, unavailable("load latest allocation", err)
	}
	return r.toDomain()
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
