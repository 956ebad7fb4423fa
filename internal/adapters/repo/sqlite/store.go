// Package sqlite stores daily allocations in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/outreach-quota/internal/adapters/repo/record"
	"github.com/bnema/outreach-quota/internal/domain"
	"github.com/bnema/outreach-quota/internal/ports"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS daily_allocations (
	agent_id        TEXT    NOT NULL,
	alloc_date      TEXT    NOT NULL,
	accounts_json   TEXT    NOT NULL DEFAULT '[]',
	total_quota     INTEGER NOT NULL CHECK (total_quota >= 0),
	remaining_quota INTEGER NOT NULL CHECK (remaining_quota >= 0 AND remaining_quota <= total_quota),
	pool_status     TEXT    NOT NULL,
	created_at      TEXT    NOT NULL,
	updated_at      TEXT    NOT NULL,
	PRIMARY KEY (agent_id, alloc_date)
) WITHOUT ROWID;`

const selectColumns = `agent_id, alloc_date, accounts_json, total_quota, remaining_quota, pool_status, created_at, updated_at`

type Store struct {
	db   *sql.DB
	path string
}

var _ ports.AllocationStore = (*Store)(nil)

// Open creates the database file and schema at path if needed.
func Open(ctx context.Context, path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// dsn applies the pragmas on every pooled connection, not just the first.
func dsn(path string) string {
	params := url.Values{}
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "synchronous(NORMAL)")
	params.Set("_txlock", "immediate")
	return "file:" + path + "?" + params.Encode()
}

func (s *Store) Path() string {
	return s.path
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
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM daily_allocations WHERE agent_id = ? AND alloc_date = ?`,
		string(key.AgentID), domain.FormatDate(key.Date),
	)

	alloc, err := scanAllocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DailyAllocation{}, domain.ErrAllocationNotFound
	}
	if err != nil {
		return domain.DailyAllocation{}, unavailable("get allocation", err)
	}
	return alloc, nil
}

// InsertIfAbsent relies on the primary key: the losing writer's insert is a
// no-op and it reads back the committed row.
func (s *Store) InsertIfAbsent(ctx context.Context, alloc domain.DailyAllocation) (domain.DailyAllocation, bool, error) {
	rec, err := record.FromDomain(alloc)
	if err != nil {
		return domain.DailyAllocation{}, false, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_allocations (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (agent_id, alloc_date) DO NOTHING`,
		rec.AgentID, rec.Date, rec.AccountsJSON, rec.TotalQuota, rec.RemainingQuota,
		rec.PoolStatus, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return domain.DailyAllocation{}, false, unavailable("insert allocation", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return domain.DailyAllocation{}, false, unavailable("insert allocation", err)
	}
	if affected == 1 {
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

	result, err := s.db.ExecContext(ctx, `
		UPDATE daily_allocations
		SET accounts_json = ?, remaining_quota = ?, updated_at = ?
		WHERE agent_id = ? AND alloc_date = ?`,
		rec.AccountsJSON, rec.RemainingQuota, rec.UpdatedAt, rec.AgentID, rec.Date,
	)
	if err != nil {
		return unavailable("update allocation", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return unavailable("update allocation", err)
	}
	if affected == 0 {
		return domain.ErrAllocationNotFound
	}
	return nil
}

func (s *Store) ListRange(ctx context.Context, agentID domain.AgentID, from, to time.Time) ([]domain.DailyAllocation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM daily_allocations
		WHERE agent_id = ? AND alloc_date >= ? AND alloc_date < ?
		ORDER BY alloc_date`,
		string(agentID), domain.FormatDate(from), domain.FormatDate(to),
	)
	if err != nil {
		return nil, unavailable("list allocations", err)
	}
	defer rows.Close()

	var allocations []domain.DailyAllocation
	for rows.Next() {
		alloc, err := scanAllocation(rows)
		if err != nil {
			return nil, unavailable("scan allocation", err)
		}
		allocations = append(allocations, alloc)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list allocations", err)
	}
	return allocations, nil
}

func (s *Store) LatestBefore(ctx context.Context, agentID domain.AgentID, date time.Time) (domain.DailyAllocation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM daily_allocations
		WHERE agent_id = ? AND alloc_date < ?
		ORDER BY alloc_date DESC LIMIT 1`,
		string(agentID), domain.FormatDate(date),
	)

	alloc, err := scanAllocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DailyAllocation{}, domain.ErrAllocationNotFound
	}
	if err != nil {
		return domain.DailyAllocation{}, unavailable("load latest allocation", err)
	}
	return alloc, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAllocation(row scanner) (domain.DailyAllocation, error) {
	var rec record.Allocation
	if err := row.Scan(
		&rec.AgentID, &rec.Date, &rec.AccountsJSON, &rec.TotalQuota,
		&rec.RemainingQuota, &rec.PoolStatus, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return domain.DailyAllocation{}, err
	}
	return rec.ToDomain()
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
