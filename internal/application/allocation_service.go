package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/outreach-quota/internal/domain"
	"github.com/bnema/outreach-quota/internal/logger"
	"github.com/bnema/outreach-quota/internal/ports"
)

// AllocationService is the single entry point for reading, generating and
// consuming daily allocations.
type AllocationService struct {
	catalog    ports.AccountCatalog
	store      ports.AllocationStore
	exclusions *ExclusionWindowCalculator
	sampler    *QuotaSampler
	clock      ports.Clock
	policy     Policy
}

func NewAllocationService(catalog ports.AccountCatalog, store ports.AllocationStore, policy Policy, sampler *QuotaSampler, clock ports.Clock) *AllocationService {
	if sampler == nil {
		sampler = NewQuotaSampler(nil)
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &AllocationService{
		catalog:    catalog,
		store:      store,
		exclusions: NewExclusionWindowCalculator(store, policy.ExclusionWindow),
		sampler:    sampler,
		clock:      clock,
		policy:     policy,
	}
}

func (s *AllocationService) Policy() Policy {
	return s.policy
}

// FetchOrCreate returns the canonical allocation for agentID on date,
// generating and storing it on first request. Concurrent callers for the same
// key all observe the single row that won the insert.
func (s *AllocationService) FetchOrCreate(ctx context.Context, agentID domain.AgentID, date time.Time) (Allocation, error) {
	key := domain.NewAllocationKey(agentID, date)
	if err := key.Validate(); err != nil {
		return Allocation{}, err
	}

	existing, err := s.get(ctx, key)
	if err == nil {
		return newAllocationView(existing, false), nil
	}
	if !errors.Is(err, domain.ErrAllocationNotFound) {
		return Allocation{}, fmt.Errorf("get allocation %s: %w", key, err)
	}

	if s.policy.IsRestDay(key.Date) {
		logger.Debug("rest day, no allocation generated", "agent", key.AgentID, "date", domain.FormatDate(key.Date))
		return restDayView(key), nil
	}

	generated, err := s.generate(ctx, key)
	if err != nil {
		return Allocation{}, err
	}

	storeCtx, cancel := withTimeout(ctx, s.policy.StoreTimeout)
	defer cancel()
	stored, created, err := s.store.InsertIfAbsent(storeCtx, generated)
	if err != nil {
		return Allocation{}, fmt.Errorf("insert allocation %s: %w", key, err)
	}

	if created {
		logger.Info("allocation created",
			"agent", key.AgentID,
			"date", domain.FormatDate(key.Date),
			"total", stored.TotalQuota,
			"allocated", len(stored.Accounts),
			"pool_status", stored.PoolStatus,
		)
	} else {
		logger.Debug("allocation created concurrently, using stored row", "agent", key.AgentID, "date", domain.FormatDate(key.Date))
	}

	return newAllocationView(stored, created), nil
}

func (s *AllocationService) generate(ctx context.Context, key domain.AllocationKey) (domain.DailyAllocation, error) {
	historyCtx, cancel := withTimeout(ctx, s.policy.StoreTimeout)
	defer cancel()

	excluded, err := s.exclusions.Excluded(historyCtx, key.AgentID, key.Date)
	if err != nil {
		return domain.DailyAllocation{}, fmt.Errorf("compute exclusions for %s: %w", key, err)
	}

	carryOver, err := s.carryOver(historyCtx, key)
	if err != nil {
		return domain.DailyAllocation{}, err
	}

	accounts, err := s.listAccounts(ctx, key.AgentID)
	if err != nil {
		return domain.DailyAllocation{}, err
	}

	total := s.policy.BaseQuota + carryOver
	picked, short := s.sampler.Sample(BuildPool(accounts, excluded), total)

	status := domain.PoolStatusFull
	switch {
	case len(picked) == 0:
		status = domain.PoolStatusExhausted
	case short:
		status = domain.PoolStatusShort
	}

	now := s.clock.Now()
	alloc := domain.DailyAllocation{
		AgentID:        key.AgentID,
		Date:           key.Date,
		Accounts:       picked,
		TotalQuota:     total,
		RemainingQuota: len(picked),
		PoolStatus:     status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := alloc.Validate(); err != nil {
		return domain.DailyAllocation{}, err
	}
	return alloc, nil
}

func (s *AllocationService) carryOver(ctx context.Context, key domain.AllocationKey) (int, error) {
	previous, err := s.store.LatestBefore(ctx, key.AgentID, key.Date)
	if errors.Is(err, domain.ErrAllocationNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load previous allocation for %s: %w", key, err)
	}
	return max(previous.RemainingQuota, 0), nil
}

// Lookup returns the stored allocation without generating one.
func (s *AllocationService) Lookup(ctx context.Context, agentID domain.AgentID, date time.Time) (Allocation, error) {
	key := domain.NewAllocationKey(agentID, date)
	if err := key.Validate(); err != nil {
		return Allocation{}, err
	}

	stored, err := s.get(ctx, key)
	if err != nil {
		return Allocation{}, fmt.Errorf("get allocation %s: %w", key, err)
	}
	return newAllocationView(stored, false), nil
}

// RecordConsumption overwrites the account list and remaining quota of an
// existing allocation. Remaining is clamped into [0, total]. Concurrent updates
// for one key are last-writer-wins.
func (s *AllocationService) RecordConsumption(ctx context.Context, cmd RecordConsumptionCommand) (Allocation, error) {
	key := cmd.Key()
	if err := key.Validate(); err != nil {
		return Allocation{}, err
	}

	current, err := s.get(ctx, key)
	if err != nil {
		return Allocation{}, fmt.Errorf("get allocation %s: %w", key, err)
	}

	if len(cmd.Companies) > current.TotalQuota {
		return Allocation{}, fmt.Errorf("%w: %d companies exceed total quota %d", domain.ErrInvalidRequest, len(cmd.Companies), current.TotalQuota)
	}

	current.Accounts = domain.CloneAccounts(cmd.Companies)
	current.RemainingQuota = current.ClampRemaining(cmd.RemainingQuota)
	current.UpdatedAt = s.clock.Now()

	storeCtx, cancel := withTimeout(ctx, s.policy.StoreTimeout)
	defer cancel()
	if err := s.store.Update(storeCtx, current); err != nil {
		return Allocation{}, fmt.Errorf("update allocation %s: %w", key, err)
	}

	logger.Info("consumption recorded",
		"agent", key.AgentID,
		"date", domain.FormatDate(key.Date),
		"companies", len(current.Accounts),
		"remaining", current.RemainingQuota,
	)
	return newAllocationView(current, false), nil
}

// ExcludedAccounts reports the ids that generation on date would skip.
func (s *AllocationService) ExcludedAccounts(ctx context.Context, agentID domain.AgentID, date time.Time) (Exclusions, error) {
	key := domain.NewAllocationKey(agentID, date)
	if err := key.Validate(); err != nil {
		return Exclusions{}, err
	}

	storeCtx, cancel := withTimeout(ctx, s.policy.StoreTimeout)
	defer cancel()
	set, err := s.exclusions.Excluded(storeCtx, key.AgentID, key.Date)
	if err != nil {
		return Exclusions{}, fmt.Errorf("compute exclusions for %s: %w", key, err)
	}

	from, to := s.exclusions.Window(key.Date)
	return newExclusions(key, from, to, set), nil
}

// ListAccounts returns the catalog accounts of agentID, ordered by id.
func (s *AllocationService) ListAccounts(ctx context.Context, agentID domain.AgentID) ([]domain.Account, error) {
	agentID = domain.AgentID(strings.TrimSpace(string(agentID)))
	if agentID == "" {
		return nil, fmt.Errorf("%w: agent id is required", domain.ErrInvalidRequest)
	}

	accounts, err := s.listAccounts(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return BuildPool(accounts, nil), nil
}

func (s *AllocationService) listAccounts(ctx context.Context, agentID domain.AgentID) ([]domain.Account, error) {
	catalogCtx, cancel := withTimeout(ctx, s.policy.CatalogTimeout)
	defer cancel()

	accounts, err := s.catalog.ListByAgent(catalogCtx, agentID)
	if err == nil {
		return accounts, nil
	}

	logger.Warn("account catalog query failed", "agent", agentID, "error", err)
	if errors.Is(err, domain.ErrCatalogUnavailable) {
		return nil, fmt.Errorf("list accounts for agent %s: %w", agentID, err)
	}
	return nil, fmt.Errorf("list accounts for agent %s: %w: %w", agentID, domain.ErrCatalogUnavailable, err)
}

func (s *AllocationService) get(ctx context.Context, key domain.AllocationKey) (domain.DailyAllocation, error) {
	storeCtx, cancel := withTimeout(ctx, s.policy.StoreTimeout)
	defer cancel()
	return s.store.Get(storeCtx, key)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
