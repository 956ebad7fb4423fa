// Package httpapi serves the allocation read and write entry points over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/outreach-quota/internal/application"
	"github.com/bnema/outreach-quota/internal/domain"
	"github.com/bnema/outreach-quota/internal/logger"
	"github.com/bnema/outreach-quota/internal/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// AllocationAPI is the part of application.AllocationService the handlers use.
type AllocationAPI interface {
	FetchOrCreate(ctx context.Context, agentID domain.AgentID, date time.Time) (application.Allocation, error)
	RecordConsumption(ctx context.Context, cmd application.RecordConsumptionCommand) (application.Allocation, error)
	ExcludedAccounts(ctx context.Context, agentID domain.AgentID, date time.Time) (application.Exclusions, error)
}

type Options struct {
	// RateLimit is requests per second across all clients; zero disables limiting.
	RateLimit float64
	Burst     int
	Clock     ports.Clock
	// Health reports backing store health for /healthz. Nil means always healthy.
	Health func(ctx context.Context) error
}

type handler struct {
	svc    AllocationAPI
	clock  ports.Clock
	health func(ctx context.Context) error
}

func NewRouter(svc AllocationAPI, opts Options) http.Handler {
	if opts.Clock == nil {
		opts.Clock = ports.SystemClock{}
	}
	h := &handler{svc: svc, clock: opts.Clock, health: opts.Health}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(accessLogMiddleware)

	r.Get("/healthz", h.healthz)

	r.Route("/v1/agents/{agentID}", func(api chi.Router) {
		api.Use(rateLimitMiddleware(limiter))
		api.Get("/allocations/{date}", h.getAllocation)
		api.Put("/allocations/{date}", h.putAllocation)
		api.Get("/exclusions/{date}", h.getExclusions)
	})

	return r
}

type allocationResponse struct {
	RequestID      string           `json:"request_id"`
	AgentID        string           `json:"agent_id"`
	Date           string           `json:"date"`
	Companies      []domain.Account `json:"companies"`
	RemainingQuota int              `json:"remaining_quota"`
	TotalQuota     int              `json:"total_quota"`
	PoolStatus     string           `json:"pool_status"`
	PoolExhausted  bool             `json:"pool_exhausted"`
	ShortPool      bool             `json:"short_pool"`
	RestDay        bool             `json:"rest_day"`
	Created        bool             `json:"created"`
	UpdatedAt      *time.Time       `json:"updated_at,omitempty"`
}

func newAllocationResponse(requestID string, alloc application.Allocation) allocationResponse {
	resp := allocationResponse{
		RequestID:      requestID,
		AgentID:        string(alloc.AgentID),
		Date:           domain.FormatDate(alloc.Date),
		Companies:      domain.CloneAccounts(alloc.Companies),
		RemainingQuota: alloc.RemainingQuota,
		TotalQuota:     alloc.TotalQuota,
		PoolStatus:     alloc.PoolStatus.String(),
		PoolExhausted:  alloc.Exhausted(),
		ShortPool:      alloc.Short(),
		RestDay:        alloc.RestDay,
		Created:        alloc.Created,
	}
	if !alloc.UpdatedAt.IsZero() {
		updated := alloc.UpdatedAt.UTC()
		resp.UpdatedAt = &updated
	}
	return resp
}

type consumptionRequest struct {
	Companies      []domain.Account `json:"companies"`
	RemainingQuota *int             `json:"remaining_quota"`
}

type exclusionsResponse struct {
	RequestID  string   `json:"request_id"`
	AgentID    string   `json:"agent_id"`
	Date       string   `json:"date"`
	From       string   `json:"from"`
	To         string   `json:"to"`
	AccountIDs []string `json:"account_ids"`
}

func (h *handler) getAllocation(w http.ResponseWriter, r *http.Request) {
	agentID, date, err := h.keyFromPath(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	alloc, err := h.svc.FetchOrCreate(r.Context(), agentID, date)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	status := http.StatusOK
	if alloc.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, newAllocationResponse(requestIDFrom(r.Context()), alloc))
}

func (h *handler) putAllocation(w http.ResponseWriter, r *http.Request) {
	agentID, date, err := h.keyFromPath(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req consumptionRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_JSON", err.Error(), false)
		return
	}
	if req.RemainingQuota == nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "remaining_quota is required", false)
		return
	}

	alloc, err := h.svc.RecordConsumption(r.Context(), application.RecordConsumptionCommand{
		AgentID:        agentID,
		Date:           date,
		Companies:      req.Companies,
		RemainingQuota: *req.RemainingQuota,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newAllocationResponse(requestIDFrom(r.Context()), alloc))
}

func (h *handler) getExclusions(w http.ResponseWriter, r *http.Request) {
	agentID, date, err := h.keyFromPath(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	exclusions, err := h.svc.ExcludedAccounts(r.Context(), agentID, date)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ids := make([]string, 0, len(exclusions.AccountIDs))
	for _, id := range exclusions.AccountIDs {
		ids = append(ids, string(id))
	}
	writeJSON(w, http.StatusOK, exclusionsResponse{
		RequestID:  requestIDFrom(r.Context()),
		AgentID:    string(exclusions.AgentID),
		Date:       domain.FormatDate(exclusions.Date),
		From:       domain.FormatDate(exclusions.From),
		To:         domain.FormatDate(exclusions.To),
		AccountIDs: ids,
	})
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			logger.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// keyFromPath reads the agent and date path parameters. "today" resolves
// against the handler clock.
func (h *handler) keyFromPath(r *http.Request) (domain.AgentID, time.Time, error) {
	agentID := domain.AgentID(strings.TrimSpace(chi.URLParam(r, "agentID")))

	raw := chi.URLParam(r, "date")
	if strings.EqualFold(raw, "today") {
		return agentID, domain.NormalizeDate(h.clock.Now()), nil
	}

	date, err := domain.ParseDate(raw)
	if err != nil {
		return "", time.Time{}, err
	}
	return agentID, date, nil
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("allocation request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"code", code,
			"error", err,
			"request_id", requestIDFrom(r.Context()),
		)
	}
	writeError(w, r, status, code, message, domain.IsRetryable(err))
}
