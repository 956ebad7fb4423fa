package application

import (
	"fmt"
	"time"

	"github.com/bnema/outreach-quota/internal/domain"
)

const (
	DefaultBaseQuota       = 35
	DefaultExclusionWindow = 30
)

// Policy holds the allocation rules applied by AllocationService.
type Policy struct {
	BaseQuota int
	// ExclusionWindow is the trailing window length in days. Zero disables exclusion.
	ExclusionWindow int
	// RestDays are weekdays on which no allocation is generated.
	RestDays       []time.Weekday
	CatalogTimeout time.Duration
	StoreTimeout   time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		BaseQuota:       DefaultBaseQuota,
		ExclusionWindow: DefaultExclusionWindow,
		RestDays:        []time.Weekday{time.Sunday},
		CatalogTimeout:  5 * time.Second,
		StoreTimeout:    5 * time.Second,
	}
}

func (p Policy) Validate() error {
	if p.BaseQuota <= 0 {
		return fmt.Errorf("%w: base quota must be positive, got %d", domain.ErrInvalidRequest, p.BaseQuota)
	}
	if p.ExclusionWindow < 0 {
		return fmt.Errorf("%w: exclusion window must not be negative, got %d", domain.ErrInvalidRequest, p.ExclusionWindow)
	}
	if p.CatalogTimeout < 0 || p.StoreTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", domain.ErrInvalidRequest)
	}
	return nil
}

func (p Policy) IsRestDay(date time.Time) bool {
	weekday := domain.NormalizeDate(date).Weekday()
	for _, rest := range p.RestDays {
		if rest == weekday {
			return true
		}
	}
	return false
}
