package application

import (
	"testing"
	"time"

	"github.com/bnema/outreach-quota/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestDefaultPolicy(t *testing.T) {
	t.Parallel()

	policy := DefaultPolicy()
	assert.NoError(t, policy.Validate())
	assert.Equal(t, 35, policy.BaseQuota)
	assert.Equal(t, 30, policy.ExclusionWindow)
	assert.True(t, policy.IsRestDay(sunday))
	assert.True(t, policy.IsRestDay(sunday.Add(23*time.Hour)))
	assert.False(t, policy.IsRestDay(saturday))
}

func TestPolicyValidate(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, Policy{BaseQuota: 0}.Validate(), domain.ErrInvalidRequest)
	assert.ErrorIs(t, Policy{BaseQuota: 1, ExclusionWindow: -1}.Validate(), domain.ErrInvalidRequest)
	assert.ErrorIs(t, Policy{BaseQuota: 1, StoreTimeout: -time.Second}.Validate(), domain.ErrInvalidRequest)
	assert.False(t, Policy{BaseQuota: 1}.IsRestDay(sunday))
}
