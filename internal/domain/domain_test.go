package domain

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDateDropsClockAndZone(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+7", 7*60*60)
	in := time.Date(2026, 10, 19, 23, 45, 0, 0, loc)

	got := NormalizeDate(in)
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), got)
	assert.True(t, NormalizeDate(time.Time{}).IsZero())
}

func TestParseAndFormatDate(t *testing.T) {
	t.Parallel()

	parsed, err := ParseDate(" 2026-10-19 ")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19", FormatDate(parsed))

	_, err = ParseDate("19/10/2026")
	require.ErrorIs(t, err, ErrInvalidRequest)

	assert.Equal(t, "", FormatDate(time.Time{}))
}

func TestDayNumberIsConsecutive(t *testing.T) {
	t.Parallel()

	monday := time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, DayNumber(monday)+1, DayNumber(monday.AddDate(0, 0, 1)))
	assert.Equal(t, int64(0), DayNumber(time.Unix(0, 0).UTC()))
}

func TestParseWeekday(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    time.Weekday
		wantErr bool
	}{
		{raw: "sunday", want: time.Sunday},
		{raw: "Sun", want: time.Sunday},
		{raw: " SATURDAY ", want: time.Saturday},
		{raw: "fri", want: time.Friday},
		{raw: "someday", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.raw, func(t *testing.T) {
			t.Parallel()
			got, err := ParseWeekday(tc.raw)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAllocationKeyValidate(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	require.NoError(t, NewAllocationKey("A007", day).Validate())
	assert.ErrorIs(t, NewAllocationKey("  ", day).Validate(), ErrInvalidRequest)
	assert.ErrorIs(t, NewAllocationKey("A007", time.Time{}).Validate(), ErrInvalidRequest)
	assert.Equal(t, "A007@2026-10-19", NewAllocationKey(" A007 ", day.Add(5*time.Hour)).String())
}

func TestDailyAllocationClampRemaining(t *testing.T) {
	t.Parallel()

	alloc := DailyAllocation{TotalQuota: 35}

	assert.Equal(t, 0, alloc.ClampRemaining(-4))
	assert.Equal(t, 12, alloc.ClampRemaining(12))
	assert.Equal(t, 35, alloc.ClampRemaining(90))
}

func TestDailyAllocationValidate(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	base := DailyAllocation{
		AgentID:        "A007",
		Date:           day,
		Accounts:       []Account{{ID: "c1", AgentID: "A007"}},
		TotalQuota:     2,
		RemainingQuota: 1,
		PoolStatus:     PoolStatusShort,
	}

	tests := []struct {
		name    string
		mutate  func(*DailyAllocation)
		wantErr string
	}{
		{name: "valid", mutate: func(*DailyAllocation) {}},
		{name: "missing agent", mutate: func(a *DailyAllocation) { a.AgentID = "" }, wantErr: "agent id is required"},
		{name: "remaining above total", mutate: func(a *DailyAllocation) { a.RemainingQuota = 3 }, wantErr: "outside [0, 2]"},
		{name: "negative remaining", mutate: func(a *DailyAllocation) { a.RemainingQuota = -1 }, wantErr: "outside [0, 2]"},
		{name: "too many accounts", mutate: func(a *DailyAllocation) {
			a.Accounts = []Account{{ID: "1"}, {ID: "2"}, {ID: "3"}}
		}, wantErr: "exceed total quota"},
		{name: "unknown status", mutate: func(a *DailyAllocation) { a.PoolStatus = "weird" }, wantErr: "unknown pool status"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			alloc := base.Clone()
			tc.mutate(&alloc)
			err := alloc.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestDailyAllocationCloneIsIndependent(t *testing.T) {
	t.Parallel()

	original := DailyAllocation{Accounts: []Account{{ID: "c1", Name: "Acme"}}}
	clone := original.Clone()
	clone.Accounts[0].Name = "Changed"

	assert.Equal(t, "Acme", original.Accounts[0].Name)
	assert.Equal(t, []Account{}, CloneAccounts(nil))
}

func TestAddressString(t *testing.T) {
	t.Parallel()

	addr := Address{Street: "1 Main St", City: "Springfield", Country: " US "}
	assert.Equal(t, "1 Main St, Springfield, US", addr.String())
	assert.Equal(t, "", Address{}.String())
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, IsRetryable(fmt.Errorf("list: %w", ErrCatalogUnavailable)))
	assert.True(t, IsRetryable(fmt.Errorf("insert: %w", ErrStoreUnavailable)))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.False(t, IsRetryable(ErrAllocationNotFound))
	assert.False(t, IsRetryable(nil))
}
