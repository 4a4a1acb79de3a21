package recurring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"famledger/internal/core"
)

func TestWeeklyChecker_IsDue(t *testing.T) {
	checker := WeeklyChecker{}
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	startDate := core.NewDate(2024, 1, 1)

	tests := []struct {
		name    string
		lastRun time.Time
		want    bool
	}{
		{"never run - is due", time.Time{}, true},
		{"run 3 days ago - not due", time.Date(2024, 1, 12, 12, 0, 0, 0, time.UTC), false},
		{"run 7 days ago - is due", time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC), true},
		{"run 10 days ago - is due", time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checker.IsDue(tt.lastRun, now, startDate)
			if got != tt.want {
				t.Errorf("WeeklyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonthlyChecker_IsDue(t *testing.T) {
	checker := MonthlyChecker{}

	tests := []struct {
		name      string
		lastRun   time.Time
		now       time.Time
		startDate core.Date
		want      bool
	}{
		{
			name:      "never run - is due",
			now:       time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
			startDate: core.NewDate(2024, 1, 10),
			want:      true,
		},
		{
			name:      "run this month - not due",
			lastRun:   time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
			now:       time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
			startDate: core.NewDate(2024, 1, 10),
			want:      false,
		},
		{
			name:      "new month but before target day - not due",
			lastRun:   time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
			now:       time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC),
			startDate: core.NewDate(2024, 1, 15),
			want:      false,
		},
		{
			name:      "new month and on target day - is due",
			lastRun:   time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
			now:       time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC),
			startDate: core.NewDate(2024, 1, 15),
			want:      true,
		},
		{
			name:      "target day 31 in February - adjusts to 29",
			lastRun:   time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC),
			now:       time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC),
			startDate: core.NewDate(2024, 1, 31),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checker.IsDue(tt.lastRun, tt.now, tt.startDate)
			if got != tt.want {
				t.Errorf("MonthlyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestYearlyChecker_IsDue(t *testing.T) {
	checker := YearlyChecker{}

	tests := []struct {
		name      string
		lastRun   time.Time
		now       time.Time
		startDate core.Date
		want      bool
	}{
		{
			name:      "run this year - not due",
			lastRun:   time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
			now:       time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
			startDate: core.NewDate(2024, 3, 15),
			want:      false,
		},
		{
			name:      "new year before target month - not due",
			lastRun:   time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
			now:       time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC),
			startDate: core.NewDate(2024, 6, 15),
			want:      false,
		},
		{
			name:      "new year past target month - is due",
			lastRun:   time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
			now:       time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
			startDate: core.NewDate(2024, 3, 15),
			want:      true,
		},
		{
			name:      "new year same month before target day - not due",
			lastRun:   time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
			now:       time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC),
			startDate: core.NewDate(2024, 6, 15),
			want:      false,
		},
		{
			name:      "leap day template in a non-leap year - due on the 28th",
			lastRun:   time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC),
			now:       time.Date(2025, 2, 28, 12, 0, 0, 0, time.UTC),
			startDate: core.NewDate(2024, 2, 29),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checker.IsDue(tt.lastRun, tt.now, tt.startDate)
			if got != tt.want {
				t.Errorf("YearlyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckerFor(t *testing.T) {
	for _, f := range []core.Frequency{core.Weekly, core.Monthly, core.Yearly} {
		c, err := CheckerFor(f)
		require.NoError(t, err, f)
		assert.NotNil(t, c)
	}
	_, err := CheckerFor("biweekly")
	assert.Error(t, err)
}

func TestIsDue(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	tmpl := template()

	due, err := IsDue(tmpl, time.Time{}, now)
	require.NoError(t, err)
	assert.True(t, due)

	expired := tmpl
	expired.HasEndDate = true
	expired.EndDate = core.NewDate(2024, 1, 1)
	due, err = IsDue(expired, time.Time{}, now)
	require.NoError(t, err)
	assert.False(t, due, "expired templates never generate occurrences")

	future := tmpl
	future.Date = core.NewDate(2024, 4, 1)
	due, err = IsDue(future, time.Time{}, now)
	require.NoError(t, err)
	assert.False(t, due, "templates starting later are not due yet")

	broken := tmpl
	broken.Frequency = "fortnightly"
	_, err = IsDue(broken, time.Time{}, now)
	assert.Error(t, err)
}

func TestOccurrence(t *testing.T) {
	tmpl := template()
	at := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

	occ := Occurrence(tmpl, "occ-1", at)
	assert.Equal(t, "occ-1", occ.ID)
	assert.Equal(t, tmpl.ID, occ.TemplateID)
	assert.False(t, occ.IsRecurring)
	assert.True(t, occ.IsMaterialized())
	assert.Equal(t, core.StatusPending, occ.Status)
	assert.Equal(t, core.NewDate(2024, 3, 15), occ.Date)
	assert.Equal(t, tmpl.ChildID, occ.ChildID)
	assert.True(t, occ.Amount.Equal(tmpl.Amount))
}
