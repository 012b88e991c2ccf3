package cashregister_test

import (
	"context"
	"testing"
	"time"

	"kasa-backend/internal/cashregister"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closeAt runs one open/close cycle ending at the given time.
func (f *fixture) closeAt(t *testing.T, at time.Time, counted string) {
	t.Helper()
	*f.clock = at.Add(-time.Hour)
	s := f.open(t, "100.00")
	*f.clock = at
	f.close(t, s.ID, counted)
}

func TestCashDifferenceReport_Daily(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Tuesday 2026-03-10
	day := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	f.closeAt(t, day.AddDate(0, 0, -9), "50.00") // outside the window
	f.closeAt(t, day.AddDate(0, 0, -1), "95.00")
	f.closeAt(t, day.AddDate(0, 0, -1).Add(2*time.Hour), "102.50")
	f.closeAt(t, day, "100.00")
	f.closeAt(t, day.Add(3*time.Hour), "99.99")

	report, err := f.svc.CashDifferenceReport(ctx, cashregister.ReportQuery{BranchID: &f.branch.ID})
	require.NoError(t, err)

	assert.Equal(t, cashregister.PeriodDaily, report.Period)
	assert.Equal(t, "2026-03-04", report.From)
	assert.Equal(t, "2026-03-10", report.To)
	require.Len(t, report.Buckets, 7)

	yesterday := report.Buckets[5]
	assert.Equal(t, "2026-03-09", yesterday.Label)
	assert.Equal(t, 2, yesterday.Sessions)
	assert.Equal(t, "-5.00", yesterday.Shortage.String())
	assert.Equal(t, "2.50", yesterday.Surplus.String())
	assert.Equal(t, "-2.50", yesterday.Net.String())

	today := report.Buckets[6]
	assert.Equal(t, 2, today.Sessions)
	assert.Equal(t, "-0.01", today.Net.String())

	assert.Equal(t, 0, report.Buckets[0].Sessions)
	assert.Equal(t, 4, report.Totals.Sessions)
	assert.Equal(t, "-5.01", report.Totals.Shortage.String())
	assert.Equal(t, "2.50", report.Totals.Surplus.String())
	assert.Equal(t, "-2.51", report.Totals.Net.String())

	other, err := f.svc.CashDifferenceReport(ctx, cashregister.ReportQuery{BranchID: &f.other.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, other.Totals.Sessions)
}

func TestCashDifferenceReport_WeeklyAndMonthly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.closeAt(t, time.Date(2026, 2, 27, 12, 0, 0, 0, time.UTC), "90.00")  // Friday, week of 02-23
	f.closeAt(t, time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC), "101.00")  // Monday
	f.closeAt(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), "100.50") // Tuesday, same week

	weekly, err := f.svc.CashDifferenceReport(ctx, cashregister.ReportQuery{Period: cashregister.PeriodWeekly, Count: 3})
	require.NoError(t, err)
	require.Len(t, weekly.Buckets, 3)
	assert.Equal(t, "2026-02-23", weekly.Buckets[0].Label)
	assert.Equal(t, "2026-03-02", weekly.Buckets[1].Label)
	assert.Equal(t, "2026-03-09", weekly.Buckets[2].Label)
	assert.Equal(t, 1, weekly.Buckets[0].Sessions)
	assert.Equal(t, 0, weekly.Buckets[1].Sessions)
	assert.Equal(t, 2, weekly.Buckets[2].Sessions)
	assert.Equal(t, "1.50", weekly.Buckets[2].Net.String())
	assert.Equal(t, "2026-03-15", weekly.To)

	monthly, err := f.svc.CashDifferenceReport(ctx, cashregister.ReportQuery{Period: cashregister.PeriodMonthly})
	require.NoError(t, err)
	require.Len(t, monthly.Buckets, 12)
	assert.Equal(t, "2025-04-01", monthly.Buckets[0].Label)
	feb, mar := monthly.Buckets[10], monthly.Buckets[11]
	assert.Equal(t, "2026-02-01", feb.Label)
	assert.Equal(t, "-10.00", feb.Net.String())
	assert.Equal(t, "2026-03-01", mar.Label)
	assert.Equal(t, "1.50", mar.Net.String())
	assert.Equal(t, "2026-03-31", monthly.To)
}

func TestCashDifferenceReport_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CashDifferenceReport(ctx, cashregister.ReportQuery{Period: "hourly"})
	require.ErrorIs(t, err, cashregister.ErrInvalidInput)

	_, err = f.svc.CashDifferenceReport(ctx, cashregister.ReportQuery{Count: -1})
	require.ErrorIs(t, err, cashregister.ErrInvalidInput)

	_, err = f.svc.CashDifferenceReport(ctx, cashregister.ReportQuery{Count: 367})
	require.ErrorIs(t, err, cashregister.ErrInvalidInput)
}
