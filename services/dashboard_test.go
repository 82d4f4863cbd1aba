package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newDashboardFixture(t *testing.T) (*DashboardService, *StreakService) {
	t.Helper()

	db := newTestDB(t)
	location, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		t.Fatalf("failed to load timezone: %v", err)
	}

	streaks := NewStreakService(db, location, FreezePolicyPreviewOnly, nil)
	dashboard := NewDashboardService(db, nil)
	return dashboard, streaks
}

func TestActivityOverviewCounts(t *testing.T) {
	dashboard, streaks := newDashboardFixture(t)
	ctx := context.Background()

	streaks.Now = fixedClock(2024, time.May, 1)
	_, err := streaks.RecordActivity(ctx, "user-1")
	assert.NoError(t, err)
	streaks.Now = fixedClock(2024, time.May, 2)
	_, err = streaks.RecordActivity(ctx, "user-1")
	assert.NoError(t, err)
	_, err = streaks.RecordActivity(ctx, "user-2")
	assert.NoError(t, err)

	dashboard.Now = fixedClock(2024, time.May, 2)
	overview, err := dashboard.GetActivityOverview(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), overview.ActiveToday)
	assert.Equal(t, int64(2), overview.TotalLearners)
	assert.Equal(t, int64(3), overview.TotalDays)
	assert.Equal(t, 1.5, overview.AverageStreak)
}

func TestActivityStatsDailyBuckets(t *testing.T) {
	dashboard, streaks := newDashboardFixture(t)
	ctx := context.Background()

	streaks.Now = fixedClock(2024, time.May, 1)
	_, err := streaks.RecordActivity(ctx, "user-1")
	assert.NoError(t, err)
	streaks.Now = fixedClock(2024, time.May, 2)
	_, err = streaks.RecordActivity(ctx, "user-1")
	assert.NoError(t, err)

	dashboard.Now = fixedClock(2024, time.May, 2)
	buckets, err := dashboard.GetActivityStatsByPeriod(ctx, "day")
	assert.NoError(t, err)
	assert.Len(t, buckets, 7)
	assert.Equal(t, "2024-05-02", buckets[6].Label)
	assert.Equal(t, int64(1), buckets[6].ActiveUsers)
	assert.Equal(t, "2024-05-01", buckets[5].Label)
	assert.Equal(t, int64(1), buckets[5].ActiveUsers)
	assert.Equal(t, int64(0), buckets[0].ActiveUsers)
}

func TestActivityStatsMonthlyAndYearly(t *testing.T) {
	dashboard, streaks := newDashboardFixture(t)
	ctx := context.Background()

	streaks.Now = fixedClock(2024, time.May, 1)
	_, err := streaks.RecordActivity(ctx, "user-1")
	assert.NoError(t, err)

	dashboard.Now = fixedClock(2024, time.May, 15)
	months, err := dashboard.GetActivityStatsByPeriod(ctx, "month")
	assert.NoError(t, err)
	assert.Len(t, months, 12)
	assert.Equal(t, "2024-05", months[11].Label)
	assert.Equal(t, int64(1), months[11].ActiveUsers)

	years, err := dashboard.GetActivityStatsByPeriod(ctx, "year")
	assert.NoError(t, err)
	assert.Len(t, years, 5)
	assert.Equal(t, "2024", years[4].Label)
	assert.Equal(t, int64(1), years[4].ActiveUsers)
}

func TestActivityStatsUnknownPeriod(t *testing.T) {
	dashboard, _ := newDashboardFixture(t)

	_, err := dashboard.GetActivityStatsByPeriod(context.Background(), "week")
	assert.Error(t, err)
}
