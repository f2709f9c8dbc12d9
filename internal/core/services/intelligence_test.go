package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsdeck/internal/core/domain"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return v
}

// weeklyLoads builds an ascending history with a fixed gap, ending at end.
func weeklyLoads(end time.Time, n int, gapDays int) []time.Time {
	dates := make([]time.Time, n)
	for i := 0; i < n; i++ {
		dates[n-1-i] = end.AddDate(0, 0, -i*gapDays)
	}
	return dates
}

func TestCalculateShipperMetricsEmptyHistory(t *testing.T) {
	t.Parallel()
	m := CalculateShipperMetrics(nil, time.Now())
	assert.Equal(t, 0, m.TotalLoads)
	assert.Equal(t, 50, m.RiskScore)
}

func TestCalculateShipperMetricsSteadyCadence(t *testing.T) {
	t.Parallel()
	now := day(t, "2026-06-01")
	dates := weeklyLoads(now.AddDate(0, 0, -3), 20, 7)

	m := CalculateShipperMetrics(dates, now)
	assert.Equal(t, 20, m.TotalLoads)
	assert.InDelta(t, 7, m.LoadFrequencyDays, 0.5)
	assert.Equal(t, dates[19], m.LastLoadAt)
	// Still inside the expected window: low risk.
	assert.Less(t, m.RiskScore, 40)
}

func TestCalculateShipperMetricsOverdueShipperScoresHigh(t *testing.T) {
	t.Parallel()
	now := day(t, "2026-06-01")
	// Weekly shipper that went silent for 60 days.
	dates := weeklyLoads(now.AddDate(0, 0, -60), 20, 7)

	m := CalculateShipperMetrics(dates, now)
	assert.GreaterOrEqual(t, m.RiskScore, 60)
}

func TestLoadFrequencyTrimmedMeanIgnoresOutlierGap(t *testing.T) {
	t.Parallel()
	end := day(t, "2026-06-01")
	dates := weeklyLoads(end, 30, 7)
	// Inject a single 90-day gap at the front.
	dates[0] = dates[1].AddDate(0, 0, -90)

	freq := loadFrequencyDays(dates)
	assert.InDelta(t, 7, freq, 1.5)
}

func TestLoadFrequencyTwoLoadsCapped(t *testing.T) {
	t.Parallel()
	a := day(t, "2026-01-01")
	b := a.AddDate(0, 0, 120)
	assert.Equal(t, float64(defaultChurnedDays), loadFrequencyDays([]time.Time{a, b}))
}

func TestDynamicThresholdsScaleWithCadence(t *testing.T) {
	t.Parallel()
	atRisk, churned := DynamicThresholds(10, 5)
	assert.Equal(t, 15, atRisk)
	assert.Equal(t, 30, churned)

	// Clamped at the bounds.
	atRisk, churned = DynamicThresholds(2, 5)
	assert.Equal(t, minAtRiskDays, atRisk)
	assert.Equal(t, minChurnedDays, churned)

	atRisk, churned = DynamicThresholds(60, 5)
	assert.Equal(t, maxAtRiskDays, atRisk)
	assert.Equal(t, maxChurnedDays, churned)

	// Thin history falls back to defaults.
	atRisk, churned = DynamicThresholds(10, 2)
	assert.Equal(t, defaultAtRiskDays, atRisk)
	assert.Equal(t, defaultChurnedDays, churned)
}

func TestClassifyChurn(t *testing.T) {
	t.Parallel()
	now := day(t, "2026-06-01")

	// Never loaded, recently created.
	assert.Equal(t, ChurnNew, ClassifyChurn(time.Time{}, now.AddDate(0, 0, -10), 0, 0, now))
	// Never loaded, old account.
	assert.Equal(t, ChurnGone, ClassifyChurn(time.Time{}, now.AddDate(0, 0, -90), 0, 0, now))

	created := now.AddDate(-1, 0, 0)
	// Weekly cadence: at-risk threshold rounds to 11 days, churned to 21.
	assert.Equal(t, ChurnActive, ClassifyChurn(now.AddDate(0, 0, -5), created, 7, 10, now))
	assert.Equal(t, ChurnAtRisk, ClassifyChurn(now.AddDate(0, 0, -15), created, 7, 10, now))
	assert.Equal(t, ChurnGone, ClassifyChurn(now.AddDate(0, 0, -40), created, 7, 10, now))
}

func TestRiskLevelBuckets(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "low", RiskLevel(0))
	assert.Equal(t, "low", RiskLevel(39))
	assert.Equal(t, "medium", RiskLevel(40))
	assert.Equal(t, "high", RiskLevel(60))
	assert.Equal(t, "critical", RiskLevel(80))
	assert.Equal(t, "critical", RiskLevel(100))
}

func TestScoreLaneFlagsThinNegativeMarginLanes(t *testing.T) {
	t.Parallel()
	lr := scoreLane(domain.LaneStat{
		PickupState:    "TX",
		DropState:      "CA",
		Loads:          2,
		AvgMarginCents: -500,
	})
	assert.Equal(t, "TX-CA", lr.LaneID)
	assert.GreaterOrEqual(t, lr.Score, 70)
	assert.Contains(t, lr.Signals, "thin history")
	assert.Contains(t, lr.Signals, "negative margin")
}

func TestScoreLaneHealthyLaneScoresLow(t *testing.T) {
	t.Parallel()
	lr := scoreLane(domain.LaneStat{
		PickupState:    "IL",
		DropState:      "OH",
		Loads:          40,
		AvgMarginCents: 45000,
		LostLoads:      2,
	})
	assert.Less(t, lr.Score, 40)
	assert.Equal(t, "low", lr.RiskLevel)
}

func TestScoreCsrStrongPerformer(t *testing.T) {
	t.Parallel()
	cp := scoreCsr(domain.CsrStat{
		UserID:         7,
		UserName:       "Dana",
		Loads:          120,
		QuotedLoads:    100,
		WonLoads:       60,
		AvgMarginCents: 35000,
		LaneCount:      8,
		RepeatShippers: 6,
		ShipperCount:   10,
	})
	assert.GreaterOrEqual(t, cp.Score, 80)
	assert.Contains(t, cp.Strengths, "strong win rate")
	assert.Contains(t, cp.Strengths, "high margin")
	assert.Contains(t, cp.Strengths, "diverse lanes")
	assert.Empty(t, cp.Weaknesses)
}

func TestScoreCsrWeakPerformer(t *testing.T) {
	t.Parallel()
	cp := scoreCsr(domain.CsrStat{
		UserID:         8,
		QuotedLoads:    20,
		WonLoads:       2,
		AvgMarginCents: -100,
		LaneCount:      1,
		RepeatShippers: 0,
		ShipperCount:   6,
	})
	assert.Less(t, cp.Score, 30)
	assert.Contains(t, cp.Weaknesses, "low win rate")
	assert.Contains(t, cp.Weaknesses, "margin at or below zero")
	assert.Contains(t, cp.Weaknesses, "few repeat shippers")
}

func TestDetectSeasonalityNeedsHistory(t *testing.T) {
	t.Parallel()
	s := DetectSeasonality(weeklyLoads(day(t, "2026-06-01"), 11, 7))
	assert.False(t, s.Seasonal)
}

func TestDetectSeasonalityConcentratedMonths(t *testing.T) {
	t.Parallel()
	// All loads land in June and July across two years.
	var dates []time.Time
	for year := 2024; year <= 2025; year++ {
		for d := 1; d <= 10; d++ {
			dates = append(dates, time.Date(year, time.June, d, 0, 0, 0, 0, time.UTC))
			dates = append(dates, time.Date(year, time.July, d, 0, 0, 0, 0, time.UTC))
		}
	}
	s := DetectSeasonality(dates)
	assert.True(t, s.Seasonal)
	assert.Contains(t, s.PeakMonths, time.June)
	assert.Contains(t, s.PeakMonths, time.July)
	assert.NotContains(t, s.PeakMonths, time.January)
}

func TestDetectSeasonalityEvenSpread(t *testing.T) {
	t.Parallel()
	var dates []time.Time
	for m := time.January; m <= time.December; m++ {
		for d := 1; d <= 3; d++ {
			dates = append(dates, time.Date(2025, m, d, 0, 0, 0, 0, time.UTC))
		}
	}
	s := DetectSeasonality(dates)
	assert.False(t, s.Seasonal)
	assert.Empty(t, s.PeakMonths)
}
