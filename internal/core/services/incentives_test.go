package services

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsdeck/internal/core/contracts"
	"opsdeck/internal/core/domain"
)

func TestParseDay(t *testing.T) {
	t.Parallel()
	got, err := ParseDay("2026-03-09")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-09", got)

	for _, bad := range []string{"", "03/09/2026", "2026-13-01", "2026-3-9", "yesterday"} {
		_, err := ParseDay(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidDay, "input %q", bad)
	}
}

func TestComputeAmountPercentOfMetric(t *testing.T) {
	t.Parallel()
	rule := domain.IncentiveRule{
		MetricKey: "margin_cents",
		CalcType:  domain.CalcPercentOfMetric,
		Rate:      0.02,
	}
	assert.Equal(t, int64(2000), computeAmount(rule, map[string]float64{"margin_cents": 100000}))
	assert.Equal(t, int64(0), computeAmount(rule, map[string]float64{}))
	// Rounds to the nearest cent.
	assert.Equal(t, int64(1), computeAmount(rule, map[string]float64{"margin_cents": 26}))
}

func TestComputeAmountFlatPerUnit(t *testing.T) {
	t.Parallel()
	rule := domain.IncentiveRule{
		MetricKey: "loads_covered",
		CalcType:  domain.CalcFlatPerUnit,
		Rate:      500,
	}
	assert.Equal(t, int64(2500), computeAmount(rule, map[string]float64{"loads_covered": 5}))
	assert.Equal(t, int64(0), computeAmount(rule, map[string]float64{"loads_covered": 0}))
}

func TestComputeAmountBonusOnTarget(t *testing.T) {
	t.Parallel()
	rule := domain.IncentiveRule{
		MetricKey:          "calls_made",
		CalcType:           domain.CalcBonusOnTarget,
		ThresholdMetricKey: "calls_made",
		ThresholdValue:     50,
		BonusAmountCents:   10000,
	}
	assert.Equal(t, int64(10000), computeAmount(rule, map[string]float64{"calls_made": 50}))
	assert.Equal(t, int64(10000), computeAmount(rule, map[string]float64{"calls_made": 80}))
	assert.Equal(t, int64(0), computeAmount(rule, map[string]float64{"calls_made": 49}))
}

func TestComputeAmountBonusFallsBackToMetricKey(t *testing.T) {
	t.Parallel()
	rule := domain.IncentiveRule{
		MetricKey:        "rooms_cleaned",
		CalcType:         domain.CalcBonusOnTarget,
		ThresholdValue:   20,
		BonusAmountCents: 5000,
	}
	assert.Equal(t, int64(5000), computeAmount(rule, map[string]float64{"rooms_cleaned": 25}))
}

func TestComputeAmountUnknownCalcType(t *testing.T) {
	t.Parallel()
	rule := domain.IncentiveRule{MetricKey: "x", CalcType: domain.CalcType("SOMETHING_ELSE"), Rate: 1}
	assert.Equal(t, int64(0), computeAmount(rule, map[string]float64{"x": 100}))
}

type passTx struct{}

func (passTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeIncentiveRepo struct {
	rules  map[int64][]domain.IncentiveRule
	awards map[string][]domain.IncentiveAward
}

func awardKey(ventureID int64, day string) string {
	return fmt.Sprintf("%d|%s", ventureID, day)
}

func (f *fakeIncentiveRepo) ListRules(_ context.Context, ventureID int64) ([]domain.IncentiveRule, error) {
	return f.rules[ventureID], nil
}

func (f *fakeIncentiveRepo) ReplaceAwardsForDay(_ context.Context, ventureID int64, day string, awards []domain.IncentiveAward) error {
	f.awards[awardKey(ventureID, day)] = append([]domain.IncentiveAward(nil), awards...)
	return nil
}

func (f *fakeIncentiveRepo) ListAwardsForDay(_ context.Context, ventureID int64, day string) ([]domain.IncentiveAward, error) {
	return f.awards[awardKey(ventureID, day)], nil
}

func (f *fakeIncentiveRepo) ListAwardsForUser(_ context.Context, userID int64, from, to string) ([]domain.IncentiveAward, error) {
	var out []domain.IncentiveAward
	for _, stored := range f.awards {
		for _, a := range stored {
			if a.UserID == userID && a.Day >= from && a.Day <= to {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

type fakeMetricRepo struct {
	buckets map[int64]map[int64]map[string]float64
}

func (f *fakeMetricRepo) MetricsForDay(_ context.Context, ventureID int64, _ string) (map[int64]map[string]float64, error) {
	return f.buckets[ventureID], nil
}

type fakeNotifRepo struct {
	domain.NotificationRepository
	created int
}

func (f *fakeNotifRepo) CreateNotification(_ context.Context, _ *domain.Notification) (int64, error) {
	f.created++
	return int64(f.created), nil
}

func (f *fakeNotifRepo) CountUnread(context.Context, int64) (int, error) {
	return f.created, nil
}

func newIncentiveFixture(t *testing.T) (*IncentiveService, *fakeIncentiveRepo) {
	t.Helper()
	repo := &fakeIncentiveRepo{
		rules: map[int64][]domain.IncentiveRule{
			1: {{ID: 10, VentureID: 1, MetricKey: "loads_covered", CalcType: domain.CalcFlatPerUnit, Rate: 500, Active: true}},
			2: {{ID: 20, VentureID: 2, MetricKey: "loads_covered", CalcType: domain.CalcFlatPerUnit, Rate: 250, Active: true}},
		},
		awards: make(map[string][]domain.IncentiveAward),
	}
	metrics := &fakeMetricRepo{buckets: map[int64]map[int64]map[string]float64{
		1: {101: {"loads_covered": 4}},
		2: {201: {"loads_covered": 2}},
	}}
	log := slog.New(slog.DiscardHandler)
	notifications := NewNotificationService(log, &fakeNotifRepo{}, contracts.NopNotifier{})
	return NewIncentiveService(log, repo, metrics, passTx{}, notifications), repo
}

func TestCommitDayLeavesOtherVenturesIntact(t *testing.T) {
	t.Parallel()
	svc, _ := newIncentiveFixture(t)
	ceo := domain.SessionUser{ID: 1, FullName: "Pat Admin", Role: domain.RoleCEO}

	first, err := svc.CommitDay(context.Background(), ceo, 1, "2026-08-01")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, int64(2000), first[0].AmountCents)

	_, err = svc.CommitDay(context.Background(), ceo, 2, "2026-08-01")
	require.NoError(t, err)

	kept, err := svc.AwardsForDay(context.Background(), ceo, 1, "2026-08-01")
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, int64(1), kept[0].VentureID)
	assert.Equal(t, int64(101), kept[0].UserID)

	other, err := svc.AwardsForDay(context.Background(), ceo, 2, "2026-08-01")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, int64(500), other[0].AmountCents)
}

func TestCommitDayRecommitReplacesNotStacks(t *testing.T) {
	t.Parallel()
	svc, _ := newIncentiveFixture(t)
	ceo := domain.SessionUser{ID: 1, Role: domain.RoleCEO}

	_, err := svc.CommitDay(context.Background(), ceo, 1, "2026-08-01")
	require.NoError(t, err)
	_, err = svc.CommitDay(context.Background(), ceo, 1, "2026-08-01")
	require.NoError(t, err)

	awards, err := svc.AwardsForDay(context.Background(), ceo, 1, "2026-08-01")
	require.NoError(t, err)
	assert.Len(t, awards, 1)
}

func TestAwardsForDayEnforcesVentureScope(t *testing.T) {
	t.Parallel()
	svc, _ := newIncentiveFixture(t)
	lead := domain.SessionUser{ID: 7, Role: domain.RoleTeamLead, VentureIDs: []int64{1}}

	_, err := svc.AwardsForDay(context.Background(), lead, 2, "2026-08-01")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.AwardsForDay(context.Background(), lead, 1, "2026-08-01")
	assert.NoError(t, err)

	csr := domain.SessionUser{ID: 8, Role: domain.RoleCSR, VentureIDs: []int64{1}}
	_, err = svc.AwardsForDay(context.Background(), csr, 1, "2026-08-01")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
