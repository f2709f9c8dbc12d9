package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"opsdeck/internal/core/domain"
)

// IncentiveService computes daily incentive awards from per-user metric
// buckets and the venture's active rules. Commit is idempotent: recomputing a
// day replaces its awards instead of stacking them.
type IncentiveService struct {
	log           *slog.Logger
	rules         domain.IncentiveRepository
	metrics       domain.MetricRepository
	txManager     Transactor
	notifications *NotificationService
}

func NewIncentiveService(
	log *slog.Logger,
	rules domain.IncentiveRepository,
	metrics domain.MetricRepository,
	txManager Transactor,
	notifications *NotificationService,
) *IncentiveService {
	return &IncentiveService{
		log:           log,
		rules:         rules,
		metrics:       metrics,
		txManager:     txManager,
		notifications: notifications,
	}
}

// ParseDay validates YYYY-MM-DD and normalizes it to a UTC day key.
func ParseDay(dateStr string) (string, error) {
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return "", fmt.Errorf("%w: %q, expected YYYY-MM-DD", domain.ErrInvalidDay, dateStr)
	}
	return t.UTC().Format("2006-01-02"), nil
}

// computeAmount evaluates one rule against a user's metric bucket, in cents.
func computeAmount(rule domain.IncentiveRule, bucket map[string]float64) int64 {
	metricValue := bucket[rule.MetricKey]
	switch rule.CalcType {
	case domain.CalcPercentOfMetric, domain.CalcFlatPerUnit:
		// Rate is a decimal for percent rules (0.02 = 2%) and a cents-per-unit
		// amount for flat rules; both reduce to value * rate.
		return int64(math.Round(metricValue * rule.Rate))
	case domain.CalcBonusOnTarget:
		key := rule.ThresholdMetricKey
		if key == "" {
			key = rule.MetricKey
		}
		if bucket[key] >= rule.ThresholdValue {
			return rule.BonusAmountCents
		}
		return 0
	default:
		return 0
	}
}

// ComputeDay evaluates all active rules of a venture against the day's metric
// buckets without persisting anything.
func (s *IncentiveService) ComputeDay(ctx context.Context, ventureID int64, day string) ([]domain.IncentiveAward, error) {
	day, err := ParseDay(day)
	if err != nil {
		return nil, err
	}
	rules, err := s.rules.ListRules(ctx, ventureID)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, nil
	}
	buckets, err := s.metrics.MetricsForDay(ctx, ventureID, day)
	if err != nil {
		return nil, err
	}

	var awards []domain.IncentiveAward
	for userID, bucket := range buckets {
		for _, rule := range rules {
			if !rule.Active {
				continue
			}
			amount := computeAmount(rule, bucket)
			if amount == 0 {
				continue
			}
			awards = append(awards, domain.IncentiveAward{
				VentureID:   ventureID,
				UserID:      userID,
				RuleID:      rule.ID,
				Day:         day,
				AmountCents: amount,
			})
		}
	}
	sort.Slice(awards, func(i, j int) bool {
		if awards[i].UserID != awards[j].UserID {
			return awards[i].UserID < awards[j].UserID
		}
		return awards[i].RuleID < awards[j].RuleID
	})
	return awards, nil
}

// CommitDay recomputes and persists one day's awards inside a transaction,
// replacing any prior run, then notifies each awardee.
func (s *IncentiveService) CommitDay(ctx context.Context, user domain.SessionUser, ventureID int64, day string) ([]domain.IncentiveAward, error) {
	if !domain.IsManagerLike(user.Role) && !domain.IsLeadership(user.Role) {
		return nil, domain.ErrForbidden
	}
	if !domain.ScopeFor(user).CanAccessVenture(ventureID) {
		return nil, domain.ErrForbidden
	}
	awards, err := s.ComputeDay(ctx, ventureID, day)
	if err != nil {
		return nil, err
	}
	day, _ = ParseDay(day)
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return s.rules.ReplaceAwardsForDay(txCtx, ventureID, day, awards)
	}); err != nil {
		s.log.ErrorContext(ctx, "incentives - commit day - save failed", "venture_id", ventureID, "day", day, "err", err)
		return nil, err
	}
	s.log.InfoContext(ctx, "incentives - commit day - success", "venture_id", ventureID, "day", day, "awards", len(awards))

	totals := make(map[int64]int64)
	for _, a := range awards {
		totals[a.UserID] += a.AmountCents
	}
	for userID, cents := range totals {
		title := "Incentive payout computed"
		body := fmt.Sprintf("Your incentives for %s total $%.2f.", day, float64(cents)/100)
		if err := s.notifications.Notify(ctx, userID, "INCENTIVE_AWARD", title, body); err != nil {
			s.log.WarnContext(ctx, "incentives - commit day - notify failed", "user_id", userID, "err", err)
		}
	}
	return awards, nil
}

// AwardsForDay lists one venture's committed awards, gated the same way as
// CommitDay so read access never outruns write access.
func (s *IncentiveService) AwardsForDay(ctx context.Context, user domain.SessionUser, ventureID int64, day string) ([]domain.IncentiveAward, error) {
	if !domain.IsManagerLike(user.Role) && !domain.IsLeadership(user.Role) {
		return nil, domain.ErrForbidden
	}
	if !domain.ScopeFor(user).CanAccessVenture(ventureID) {
		return nil, domain.ErrForbidden
	}
	day, err := ParseDay(day)
	if err != nil {
		return nil, err
	}
	return s.rules.ListAwardsForDay(ctx, ventureID, day)
}

// MyAwards returns the caller's own awards in an inclusive day range.
func (s *IncentiveService) MyAwards(ctx context.Context, user domain.SessionUser, from, to string) ([]domain.IncentiveAward, error) {
	from, err := ParseDay(from)
	if err != nil {
		return nil, err
	}
	to, err = ParseDay(to)
	if err != nil {
		return nil, err
	}
	return s.rules.ListAwardsForUser(ctx, user.ID, from, to)
}
