package postgres

import (
	"context"
	"database/sql"

	"opsdeck/internal/core/domain"
)

type IncentiveRepo struct {
	db *sql.DB
}

func NewIncentiveRepo(db *sql.DB) *IncentiveRepo {
	return &IncentiveRepo{db: db}
}

func (r *IncentiveRepo) ListRules(ctx context.Context, ventureID int64) ([]domain.IncentiveRule, error) {
	query := `
		SELECT id, venture_id, metric_key, calc_type, rate,
		       threshold_metric_key, threshold_value, bonus_amount_cents, active
		FROM incentive_rules WHERE venture_id = $1
		ORDER BY id`
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, ventureID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.IncentiveRule
	for rows.Next() {
		var rule domain.IncentiveRule
		var calcType string
		if err := rows.Scan(&rule.ID, &rule.VentureID, &rule.MetricKey, &calcType,
			&rule.Rate, &rule.ThresholdMetricKey, &rule.ThresholdValue,
			&rule.BonusAmountCents, &rule.Active); err != nil {
			return nil, err
		}
		rule.CalcType = domain.CalcType(calcType)
		out = append(out, rule)
	}
	return out, rows.Err()
}

// ReplaceAwardsForDay clears one venture's rows for the day and reinserts.
// The delete is venture-scoped so recommitting one venture never touches
// another venture's payouts. Callers wrap it in a transaction so a failed
// recompute never leaves a half-replaced day.
func (r *IncentiveRepo) ReplaceAwardsForDay(ctx context.Context, ventureID int64, day string, awards []domain.IncentiveAward) error {
	exec := GetExecutor(ctx, r.db)
	if _, err := exec.ExecContext(ctx,
		`DELETE FROM incentive_awards WHERE venture_id = $1 AND day = $2`, ventureID, day); err != nil {
		return err
	}
	query := `
		INSERT INTO incentive_awards (venture_id, user_id, rule_id, day, amount_cents)
		VALUES ($1, $2, $3, $4, $5)`
	for _, a := range awards {
		if _, err := exec.ExecContext(ctx, query, ventureID, a.UserID, a.RuleID, day, a.AmountCents); err != nil {
			return err
		}
	}
	return nil
}

func (r *IncentiveRepo) ListAwardsForDay(ctx context.Context, ventureID int64, day string) ([]domain.IncentiveAward, error) {
	query := `
		SELECT id, venture_id, user_id, rule_id, day, amount_cents, created_at
		FROM incentive_awards WHERE venture_id = $1 AND day = $2
		ORDER BY user_id, rule_id`
	return r.query(ctx, query, ventureID, day)
}

func (r *IncentiveRepo) ListAwardsForUser(ctx context.Context, userID int64, from, to string) ([]domain.IncentiveAward, error) {
	query := `
		SELECT id, venture_id, user_id, rule_id, day, amount_cents, created_at
		FROM incentive_awards
		WHERE user_id = $1 AND day >= $2 AND day <= $3
		ORDER BY day, rule_id`
	return r.query(ctx, query, userID, from, to)
}

func (r *IncentiveRepo) query(ctx context.Context, query string, args ...any) ([]domain.IncentiveAward, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.IncentiveAward
	for rows.Next() {
		var a domain.IncentiveAward
		if err := rows.Scan(&a.ID, &a.VentureID, &a.UserID, &a.RuleID, &a.Day, &a.AmountCents, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MetricRepo reads the per-user daily metric buckets the incentive engine
// consumes. Upstream jobs populate user_metrics_daily.
type MetricRepo struct {
	db *sql.DB
}

func NewMetricRepo(db *sql.DB) *MetricRepo {
	return &MetricRepo{db: db}
}

func (r *MetricRepo) MetricsForDay(ctx context.Context, ventureID int64, day string) (map[int64]map[string]float64, error) {
	query := `
		SELECT user_id, metric_key, value
		FROM user_metrics_daily
		WHERE venture_id = $1 AND day = $2`
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, ventureID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]map[string]float64)
	for rows.Next() {
		var userID int64
		var key string
		var value float64
		if err := rows.Scan(&userID, &key, &value); err != nil {
			return nil, err
		}
		bucket, ok := out[userID]
		if !ok {
			bucket = make(map[string]float64)
			out[userID] = bucket
		}
		bucket[key] = value
	}
	return out, rows.Err()
}
