package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"opsdeck/internal/core/domain"
)

type LoadRepo struct {
	db *sql.DB
}

func NewLoadRepo(db *sql.DB) *LoadRepo {
	return &LoadRepo{db: db}
}

const loadColumns = `
	id, venture_id, office_id, carrier_id, shipper_id, reference, status,
	pickup_city, pickup_state, drop_city, drop_state,
	revenue_cents, margin_cents, COALESCE(pickup_date, 'epoch'::timestamptz),
	created_by_id, created_at`

func (r *LoadRepo) ListLoads(ctx context.Context, scope domain.UserScope, f domain.LoadFilter) ([]domain.Load, int, error) {
	args := []any{}
	where := `WHERE TRUE` + ventureFilter(scope, "venture_id", &args)
	if f.VentureID > 0 {
		args = append(args, f.VentureID)
		where += fmt.Sprintf(" AND venture_id = $%d", len(args))
	}
	if f.OfficeID > 0 {
		args = append(args, f.OfficeID)
		where += fmt.Sprintf(" AND office_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		where += fmt.Sprintf(" AND (reference ILIKE $%d OR pickup_city ILIKE $%d OR drop_city ILIKE $%d)",
			len(args), len(args), len(args))
	}

	exec := GetExecutor(ctx, r.db)
	var total int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM loads `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)
	query := fmt.Sprintf(`SELECT %s FROM loads %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		loadColumns, where, len(args)-1, len(args))
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []domain.Load
	for rows.Next() {
		l, err := scanLoad(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *l)
	}
	return out, total, rows.Err()
}

func (r *LoadRepo) GetLoadByID(ctx context.Context, id int64) (*domain.Load, error) {
	exec := GetExecutor(ctx, r.db)
	row := exec.QueryRowContext(ctx, `SELECT `+loadColumns+` FROM loads WHERE id = $1`, id)
	l, err := scanLoad(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLoadNotFound
		}
		return nil, err
	}
	return l, nil
}

func (r *LoadRepo) CreateLoad(ctx context.Context, l *domain.Load) (int64, error) {
	query := `
		INSERT INTO loads (
			venture_id, office_id, carrier_id, shipper_id, reference, status,
			pickup_city, pickup_state, drop_city, drop_state,
			revenue_cents, margin_cents, pickup_date, created_by_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`
	exec := GetExecutor(ctx, r.db)
	var id int64
	err := exec.QueryRowContext(ctx, query,
		l.VentureID, l.OfficeID, l.CarrierID, l.ShipperID, l.Reference, string(l.Status),
		l.PickupCity, l.PickupState, l.DropCity, l.DropState,
		l.RevenueCents, l.MarginCents, l.PickupDate, l.CreatedByID,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *LoadRepo) UpdateLoad(ctx context.Context, l *domain.Load) error {
	query := `
		UPDATE loads SET
			carrier_id = $2, shipper_id = $3, reference = $4, status = $5,
			pickup_city = $6, pickup_state = $7, drop_city = $8, drop_state = $9,
			revenue_cents = $10, margin_cents = $11, pickup_date = $12
		WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query,
		l.ID, l.CarrierID, l.ShipperID, l.Reference, string(l.Status),
		l.PickupCity, l.PickupState, l.DropCity, l.DropState,
		l.RevenueCents, l.MarginCents, l.PickupDate)
	if err != nil {
		return err
	}
	return requireRow(result, domain.ErrLoadNotFound)
}

func (r *LoadRepo) ListLoadDates(ctx context.Context, shipperID int64) ([]int64, error) {
	query := `
		SELECT EXTRACT(EPOCH FROM created_at)::bigint
		FROM loads WHERE shipper_id = $1
		ORDER BY created_at ASC`
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, shipperID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

func (r *LoadRepo) LaneStats(ctx context.Context, ventureID int64) ([]domain.LaneStat, error) {
	query := `
		SELECT pickup_state, drop_state, COUNT(*),
		       COALESCE(AVG(margin_cents), 0),
		       COUNT(*) FILTER (WHERE status = 'LOST'),
		       COUNT(*) FILTER (WHERE status = 'DELIVERED')
		FROM loads
		WHERE venture_id = $1 AND pickup_state != '' AND drop_state != ''
		GROUP BY pickup_state, drop_state`
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, ventureID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.LaneStat
	for rows.Next() {
		var ls domain.LaneStat
		if err := rows.Scan(&ls.PickupState, &ls.DropState, &ls.Loads,
			&ls.AvgMarginCents, &ls.LostLoads, &ls.DeliveredLoads); err != nil {
			return nil, err
		}
		out = append(out, ls)
	}
	return out, rows.Err()
}

func (r *LoadRepo) CsrStats(ctx context.Context, ventureID int64) ([]domain.CsrStat, error) {
	query := `
		WITH base AS (
			SELECT * FROM loads WHERE venture_id = $1 AND created_by_id > 0
		), per_shipper AS (
			SELECT created_by_id, shipper_id, COUNT(*) AS n
			FROM base WHERE shipper_id > 0
			GROUP BY created_by_id, shipper_id
		), shipper_agg AS (
			SELECT created_by_id,
			       COUNT(*) AS shipper_count,
			       COUNT(*) FILTER (WHERE n >= 2) AS repeat_shippers
			FROM per_shipper GROUP BY created_by_id
		)
		SELECT b.created_by_id,
		       COALESCE(MAX(u.full_name), ''),
		       COUNT(*),
		       COUNT(*),
		       COUNT(*) FILTER (WHERE b.status IN ('BOOKED', 'COVERED', 'DELIVERED')),
		       COALESCE(AVG(b.margin_cents), 0),
		       COUNT(DISTINCT (b.pickup_state, b.drop_state)),
		       COALESCE(MAX(sa.repeat_shippers), 0),
		       COALESCE(MAX(sa.shipper_count), 0)
		FROM base b
		LEFT JOIN users u ON u.id = b.created_by_id
		LEFT JOIN shipper_agg sa ON sa.created_by_id = b.created_by_id
		GROUP BY b.created_by_id`
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, ventureID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.CsrStat
	for rows.Next() {
		var cs domain.CsrStat
		if err := rows.Scan(&cs.UserID, &cs.UserName, &cs.Loads, &cs.QuotedLoads,
			&cs.WonLoads, &cs.AvgMarginCents, &cs.LaneCount,
			&cs.RepeatShippers, &cs.ShipperCount); err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (r *LoadRepo) ShipperStats(ctx context.Context, ventureID int64) ([]domain.ShipperStat, error) {
	query := `
		SELECT shipper_id, COUNT(*),
		       COALESCE(AVG(margin_cents), 0),
		       COUNT(DISTINCT (pickup_state, drop_state)),
		       MIN(created_at), MAX(created_at)
		FROM loads
		WHERE venture_id = $1 AND shipper_id > 0
		GROUP BY shipper_id`
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, ventureID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ShipperStat
	for rows.Next() {
		var ss domain.ShipperStat
		if err := rows.Scan(&ss.ShipperID, &ss.Loads, &ss.AvgMarginCents,
			&ss.LaneCount, &ss.FirstLoadAt, &ss.LastLoadAt); err != nil {
			return nil, err
		}
		out = append(out, ss)
	}
	return out, rows.Err()
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanLoad(row scanner) (*domain.Load, error) {
	var l domain.Load
	var status string
	err := row.Scan(&l.ID, &l.VentureID, &l.OfficeID, &l.CarrierID, &l.ShipperID,
		&l.Reference, &status, &l.PickupCity, &l.PickupState, &l.DropCity, &l.DropState,
		&l.RevenueCents, &l.MarginCents, &l.PickupDate, &l.CreatedByID, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	l.Status = domain.LoadStatus(status)
	return &l, nil
}
