package services

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"opsdeck/internal/core/domain"
)

// Churn heuristic tuning. Thresholds are derived per shipper from their
// observed load cadence, clamped to these bounds.
const (
	minLoadsForPattern = 3
	defaultAtRiskDays  = 14
	defaultChurnedDays = 30
	newShipperDays     = 30
	minAtRiskDays      = 7
	maxAtRiskDays      = 45
	minChurnedDays     = 14
	maxChurnedDays     = 90

	atRiskMultiplier  = 1.5
	churnedMultiplier = 3.0

	weightDaysOverdue      = 0.4
	weightVolumeDecline    = 0.3
	weightPatternDeviation = 0.2
	weightTenure           = 0.1
)

type ChurnStatus string

const (
	ChurnNew    ChurnStatus = "NEW"
	ChurnActive ChurnStatus = "ACTIVE"
	ChurnAtRisk ChurnStatus = "AT_RISK"
	ChurnGone   ChurnStatus = "CHURNED"
)

// ShipperMetrics captures one shipper's load cadence and churn risk.
type ShipperMetrics struct {
	TotalLoads        int
	FirstLoadAt       time.Time
	LastLoadAt        time.Time
	AvgLoadsPerMonth  float64
	LoadFrequencyDays float64
	ExpectedNextLoad  time.Time
	RiskScore         int
}

// CalculateShipperMetrics derives cadence and risk from a shipper's load
// timestamps (ascending). A shipper with no loads scores a neutral 50.
func CalculateShipperMetrics(loadDates []time.Time, now time.Time) ShipperMetrics {
	total := len(loadDates)
	if total == 0 {
		return ShipperMetrics{RiskScore: 50}
	}
	first := loadDates[0]
	last := loadDates[total-1]

	daysSinceFirst := math.Max(1, now.Sub(first).Hours()/24)
	monthsActive := daysSinceFirst / 30
	avgPerMonth := float64(total) / math.Max(1, monthsActive)

	freqDays := loadFrequencyDays(loadDates)
	expectedNext := last.Add(time.Duration(freqDays * 24 * float64(time.Hour)))

	recentCutoff := now.AddDate(0, 0, -60)
	recent := 0
	for _, d := range loadDates {
		if !d.Before(recentCutoff) {
			recent++
		}
	}

	score := churnRiskScore(riskInput{
		now:            now,
		firstLoadAt:    first,
		lastLoadAt:     last,
		totalLoads:     total,
		freqDays:       freqDays,
		expectedNext:   expectedNext,
		recentLoads:    recent,
		expectedRecent: avgPerMonth * 2,
	})

	return ShipperMetrics{
		TotalLoads:        total,
		FirstLoadAt:       first,
		LastLoadAt:        last,
		AvgLoadsPerMonth:  avgPerMonth,
		LoadFrequencyDays: freqDays,
		ExpectedNextLoad:  expectedNext,
		RiskScore:         score,
	}
}

// loadFrequencyDays estimates the typical gap between loads. With enough
// history it uses a 10% trimmed mean of the intervals so a single long gap
// does not skew the cadence.
func loadFrequencyDays(loadDates []time.Time) float64 {
	n := len(loadDates)
	switch {
	case n >= minLoadsForPattern:
		intervals := make([]float64, 0, n-1)
		for i := 1; i < n; i++ {
			intervals = append(intervals, loadDates[i].Sub(loadDates[i-1]).Hours()/24)
		}
		sorted := make([]float64, len(intervals))
		copy(sorted, intervals)
		sort.Float64s(sorted)
		trim := len(intervals) / 10
		trimmed := sorted[trim : len(sorted)-trim]
		if len(trimmed) == 0 {
			trimmed = sorted
		}
		return math.Max(1, mean(trimmed))
	case n == 2:
		interval := loadDates[1].Sub(loadDates[0]).Hours() / 24
		return math.Max(1, math.Min(interval, defaultChurnedDays))
	default:
		return defaultAtRiskDays
	}
}

type riskInput struct {
	now            time.Time
	firstLoadAt    time.Time
	lastLoadAt     time.Time
	totalLoads     int
	freqDays       float64
	expectedNext   time.Time
	recentLoads    int
	expectedRecent float64
}

func churnRiskScore(in riskInput) int {
	if in.lastLoadAt.IsZero() {
		return 80
	}
	daysSinceLast := math.Floor(in.now.Sub(in.lastLoadAt).Hours() / 24)

	var overdueScore float64
	if !in.expectedNext.IsZero() && in.now.After(in.expectedNext) {
		daysOverdue := math.Floor(in.now.Sub(in.expectedNext).Hours() / 24)
		expectedFreq := in.freqDays
		if expectedFreq <= 0 {
			expectedFreq = defaultAtRiskDays
		}
		overdueScore = math.Min(100, daysOverdue/expectedFreq*100)
	} else if daysSinceLast > defaultAtRiskDays {
		overdueScore = math.Min(100, (daysSinceLast-defaultAtRiskDays)/defaultAtRiskDays*100)
	}

	var volumeScore float64
	if in.expectedRecent > 0 && in.totalLoads >= minLoadsForPattern {
		ratio := float64(in.recentLoads) / in.expectedRecent
		switch {
		case ratio >= 1.0:
			volumeScore = 0
		case ratio >= 0.75:
			volumeScore = 15
		case ratio >= 0.5:
			volumeScore = 35
		case ratio >= 0.25:
			volumeScore = 60
		case in.recentLoads == 0:
			volumeScore = 100
		default:
			volumeScore = 80
		}
	} else if in.recentLoads == 0 && in.totalLoads > 0 {
		volumeScore = 70
	}

	var deviationScore float64
	if in.freqDays > 0 && !in.expectedNext.IsZero() && in.now.After(in.expectedNext) {
		daysOver := math.Floor(in.now.Sub(in.expectedNext).Hours() / 24)
		multiple := daysOver / in.freqDays
		switch {
		case multiple <= 0.5:
			deviationScore = 10
		case multiple <= 1:
			deviationScore = 30
		case multiple <= 2:
			deviationScore = 60
		default:
			deviationScore = math.Min(100, 60+multiple*10)
		}
	} else if daysSinceLast > defaultAtRiskDays {
		deviationScore = math.Min(100, daysSinceLast/defaultChurnedDays*50)
	}

	var tenureScore float64
	if !in.firstLoadAt.IsZero() {
		tenureMonths := in.now.Sub(in.firstLoadAt).Hours() / 24 / 30
		switch {
		case tenureMonths < 2:
			tenureScore = 25
		case tenureMonths < 6:
			tenureScore = 15
		case tenureMonths < 12:
			tenureScore = 5
		}
	} else {
		tenureScore = 40
	}

	weighted := overdueScore*weightDaysOverdue +
		volumeScore*weightVolumeDecline +
		deviationScore*weightPatternDeviation +
		tenureScore*weightTenure
	return int(math.Min(100, math.Max(0, math.Round(weighted))))
}

// DynamicThresholds scales the at-risk/churned day cutoffs by the shipper's
// own cadence; shippers without a reliable pattern fall back to defaults.
func DynamicThresholds(freqDays float64, totalLoads int) (atRiskDays, churnedDays int) {
	if freqDays <= 0 || totalLoads < minLoadsForPattern {
		return defaultAtRiskDays, defaultChurnedDays
	}
	atRiskDays = clampInt(int(math.Round(freqDays*atRiskMultiplier)), minAtRiskDays, maxAtRiskDays)
	churnedDays = clampInt(int(math.Round(freqDays*churnedMultiplier)), minChurnedDays, maxChurnedDays)
	if churnedDays <= atRiskDays {
		churnedDays = atRiskDays + 7
	}
	return atRiskDays, churnedDays
}

// ClassifyChurn buckets a shipper against its dynamic thresholds.
func ClassifyChurn(lastLoadAt, createdAt time.Time, freqDays float64, totalLoads int, now time.Time) ChurnStatus {
	daysSinceCreation := math.Floor(now.Sub(createdAt).Hours() / 24)
	if lastLoadAt.IsZero() {
		if daysSinceCreation <= newShipperDays {
			return ChurnNew
		}
		if daysSinceCreation > defaultChurnedDays {
			return ChurnGone
		}
		return ChurnAtRisk
	}
	daysSinceLast := math.Floor(now.Sub(lastLoadAt).Hours() / 24)
	atRisk, churned := DynamicThresholds(freqDays, totalLoads)
	switch {
	case daysSinceLast > float64(churned):
		return ChurnGone
	case daysSinceLast > float64(atRisk):
		return ChurnAtRisk
	default:
		return ChurnActive
	}
}

// RiskLevel buckets a 0-100 risk score.
func RiskLevel(score int) string {
	switch {
	case score >= 80:
		return "critical"
	case score >= 60:
		return "high"
	case score >= 40:
		return "medium"
	default:
		return "low"
	}
}

// LaneRisk scores one origin-destination lane by volume, margin, and loss
// behaviour. Higher means riskier.
type LaneRisk struct {
	LaneID    string   `json:"laneId"`
	Origin    string   `json:"origin"`
	Dest      string   `json:"destination"`
	Score     int      `json:"score"`
	RiskLevel string   `json:"riskLevel"`
	Loads     int      `json:"loads"`
	AvgMargin float64  `json:"avgMargin"`
	Signals   []string `json:"signals"`
}

func scoreLane(ls domain.LaneStat) LaneRisk {
	var score float64
	var signals []string

	switch {
	case ls.Loads < 3:
		score += 35
		signals = append(signals, "thin history")
	case ls.Loads < 10:
		score += 15
	}
	if ls.AvgMarginCents <= 0 {
		score += 35
		signals = append(signals, "negative margin")
	} else if ls.AvgMarginCents < 10000 {
		score += 20
		signals = append(signals, "low margin")
	}
	if ls.Loads > 0 {
		lossRate := float64(ls.LostLoads) / float64(ls.Loads)
		score += math.Min(30, lossRate*100)
		if lossRate >= 0.25 {
			signals = append(signals, "high loss rate")
		}
	}
	final := int(math.Min(100, math.Max(0, math.Round(score))))
	return LaneRisk{
		LaneID:    ls.PickupState + "-" + ls.DropState,
		Origin:    ls.PickupState,
		Dest:      ls.DropState,
		Score:     final,
		RiskLevel: RiskLevel(final),
		Loads:     ls.Loads,
		AvgMargin: ls.AvgMarginCents,
		Signals:   signals,
	}
}

// CsrPerformance blends win rate, margin, lane diversity, and repeat-shipper
// ratio into a 0-100 score.
type CsrPerformance struct {
	UserID     int64    `json:"userId"`
	Name       string   `json:"name"`
	Score      int      `json:"score"`
	Loads      int      `json:"loads"`
	AvgMargin  float64  `json:"avgMargin"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}

func scoreCsr(cs domain.CsrStat) CsrPerformance {
	var score float64
	var strengths, weaknesses []string

	winRate := 0.0
	if cs.QuotedLoads > 0 {
		winRate = float64(cs.WonLoads) / float64(cs.QuotedLoads)
	}
	score += math.Min(35, winRate*70)
	if winRate >= 0.5 {
		strengths = append(strengths, "strong win rate")
	} else if winRate < 0.2 && cs.QuotedLoads >= 5 {
		weaknesses = append(weaknesses, "low win rate")
	}

	switch {
	case cs.AvgMarginCents >= 30000:
		score += 30
		strengths = append(strengths, "high margin")
	case cs.AvgMarginCents >= 10000:
		score += 20
	case cs.AvgMarginCents > 0:
		score += 10
	default:
		weaknesses = append(weaknesses, "margin at or below zero")
	}

	score += math.Min(15, float64(cs.LaneCount)*3)
	if cs.LaneCount >= 5 {
		strengths = append(strengths, "diverse lanes")
	}

	repeatRatio := 0.0
	if cs.ShipperCount > 0 {
		repeatRatio = float64(cs.RepeatShippers) / float64(cs.ShipperCount)
	}
	score += math.Min(20, repeatRatio*40)
	if repeatRatio >= 0.5 {
		strengths = append(strengths, "repeat shippers")
	} else if repeatRatio < 0.2 && cs.ShipperCount >= 5 {
		weaknesses = append(weaknesses, "few repeat shippers")
	}

	return CsrPerformance{
		UserID:     cs.UserID,
		Name:       cs.UserName,
		Score:      int(math.Min(100, math.Max(0, math.Round(score)))),
		Loads:      cs.Loads,
		AvgMargin:  cs.AvgMarginCents,
		Strengths:  strengths,
		Weaknesses: weaknesses,
	}
}

// ShipperHealth is a shipper's intelligence-report row: low score means the
// relationship needs attention.
type ShipperHealth struct {
	ShipperID int64  `json:"shipperId"`
	Score     int    `json:"score"`
	RiskLevel string `json:"riskLevel"`
	Loads     int    `json:"loads"`
}

// Seasonality summarizes the monthly spread of a shipper's loads. A high
// coefficient of variation over monthly shares means demand is concentrated
// in particular months.
type Seasonality struct {
	Seasonal   bool         `json:"seasonal"`
	CV         float64      `json:"coefficientOfVariation"`
	PeakMonths []time.Month `json:"peakMonths"`
}

// DetectSeasonality flags a load history as seasonal when monthly shares vary
// strongly (CV >= 0.8) and names the months above 1.5x the mean share.
func DetectSeasonality(loadDates []time.Time) Seasonality {
	if len(loadDates) < 12 {
		return Seasonality{}
	}
	var counts [12]float64
	for _, d := range loadDates {
		counts[int(d.Month())-1]++
	}
	total := float64(len(loadDates))
	shares := make([]float64, 12)
	for i := range counts {
		shares[i] = counts[i] / total
	}
	m := mean(shares)
	var variance float64
	for _, s := range shares {
		variance += (s - m) * (s - m)
	}
	variance /= float64(len(shares))
	sd := math.Sqrt(variance)
	cv := 0.0
	if m > 0 {
		cv = sd / m
	}
	var peaks []time.Month
	for i, s := range shares {
		if s >= m*1.5 && counts[i] > 0 {
			peaks = append(peaks, time.Month(i+1))
		}
	}
	return Seasonality{Seasonal: cv >= 0.8, CV: cv, PeakMonths: peaks}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FreightIntelligence is the leadership report: riskiest lanes, CSR ranking,
// weakest shipper relationships.
type FreightIntelligence struct {
	LaneRisks      []LaneRisk       `json:"laneRisks"`
	CsrPerformance []CsrPerformance `json:"csrPerformance"`
	ShipperHealth  []ShipperHealth  `json:"shipperHealth"`
}

type IntelligenceService struct {
	log      *slog.Logger
	loadRepo domain.LoadRepository
}

func NewIntelligenceService(log *slog.Logger, loadRepo domain.LoadRepository) *IntelligenceService {
	return &IntelligenceService{log: log, loadRepo: loadRepo}
}

// Report assembles the freight intelligence view for one venture.
// Leadership only.
func (s *IntelligenceService) Report(ctx context.Context, user domain.SessionUser, ventureID int64) (*FreightIntelligence, error) {
	if !domain.IsLeadership(user.Role) {
		return nil, domain.ErrForbidden
	}
	if !domain.ScopeFor(user).CanAccessVenture(ventureID) {
		return nil, domain.ErrForbidden
	}

	lanes, err := s.loadRepo.LaneStats(ctx, ventureID)
	if err != nil {
		s.log.ErrorContext(ctx, "intelligence - report - lane stats failed", "venture_id", ventureID, "err", err)
		return nil, err
	}
	csrs, err := s.loadRepo.CsrStats(ctx, ventureID)
	if err != nil {
		s.log.ErrorContext(ctx, "intelligence - report - csr stats failed", "venture_id", ventureID, "err", err)
		return nil, err
	}
	shippers, err := s.loadRepo.ShipperStats(ctx, ventureID)
	if err != nil {
		s.log.ErrorContext(ctx, "intelligence - report - shipper stats failed", "venture_id", ventureID, "err", err)
		return nil, err
	}

	report := &FreightIntelligence{}
	for _, ls := range lanes {
		report.LaneRisks = append(report.LaneRisks, scoreLane(ls))
	}
	sort.Slice(report.LaneRisks, func(i, j int) bool {
		return report.LaneRisks[i].Score > report.LaneRisks[j].Score
	})
	if len(report.LaneRisks) > 50 {
		report.LaneRisks = report.LaneRisks[:50]
	}

	for _, cs := range csrs {
		report.CsrPerformance = append(report.CsrPerformance, scoreCsr(cs))
	}
	sort.Slice(report.CsrPerformance, func(i, j int) bool {
		return report.CsrPerformance[i].Score > report.CsrPerformance[j].Score
	})
	if len(report.CsrPerformance) > 30 {
		report.CsrPerformance = report.CsrPerformance[:30]
	}

	now := time.Now()
	for _, ss := range shippers {
		dates, err := s.loadRepo.ListLoadDates(ctx, ss.ShipperID)
		if err != nil {
			s.log.WarnContext(ctx, "intelligence - report - load dates failed", "shipper_id", ss.ShipperID, "err", err)
			continue
		}
		ts := make([]time.Time, len(dates))
		for i, d := range dates {
			ts[i] = time.Unix(d, 0)
		}
		m := CalculateShipperMetrics(ts, now)
		// Health inverts risk: healthy shippers score high.
		health := 100 - m.RiskScore
		report.ShipperHealth = append(report.ShipperHealth, ShipperHealth{
			ShipperID: ss.ShipperID,
			Score:     health,
			RiskLevel: RiskLevel(m.RiskScore),
			Loads:     ss.Loads,
		})
	}
	sort.Slice(report.ShipperHealth, func(i, j int) bool {
		return report.ShipperHealth[i].Score < report.ShipperHealth[j].Score
	})
	if len(report.ShipperHealth) > 50 {
		report.ShipperHealth = report.ShipperHealth[:50]
	}

	return report, nil
}

// ShipperSnapshot is the churn drill-down for one shipper.
type ShipperSnapshot struct {
	Metrics     ShipperMetrics `json:"metrics"`
	Status      ChurnStatus    `json:"status"`
	RiskLevel   string         `json:"riskLevel"`
	Seasonality Seasonality    `json:"seasonality"`
}

func (s *IntelligenceService) ShipperSnapshot(ctx context.Context, user domain.SessionUser, shipperID int64) (*ShipperSnapshot, error) {
	if !domain.IsManagerLike(user.Role) && !domain.IsLeadership(user.Role) {
		return nil, domain.ErrForbidden
	}
	dates, err := s.loadRepo.ListLoadDates(ctx, shipperID)
	if err != nil {
		return nil, err
	}
	ts := make([]time.Time, len(dates))
	for i, d := range dates {
		ts[i] = time.Unix(d, 0)
	}
	now := time.Now()
	m := CalculateShipperMetrics(ts, now)
	createdAt := now
	if len(ts) > 0 {
		createdAt = ts[0]
	}
	return &ShipperSnapshot{
		Metrics:     m,
		Status:      ClassifyChurn(m.LastLoadAt, createdAt, m.LoadFrequencyDays, m.TotalLoads, now),
		RiskLevel:   RiskLevel(m.RiskScore),
		Seasonality: DetectSeasonality(ts),
	}, nil
}
