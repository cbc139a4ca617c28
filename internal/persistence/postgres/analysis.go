package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hoangnph/vnquant/internal/persistence"
)

// IndicatorCalculationRepo implements persistence.IndicatorCalculationRepo
// against indicator_calculations (spec §6).
type IndicatorCalculationRepo struct {
	DB *sqlx.DB
}

func (r *IndicatorCalculationRepo) Upsert(ctx context.Context, s persistence.IndicatorCalculationSummary) (int64, error) {
	var id int64
	err := r.DB.GetContext(ctx, &id, `
		INSERT INTO indicator_calculations
			(symbol, calculation_date, config_id, data_points, start_date, end_date, calculation_duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, calculation_date, config_id) DO UPDATE SET
			data_points = EXCLUDED.data_points, start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date, calculation_duration_ms = EXCLUDED.calculation_duration_ms
		RETURNING id`,
		s.Symbol, s.CalculationDate, s.ConfigID, s.DataPoints, s.StartDate, s.EndDate, s.CalculationMillis)
	if err != nil {
		return 0, fmt.Errorf("postgres: upsert indicator calculation: %w", err)
	}
	return id, nil
}

// AnalysisResultRepo implements persistence.AnalysisResultRepo against
// analysis_results (spec §6).
type AnalysisResultRepo struct {
	DB *sqlx.DB
}

func (r *AnalysisResultRepo) Upsert(ctx context.Context, s persistence.AnalysisResultSummary) (int64, error) {
	var id int64
	err := r.DB.GetContext(ctx, &id, `
		INSERT INTO analysis_results
			(symbol, analysis_date, indicator_calculation_id, indicator_config_id, scoring_config_id, analysis_config_id,
			 total_signals, buy_signals, sell_signals, hold_signals, avg_score, max_score, min_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (symbol, analysis_date, indicator_config_id, scoring_config_id, analysis_config_id) DO UPDATE SET
			indicator_calculation_id = EXCLUDED.indicator_calculation_id,
			total_signals = EXCLUDED.total_signals, buy_signals = EXCLUDED.buy_signals,
			sell_signals = EXCLUDED.sell_signals, hold_signals = EXCLUDED.hold_signals,
			avg_score = EXCLUDED.avg_score, max_score = EXCLUDED.max_score, min_score = EXCLUDED.min_score
		RETURNING id`,
		s.Symbol, s.AnalysisDate, s.IndicatorCalculationID, s.IndicatorConfigID, s.ScoringConfigID, s.AnalysisConfigID,
		s.TotalSignals, s.BuySignals, s.SellSignals, s.HoldSignals, s.AvgScore, s.MaxScore, s.MinScore)
	if err != nil {
		return 0, fmt.Errorf("postgres: upsert analysis result: %w", err)
	}
	return id, nil
}
