package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hoangnph/vnquant/internal/persistence"
)

// AnalysisPersister implements persistence.AnalysisPersister: one symbol's
// indicator calculation, analysis result, and signal rows are written in a
// single transaction so a failure midway never leaves an analysis result
// with zero signal rows (spec §4.7 step 4 "a single logical transaction").
type AnalysisPersister struct {
	DB *sqlx.DB
}

func (r *AnalysisPersister) PersistSymbolAnalysis(
	ctx context.Context, calc persistence.IndicatorCalculationSummary, result persistence.AnalysisResultSummary, rows []persistence.SignalRow,
) (int64, int64, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("postgres: begin analysis persist: %w", err)
	}
	defer tx.Rollback()

	var calcID int64
	err = tx.GetContext(ctx, &calcID, `
		INSERT INTO indicator_calculations
			(symbol, calculation_date, config_id, data_points, start_date, end_date, calculation_duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, calculation_date, config_id) DO UPDATE SET
			data_points = EXCLUDED.data_points, start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date, calculation_duration_ms = EXCLUDED.calculation_duration_ms
		RETURNING id`,
		calc.Symbol, calc.CalculationDate, calc.ConfigID, calc.DataPoints, calc.StartDate, calc.EndDate, calc.CalculationMillis)
	if err != nil {
		return 0, 0, fmt.Errorf("postgres: upsert indicator calculation: %w", err)
	}

	result.IndicatorCalculationID = calcID
	var resultID int64
	err = tx.GetContext(ctx, &resultID, `
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
		result.Symbol, result.AnalysisDate, result.IndicatorCalculationID, result.IndicatorConfigID, result.ScoringConfigID, result.AnalysisConfigID,
		result.TotalSignals, result.BuySignals, result.SellSignals, result.HoldSignals, result.AvgScore, result.MaxScore, result.MinScore)
	if err != nil {
		return 0, 0, fmt.Errorf("postgres: upsert analysis result: %w", err)
	}

	if len(rows) > 0 {
		stmt, err := tx.PreparexContext(ctx, `
			INSERT INTO signal_results
				(analysis_result_id, symbol, signal_date, signal_time, action, strength, score, description,
				 triggered_rules, context, indicators_at_signal)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`)
		if err != nil {
			return 0, 0, fmt.Errorf("postgres: prepare signal insert: %w", err)
		}
		defer stmt.Close()

		for _, s := range rows {
			s.AnalysisResultID = resultID
			if _, err := stmt.ExecContext(ctx, s.AnalysisResultID, s.Symbol, s.SignalDate, s.SignalTime,
				s.Action, s.Strength, s.Score, s.Description, s.TriggeredRules, s.Context, s.IndicatorsAtSignal); err != nil {
				return 0, 0, fmt.Errorf("postgres: insert signal for %s@%s: %w", s.Symbol, s.SignalTime, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("postgres: commit analysis persist: %w", err)
	}
	return calcID, resultID, nil
}
