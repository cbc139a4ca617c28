package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hoangnph/vnquant/internal/persistence"
)

// SignalRepo implements persistence.SignalRepo against signal_results
// (spec §6).
type SignalRepo struct {
	DB *sqlx.DB
}

func (r *SignalRepo) InsertBatch(ctx context.Context, rows []persistence.SignalRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin signal insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO signal_results
			(analysis_result_id, symbol, signal_date, signal_time, action, strength, score, description,
			 triggered_rules, context, indicators_at_signal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`)
	if err != nil {
		return fmt.Errorf("postgres: prepare signal insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range rows {
		if _, err := stmt.ExecContext(ctx, s.AnalysisResultID, s.Symbol, s.SignalDate, s.SignalTime,
			s.Action, s.Strength, s.Score, s.Description, s.TriggeredRules, s.Context, s.IndicatorsAtSignal); err != nil {
			return fmt.Errorf("postgres: insert signal for %s@%s: %w", s.Symbol, s.SignalTime, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit signal insert: %w", err)
	}
	return nil
}

// RetentionRepo implements persistence.RetentionRepo as an explicit,
// operator-triggered purge across stock_prices and foreign_trades (spec
// §3 "purged only via explicit retention operations").
type RetentionRepo struct {
	DB *sqlx.DB
}

func (r *RetentionRepo) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin retention purge: %w", err)
	}
	defer tx.Rollback()

	var total int64
	for _, table := range []string{"stock_prices", "foreign_trades"} {
		res, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE time < $1`, table), cutoff)
		if err != nil {
			return 0, fmt.Errorf("postgres: purge %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("postgres: commit retention purge: %w", err)
	}
	return total, nil
}
