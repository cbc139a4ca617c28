package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hoangnph/vnquant/internal/persistence"
)

// OrchestratorRunRepo implements persistence.OrchestratorRunRepo against
// orchestrator_runs (spec §4.7 step 5, supplemented per-run provenance).
type OrchestratorRunRepo struct {
	DB *sqlx.DB
}

// Insert records one completed run. A run ID collision (re-running the
// same in-memory Report after a transient write failure) overwrites the
// row rather than failing, keeping this idempotent.
func (r *OrchestratorRunRepo) Insert(ctx context.Context, s persistence.OrchestratorRunSummary) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO orchestrator_runs
			(run_id, started_at, finished_at, target_end, symbols_total, symbols_succeeded, symbols_failed, signals_emitted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			symbols_total = EXCLUDED.symbols_total,
			symbols_succeeded = EXCLUDED.symbols_succeeded,
			symbols_failed = EXCLUDED.symbols_failed,
			signals_emitted = EXCLUDED.signals_emitted`,
		s.RunID, s.StartedAt, s.FinishedAt, s.TargetEnd, s.SymbolsTotal, s.SymbolsSucceeded, s.SymbolsFailed, s.SignalsEmitted)
	if err != nil {
		return fmt.Errorf("postgres: insert orchestrator run: %w", err)
	}
	return nil
}
