// Package orchestrator drives one end-to-end run: resolve the universe,
// resolve configs, batch symbols, and for each symbol run
// ingest -> indicators -> scoring -> signals -> persistence, isolating
// per-symbol failures from the rest of the run (spec §4.7).
package orchestrator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hoangnph/vnquant/internal/apperr"
	"github.com/hoangnph/vnquant/internal/domain"
	"github.com/hoangnph/vnquant/internal/domain/indicators"
	"github.com/hoangnph/vnquant/internal/domain/scoring"
	"github.com/hoangnph/vnquant/internal/domain/signals"
	"github.com/hoangnph/vnquant/internal/ingest"
	"github.com/hoangnph/vnquant/internal/persistence"
	"github.com/hoangnph/vnquant/internal/settings"
	"github.com/hoangnph/vnquant/internal/telemetry"
)

// SymbolOutcome is the per-symbol result included in a Report.
type SymbolOutcome struct {
	Symbol      string
	Fetched     int
	Stored      int
	Signals     int
	Err         string
}

// Report summarizes one orchestrator run.
type Report struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	TargetEnd   time.Time
	Symbols     []SymbolOutcome
	Succeeded   int
	Failed      int
}

// Orchestrator wires together every collaborator one run needs.
type Orchestrator struct {
	Universe domain.UniverseProvider
	Ingest   *ingest.Engine

	Prices   persistence.PriceRepo
	Configs  persistence.ConfigRepo
	Analysis persistence.AnalysisPersister
	Runs     persistence.OrchestratorRunRepo

	Settings settings.Settings
	Metrics  *telemetry.Registry
	Log      zerolog.Logger

	Now func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Run executes one full pass over the active universe (spec §4.7).
func (o *Orchestrator) Run(ctx context.Context, targetEnd time.Time) (Report, error) {
	runID := uuid.New().String()
	started := o.now()
	report := Report{RunID: runID, StartedAt: started, TargetEnd: targetEnd}

	if o.Metrics != nil {
		o.Metrics.ActiveRun.Set(1)
		defer o.Metrics.ActiveRun.Set(0)
	}

	universe, err := o.Universe.ActiveSymbols(ctx)
	if err != nil {
		return report, apperr.New(apperr.KindConfigResolution, "", err)
	}

	indicatorCfg := domain.DefaultIndicatorConfig()
	indicatorRec, err := o.Configs.EnsureByHash(ctx, "default-indicator", domain.ConfigIndicator, indicatorCfg)
	if err != nil {
		return report, apperr.New(apperr.KindConfigResolution, "", err)
	}
	scoringCfg := scoring.DefaultConfig()
	scoringRec, err := o.Configs.EnsureByHash(ctx, "default-scoring", domain.ConfigScoring, scoringCfg)
	if err != nil {
		return report, apperr.New(apperr.KindConfigResolution, "", err)
	}
	analysisCfg := domain.AnalysisConfig{
		MinScoreThreshold:  o.Settings.Orchestrator.MinScoreThreshold,
		AnalysisWindowDays: o.Settings.Ingest.AnalysisWindowDays,
	}
	analysisRec, err := o.Configs.EnsureByHash(ctx, "default-analysis", domain.ConfigAnalysis, analysisCfg)
	if err != nil {
		return report, apperr.New(apperr.KindConfigResolution, "", err)
	}

	batchSize := o.Settings.Orchestrator.BatchSize
	if batchSize <= 0 {
		batchSize = 4
	}

	signalsEmitted := 0
	for batchStart := 0; batchStart < len(universe); batchStart += batchSize {
		batchEnd := batchStart + batchSize
		if batchEnd > len(universe) {
			batchEnd = len(universe)
		}
		batch := universe[batchStart:batchEnd]

		batchStartedAt := o.now()
		outcomes, err := o.runBatch(ctx, batch, targetEnd, indicatorCfg, indicatorRec, scoringRec, analysisRec)
		if err != nil {
			return report, err
		}
		if o.Metrics != nil {
			o.Metrics.BatchDuration.Observe(time.Since(batchStartedAt).Seconds())
		}

		for _, outcome := range outcomes {
			report.Symbols = append(report.Symbols, outcome)
			signalsEmitted += outcome.Signals
			if outcome.Err == "" {
				report.Succeeded++
			} else {
				report.Failed++
			}
		}

		if batchEnd < len(universe) && o.Settings.Orchestrator.InterBatchDelay > 0 {
			select {
			case <-ctx.Done():
				return report, apperr.New(apperr.KindCancelled, "", ctx.Err())
			case <-time.After(o.Settings.Orchestrator.InterBatchDelay):
			}
		}
	}

	report.FinishedAt = o.now()

	if o.Runs != nil {
		runErr := o.Runs.Insert(ctx, persistence.OrchestratorRunSummary{
			RunID: runID, StartedAt: report.StartedAt, FinishedAt: report.FinishedAt, TargetEnd: targetEnd,
			SymbolsTotal: len(report.Symbols), SymbolsSucceeded: report.Succeeded, SymbolsFailed: report.Failed,
			SignalsEmitted: signalsEmitted,
		})
		if runErr != nil {
			o.Log.Error().Err(runErr).Str("run_id", runID).Msg("failed to persist run summary")
		}
	}

	return report, nil
}

// runBatch processes one batch of symbols with bounded intra-batch
// concurrency (semaphore sized to the batch, via errgroup), each symbol's
// start staggered by InterSymbolDelay to respect upstream rate budgets —
// spec §4.7 step 3 permits this as an alternative to strict sequential
// processing "provided per-symbol transactions remain isolated," which
// holds here since each symbol only touches its own rows.
func (o *Orchestrator) runBatch(
	ctx context.Context, batch []domain.UniverseEntry, targetEnd time.Time,
	indicatorCfg domain.IndicatorConfig, indicatorRec, scoringRec, analysisRec domain.ConfigRecord,
) ([]SymbolOutcome, error) {
	outcomes := make([]SymbolOutcome, len(batch))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for idx, entry := range batch {
		idx, entry := idx, entry
		g.Go(func() error {
			if idx > 0 && o.Settings.Orchestrator.InterSymbolDelay > 0 {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-time.After(time.Duration(idx) * o.Settings.Orchestrator.InterSymbolDelay):
				}
			}
			outcome := o.runSymbol(gctx, entry.Symbol, targetEnd, indicatorCfg, indicatorRec, scoringRec, analysisRec)
			mu.Lock()
			outcomes[idx] = outcome
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, apperr.New(apperr.KindCancelled, "", err)
	}
	return outcomes, nil
}

// runSymbol ingests, analyzes, and persists one symbol, converting any
// error into a recorded SymbolOutcome rather than aborting the run (spec
// §4.7 "per-symbol failure isolation").
func (o *Orchestrator) runSymbol(
	ctx context.Context, symbol string, targetEnd time.Time,
	indicatorCfg domain.IndicatorConfig, indicatorRec, scoringRec, analysisRec domain.ConfigRecord,
) SymbolOutcome {
	outcome := SymbolOutcome{Symbol: symbol}
	log := o.Log.With().Str("symbol", symbol).Str("stage", "ingest").Logger()

	stageStart := time.Now()
	res, err := o.Ingest.Ingest(ctx, symbol, targetEnd)
	o.observeStage("ingest", time.Since(stageStart), err)
	if err != nil {
		log.Error().Err(err).Msg("ingest failed")
		outcome.Err = err.Error()
		o.recordFailure(symbol, err)
		return outcome
	}
	outcome.Fetched, outcome.Stored = res.Fetched, res.Stored
	if o.Metrics != nil && res.Stored > 0 {
		o.Metrics.BarsStored.WithLabelValues(symbol).Add(float64(res.Stored))
	}

	windowDays := o.Settings.Ingest.AnalysisWindowDays
	if windowDays <= 0 {
		windowDays = 180
	}
	from := targetEnd.AddDate(0, 0, -windowDays)

	stageStart = time.Now()
	bars, err := o.Prices.RangeQuery(ctx, symbol, from, targetEnd)
	o.observeStage("load", time.Since(stageStart), err)
	if err != nil {
		outcome.Err = err.Error()
		o.recordFailure(symbol, err)
		return outcome
	}
	if len(bars) == 0 {
		// No history yet for this symbol within the window: a success
		// with nothing further to analyze, not a failure.
		return outcome
	}

	frame, err := indicators.NewFrame(bars)
	if err != nil {
		outcome.Err = err.Error()
		o.recordFailure(symbol, err)
		return outcome
	}
	if err := indicators.Validate(frame, indicatorCfg); err != nil {
		// Not enough history to fill the longest window yet; treated as
		// a quiet success, matching spec §4.4's "insufficient history"
		// edge case.
		return outcome
	}

	stageStart = time.Now()
	frame, err = indicators.Compute(frame, indicatorCfg)
	o.observeStage("indicator", time.Since(stageStart), err)
	if err != nil {
		outcome.Err = err.Error()
		o.recordFailure(symbol, err)
		return outcome
	}

	calcSummary := persistence.IndicatorCalculationSummary{
		Symbol: symbol, CalculationDate: targetEnd, ConfigID: indicatorRec.ID,
		DataPoints: frame.Len(), StartDate: frame.Time[0], EndDate: frame.Time[frame.Len()-1],
		CalculationMillis: time.Since(stageStart).Milliseconds(),
	}

	stageStart = time.Now()
	sigEngine := signals.NewEngine()
	minScore := o.Settings.Orchestrator.MinScoreThreshold
	if minScore <= 0 {
		minScore = sigEngine.Scoring.Config.MinScoreThreshold
	}
	sigs := sigEngine.Generate(frame, symbol, minScore)
	o.observeStage("scoring", time.Since(stageStart), nil)
	outcome.Signals = len(sigs)

	summary := summarize(sigs)
	resultSummary := persistence.AnalysisResultSummary{
		Symbol: symbol, AnalysisDate: targetEnd,
		IndicatorConfigID: indicatorRec.ID,
		ScoringConfigID:   scoringRec.ID, AnalysisConfigID: analysisRec.ID,
		TotalSignals: summary.total, BuySignals: summary.buy, SellSignals: summary.sell, HoldSignals: summary.hold,
		AvgScore: summary.avg, MaxScore: summary.max, MinScore: summary.min,
	}

	rows := make([]persistence.SignalRow, len(sigs))
	for i, s := range sigs {
		triggered, _ := json.Marshal(s.TriggeredRules)
		ctxJSON, _ := json.Marshal(s.Context)
		rows[i] = persistence.SignalRow{
			Symbol:     symbol,
			SignalDate: s.Time, SignalTime: s.Time,
			Action: actionName(s.Action), Strength: strengthName(s.Strength), Score: s.Score,
			TriggeredRules: triggered, Context: ctxJSON,
		}
		if o.Metrics != nil {
			o.Metrics.SignalsEmitted.WithLabelValues(symbol, actionName(s.Action)).Inc()
		}
	}

	// The indicator calculation, analysis result, and every signal row
	// commit together as one transaction (spec §4.7 step 4): a failure
	// partway through must never leave an analysis result with zero
	// signal rows.
	if _, _, err := o.Analysis.PersistSymbolAnalysis(ctx, calcSummary, resultSummary, rows); err != nil {
		outcome.Err = err.Error()
		o.recordFailure(symbol, err)
		return outcome
	}

	return outcome
}

func (o *Orchestrator) observeStage(stage string, d time.Duration, err error) {
	if o.Metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	o.Metrics.StageDuration.WithLabelValues(stage, result).Observe(d.Seconds())
}

func (o *Orchestrator) recordFailure(symbol string, err error) {
	if o.Metrics == nil {
		return
	}
	kind := "unknown"
	var ae *apperr.Error
	if e, ok := err.(*apperr.Error); ok {
		ae = e
	}
	if ae != nil {
		kind = ae.Kind.String()
	}
	o.Metrics.SymbolFailures.WithLabelValues(symbol, kind).Inc()
}

type signalSummary struct {
	total, buy, sell, hold int
	avg, max, min          float64
}

func summarize(sigs []signals.TradingSignal) signalSummary {
	var s signalSummary
	if len(sigs) == 0 {
		return s
	}
	s.max = sigs[0].Score
	s.min = sigs[0].Score
	var sum float64
	for _, sig := range sigs {
		s.total++
		switch sig.Action {
		case scoring.ActionBuy:
			s.buy++
		case scoring.ActionSell:
			s.sell++
		default:
			s.hold++
		}
		sum += sig.Score
		if sig.Score > s.max {
			s.max = sig.Score
		}
		if sig.Score < s.min {
			s.min = sig.Score
		}
	}
	s.avg = sum / float64(s.total)
	return s
}

func actionName(a scoring.Action) string {
	switch a {
	case scoring.ActionBuy:
		return "BUY"
	case scoring.ActionSell:
		return "SELL"
	default:
		return "HOLD"
	}
}

func strengthName(s scoring.Strength) string {
	switch s {
	case scoring.StrengthVeryStrong:
		return "VERY_STRONG"
	case scoring.StrengthStrong:
		return "STRONG"
	case scoring.StrengthMedium:
		return "MEDIUM"
	default:
		return "WEAK"
	}
}
