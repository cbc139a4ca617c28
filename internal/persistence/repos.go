// Package persistence declares the repository interfaces the ingestion,
// analysis, and orchestrator layers depend on (spec §6 "Persistence
// surface"). Concrete implementations live in ./postgres.
package persistence

import (
	"context"
	"time"

	"github.com/hoangnph/vnquant/internal/domain"
)

// WatermarkRepo persists the per-(symbol,source) ingestion watermark
// (spec §4.2).
type WatermarkRepo interface {
	GetOrCreate(ctx context.Context, symbol, source string, genesis time.Time) (domain.Watermark, error)
	Advance(ctx context.Context, w domain.Watermark) error
	Fail(ctx context.Context, w domain.Watermark) error
}

// PriceRepo upserts OHLCV bars keyed by (symbol, time) and answers the
// manual-backfill cross-check query (spec §4.3 step 3).
type PriceRepo interface {
	Upsert(ctx context.Context, bars []domain.Bar) (stored int, err error)
	LastTime(ctx context.Context, symbol string) (time.Time, bool, error)
	PurgeBefore(ctx context.Context, symbol string, cutoff time.Time) (int64, error)
	RangeQuery(ctx context.Context, symbol string, from, to time.Time) ([]domain.Bar, error)
}

// ForeignFlowRepo upserts foreign buy/sell aggregates keyed by
// (symbol, time).
type ForeignFlowRepo interface {
	Upsert(ctx context.Context, rows []domain.ForeignFlow) (stored int, err error)
}

// ConfigRepo stores versioned, content-hash-addressed configuration
// payloads (spec §4.7 step 2, invariant 7).
type ConfigRepo interface {
	EnsureByHash(ctx context.Context, name string, typ domain.ConfigType, payload any) (domain.ConfigRecord, error)
	Get(ctx context.Context, id int64) (domain.ConfigRecord, error)
}

// IndicatorCalculationSummary is the stored bookkeeping row for one
// symbol/date/config indicator run (spec §3 "Indicator calculation").
type IndicatorCalculationSummary struct {
	ID                 int64
	Symbol             string
	CalculationDate    time.Time
	ConfigID           int64
	DataPoints         int
	StartDate          time.Time
	EndDate            time.Time
	CalculationMillis  int64
}

// IndicatorCalculationRepo deduplicates by (symbol, calculation_date,
// config_id), overwriting on conflict (spec §8 invariant 8).
type IndicatorCalculationRepo interface {
	Upsert(ctx context.Context, s IndicatorCalculationSummary) (int64, error)
}

// AnalysisResultSummary is the per-symbol/date aggregate row (spec §3
// "Analysis result").
type AnalysisResultSummary struct {
	ID                    int64
	Symbol                string
	AnalysisDate          time.Time
	IndicatorCalculationID int64
	IndicatorConfigID     int64
	ScoringConfigID       int64
	AnalysisConfigID      int64
	TotalSignals          int
	BuySignals            int
	SellSignals           int
	HoldSignals           int
	AvgScore              float64
	MaxScore              float64
	MinScore              float64
}

// AnalysisResultRepo deduplicates by (symbol, analysis_date, all config
// ids) (spec §8 invariant 8).
type AnalysisResultRepo interface {
	Upsert(ctx context.Context, s AnalysisResultSummary) (int64, error)
}

// SignalRow is one persisted trading signal, belonging to an analysis
// result (spec §3 "Signal").
type SignalRow struct {
	ID               int64
	AnalysisResultID int64
	Symbol           string
	SignalDate       time.Time
	SignalTime       time.Time
	Action           string
	Strength         string
	Score            float64
	Description      string
	TriggeredRules   []byte // JSON
	Context          []byte // JSON
	IndicatorsAtSignal []byte // JSON
}

// SignalRepo persists individual signals under an analysis result.
type SignalRepo interface {
	InsertBatch(ctx context.Context, rows []SignalRow) error
}

// AnalysisPersister commits one symbol's indicator calculation, analysis
// result, and signal rows together as a single logical transaction (spec
// §4.7 step 4). rows' AnalysisResultID is set by the implementation from
// the analysis result row it just inserted, not by the caller — the two
// are only known once the insert inside the same transaction returns.
type AnalysisPersister interface {
	PersistSymbolAnalysis(ctx context.Context, calc IndicatorCalculationSummary, result AnalysisResultSummary, rows []SignalRow) (calcID, resultID int64, err error)
}

// OrchestratorRunSummary is one persisted run's aggregate outcome,
// supplementing spec §4.7 step 5 ("aggregate per-symbol outcomes into a
// report") with a row successive runs can be compared against.
type OrchestratorRunSummary struct {
	RunID            string
	StartedAt        time.Time
	FinishedAt       time.Time
	TargetEnd        time.Time
	SymbolsTotal     int
	SymbolsSucceeded int
	SymbolsFailed    int
	SignalsEmitted   int
}

// OrchestratorRunRepo persists one row per completed run.
type OrchestratorRunRepo interface {
	Insert(ctx context.Context, r OrchestratorRunSummary) error
}

// RetentionRepo implements explicit, operator-triggered retention
// operations (spec §3 "purged only via explicit retention operations").
type RetentionRepo interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (rowsDeleted int64, err error)
}
