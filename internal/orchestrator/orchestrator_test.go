package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoangnph/vnquant/internal/apperr"
	"github.com/hoangnph/vnquant/internal/domain"
	"github.com/hoangnph/vnquant/internal/ingest"
	"github.com/hoangnph/vnquant/internal/net/circuit"
	"github.com/hoangnph/vnquant/internal/persistence"
	"github.com/hoangnph/vnquant/internal/settings"
)

// --- fakes -----------------------------------------------------------------

type fakeUniverse struct{ entries []domain.UniverseEntry }

func (f fakeUniverse) ActiveSymbols(ctx context.Context) ([]domain.UniverseEntry, error) {
	return f.entries, nil
}

type fakeConfigRepo struct {
	byHash map[string]domain.ConfigRecord
	nextID int64
}

func newFakeConfigRepo() *fakeConfigRepo {
	return &fakeConfigRepo{byHash: make(map[string]domain.ConfigRecord)}
}

func (r *fakeConfigRepo) EnsureByHash(ctx context.Context, name string, typ domain.ConfigType, payload any) (domain.ConfigRecord, error) {
	hash, err := domain.ContentHash(payload)
	if err != nil {
		return domain.ConfigRecord{}, err
	}
	if rec, ok := r.byHash[hash]; ok {
		return rec, nil
	}
	r.nextID++
	rec := domain.ConfigRecord{ID: r.nextID, Name: name, Type: typ, ContentHash: hash, IsActive: true}
	r.byHash[hash] = rec
	return rec, nil
}

func (r *fakeConfigRepo) Get(ctx context.Context, id int64) (domain.ConfigRecord, error) {
	for _, rec := range r.byHash {
		if rec.ID == id {
			return rec, nil
		}
	}
	return domain.ConfigRecord{}, errors.New("not found")
}

type fakeDatedPriceRepo struct {
	bars map[string][]domain.Bar
}

func (p *fakeDatedPriceRepo) Upsert(ctx context.Context, bars []domain.Bar) (int, error) {
	return len(bars), nil
}
func (p *fakeDatedPriceRepo) LastTime(ctx context.Context, symbol string) (time.Time, bool, error) {
	bars := p.bars[symbol]
	if len(bars) == 0 {
		return time.Time{}, false, nil
	}
	return bars[len(bars)-1].Time, true, nil
}
func (p *fakeDatedPriceRepo) PurgeBefore(ctx context.Context, symbol string, cutoff time.Time) (int64, error) {
	return 0, nil
}
func (p *fakeDatedPriceRepo) RangeQuery(ctx context.Context, symbol string, from, to time.Time) ([]domain.Bar, error) {
	var out []domain.Bar
	for _, b := range p.bars[symbol] {
		if !b.Time.Before(from) && !b.Time.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

type chanMutex chan struct{}

// fakeAnalysisPersister implements persistence.AnalysisPersister, standing
// in for the single-transaction Postgres implementation: one call commits
// the calculation, result, and every signal row together, mirroring the
// real repo's all-or-nothing semantics (spec §4.7 step 4).
type fakeAnalysisPersister struct {
	mu      chanMutex
	calcN   int64
	resultN int64
	rows    []persistence.SignalRow
}

func newFakeAnalysisPersister() *fakeAnalysisPersister {
	return &fakeAnalysisPersister{mu: make(chanMutex, 1)}
}

func (r *fakeAnalysisPersister) PersistSymbolAnalysis(
	ctx context.Context, calc persistence.IndicatorCalculationSummary, result persistence.AnalysisResultSummary, rows []persistence.SignalRow,
) (int64, int64, error) {
	r.mu <- struct{}{}
	defer func() { <-r.mu }()
	r.calcN++
	r.resultN++
	for _, row := range rows {
		row.AnalysisResultID = r.resultN
		r.rows = append(r.rows, row)
	}
	return r.calcN, r.resultN, nil
}

func (r *fakeAnalysisPersister) count() int {
	r.mu <- struct{}{}
	defer func() { <-r.mu }()
	return len(r.rows)
}

type fakeRunRepo struct{ last *persistence.OrchestratorRunSummary }

func (r *fakeRunRepo) Insert(ctx context.Context, s persistence.OrchestratorRunSummary) error {
	cp := s
	r.last = &cp
	return nil
}

// failingIngestMDP fails deterministically for one symbol and succeeds
// for all others, exercising per-symbol failure isolation (spec §4.7).
type failingIngestMDP struct {
	failSymbol string
	bars       map[string][]domain.Bar
}

func (m *failingIngestMDP) FetchDaily(ctx context.Context, symbol string, from, to time.Time) (domain.FetchResult, error) {
	if symbol == m.failSymbol {
		return domain.FetchResult{}, errors.New("upstream refused")
	}
	var out []domain.Bar
	for _, b := range m.bars[symbol] {
		if !b.Time.Before(from) && !b.Time.After(to) {
			out = append(out, b)
		}
	}
	return domain.FetchResult{Bars: out}, nil
}

type noopWatermarkRepo struct {
	mu  chanMutex
	rec map[string]domain.Watermark
}

func newNoopWatermarkRepo() *noopWatermarkRepo {
	return &noopWatermarkRepo{mu: make(chanMutex, 1), rec: make(map[string]domain.Watermark)}
}

func (w *noopWatermarkRepo) key(symbol, source string) string { return symbol + "|" + source }

func (w *noopWatermarkRepo) GetOrCreate(ctx context.Context, symbol, source string, genesis time.Time) (domain.Watermark, error) {
	w.mu <- struct{}{}
	defer func() { <-w.mu }()
	k := w.key(symbol, source)
	if rec, ok := w.rec[k]; ok {
		return rec, nil
	}
	rec := domain.Watermark{Symbol: symbol, Source: domain.Source(source), LastUpdatedDate: genesis, Status: domain.StatusPending}
	w.rec[k] = rec
	return rec, nil
}
func (w *noopWatermarkRepo) Advance(ctx context.Context, rec domain.Watermark) error {
	w.mu <- struct{}{}
	defer func() { <-w.mu }()
	w.rec[w.key(rec.Symbol, string(rec.Source))] = rec
	return nil
}
func (w *noopWatermarkRepo) Fail(ctx context.Context, rec domain.Watermark) error {
	w.mu <- struct{}{}
	defer func() { <-w.mu }()
	w.rec[w.key(rec.Symbol, string(rec.Source))] = rec
	return nil
}

type noopForeignRepo struct{}

func (noopForeignRepo) Upsert(ctx context.Context, rows []domain.ForeignFlow) (int, error) {
	return 0, nil
}

// --- helpers -----------------------------------------------------------

func bars(symbol string, n int, base time.Time) []domain.Bar {
	out := make([]domain.Bar, n)
	price := 50.0
	for i := 0; i < n; i++ {
		out[i] = domain.Bar{
			Symbol: symbol, Time: base.AddDate(0, 0, i),
			Open: price, High: price + 0.4, Low: price - 0.4, Close: price,
			Volume: 10000,
		}
		price += 0.3
	}
	return out
}

func buildOrchestrator(t *testing.T, priceData map[string][]domain.Bar, universe []domain.UniverseEntry, failSymbol string, target time.Time) (*Orchestrator, *fakeRunRepo, *fakeAnalysisPersister) {
	t.Helper()
	mdp := &failingIngestMDP{failSymbol: failSymbol, bars: priceData}
	wms := newNoopWatermarkRepo()
	prices := &fakeDatedPriceRepo{bars: priceData}
	breaker := circuit.NewManager(func(name string) circuit.Config {
		return circuit.Config{Name: name, FailureThreshold: 10, SuccessThreshold: 1, Timeout: time.Millisecond, RequestTimeout: time.Second}
	})

	eng := &ingest.Engine{
		MDP: mdp, Prices: prices, Foreign: noopForeignRepo{}, Watermarks: wms,
		Breaker: breaker, Settings: settings.Ingest{
			GenesisDate: "2023-01-01", MarketTimezone: "UTC", MarketCloseHour: 16,
			MovingWindowStrideDays: 365, MaxEmptyWindows: 3, RecentOverwriteWindow: 1,
			RetryAttempts: 1, RetryBaseDelay: time.Millisecond,
		},
		Source: "SSI", Log: zerolog.Nop(),
		Now: func() time.Time { return target.AddDate(0, 0, 1) },
	}

	runs := &fakeRunRepo{}
	analysis := newFakeAnalysisPersister()

	o := &Orchestrator{
		Universe: fakeUniverse{entries: universe},
		Ingest:   eng,
		Prices:   prices, Configs: newFakeConfigRepo(),
		Analysis: analysis, Runs: runs,
		Settings: settings.Settings{
			Orchestrator: settings.Orchestrator{BatchSize: 2, InterSymbolDelay: 0, InterBatchDelay: 0, MinScoreThreshold: 10},
			Ingest:       settings.Ingest{AnalysisWindowDays: 120},
		},
		Log: zerolog.Nop(),
		Now: func() time.Time { return target.AddDate(0, 0, 1) },
	}
	return o, runs, analysis
}

// --- tests ---------------------------------------------------------------

func TestOrchestrator_RunProcessesWholeUniverse(t *testing.T) {
	base := time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC)
	target := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	universe := []domain.UniverseEntry{
		{Symbol: "ACB", Status: domain.UniverseActive},
		{Symbol: "VCB", Status: domain.UniverseActive},
		{Symbol: "HPG", Status: domain.UniverseActive},
	}
	priceData := map[string][]domain.Bar{
		"ACB": bars("ACB", 70, base),
		"VCB": bars("VCB", 70, base),
		"HPG": bars("HPG", 70, base),
	}

	o, runs, _ := buildOrchestrator(t, priceData, universe, "", target)
	report, err := o.Run(context.Background(), target)
	require.NoError(t, err)

	assert.Len(t, report.Symbols, 3)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	require.NotNil(t, runs.last)
	assert.Equal(t, 3, runs.last.SymbolsTotal)
	assert.Equal(t, 3, runs.last.SymbolsSucceeded)
}

func TestOrchestrator_SingleSymbolFailureDoesNotAbortRun(t *testing.T) {
	// spec §4.7 invariant: one bad symbol must not prevent the rest of the
	// batch/run from completing.
	base := time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC)
	target := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	universe := []domain.UniverseEntry{
		{Symbol: "ACB", Status: domain.UniverseActive},
		{Symbol: "BAD", Status: domain.UniverseActive},
		{Symbol: "VCB", Status: domain.UniverseActive},
	}
	priceData := map[string][]domain.Bar{
		"ACB": bars("ACB", 70, base),
		"BAD": bars("BAD", 70, base),
		"VCB": bars("VCB", 70, base),
	}

	o, _, _ := buildOrchestrator(t, priceData, universe, "BAD", target)
	report, err := o.Run(context.Background(), target)
	require.NoError(t, err, "a per-symbol failure must not surface as a run-level error")

	assert.Len(t, report.Symbols, 3)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)

	var badOutcome SymbolOutcome
	for _, s := range report.Symbols {
		if s.Symbol == "BAD" {
			badOutcome = s
		}
	}
	assert.NotEmpty(t, badOutcome.Err)
}

func TestOrchestrator_SparseHistorySymbolIsQuietSuccess(t *testing.T) {
	// A symbol with fewer bars than the indicator window should not be
	// treated as a failure (spec §4.4 "insufficient history" edge case).
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	target := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	universe := []domain.UniverseEntry{{Symbol: "NEW", Status: domain.UniverseActive}}
	priceData := map[string][]domain.Bar{"NEW": bars("NEW", 3, base)}

	o, _, signalRows := buildOrchestrator(t, priceData, universe, "", target)
	report, err := o.Run(context.Background(), target)
	require.NoError(t, err)

	require.Len(t, report.Symbols, 1)
	assert.Empty(t, report.Symbols[0].Err)
	assert.Equal(t, 0, report.Symbols[0].Signals)
	assert.Equal(t, 0, signalRows.count())
}

func TestOrchestrator_ConfigResolvedOnceAndReused(t *testing.T) {
	// spec invariant 7: identical config payloads resolve to the same
	// content hash / record across symbols and batches within one run.
	base := time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC)
	target := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	universe := []domain.UniverseEntry{
		{Symbol: "ACB", Status: domain.UniverseActive},
		{Symbol: "VCB", Status: domain.UniverseActive},
	}
	priceData := map[string][]domain.Bar{
		"ACB": bars("ACB", 70, base),
		"VCB": bars("VCB", 70, base),
	}

	o, _, _ := buildOrchestrator(t, priceData, universe, "", target)
	cfgRepo := o.Configs.(*fakeConfigRepo)

	_, err := o.Run(context.Background(), target)
	require.NoError(t, err)
	assert.Len(t, cfgRepo.byHash, 3, "exactly one indicator/scoring/analysis record each, regardless of symbol count")
}

func TestOrchestrator_RecordFailureWithoutMetricsIsNoOp(t *testing.T) {
	o := &Orchestrator{Log: zerolog.Nop()}
	// No metrics registry wired: recordFailure must be a safe no-op.
	o.recordFailure("ACB", apperr.New(apperr.KindTransport, "ACB", errors.New("boom")))
}
