// Package ingest implements the per-symbol incremental ingestion
// algorithm (spec §4.3): compute the fetch window from the watermark,
// pull bars from the market data provider behind a circuit breaker and
// rate limiter, sanitize, upsert, and atomically advance the watermark.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/hoangnph/vnquant/internal/apperr"
	"github.com/hoangnph/vnquant/internal/clock"
	"github.com/hoangnph/vnquant/internal/domain"
	"github.com/hoangnph/vnquant/internal/net/budget"
	"github.com/hoangnph/vnquant/internal/net/circuit"
	"github.com/hoangnph/vnquant/internal/net/ratelimit"
	"github.com/hoangnph/vnquant/internal/persistence"
	"github.com/hoangnph/vnquant/internal/settings"
)

// Result is the outcome of one symbol's ingestion pass (spec §4.3
// contract).
type Result struct {
	Fetched     int
	Stored      int
	NewLastDate time.Time
}

// Engine drives the ingestion algorithm for one source.
type Engine struct {
	MDP        domain.MarketDataProvider
	Prices     persistence.PriceRepo
	Foreign    persistence.ForeignFlowRepo
	Watermarks persistence.WatermarkRepo
	Breaker    *circuit.Manager
	Limiter    *ratelimit.Limiter
	// Budget caps the number of upstream requests a source may issue per
	// day, independent of the rate limiter's per-second shaping. Nil
	// disables the check.
	Budget     *budget.Manager
	Settings   settings.Ingest
	Source     domain.Source
	Log        zerolog.Logger

	// Now is overridable for deterministic tests; defaults to time.Now
	// when nil.
	Now func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) location() *time.Location {
	loc, err := time.LoadLocation(e.Settings.MarketTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (e *Engine) genesis() time.Time {
	g, err := time.Parse("2006-01-02", e.Settings.GenesisDate)
	if err != nil {
		return time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return g
}

// Ingest runs the full algorithm for one symbol (spec §4.3 steps 1-8).
func (e *Engine) Ingest(ctx context.Context, symbol string, targetEnd time.Time) (Result, error) {
	now := e.now()
	effective := clock.EffectiveEnd(now, targetEnd, e.location(), e.Settings.MarketCloseHour)

	wm, err := e.Watermarks.GetOrCreate(ctx, symbol, string(e.Source), e.genesis())
	if err != nil {
		return Result{}, apperr.New(apperr.KindPersistence, symbol, err)
	}

	// start = min(watermark+1day, effective - RecentOverwriteWindow + 1day),
	// floored at genesis: the tail of the already-ingested range is always
	// re-fetched and overwritten, since upstream sometimes revises the
	// most recent sessions' data after initial publication.
	overwriteWindow := e.Settings.RecentOverwriteWindow
	if overwriteWindow <= 0 {
		overwriteWindow = 1
	}
	start := wm.LastUpdatedDate.AddDate(0, 0, 1)
	recentStart := effective.AddDate(0, 0, -(overwriteWindow - 1))
	if recentStart.Before(start) {
		start = recentStart
	}
	if start.Before(e.genesis()) {
		start = e.genesis()
	}

	// Cross-check against stored history: a manual backfill may have
	// moved the true high-water mark ahead of the watermark row (spec
	// §4.3 step 3). Upserts are idempotent, so this only logs — it never
	// needs to widen or narrow the computed window.
	if dbLast, ok, err := e.Prices.LastTime(ctx, symbol); err == nil && ok && dbLast.After(wm.LastUpdatedDate) {
		e.Log.Warn().Str("symbol", symbol).Time("db_last", dbLast).Time("watermark", wm.LastUpdatedDate).
			Msg("backfill_detected: stored history ahead of watermark")
	}

	if start.After(effective) {
		return Result{Stored: 0, NewLastDate: wm.LastUpdatedDate}, nil
	}

	bars, foreign, err := e.fetchWindowed(ctx, symbol, start, effective)
	if err != nil {
		failMsg := err.Error()
		wm = wm.Fail(failMsg, now)
		if ferr := e.Watermarks.Fail(ctx, wm); ferr != nil {
			e.Log.Error().Err(ferr).Str("symbol", symbol).Msg("failed to persist watermark failure")
		}
		return Result{}, err
	}

	fetched := len(bars)
	sanitized := domain.SanitizeBatch(bars)

	stored, err := e.Prices.Upsert(ctx, sanitized)
	if err != nil {
		wm = wm.Fail(err.Error(), now)
		_ = e.Watermarks.Fail(ctx, wm)
		return Result{}, apperr.New(apperr.KindPersistence, symbol, err)
	}
	if len(foreign) > 0 {
		if _, err := e.Foreign.Upsert(ctx, foreign); err != nil {
			wm = wm.Fail(err.Error(), now)
			_ = e.Watermarks.Fail(ctx, wm)
			return Result{}, apperr.New(apperr.KindPersistence, symbol, err)
		}
	}

	newLast := wm.LastUpdatedDate
	if len(sanitized) > 0 {
		newLast = sanitized[len(sanitized)-1].Time
	} else {
		// Explicit empty response within [start, effective]: treat as
		// DataUnavailable and advance to effective_end anyway (spec §7).
		newLast = effective
	}

	wm = wm.Advance(newLast, int64(stored), now)
	if err := e.Watermarks.Advance(ctx, wm); err != nil {
		return Result{}, apperr.New(apperr.KindPersistence, symbol, err)
	}

	return Result{Fetched: fetched, Stored: stored, NewLastDate: newLast}, nil
}

// fetchWindowed implements the backward moving-window strategy (spec
// §4.3 step 4, §9 "Moving-window no-data heuristic"): starting at
// effective and walking back toward start in stride-day chunks,
// stopping once MaxEmptyWindows consecutive chunks come back empty
// (assumed to mean no history exists further back for this symbol).
func (e *Engine) fetchWindowed(ctx context.Context, symbol string, start, effective time.Time) ([]domain.Bar, []domain.ForeignFlow, error) {
	stride := e.Settings.MovingWindowStrideDays
	if stride <= 0 {
		stride = 365
	}
	maxEmpty := e.Settings.MaxEmptyWindows
	if maxEmpty <= 0 {
		maxEmpty = 3
	}

	var bars []domain.Bar
	var foreign []domain.ForeignFlow
	emptyStreak := 0

	chunkTo := effective
	for !chunkTo.Before(start) {
		chunkFrom := chunkTo.AddDate(0, 0, -(stride - 1))
		if chunkFrom.Before(start) {
			chunkFrom = start
		}

		res, err := e.fetchWithRetry(ctx, symbol, chunkFrom, chunkTo)
		if err != nil {
			return nil, nil, err
		}

		if len(res.Bars) == 0 {
			emptyStreak++
			if emptyStreak >= maxEmpty {
				break
			}
		} else {
			emptyStreak = 0
			bars = append(bars, res.Bars...)
			foreign = append(foreign, res.Foreign...)
		}

		chunkTo = chunkFrom.AddDate(0, 0, -1)
	}
	return bars, foreign, nil
}

// fetchWithRetry calls the MDP through the circuit breaker with bounded
// exponential backoff on transient transport errors (spec §4.3 "Failure
// model").
func (e *Engine) fetchWithRetry(ctx context.Context, symbol string, from, to time.Time) (domain.FetchResult, error) {
	if e.Budget != nil {
		if err := e.Budget.Consume(string(e.Source)); err != nil {
			var exhausted *budget.BudgetExhaustedError
			if errors.As(err, &exhausted) {
				return domain.FetchResult{}, apperr.New(apperr.KindDataUnavailable, symbol, err)
			}
			e.Log.Warn().Err(err).Str("symbol", symbol).Str("source", string(e.Source)).Msg("daily request budget warning")
		}
	}
	if e.Limiter != nil {
		if err := e.Limiter.Wait(ctx, string(e.Source)); err != nil {
			return domain.FetchResult{}, apperr.New(apperr.KindCancelled, symbol, err)
		}
	}

	attempts := e.Settings.RetryAttempts
	if attempts <= 0 {
		attempts = 3
	}
	baseDelay := e.Settings.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		var res domain.FetchResult
		callErr := e.Breaker.Call(ctx, string(e.Source), func(ctx context.Context) error {
			var err error
			res, err = e.MDP.FetchDaily(ctx, symbol, from, to)
			return err
		})
		if callErr == nil {
			return res, nil
		}
		lastErr = callErr
		wrapped := apperr.New(apperr.KindTransport, symbol, callErr)
		if !apperr.Retryable(wrapped) {
			return domain.FetchResult{}, wrapped
		}
		delay := time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt)))
		select {
		case <-ctx.Done():
			return domain.FetchResult{}, apperr.New(apperr.KindCancelled, symbol, ctx.Err())
		case <-time.After(delay):
		}
	}
	return domain.FetchResult{}, apperr.New(apperr.KindTransport, symbol, fmt.Errorf("exhausted %d attempts: %w", attempts, lastErr))
}
