package domain

import (
	"context"
	"time"
)

// FetchResult is what a MarketDataProvider returns for one window.
type FetchResult struct {
	Bars    []Bar
	Foreign []ForeignFlow
}

// MarketDataProvider is the narrow external collaborator for upstream bar
// and foreign-flow retrieval (spec §6). Concrete HTTP endpoints, pagination,
// and any secondary fetch strategy (alternate endpoint, headless-browser
// round trip) are adapter concerns outside this module's scope; the
// ingestion engine only ever calls FetchDaily and treats one call as
// possibly slow/internally retried by the adapter.
type MarketDataProvider interface {
	FetchDaily(ctx context.Context, symbol string, from, to time.Time) (FetchResult, error)
}

// UniverseProvider yields the active symbol universe (spec §6). Must be
// stable for the duration of one orchestrator run.
type UniverseProvider interface {
	ActiveSymbols(ctx context.Context) ([]UniverseEntry, error)
}
