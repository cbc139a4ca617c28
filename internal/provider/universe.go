// Package provider holds the concrete, swappable external collaborators
// behind domain.MarketDataProvider and domain.UniverseProvider. The
// ingestion engine and orchestrator only ever see the narrow interfaces
// (spec §6); these adapters are intentionally thin so a different
// upstream (a new provider, a different universe source) can replace
// them without touching the pipeline.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hoangnph/vnquant/internal/domain"
)

// universeFile is the on-disk shape a StaticUniverseProvider reads,
// mirroring the curated symbol list the original hose_verifier/
// ssi_verifier pipeline maintains as config/universe.json.
type universeFile struct {
	Symbols []universeFileEntry `json:"symbols"`
}

type universeFileEntry struct {
	Symbol      string `json:"symbol"`
	Rank        int    `json:"rank"`
	Sector      string `json:"sector"`
	Tier        string `json:"tier"`
	Status      string `json:"status"`
	WeeksActive int    `json:"weeks_active"`
}

// StaticUniverseProvider serves the curated universe from a JSON file,
// stable for the duration of one orchestrator run by construction (it is
// read once at process start, not re-read per call).
type StaticUniverseProvider struct {
	entries []domain.UniverseEntry
}

// LoadStaticUniverse reads and parses a universe file, promoting any NEW
// entry that has accumulated enough weeks of activity (spec §3
// supplement, internal/domain.PromoteIfEligible).
func LoadStaticUniverse(path string, minWeeksForPromotion int) (*StaticUniverseProvider, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("provider: read universe file %s: %w", path, err)
	}
	var uf universeFile
	if err := json.Unmarshal(raw, &uf); err != nil {
		return nil, fmt.Errorf("provider: parse universe file %s: %w", path, err)
	}

	entries := make([]domain.UniverseEntry, 0, len(uf.Symbols))
	for _, e := range uf.Symbols {
		entry := domain.UniverseEntry{
			Symbol: e.Symbol, Rank: e.Rank, Sector: e.Sector, Tier: e.Tier,
			Status: domain.UniverseStatus(e.Status), WeeksActive: e.WeeksActive,
		}
		if entry.Status == "" {
			entry.Status = domain.UniverseUnknown
		}
		entries = append(entries, domain.PromoteIfEligible(entry, minWeeksForPromotion))
	}
	return &StaticUniverseProvider{entries: entries}, nil
}

// ActiveSymbols returns every entry whose status is ACTIVE.
func (p *StaticUniverseProvider) ActiveSymbols(ctx context.Context) ([]domain.UniverseEntry, error) {
	out := make([]domain.UniverseEntry, 0, len(p.entries))
	for _, e := range p.entries {
		if e.Status == domain.UniverseActive {
			out = append(out, e)
		}
	}
	return out, nil
}
