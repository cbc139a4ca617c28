package domain

import "time"

// UniverseStatus is the lifecycle state of a universe entry.
type UniverseStatus string

const (
	UniverseNew      UniverseStatus = "NEW"
	UniverseActive   UniverseStatus = "ACTIVE"
	UniverseInactive UniverseStatus = "INACTIVE"
	UniverseUnknown  UniverseStatus = "UNKNOWN"
)

// UniverseEntry is one curated symbol in the analytical universe (spec §3).
type UniverseEntry struct {
	Symbol       string
	Rank         int
	Sector       string
	Tier         string
	Status       UniverseStatus
	FirstAppeared time.Time
	WeeksActive  int
}

// PromoteIfEligible promotes a NEW entry to ACTIVE once it has been observed
// for at least minWeeks consecutive weeks. This supplements spec §3's
// UniverseEntry with the promotion rule the original hose_verifier/
// ssi_verifier pipeline applies before treating a symbol as fully tracked;
// entries in any other status pass through unchanged.
func PromoteIfEligible(entry UniverseEntry, minWeeks int) UniverseEntry {
	if entry.Status == UniverseNew && entry.WeeksActive >= minWeeks {
		entry.Status = UniverseActive
	}
	return entry
}
