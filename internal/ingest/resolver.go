package ingest

import (
	"github.com/shadowops/shintel/internal/types"
)

// ResolveRecurrence computes the recurrence counter for an incoming record
// against the given store snapshot.
//
// A stored record matches when the natural keys are equal and the stored
// timestamp differs from the incoming one. With at least one match the
// counter becomes max(matched counters) + 1; with none it is 0.
//
// The snapshot is exactly the records visible at the moment of resolution.
// Callers fold file batches into the store between resolutions, so rows of
// the same key across files see each other while rows within one file do
// not.
func ResolveRecurrence(snapshot []types.Record, incoming *types.Record) int {
	key := incoming.NaturalKey()
	maxSeen := -1
	for i := range snapshot {
		stored := &snapshot[i]
		if stored.NaturalKey() != key {
			continue
		}
		if types.SameObservation(stored.Timestamp, incoming.Timestamp) {
			continue
		}
		if stored.Recurring > maxSeen {
			maxSeen = stored.Recurring
		}
	}
	if maxSeen < 0 {
		return 0
	}
	return maxSeen + 1
}
