// Package dedup collapses duplicate findings in a persisted store down to
// one representative per key, re-summing recurrence.
//
// Compaction is an offline batch correction pass, not part of ingestion: it
// repairs the duplication that accumulates when overlapping exports are
// ingested over time. The grouping key is configurable: by default it is
// deliberately narrower than ingestion's natural key (issue excluded, so one
// representative survives per asset/port/state regardless of label); the two
// keys are never silently unified.
package dedup

import (
	"fmt"
	"log"
	"strings"

	"github.com/shadowops/shintel/internal/store"
	"github.com/shadowops/shintel/internal/types"
)

// Options configures a compaction pass.
type Options struct {
	// IncludeIssue widens the grouping key from (severity, ip, protocol,
	// port, state) to the full ingestion natural key.
	IncludeIssue bool

	// UnresolvedPath, when set, writes records that cannot be keyed
	// (missing key field or unparsable timestamp) to a side snapshot
	// instead of discarding them.
	UnresolvedPath string
}

// Result summarizes a compaction pass.
type Result struct {
	// Kept is the number of records in the compacted store.
	Kept int

	// Removed is how many records the pass removed from the store,
	// including unkeyable ones.
	Removed int

	// Unresolved is the subset of Removed that could not be keyed.
	// Preserved in the side snapshot when Options.UnresolvedPath is set,
	// otherwise dropped.
	Unresolved int
}

// groupKey is the compaction grouping key.
type groupKey struct {
	severity string
	ip       string
	protocol string
	port     string
	state    string
	issue    string // empty unless Options.IncludeIssue
}

func keyOf(r *types.Record, includeIssue bool) (groupKey, bool) {
	k := groupKey{
		severity: strings.TrimSpace(r.Severity),
		ip:       strings.TrimSpace(r.IP),
		protocol: strings.TrimSpace(r.Protocol),
		port:     strings.TrimSpace(r.Port),
		state:    strings.TrimSpace(r.State),
	}
	complete := k.severity != "" && k.ip != "" && k.protocol != "" && k.port != "" && k.state != ""
	if includeIssue {
		k.issue = strings.TrimSpace(r.Issue)
		complete = complete && k.issue != ""
	}
	return k, complete && r.Timestamp != nil
}

// Apply compacts a record set: one representative per grouping key, chosen
// by latest timestamp (first-seen wins ties). The representative's counter
// becomes its own stored value plus the number of records removed from its
// group. Unkeyable records are returned separately and never appear in the
// compacted output.
func Apply(records []types.Record, opts Options) (compacted, unresolved []types.Record) {
	type group struct {
		rep  types.Record
		size int
	}
	var order []groupKey
	groups := make(map[groupKey]*group)
	for i := range records {
		rec := records[i]
		key, ok := keyOf(&rec, opts.IncludeIssue)
		if !ok {
			unresolved = append(unresolved, rec)
			continue
		}
		g, seen := groups[key]
		if !seen {
			groups[key] = &group{rep: rec, size: 1}
			order = append(order, key)
			continue
		}
		g.size++
		if rec.Timestamp.After(*g.rep.Timestamp) {
			g.rep = rec
		}
	}

	compacted = make([]types.Record, 0, len(order))
	for _, key := range order {
		g := groups[key]
		g.rep.Recurring += g.size - 1
		compacted = append(compacted, g.rep)
	}
	return compacted, unresolved
}

// Run compacts the persisted store at storePath in place: load, collapse,
// sort descending, atomically replace the snapshot. The prior snapshot is
// only replaced if every step succeeds.
func Run(storePath string, opts Options) (*Result, error) {
	st, err := store.Load(storePath)
	if err != nil {
		return nil, err
	}
	before := st.Len()

	compacted, unresolved := Apply(st.Records, opts)
	result := &Result{
		Kept:       len(compacted),
		Removed:    before - len(compacted),
		Unresolved: len(unresolved),
	}

	if opts.UnresolvedPath != "" && len(unresolved) > 0 {
		side := &store.Store{Records: unresolved}
		side.Sort()
		if err := side.Persist(opts.UnresolvedPath); err != nil {
			return nil, fmt.Errorf("persisting unresolved records: %w", err)
		}
		log.Printf("[COMPACT] preserved %d unkeyable record(s) in %s", len(unresolved), opts.UnresolvedPath)
	} else if len(unresolved) > 0 {
		log.Printf("[COMPACT] dropping %d record(s) with incomplete keys or unparsable timestamps", len(unresolved))
	}

	st.Records = compacted
	st.Sort()
	if err := st.Persist(storePath); err != nil {
		return nil, fmt.Errorf("persisting compacted store: %w", err)
	}
	log.Printf("[COMPACT] kept %d record(s), removed %d", result.Kept, result.Removed)
	return result, nil
}
