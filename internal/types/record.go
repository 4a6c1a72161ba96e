package types

import (
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the textual form timestamps take in a persisted store.
// It sorts lexicographically in the same order as the underlying instants.
const TimestampLayout = "2006-01-02 15:04:05"

// timestampLayouts are the input forms accepted when parsing source rows and
// existing store snapshots. Scan exports are inconsistent about this, so we
// accept the common shapes and normalize on write.
var timestampLayouts = []string{
	TimestampLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// Columns is the canonical store header, in persisted order. The store file
// is consumed by external reporting tooling, so names and order are fixed.
var Columns = []string{
	"Timestamp",
	"Severity",
	"IP",
	"Protocol",
	"Port",
	"State",
	"Asset Name/Hostname",
	"Asset Type",
	"Region",
	"City",
	"Issue",
	"Description",
	"Recurring Issue",
	"Client Awareness Training Needed",
	"Advisory Sent",
	"Date Advisory Sent",
	"Issue Resolved",
	"Date Issue Resolved",
	"Contact Person",
	"Contact Email",
}

// StateOpen is the canonical lifecycle tag for an active finding. The state
// column is free text; only this exact value denotes an open finding.
const StateOpen = "open"

// IssueUnknown is the issue label applied when a source file name carries no
// recognizable scan marker. An explicit sentinel rather than an empty string,
// so it can never collide with a legitimately extracted label.
const IssueUnknown = "unknown"

// Record is one vulnerability finding observation in the canonical schema.
//
// Timestamp is nil when the source value was missing or unparsable. New rows
// with a nil timestamp are rejected at ingest; nil values can still appear
// when loading stores written by earlier tooling, and sort last.
type Record struct {
	Timestamp *time.Time
	Severity  string
	IP        string
	Protocol  string
	Port      string
	State     string
	Hostname  string
	AssetType string
	Region    string
	City      string
	Issue     string

	Description string

	// Recurring is the count of prior timestamp-distinct observations of
	// this record's natural key. Never negative; only incremented, except
	// by recomputation during compaction.
	Recurring int

	// Workflow fields carried verbatim from the store. Never used for
	// matching.
	TrainingNeeded   string
	AdvisorySent     string
	AdvisorySentDate string
	Resolved         string
	ResolvedDate     string
	ContactPerson    string
	ContactEmail     string
}

// Key is the natural key deciding whether two records are the same finding.
type Key struct {
	Severity string
	IP       string
	Protocol string
	Port     string
	State    string
	Issue    string
}

// NaturalKey returns the record's natural key with surrounding whitespace
// trimmed from every component.
func (r *Record) NaturalKey() Key {
	return Key{
		Severity: strings.TrimSpace(r.Severity),
		IP:       strings.TrimSpace(r.IP),
		Protocol: strings.TrimSpace(r.Protocol),
		Port:     strings.TrimSpace(r.Port),
		State:    strings.TrimSpace(r.State),
		Issue:    strings.TrimSpace(r.Issue),
	}
}

// HasCompleteKey reports whether every natural-key field is non-empty.
func (k Key) HasCompleteKey() bool {
	return k.Severity != "" && k.IP != "" && k.Protocol != "" &&
		k.Port != "" && k.State != "" && k.Issue != ""
}

// SameObservation reports whether two timestamps denote the same instant.
// Two nils compare equal; nil never equals a concrete time.
func SameObservation(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// ParseTimestamp parses a source timestamp value. Returns nil for empty or
// unparsable input; unparsable is not an error, it is the null timestamp.
func ParseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// FormatTimestamp renders a timestamp in the persisted sortable form.
// A nil timestamp renders as the empty string.
func FormatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(TimestampLayout)
}

// FromRow builds a Record from one store row in canonical column order.
// Short rows are padded; extra cells are ignored. An unparsable recurrence
// counter degrades to 0, never to an error.
func FromRow(row []string) Record {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	recurring, err := strconv.Atoi(cell(12))
	if err != nil || recurring < 0 {
		recurring = 0
	}
	return Record{
		Timestamp:        ParseTimestamp(cell(0)),
		Severity:         cell(1),
		IP:               cell(2),
		Protocol:         cell(3),
		Port:             cell(4),
		State:            cell(5),
		Hostname:         cell(6),
		AssetType:        cell(7),
		Region:           cell(8),
		City:             cell(9),
		Issue:            cell(10),
		Description:      cell(11),
		Recurring:        recurring,
		TrainingNeeded:   cell(13),
		AdvisorySent:     cell(14),
		AdvisorySentDate: cell(15),
		Resolved:         cell(16),
		ResolvedDate:     cell(17),
		ContactPerson:    cell(18),
		ContactEmail:     cell(19),
	}
}

// ToRow renders the record as one store row in canonical column order.
func (r *Record) ToRow() []string {
	return []string{
		FormatTimestamp(r.Timestamp),
		r.Severity,
		r.IP,
		r.Protocol,
		r.Port,
		r.State,
		r.Hostname,
		r.AssetType,
		r.Region,
		r.City,
		r.Issue,
		r.Description,
		strconv.Itoa(r.Recurring),
		r.TrainingNeeded,
		r.AdvisorySent,
		r.AdvisorySentDate,
		r.Resolved,
		r.ResolvedDate,
		r.ContactPerson,
		r.ContactEmail,
	}
}
