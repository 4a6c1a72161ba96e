// Package normalize maps heterogeneous scan-export tables onto the canonical
// record schema and derives the issue label for a source file.
//
// Scan sources disagree about column naming and casing; the normalizer
// recognizes a fixed set of lower-cased source columns, drops everything
// else, and fills unmapped canonical fields with empty defaults. Producing
// no usable rows is a normal outcome for a file (wrong schema, empty export),
// reported as ErrNoUsableData rather than a failure.
package normalize

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shadowops/shintel/internal/types"
)

// ErrNoUsableData is returned when a source table has none of the recognized
// columns, or every row is empty after mapping. Callers skip the file and
// continue; this is not a failure of the run.
var ErrNoUsableData = errors.New("no usable data")

// setters maps recognized lower-cased source column names onto record fields.
var setters = map[string]func(*types.Record, string){
	"timestamp": func(r *types.Record, v string) { r.Timestamp = types.ParseTimestamp(v) },
	"severity":  func(r *types.Record, v string) { r.Severity = v },
	"ip":        func(r *types.Record, v string) { r.IP = v },
	"protocol":  func(r *types.Record, v string) { r.Protocol = v },
	"port":      func(r *types.Record, v string) { r.Port = v },
	"hostname":  func(r *types.Record, v string) { r.Hostname = v },
	"region":    func(r *types.Record, v string) { r.Region = v },
	"city":      func(r *types.Record, v string) { r.City = v },
}

// Table is a raw tabular source file: a header row and data rows, as read
// from CSV or a spreadsheet. No schema is assumed beyond "first row names
// the columns".
type Table struct {
	Header []string
	Rows   [][]string
}

// Records maps the table onto canonical records.
//
// Column matching is by lower-cased, trimmed header name. Values are trimmed
// of surrounding whitespace. Rows that are empty across every mapped column
// are dropped. Returns ErrNoUsableData when no recognized column is present
// or no row survives.
func Records(tbl Table) ([]types.Record, error) {
	type column struct {
		index int
		set   func(*types.Record, string)
	}
	var mapped []column
	for i, name := range tbl.Header {
		if set, ok := setters[strings.ToLower(strings.TrimSpace(name))]; ok {
			mapped = append(mapped, column{index: i, set: set})
		}
	}
	if len(mapped) == 0 {
		return nil, ErrNoUsableData
	}

	var records []types.Record
	for _, row := range tbl.Rows {
		var rec types.Record
		empty := true
		for _, col := range mapped {
			if col.index >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[col.index])
			if v == "" {
				continue
			}
			empty = false
			col.set(&rec, v)
		}
		if empty {
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, ErrNoUsableData
	}
	return records, nil
}

// issueMarker locates the scan token in a source file name, e.g.
// "scan_ssl_weak-2024.csv" → "ssl_weak".
var issueMarker = regexp.MustCompile(`scan_([^-.]+)`)

// IssueFromFilename derives the issue label stamped on every row of a source
// file. Underscores become spaces, the result is trimmed and lower-cased.
// A name without the marker yields types.IssueUnknown, never an empty string.
func IssueFromFilename(name string) string {
	m := issueMarker.FindStringSubmatch(name)
	if m == nil {
		return types.IssueUnknown
	}
	label := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(m[1], "_", " ")))
	if label == "" {
		return types.IssueUnknown
	}
	return label
}
