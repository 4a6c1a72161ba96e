// Package report builds the intelligence summary over a persisted store.
//
// Reporting is read-only and tolerant by contract: state is free text where
// only the literal normalized "open" denotes an active finding, and the
// recurrence counter is a non-negative integer-as-text that may have been
// hand-edited.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/shadowops/shintel/internal/types"
)

// TopN is how many entries the "top offenders" sections carry.
const TopN = 5

// Count is one name/count pair in a ranked section.
type Count struct {
	Name  string
	Count int
}

// Summary is the aggregate view of a store's open findings.
type Summary struct {
	TotalOpen int

	// BySeverity ranks open findings per severity label, descending.
	BySeverity []Count

	// TopIssues and TopIPs are the TopN most frequent issue labels and
	// addresses among open findings.
	TopIssues []Count
	TopIPs    []Count

	// ByRegion ranks open findings per region; empty region values are
	// excluded.
	ByRegion []Count

	// Recurring is the number of open findings with a counter above zero.
	Recurring int
}

// Summarize aggregates open findings. Records whose trimmed, lower-cased
// state is not exactly "open" are ignored.
func Summarize(records []types.Record) Summary {
	var s Summary
	severity := make(map[string]int)
	issues := make(map[string]int)
	ips := make(map[string]int)
	regions := make(map[string]int)

	for i := range records {
		r := &records[i]
		if strings.ToLower(strings.TrimSpace(r.State)) != types.StateOpen {
			continue
		}
		s.TotalOpen++
		if v := strings.TrimSpace(r.Severity); v != "" {
			severity[v]++
		}
		if v := strings.TrimSpace(r.Issue); v != "" {
			issues[v]++
		}
		if v := strings.TrimSpace(r.IP); v != "" {
			ips[v]++
		}
		if v := strings.TrimSpace(r.Region); v != "" {
			regions[v]++
		}
		if r.Recurring > 0 {
			s.Recurring++
		}
	}

	s.BySeverity = ranked(severity, 0)
	s.TopIssues = ranked(issues, TopN)
	s.TopIPs = ranked(ips, TopN)
	s.ByRegion = ranked(regions, 0)
	return s
}

// ranked orders counts descending, names ascending on ties; limit 0 keeps
// everything.
func ranked(m map[string]int, limit int) []Count {
	out := make([]Count, 0, len(m))
	for name, n := range m {
		out = append(out, Count{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Render writes the human-readable report.
func Render(w io.Writer, s Summary) {
	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	rule := strings.Repeat("=", 50)
	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintf(w, "      Vulnerability Intelligence Report\n")
	fmt.Fprintf(w, "%s\n", rule)

	if s.TotalOpen == 0 {
		fmt.Fprintf(w, "\n%s No open findings to analyze\n", green("✓"))
		return
	}

	fmt.Fprintf(w, "\n%s\n", bold("Overall Summary"))
	fmt.Fprintf(w, "Total open findings: %d\n", s.TotalOpen)
	if len(s.BySeverity) > 0 {
		fmt.Fprintf(w, "\nBy severity:\n")
		writeCounts(w, s.BySeverity)
	}

	if len(s.TopIssues) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold(fmt.Sprintf("Top %d Issues", TopN)))
		writeCounts(w, s.TopIssues)
	}
	if len(s.TopIPs) > 0 {
		fmt.Fprintf(w, "\n%s\n", bold(fmt.Sprintf("Top %d IPs", TopN)))
		writeCounts(w, s.TopIPs)
	}

	fmt.Fprintf(w, "\n%s\n", bold("By Region"))
	if len(s.ByRegion) > 0 {
		writeCounts(w, s.ByRegion)
	} else {
		fmt.Fprintf(w, "No region data available\n")
	}

	fmt.Fprintf(w, "\n%s\n", bold("Recurring"))
	fmt.Fprintf(w, "Open findings seen before: %s\n", cyan(fmt.Sprintf("%d", s.Recurring)))
	fmt.Fprintf(w, "\n%s\n", rule)
}

func writeCounts(w io.Writer, counts []Count) {
	for _, c := range counts {
		fmt.Fprintf(w, "  %-28s %d\n", c.Name, c.Count)
	}
}
