package ingest

import (
	"testing"
	"time"

	"github.com/shadowops/shintel/internal/types"
)

func tsp(s string) *time.Time {
	t := types.ParseTimestamp(s)
	if t == nil {
		panic("bad test timestamp: " + s)
	}
	return t
}

func finding(ts string, recurring int) types.Record {
	return types.Record{
		Timestamp: tsp(ts),
		Severity:  "High",
		IP:        "10.0.0.1",
		Protocol:  "tcp",
		Port:      "443",
		State:     types.StateOpen,
		Issue:     "ssl weak",
		Recurring: recurring,
	}
}

func TestResolveRecurrence(t *testing.T) {
	tests := []struct {
		name     string
		snapshot []types.Record
		incoming types.Record
		want     int
	}{
		{
			name:     "empty snapshot",
			incoming: finding("2024-03-02 10:00:00", 0),
			want:     0,
		},
		{
			name:     "single match increments",
			snapshot: []types.Record{finding("2024-03-01 10:00:00", 0)},
			incoming: finding("2024-03-02 10:00:00", 0),
			want:     1,
		},
		{
			name:     "max of several matches plus one",
			snapshot: []types.Record{finding("2024-03-01 10:00:00", 2), finding("2024-02-01 10:00:00", 5)},
			incoming: finding("2024-03-02 10:00:00", 0),
			want:     6,
		},
		{
			name:     "identical timestamp is the same observation",
			snapshot: []types.Record{finding("2024-03-02 10:00:00", 3)},
			incoming: finding("2024-03-02 10:00:00", 0),
			want:     0,
		},
		{
			name: "different key does not match",
			snapshot: []types.Record{func() types.Record {
				r := finding("2024-03-01 10:00:00", 4)
				r.Port = "8443"
				return r
			}()},
			incoming: finding("2024-03-02 10:00:00", 0),
			want:     0,
		},
		{
			name: "different issue does not match",
			snapshot: []types.Record{func() types.Record {
				r := finding("2024-03-01 10:00:00", 4)
				r.Issue = "open rdp"
				return r
			}()},
			incoming: finding("2024-03-02 10:00:00", 0),
			want:     0,
		},
		{
			name: "nil stored timestamp differs from any concrete one",
			snapshot: []types.Record{func() types.Record {
				r := finding("2024-03-01 10:00:00", 1)
				r.Timestamp = nil
				return r
			}()},
			incoming: finding("2024-03-02 10:00:00", 0),
			want:     2,
		},
		{
			name: "key comparison trims whitespace",
			snapshot: []types.Record{func() types.Record {
				r := finding("2024-03-01 10:00:00", 0)
				r.Severity = " High "
				return r
			}()},
			incoming: finding("2024-03-02 10:00:00", 0),
			want:     1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveRecurrence(tt.snapshot, &tt.incoming)
			if got != tt.want {
				t.Errorf("ResolveRecurrence() = %d, want %d", got, tt.want)
			}
		})
	}
}
