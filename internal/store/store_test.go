package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadowops/shintel/internal/types"
)

func ts(t *testing.T, s string) *time.Time {
	t.Helper()
	parsed := types.ParseTimestamp(s)
	require.NotNil(t, parsed, "bad test timestamp %q", s)
	return parsed
}

func TestLoadMissingStoreIsEmpty(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestLoadCorruptStoreDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "destination.csv")
	// Unterminated quote makes the CSV unparsable.
	require.NoError(t, os.WriteFile(path, []byte("Timestamp,Severity\n\"broken\n"), 0644))

	s, err := Load(path)
	require.NoError(t, err, "corruption is degraded, not fatal")
	assert.Equal(t, 0, s.Len())
}

func TestPersistLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "destination.csv")
	s := &Store{Records: []types.Record{
		{Timestamp: ts(t, "2024-03-02 10:00:00"), Severity: "High", IP: "10.0.0.1", Protocol: "tcp", Port: "443", State: types.StateOpen, Issue: "ssl weak", Recurring: 1},
		{Timestamp: ts(t, "2024-03-01 10:00:00"), Severity: "Low", IP: "10.0.0.2", Protocol: "udp", Port: "161", State: types.StateOpen, Issue: "snmp public"},
	}}
	require.NoError(t, s.Persist(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Len())
	assert.Equal(t, "ssl weak", loaded.Records[0].Issue)
	assert.Equal(t, 1, loaded.Records[0].Recurring)
	assert.True(t, types.SameObservation(s.Records[1].Timestamp, loaded.Records[1].Timestamp))

	// Header is the canonical contract.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Timestamp,Severity,IP,Protocol,Port,State")
}

func TestAppendPrependsBatch(t *testing.T) {
	s := &Store{Records: []types.Record{{IP: "old"}}}
	s.Append([]types.Record{{IP: "new1"}, {IP: "new2"}})
	require.Equal(t, 3, s.Len())
	assert.Equal(t, "new1", s.Records[0].IP)
	assert.Equal(t, "old", s.Records[2].IP)
}

func TestSortDescendingNullsLast(t *testing.T) {
	s := &Store{Records: []types.Record{
		{IP: "nil-a"},
		{IP: "old", Timestamp: ts(t, "2024-01-01 00:00:00")},
		{IP: "new", Timestamp: ts(t, "2024-03-01 00:00:00")},
		{IP: "nil-b"},
		{IP: "mid", Timestamp: ts(t, "2024-02-01 00:00:00")},
	}}
	s.Sort()

	order := []string{}
	for _, r := range s.Records {
		order = append(order, r.IP)
	}
	assert.Equal(t, []string{"new", "mid", "old", "nil-a", "nil-b"}, order,
		"descending by timestamp, nil timestamps last in insertion order")
}

func TestSortStableOnTies(t *testing.T) {
	tie := ts(t, "2024-03-01 00:00:00")
	s := &Store{Records: []types.Record{
		{IP: "first", Timestamp: tie},
		{IP: "second", Timestamp: tie},
	}}
	s.Sort()
	assert.Equal(t, "first", s.Records[0].IP)
	assert.Equal(t, "second", s.Records[1].IP)
}

func TestPersistCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dst", "nested", "destination.csv")
	s := &Store{}
	require.NoError(t, s.Persist(path))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestLedgerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_files.txt")

	l, err := LoadLedger(path)
	require.NoError(t, err)
	assert.False(t, l.IsProcessed("scan_ssl-1.csv"))

	require.NoError(t, l.MarkProcessed([]string{"scan_ssl-1.csv", "scan_rdp-1.csv"}))
	assert.True(t, l.IsProcessed("scan_ssl-1.csv"))

	// Reload from disk: append-only persistence survives the process.
	l2, err := LoadLedger(path)
	require.NoError(t, err)
	assert.True(t, l2.IsProcessed("scan_ssl-1.csv"))
	assert.True(t, l2.IsProcessed("scan_rdp-1.csv"))
	assert.Equal(t, 2, l2.Len())
}

func TestLedgerMarkProcessedIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_files.txt")
	l, err := LoadLedger(path)
	require.NoError(t, err)

	require.NoError(t, l.MarkProcessed([]string{"a.csv"}))
	require.NoError(t, l.MarkProcessed([]string{"a.csv"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a.csv\n", string(data), "re-marking must not duplicate ledger lines")
}
