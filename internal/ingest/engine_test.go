package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/shadowops/shintel/internal/store"
	"github.com/shadowops/shintel/internal/types"
)

type fixture struct {
	src    string
	store  string
	ledger string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(src, 0755))
	return fixture{
		src:    src,
		store:  filepath.Join(dir, "dst", "destination.csv"),
		ledger: filepath.Join(dir, "dst", "processed_files.txt"),
	}
}

func (f fixture) options() Options {
	return Options{SourceDir: f.src, StorePath: f.store, LedgerPath: f.ledger}
}

func (f fixture) writeSource(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.src, name), []byte(content), 0644))
}

func (f fixture) loadStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Load(f.store)
	require.NoError(t, err)
	return s
}

func TestIngestRecurrenceAcrossRuns(t *testing.T) {
	f := newFixture(t)

	// First export: one finding into an empty store.
	f.writeSource(t, "scan_ssl_weak-2024.csv",
		"timestamp,severity,ip,protocol,port\n"+
			"2024-03-01 10:00:00,High,10.0.0.1,tcp,443\n")

	res, err := Run(f.options())
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesProcessed)
	assert.Equal(t, 1, res.RecordsAdded)
	assert.NotEmpty(t, res.RunID)

	s := f.loadStore(t)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, "ssl weak", s.Records[0].Issue)
	assert.Equal(t, types.StateOpen, s.Records[0].State)
	assert.Equal(t, 0, s.Records[0].Recurring)

	// Second export: same finding, later observation.
	f.writeSource(t, "scan_ssl_weak-2025.csv",
		"timestamp,severity,ip,protocol,port\n"+
			"2024-04-01 10:00:00,High,10.0.0.1,tcp,443\n")

	res, err = Run(f.options())
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesProcessed)
	assert.Equal(t, 1, res.FilesLedgered, "first file must not be refolded")

	s = f.loadStore(t)
	require.Equal(t, 2, s.Len())
	// Sorted descending: the April observation leads and carries the count.
	assert.Equal(t, "2024-04-01 10:00:00", types.FormatTimestamp(s.Records[0].Timestamp))
	assert.Equal(t, 1, s.Records[0].Recurring)
	assert.Equal(t, 0, s.Records[1].Recurring)
}

func TestIngestIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.writeSource(t, "scan_telnet-1.csv",
		"timestamp,severity,ip,protocol,port\n"+
			"2024-03-01 10:00:00,Medium,10.0.0.9,tcp,23\n")

	_, err := Run(f.options())
	require.NoError(t, err)

	res, err := Run(f.options())
	require.NoError(t, err)
	assert.Equal(t, 0, res.FilesProcessed)
	assert.Equal(t, 0, res.RecordsAdded)
	assert.Equal(t, 1, res.FilesLedgered)
	assert.Equal(t, 1, f.loadStore(t).Len(), "second run adds nothing")
}

func TestIngestRejectsIncompleteRows(t *testing.T) {
	f := newFixture(t)
	f.writeSource(t, "scan_ssl-1.csv",
		"timestamp,severity,ip,protocol,port\n"+
			"2024-03-01 10:00:00,High,10.0.0.1,tcp,443\n"+ // admissible
			"2024-03-01 10:00:00,High,,tcp,443\n"+ // missing ip
			"not-a-time,High,10.0.0.2,tcp,443\n") // unparsable timestamp

	res, err := Run(f.options())
	require.NoError(t, err)
	assert.Equal(t, 1, res.RecordsAdded)
	assert.Equal(t, 2, res.RowsRejected)

	s := f.loadStore(t)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, "10.0.0.1", s.Records[0].IP)
}

func TestIngestSkipsUnusableFilesAndContinues(t *testing.T) {
	f := newFixture(t)
	f.writeSource(t, "scan_aaa-bad.csv", "asn,geo\nAS1,x\n") // no recognized columns
	f.writeSource(t, "scan_ssl-good.csv",
		"timestamp,severity,ip,protocol,port\n"+
			"2024-03-01 10:00:00,High,10.0.0.1,tcp,443\n")
	f.writeSource(t, "notes.txt", "not a source file")

	res, err := Run(f.options())
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesProcessed)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "scan_aaa-bad.csv", res.Skipped[0].Name)

	// Skipped files are not ledgered: they get retried next run.
	ledger, err := store.LoadLedger(f.ledger)
	require.NoError(t, err)
	assert.False(t, ledger.IsProcessed("scan_aaa-bad.csv"))
	assert.True(t, ledger.IsProcessed("scan_ssl-good.csv"))
}

func TestIngestWithinFileSiblingsDoNotCountEachOther(t *testing.T) {
	// Two observations of the same finding inside one file resolve against
	// the same pre-append snapshot, so neither sees the other. Known
	// property of snapshot-at-resolution-time semantics.
	f := newFixture(t)
	f.writeSource(t, "scan_ssl-1.csv",
		"timestamp,severity,ip,protocol,port\n"+
			"2024-03-01 10:00:00,High,10.0.0.1,tcp,443\n"+
			"2024-03-02 10:00:00,High,10.0.0.1,tcp,443\n")

	_, err := Run(f.options())
	require.NoError(t, err)

	s := f.loadStore(t)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, 0, s.Records[0].Recurring)
	assert.Equal(t, 0, s.Records[1].Recurring)
}

func TestIngestFoldsFilesInLexicalOrder(t *testing.T) {
	// Same finding in two files; the lexically later file is folded second
	// and therefore observes the first.
	f := newFixture(t)
	f.writeSource(t, "scan_ssl-b.csv",
		"timestamp,severity,ip,protocol,port\n"+
			"2024-03-02 10:00:00,High,10.0.0.1,tcp,443\n")
	f.writeSource(t, "scan_ssl-a.csv",
		"timestamp,severity,ip,protocol,port\n"+
			"2024-03-01 10:00:00,High,10.0.0.1,tcp,443\n")

	_, err := Run(f.options())
	require.NoError(t, err)

	s := f.loadStore(t)
	require.Equal(t, 2, s.Len())
	// Store is sorted descending, so records[0] is the 03-02 observation
	// from scan_ssl-b.csv, which was folded after scan_ssl-a.csv.
	assert.Equal(t, 1, s.Records[0].Recurring)
	assert.Equal(t, 0, s.Records[1].Recurring)
}

func TestIngestStoreSortedDescendingNullsLast(t *testing.T) {
	f := newFixture(t)
	f.writeSource(t, "scan_mix-1.csv",
		"timestamp,severity,ip,protocol,port\n"+
			"2024-01-01 10:00:00,Low,10.0.0.3,tcp,22\n"+
			"2024-03-01 10:00:00,High,10.0.0.1,tcp,443\n"+
			"2024-02-01 10:00:00,Medium,10.0.0.2,tcp,80\n")

	_, err := Run(f.options())
	require.NoError(t, err)

	s := f.loadStore(t)
	require.Equal(t, 3, s.Len())
	prev := s.Records[0].Timestamp
	for _, r := range s.Records[1:] {
		require.NotNil(t, r.Timestamp)
		assert.False(t, r.Timestamp.After(*prev), "store must be non-increasing by timestamp")
		prev = r.Timestamp
	}
}

func TestIngestReadsXLSXSources(t *testing.T) {
	f := newFixture(t)

	x := excelize.NewFile()
	sheet := x.GetSheetName(0)
	require.NoError(t, x.SetSheetRow(sheet, "A1", &[]interface{}{"timestamp", "severity", "ip", "protocol", "port"}))
	require.NoError(t, x.SetSheetRow(sheet, "A2", &[]interface{}{"2024-03-01 10:00:00", "High", "10.0.0.1", "tcp", "443"}))
	require.NoError(t, x.SaveAs(filepath.Join(f.src, "scan_snmp_public.xlsx")))

	res, err := Run(f.options())
	require.NoError(t, err)
	assert.Equal(t, 1, res.RecordsAdded)

	s := f.loadStore(t)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, "snmp public", s.Records[0].Issue)
}

func TestIngestMissingSourceDirIsAnError(t *testing.T) {
	f := newFixture(t)
	opts := f.options()
	opts.SourceDir = filepath.Join(f.src, "does-not-exist")
	_, err := Run(opts)
	assert.Error(t, err)
}
