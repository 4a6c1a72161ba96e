package ingest

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/shadowops/shintel/internal/normalize"
	"github.com/shadowops/shintel/internal/store"
	"github.com/shadowops/shintel/internal/types"
)

// FileOrder selects the order source files are folded in. Tie-breaks in
// recurrence resolution depend on fold order, so the ordering is an explicit
// parameter rather than whatever the OS directory listing happens to return.
type FileOrder string

const (
	// OrderName folds files in lexical file-name order. The default;
	// reproducible across runs and machines.
	OrderName FileOrder = "name"

	// OrderMtime folds files oldest-modified first. Closer to arrival
	// order when the fetcher deposits files over time.
	OrderMtime FileOrder = "mtime"
)

// Options configures one ingest run.
type Options struct {
	SourceDir  string
	StorePath  string
	LedgerPath string
	Order      FileOrder
}

// SkippedFile records one source file excluded from a run and why. Skipped
// files are not ledgered and will be retried on the next run.
type SkippedFile struct {
	Name   string
	Reason string
}

// Result summarizes one ingest run.
type Result struct {
	RunID string

	// FilesProcessed is the number of files folded into the store.
	FilesProcessed int

	// FilesLedgered is the number of files skipped because a prior run
	// already folded them in.
	FilesLedgered int

	// Skipped lists files excluded from this run with reasons.
	Skipped []SkippedFile

	// RecordsAdded is the number of records appended to the store.
	RecordsAdded int

	// RowsRejected counts source rows dropped at admission for missing
	// natural-key fields or an unparsable timestamp.
	RowsRejected int

	// StoreSize is the record count of the persisted snapshot.
	StoreSize int
}

// Run executes one ingest run: load store and ledger, fold each unledgered
// source file in order, sort, persist, then advance the ledger.
//
// Per-file failures skip the file and continue. A store persist failure is
// fatal and leaves the ledger untouched, so every file folded this run is
// reprocessed next time (at-least-once).
func Run(opts Options) (*Result, error) {
	if opts.Order == "" {
		opts.Order = OrderName
	}
	result := &Result{RunID: uuid.New().String()}

	st, err := store.Load(opts.StorePath)
	if err != nil {
		return nil, err
	}
	ledger, err := store.LoadLedger(opts.LedgerPath)
	if err != nil {
		return nil, err
	}

	names, err := listSourceFiles(opts.SourceDir, opts.Order)
	if err != nil {
		return nil, err
	}
	log.Printf("[INGEST] run %s: %d candidate file(s) in %s, %d already ledgered",
		result.RunID, len(names), opts.SourceDir, ledger.Len())

	var folded []string
	for _, name := range names {
		if ledger.IsProcessed(name) {
			result.FilesLedgered++
			continue
		}

		batch, rejected, err := loadBatch(filepath.Join(opts.SourceDir, name), name, st.Records)
		result.RowsRejected += rejected
		if err != nil {
			log.Printf("[INGEST] skipping %s: %v", name, err)
			result.Skipped = append(result.Skipped, SkippedFile{Name: name, Reason: err.Error()})
			continue
		}

		st.Append(batch)
		folded = append(folded, name)
		result.FilesProcessed++
		result.RecordsAdded += len(batch)
		log.Printf("[INGEST] folded %s: %d record(s)", name, len(batch))
	}

	st.Sort()
	if err := st.Persist(opts.StorePath); err != nil {
		// Ledger deliberately not advanced: the files folded this run
		// never made it to disk and must be reprocessed.
		return nil, fmt.Errorf("persisting store: %w", err)
	}
	if err := ledger.MarkProcessed(folded); err != nil {
		return nil, fmt.Errorf("updating ledger: %w", err)
	}

	result.StoreSize = st.Len()
	return result, nil
}

// loadBatch reads one source file and produces its resolved, admission-
// checked batch. The returned rejected count is meaningful even on error.
func loadBatch(path, name string, snapshot []types.Record) ([]types.Record, int, error) {
	tbl, err := readTable(path)
	if err != nil {
		return nil, 0, err
	}
	records, err := normalize.Records(tbl)
	if err != nil {
		return nil, 0, err
	}

	issue := normalize.IssueFromFilename(name)
	rejected := 0
	batch := make([]types.Record, 0, len(records))
	for _, rec := range records {
		rec.State = types.StateOpen
		rec.Issue = issue
		rec.Recurring = 0

		if !rec.NaturalKey().HasCompleteKey() || rec.Timestamp == nil {
			rejected++
			continue
		}
		// Resolve against the pre-append snapshot: rows within this
		// file do not observe each other.
		rec.Recurring = ResolveRecurrence(snapshot, &rec)
		batch = append(batch, rec)
	}
	if len(batch) == 0 {
		return nil, rejected, errors.New("no admissible rows")
	}
	return batch, rejected, nil
}

// listSourceFiles returns the readable source files of dir in the requested
// order. A missing source directory is an error: there is nothing to ingest
// and the operator almost certainly mistyped a path.
func listSourceFiles(dir string, order FileOrder) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing source directory: %w", err)
	}

	type candidate struct {
		name  string
		mtime int64
	}
	var files []candidate
	for _, e := range entries {
		if e.IsDir() || !IsSourceFile(e.Name()) {
			continue
		}
		c := candidate{name: e.Name()}
		if order == OrderMtime {
			info, err := e.Info()
			if err != nil {
				return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
			}
			c.mtime = info.ModTime().UnixNano()
		}
		files = append(files, c)
	}

	switch order {
	case OrderMtime:
		sort.SliceStable(files, func(i, j int) bool { return files[i].mtime < files[j].mtime })
	case OrderName:
		sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	default:
		return nil, fmt.Errorf("unknown file order %q", order)
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.name
	}
	return names, nil
}
