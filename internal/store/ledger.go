package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Ledger tracks which source files have already been folded into the store,
// making re-runs over the same source directory idempotent. Persistence is a
// newline-delimited list of file names, append-only; there is no removal.
//
// The ledger is advanced only after the store snapshot persists successfully.
// A crash between the two writes leaves files unledgered and therefore
// reprocessed on the next run: the guarantee is at-least-once, never
// "ledgered but absent from the store".
type Ledger struct {
	path string
	seen map[string]struct{}
}

// LoadLedger reads the ledger at path. A missing file is an empty ledger.
func LoadLedger(path string) (*Ledger, error) {
	l := &Ledger{path: path, seen: make(map[string]struct{})}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name != "" {
			l.seen[name] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", path, err)
	}
	return l, nil
}

// IsProcessed reports whether a source file has already been folded in.
func (l *Ledger) IsProcessed(name string) bool {
	_, ok := l.seen[name]
	return ok
}

// Len returns the number of ledgered files.
func (l *Ledger) Len() int {
	return len(l.seen)
}

// MarkProcessed appends the given file names to the ledger and records them
// in memory. Names already ledgered are skipped.
func (l *Ledger) MarkProcessed(names []string) error {
	fresh := names[:0:0]
	for _, name := range names {
		if !l.IsProcessed(name) {
			fresh = append(fresh, name)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("creating ledger directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening ledger %s: %w", l.path, err)
	}
	defer f.Close()

	for _, name := range fresh {
		if _, err := fmt.Fprintln(f, name); err != nil {
			return fmt.Errorf("appending to ledger: %w", err)
		}
		l.seen[name] = struct{}{}
	}
	return nil
}
