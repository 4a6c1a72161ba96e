// Package split partitions a persisted store into one file per /24 network,
// grouping records by the first three octets of their IP address. Records
// whose address cannot be prefixed land in a dedicated invalid-IP file
// rather than being dropped.
package split

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/shadowops/shintel/internal/store"
	"github.com/shadowops/shintel/internal/types"
)

// InvalidFile is the output file collecting records without a usable IP.
const InvalidFile = "records_with_invalid_ips.csv"

// Result summarizes a split run.
type Result struct {
	Files   int
	Records int
	Invalid int
}

// Prefix returns the /24 grouping prefix of an address, or "" when the
// value has fewer than three dot-separated parts. The address is treated as
// an opaque string; octet validity is not checked, matching how the rest of
// the system relies on IP purely for grouping.
func Prefix(ip string) string {
	ip = strings.TrimSpace(ip)
	parts := strings.Split(ip, ".")
	if len(parts) < 3 {
		return ""
	}
	return strings.Join(parts[:3], ".")
}

// Run reads the store at storePath and writes one CSV per /24 prefix into
// outDir, each with the canonical header and the store's record order
// preserved.
func Run(storePath, outDir string) (*Result, error) {
	st, err := store.Load(storePath)
	if err != nil {
		return nil, err
	}

	var order []string
	groups := make(map[string][]types.Record)
	result := &Result{Records: st.Len()}
	for _, rec := range st.Records {
		name := InvalidFile
		if prefix := Prefix(rec.IP); prefix != "" {
			name = strings.ReplaceAll(prefix, ".", "_") + ".csv"
		} else {
			result.Invalid++
		}
		if _, seen := groups[name]; !seen {
			order = append(order, name)
		}
		groups[name] = append(groups[name], rec)
	}

	for _, name := range order {
		part := &store.Store{Records: groups[name]}
		path := filepath.Join(outDir, name)
		if err := part.Persist(path); err != nil {
			return nil, fmt.Errorf("writing %s: %w", name, err)
		}
		result.Files++
		log.Printf("[SPLIT] wrote %d record(s) to %s", part.Len(), name)
	}
	return result, nil
}
