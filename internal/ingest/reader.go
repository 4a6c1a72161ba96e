package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/shadowops/shintel/internal/normalize"
)

// IsSourceFile reports whether a file name looks like a scan export the
// engine can read.
func IsSourceFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// readTable reads a source file into a raw table. CSV and xlsx are the two
// shapes the retrieval collaborator deposits.
func readTable(path string) (normalize.Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readXLSX(path)
	}
	return readCSV(path)
}

func readCSV(path string) (normalize.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return normalize.Table{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // scan exports are frequently ragged
	rows, err := reader.ReadAll()
	if err != nil {
		return normalize.Table{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(rows) == 0 {
		return normalize.Table{}, nil
	}
	return normalize.Table{Header: rows[0], Rows: rows[1:]}, nil
}

func readXLSX(path string) (normalize.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return normalize.Table{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return normalize.Table{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return normalize.Table{}, fmt.Errorf("reading sheet %q of %s: %w", sheets[0], path, err)
	}
	if len(rows) == 0 {
		return normalize.Table{}, nil
	}
	return normalize.Table{Header: rows[0], Rows: rows[1:]}, nil
}
