package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wonny/twscan/internal/contracts"
)

// utf8BOM lets spreadsheet apps detect UTF-8 (the memo and emoji columns)
const utf8BOM = "\ufeff"

// CSVSink overwrites a CSV file with the latest report
type CSVSink struct {
	path string
}

// NewCSVSink writes to path
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

// Name implements contracts.ReportSink
func (s *CSVSink) Name() string { return "csv" }

// Write implements contracts.ReportSink. The file is replaced atomically.
func (s *CSVSink) Write(ctx context.Context, r *contracts.ScanReport) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("csv: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".report-*.csv")
	if err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(utf8BOM); err != nil {
		tmp.Close()
		return fmt.Errorf("csv: %w", err)
	}

	w := csv.NewWriter(tmp)
	records := [][]string{Header}
	for _, row := range Rows(r) {
		records = append(records, row.Strings())
	}
	if err := w.WriteAll(records); err != nil {
		tmp.Close()
		return fmt.Errorf("csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("csv: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	return nil
}
