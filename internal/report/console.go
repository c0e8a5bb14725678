package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/wonny/twscan/internal/contracts"
)

// ConsoleSink prints the report as an aligned table
type ConsoleSink struct {
	w io.Writer
}

// NewConsoleSink writes to w (usually os.Stdout)
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

// Name implements contracts.ReportSink
func (s *ConsoleSink) Name() string { return "console" }

// Write implements contracts.ReportSink
func (s *ConsoleSink) Write(ctx context.Context, r *contracts.ScanReport) error {
	fmt.Fprintln(s.w, "\n--- Daily Market Report ---")

	tw := tabwriter.NewWriter(s.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(Header, "\t"))
	for _, row := range Rows(r) {
		fmt.Fprintln(tw, strings.Join(row.Strings(), "\t"))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("console: %w", err)
	}

	for _, sk := range r.Skipped {
		fmt.Fprintf(s.w, "skipped %s: %s\n", sk.Code, sk.Reason)
	}
	return nil
}
