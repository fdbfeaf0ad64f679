// Package export writes normalized findings to flat artifacts.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/yorozuya-cybersecurity/yoro-recon/internal/schema"
)

// Columns is the fixed CSV header. Every row has exactly these cells, in
// this order.
var Columns = []string{
	"timestamp",
	"templateId",
	"severity",
	"host",
	"matchedAt",
	"name",
	"description",
}

type CSVOptions struct {
	// SanitizeFormulas prefixes cells starting with = + - @ TAB or CR with a
	// single quote so spreadsheets do not evaluate them.
	SanitizeFormulas bool
}

// WriteCSV writes the header and one row per finding. Missing values are
// empty cells; quoting follows RFC 4180.
func WriteCSV(w io.Writer, findings []schema.Finding, opts CSVOptions) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, f := range findings {
		if err := cw.Write(row(f, opts)); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteCSVFile creates (or truncates) path and writes findings to it.
func WriteCSVFile(path string, findings []schema.Finding, opts CSVOptions) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(fh, findings, opts); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

func row(f schema.Finding, opts CSVOptions) []string {
	cells := []string{
		f.Timestamp,
		f.TemplateID,
		string(schema.ParseSeverity(string(f.Severity))),
		f.Host,
		f.MatchedAt,
		f.Name,
		f.Description,
	}
	if opts.SanitizeFormulas {
		for i := range cells {
			cells[i] = sanitizeFormula(cells[i])
		}
	}
	return cells
}

func sanitizeFormula(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
