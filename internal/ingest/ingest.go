// Package ingest turns nuclei's JSON export into normalized findings.
//
// The export may be a single JSON document (an array or one object),
// newline-delimited JSON, empty, or partially corrupt. Parsing first tries
// the whole document and falls back to independent line-by-line parsing;
// bad records are skipped with a diagnostic and never abort the batch.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yorozuya-cybersecurity/yoro-recon/internal/console"
	"github.com/yorozuya-cybersecurity/yoro-recon/internal/jsonutil"
	"github.com/yorozuya-cybersecurity/yoro-recon/internal/schema"
)

// ErrNotObject is reported for records that are valid JSON but not objects.
var ErrNotObject = errors.New("ingest: record is not a JSON object")

// Mode records which strategy produced a Result.
type Mode int

const (
	Failed Mode = iota
	ParsedAsDocument
	ParsedAsLines
)

func (m Mode) String() string {
	switch m {
	case ParsedAsDocument:
		return "document"
	case ParsedAsLines:
		return "lines"
	default:
		return "failed"
	}
}

// Result is the outcome of parsing one results file. Skipped counts
// records or lines that could not be turned into a finding.
type Result struct {
	Mode     Mode
	Findings []schema.Finding
	Skipped  int
}

// ParseFile reads path and parses it. Only a read failure is an error.
func ParseFile(path string, log *console.Console) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Mode: Failed}, fmt.Errorf("read results %s: %w", path, err)
	}
	return Parse(data, log), nil
}

// Parse never fails; inspect Result.Mode and Result.Skipped instead.
func Parse(data []byte, log *console.Console) Result {
	if res, ok := parseDocument(data, log); ok {
		return res
	}
	if len(bytes.TrimSpace(data)) > 0 {
		log.Warnf("Could not parse file as single JSON, trying line by line...")
	}
	return parseLines(data, log)
}

// parseDocument treats data as one JSON value. ok is false when data is
// not a single valid JSON value.
func parseDocument(data []byte, log *console.Console) (Result, bool) {
	var doc any
	if err := jsonutil.UnmarshalLenient(data, &doc); err != nil {
		return Result{}, false
	}

	records, isArray := doc.([]any)
	if !isArray {
		records = []any{doc}
	}

	res := Result{Mode: ParsedAsDocument}
	for i, rec := range records {
		f, err := FromRecord(rec)
		if err != nil {
			log.Warnf("Error processing finding #%d: %v", i+1, err)
			res.Skipped++
			continue
		}
		res.Findings = append(res.Findings, f)
	}
	return res, true
}

// parseLines parses each non-blank line on its own.
func parseLines(data []byte, log *console.Console) Result {
	res := Result{Mode: ParsedAsLines}

	for i, raw := range bytes.Split(data, []byte("\n")) {
		lineNo := i + 1
		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}

		var rec any
		if err := jsonutil.UnmarshalLenient(line, &rec); err != nil {
			log.Warnf("Error processing line %d: %s", lineNo, preview(line))
			log.Debugf("line %d: %v", lineNo, err)
			res.Skipped++
			continue
		}
		f, err := FromRecord(rec)
		if err != nil {
			log.Warnf("Error processing line %d: %v", lineNo, err)
			res.Skipped++
			continue
		}
		res.Findings = append(res.Findings, f)
	}
	if len(res.Findings) == 0 && res.Skipped > 0 {
		res.Mode = Failed
	}
	return res
}

// FromRecord extracts a finding from one decoded JSON value. Absent or
// non-scalar fields become empty strings; a missing or unknown severity
// becomes info. Only a non-object record is rejected.
func FromRecord(rec any) (schema.Finding, error) {
	obj, ok := rec.(map[string]any)
	if !ok {
		return schema.Finding{}, fmt.Errorf("%w (got %s)", ErrNotObject, kind(rec))
	}

	info, _ := obj["info"].(map[string]any)

	return schema.Finding{
		Timestamp:   field(obj, "timestamp"),
		TemplateID:  field(obj, "template-id"),
		Severity:    schema.ParseSeverity(field(info, "severity")),
		Host:        field(obj, "host"),
		MatchedAt:   field(obj, "matched-at"),
		Name:        field(info, "name"),
		Description: field(info, "description"),
	}, nil
}

// field returns m[key] as a string. Scalars are formatted; anything else
// (absent, null, object, array) is empty.
func field(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "bool"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func preview(line []byte) string {
	const limit = 120
	if len(line) > limit*utf8.UTFMax {
		line = line[:limit*utf8.UTFMax]
	}
	r := []rune(strings.ToValidUTF8(string(line), "?"))
	if len(r) <= limit {
		return string(r)
	}
	return string(r[:limit]) + "..."
}
