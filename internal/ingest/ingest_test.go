package ingest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorozuya-cybersecurity/yoro-recon/internal/console"
	"github.com/yorozuya-cybersecurity/yoro-recon/internal/schema"
)

const sampleRecord = `{"timestamp":"2024-01-01","template-id":"t1","info":{"severity":"high","name":"X<ss>","description":"d"},"host":"h1","matched-at":"h1/a"}`

func quiet() *console.Console { return console.Discard() }

func TestParseSampleArray(t *testing.T) {
	t.Parallel()

	res := Parse([]byte("["+sampleRecord+"]"), quiet())
	require.Equal(t, ParsedAsDocument, res.Mode)
	require.Len(t, res.Findings, 1)
	assert.Zero(t, res.Skipped)

	assert.Equal(t, schema.Finding{
		Timestamp:   "2024-01-01",
		TemplateID:  "t1",
		Severity:    schema.SeverityHigh,
		Host:        "h1",
		MatchedAt:   "h1/a",
		Name:        "X<ss>",
		Description: "d",
	}, res.Findings[0])
}

func TestParseSingleObject(t *testing.T) {
	t.Parallel()

	res := Parse([]byte(sampleRecord), quiet())
	assert.Equal(t, ParsedAsDocument, res.Mode)
	assert.Len(t, res.Findings, 1)
}

func TestParseLineDelimited(t *testing.T) {
	t.Parallel()

	data := sampleRecord + "\n" + `{"host":"h2","info":{"severity":"low"}}` + "\n\n"
	res := Parse([]byte(data), quiet())

	assert.Equal(t, ParsedAsLines, res.Mode)
	require.Len(t, res.Findings, 2)
	assert.Equal(t, "h1", res.Findings[0].Host)
	assert.Equal(t, "h2", res.Findings[1].Host)
	assert.Equal(t, schema.SeverityLow, res.Findings[1].Severity)
	assert.Zero(t, res.Skipped)
}

func TestParseValidAndMalformedCounts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		valid     int
		malformed int
	}{
		{0, 0},
		{1, 1},
		{3, 2},
		{5, 5},
		{10, 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_valid_%d_bad", tt.valid, tt.malformed), func(t *testing.T) {
			t.Parallel()

			var lines []string
			v, m := 0, 0
			for v < tt.valid || m < tt.malformed {
				if v < tt.valid {
					lines = append(lines, fmt.Sprintf(`{"template-id":"t%d","host":"h%d"}`, v, v))
					v++
				}
				if m < tt.malformed {
					lines = append(lines, fmt.Sprintf(`{"broken": %d,`, m))
					m++
				}
			}

			var buf bytes.Buffer
			res := Parse([]byte(strings.Join(lines, "\n")), console.New(&buf, false))

			assert.Len(t, res.Findings, tt.valid)
			assert.Equal(t, tt.malformed, res.Skipped)
			assert.Equal(t, tt.malformed, strings.Count(buf.String(), "Error processing line"))
			for i, f := range res.Findings {
				assert.Equal(t, fmt.Sprintf("t%d", i), f.TemplateID, "file order must be preserved")
			}
		})
	}
}

func TestParseOversizedLineKeepsLaterRecords(t *testing.T) {
	t.Parallel()

	var data []byte
	data = append(data, `{"template-id":"before"}`+"\n"...)
	data = append(data, bytes.Repeat([]byte("x"), 65<<20)...)
	data = append(data, "\n"+`{"template-id":"after1"}`+"\n"+`{"template-id":"after2"}`...)

	res := Parse(data, quiet())

	assert.Equal(t, ParsedAsLines, res.Mode)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Findings, 3)
	assert.Equal(t, "after2", res.Findings[2].TemplateID)
}

func TestParseNilConsole(t *testing.T) {
	t.Parallel()

	var res Result
	require.NotPanics(t, func() {
		res = Parse([]byte("not json\n"+sampleRecord+"\n"), nil)
	})
	assert.Len(t, res.Findings, 1)
	assert.Equal(t, 1, res.Skipped)
}

func TestParseNonObjectRecords(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	res := Parse([]byte(`[`+sampleRecord+`, 42, "text", null, [1], {"host":"h9"}]`), console.New(&buf, false))

	assert.Equal(t, ParsedAsDocument, res.Mode)
	assert.Len(t, res.Findings, 2)
	assert.Equal(t, 4, res.Skipped)
	assert.Contains(t, buf.String(), "not a JSON object (got number)")
	assert.Contains(t, buf.String(), "(got null)")
}

func TestParseScalarDocument(t *testing.T) {
	t.Parallel()

	res := Parse([]byte(`"just a string"`), quiet())
	assert.Equal(t, ParsedAsDocument, res.Mode)
	assert.Empty(t, res.Findings)
	assert.Equal(t, 1, res.Skipped)
}

func TestParseNonObjectLine(t *testing.T) {
	t.Parallel()

	res := Parse([]byte(sampleRecord+"\n[1,2]\n"), quiet())
	assert.Equal(t, ParsedAsLines, res.Mode)
	assert.Len(t, res.Findings, 1)
	assert.Equal(t, 1, res.Skipped)
}

func TestParseEmpty(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "\n\n"} {
		var buf bytes.Buffer
		res := Parse([]byte(in), console.New(&buf, false))
		assert.Equal(t, ParsedAsLines, res.Mode)
		assert.Empty(t, res.Findings)
		assert.Zero(t, res.Skipped)
		assert.Empty(t, buf.String(), "empty input is not worth a diagnostic")
	}
}

func TestParseGarbage(t *testing.T) {
	t.Parallel()

	res := Parse([]byte("not json\nalso not json\n"), quiet())
	assert.Equal(t, Failed, res.Mode)
	assert.Empty(t, res.Findings)
	assert.Equal(t, 2, res.Skipped)
}

func TestParseTolerantDecoding(t *testing.T) {
	t.Parallel()

	res := Parse([]byte(`{"host":"a","host":"b","info":{"name":"dup"}}`), quiet())
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "dup", res.Findings[0].Name)
}

func TestFromRecordDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rec  map[string]any
		want schema.Finding
	}{
		{
			name: "empty object",
			rec:  map[string]any{},
			want: schema.Finding{Severity: schema.SeverityInfo},
		},
		{
			name: "info not an object",
			rec:  map[string]any{"info": "high", "host": "h"},
			want: schema.Finding{Severity: schema.SeverityInfo, Host: "h"},
		},
		{
			name: "unknown severity folds to info",
			rec:  map[string]any{"info": map[string]any{"severity": "urgent"}},
			want: schema.Finding{Severity: schema.SeverityInfo},
		},
		{
			name: "mixed case severity",
			rec:  map[string]any{"info": map[string]any{"severity": "CRITICAL"}},
			want: schema.Finding{Severity: schema.SeverityCritical},
		},
		{
			name: "scalars formatted, nested dropped",
			rec: map[string]any{
				"timestamp":   float64(1704067200),
				"template-id": true,
				"host":        map[string]any{"ip": "1.2.3.4"},
				"matched-at":  nil,
			},
			want: schema.Finding{
				Timestamp:  "1704067200",
				TemplateID: "true",
				Severity:   schema.SeverityInfo,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := FromRecord(tt.rec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromRecordRejectsNonObject(t *testing.T) {
	t.Parallel()

	for _, rec := range []any{nil, "s", float64(1), true, []any{}} {
		_, err := FromRecord(rec)
		assert.ErrorIs(t, err, ErrNotObject)
	}
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "res.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleRecord), 0644))

	res, err := ParseFile(path, quiet())
	require.NoError(t, err)
	assert.Len(t, res.Findings, 1)

	_, err = ParseFile(filepath.Join(dir, "missing.json"), quiet())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestModeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "document", ParsedAsDocument.String())
	assert.Equal(t, "lines", ParsedAsLines.String())
	assert.Equal(t, "failed", Failed.String())
}
