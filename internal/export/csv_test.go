package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorozuya-cybersecurity/yoro-recon/internal/schema"
)

func readBack(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteCSVHeaderAndRow(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := WriteCSV(&buf, []schema.Finding{{
		Timestamp:   "2024-01-01",
		TemplateID:  "t1",
		Severity:    schema.SeverityHigh,
		Host:        "h1",
		MatchedAt:   "h1/a",
		Name:        "X<ss>",
		Description: "d",
	}}, CSVOptions{})
	require.NoError(t, err)

	records := readBack(t, buf.Bytes())
	require.Len(t, records, 2)
	assert.Equal(t, []string{"timestamp", "templateId", "severity", "host", "matchedAt", "name", "description"}, records[0])
	assert.Equal(t, []string{"2024-01-01", "t1", "high", "h1", "h1/a", "X<ss>", "d"}, records[1])
}

func TestWriteCSVMissingFieldsAreEmptyCells(t *testing.T) {
	t.Parallel()

	findings := []schema.Finding{
		{},
		{Host: "only-host"},
		{Name: "n", Severity: "bogus"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, findings, CSVOptions{}))

	records := readBack(t, buf.Bytes())
	require.Len(t, records, len(findings)+1)
	for _, r := range records {
		assert.Len(t, r, len(Columns))
	}
	assert.Equal(t, []string{"", "", "info", "", "", "", ""}, records[1])
	assert.Equal(t, "only-host", records[2][3])
	assert.Equal(t, "info", records[3][2])
}

func TestWriteCSVRoundTripsSpecialCharacters(t *testing.T) {
	t.Parallel()

	nasty := schema.Finding{
		Name:        `quote " and comma ,`,
		Description: "multi\nline\r\ndescription",
		Host:        `"quoted"`,
		MatchedAt:   "a,b;c",
		Severity:    schema.SeverityLow,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []schema.Finding{nasty}, CSVOptions{}))

	records := readBack(t, buf.Bytes())
	require.Len(t, records, 2)
	assert.Equal(t, nasty.Name, records[1][5])
	assert.Equal(t, "multi\nline\ndescription", records[1][6], "encoding/csv normalizes \\r\\n inside quoted fields")
	assert.Equal(t, nasty.Host, records[1][3])
	assert.Equal(t, nasty.MatchedAt, records[1][4])
}

func TestWriteCSVNoFindings(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil, CSVOptions{}))
	assert.Len(t, readBack(t, buf.Bytes()), 1)
}

func TestSanitizeFormulas(t *testing.T) {
	t.Parallel()

	f := schema.Finding{Name: "=HYPERLINK(\"x\")", Host: "+1", MatchedAt: "@SUM", Description: "-2", TemplateID: "safe"}

	var plain, safe bytes.Buffer
	require.NoError(t, WriteCSV(&plain, []schema.Finding{f}, CSVOptions{}))
	require.NoError(t, WriteCSV(&safe, []schema.Finding{f}, CSVOptions{SanitizeFormulas: true}))

	assert.Equal(t, f.Name, readBack(t, plain.Bytes())[1][5])

	row := readBack(t, safe.Bytes())[1]
	assert.Equal(t, "'=HYPERLINK(\"x\")", row[5])
	assert.Equal(t, "'+1", row[3])
	assert.Equal(t, "'@SUM", row[4])
	assert.Equal(t, "'-2", row[6])
	assert.Equal(t, "safe", row[1])
}

func TestWriteCSVFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteCSVFile(path, []schema.Finding{{Host: "h"}}, CSVOptions{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, readBack(t, data), 2)

	err = WriteCSVFile(filepath.Join(t.TempDir(), "missing", "out.csv"), nil, CSVOptions{})
	assert.Error(t, err)
}
