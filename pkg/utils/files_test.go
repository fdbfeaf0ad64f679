package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/yorozuya-cybersecurity/yoro-recon/internal/jsonutil"
	"github.com/yorozuya-cybersecurity/yoro-recon/internal/schema"
)

func sampleResult() schema.ScanResult {
	tally := schema.NewSeverityTally()
	tally.Add(schema.SeverityHigh)
	return schema.ScanResult{
		RunID:     "6f1c0d9e-1111-4222-8333-444455556666",
		Target:    "example.com",
		Timestamp: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		LiveHosts: []string{"https://example.com"},
		Tally:     tally,
		Findings: []schema.Finding{{
			TemplateID: "t1",
			Severity:   schema.SeverityHigh,
			Host:       "h1",
			Name:       "X<ss>",
		}},
	}
}

func TestRunDir(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, filepath.Join("out", "example.com_20240102_030405"), RunDir("out", "example.com", ts))
	assert.Equal(t, filepath.Join("out", "a_b_20240102_030405"), RunDir("out", "a/b", ts))
}

func TestSafeName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "example.com", SafeName("example.com"))
	assert.Equal(t, "a_b_c_d_e", SafeName(`a/b\c:d*e`))
	assert.Equal(t, "_x__y_", SafeName(`"x<>y|`))
}

func TestSaveResultJSON(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested")
	path, err := SaveResult(sampleResult(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "example.com_findings.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got schema.ScanResult
	require.NoError(t, jsonutil.Unmarshal(data, &got))
	assert.Equal(t, "example.com", got.Target)
	assert.Equal(t, 1, got.Tally.Count(schema.SeverityHigh))
	require.Len(t, got.Findings, 1)
	assert.Equal(t, "X<ss>", got.Findings[0].Name)
	assert.Contains(t, string(data), `"template_id": "t1"`)
}

func TestSaveResultYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := SaveResultYAML(sampleResult(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "example.com_findings.yaml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, "example.com", got["target"])
	assert.Contains(t, string(data), "template_id: t1")
}

func TestSaveResultIsStable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p1, err := SaveResult(sampleResult(), dir)
	require.NoError(t, err)
	first, err := os.ReadFile(p1)
	require.NoError(t, err)

	p2, err := SaveResult(sampleResult(), dir)
	require.NoError(t, err)
	second, err := os.ReadFile(p2)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestReadLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "live.txt")
	require.NoError(t, os.WriteFile(path, []byte("h1\n\n  h2  \r\n\t\nh3"), 0644))

	lines, err := ReadLines(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"h1", "h2", "h3"}, lines)

	_, err = ReadLines(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "res.json")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))
	require.NoError(t, Truncate(path))

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, st.Size())

	fresh := filepath.Join(t.TempDir(), "new.json")
	require.NoError(t, Truncate(fresh))
	assert.FileExists(t, fresh)
}

func TestTouch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	existing := filepath.Join(dir, "subs.txt")
	require.NoError(t, os.WriteFile(existing, []byte("a.example.com\n"), 0644))
	require.NoError(t, Touch(existing))

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "a.example.com\n", string(data))

	missing := filepath.Join(dir, "live.txt")
	require.NoError(t, Touch(missing))
	assert.FileExists(t, missing)
}
