package pipeline

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yorozuya-cybersecurity/yoro-recon/internal/config"
)

func TestValidateDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		domain string
		ok     bool
	}{
		{"example.com", true},
		{"sub.example.co.uk", true},
		{"localhost", true},
		{"xn--bcher-kva.example", true},
		{"_dmarc.example.com", true},
		{"EXAMPLE.COM", true},
		{"", false},
		{"-d", false},
		{"-example.com", false},
		{"example.com ", false},
		{" example.com", false},
		{"exa mple.com", false},
		{"example..com", false},
		{"example.com.", false},
		{"a-.com", false},
		{"ex*ample.com", false},
		{"example.com;id", false},
		{"https://example.com", false},
		{strings.Repeat("a", 64) + ".com", false},
		{strings.Repeat("a.", 127) + "com", false},
	}
	for _, tt := range tests {
		err := ValidateDomain(tt.domain)
		if tt.ok {
			assert.NoError(t, err, tt.domain)
		} else {
			assert.ErrorIs(t, err, ErrInvalidDomain, tt.domain)
		}
	}
}

func TestResolveOutputDir(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Output = "out"
	assert.Equal(t, "out", ResolveOutputDir(cfg, "example.com", fixedNow))

	cfg.Layout = config.LayoutTimestamped
	assert.Equal(t, filepath.Join("out", "example.com_20240101_100000"), ResolveOutputDir(cfg, "example.com", fixedNow))
}

func TestNewArtifacts(t *testing.T) {
	t.Parallel()

	art := NewArtifacts("root", "run", "example.com")
	assert.Equal(t, "run", art.Dir)
	assert.Equal(t, "root", art.IndexDir)
	assert.Equal(t, filepath.Join("run", "example.com_subdomains.txt"), art.Subdomains)
	assert.Equal(t, filepath.Join("run", "example.com_live_hosts.txt"), art.LiveHosts)
	assert.Equal(t, filepath.Join("run", "example.com_nuclei_results.json"), art.NucleiResults)
	assert.Equal(t, filepath.Join("run", "example.com_nuclei_results.csv"), art.CSV)
	assert.Equal(t, filepath.Join("run", "example.com_nuclei_report.html"), art.HTML)
	assert.Equal(t, filepath.Join("run", "example.com_nuclei_report.pdf"), art.PDF)
	assert.Equal(t, filepath.Join("run", "example.com_metrics.prom"), art.Metrics)
}

func TestStageTerminal(t *testing.T) {
	t.Parallel()

	for _, s := range []Stage{StageEnumerate, StageProbe, StageScan, StageExport} {
		assert.False(t, s.Terminal(), s.String())
	}
	assert.True(t, StageDone.Terminal())
	assert.True(t, StageFailed.Terminal())
}

func TestIndexDirFor(t *testing.T) {
	t.Parallel()

	run := filepath.Join("out", "example.com_20240101_100000")
	assert.Equal(t, "out", IndexDirFor(run, "example.com"))
	assert.Equal(t, "out", IndexDirFor(run+string(filepath.Separator), "example.com"))
	assert.Equal(t, "out", IndexDirFor("out", "example.com"))
	assert.Equal(t, run, IndexDirFor(run, "other.com"))
	assert.Equal(t, filepath.Join("out", "example.com_latest"), IndexDirFor(filepath.Join("out", "example.com_latest"), "example.com"))
}
