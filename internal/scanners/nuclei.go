package scanners

import (
	"fmt"
	"os"
	"time"

	"github.com/yorozuya-cybersecurity/yoro-recon/internal/jsonutil"
	"github.com/yorozuya-cybersecurity/yoro-recon/internal/schema"
)

// NucleiRecord mirrors the subset of a nuclei JSON export entry the
// pipeline reads. It is only used to write records; ingestion stays
// schema-less so malformed entries can be tolerated field by field.
type NucleiRecord struct {
	Timestamp  string     `json:"timestamp"`
	TemplateID string     `json:"template-id"`
	Info       NucleiInfo `json:"info"`
	Host       string     `json:"host"`
	MatchedAt  string     `json:"matched-at"`
}

type NucleiInfo struct {
	Severity    string `json:"severity"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NoFindingsEntry is the placeholder written when nuclei succeeds without
// reporting anything, so later stages always have a record to report on.
func NoFindingsEntry(now time.Time) NucleiRecord {
	return NucleiRecord{
		Timestamp:  now.Format("2006-01-02 15:04:05"),
		TemplateID: "none",
		Info: NucleiInfo{
			Severity:    "info",
			Name:        "No vulnerabilities found",
			Description: "The nuclei scan completed successfully but found no vulnerabilities.",
		},
		Host:      "none",
		MatchedAt: "none",
	}
}

// Finding converts the record to its normalized form.
func (r NucleiRecord) Finding() schema.Finding {
	return schema.Finding{
		Timestamp:   r.Timestamp,
		TemplateID:  r.TemplateID,
		Severity:    schema.ParseSeverity(r.Info.Severity),
		Host:        r.Host,
		MatchedAt:   r.MatchedAt,
		Name:        r.Info.Name,
		Description: r.Info.Description,
	}
}

// EnsureNucleiOutput makes sure path holds scanner output. When the file
// is missing or empty the NoFindingsEntry placeholder is written and true
// is returned.
func EnsureNucleiOutput(path string, now time.Time) (bool, error) {
	st, err := os.Stat(path)
	if err == nil && st.Size() > 0 {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("stat nuclei output: %w", err)
	}

	data, err := jsonutil.Marshal(NoFindingsEntry(now))
	if err != nil {
		return false, fmt.Errorf("encode placeholder finding: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, fmt.Errorf("write nuclei output: %w", err)
	}
	return true, nil
}
