package schema

import (
	"strings"
	"time"
)

// Finding is one normalized nuclei result. String fields hold the raw
// scanner value; absent fields are empty.
type Finding struct {
	Timestamp   string   `json:"timestamp" yaml:"timestamp"`
	TemplateID  string   `json:"template_id" yaml:"template_id"`
	Severity    Severity `json:"severity" yaml:"severity"`
	Host        string   `json:"host" yaml:"host"`
	MatchedAt   string   `json:"matched_at" yaml:"matched_at"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
}

// Title is the display name, "Unknown" when the scanner gave none.
func (f Finding) Title() string {
	return fallback(f.Name, "Unknown")
}

// Display substitutes "N/A" for an empty display field.
func Display(v string) string {
	return fallback(v, "N/A")
}

// ScanResult groups everything one run produced
type ScanResult struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	Target    string        `json:"target" yaml:"target"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
	LiveHosts []string      `json:"live_hosts" yaml:"live_hosts"`
	Tally     SeverityTally `json:"tally" yaml:"tally"`
	Findings  []Finding     `json:"findings" yaml:"findings"`
}

func fallback(s, fb string) string {
	if strings.TrimSpace(s) == "" {
		return fb
	}
	return s
}
