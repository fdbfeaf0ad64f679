package schema

import "strings"

// Severity is the normalized nuclei severity label
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Severities lists every recognized level, most urgent first.
var Severities = []Severity{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
	SeverityInfo,
}

var severityColors = map[Severity]string{
	SeverityCritical: "#e74c3c",
	SeverityHigh:     "#e67e22",
	SeverityMedium:   "#f1c40f",
	SeverityLow:      "#3498db",
	SeverityInfo:     "#2ecc71",
}

// ParseSeverity folds a raw scanner value into a recognized level.
// Empty or unknown values become info.
func ParseSeverity(s string) Severity {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if sev.IsValid() {
		return sev
	}
	return SeverityInfo
}

func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	}
	return false
}

// Score orders severities: critical=5 ... info=1, unknown=0.
func (s Severity) Score() int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// Color returns the badge colour; unknown levels use the info colour.
func (s Severity) Color() string {
	if c, ok := severityColors[s]; ok {
		return c
	}
	return severityColors[SeverityInfo]
}

func (s Severity) String() string {
	return string(s)
}

// SeverityTally counts findings per level. All five levels are always present.
type SeverityTally map[Severity]int

func NewSeverityTally() SeverityTally {
	t := make(SeverityTally, len(Severities))
	for _, s := range Severities {
		t[s] = 0
	}
	return t
}

// Add normalizes sev and increments its bucket.
func (t SeverityTally) Add(sev Severity) {
	t[ParseSeverity(string(sev))]++
}

func (t SeverityTally) Count(sev Severity) int {
	return t[sev]
}

func (t SeverityTally) Total() int {
	total := 0
	for _, c := range t {
		total += c
	}
	return total
}
