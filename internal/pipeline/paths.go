package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"github.com/yorozuya-cybersecurity/yoro-recon/internal/config"
	"github.com/yorozuya-cybersecurity/yoro-recon/internal/report"
	"github.com/yorozuya-cybersecurity/yoro-recon/pkg/utils"
)

var ErrInvalidDomain = errors.New("invalid domain")

var domainPattern = regexp.MustCompile(`^[A-Za-z0-9_](?:[A-Za-z0-9_-]{0,61}[A-Za-z0-9])?(?:\.[A-Za-z0-9_](?:[A-Za-z0-9_-]{0,61}[A-Za-z0-9])?)*$`)

// ValidateDomain rejects anything that is not a plain hostname before it is
// handed to a tool as an argument.
func ValidateDomain(domain string) error {
	switch {
	case domain == "":
		return fmt.Errorf("%w: empty", ErrInvalidDomain)
	case len(domain) > 253:
		return fmt.Errorf("%w: longer than 253 characters", ErrInvalidDomain)
	case domain[0] == '-':
		return fmt.Errorf("%w: %q starts with '-'", ErrInvalidDomain, domain)
	case !domainPattern.MatchString(domain):
		return fmt.Errorf("%w: %q is not a hostname", ErrInvalidDomain, domain)
	}
	return nil
}

// ResolveOutputDir picks the directory one run writes into. It is called
// once per run so every artifact lands in the same place.
func ResolveOutputDir(cfg config.Config, domain string, now time.Time) string {
	if cfg.Layout == config.LayoutTimestamped {
		return utils.RunDir(cfg.Output, domain, now)
	}
	return cfg.Output
}

// IndexDirFor returns where the landing page for an existing run directory
// belongs: the output root for a timestamped run, dir itself otherwise.
func IndexDirFor(dir, domain string) string {
	run := regexp.MustCompile(`^` + regexp.QuoteMeta(utils.SafeName(domain)) + `_\d{8}_\d{6}$`)
	clean := filepath.Clean(dir)
	if run.MatchString(filepath.Base(clean)) {
		return filepath.Dir(clean)
	}
	return dir
}

// Artifacts are the files one run reads and writes.
type Artifacts struct {
	Dir           string
	Subdomains    string
	LiveHosts     string
	NucleiResults string
	CSV           string
	HTML          string
	PDF           string
	FindingsJSON  string
	FindingsYAML  string
	Metrics       string
	// IndexDir receives index.html; it is the output root, which differs
	// from Dir in the timestamped layout.
	IndexDir string
}

func NewArtifacts(indexDir, dir, domain string) Artifacts {
	name := utils.SafeName(domain)
	at := func(suffix string) string { return filepath.Join(dir, name+suffix) }
	html := filepath.Join(dir, report.HTMLName(name))
	return Artifacts{
		Dir:           dir,
		Subdomains:    at("_subdomains.txt"),
		LiveHosts:     at("_live_hosts.txt"),
		NucleiResults: at("_nuclei_results.json"),
		CSV:           at("_nuclei_results.csv"),
		HTML:          html,
		PDF:           at("_nuclei_report.pdf"),
		FindingsJSON:  at("_findings.json"),
		FindingsYAML:  at("_findings.yaml"),
		Metrics:       at("_metrics.prom"),
		IndexDir:      indexDir,
	}
}
