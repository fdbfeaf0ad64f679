// Package scanners holds the fixed invocation contracts for the external
// recon tools. The tools themselves are opaque: each one is handed input
// and output file paths and left to write its own results.
package scanners

import (
	"github.com/yorozuya-cybersecurity/yoro-recon/internal/runner"
)

// Tools names the binaries to invoke. Empty fields fall back to the
// upstream binary names.
type Tools struct {
	Subfinder string
	Httpx     string
	Nuclei    string
}

// SubfinderCmd enumerates subdomains of domain into out, one per line.
func (t Tools) SubfinderCmd(domain, out string) runner.Command {
	return runner.Command{
		Name: orDefault(t.Subfinder, "subfinder"),
		Args: []string{"-silent", "-d", domain, "-o", out},
	}
}

// HttpxCmd probes every host listed in list and writes live endpoints to out.
func (t Tools) HttpxCmd(list, out string) runner.Command {
	return runner.Command{
		Name: orDefault(t.Httpx, "httpx"),
		Args: []string{"-l", list, "-silent", "-o", out},
	}
}

// NucleiCmd scans every endpoint listed in list and exports JSON findings to out.
func (t Tools) NucleiCmd(list, out string) runner.Command {
	return runner.Command{
		Name: orDefault(t.Nuclei, "nuclei"),
		Args: []string{"-l", list, "-json-export", out},
	}
}

func orDefault(s, d string) string {
	if s == "" {
		return d
	}
	return s
}
