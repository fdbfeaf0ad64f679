package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yorozuya-cybersecurity/yoro-recon/internal/pipeline"
)

const resultsSuffix = "_nuclei_results.json"

func (a *app) newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "report",
		Short:   "Regenerate CSV/HTML/PDF reports from an existing run directory",
		Example: "recon report --from ./output/example.com_20250911_131722 --formats json,pdf",
		Args:    cobra.NoArgs,
		RunE:    a.runReport,
	}

	cmd.Flags().String("from", "", "Run directory (must contain <domain>_nuclei_results.json)")
	cmd.Flags().String("domain", "", "Target domain; inferred when the directory holds a single run")

	_ = a.v.BindPFlag("report.from", cmd.Flags().Lookup("from"))
	_ = a.v.BindPFlag("report.domain", cmd.Flags().Lookup("domain"))
	return cmd
}

func (a *app) runReport(cmd *cobra.Command, _ []string) error {
	from := a.v.GetString("report.from")
	if from == "" {
		return errors.New("please provide --from pointing to the run directory")
	}

	domain := a.v.GetString("report.domain")
	if domain == "" {
		var err error
		if domain, err = inferDomain(from); err != nil {
			return err
		}
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	log := newConsole(cmd.OutOrStdout(), cfg.Verbose)
	res, err := pipeline.New(cfg, pipeline.WithConsole(log)).Report(cmd.Context(), domain, from)
	if err != nil {
		return err
	}
	if res.ReportErr != nil {
		return fmt.Errorf("html report: %w", res.ReportErr)
	}
	log.Successf("Reports regenerated in %s", from)
	return nil
}

// inferDomain returns the domain of the only results file in dir.
func inferDomain(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+resultsSuffix))
	if err != nil {
		return "", fmt.Errorf("list results: %w", err)
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no *%s in %s", resultsSuffix, dir)
	case 1:
		return strings.TrimSuffix(filepath.Base(matches[0]), resultsSuffix), nil
	default:
		return "", fmt.Errorf("%d result files in %s, pick one with --domain", len(matches), dir)
	}
}
