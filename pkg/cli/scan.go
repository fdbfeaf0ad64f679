package cli

import (
	"github.com/spf13/cobra"

	"github.com/yorozuya-cybersecurity/yoro-recon/internal/pipeline"
)

func (a *app) newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "scan <domain>",
		Short:   "Run the full recon pipeline against a domain",
		Example: "recon scan example.com --strict",
		Args:    cobra.ExactArgs(1),
		RunE:    a.runScan,
	}
}

func (a *app) runScan(cmd *cobra.Command, args []string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	log := newConsole(cmd.OutOrStdout(), cfg.Verbose)
	p := pipeline.New(cfg, pipeline.WithConsole(log))

	res, err := p.Run(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if res.ReportErr != nil {
		log.Warnf("Finished without an HTML report")
	}
	return nil
}
