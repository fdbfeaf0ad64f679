package cli

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/yorozuya-cybersecurity/yoro-recon/internal/console"
	"github.com/yorozuya-cybersecurity/yoro-recon/internal/pipeline"
)

func (a *app) newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "schedule <domain>",
		Short:   "Run the pipeline on a cron schedule until interrupted",
		Example: `recon schedule example.com --cron "0 2 * * *" --layout timestamped`,
		Args:    cobra.ExactArgs(1),
		RunE:    a.runSchedule,
	}

	cmd.Flags().String("cron", "0 0 * * *", "Standard 5-field cron expression")
	_ = a.v.BindPFlag("schedule.cron", cmd.Flags().Lookup("cron"))
	return cmd
}

func (a *app) runSchedule(cmd *cobra.Command, args []string) error {
	domain := args[0]
	if err := pipeline.ValidateDomain(domain); err != nil {
		return err
	}
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	log := newConsole(cmd.OutOrStdout(), cfg.Verbose)
	p := pipeline.New(cfg, pipeline.WithConsole(log))
	ctx := cmd.Context()

	logger := cronLogger{log}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	_, err = c.AddFunc(cfg.Schedule.Cron, func() {
		if _, err := p.Run(ctx, domain); err != nil {
			log.Errorf("Scheduled run for %s failed: %v", domain, err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cfg.Schedule.Cron, err)
	}
	cmd.SilenceUsage = true

	log.Infof("Cron scheduler started for %s (%s), press Ctrl+C to stop", domain, cfg.Schedule.Cron)
	c.Start()
	<-ctx.Done()

	log.Infof("Stopping scheduler")
	<-c.Stop().Done()
	return nil
}

// cronLogger routes cron's own messages to the console.
type cronLogger struct {
	log *console.Console
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugf("cron: %s %v", msg, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Warnf("cron: %s: %v %v", msg, err, keysAndValues)
}
