package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yorozuya-cybersecurity/yoro-recon/internal/config"
	"github.com/yorozuya-cybersecurity/yoro-recon/internal/console"
)

var (
	Version = "0.1.0"
	Commit  = "none"
)

// app carries the state shared by one command tree.
type app struct {
	v       *viper.Viper
	cfgFile string
}

// NewRootCmd builds the recon command tree. `recon <domain>` runs the
// pipeline directly.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	config.SetDefaults(a.v)

	rootCmd := &cobra.Command{
		Use:   "recon <domain>",
		Short: "Subdomain, live host and vulnerability recon pipeline",
		Long: "Yorozuya recon: enumerate subdomains with subfinder, probe them with httpx, " +
			"scan live hosts with nuclei and turn the findings into CSV and HTML reports.",
		Example:       "recon example.com\nrecon example.com --layout timestamped --formats json,pdf",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE:          a.runScan,
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "Config file (yaml, toml or json)")
	pf.StringP("output", "o", "./output", "Output directory")
	pf.String("layout", string(config.LayoutOverwrite), "Output layout: overwrite or timestamped")
	pf.Bool("strict", false, "Fail the run when subfinder or httpx fail")
	pf.BoolP("verbose", "v", false, "Show tool commands and parse details")
	pf.Bool("metrics", true, "Write <domain>_metrics.prom")
	pf.StringSlice("formats", []string{config.FormatJSON}, "Extra artifacts: json,yaml,pdf")
	pf.String("templates-dir", "", "Directory holding report_template.html and styles.css")
	pf.Bool("csv-sanitize", false, "Neutralize spreadsheet formulas in CSV cells")
	pf.String("chrome-path", "", "Chrome/Chromium binary used for PDF output")

	for key, flag := range map[string]string{
		"output":        "output",
		"layout":        "layout",
		"strict":        "strict",
		"verbose":       "verbose",
		"metrics":       "metrics",
		"formats":       "formats",
		"templates_dir": "templates-dir",
		"csv.sanitize":  "csv-sanitize",
		"chrome.path":   "chrome-path",
	} {
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}

	// Subcommands
	rootCmd.AddCommand(a.newScanCmd())
	rootCmd.AddCommand(a.newReportCmd())
	rootCmd.AddCommand(a.newScheduleCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// loadConfig resolves flags, RECON_* env vars, .env and the config file.
func (a *app) loadConfig() (config.Config, error) {
	config.BindEnv(a.v)
	return config.Load(a.v, a.cfgFile)
}

func newConsole(w io.Writer, verbose bool) *console.Console {
	if w == os.Stdout {
		return console.Stdout(verbose)
	}
	return console.New(w, verbose)
}

// Execute runs the CLI and exits 1 on any error. SIGINT and SIGTERM cancel
// the running tool.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[-] %v\n", err)
		os.Exit(1)
	}
}
