package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "RECON"

// Layout decides where a run writes its artifacts.
type Layout string

const (
	// LayoutOverwrite reuses the output directory on every run.
	LayoutOverwrite Layout = "overwrite"
	// LayoutTimestamped writes each run into <output>/<domain>_<YYYYMMDD_HHMMSS>.
	LayoutTimestamped Layout = "timestamped"
)

// Extra artifact formats beyond the always-written CSV and HTML.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatPDF  = "pdf"
)

type Config struct {
	Output       string         `mapstructure:"output"`
	Layout       Layout         `mapstructure:"layout"`
	Strict       bool           `mapstructure:"strict"`
	Verbose      bool           `mapstructure:"verbose"`
	Metrics      bool           `mapstructure:"metrics"`
	Formats      []string       `mapstructure:"formats"`
	TemplatesDir string         `mapstructure:"templates_dir"`
	CSV          CSVConfig      `mapstructure:"csv"`
	Tools        ToolsConfig    `mapstructure:"tools"`
	Timeouts     TimeoutConfig  `mapstructure:"timeouts"`
	Chrome       ChromeConfig   `mapstructure:"chrome"`
	Schedule     ScheduleConfig `mapstructure:"schedule"`
}

type CSVConfig struct {
	Sanitize bool `mapstructure:"sanitize"`
}

type ToolsConfig struct {
	Subfinder string `mapstructure:"subfinder"`
	Httpx     string `mapstructure:"httpx"`
	Nuclei    string `mapstructure:"nuclei"`
}

// TimeoutConfig bounds each external tool. Zero disables the bound.
type TimeoutConfig struct {
	Enumerate time.Duration `mapstructure:"enumerate"`
	Probe     time.Duration `mapstructure:"probe"`
	Scan      time.Duration `mapstructure:"scan"`
}

type ChromeConfig struct {
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ScheduleConfig struct {
	Cron string `mapstructure:"cron"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Output:  "./output",
		Layout:  LayoutOverwrite,
		Metrics: true,
		Formats: []string{FormatJSON},
		Tools: ToolsConfig{
			Subfinder: "subfinder",
			Httpx:     "httpx",
			Nuclei:    "nuclei",
		},
		Timeouts: TimeoutConfig{
			Enumerate: 30 * time.Minute,
			Probe:     30 * time.Minute,
			Scan:      2 * time.Hour,
		},
		Chrome: ChromeConfig{
			Timeout: time.Minute,
		},
		Schedule: ScheduleConfig{
			Cron: "0 0 * * *",
		},
	}
}

// SetDefaults registers Default() on v so env vars and config files can
// override individual keys.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("output", d.Output)
	v.SetDefault("layout", string(d.Layout))
	v.SetDefault("strict", d.Strict)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("metrics", d.Metrics)
	v.SetDefault("formats", d.Formats)
	v.SetDefault("templates_dir", d.TemplatesDir)
	v.SetDefault("csv.sanitize", d.CSV.Sanitize)
	v.SetDefault("tools.subfinder", d.Tools.Subfinder)
	v.SetDefault("tools.httpx", d.Tools.Httpx)
	v.SetDefault("tools.nuclei", d.Tools.Nuclei)
	v.SetDefault("timeouts.enumerate", d.Timeouts.Enumerate)
	v.SetDefault("timeouts.probe", d.Timeouts.Probe)
	v.SetDefault("timeouts.scan", d.Timeouts.Scan)
	v.SetDefault("chrome.path", d.Chrome.Path)
	v.SetDefault("chrome.timeout", d.Chrome.Timeout)
	v.SetDefault("schedule.cron", d.Schedule.Cron)
}

// BindEnv wires RECON_* environment variables into v, loading a .env file
// from the working directory first when one exists.
func BindEnv(v *viper.Viper) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "[!] ignoring .env: %v\n", err)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// Load reads the optional config file and unmarshals v into a Config.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Formats = normalizeFormats(cfg.Formats)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Output) == "" {
		return errors.New("output directory is required")
	}
	switch c.Layout {
	case LayoutOverwrite, LayoutTimestamped:
	default:
		return fmt.Errorf("invalid layout %q (want %s or %s)", c.Layout, LayoutOverwrite, LayoutTimestamped)
	}
	for _, f := range c.Formats {
		switch f {
		case FormatJSON, FormatYAML, FormatPDF:
		default:
			return fmt.Errorf("unsupported format %q (want json, yaml or pdf)", f)
		}
	}
	if c.Tools.Subfinder == "" || c.Tools.Httpx == "" || c.Tools.Nuclei == "" {
		return errors.New("tool binaries must not be empty")
	}
	if c.Timeouts.Enumerate < 0 || c.Timeouts.Probe < 0 || c.Timeouts.Scan < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

// Wants reports whether the extra format f was requested.
func (c Config) Wants(f string) bool {
	for _, x := range c.Formats {
		if x == f {
			return true
		}
	}
	return false
}

// normalizeFormats accepts both list values and a single comma separated
// string, as env vars arrive that way.
func normalizeFormats(in []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, item := range in {
		for _, f := range strings.Split(item, ",") {
			f = strings.ToLower(strings.TrimSpace(f))
			if f == "" || seen[f] {
				continue
			}
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
