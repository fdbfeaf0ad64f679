// Package console prints the pipeline's human-readable diagnostics.
//
// Every line carries a bracketed prefix ([+] info, [*] step, [!] warning,
// [-] error, [✓] success, [~] debug). Colour is applied with lipgloss and
// dropped automatically when the writer is not a terminal.
package console

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/yorozuya-cybersecurity/yoro-recon/internal/schema"
)

var (
	primary = lipgloss.Color("#7D56F4")
	success = lipgloss.Color("#00D26A")
	warning = lipgloss.Color("#FFB800")
	failure = lipgloss.Color("#FF3838")
	muted   = lipgloss.Color("#6B7280")
)

// Console is safe for concurrent use. A nil *Console discards everything.
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
	r       *lipgloss.Renderer

	info  lipgloss.Style
	step  lipgloss.Style
	warn  lipgloss.Style
	err   lipgloss.Style
	ok    lipgloss.Style
	debug lipgloss.Style
}

func New(w io.Writer, verbose bool) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		w:       w,
		verbose: verbose,
		r:       r,
		info:    r.NewStyle().Foreground(primary).Bold(true),
		step:    r.NewStyle().Foreground(primary),
		warn:    r.NewStyle().Foreground(warning).Bold(true),
		err:     r.NewStyle().Foreground(failure).Bold(true),
		ok:      r.NewStyle().Foreground(success).Bold(true),
		debug:   r.NewStyle().Foreground(muted),
	}
}

// Stdout is the default console used by the CLI.
func Stdout(verbose bool) *Console {
	return New(os.Stdout, verbose)
}

// Discard returns a console that writes nowhere.
func Discard() *Console {
	return New(io.Discard, false)
}

func (c *Console) Verbose() bool {
	return c != nil && c.verbose
}

func (c *Console) Infof(format string, args ...any) {
	c.print(levelInfo, "[+]", format, args...)
}

func (c *Console) Stepf(format string, args ...any) {
	c.print(levelStep, "[*]", format, args...)
}

func (c *Console) Warnf(format string, args ...any) {
	c.print(levelWarn, "[!]", format, args...)
}

func (c *Console) Errorf(format string, args ...any) {
	c.print(levelError, "[-]", format, args...)
}

func (c *Console) Successf(format string, args ...any) {
	c.print(levelSuccess, "[✓]", format, args...)
}

// Debugf only prints in verbose mode.
func (c *Console) Debugf(format string, args ...any) {
	if !c.Verbose() {
		return
	}
	c.print(levelDebug, "[~]", format, args...)
}

// Tally prints one line per severity level with a coloured label.
func (c *Console) Tally(t schema.SeverityTally) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sev := range schema.Severities {
		label := c.r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(sev.Color())).
			Width(10).
			Render(string(sev))
		fmt.Fprintf(c.w, "    %s %d\n", label, t.Count(sev))
	}
}

type level int

const (
	levelInfo level = iota
	levelStep
	levelWarn
	levelError
	levelSuccess
	levelDebug
)

func (c *Console) style(lv level) lipgloss.Style {
	switch lv {
	case levelStep:
		return c.step
	case levelWarn:
		return c.warn
	case levelError:
		return c.err
	case levelSuccess:
		return c.ok
	case levelDebug:
		return c.debug
	default:
		return c.info
	}
}

func (c *Console) print(lv level, prefix, format string, args ...any) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "%s %s\n", c.style(lv).Render(prefix), fmt.Sprintf(format, args...))
}
