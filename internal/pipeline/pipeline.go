// Package pipeline drives one recon run: enumerate subdomains, probe for
// live web services, scan them, then export the findings.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yorozuya-cybersecurity/yoro-recon/internal/config"
	"github.com/yorozuya-cybersecurity/yoro-recon/internal/console"
	"github.com/yorozuya-cybersecurity/yoro-recon/internal/metrics"
	"github.com/yorozuya-cybersecurity/yoro-recon/internal/runner"
	"github.com/yorozuya-cybersecurity/yoro-recon/internal/scanners"
	"github.com/yorozuya-cybersecurity/yoro-recon/internal/schema"
	"github.com/yorozuya-cybersecurity/yoro-recon/pkg/utils"
)

var (
	// ErrScanFailed marks a run that could not produce scanner results.
	ErrScanFailed = errors.New("vulnerability scan failed")

	// ErrUnreadableResults is wrapped in ErrScanFailed when the scanner
	// wrote output but not a single record in it could be parsed.
	ErrUnreadableResults = errors.New("no readable findings in scan results")
)

// Result is the outcome of one run.
type Result struct {
	RunID     string
	Domain    string
	StartedAt time.Time
	OutputDir string
	Artifacts Artifacts

	Stage    Stage
	FailedAt Stage
	Stages   []StageResult

	LiveHosts []string
	Findings  []schema.Finding
	Tally     schema.SeverityTally

	// ReportErr is set when the HTML report could not be produced. The run
	// still counts as done.
	ReportErr error
}

type Pipeline struct {
	cfg   config.Config
	exec  runner.Executor
	tools scanners.Tools
	log   *console.Console
	now   func() time.Time
}

type Option func(*Pipeline)

// WithExecutor replaces the os/exec runner.
func WithExecutor(e runner.Executor) Option {
	return func(p *Pipeline) { p.exec = e }
}

func WithConsole(c *console.Console) Option {
	return func(p *Pipeline) { p.log = c }
}

// WithClock fixes the time used for directory names and report stamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func New(cfg config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:  cfg,
		exec: runner.New(),
		tools: scanners.Tools{
			Subfinder: cfg.Tools.Subfinder,
			Httpx:     cfg.Tools.Httpx,
			Nuclei:    cfg.Tools.Nuclei,
		},
		log: console.Discard(),
		now: time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run executes the whole pipeline for domain. The returned Result is nil
// only when domain is rejected or the output directory cannot be created.
func (p *Pipeline) Run(ctx context.Context, domain string) (*Result, error) {
	if err := ValidateDomain(domain); err != nil {
		return nil, err
	}

	now := p.now()
	dir := ResolveOutputDir(p.cfg, domain, now)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	res := p.newResult(domain, NewArtifacts(p.cfg.Output, dir, domain), now)
	rec := p.recorder(domain)
	defer p.finish(res, rec)

	p.log.Infof("Starting recon for %s", domain)
	p.log.Debugf("Run %s writing to %s", res.RunID, dir)

	if err := p.enumerate(ctx, res, rec); err != nil {
		return p.fail(res, err)
	}
	if err := p.probe(ctx, res, rec); err != nil {
		return p.fail(res, err)
	}
	if err := p.scan(ctx, res, rec); err != nil {
		return p.fail(res, err)
	}
	if err := p.export(ctx, res, rec); err != nil {
		return p.fail(res, err)
	}

	res.Stage = StageDone
	p.log.Successf("Recon complete! Results saved in %s", dir)
	return res, nil
}

// Report re-exports an existing run directory without running any tool.
func (p *Pipeline) Report(ctx context.Context, domain, dir string) (*Result, error) {
	if err := ValidateDomain(domain); err != nil {
		return nil, err
	}

	res := p.newResult(domain, NewArtifacts(IndexDirFor(dir, domain), dir, domain), p.now())
	if _, err := os.Stat(res.Artifacts.NucleiResults); err != nil {
		return nil, fmt.Errorf("no scan results for %s in %s: %w", domain, dir, err)
	}

	rec := p.recorder(domain)
	defer p.finish(res, rec)

	if hosts, err := utils.ReadLines(res.Artifacts.LiveHosts); err == nil {
		res.LiveHosts = hosts
		rec.LiveHosts(len(hosts))
	}
	if err := p.export(ctx, res, rec); err != nil {
		return p.fail(res, err)
	}
	res.Stage = StageDone
	return res, nil
}

func (p *Pipeline) newResult(domain string, art Artifacts, now time.Time) *Result {
	return &Result{
		RunID:     uuid.NewString(),
		Domain:    domain,
		StartedAt: now,
		OutputDir: art.Dir,
		Artifacts: art,
		Stage:     StageEnumerate,
		Tally:     schema.NewSeverityTally(),
	}
}

func (p *Pipeline) recorder(domain string) *metrics.Recorder {
	if !p.cfg.Metrics {
		return nil
	}
	return metrics.NewRecorder(domain)
}

func (p *Pipeline) finish(res *Result, rec *metrics.Recorder) {
	if rec == nil {
		return
	}
	rec.RunSucceeded(res.Stage == StageDone)
	if err := rec.WriteTextfile(res.Artifacts.Metrics); err != nil {
		p.log.Warnf("%v", err)
	}
}

func (p *Pipeline) fail(res *Result, err error) (*Result, error) {
	res.FailedAt = res.Stage
	res.Stage = StageFailed
	p.log.Debugf("Run %s failed during %s", res.RunID, res.FailedAt)
	return res, err
}

// ---------- Stages ----------

func (p *Pipeline) enumerate(ctx context.Context, res *Result, rec *metrics.Recorder) error {
	res.Stage = StageEnumerate
	art := res.Artifacts

	// A failed run must not inherit the previous run's subdomains.
	if err := utils.Truncate(art.Subdomains); err != nil {
		return err
	}

	p.log.Stepf("Running subfinder on %s", res.Domain)
	err := p.runTool(ctx, res, rec, "subfinder", p.cfg.Timeouts.Enumerate, p.tools.SubfinderCmd(res.Domain, art.Subdomains))
	if err = p.tolerate(ctx, "subfinder", err); err != nil {
		return err
	}
	if err := utils.Touch(art.Subdomains); err != nil {
		return err
	}

	if subs, err := utils.ReadLines(art.Subdomains); err == nil {
		p.log.Infof("Found %d subdomains", len(subs))
	}
	return nil
}

func (p *Pipeline) probe(ctx context.Context, res *Result, rec *metrics.Recorder) error {
	res.Stage = StageProbe
	art := res.Artifacts

	if err := utils.Truncate(art.LiveHosts); err != nil {
		return err
	}

	p.log.Stepf("Running httpx on discovered subdomains")
	err := p.runTool(ctx, res, rec, "httpx", p.cfg.Timeouts.Probe, p.tools.HttpxCmd(art.Subdomains, art.LiveHosts))
	if err = p.tolerate(ctx, "httpx", err); err != nil {
		return err
	}
	if err := utils.Touch(art.LiveHosts); err != nil {
		return err
	}

	hosts, err := utils.ReadLines(art.LiveHosts)
	if err != nil {
		p.log.Warnf("Could not read live hosts: %v", err)
	}
	res.LiveHosts = hosts
	rec.LiveHosts(len(hosts))
	p.log.Infof("Found %d live web services", len(hosts))
	return nil
}

func (p *Pipeline) scan(ctx context.Context, res *Result, rec *metrics.Recorder) error {
	res.Stage = StageScan
	art := res.Artifacts

	// Stale results from an earlier run must not be mistaken for this one.
	if err := utils.Truncate(art.NucleiResults); err != nil {
		return err
	}

	p.log.Stepf("Running nuclei on live hosts")
	err := p.runTool(ctx, res, rec, "nuclei", p.cfg.Timeouts.Scan, p.tools.NucleiCmd(art.LiveHosts, art.NucleiResults))
	if err != nil {
		var exitErr *runner.ExitError
		if errors.As(err, &exitErr) && strings.TrimSpace(exitErr.Stderr) != "" {
			p.log.Errorf("nuclei stderr:\n%s", strings.TrimSpace(exitErr.Stderr))
		}
		return fmt.Errorf("%w: %w", ErrScanFailed, err)
	}

	wrote, err := scanners.EnsureNucleiOutput(art.NucleiResults, res.StartedAt)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrScanFailed, err)
	}
	if wrote {
		p.log.Infof("No vulnerabilities found, recording a placeholder finding")
	}
	return nil
}

// runTool runs one external tool under its own timeout and records how it
// went.
func (p *Pipeline) runTool(ctx context.Context, res *Result, rec *metrics.Recorder, tool string, timeout time.Duration, cmd runner.Command) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if p.log.Verbose() {
		cmd.Stderr = os.Stderr
	}
	p.log.Debugf("%s", cmd)

	out, err := p.exec.Run(ctx, cmd)

	rec.ObserveStage(res.Stage.String(), out.Duration)
	rec.ToolExit(tool, out.ExitCode)
	res.Stages = append(res.Stages, StageResult{Stage: res.Stage, Duration: out.Duration, Err: err})
	return err
}

// tolerate applies the strict policy to enumeration and probing failures.
// A cancelled run always stops.
func (p *Pipeline) tolerate(ctx context.Context, tool string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil || p.cfg.Strict {
		return err
	}
	p.log.Warnf("%s failed, continuing: %v", tool, err)
	return nil
}
