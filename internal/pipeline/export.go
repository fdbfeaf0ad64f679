package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yorozuya-cybersecurity/yoro-recon/internal/config"
	"github.com/yorozuya-cybersecurity/yoro-recon/internal/export"
	"github.com/yorozuya-cybersecurity/yoro-recon/internal/ingest"
	"github.com/yorozuya-cybersecurity/yoro-recon/internal/metrics"
	"github.com/yorozuya-cybersecurity/yoro-recon/internal/report"
	"github.com/yorozuya-cybersecurity/yoro-recon/internal/scanners"
	"github.com/yorozuya-cybersecurity/yoro-recon/internal/schema"
	"github.com/yorozuya-cybersecurity/yoro-recon/pkg/utils"
)

// export ingests the scanner output and writes every artifact. Only an
// unreadable results file or a failed CSV write is fatal; report problems
// end up in res.ReportErr.
func (p *Pipeline) export(ctx context.Context, res *Result, rec *metrics.Recorder) error {
	res.Stage = StageExport
	start := time.Now()
	defer func() { rec.ObserveStage(StageExport.String(), time.Since(start)) }()

	art := res.Artifacts

	findings, err := p.ingest(art.NucleiResults, res.StartedAt)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrScanFailed, err)
	}
	res.Findings = findings
	for _, f := range findings {
		res.Tally.Add(f.Severity)
	}
	rec.Findings(res.Tally)

	p.log.Stepf("Converting nuclei results to CSV")
	if err := export.WriteCSVFile(art.CSV, findings, export.CSVOptions{SanitizeFormulas: p.cfg.CSV.Sanitize}); err != nil {
		return err
	}
	p.log.Infof("CSV report generated: %s", art.CSV)

	p.writeFindings(res)

	p.log.Stepf("Generating HTML report")
	opts := report.Options{
		OutDir:  art.Dir,
		Assets:  report.NewAssets(p.cfg.TemplatesDir),
		Now:     res.StartedAt,
		Console: p.log,
	}
	htmlPath, err := report.GenerateHTML(report.Input{
		Domain:    res.Domain,
		Findings:  findings,
		LiveHosts: res.LiveHosts,
	}, opts)
	if err != nil {
		res.ReportErr = err
		p.log.Warnf("HTML report not generated: %v", err)
	} else {
		p.log.Infof("HTML report generated: %s", htmlPath)
		p.writePDF(ctx, htmlPath)
	}

	if _, err := report.GenerateIndex(art.IndexDir, opts); err != nil {
		p.log.Warnf("Landing page not updated: %v", err)
	}

	p.log.Infof("Findings by severity:")
	p.log.Tally(res.Tally)
	return nil
}

// ingest parses the results file. An empty export stands for a clean scan
// and yields the placeholder finding; records that are all unreadable fail
// with ErrUnreadableResults.
func (p *Pipeline) ingest(path string, now time.Time) ([]schema.Finding, error) {
	parsed, err := ingest.ParseFile(path, p.log)
	if err != nil {
		return nil, err
	}
	p.log.Debugf("Parsed %s as %s: %d findings, %d skipped", path, parsed.Mode, len(parsed.Findings), parsed.Skipped)
	if parsed.Skipped > 0 {
		p.log.Warnf("Skipped %d malformed records", parsed.Skipped)
	}
	if len(parsed.Findings) > 0 {
		return parsed.Findings, nil
	}
	if parsed.Mode == ingest.Failed || parsed.Skipped > 0 {
		return nil, fmt.Errorf("%w: %s (%d records skipped)", ErrUnreadableResults, path, parsed.Skipped)
	}
	return []schema.Finding{scanners.NoFindingsEntry(now).Finding()}, nil
}

func (p *Pipeline) writeFindings(res *Result) {
	if !p.cfg.Wants(config.FormatJSON) && !p.cfg.Wants(config.FormatYAML) {
		return
	}
	record := schema.ScanResult{
		RunID:     res.RunID,
		Target:    res.Domain,
		Timestamp: res.StartedAt,
		LiveHosts: res.LiveHosts,
		Tally:     res.Tally,
		Findings:  res.Findings,
	}
	if record.LiveHosts == nil {
		record.LiveHosts = []string{}
	}

	if p.cfg.Wants(config.FormatJSON) {
		if path, err := utils.SaveResult(record, res.Artifacts.Dir); err != nil {
			p.log.Warnf("%v", err)
		} else {
			p.log.Infof("JSON findings saved: %s", path)
		}
	}
	if p.cfg.Wants(config.FormatYAML) {
		if path, err := utils.SaveResultYAML(record, res.Artifacts.Dir); err != nil {
			p.log.Warnf("%v", err)
		} else {
			p.log.Infof("YAML findings saved: %s", path)
		}
	}
}

func (p *Pipeline) writePDF(ctx context.Context, htmlPath string) {
	if !p.cfg.Wants(config.FormatPDF) {
		return
	}
	pdfPath, err := report.GeneratePDF(ctx, htmlPath, report.PDFOptions{
		ChromePath: p.cfg.Chrome.Path,
		Timeout:    p.cfg.Chrome.Timeout,
	})
	switch {
	case errors.Is(err, report.ErrChromeNotFound):
		p.log.Warnf("PDF skipped: %v", err)
	case err != nil:
		p.log.Warnf("PDF generation failed: %v", err)
	default:
		p.log.Infof("PDF report generated: %s", pdfPath)
	}
}
