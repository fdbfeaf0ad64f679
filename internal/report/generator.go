// Package report renders normalized findings into a self-contained HTML
// report, an optional PDF copy and a landing page for the output directory.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template/parse"
	"time"

	"github.com/Masterminds/sprig/v3"

	"github.com/yorozuya-cybersecurity/yoro-recon/internal/console"
	"github.com/yorozuya-cybersecurity/yoro-recon/internal/schema"
)

// TimestampLayout formats the report generation time.
const TimestampLayout = "2006-01-02 15:04:05"

const reportSuffix = "_nuclei_report.html"

// Placeholders lists the names the report template must reference, and
// the only names it may reference.
var Placeholders = []string{
	"timestamp",
	"target_domain",
	"severity_stats",
	"findings",
	"web_services_count",
	"web_services_list",
}

var fragments = template.Must(template.New(fragmentsName).Funcs(sprig.FuncMap()).Parse(builtin(fragmentsName)))

// Input is what one report is built from.
type Input struct {
	Domain    string
	Findings  []schema.Finding
	LiveHosts []string
}

type Options struct {
	OutDir  string
	Assets  Assets
	Now     time.Time
	Console *console.Console
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// HTMLName is the report file name for domain.
func HTMLName(domain string) string {
	return domain + reportSuffix
}

// ---------- Public API ----------

// GenerateHTML writes <domain>_nuclei_report.html and styles.css into
// opts.OutDir and returns the report path. Same input and time give
// byte-identical output.
func GenerateHTML(in Input, opts Options) (string, error) {
	src, err := opts.Assets.Template()
	if err != nil {
		return "", err
	}
	tmpl, err := parseReport(src)
	if err != nil {
		return "", err
	}

	vm, err := buildViewModel(in, opts.now())
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
		return "", fmt.Errorf("create out dir: %w", err)
	}
	if err := copyStylesheet(opts.Assets, opts.OutDir, opts.Console); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vm.data()); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	htmlPath := filepath.Join(opts.OutDir, HTMLName(in.Domain))
	if err := os.WriteFile(htmlPath, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", filepath.Base(htmlPath), err)
	}
	return htmlPath, nil
}

// GenerateIndex writes index.html into outDir, linking every report found
// in outDir or one directory below it.
func GenerateIndex(outDir string, opts Options) (string, error) {
	var found []string
	for _, pattern := range []string{"*" + reportSuffix, filepath.Join("*", "*"+reportSuffix)} {
		matches, err := filepath.Glob(filepath.Join(outDir, pattern))
		if err != nil {
			return "", fmt.Errorf("list reports: %w", err)
		}
		found = append(found, matches...)
	}

	entries := make([]indexEntry, 0, len(found))
	for _, p := range found {
		rel, err := filepath.Rel(outDir, p)
		if err != nil {
			continue
		}
		domain := strings.TrimSuffix(filepath.Base(p), reportSuffix)
		entry := indexEntry{Domain: domain, Href: filepath.ToSlash(rel)}
		if dir := filepath.Dir(rel); dir != "." {
			entry.Run = strings.TrimPrefix(dir, domain+"_")
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Href < entries[j].Href })

	tmpl, err := template.New(indexName).Funcs(sprig.FuncMap()).Parse(builtin(indexName))
	if err != nil {
		return "", fmt.Errorf("parse index template: %w", err)
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, struct {
		Updated string
		Reports []indexEntry
	}{opts.now().Format(TimestampLayout), entries})
	if err != nil {
		return "", fmt.Errorf("execute index template: %w", err)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("create out dir: %w", err)
	}
	if err := copyStylesheet(opts.Assets, outDir, opts.Console); err != nil {
		return "", err
	}
	path := filepath.Join(outDir, indexName)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", indexName, err)
	}
	return path, nil
}

// ---------- View Model & helpers ----------

type viewModel struct {
	Timestamp string
	Target    string
	Stats     template.HTML
	Findings  template.HTML
	HostCount int
	Hosts     template.HTML
}

func (vm viewModel) data() map[string]any {
	return map[string]any{
		"timestamp":          vm.Timestamp,
		"target_domain":      vm.Target,
		"severity_stats":     vm.Stats,
		"findings":           vm.Findings,
		"web_services_count": vm.HostCount,
		"web_services_list":  vm.Hosts,
	}
}

type statView struct {
	Severity string
	Color    template.CSS
	Count    int
}

type findingView struct {
	Severity    string
	Color       template.CSS
	Name        string
	Host        string
	MatchedAt   string
	Description string
	Timestamp   string
}

type indexEntry struct {
	Domain string
	Run    string
	Href   string
}

func buildViewModel(in Input, now time.Time) (viewModel, error) {
	tally := schema.NewSeverityTally()

	var findings bytes.Buffer
	for _, f := range in.Findings {
		sev := schema.ParseSeverity(string(f.Severity))
		tally.Add(sev)
		err := fragments.ExecuteTemplate(&findings, "finding", findingView{
			Severity:    sev.String(),
			Color:       template.CSS(sev.Color()),
			Name:        f.Title(),
			Host:        schema.Display(f.Host),
			MatchedAt:   schema.Display(f.MatchedAt),
			Description: schema.Display(f.Description),
			Timestamp:   schema.Display(f.Timestamp),
		})
		if err != nil {
			return viewModel{}, fmt.Errorf("render finding: %w", err)
		}
	}

	var stats bytes.Buffer
	for _, sev := range schema.Severities {
		err := fragments.ExecuteTemplate(&stats, "stat", statView{
			Severity: sev.String(),
			Color:    template.CSS(sev.Color()),
			Count:    tally.Count(sev),
		})
		if err != nil {
			return viewModel{}, fmt.Errorf("render severity stats: %w", err)
		}
	}

	hosts := make([]string, 0, len(in.LiveHosts))
	for _, h := range in.LiveHosts {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	var hostList bytes.Buffer
	if err := fragments.ExecuteTemplate(&hostList, "hosts", hosts); err != nil {
		return viewModel{}, fmt.Errorf("render web services: %w", err)
	}

	return viewModel{
		Timestamp: now.Format(TimestampLayout),
		Target:    in.Domain,
		Stats:     template.HTML(stats.String()),
		Findings:  template.HTML(findings.String()),
		HostCount: len(hosts),
		Hosts:     template.HTML(hostList.String()),
	}, nil
}

func parseReport(src string) (*template.Template, error) {
	tmpl, err := template.New(TemplateName).
		Funcs(sprig.FuncMap()).
		Option("missingkey=error").
		Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	if err := checkPlaceholders(tmpl); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// checkPlaceholders compares the top-level fields the template references
// with Placeholders.
func checkPlaceholders(tmpl *template.Template) error {
	used := map[string]bool{}
	if tmpl.Tree != nil {
		collectFields(tmpl.Tree.Root, used)
	}

	known := make(map[string]bool, len(Placeholders))
	for _, p := range Placeholders {
		known[p] = true
		if !used[p] {
			return fmt.Errorf("%w: template does not use {{.%s}}", ErrPlaceholder, p)
		}
	}

	var unknown []string
	for name := range used {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: unknown placeholder {{.%s}}", ErrPlaceholder, unknown[0])
	}
	return nil
}

// collectFields records field names read from the top-level dot. Bodies of
// range and with blocks rebind dot and are not descended into.
func collectFields(node parse.Node, used map[string]bool) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, c := range n.Nodes {
			collectFields(c, used)
		}
	case *parse.ActionNode:
		pipeFields(n.Pipe, used)
	case *parse.IfNode:
		pipeFields(n.Pipe, used)
		collectFields(n.List, used)
		collectFields(n.ElseList, used)
	case *parse.RangeNode:
		pipeFields(n.Pipe, used)
	case *parse.WithNode:
		pipeFields(n.Pipe, used)
	case *parse.TemplateNode:
		pipeFields(n.Pipe, used)
	}
}

func pipeFields(pipe *parse.PipeNode, used map[string]bool) {
	if pipe == nil {
		return
	}
	for _, cmd := range pipe.Cmds {
		for _, arg := range cmd.Args {
			switch a := arg.(type) {
			case *parse.FieldNode:
				used[a.Ident[0]] = true
			case *parse.PipeNode:
				pipeFields(a, used)
			}
		}
	}
}

// copyStylesheet writes styles.css next to the report. A missing source
// stylesheet is only a warning.
func copyStylesheet(assets Assets, outDir string, log *console.Console) error {
	css, err := assets.Stylesheet()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warnf("Could not copy CSS file: %v", err)
			return nil
		}
		return err
	}
	if err := os.WriteFile(filepath.Join(outDir, StylesheetName), css, 0644); err != nil {
		return fmt.Errorf("write %s: %w", StylesheetName, err)
	}
	return nil
}
