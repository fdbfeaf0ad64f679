package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yorozuya-cybersecurity/yoro-recon/internal/jsonutil"
	"github.com/yorozuya-cybersecurity/yoro-recon/internal/schema"
)

// RunDir is the per-run directory ./output/<target>_<timestamp>/
func RunDir(outputDir, target string, ts time.Time) string {
	return filepath.Join(outputDir, safeName(target)+"_"+ts.Format("20060102_150405"))
}

// SaveResult writes the normalized run record as <target>_findings.json inside dir
func SaveResult(res schema.ScanResult, dir string) (string, error) {
	data, err := jsonutil.MarshalIndent(res)
	if err != nil {
		return "", fmt.Errorf("failed to encode results: %w", err)
	}
	return writeResult(dir, safeName(res.Target)+"_findings.json", append(data, '\n'))
}

// SaveResultYAML is SaveResult for <target>_findings.yaml
func SaveResultYAML(res schema.ScanResult, dir string) (string, error) {
	data, err := yaml.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("failed to encode results: %w", err)
	}
	return writeResult(dir, safeName(res.Target)+"_findings.yaml", data)
}

func writeResult(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	file := filepath.Join(dir, name)
	if err := os.WriteFile(file, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return file, nil
}

// ReadLines returns the trimmed, non-empty lines of path in file order
func ReadLines(path string) ([]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var lines []string
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return lines, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}

// Truncate creates path or empties it
func Truncate(path string) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to truncate %s: %w", path, err)
	}
	return fh.Close()
}

// Touch creates path when it does not exist and leaves it alone otherwise
func Touch(path string) error {
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	return fh.Close()
}

// SafeName is safeName for callers outside the package
func SafeName(s string) string {
	return safeName(s)
}

// safeName replaces characters not safe for file paths
func safeName(s string) string {
	invalid := []rune{'/', '\\', ':', '*', '?', '"', '<', '>', '|'}
	rs := []rune(s)
	for i, r := range rs {
		for _, bad := range invalid {
			if r == bad {
				rs[i] = '_'
			}
		}
	}
	return string(rs)
}
