package report

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

const (
	TemplateName   = "report_template.html"
	StylesheetName = "styles.css"

	fragmentsName = "fragments.html"
	indexName     = "index.html"
)

var (
	ErrTemplateNotFound = errors.New("report: template not found")
	ErrPlaceholder      = errors.New("report: template placeholder mismatch")
)

//go:embed templates/*
var embedded embed.FS

// Assets is where the report template and stylesheet come from. The zero
// value uses the copies built into the binary.
type Assets struct {
	fsys   fs.FS
	source string
}

// EmbeddedAssets returns the built-in template and stylesheet.
func EmbeddedAssets() Assets {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return Assets{fsys: sub, source: "embedded"}
}

// DirAssets reads report_template.html and styles.css from dir.
func DirAssets(dir string) Assets {
	return Assets{fsys: os.DirFS(dir), source: dir}
}

// NewAssets picks DirAssets when dir is set and the embedded copies otherwise.
func NewAssets(dir string) Assets {
	if dir == "" {
		return EmbeddedAssets()
	}
	return DirAssets(dir)
}

func (a Assets) String() string {
	if a.fsys == nil {
		return "embedded"
	}
	return a.source
}

// Template returns the report template source.
func (a Assets) Template() (string, error) {
	data, err := fs.ReadFile(a.files(), TemplateName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s in %s", ErrTemplateNotFound, TemplateName, a)
		}
		return "", fmt.Errorf("read %s: %w", TemplateName, err)
	}
	return string(data), nil
}

// Stylesheet returns the stylesheet bytes. A missing stylesheet yields an
// error wrapping fs.ErrNotExist.
func (a Assets) Stylesheet() ([]byte, error) {
	data, err := fs.ReadFile(a.files(), StylesheetName)
	if err != nil {
		return nil, fmt.Errorf("read %s from %s: %w", StylesheetName, a, err)
	}
	return data, nil
}

func (a Assets) files() fs.FS {
	if a.fsys == nil {
		return EmbeddedAssets().fsys
	}
	return a.fsys
}

// builtin reads one of the templates that are never overridden.
func builtin(name string) string {
	data, err := embedded.ReadFile("templates/" + name)
	if err != nil {
		panic(err)
	}
	return string(data)
}
