package formats

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type Category string

const (
	CategoryUnknown Category = ""
	CategorySource  Category = "source"
	CategoryExport  Category = "export"
	CategoryImage   Category = "image"
)

//go:embed formats.yaml
var defaultTable []byte

type Domain struct {
	Name   string   `yaml:"name"`
	Source []string `yaml:"source"`
	Export []string `yaml:"export"`
	Image  []string `yaml:"image"`

	index map[string]Category
}

type Registry struct {
	domains []Domain
}

type table struct {
	Domains []Domain `yaml:"domains"`
}

// Load parses the built-in format table.
func Load() (*Registry, error) {
	return Parse(defaultTable)
}

func Parse(data []byte) (*Registry, error) {
	var t table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse format table: %w", err)
	}
	if len(t.Domains) == 0 {
		return nil, errors.New("format table has no domains")
	}
	for i := range t.Domains {
		d := &t.Domains[i]
		d.index = map[string]Category{}
		add := func(exts []string, c Category) {
			for _, ext := range exts {
				ext = normalizeExt(ext)
				if _, seen := d.index[ext]; !seen {
					d.index[ext] = c
				}
			}
		}
		add(d.Source, CategorySource)
		add(d.Export, CategoryExport)
		add(d.Image, CategoryImage)
	}
	return &Registry{domains: t.Domains}, nil
}

// Classify returns the first domain, in table order, that knows the extension.
func (r *Registry) Classify(ext string) (string, Category) {
	ext = normalizeExt(ext)
	if ext == "" {
		return "", CategoryUnknown
	}
	for _, d := range r.domains {
		if c, ok := d.index[ext]; ok {
			return d.Name, c
		}
	}
	return "", CategoryUnknown
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
