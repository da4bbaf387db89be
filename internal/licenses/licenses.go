package licenses

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/OPEN-NEXT/LOSH-krawler/internal"
)

//go:embed licenses.yaml
var defaultRegistry []byte

const spdxBaseURL = "https://spdx.org/licenses/"

// OSHWALabels maps OSHWA hardwareLicense values to registry ids.
var OSHWALabels = map[string]string{
	"CC-BY-4.0":          "CC-BY-4.0",
	"CC0-1.0":            "CC0-1.0",
	"MIT":                "MIT",
	"BSD-2-Clause":       "BSD-2-Clause",
	"CC-BY-SA-4.0":       "CC-BY-SA-4.0",
	"CC BY-SA":           "CC-BY-SA-4.0",
	"GPL-3.0":            "GPL-3.0-only",
	"OHL":                "TAPR-OHL-1.0",
	"CERN OHL":           "CERN-OHL-1.2",
	"CERN":               "CERN-OHL-1.2",
	"alternativeLicense": "MIT",
}

// WikifactoryLabels maps Wikifactory license abbreviations to registry ids.
var WikifactoryLabels = map[string]string{
	"CC-BY-4.0":    "CC-BY-4.0",
	"CC0-1.0":      "CC0-1.0",
	"MIT":          "MIT",
	"BSD-2-Clause": "BSD-2-Clause",
	"CC-BY-SA-4.0": "CC-BY-SA-4.0",
	"GPL-3.0":      "GPL-3.0-only",
	"OHL":          "TAPR-OHL-1.0",
	"CERN OHL":     "CERN-OHL-1.2",
}

type entry struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	ReferenceURL string `yaml:"reference"`
	SPDX         bool   `yaml:"spdx"`
}

type Registry struct {
	byID map[string]internal.License
}

func Load() (*Registry, error) {
	return Parse(defaultRegistry)
}

func Parse(data []byte) (*Registry, error) {
	var doc struct {
		Licenses []entry `yaml:"licenses"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse license registry: %w", err)
	}
	reg := &Registry{byID: make(map[string]internal.License, len(doc.Licenses))}
	for _, e := range doc.Licenses {
		ref := e.ReferenceURL
		if ref == "" && e.SPDX {
			ref = spdxBaseURL + e.ID
		}
		reg.byID[e.ID] = internal.License{ID: e.ID, Name: e.Name, ReferenceURL: ref, IsSPDX: e.SPDX}
	}
	return reg, nil
}

// Get returns a fresh copy of the registered license.
func (r *Registry) Get(id string) *internal.License {
	l, ok := r.byID[id]
	if !ok {
		return nil
	}
	return &l
}

// Resolver turns provider license labels into registry entries.
type Resolver struct {
	registry *Registry
	labels   map[string]string
	folded   map[string]string
}

func NewResolver(registry *Registry, labels map[string]string) *Resolver {
	folded := make(map[string]string, len(labels))
	for label, id := range labels {
		folded[fold(label)] = id
	}
	return &Resolver{registry: registry, labels: labels, folded: folded}
}

// Resolve returns nil for empty, "None", "Other" and unmapped labels.
func (r *Resolver) Resolve(label string) *internal.License {
	label = strings.TrimSpace(label)
	if label == "" || label == "None" || label == "Other" {
		return nil
	}
	id, ok := r.labels[label]
	if !ok {
		id, ok = r.folded[fold(label)]
	}
	if !ok {
		return nil
	}
	return r.registry.Get(id)
}

func fold(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}
