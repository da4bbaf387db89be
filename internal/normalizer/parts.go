package normalizer

import (
	"strings"

	"github.com/OPEN-NEXT/LOSH-krawler/internal"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/formats"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/util"
)

// excludedStems are repository housekeeping files that are never parts.
var excludedStems = map[string]struct{}{
	"ACKNOWLEDGMENTS":       {},
	"AUTHORS":               {},
	"CHANGELOG":             {},
	"CODE_OF_CONDUCT":       {},
	"CODEOWNERS":            {},
	"CONTRIBUTING":          {},
	"CONTRIBUTORS":          {},
	"FUNDING":               {},
	"ISSUE_TEMPLATE":        {},
	"LICENSE":               {},
	"PULL_REQUEST_TEMPLATE": {},
	"README":                {},
	"SECURITY":              {},
	"SUPPORT":               {},
	"USERGUIDE":             {},
	"USERMANUAL":            {},
}

// ClassifyParts groups files sharing a path (extension ignored, case
// insensitive) into parts. Each group gets at most one source and one image;
// groups without any source or export file are dropped.
func ClassifyParts(files []internal.File, reg *formats.Registry) []internal.Part {
	var order []string
	buckets := map[string][]internal.File{}
	for _, f := range files {
		if f.Path == "" {
			continue
		}
		if _, skip := excludedStems[util.NormalizeStem(f.Stem())]; skip {
			continue
		}
		key := strings.ToLower(strings.TrimSuffix(f.Path, pathExt(f.Path)))
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], f)
	}

	parts := make([]internal.Part, 0, len(order))
	for _, key := range order {
		var part internal.Part
		for _, f := range buckets[key] {
			_, category := reg.Classify(f.Extension())
			switch category {
			case formats.CategorySource:
				if part.Source == nil {
					part.Source = &f
				} else {
					part.Export = append(part.Export, f)
				}
			case formats.CategoryExport:
				part.Export = append(part.Export, f)
			case formats.CategoryImage:
				if part.Image == nil {
					part.Image = &f
				}
			}
		}

		if part.Source == nil && len(part.Export) > 0 {
			first := part.Export[0]
			part.Source = &first
			part.Export = part.Export[1:]
		}
		if part.Source == nil {
			continue
		}
		if len(part.Export) == 0 {
			part.Export = []internal.File{}
		}
		part.Name = part.Source.Name
		part.License = part.Source.License
		part.Licensor = part.Source.Licensor
		parts = append(parts, part)
	}
	return parts
}

// pathExt returns the raw extension of the last path element.
func pathExt(p string) string {
	base := p
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		return base[i:]
	}
	return ""
}
