package normalizer

import (
	"path"
	"strings"
	"time"

	"github.com/OPEN-NEXT/LOSH-krawler/internal"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/licenses"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/util"
)

// fileDefaults are inherited by files that carry no license or licensor.
type fileDefaults struct {
	License     *internal.License
	Licensor    string
	LastVisited time.Time
}

// normalizeFile converts a provider file record. Records without a file name
// have no path and are rejected.
func normalizeFile(raw map[string]any, dirname string, def fileDefaults, resolver *licenses.Resolver) (internal.File, bool) {
	filename := strings.Trim(util.Lookup(raw, "filename").String(""), "/")
	if filename == "" {
		return internal.File{}, false
	}
	p := filename
	if dirname = strings.Trim(dirname, "/"); dirname != "" {
		p = path.Join(dirname, filename)
	}

	f := internal.File{
		Path:        p,
		MimeType:    util.Lookup(raw, "mimeType").String(""),
		URL:         util.Lookup(raw, "url").String(""),
		PermaURL:    util.Lookup(raw, "permalink").String(""),
		CreatedAt:   timeOrEpoch(util.Lookup(raw, "dateCreated")),
		LastChanged: timeOrEpoch(util.Lookup(raw, "lastUpdated")),
		LastVisited: def.LastVisited,
		License:     def.License,
		Licensor:    util.Lookup(raw, "creator", "profile", "fullName").String(def.Licensor),
	}
	f.Name = f.Stem()

	label := util.Lookup(raw, "license", "abreviation").String("")
	if label == "" {
		label = util.Lookup(raw, "license").String("")
	}
	if label != "" {
		if l := resolver.Resolve(label); l != nil {
			f.License = l
		}
	}
	return f, true
}

// normalizeFiles reads contribution.files, a list of {dirname, file} records.
func normalizeFiles(raw map[string]any, def fileDefaults, resolver *licenses.Resolver) []internal.File {
	entries := util.Lookup(raw, "contribution", "files").Slice()
	files := make([]internal.File, 0, len(entries))
	for _, entry := range entries {
		fileRaw := util.Lookup(entry, "file").Map()
		if fileRaw == nil {
			continue
		}
		dirname := util.Lookup(entry, "dirname").String("")
		if f, ok := normalizeFile(fileRaw, dirname, def, resolver); ok {
			files = append(files, f)
		}
	}
	return files
}

// infoFile returns the first root-level file whose compacted stem is one of names.
func infoFile(files []internal.File, names ...string) *internal.File {
	for i := range files {
		if strings.Contains(files[i].Path, "/") {
			continue
		}
		stem := util.CompactStem(files[i].Stem())
		for _, name := range names {
			if stem == name {
				f := files[i]
				return &f
			}
		}
	}
	return nil
}
