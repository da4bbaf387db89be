package serializer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/OPEN-NEXT/LOSH-krawler/internal"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/util"
)

// WriteProjects serializes each project into dir/<slug of its id><ext>.
// A project that fails to serialize does not stop the others; the returned
// error joins every failure.
func WriteProjects(projects []*internal.Project, s Serializer, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	var written []string
	var errs []error
	for _, p := range projects {
		blob, err := s.Serialize(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.ID(), err))
			continue
		}
		out := filepath.Join(dir, util.FileSlug(p.ID())+s.Extension())
		if err := os.WriteFile(out, blob, 0o644); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.ID(), err))
			continue
		}
		written = append(written, out)
	}
	return written, errors.Join(errs...)
}
