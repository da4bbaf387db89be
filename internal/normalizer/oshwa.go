package normalizer

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/OPEN-NEXT/LOSH-krawler/internal"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/classify"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/formats"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/licenses"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/util"
)

const oshwaCertificationURL = "https://certification.oshwa.org/%s.html"

type OSHWA struct {
	formats  *formats.Registry
	licenses *licenses.Resolver
	language classify.LanguageDetector
	logger   *log.Logger
}

func NewOSHWA(deps Deps) *OSHWA {
	return &OSHWA{
		formats:  deps.Formats,
		licenses: licenses.NewResolver(deps.Licenses, licenses.OSHWALabels),
		language: deps.Language,
		logger:   deps.logger().WithPrefix(internal.SourceOSHWA),
	}
}

func (n *OSHWA) Source() string { return internal.SourceOSHWA }

func (n *OSHWA) Normalize(raw map[string]any) (*internal.Project, error) {
	if raw == nil {
		return nil, fmt.Errorf("oshwa: empty record")
	}
	fetcher, lastVisited := provenance(raw, n.Source())
	owner := util.Lookup(raw, "responsibleParty").String("")
	repo := n.repo(raw)

	p := &internal.Project{
		Meta: internal.ProjectMeta{
			Source:      fetcher,
			Host:        fetcher,
			Owner:       owner,
			Name:        util.Lookup(raw, "oshwaUid").String(""),
			Repo:        repo,
			CreatedAt:   timeOrEpoch(util.Lookup(raw, "certificationDate")),
			LastVisited: lastVisited,
		},
		Name:     util.Lookup(raw, "projectName").String(""),
		Repo:     repo,
		Version:  normalizeVersion(util.Lookup(raw, "projectVersion")),
		License:  n.licenses.Resolve(util.Lookup(raw, "hardwareLicense").String("")),
		Licensor: owner,
		Function: normalizeFunction(util.Lookup(raw, "projectDescription")),
		CPCPatentClass: classify.CPCCode(
			util.Lookup(raw, "primaryType").String(""),
			util.Lookup(raw, "additionalType").Strings(),
		),
		Software: []internal.Software{},
	}
	p.DocumentationLanguage = classify.DetectLanguage(n.language, p.Function)
	n.logger.Debug("normalizing", "project", p.ID())

	files := normalizeFiles(raw, fileDefaults{License: p.License, Licensor: p.Licensor, LastVisited: lastVisited}, n.licenses)
	p.Parts = ClassifyParts(files, n.formats)
	return p, nil
}

func (n *OSHWA) repo(raw map[string]any) string {
	if doc := util.Lookup(raw, "documentationUrl").String(""); doc != "" {
		return doc
	}
	return fmt.Sprintf(oshwaCertificationURL, util.Lookup(raw, "oshwaUid").String(""))
}
