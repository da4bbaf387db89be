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

const wikifactoryBaseURL = "https://wikifactory.com"

type Wikifactory struct {
	formats  *formats.Registry
	licenses *licenses.Resolver
	language classify.LanguageDetector
	logger   *log.Logger
}

func NewWikifactory(deps Deps) *Wikifactory {
	return &Wikifactory{
		formats:  deps.Formats,
		licenses: licenses.NewResolver(deps.Licenses, licenses.WikifactoryLabels),
		language: deps.Language,
		logger:   deps.logger().WithPrefix(internal.SourceWikifactory),
	}
}

func (n *Wikifactory) Source() string { return internal.SourceWikifactory }

func (n *Wikifactory) Normalize(raw map[string]any) (*internal.Project, error) {
	if raw == nil {
		return nil, fmt.Errorf("wikifactory: empty record")
	}
	fetcher, lastVisited := provenance(raw, n.Source())
	owner := util.Lookup(raw, "parentSlug").String("")
	slug := util.Lookup(raw, "slug").String("")
	repo := fmt.Sprintf("%s/%s/%s", wikifactoryBaseURL, owner, slug)

	p := &internal.Project{
		Meta: internal.ProjectMeta{
			Source:      fetcher,
			Host:        fetcher,
			Owner:       owner,
			Name:        slug,
			Repo:        repo,
			CreatedAt:   timeOrEpoch(util.Lookup(raw, "dateCreated")),
			LastVisited: lastVisited,
		},
		Name:           util.Lookup(raw, "name").String(""),
		Repo:           repo,
		Version:        normalizeVersion(util.Lookup(raw, "contribution", "version")),
		License:        n.licenses.Resolve(util.Lookup(raw, "license", "abreviation").String("")),
		Licensor:       util.Lookup(raw, "creator", "profile", "fullName").String(""),
		Organization:   organization(raw),
		Function:       normalizeFunction(util.Lookup(raw, "description")),
		CPCPatentClass: internal.SingleCode(""),
		Software:       []internal.Software{},
	}
	if changed, ok := util.Lookup(raw, "lastUpdated").Time(); ok {
		p.Meta.LastChanged = &changed
	}
	p.Release = fmt.Sprintf("%s/v/%s", repo, escapeVersion(shortVersion(rawVersion(util.Lookup(raw, "contribution", "version")))))
	p.DocumentationLanguage = classify.DetectLanguage(n.language, p.Function)
	n.logger.Debug("normalizing", "project", p.ID())

	def := fileDefaults{License: p.License, Licensor: p.Licensor, LastVisited: lastVisited}
	files := normalizeFiles(raw, def, n.licenses)
	p.Readme = infoFile(files, "README")
	p.ContributionGuide = infoFile(files, "CONTRIBUTING")
	p.UserManual = infoFile(files, "USERGUIDE", "USERMANUAL")
	if image := util.Lookup(raw, "image").Map(); image != nil {
		if f, ok := normalizeFile(image, "", def, n.licenses); ok {
			p.Image = &f
		}
	}
	p.Parts = ClassifyParts(files, n.formats)
	return p, nil
}

func organization(raw map[string]any) string {
	if util.Lookup(raw, "parentContent", "type").String("") != "initiative" {
		return ""
	}
	return util.Lookup(raw, "parentContent", "title").String("")
}

func shortVersion(version string) string {
	r := []rune(version)
	if len(r) > 7 {
		r = r[:7]
	}
	return string(r)
}
