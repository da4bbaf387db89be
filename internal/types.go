package internal

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SourceOSHWA       = "oshwa"
	SourceWikifactory = "wikifactory"

	DefaultVersion  = "0.1.0"
	DefaultLanguage = "en"
)

type License struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ReferenceURL string `json:"referenceUrl"`
	IsSPDX       bool   `json:"isSpdx"`
}

func (l *License) String() string {
	if l == nil {
		return ""
	}
	return l.ID
}

func (l License) MarshalYAML() (any, error) {
	return l.ID, nil
}

type File struct {
	Path        string    `json:"path" yaml:"path"`
	Name        string    `json:"name" yaml:"name"`
	MimeType    string    `json:"mimeType" yaml:"mime-type"`
	URL         string    `json:"url" yaml:"url"`
	PermaURL    string    `json:"permaUrl" yaml:"perma-url"`
	CreatedAt   time.Time `json:"createdAt" yaml:"created-at"`
	LastChanged time.Time `json:"lastChanged" yaml:"last-changed"`
	LastVisited time.Time `json:"lastVisited" yaml:"last-visited"`
	License     *License  `json:"license" yaml:"license"`
	Licensor    string    `json:"licensor" yaml:"licensor"`
}

// Extension returns the lower-cased file extension including the dot.
func (f File) Extension() string {
	name := f.Path
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	i := strings.LastIndex(name, ".")
	if i <= 0 {
		return ""
	}
	return strings.ToLower(name[i:])
}

// Stem returns the base name without extension.
func (f File) Stem() string {
	name := f.Path
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return name
}

type Part struct {
	Name     string   `json:"name" yaml:"name"`
	License  *License `json:"license" yaml:"license"`
	Licensor string   `json:"licensor" yaml:"licensor"`
	Source   *File    `json:"source" yaml:"source"`
	Export   []File   `json:"export" yaml:"export"`
	Image    *File    `json:"image" yaml:"image"`
}

type Software struct {
	Release               string   `json:"release" yaml:"release"`
	InstallationGuide     *File    `json:"installationGuide" yaml:"installation-guide"`
	DocumentationLanguage string   `json:"documentationLanguage" yaml:"documentation-language"`
	License               *License `json:"license" yaml:"license"`
	Licensor              string   `json:"licensor" yaml:"licensor"`
}

type ProjectMeta struct {
	Source      string     `json:"source" yaml:"source"`
	Host        string     `json:"host" yaml:"host"`
	Owner       string     `json:"owner" yaml:"owner"`
	Name        string     `json:"name" yaml:"name"`
	Path        string     `json:"path" yaml:"path"`
	Repo        string     `json:"repo" yaml:"repo"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"created-at"`
	LastVisited time.Time  `json:"lastVisited" yaml:"last-visited"`
	LastChanged *time.Time `json:"lastChanged" yaml:"last-changed"`
}

type Project struct {
	Meta                        ProjectMeta        `json:"meta" yaml:"meta"`
	Name                        string             `json:"name" yaml:"name"`
	Repo                        string             `json:"repo" yaml:"repo"`
	Version                     string             `json:"version" yaml:"version"`
	Release                     string             `json:"release" yaml:"release"`
	License                     *License           `json:"license" yaml:"license"`
	Licensor                    string             `json:"licensor" yaml:"licensor"`
	Organization                string             `json:"organization" yaml:"organization"`
	Readme                      *File              `json:"readme" yaml:"readme"`
	ContributionGuide           *File              `json:"contributionGuide" yaml:"contribution-guide"`
	Image                       *File              `json:"image" yaml:"image"`
	UserManual                  *File              `json:"userManual" yaml:"user-manual"`
	BoM                         *File              `json:"bom" yaml:"bom"`
	ManufacturingInstructions   *File              `json:"manufacturingInstructions" yaml:"manufacturing-instructions"`
	Function                    string             `json:"function" yaml:"function"`
	DocumentationLanguage       string             `json:"documentationLanguage" yaml:"documentation-language"`
	TechnologyReadinessLevel    *string            `json:"technologyReadinessLevel" yaml:"technology-readiness-level"`
	DocumentationReadinessLevel *string            `json:"documentationReadinessLevel" yaml:"documentation-readiness-level"`
	Attestation                 *string            `json:"attestation" yaml:"attestation"`
	Publication                 *string            `json:"publication" yaml:"publication"`
	StandardCompliance          *string            `json:"standardCompliance" yaml:"standard-compliance"`
	CPCPatentClass              ClassificationCode `json:"cpcPatentClass" yaml:"cpc-patent-class"`
	TSDC                        *string            `json:"tsdc" yaml:"tsdc"`
	OuterDimensionsMM           *string            `json:"outerDimensionsMm" yaml:"outer-dimensions-mm"`
	Parts                       []Part             `json:"parts" yaml:"part"`
	Software                    []Software         `json:"software" yaml:"software"`
}

// ID identifies a project across runs: host/owner/name[/path].
func (p *Project) ID() string {
	parts := []string{p.Meta.Host, p.Meta.Owner, p.Meta.Name}
	if p.Meta.Path != "" {
		parts = append(parts, strings.Trim(p.Meta.Path, "/"))
	}
	return strings.Join(parts, "/")
}

// ClassificationCode is either a single code or a list of codes.
type ClassificationCode struct {
	Code  string
	Codes []string
	List  bool
}

func SingleCode(code string) ClassificationCode {
	return ClassificationCode{Code: code}
}

func CodeList(codes []string) ClassificationCode {
	out := make([]string, len(codes))
	copy(out, codes)
	return ClassificationCode{Codes: out, List: true}
}

func (c ClassificationCode) IsEmpty() bool {
	if c.List {
		return len(c.Codes) == 0
	}
	return c.Code == ""
}

// Values returns the codes as a list, empty codes omitted.
func (c ClassificationCode) Values() []string {
	if c.List {
		return c.Codes
	}
	if c.Code == "" {
		return nil
	}
	return []string{c.Code}
}

func (c ClassificationCode) String() string {
	if c.List {
		return strings.Join(c.Codes, ", ")
	}
	return c.Code
}

func (c ClassificationCode) value() any {
	if c.List {
		if c.Codes == nil {
			return []string{}
		}
		return c.Codes
	}
	return c.Code
}

func (c ClassificationCode) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.value())
}

func (c *ClassificationCode) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*c = SingleCode(single)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("classification code: %w", err)
	}
	*c = CodeList(list)
	return nil
}

func (c ClassificationCode) MarshalYAML() (any, error) {
	return c.value(), nil
}

func (c *ClassificationCode) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*c = CodeList(list)
		return nil
	}
	var single string
	if err := node.Decode(&single); err != nil {
		return err
	}
	*c = SingleCode(single)
	return nil
}
