package serializer

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/OPEN-NEXT/LOSH-krawler/internal"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/util"
)

type Format string

const (
	FormatTurtle   Format = "turtle"
	FormatNTriples Format = "ntriples"
)

const (
	okhNamespace  = "https://github.com/OPEN-NEXT/OKH-LOSH/raw/master/OKH-LOSH.ttl#"
	rdfNamespace  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	rdfsNamespace = "http://www.w3.org/2000/01/rdf-schema#"
	spdxNamespace = "https://spdx.org/licenses/"
)

var ErrNoRepo = errors.New("project has no repository url")

var prefixes = map[string]string{
	"okh":  okhNamespace,
	"rdf":  rdfNamespace,
	"rdfs": rdfsNamespace,
}

type iri string

type triple struct {
	subject   iri
	predicate iri
	object    string
	isIRI     bool
}

type graph struct {
	namespace string
	triples   []triple
}

// add records a triple. Nil and empty objects are skipped, strings that are
// absolute http(s) URLs become IRI references.
func (g *graph) add(subject, predicate iri, object any) {
	switch o := object.(type) {
	case nil:
	case iri:
		g.triples = append(g.triples, triple{subject, predicate, string(o), true})
	case *string:
		if o != nil {
			g.add(subject, predicate, *o)
		}
	case string:
		if o == "" {
			return
		}
		g.triples = append(g.triples, triple{subject, predicate, o, isURL(o)})
	case internal.ClassificationCode:
		if o.IsEmpty() {
			return
		}
		for _, code := range o.Values() {
			g.add(subject, predicate, code)
		}
	default:
		g.add(subject, predicate, fmt.Sprint(o))
	}
}

// addLicense links SPDX licenses by IRI, anything else as a literal.
func (g *graph) addLicense(subject iri, l *internal.License) {
	if l == nil {
		return
	}
	if l.IsSPDX {
		g.add(subject, okh("spdxLicense"), iri(spdxNamespace+l.ID))
		return
	}
	g.add(subject, okh("alternativeLicense"), l.ID)
}

func (g *graph) node(local string) iri {
	return iri(g.namespace + local)
}

func okh(local string) iri { return iri(okhNamespace + local) }

var (
	rdfType   = iri(rdfNamespace + "type")
	rdfsLabel = iri(rdfsNamespace + "label")
)

func isURL(s string) bool {
	if strings.ContainsAny(s, " \t\n") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// projectNamespace is the repository URL with the version appended as a path segment.
func projectNamespace(p *internal.Project) (string, error) {
	u, err := url.Parse(p.Repo)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", ErrNoRepo
	}
	base := url.URL{Scheme: u.Scheme, Host: u.Host}
	return base.String() + path.Join("/", u.Path, p.Version) + "/", nil
}

func buildGraph(p *internal.Project) (*graph, error) {
	ns, err := projectNamespace(p)
	if err != nil {
		return nil, err
	}
	g := &graph{namespace: ns}

	moduleName := util.TitleName(p.Name)
	if moduleName == "" {
		moduleName = "Module"
	}
	used := map[string]bool{moduleName: true}
	module := g.node(moduleName)
	g.add(module, rdfType, okh("Module"))
	g.add(module, rdfsLabel, p.Name)
	g.add(module, okh("versionOf"), p.Repo)
	g.add(module, okh("repo"), p.Repo)
	g.add(module, okh("dataSource"), p.Meta.Source)
	g.add(module, okh("repoHost"), p.Meta.Host)
	g.add(module, okh("version"), p.Version)
	g.add(module, okh("release"), p.Release)
	g.addLicense(module, p.License)
	g.add(module, okh("licensor"), p.Licensor)
	g.add(module, okh("organization"), p.Organization)
	g.add(module, okh("documentationLanguage"), p.DocumentationLanguage)
	g.add(module, okh("function"), p.Function)
	g.add(module, okh("cpcPatentClass"), p.CPCPatentClass)
	g.add(module, okh("tsdc"), p.TSDC)
	g.add(module, okh("outerDimensionsMM"), p.OuterDimensionsMM)

	parent := fmt.Sprintf("%s v%s", p.Name, p.Version)
	infoFiles := []struct {
		file      *internal.File
		local     string
		typ       string
		predicate string
	}{
		{p.Readme, "Readme", "Readme", "hasReadme"},
		{p.Image, "Image", "Image", "hasImage"},
		{p.BoM, "BillOfMaterials", "BoM", "hasBoM"},
		{p.ManufacturingInstructions, "ManufacturingInstructions", "ManufacturingInstructions", "hasManufacturingInstructions"},
		{p.UserManual, "UserManual", "UserManual", "hasUserManual"},
	}
	for _, info := range infoFiles {
		if info.file == nil {
			continue
		}
		used[info.local] = true
		subject := g.node(info.local)
		g.add(subject, rdfType, okh(info.typ))
		g.add(subject, rdfsLabel, fmt.Sprintf("%s of %s", info.local, parent))
		addFile(g, subject, info.file)
		g.add(module, okh(info.predicate), subject)
	}

	for _, part := range p.Parts {
		name := part.Name
		if name == p.Name {
			name += "_part"
		}
		local := uniqueLocal(used, util.TitleName(name))
		subject := g.node(local)
		g.add(subject, rdfType, okh("Part"))
		g.add(subject, rdfsLabel, part.Name)
		g.add(subject, okh("documentationLanguage"), p.DocumentationLanguage)
		g.addLicense(subject, part.License)
		g.add(subject, okh("licensor"), part.Licensor)

		if part.Source != nil {
			source := g.node(local + "_source")
			g.add(subject, okh("source"), source)
			g.add(source, rdfType, okh("SourceFile"))
			g.add(source, rdfsLabel, fmt.Sprintf("Source File of %s of %s", part.Name, parent))
			addFile(g, source, part.Source)
		}
		for i := range part.Export {
			export := g.node(fmt.Sprintf("%s_export%d", local, i+1))
			g.add(subject, okh("export"), export)
			g.add(export, rdfType, okh("ExportFile"))
			g.add(export, rdfsLabel, fmt.Sprintf("Export File of %s of %s", part.Name, parent))
			addFile(g, export, &part.Export[i])
		}
		if part.Image != nil {
			image := g.node(local + "_image")
			g.add(subject, okh("image"), image)
			g.add(image, rdfType, okh("Image"))
			g.add(image, rdfsLabel, fmt.Sprintf("Image of %s of %s", part.Name, parent))
			addFile(g, image, part.Image)
		}
		g.add(module, okh("hasComponent"), subject)
	}
	return g, nil
}

// uniqueLocal suffixes _2, _3, ... to a node name already taken, e.g. parts
// with the same stem in different directories.
func uniqueLocal(used map[string]bool, local string) string {
	candidate := local
	for i := 2; used[candidate]; i++ {
		candidate = fmt.Sprintf("%s_%d", local, i)
	}
	used[candidate] = true
	return candidate
}

func addFile(g *graph, subject iri, f *internal.File) {
	g.add(subject, okh("fileUrl"), f.URL)
	g.add(subject, okh("permaURL"), f.PermaURL)
	g.add(subject, okh("fileFormat"), strings.ToUpper(strings.TrimPrefix(f.Extension(), ".")))
}

// RDFSerializer renders a project as an OKH-LOSH graph.
type RDFSerializer struct {
	Format Format
}

func (s RDFSerializer) Extension() string {
	if s.Format == FormatNTriples {
		return ".nt"
	}
	return ".ttl"
}

func (s RDFSerializer) Serialize(p *internal.Project) ([]byte, error) {
	g, err := buildGraph(p)
	if err != nil {
		return nil, &SerializerError{Format: string(s.Format), Err: err}
	}
	switch s.Format {
	case FormatNTriples:
		return g.nTriples(), nil
	case FormatTurtle, "":
		return g.turtle(), nil
	default:
		return nil, &SerializerError{Format: string(s.Format), Err: fmt.Errorf("unsupported rdf format")}
	}
}

func (g *graph) nTriples() []byte {
	var sb strings.Builder
	for _, t := range g.triples {
		fmt.Fprintf(&sb, "<%s> <%s> %s .\n", t.subject, t.predicate, ntObject(t))
	}
	return []byte(sb.String())
}

func ntObject(t triple) string {
	if t.isIRI {
		return "<" + t.object + ">"
	}
	return quote(t.object)
}

func (g *graph) turtle() []byte {
	all := map[string]string{"": g.namespace}
	for k, v := range prefixes {
		all[k] = v
	}
	names := make([]string, 0, len(all))
	for k := range all {
		names = append(names, k)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "@prefix %s: <%s> .\n", name, all[name])
	}

	var order []iri
	bySubject := map[iri][]triple{}
	for _, t := range g.triples {
		if _, ok := bySubject[t.subject]; !ok {
			order = append(order, t.subject)
		}
		bySubject[t.subject] = append(bySubject[t.subject], t)
	}
	for _, subject := range order {
		sb.WriteString("\n")
		sb.WriteString(g.compact(string(subject)))
		sb.WriteString("\n")
		triples := bySubject[subject]
		for i, t := range triples {
			pred := g.compact(string(t.predicate))
			if t.predicate == rdfType {
				pred = "a"
			}
			obj := quote(t.object)
			if t.isIRI {
				obj = g.compact(t.object)
			}
			end := " ;"
			if i == len(triples)-1 {
				end = " ."
			}
			fmt.Fprintf(&sb, "    %s %s%s\n", pred, obj, end)
		}
	}
	return []byte(sb.String())
}

// compact writes an IRI as a prefixed name when the local part allows it.
func (g *graph) compact(full string) string {
	candidates := []struct{ prefix, ns string }{
		{"", g.namespace},
		{"okh", okhNamespace},
		{"rdfs", rdfsNamespace},
		{"rdf", rdfNamespace},
	}
	for _, c := range candidates {
		if !strings.HasPrefix(full, c.ns) {
			continue
		}
		local := strings.TrimPrefix(full, c.ns)
		if local != "" && isLocalName(local) {
			return c.prefix + ":" + local
		}
	}
	return "<" + full + ">"
}

func isLocalName(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' && i > 0:
		default:
			return false
		}
	}
	return true
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}
