package normalizer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/OPEN-NEXT/LOSH-krawler/internal"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/classify"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/formats"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/licenses"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/logging"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/util"
)

var ErrUnknownSource = errors.New("unknown source")

// Normalizer converts one provider record into a Project. Implementations
// hold only immutable tables and are safe for concurrent use.
type Normalizer interface {
	Source() string
	Normalize(raw map[string]any) (*internal.Project, error)
}

// Deps are the shared read-only tables every normalizer needs.
type Deps struct {
	Formats  *formats.Registry
	Licenses *licenses.Registry
	Language classify.LanguageDetector
	Logger   *log.Logger
}

// LoadDeps builds Deps from the embedded tables.
func LoadDeps(logger *log.Logger) (Deps, error) {
	fmts, err := formats.Load()
	if err != nil {
		return Deps{}, err
	}
	lics, err := licenses.Load()
	if err != nil {
		return Deps{}, err
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return Deps{
		Formats:  fmts,
		Licenses: lics,
		Language: classify.NewWhatlangDetector(),
		Logger:   logger,
	}, nil
}

func (d Deps) logger() *log.Logger {
	if d.Logger == nil {
		return logging.Discard()
	}
	return d.Logger
}

type Registry struct {
	normalizers map[string]Normalizer
}

func NewRegistry(normalizers ...Normalizer) *Registry {
	r := &Registry{normalizers: map[string]Normalizer{}}
	for _, n := range normalizers {
		r.normalizers[n.Source()] = n
	}
	return r
}

// Default registers every provider known to the krawler.
func Default(deps Deps) *Registry {
	return NewRegistry(NewOSHWA(deps), NewWikifactory(deps))
}

func (r *Registry) Get(source string) (Normalizer, error) {
	n, ok := r.normalizers[strings.ToLower(strings.TrimSpace(source))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	return n, nil
}

func (r *Registry) Sources() []string {
	out := make([]string, 0, len(r.normalizers))
	for name := range r.normalizers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

var epoch = time.Unix(0, 0).UTC()

func timeOrEpoch(v util.Value) time.Time {
	if t, ok := v.Time(); ok {
		return t
	}
	return epoch
}

// provenance reads the keys the fetch layer injects into every record.
func provenance(raw map[string]any, source string) (string, time.Time) {
	fetcher := util.Lookup(raw, "fetcher").String(source)
	return fetcher, timeOrEpoch(util.Lookup(raw, "lastVisited"))
}

func normalizeVersion(v util.Value) string {
	return escapeVersion(rawVersion(v))
}

// rawVersion is the unescaped version, defaulted when absent.
func rawVersion(v util.Value) string {
	if version := strings.TrimSpace(v.String("")); version != "" {
		return version
	}
	return internal.DefaultVersion
}

func normalizeFunction(v util.Value) string {
	return util.StripHTML(v.String(""))
}

// escapeVersion percent-encodes every byte except letters, digits, "_.-~"
// and "/", so "1.0+rc 2" becomes "1.0%2Brc%202".
func escapeVersion(s string) string {
	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9',
			c == '_', c == '.', c == '-', c == '~', c == '/':
			sb.WriteByte(c)
		default:
			sb.WriteByte('%')
			sb.WriteByte(hex[c>>4])
			sb.WriteByte(hex[c&15])
		}
	}
	return sb.String()
}
