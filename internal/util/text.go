package util

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var reSpaces = regexp.MustCompile(`\s+`)

// StripHTML returns the text content of an HTML fragment with whitespace collapsed.
func StripHTML(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(input))
	if err != nil {
		return CollapseSpaces(input)
	}
	doc.Find("br").ReplaceWithHtml(" ")
	doc.Find("p,li,div").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})
	return CollapseSpaces(doc.Text())
}

func CollapseSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// TitleName capitalizes each word and keeps only letters and digits,
// "front panel-v2" becomes "FrontPanelV2".
func TitleName(input string) string {
	caser := cases.Title(language.Und)
	titled := caser.String(strings.NewReplacer("_", " ", "-", " ").Replace(input))
	out := strings.Builder{}
	for _, r := range titled {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out.WriteRune(r)
		}
	}
	return out.String()
}

// FileSlug turns a project id into a name usable on disk.
func FileSlug(id string) string {
	s := slug.Make(strings.ReplaceAll(id, "/", " "))
	if s == "" {
		return "project"
	}
	return s
}

// NormalizeStem upper-cases a file stem and folds spaces and hyphens into underscores.
func NormalizeStem(stem string) string {
	s := strings.ToUpper(strings.TrimSpace(stem))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// CompactStem upper-cases a file stem and drops spaces, hyphens and underscores.
func CompactStem(stem string) string {
	s := strings.ToUpper(strings.TrimSpace(stem))
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
}
