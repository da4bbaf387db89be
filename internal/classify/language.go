package classify

import (
	"errors"
	"strings"

	"github.com/abadojack/whatlanggo"

	"github.com/OPEN-NEXT/LOSH-krawler/internal"
)

var ErrUndetermined = errors.New("language undetermined")

// LanguageDetector reports the ISO 639-1 code of a text.
type LanguageDetector interface {
	Detect(text string) (string, error)
}

type WhatlangDetector struct{}

func NewWhatlangDetector() WhatlangDetector {
	return WhatlangDetector{}
}

func (WhatlangDetector) Detect(text string) (string, error) {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return "", ErrUndetermined
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return "", ErrUndetermined
	}
	return code, nil
}

// DetectLanguage never fails: empty text, detector errors and anything that
// is not a two-letter code fall back to English.
func DetectLanguage(d LanguageDetector, text string) string {
	if d == nil || strings.TrimSpace(text) == "" {
		return internal.DefaultLanguage
	}
	code, err := d.Detect(text)
	if err != nil {
		return internal.DefaultLanguage
	}
	code = strings.ToLower(strings.TrimSpace(code))
	if len(code) != 2 || code[0] < 'a' || code[0] > 'z' || code[1] < 'a' || code[1] > 'z' {
		return internal.DefaultLanguage
	}
	return code
}
