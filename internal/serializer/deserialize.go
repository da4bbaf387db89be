package serializer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"dario.cat/mergo"
	"github.com/pelletier/go-toml/v2"

	"github.com/OPEN-NEXT/LOSH-krawler/internal"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/normalizer"
)

var ErrInvalidFormat = errors.New("invalid format")

type DeserializerError struct {
	Format string
	Err    error
}

func (e *DeserializerError) Error() string {
	return fmt.Sprintf("deserialize %s: %v", e.Format, e.Err)
}

func (e *DeserializerError) Unwrap() error { return e.Err }

// Deserializer parses a provider document, overlays enrich on its top-level
// keys and hands the result to a normalizer.
type Deserializer interface {
	Deserialize(data []byte, n normalizer.Normalizer, enrich map[string]any) (*internal.Project, error)
}

// ForType picks a deserializer by name or file extension.
func ForType(name string) (Deserializer, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "json":
		return JSONDeserializer{}, nil
	case "toml":
		return TOMLDeserializer{}, nil
	default:
		return nil, fmt.Errorf("unsupported input type: %q", name)
	}
}

type JSONDeserializer struct{}

func (JSONDeserializer) Deserialize(data []byte, n normalizer.Normalizer, enrich map[string]any) (*internal.Project, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &DeserializerError{Format: "json", Err: err}
	}
	return normalize("json", doc, n, enrich)
}

type TOMLDeserializer struct{}

func (TOMLDeserializer) Deserialize(data []byte, n normalizer.Normalizer, enrich map[string]any) (*internal.Project, error) {
	var doc map[string]any
	if err := toml.Unmarshal([]byte(strings.ToValidUTF8(string(data), "")), &doc); err != nil {
		return nil, &DeserializerError{Format: "toml", Err: err}
	}
	return normalize("toml", doc, n, enrich)
}

func normalize(format string, doc any, n normalizer.Normalizer, enrich map[string]any) (*internal.Project, error) {
	raw, ok := doc.(map[string]any)
	if !ok || raw == nil {
		return nil, &DeserializerError{Format: format, Err: ErrInvalidFormat}
	}
	if len(enrich) > 0 {
		if err := mergo.Merge(&raw, enrich, mergo.WithOverride); err != nil {
			return nil, &DeserializerError{Format: format, Err: err}
		}
	}
	return n.Normalize(raw)
}
