package serializer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/OPEN-NEXT/LOSH-krawler/internal"
)

type Serializer interface {
	Serialize(p *internal.Project) ([]byte, error)
	Extension() string
}

type SerializerError struct {
	Format string
	Err    error
}

func (e *SerializerError) Error() string {
	return fmt.Sprintf("serialize %s: %v", e.Format, e.Err)
}

func (e *SerializerError) Unwrap() error { return e.Err }

// ForFormat picks a serializer by name or file extension.
func ForFormat(name string) (Serializer, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "ttl", "turtle", "rdf":
		return RDFSerializer{Format: FormatTurtle}, nil
	case "nt", "ntriples", "n-triples":
		return RDFSerializer{Format: FormatNTriples}, nil
	case "yaml", "yml":
		return YAMLSerializer{Indent: 2}, nil
	case "json":
		return JSONSerializer{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %q", name)
	}
}

// JSONSerializer writes the full project, the form kept in the project store.
type JSONSerializer struct{}

func (JSONSerializer) Extension() string { return ".json" }

func (JSONSerializer) Serialize(p *internal.Project) ([]byte, error) {
	blob, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, &SerializerError{Format: "json", Err: err}
	}
	return blob, nil
}
