package serializer

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/OPEN-NEXT/LOSH-krawler/internal"
)

type YAMLSerializer struct {
	Indent int
}

func (YAMLSerializer) Extension() string { return ".yml" }

func (s YAMLSerializer) Serialize(p *internal.Project) ([]byte, error) {
	indent := s.Indent
	if indent <= 0 {
		indent = 2
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indent)
	if err := enc.Encode(p); err != nil {
		return nil, &SerializerError{Format: "yaml", Err: err}
	}
	if err := enc.Close(); err != nil {
		return nil, &SerializerError{Format: "yaml", Err: err}
	}
	return buf.Bytes(), nil
}
