package taxonomy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads and validates a YAML taxonomy file
func LoadFile(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}

	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a YAML taxonomy document. Unknown fields are rejected so that
// misspelled keys fail at startup instead of silently dropping keywords.
func Parse(data []byte) (*Taxonomy, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var spec Spec
	if err := dec.Decode(&spec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse taxonomy: document is empty")
		}
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}

	return New(spec)
}

// Marshal encodes the taxonomy as YAML
func Marshal(t *Taxonomy) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(t.Spec()); err != nil {
		return nil, fmt.Errorf("marshal taxonomy: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshal taxonomy: %w", err)
	}
	return buf.Bytes(), nil
}
