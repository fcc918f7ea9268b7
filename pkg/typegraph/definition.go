package typegraph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition is the serializable description of a type graph
type Definition struct {
	Version string    `json:"version,omitempty" yaml:"version,omitempty"`
	Types   []TypeDef `json:"types" yaml:"types"`
}

// TypeDef describes one class or interface
type TypeDef struct {
	Name        string          `json:"name" yaml:"name"`
	Package     string          `json:"package,omitempty" yaml:"package,omitempty"`
	Kind        string          `json:"kind,omitempty" yaml:"kind,omitempty"` // "class" (default) or "interface"
	Modifiers   []string        `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
	Extends     string          `json:"extends,omitempty" yaml:"extends,omitempty"` // qualified superclass name
	Implements  []string        `json:"implements,omitempty" yaml:"implements,omitempty"`
	Annotations []AnnotationDef `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Methods     []MemberDef     `json:"methods,omitempty" yaml:"methods,omitempty"`
}

// MemberDef describes one method
type MemberDef struct {
	Name        string          `json:"name" yaml:"name"`
	Params      []string        `json:"params,omitempty" yaml:"params,omitempty"`
	Returns     string          `json:"returns,omitempty" yaml:"returns,omitempty"`
	Modifiers   []string        `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
	Annotations []AnnotationDef `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

// AnnotationDef describes one annotation instance
type AnnotationDef struct {
	Type       string         `json:"type" yaml:"type"`
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Format is a graph file encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported graph file extension: %s", path)
	}
}

// Decode reads a definition. Unknown fields are rejected.
func Decode(r io.Reader, format Format) (Definition, error) {
	var def Definition
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&def); err != nil {
			return Definition{}, fmt.Errorf("failed to decode graph JSON: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			if err == io.EOF {
				return Definition{}, nil
			}
			return Definition{}, fmt.Errorf("failed to decode graph YAML: %w", err)
		}
	default:
		return Definition{}, fmt.Errorf("unsupported graph format: %q", format)
	}
	return def, nil
}

// Encode writes a definition
func Encode(w io.Writer, def Definition, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(def)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(def); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported graph format: %q", format)
	}
}

// LoadFile decodes and builds the graph stored at path
func LoadFile(path string) (*Graph, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph file: %w", err)
	}
	defer f.Close()

	def, err := Decode(f, format)
	if err != nil {
		return nil, err
	}
	return Build(def)
}
