package schema

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is the YAML form of a set of node schemas:
//
//	nodes:
//	  - label: Movie
//	    fields:
//	      - {name: id, type: id}
//	      - {name: title, type: string}
//	      - {name: actors, type: relationship, target: Person, rel: ACTED_IN, direction: IN}
type Document struct {
	Nodes []NodeDef `yaml:"nodes"`
}

// NodeDef is the YAML form of a single schema
type NodeDef struct {
	Label  string     `yaml:"label"`
	Fields []FieldDef `yaml:"fields"`
}

// FieldDef is the YAML form of a field annotation
type FieldDef struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Optional  bool   `yaml:"optional,omitempty"`
	Target    string `yaml:"target,omitempty"`
	Rel       string `yaml:"rel,omitempty"`
	Direction string `yaml:"direction,omitempty"`
	Eager     bool   `yaml:"eager,omitempty"`
	Stringify bool   `yaml:"stringify,omitempty"`
}

// LoadFile reads schema definitions from a YAML file into the registry
func LoadFile(path string, reg *Registry) ([]*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema file: %w", err)
	}
	defer f.Close()

	schemas, err := LoadYAML(f, reg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return schemas, nil
}

// LoadYAML decodes schema definitions and registers them. Relationship targets
// are looked up by label through the registry when first resolved, so
// definitions may reference each other in any order. Either every node of the
// document is registered or, on error, none is.
func LoadYAML(r io.Reader, reg *Registry) ([]*Schema, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode schema document: %w", err)
	}

	schemas := make([]*Schema, 0, len(doc.Nodes))
	for _, node := range doc.Nodes {
		s, err := node.build(reg)
		if err == nil {
			err = reg.Register(s)
		}
		if err != nil {
			reg.remove(schemas)
			return nil, err
		}
		schemas = append(schemas, s)
	}

	if err := reg.ValidateAll(); err != nil {
		reg.remove(schemas)
		return nil, err
	}
	return schemas, nil
}

func (n NodeDef) build(reg *Registry) (*Schema, error) {
	fields := make([]Field, 0, len(n.Fields))
	for _, def := range n.Fields {
		annotation, err := def.annotation(reg)
		if err != nil {
			return nil, &SchemaError{Label: n.Label, Reasons: []string{fmt.Sprintf("field %q: %v", def.Name, err)}}
		}
		fields = append(fields, F(def.Name, annotation))
	}
	return New(n.Label, fields...), nil
}

func (d FieldDef) annotation(reg *Registry) (Annotation, error) {
	switch d.Type {
	case "id", "identity":
		return ID(), nil
	case "relationship":
		if d.Target == "" {
			return nil, fmt.Errorf("relationship requires a target")
		}
		dir, err := ParseDirection(d.Direction)
		if err != nil {
			return nil, err
		}
		return Relationship{
			Target:    reg.Ref(d.Target),
			Label:     d.Rel,
			Direction: dir,
			Eager:     d.Eager,
		}, nil
	default:
		kind, err := ParseKind(d.Type)
		if err != nil {
			return nil, err
		}
		return Scalar{Kind: kind, Optional: d.Optional, Stringify: d.Stringify}, nil
	}
}
