package params

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a parameter file. YAML and JSON files are accepted; JSON
// is decoded by the YAML parser since it is a subset.
func LoadFile(path string) (*Store, error) {
	cleanPath := filepath.Clean(path)
	switch ext := strings.ToLower(filepath.Ext(cleanPath)); ext {
	case ".yaml", ".yml", ".json", ".epf":
	default:
		return nil, fmt.Errorf("parameter file must be .yaml, .yml, .json or .epf, got %q", ext)
	}
	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open parameter file: %w", err)
	}
	defer f.Close()

	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cleanPath, err)
	}
	return s, nil
}

// Load decodes a parameter document. Each top-level key maps either to a
// scalar (a fixed value or string setting) or to a list
// [value, status, p1, p2, prior]; trailing entries may be omitted and the
// prior kind defaults to U. Key order is preserved.
func Load(r io.Reader) (*Store, error) {
	s := NewStore()

	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to parse parameters: %w", err)
	}
	if len(root.Content) == 0 {
		return s, nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parameters must be a mapping, got line %d", doc.Line)
	}

	for i := 0; i+1 < len(doc.Content); i += 2 {
		name := doc.Content[i].Value
		p, err := decodeEntry(name, doc.Content[i+1])
		if err != nil {
			return nil, err
		}
		if err := s.Set(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func decodeEntry(name string, n *yaml.Node) (Parameter, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if v, err := strconv.ParseFloat(n.Value, 64); err == nil {
			return Parameter{Name: name, Value: v, Status: Fixed}, nil
		}
		return Parameter{Name: name, Text: n.Value, Status: Fixed}, nil
	case yaml.SequenceNode:
		return decodeList(name, n.Content)
	}
	return Parameter{}, fmt.Errorf("parameter %s (line %d): expected scalar or list", name, n.Line)
}

func decodeList(name string, items []*yaml.Node) (Parameter, error) {
	if len(items) == 0 {
		return Parameter{}, fmt.Errorf("parameter %s: empty list", name)
	}
	p := Parameter{Name: name, Status: Fixed}
	if v, err := strconv.ParseFloat(items[0].Value, 64); err == nil {
		p.Value = v
	} else {
		p.Text = items[0].Value
	}
	if len(items) > 1 {
		st, err := parseStatus(items[1].Value)
		if err != nil {
			return Parameter{}, fmt.Errorf("parameter %s: %w", name, err)
		}
		p.Status = st
	}
	if len(items) > 3 {
		p1, err := strconv.ParseFloat(items[2].Value, 64)
		if err != nil {
			return Parameter{}, fmt.Errorf("parameter %s: invalid prior value %q: %w", name, items[2].Value, err)
		}
		p2, err := strconv.ParseFloat(items[3].Value, 64)
		if err != nil {
			return Parameter{}, fmt.Errorf("parameter %s: invalid prior value %q: %w", name, items[3].Value, err)
		}
		kind := Uniform
		if len(items) > 4 {
			kind = PriorKind(items[4].Value)
		}
		p.Prior = &Prior{Kind: kind, P1: p1, P2: p2}
	}
	return p, nil
}

func parseStatus(s string) (Status, error) {
	switch strings.ToLower(s) {
	case "free", "true":
		return Free, nil
	case "fixed", "false":
		return Fixed, nil
	case "shared":
		return Shared, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}
