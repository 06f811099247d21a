// Package decompose turns content objects into ordered text fragments
// and reassembles simplified text back into the objects' native format.
package decompose

import (
	"fmt"
	"strings"
)

// Field is one declared simplifiable field of a content object.
type Field struct {
	Identifier string // e.g. "title", "post_content"
	Raw        string // the field's raw stored content
	HTML       bool   // whether the field carries markup
	Builder    string // page-builder handling this field, "" = plain
}

// Object is a content object presented for decomposition.
type Object struct {
	Fields []Field
}

// Part is one candidate fragment: a stable identifier, its text and
// whether the text carries markup. Identifiers are "<field>" for whole
// fields and "<field>.<n>" for the nth block of a split field, so
// repeated decomposition of unchanged content yields identical parts.
type Part struct {
	Identifier string
	Text       string
	HTML       bool
}

// Block is one text block produced by a page builder.
type Block struct {
	Text string
	HTML bool
}

// PageBuilder splits a raw field into ordered text blocks and substitutes
// replacement text back into the raw content.
type PageBuilder interface {
	// Name returns the registry key for this builder.
	Name() string

	// SplitBlocks extracts the ordered text blocks of raw content.
	SplitBlocks(raw string) []Block

	// Reassemble replaces the text of the blocks whose index appears in
	// replacements, preserving all non-text structure byte for byte.
	Reassemble(raw string, replacements map[int]string) (string, error)
}

// Registry holds the available page builders.
type Registry struct {
	builders map[string]PageBuilder
}

// NewRegistry returns a registry preloaded with the built-in builders.
func NewRegistry() *Registry {
	r := &Registry{builders: map[string]PageBuilder{}}
	r.Register(Plain{})
	r.Register(BlockTags{})
	return r
}

// Register adds a builder under its name.
func (r *Registry) Register(b PageBuilder) {
	r.builders[b.Name()] = b
}

// Get returns the builder registered under name; the empty name resolves
// to the plain builder.
func (r *Registry) Get(name string) (PageBuilder, error) {
	if name == "" {
		name = "plain"
	}
	b, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("decompose: unknown page builder %q", name)
	}
	return b, nil
}

// Decomposer extracts fragments from objects using the registered
// page builders.
type Decomposer struct {
	registry *Registry
}

// New creates a Decomposer over the given builder registry.
func New(registry *Registry) *Decomposer {
	return &Decomposer{registry: registry}
}

// Decompose returns the ordered candidate fragments of an object. Fields
// that split into a single block keep the bare field identifier; empty
// blocks are skipped.
func (d *Decomposer) Decompose(obj Object) ([]Part, error) {
	var parts []Part
	for _, field := range obj.Fields {
		builder, err := d.registry.Get(field.Builder)
		if err != nil {
			return nil, err
		}
		blocks := builder.SplitBlocks(field.Raw)
		for i, block := range blocks {
			text := strings.TrimSpace(block.Text)
			if text == "" {
				continue
			}
			identifier := field.Identifier
			if len(blocks) > 1 {
				identifier = fmt.Sprintf("%s.%d", field.Identifier, i)
			}
			parts = append(parts, Part{
				Identifier: identifier,
				Text:       text,
				HTML:       block.HTML || field.HTML,
			})
		}
	}
	return parts, nil
}

// Reassemble substitutes simplified texts back into the object.
// replacements maps part identifiers to replacement text; identifiers
// without a replacement keep their original text, and all surrounding
// structure is preserved exactly.
func (d *Decomposer) Reassemble(obj Object, replacements map[string]string) (Object, error) {
	result := Object{Fields: make([]Field, len(obj.Fields))}
	copy(result.Fields, obj.Fields)

	for i, field := range result.Fields {
		builder, err := d.registry.Get(field.Builder)
		if err != nil {
			return Object{}, err
		}
		blocks := builder.SplitBlocks(field.Raw)

		byIndex := map[int]string{}
		for j := range blocks {
			identifier := field.Identifier
			if len(blocks) > 1 {
				identifier = fmt.Sprintf("%s.%d", field.Identifier, j)
			}
			if text, ok := replacements[identifier]; ok {
				byIndex[j] = text
			}
		}
		if len(byIndex) == 0 {
			continue
		}

		raw, err := builder.Reassemble(field.Raw, byIndex)
		if err != nil {
			return Object{}, fmt.Errorf("decompose: reassemble %s: %w", field.Identifier, err)
		}
		result.Fields[i].Raw = raw
	}
	return result, nil
}
