package tools

import (
	"encoding/json"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// Definition is one manifest entry. Description is read by the model only.
type Definition struct {
	Name        string
	Description string
	Parameters  jsonschema.Definition
}

// Invocation is a single tool call selected by the model.
type Invocation struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Result is a tool observation: text, or a PNG image.
type Result struct {
	Text     string
	Image    []byte
	MIMEType string
}

// TextResult wraps a text observation.
func TextResult(text string) Result {
	return Result{Text: text}
}

// ImageResult wraps a PNG screenshot.
func ImageResult(png []byte) Result {
	return Result{Image: png, MIMEType: "image/png"}
}

// IsImage reports whether r carries an image instead of text.
func (r Result) IsImage() bool {
	return r.Image != nil
}

// Manifest is an ordered set of definitions with unique names.
type Manifest struct {
	defs  []Definition
	index map[string]int
}

// Merge combines definition sets in order. An entry in a later set replaces
// an earlier entry of the same name in place.
func Merge(sets ...[]Definition) Manifest {
	m := Manifest{index: map[string]int{}}
	for _, set := range sets {
		for _, d := range set {
			if i, ok := m.index[d.Name]; ok {
				m.defs[i] = d
				continue
			}
			m.index[d.Name] = len(m.defs)
			m.defs = append(m.defs, d)
		}
	}
	return m
}

// Definitions returns the entries in registration order.
func (m Manifest) Definitions() []Definition {
	return append([]Definition(nil), m.defs...)
}

// Lookup finds an entry by name.
func (m Manifest) Lookup(name string) (Definition, bool) {
	i, ok := m.index[name]
	if !ok {
		return Definition{}, false
	}
	return m.defs[i], true
}

// Len is the number of entries.
func (m Manifest) Len() int {
	return len(m.defs)
}

func emptyObject() jsonschema.Definition {
	return jsonschema.Definition{
		Type:       jsonschema.Object,
		Properties: map[string]jsonschema.Definition{},
	}
}
