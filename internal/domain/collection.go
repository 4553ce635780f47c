package domain

import (
	"encoding/json"
	"fmt"
)

// AnnotationCollection is an immutable ordered list of annotations. Every
// modifying method returns a new collection and leaves the receiver untouched,
// so two collections never share mutable stroke storage.
type AnnotationCollection struct {
	items []Annotation
}

// NewAnnotationCollection builds a collection from deep copies of items.
func NewAnnotationCollection(items ...Annotation) AnnotationCollection {
	out := make([]Annotation, len(items))
	for i, a := range items {
		out[i] = a.clone()
	}
	return AnnotationCollection{items: out}
}

func (c AnnotationCollection) Len() int { return len(c.items) }

// At returns a copy of the i-th annotation.
func (c AnnotationCollection) At(i int) Annotation {
	return c.items[i].clone()
}

// Items returns deep copies of all annotations in order.
func (c AnnotationCollection) Items() []Annotation {
	out := make([]Annotation, len(c.items))
	for i, a := range c.items {
		out[i] = a.clone()
	}
	return out
}

// OnPage returns copies of the annotations placed on page, in collection order.
func (c AnnotationCollection) OnPage(page int) []Annotation {
	var out []Annotation
	for _, a := range c.items {
		if a.Page() == page {
			out = append(out, a.clone())
		}
	}
	return out
}

func (c AnnotationCollection) indexOf(id string) int {
	for i, a := range c.items {
		if a.AnnotationID() == id {
			return i
		}
	}
	return -1
}

// Get looks an annotation up by id.
func (c AnnotationCollection) Get(id string) (Annotation, bool) {
	i := c.indexOf(id)
	if i < 0 {
		return nil, false
	}
	return c.items[i].clone(), true
}

// Add returns a new collection with a appended.
func (c AnnotationCollection) Add(a Annotation) AnnotationCollection {
	out := make([]Annotation, len(c.items), len(c.items)+1)
	copy(out, c.items)
	out = append(out, a.clone())
	return AnnotationCollection{items: out}
}

// Update replaces the annotation with the given id by a patched copy. The bool
// is false, and the receiver is returned unchanged, when the id is unknown.
func (c AnnotationCollection) Update(id string, patch AnnotationPatch) (AnnotationCollection, bool) {
	i := c.indexOf(id)
	if i < 0 {
		return c, false
	}
	out := make([]Annotation, len(c.items))
	copy(out, c.items)
	out[i] = c.items[i].applyPatch(patch)
	return AnnotationCollection{items: out}, true
}

// Equal reports whether both collections hold equal annotations in the same order.
func (c AnnotationCollection) Equal(o AnnotationCollection) bool {
	if len(c.items) != len(o.items) {
		return false
	}
	for i := range c.items {
		if !c.items[i].equal(o.items[i]) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the collection as a JSON array of wire annotations.
func (c AnnotationCollection) MarshalJSON() ([]byte, error) {
	raw := make([]json.RawMessage, 0, len(c.items))
	for _, a := range c.items {
		b, err := MarshalAnnotation(a)
		if err != nil {
			return nil, err
		}
		raw = append(raw, b)
	}
	return json.Marshal(raw)
}

// UnmarshalJSON is strict: any entry that fails to decode fails the whole document.
func (c *AnnotationCollection) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode annotations: %w", err)
	}
	items := make([]Annotation, 0, len(raw))
	for i, r := range raw {
		a, err := UnmarshalAnnotation(r)
		if err != nil {
			return fmt.Errorf("annotation %d: %w", i, err)
		}
		items = append(items, a)
	}
	c.items = items
	return nil
}
