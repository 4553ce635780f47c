package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AnnotationType is the wire tag of an annotation variant.
type AnnotationType string

const (
	AnnotationText AnnotationType = "text"
	AnnotationInk  AnnotationType = "ink"
)

// Annotation is a closed sum over TextAnnotation and InkAnnotation.
// Callers switch on the concrete type.
type Annotation interface {
	AnnotationID() string
	Page() int
	Type() AnnotationType

	clone() Annotation
	applyPatch(AnnotationPatch) Annotation
	equal(Annotation) bool
}

// TextAnnotation is a typed text box. (XPt, YPt) is the box's top-left corner.
type TextAnnotation struct {
	ID         string
	PageIndex  int
	XPt        float64
	YPt        float64
	Text       string
	FontSizePt float64
	WidthPt    float64
	HeightPt   float64
	Color      string
}

// InkAnnotation is a set of freehand strokes.
type InkAnnotation struct {
	ID          string
	PageIndex   int
	XPt         float64
	YPt         float64
	Strokes     [][]Point
	Color       string
	ThicknessPt float64
}

// AnnotationPatch carries the fields of a partial update. Nil means unchanged.
// Text and FontSizePt are ignored for ink annotations.
type AnnotationPatch struct {
	XPt        *float64
	YPt        *float64
	Text       *string
	Color      *string
	FontSizePt *float64
}

// NewTextAnnotation checks structure only: the id must be set and the page index
// non-negative. Sizes and colours are not validated.
func NewTextAnnotation(t TextAnnotation) (TextAnnotation, error) {
	if t.ID == "" {
		return TextAnnotation{}, &ValidationError{Field: "id", Message: "annotation id is required"}
	}
	if t.PageIndex < 0 {
		return TextAnnotation{}, &ValidationError{Field: "pageIndex", Message: "page index must be >= 0"}
	}
	return t, nil
}

// NewInkAnnotation checks structure only: id, page index and at least one stroke.
func NewInkAnnotation(a InkAnnotation) (InkAnnotation, error) {
	if a.ID == "" {
		return InkAnnotation{}, &ValidationError{Field: "id", Message: "annotation id is required"}
	}
	if a.PageIndex < 0 {
		return InkAnnotation{}, &ValidationError{Field: "pageIndex", Message: "page index must be >= 0"}
	}
	if len(a.Strokes) == 0 {
		return InkAnnotation{}, &ValidationError{Field: "strokes", Message: "ink annotation needs at least one stroke"}
	}
	return a.clone().(InkAnnotation), nil
}

func (t TextAnnotation) AnnotationID() string { return t.ID }
func (t TextAnnotation) Page() int            { return t.PageIndex }
func (t TextAnnotation) Type() AnnotationType { return AnnotationText }
func (t TextAnnotation) clone() Annotation    { return t }
func (t TextAnnotation) equal(o Annotation) bool {
	other, ok := o.(TextAnnotation)
	return ok && t == other
}

func (t TextAnnotation) applyPatch(p AnnotationPatch) Annotation {
	if p.XPt != nil {
		t.XPt = *p.XPt
	}
	if p.YPt != nil {
		t.YPt = *p.YPt
	}
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.Color != nil {
		t.Color = *p.Color
	}
	if p.FontSizePt != nil {
		t.FontSizePt = *p.FontSizePt
	}
	return t
}

func (a InkAnnotation) AnnotationID() string { return a.ID }
func (a InkAnnotation) Page() int            { return a.PageIndex }
func (a InkAnnotation) Type() AnnotationType { return AnnotationInk }

func (a InkAnnotation) clone() Annotation {
	strokes := make([][]Point, len(a.Strokes))
	for i, s := range a.Strokes {
		strokes[i] = append([]Point(nil), s...)
	}
	a.Strokes = strokes
	return a
}

func (a InkAnnotation) equal(o Annotation) bool {
	other, ok := o.(InkAnnotation)
	if !ok {
		return false
	}
	if a.ID != other.ID || a.PageIndex != other.PageIndex || a.XPt != other.XPt || a.YPt != other.YPt ||
		a.Color != other.Color || a.ThicknessPt != other.ThicknessPt || len(a.Strokes) != len(other.Strokes) {
		return false
	}
	for i := range a.Strokes {
		if len(a.Strokes[i]) != len(other.Strokes[i]) {
			return false
		}
		for j := range a.Strokes[i] {
			if a.Strokes[i][j] != other.Strokes[i][j] {
				return false
			}
		}
	}
	return true
}

func (a InkAnnotation) applyPatch(p AnnotationPatch) Annotation {
	out := a.clone().(InkAnnotation)
	if p.XPt != nil {
		out.XPt = *p.XPt
	}
	if p.YPt != nil {
		out.YPt = *p.YPt
	}
	if p.Color != nil {
		out.Color = *p.Color
	}
	return out
}

// Wire format. Field names follow the documents stored by existing clients.

type annotationHeader struct {
	ID        string         `json:"id"`
	Type      AnnotationType `json:"type"`
	PageIndex *int           `json:"pageIndex"`
	XPt       float64        `json:"xPt"`
	YPt       float64        `json:"yPt"`
}

type textWire struct {
	ID         string         `json:"id"`
	Type       AnnotationType `json:"type"`
	PageIndex  int            `json:"pageIndex"`
	XPt        float64        `json:"xPt"`
	YPt        float64        `json:"yPt"`
	Text       string         `json:"text"`
	FontSizePt float64        `json:"fontSizePt"`
	WidthPt    float64        `json:"widthPt"`
	HeightPt   float64        `json:"heightPt"`
	Color      string         `json:"color"`
}

type inkWire struct {
	ID          string         `json:"id"`
	Type        AnnotationType `json:"type"`
	PageIndex   int            `json:"pageIndex"`
	XPt         float64        `json:"xPt"`
	YPt         float64        `json:"yPt"`
	Strokes     [][]Point      `json:"strokes"`
	Color       string         `json:"color"`
	ThicknessPt float64        `json:"thicknessPt"`
}

// MarshalAnnotation encodes one annotation in its wire form.
func MarshalAnnotation(a Annotation) ([]byte, error) {
	switch v := a.(type) {
	case TextAnnotation:
		return json.Marshal(textWire{
			ID: v.ID, Type: AnnotationText, PageIndex: v.PageIndex, XPt: v.XPt, YPt: v.YPt,
			Text: v.Text, FontSizePt: v.FontSizePt, WidthPt: v.WidthPt, HeightPt: v.HeightPt, Color: v.Color,
		})
	case InkAnnotation:
		strokes := v.Strokes
		if strokes == nil {
			strokes = [][]Point{}
		}
		return json.Marshal(inkWire{
			ID: v.ID, Type: AnnotationInk, PageIndex: v.PageIndex, XPt: v.XPt, YPt: v.YPt,
			Strokes: strokes, Color: v.Color, ThicknessPt: v.ThicknessPt,
		})
	default:
		return nil, fmt.Errorf("unsupported annotation %T", a)
	}
}

// UnmarshalAnnotation decodes one wire annotation and applies the structural checks
// of the variant constructors.
func UnmarshalAnnotation(data []byte) (Annotation, error) {
	var h annotationHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode annotation: %w", err)
	}
	if h.PageIndex == nil {
		return nil, &ValidationError{Field: "pageIndex", Message: "page index is required"}
	}

	switch h.Type {
	case AnnotationText:
		var w textWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("decode text annotation: %w", err)
		}
		t, err := NewTextAnnotation(TextAnnotation{
			ID: w.ID, PageIndex: w.PageIndex, XPt: w.XPt, YPt: w.YPt, Text: w.Text,
			FontSizePt: w.FontSizePt, WidthPt: w.WidthPt, HeightPt: w.HeightPt, Color: w.Color,
		})
		if err != nil {
			return nil, err
		}
		return t, nil
	case AnnotationInk:
		var w inkWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("decode ink annotation: %w", err)
		}
		ink, err := NewInkAnnotation(InkAnnotation{
			ID: w.ID, PageIndex: w.PageIndex, XPt: w.XPt, YPt: w.YPt,
			Strokes: w.Strokes, Color: w.Color, ThicknessPt: w.ThicknessPt,
		})
		if err != nil {
			return nil, err
		}
		return ink, nil
	default:
		return nil, &ValidationError{Field: "type", Message: fmt.Sprintf("unknown annotation type %q", h.Type)}
	}
}

// ParseAnnotationsTolerant decodes a stored annotations document, skipping entries
// that do not decode. It returns the errors of skipped entries so the caller can log them.
// A document that is not a JSON array yields an empty collection and one error.
func ParseAnnotationsTolerant(data []byte) (AnnotationCollection, []error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return AnnotationCollection{}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return AnnotationCollection{}, []error{fmt.Errorf("decode annotations: %w", err)}
	}

	var errs []error
	items := make([]Annotation, 0, len(raw))
	for i, r := range raw {
		a, err := UnmarshalAnnotation(r)
		if err != nil {
			errs = append(errs, fmt.Errorf("annotation %d: %w", i, err))
			continue
		}
		items = append(items, a)
	}
	return AnnotationCollection{items: items}, errs
}
