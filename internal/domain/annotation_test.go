package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleText(id string) TextAnnotation {
	return TextAnnotation{
		ID: id, PageIndex: 0, XPt: 72, YPt: 700, Text: "Double click to edit",
		FontSizePt: 12, WidthPt: 150, HeightPt: 20, Color: "#ff0000",
	}
}

func sampleInk(id string) InkAnnotation {
	return InkAnnotation{
		ID: id, PageIndex: 1,
		Strokes:     [][]Point{{{X: 10, Y: 10}, {X: 20, Y: 25}}},
		Color:       "#000000",
		ThicknessPt: 2,
	}
}

func TestNewTextAnnotation_StructuralOnly(t *testing.T) {
	_, err := NewTextAnnotation(TextAnnotation{PageIndex: 0})
	require.Error(t, err)

	_, err = NewTextAnnotation(TextAnnotation{ID: "a", PageIndex: -1})
	require.Error(t, err)

	// Negative font sizes are the caller's concern.
	a, err := NewTextAnnotation(TextAnnotation{ID: "a", FontSizePt: -4})
	require.NoError(t, err)
	assert.Equal(t, -4.0, a.FontSizePt)
}

func TestNewInkAnnotation_RequiresStroke(t *testing.T) {
	_, err := NewInkAnnotation(InkAnnotation{ID: "ink"})
	require.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "strokes", vErr.Field)
}

func TestNewInkAnnotation_CopiesStrokes(t *testing.T) {
	in := sampleInk("ink")
	out, err := NewInkAnnotation(in)
	require.NoError(t, err)

	in.Strokes[0][0].X = 999
	assert.Equal(t, 10.0, out.Strokes[0][0].X)
}

func TestAnnotationWireFormat(t *testing.T) {
	b, err := MarshalAnnotation(sampleText("t1"))
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "text", m["type"])
	assert.Equal(t, "t1", m["id"])
	assert.Equal(t, 12.0, m["fontSizePt"])
	assert.Equal(t, 150.0, m["widthPt"])

	b, err = MarshalAnnotation(sampleInk("i1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"i1","type":"ink","pageIndex":1,"xPt":0,"yPt":0,
		"strokes":[[{"x":10,"y":10},{"x":20,"y":25}]],"color":"#000000","thicknessPt":2}`, string(b))
}

func TestUnmarshalAnnotation_Variants(t *testing.T) {
	a, err := UnmarshalAnnotation([]byte(`{"id":"x","type":"text","pageIndex":2,"xPt":1,"yPt":2,"text":"hi","fontSizePt":14,"widthPt":150,"heightPt":20,"color":"#00f"}`))
	require.NoError(t, err)
	text, ok := a.(TextAnnotation)
	require.True(t, ok)
	assert.Equal(t, "hi", text.Text)
	assert.Equal(t, 2, text.Page())

	_, err = UnmarshalAnnotation([]byte(`{"id":"x","type":"highlight","pageIndex":0}`))
	assert.Error(t, err)

	_, err = UnmarshalAnnotation([]byte(`{"id":"x","type":"text"}`))
	assert.Error(t, err, "page index is required")

	_, err = UnmarshalAnnotation([]byte(`{"id":"x","type":"ink","pageIndex":0,"strokes":[]}`))
	assert.Error(t, err)
}

func TestParseAnnotationsTolerant_SkipsBadEntries(t *testing.T) {
	doc := `[
		{"id":"a","type":"text","pageIndex":0,"xPt":1,"yPt":2,"text":"ok"},
		{"id":"b","type":"circle","pageIndex":0},
		{"id":"c","type":"ink","pageIndex":0,"strokes":[[{"x":1,"y":1},{"x":2,"y":2}]]}
	]`

	c, errs := ParseAnnotationsTolerant([]byte(doc))

	assert.Equal(t, 2, c.Len())
	assert.Len(t, errs, 1)
	_, ok := c.Get("b")
	assert.False(t, ok)
}

func TestParseAnnotationsTolerant_NotAnArray(t *testing.T) {
	c, errs := ParseAnnotationsTolerant([]byte(`{"broken":`))
	assert.Equal(t, 0, c.Len())
	assert.Len(t, errs, 1)

	c, errs = ParseAnnotationsTolerant([]byte(` null `))
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, errs)
}
