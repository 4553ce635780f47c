package domain

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPDFToViewport_FlipsY(t *testing.T) {
	vp := Viewport{Scale: 2, PageHeightPt: 792}

	x, y := PDFToViewport(100, 700, vp)

	assert.InDelta(t, 200, x, 1e-9)
	assert.InDelta(t, 184, y, 1e-9)
}

func TestViewportToPDF_Origin(t *testing.T) {
	vp := Viewport{Scale: 1.5, PageHeightPt: 842}

	x, y := ViewportToPDF(0, 0, vp)

	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 842, y, 1e-9)
}

func TestTransform_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		vp := Viewport{
			Scale:        0.1 + rng.Float64()*4,
			PageHeightPt: 100 + rng.Float64()*1400,
		}
		xPt := rng.Float64() * 1000
		yPt := rng.Float64() * vp.PageHeightPt

		xPx, yPx := PDFToViewport(xPt, yPt, vp)
		gotX, gotY := ViewportToPDF(xPx, yPx, vp)

		tol := 1e-9 * math.Max(1, vp.PageHeightPt)
		assert.InDelta(t, xPt, gotX, tol)
		assert.InDelta(t, yPt, gotY, tol)
	}
}

func TestTransform_OffPageAccepted(t *testing.T) {
	vp := Viewport{Scale: 1, PageHeightPt: 100}

	p := Point{X: -50, Y: 250}.ToViewport(vp)

	assert.Equal(t, Point{X: -50, Y: -150}, p)
	assert.Equal(t, Point{X: -50, Y: 250}, p.ToPDF(vp))
}
