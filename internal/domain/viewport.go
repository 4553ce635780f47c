package domain

// Point is a coordinate pair. Stored annotation points are always PDF points
// (origin bottom-left, y up); viewport points exist only inside the editor.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport describes how one unrotated page is drawn on screen.
type Viewport struct {
	Scale        float64
	PageWidthPt  float64
	PageHeightPt float64
}

// PDFToViewport maps a PDF-space point to viewport pixels (origin top-left, y down).
func PDFToViewport(xPt, yPt float64, vp Viewport) (float64, float64) {
	return xPt * vp.Scale, (vp.PageHeightPt - yPt) * vp.Scale
}

// ViewportToPDF is the exact inverse of PDFToViewport. Inputs outside the page
// are accepted and produce off-page coordinates.
func ViewportToPDF(xPx, yPx float64, vp Viewport) (float64, float64) {
	return xPx / vp.Scale, vp.PageHeightPt - yPx/vp.Scale
}

// ToViewport is the Point form of PDFToViewport.
func (p Point) ToViewport(vp Viewport) Point {
	x, y := PDFToViewport(p.X, p.Y, vp)
	return Point{X: x, Y: y}
}

// ToPDF is the Point form of ViewportToPDF.
func (p Point) ToPDF(vp Viewport) Point {
	x, y := ViewportToPDF(p.X, p.Y, vp)
	return Point{X: x, Y: y}
}
