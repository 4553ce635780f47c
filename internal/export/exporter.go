// Package export flattens a draft onto its template PDF: form values are
// burned in, annotations and the freehand drawing are painted over the pages.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/phpdave11/gofpdf"
	"github.com/phpdave11/gofpdf/contrib/gofpdi"

	"pdf-form-drafts/internal/domain"
)

const (
	fieldFont       = "Helvetica"
	maxFieldFontPt  = 12.0
	minFieldFontPt  = 4.0
	lineSpacing     = 1.2
	drawingImageKey = "draft-drawing"
)

// PDFExporter implements domain.Exporter with gofpdf. Template pages are
// imported as form XObjects, which drops the interactive widgets.
type PDFExporter struct {
	files  domain.FileStore
	logger domain.Logger
}

func NewPDFExporter(files domain.FileStore, logger domain.Logger) *PDFExporter {
	return &PDFExporter{files: files, logger: logger}
}

func (e *PDFExporter) Export(ctx context.Context, req domain.ExportRequest) (string, error) {
	if _, statErr := os.Stat(req.TemplatePath); statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", domain.ErrTemplateFileGone, req.TemplatePath)
		}
		return "", fmt.Errorf("stat template: %w", statErr)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	layout, err := readFormLayout(req.TemplatePath)
	if err != nil {
		return "", err
	}

	var drawing []byte
	if req.DrawingPath != nil && e.files.Exists(*req.DrawingPath) {
		if drawing, err = e.files.Read(*req.DrawingPath); err != nil {
			return "", fmt.Errorf("read drawing: %w", err)
		}
	}

	dest := e.files.ExportPath(req.UserID, req.DraftID)
	tmp, err := e.files.TempPath(dest)
	if err != nil {
		return "", err
	}
	committed := false
	defer func() {
		if !committed {
			if rmErr := e.files.Remove(tmp); rmErr != nil {
				e.logger.Warn("Failed to remove temp export", "path", tmp, "error", rmErr)
			}
		}
	}()

	if err := e.render(tmp, req, layout, drawing); err != nil {
		return "", err
	}
	if err := e.files.Commit(tmp, dest); err != nil {
		return "", err
	}
	committed = true
	return dest, nil
}

// render writes the flattened document to path. gofpdi panics on malformed
// input, so panics are turned into errors here.
func (e *PDFExporter) render(path string, req domain.ExportRequest, layout *formLayout, drawing []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf library panic: %v", r)
		}
	}()

	values := formValues(req.FormData)
	annotations := e.parseAnnotations(req)

	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	importer := gofpdi.NewImporter()

	if drawing != nil {
		pdf.RegisterImageOptionsReader(drawingImageKey, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(drawing))
	}

	for i, box := range layout.Pages {
		orientation := "P"
		if box.W > box.H {
			orientation = "L"
		}
		tpl := importer.ImportPage(pdf, req.TemplatePath, i+1, "/MediaBox")
		pdf.AddPageFormat(orientation, gofpdf.SizeType{Wd: box.W, Ht: box.H})
		importer.UseImportedTemplate(pdf, tpl, 0, 0, box.W, box.H)

		for _, w := range layout.Widgets {
			if w.Page == i {
				if v, ok := values[w.Field]; ok {
					drawFieldValue(pdf, tr, box, w, v)
				}
			}
		}

		for _, a := range annotations.OnPage(i) {
			switch a := a.(type) {
			case domain.TextAnnotation:
				drawText(pdf, tr, box, a)
			case domain.InkAnnotation:
				drawInk(pdf, box, a)
			}
		}

		if i == 0 && drawing != nil {
			pdf.ImageOptions(drawingImageKey, 0, 0, box.W, box.H, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		}

		if pdf.Err() {
			return pdf.Error()
		}
	}

	if skipped := annotations.Len() - countOnPages(annotations, len(layout.Pages)); skipped > 0 {
		e.logger.Warn("Annotations outside template pages skipped", "draft_id", req.DraftID, "count", skipped)
	}

	return pdf.OutputFileAndClose(path)
}

func (e *PDFExporter) parseAnnotations(req domain.ExportRequest) domain.AnnotationCollection {
	if req.AnnotationsJSON == nil {
		return domain.NewAnnotationCollection()
	}
	coll, errs := domain.ParseAnnotationsTolerant([]byte(*req.AnnotationsJSON))
	for _, err := range errs {
		e.logger.Warn("Skipping unreadable annotation", "draft_id", req.DraftID, "error", err)
	}
	return coll
}

func countOnPages(c domain.AnnotationCollection, pages int) int {
	n := 0
	for i := 0; i < pages; i++ {
		n += len(c.OnPage(i))
	}
	return n
}

// toTopLeft converts a PDF-space point on the page into the writer's
// top-left origin space.
func toTopLeft(box pageBox, xPt, yPt float64) (float64, float64) {
	return domain.PDFToViewport(xPt-box.LLX, yPt-box.LLY, domain.Viewport{Scale: 1, PageWidthPt: box.W, PageHeightPt: box.H})
}

func drawFieldValue(pdf *gofpdf.Fpdf, tr func(string) string, box pageBox, w widget, value string) {
	if value == "" {
		return
	}
	x, y := toTopLeft(box, w.LLX, w.URY)
	width, height := w.URX-w.LLX, w.URY-w.LLY
	if width <= 0 || height <= 0 {
		return
	}

	size := math.Max(minFieldFontPt, math.Min(maxFieldFontPt, height*0.7))
	pdf.SetFont(fieldFont, "", size)
	pdf.SetTextColor(0, 0, 0)
	align := "LM"
	if w.Type == "Btn" {
		align = "CM"
	}
	pdf.SetXY(x, y)
	pdf.CellFormat(width, height, tr(value), "", 0, align, false, 0, "")
}

func drawText(pdf *gofpdf.Fpdf, tr func(string) string, box pageBox, a domain.TextAnnotation) {
	if strings.TrimSpace(a.Text) == "" {
		return
	}
	size := a.FontSizePt
	if size <= 0 {
		size = maxFieldFontPt
	}
	c := parseColor(a.Color)
	pdf.SetFont(fieldFont, "", size)
	pdf.SetTextColor(c.R, c.G, c.B)

	x, top := toTopLeft(box, a.XPt, a.YPt)
	for i, line := range strings.Split(a.Text, "\n") {
		pdf.Text(x, top+size+float64(i)*size*lineSpacing, tr(line))
	}
}

func drawInk(pdf *gofpdf.Fpdf, box pageBox, a domain.InkAnnotation) {
	c := parseColor(a.Color)
	width := a.ThicknessPt
	if width <= 0 {
		width = 1
	}
	pdf.SetDrawColor(c.R, c.G, c.B)
	pdf.SetLineWidth(width)
	pdf.SetLineCapStyle("round")
	pdf.SetLineJoinStyle("round")

	for _, stroke := range a.Strokes {
		if len(stroke) < 2 {
			continue
		}
		x, y := toTopLeft(box, stroke[0].X, stroke[0].Y)
		pdf.MoveTo(x, y)
		for _, p := range stroke[1:] {
			x, y = toTopLeft(box, p.X, p.Y)
			pdf.LineTo(x, y)
		}
		pdf.DrawPath("D")
	}
}

// formValues flattens the form document into field name -> display text.
// Nested objects are addressed with dotted names, matching full field names.
func formValues(raw json.RawMessage) map[string]string {
	out := map[string]string{}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return out
	}
	flatten("", doc, out)
	return out
}

func flatten(prefix string, doc map[string]interface{}, out map[string]string) {
	for k, v := range doc {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		switch v := v.(type) {
		case map[string]interface{}:
			flatten(name, v, out)
		case string:
			out[name] = v
		case bool:
			if v {
				out[name] = "X"
			} else {
				out[name] = ""
			}
		case float64:
			out[name] = strconv.FormatFloat(v, 'f', -1, 64)
		case []interface{}:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok {
					parts = append(parts, s)
				}
			}
			out[name] = strings.Join(parts, ", ")
		}
	}
}
