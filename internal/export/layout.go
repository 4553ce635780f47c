package export

import (
	"fmt"
	"os"
	"strings"

	pdflib "github.com/digitorus/pdf"
)

// letter is used when a page carries no usable MediaBox.
var letter = pageBox{W: 612, H: 792}

type pageBox struct {
	LLX, LLY float64
	W, H     float64
}

// widget is one visible rectangle of an AcroForm field, in PDF points.
type widget struct {
	Field    string
	Type     string // Tx, Btn, Ch, Sig
	Page     int    // 0-based
	LLX, LLY float64
	URX, URY float64
}

type formLayout struct {
	Pages   []pageBox
	Widgets []widget
}

// readFormLayout reads page boxes and field widget rectangles from the
// template. The reader panics on malformed objects; those become errors.
func readFormLayout(path string) (layout *formLayout, err error) {
	defer func() {
		if r := recover(); r != nil {
			layout, err = nil, fmt.Errorf("failed to parse template: %v", r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	rdr, err := pdflib.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	n := rdr.NumPage()
	if n == 0 {
		return nil, fmt.Errorf("template has no pages")
	}

	layout = &formLayout{Pages: make([]pageBox, 0, n)}
	for i := 1; i <= n; i++ {
		page := rdr.Page(i)
		layout.Pages = append(layout.Pages, mediaBox(page.V))

		annots := page.V.Key("Annots")
		for j := 0; j < annots.Len(); j++ {
			if w, ok := readWidget(annots.Index(j), i-1); ok {
				layout.Widgets = append(layout.Widgets, w)
			}
		}
	}
	return layout, nil
}

func mediaBox(page pdflib.Value) pageBox {
	box := inherited(page, "MediaBox")
	if box.Kind() != pdflib.Array || box.Len() < 4 {
		return letter
	}
	llx, lly := box.Index(0).Float64(), box.Index(1).Float64()
	urx, ury := box.Index(2).Float64(), box.Index(3).Float64()
	if urx <= llx || ury <= lly {
		return letter
	}
	return pageBox{LLX: llx, LLY: lly, W: urx - llx, H: ury - lly}
}

// inherited looks key up on the node and then its Parent chain.
func inherited(v pdflib.Value, key string) pdflib.Value {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		if val := v.Key(key); !val.IsNull() {
			return val
		}
		v = v.Key("Parent")
	}
	return pdflib.Value{}
}

func readWidget(a pdflib.Value, page int) (widget, bool) {
	if a.Key("Subtype").Name() != "Widget" {
		return widget{}, false
	}
	rect := a.Key("Rect")
	if rect.Len() < 4 {
		return widget{}, false
	}
	name := fullFieldName(a)
	if name == "" {
		return widget{}, false
	}

	w := widget{
		Field: name,
		Type:  inherited(a, "FT").Name(),
		Page:  page,
		LLX:   rect.Index(0).Float64(),
		LLY:   rect.Index(1).Float64(),
		URX:   rect.Index(2).Float64(),
		URY:   rect.Index(3).Float64(),
	}
	if w.LLX > w.URX {
		w.LLX, w.URX = w.URX, w.LLX
	}
	if w.LLY > w.URY {
		w.LLY, w.URY = w.URY, w.LLY
	}
	return w, true
}

// fullFieldName joins partial names (T) up the Parent chain with dots.
func fullFieldName(v pdflib.Value) string {
	var parts []string
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		if t := v.Key("T"); !t.IsNull() {
			parts = append([]string{t.Text()}, parts...)
		}
		v = v.Key("Parent")
	}
	return strings.Join(parts, ".")
}
