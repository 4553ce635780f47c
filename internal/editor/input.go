package editor

import (
	"math"
	"time"
	"unicode"

	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/mouse"

	"pdf-form-drafts/internal/domain"
)

const (
	defaultDoubleClickInterval = 400 * time.Millisecond
	clickSlopPx                = 4.0
)

// PageInput adapts golang.org/x/mobile mouse and key events for one rendered
// page into Editor transitions. A press and release close together form a
// click; two clicks within the double-click interval also form a double click.
type PageInput struct {
	editor   *Editor
	page     int
	viewport domain.Viewport

	doubleClick time.Duration
	now         func() time.Time

	pressAt   domain.Point
	pressed   bool
	lastClick time.Time
	lastPos   domain.Point
}

// NewPageInput binds page of editor drawn with vp.
func NewPageInput(editor *Editor, page int, vp domain.Viewport) *PageInput {
	return &PageInput{
		editor:      editor,
		page:        page,
		viewport:    vp,
		doubleClick: defaultDoubleClickInterval,
		now:         time.Now,
	}
}

// SetViewport updates the page geometry after a zoom or resize.
func (in *PageInput) SetViewport(vp domain.Viewport) { in.viewport = vp }

// Mouse handles one mouse event in page-local pixels.
func (in *PageInput) Mouse(e mouse.Event) {
	p := domain.Point{X: float64(e.X), Y: float64(e.Y)}
	switch e.Direction {
	case mouse.DirPress:
		if e.Button != mouse.ButtonLeft {
			return
		}
		in.pressed = true
		in.pressAt = p
		in.editor.PointerDown(in.page, in.viewport, p)
	case mouse.DirNone:
		in.editor.PointerMove(in.page, in.viewport, p)
	case mouse.DirRelease:
		if e.Button != mouse.ButtonLeft || !in.pressed {
			return
		}
		in.pressed = false
		in.editor.PointerUp(in.page)
		if distance(in.pressAt, p) > clickSlopPx {
			return
		}
		in.click(p)
	}
}

func (in *PageInput) click(p domain.Point) {
	in.editor.Click(in.page, in.viewport, p)

	now := in.now()
	if !in.lastClick.IsZero() && now.Sub(in.lastClick) <= in.doubleClick && distance(in.lastPos, p) <= clickSlopPx {
		in.lastClick = time.Time{}
		in.editor.DoubleClick(in.page, in.viewport, p)
		return
	}
	in.lastClick = now
	in.lastPos = p
}

// Leave is called when the pointer exits the page.
func (in *PageInput) Leave() {
	in.pressed = false
	in.editor.PointerLeave(in.page)
}

// Blur is called when the open text box loses focus.
func (in *PageInput) Blur() { in.editor.Commit() }

// Key handles keyboard input: typing into an open text box, Enter to commit,
// and Ctrl+Z / Ctrl+Shift+Z / Ctrl+Y for history.
func (in *PageInput) Key(e key.Event) {
	if e.Direction == key.DirRelease {
		return
	}
	st := in.editor.State()
	if st.Phase == PhaseEditing {
		switch e.Code {
		case key.CodeReturnEnter, key.CodeKeypadEnter, key.CodeEscape:
			in.editor.Commit()
		case key.CodeDeleteBackspace:
			r := []rune(st.Buffer)
			if len(r) > 0 {
				in.editor.SetEditText(string(r[:len(r)-1]))
			}
		default:
			if e.Rune > 0 && unicode.IsPrint(e.Rune) && e.Modifiers&key.ModControl == 0 {
				in.editor.SetEditText(st.Buffer + string(e.Rune))
			}
		}
		return
	}

	if e.Modifiers&key.ModControl == 0 {
		return
	}
	switch {
	case e.Code == key.CodeZ && e.Modifiers&key.ModShift != 0, e.Code == key.CodeY:
		in.editor.Redo()
	case e.Code == key.CodeZ:
		in.editor.Undo()
	}
}

func distance(a, b domain.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
