package editor

import (
	"github.com/google/uuid"

	"pdf-form-drafts/internal/domain"
)

// Mode selects what a new gesture creates.
type Mode int

const (
	ModeBrowse Mode = iota
	ModeTextInsert
	ModeInkDraw
)

func (m Mode) String() string {
	switch m {
	case ModeBrowse:
		return "browse"
	case ModeTextInsert:
		return "text"
	case ModeInkDraw:
		return "ink"
	}
	return "unknown"
}

// Phase is the gesture in progress. Legal combinations with Mode:
//
//	PhaseIdle      any mode
//	PhaseDrawing   ModeInkDraw
//	PhaseDragging  ModeBrowse
//	PhaseEditing   any mode
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDrawing
	PhaseDragging
	PhaseEditing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDrawing:
		return "drawing"
	case PhaseDragging:
		return "dragging"
	case PhaseEditing:
		return "editing"
	}
	return "unknown"
}

const (
	PlaceholderText    = "Double click to edit"
	DefaultTextWidthPt = 150.0
	DefaultTextHeight  = 20.0
	DefaultFontSizePt  = 12.0
	DefaultColor       = "#ff0000"
	InkThicknessPt     = 2.0
)

// Style is applied to annotations when they are created. Changing it later
// does not touch existing annotations.
type Style struct {
	FontSizePt float64
	Color      string
}

// State is the whole interaction state. Fields beyond Mode and Phase are
// meaningful only in the phases noted.
type State struct {
	Mode  Mode
	Phase Phase
	Page  int

	// Dragging and Editing.
	TargetID string
	// Dragging: pointer minus the box's top-left, in viewport pixels.
	Offset domain.Point
	// Drawing: captured points in viewport pixels, and the viewport they belong to.
	Stroke   []domain.Point
	Viewport domain.Viewport
	// Editing: text typed so far.
	Buffer string
}

// Editor turns pointer and keyboard events into annotation changes and records
// every change in its History. It is driven from a single event loop and is not
// safe for concurrent use.
type Editor struct {
	state   State
	style   Style
	history *History
	newID   func() string
	onEmit  func(domain.AnnotationCollection)
}

// Option configures an Editor.
type Option func(*Editor)

// WithStyle sets the initial creation style.
func WithStyle(s Style) Option { return func(e *Editor) { e.style = s } }

// WithIDGenerator overrides the annotation id source.
func WithIDGenerator(fn func() string) Option { return func(e *Editor) { e.newID = fn } }

// WithMode sets the initial mode.
func WithMode(m Mode) Option { return func(e *Editor) { e.state.Mode = m } }

// WithChangeListener registers a callback run after every recorded change.
func WithChangeListener(fn func(domain.AnnotationCollection)) Option {
	return func(e *Editor) { e.onEmit = fn }
}

// NewEditor creates an editor whose history starts at loaded.
func NewEditor(loaded domain.AnnotationCollection, opts ...Option) *Editor {
	e := &Editor{
		style:   Style{FontSizePt: DefaultFontSizePt, Color: DefaultColor},
		history: NewHistory(loaded),
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns a copy of the current interaction state.
func (e *Editor) State() State {
	s := e.state
	s.Stroke = append([]domain.Point(nil), e.state.Stroke...)
	return s
}

func (e *Editor) Annotations() domain.AnnotationCollection { return e.history.Current() }
func (e *Editor) History() *History                        { return e.history }
func (e *Editor) Style() Style                             { return e.style }
func (e *Editor) SetStyle(s Style)                         { e.style = s }

// Load replaces the document being edited and resets history and gesture state.
func (e *Editor) Load(c domain.AnnotationCollection) {
	e.history.Reset(c)
	e.state = State{Mode: e.state.Mode}
}

// SetMode switches tools. A pending text edit is committed, a stroke in
// progress is dropped and a drag ends.
func (e *Editor) SetMode(m Mode) {
	e.endGesture()
	e.state.Mode = m
}

func (e *Editor) emit(c domain.AnnotationCollection) {
	e.history.Push(c)
	if e.onEmit != nil {
		e.onEmit(c)
	}
}

func (e *Editor) idle() {
	e.state = State{Mode: e.state.Mode}
}

// endGesture closes whatever is in progress the way losing focus would.
func (e *Editor) endGesture() {
	if e.state.Phase == PhaseEditing {
		e.commitEdit()
	}
	e.idle()
}

// hitText returns the topmost text box on page containing p (viewport pixels).
func (e *Editor) hitText(page int, vp domain.Viewport, p domain.Point) (domain.TextAnnotation, bool) {
	items := e.history.Current().OnPage(page)
	for i := len(items) - 1; i >= 0; i-- {
		t, ok := items[i].(domain.TextAnnotation)
		if !ok {
			continue
		}
		left, top := domain.PDFToViewport(t.XPt, t.YPt, vp)
		w, h := t.WidthPt*vp.Scale, t.HeightPt*vp.Scale
		if p.X >= left && p.X <= left+w && p.Y >= top && p.Y <= top+h {
			return t, true
		}
	}
	return domain.TextAnnotation{}, false
}

// PointerDown starts a stroke in ink mode, or a drag when a text box is pressed
// in browse mode.
func (e *Editor) PointerDown(page int, vp domain.Viewport, p domain.Point) {
	if e.state.Phase != PhaseIdle {
		return
	}
	switch e.state.Mode {
	case ModeInkDraw:
		e.state.Phase = PhaseDrawing
		e.state.Page = page
		e.state.Viewport = vp
		e.state.Stroke = []domain.Point{p}
	case ModeBrowse:
		t, ok := e.hitText(page, vp, p)
		if !ok {
			return
		}
		left, top := domain.PDFToViewport(t.XPt, t.YPt, vp)
		e.state.Phase = PhaseDragging
		e.state.Page = page
		e.state.TargetID = t.ID
		e.state.Offset = domain.Point{X: p.X - left, Y: p.Y - top}
	}
}

// PointerMove extends the stroke being drawn, or moves the dragged box and
// records one history entry per move.
func (e *Editor) PointerMove(page int, vp domain.Viewport, p domain.Point) {
	if page != e.state.Page {
		return
	}
	switch e.state.Phase {
	case PhaseDrawing:
		e.state.Stroke = append(e.state.Stroke, p)
	case PhaseDragging:
		xPt, yPt := domain.ViewportToPDF(p.X-e.state.Offset.X, p.Y-e.state.Offset.Y, vp)
		next, ok := e.history.Current().Update(e.state.TargetID, domain.AnnotationPatch{XPt: &xPt, YPt: &yPt})
		if !ok {
			e.idle()
			return
		}
		e.emit(next)
	}
}

// PointerUp finishes a stroke or a drag. Strokes with fewer than two points
// are discarded.
func (e *Editor) PointerUp(page int) {
	switch e.state.Phase {
	case PhaseDrawing:
		e.finishStroke()
	case PhaseDragging:
		e.idle()
	}
}

// PointerLeave behaves like PointerUp when the pointer exits the page.
func (e *Editor) PointerLeave(page int) {
	if page == e.state.Page {
		e.PointerUp(page)
	}
}

func (e *Editor) finishStroke() {
	stroke, vp, page := e.state.Stroke, e.state.Viewport, e.state.Page
	e.idle()
	if len(stroke) < 2 {
		return
	}
	pts := make([]domain.Point, len(stroke))
	for i, p := range stroke {
		pts[i] = p.ToPDF(vp)
	}
	ink, err := domain.NewInkAnnotation(domain.InkAnnotation{
		ID:          e.newID(),
		PageIndex:   page,
		Strokes:     [][]domain.Point{pts},
		Color:       e.style.Color,
		ThicknessPt: InkThicknessPt,
	})
	if err != nil {
		return
	}
	e.emit(e.history.Current().Add(ink))
}

// Click inserts a placeholder text box in text mode. Clicks landing on an
// existing box, or arriving during a drag or an edit, never insert; a click
// during an edit commits it.
func (e *Editor) Click(page int, vp domain.Viewport, p domain.Point) {
	switch e.state.Phase {
	case PhaseEditing:
		e.commitEdit()
		e.idle()
		return
	case PhaseDragging, PhaseDrawing:
		return
	}
	if e.state.Mode != ModeTextInsert {
		return
	}
	if _, hit := e.hitText(page, vp, p); hit {
		return
	}
	xPt, yPt := domain.ViewportToPDF(p.X, p.Y, vp)
	text, err := domain.NewTextAnnotation(domain.TextAnnotation{
		ID:         e.newID(),
		PageIndex:  page,
		XPt:        xPt,
		YPt:        yPt,
		Text:       PlaceholderText,
		FontSizePt: e.style.FontSizePt,
		WidthPt:    DefaultTextWidthPt,
		HeightPt:   DefaultTextHeight,
		Color:      e.style.Color,
	})
	if err != nil {
		return
	}
	e.emit(e.history.Current().Add(text))
}

// DoubleClick opens the text box under the pointer for editing, in any mode.
func (e *Editor) DoubleClick(page int, vp domain.Viewport, p domain.Point) {
	if e.state.Phase == PhaseDrawing || e.state.Phase == PhaseDragging {
		return
	}
	t, ok := e.hitText(page, vp, p)
	if !ok {
		return
	}
	if e.state.Phase == PhaseEditing {
		if e.state.TargetID == t.ID {
			return
		}
		e.commitEdit()
	}
	e.state = State{Mode: e.state.Mode, Phase: PhaseEditing, Page: page, TargetID: t.ID, Buffer: t.Text}
}

// SetEditText replaces the text typed into the open box.
func (e *Editor) SetEditText(s string) {
	if e.state.Phase == PhaseEditing {
		e.state.Buffer = s
	}
}

// Commit applies the typed text and closes the box (Enter or blur).
func (e *Editor) Commit() {
	if e.state.Phase != PhaseEditing {
		return
	}
	e.commitEdit()
	e.idle()
}

// commitEdit records the buffer when it differs from the stored text.
func (e *Editor) commitEdit() {
	cur, ok := e.history.Current().Get(e.state.TargetID)
	if !ok {
		return
	}
	if t, isText := cur.(domain.TextAnnotation); isText && t.Text == e.state.Buffer {
		return
	}
	text := e.state.Buffer
	next, ok := e.history.Current().Update(e.state.TargetID, domain.AnnotationPatch{Text: &text})
	if ok {
		e.emit(next)
	}
}

// Undo closes any open gesture and steps history back.
func (e *Editor) Undo() bool {
	e.endGesture()
	_, ok := e.history.Undo()
	return ok
}

// Redo closes any open gesture and steps history forward.
func (e *Editor) Redo() bool {
	e.endGesture()
	_, ok := e.history.Redo()
	return ok
}
