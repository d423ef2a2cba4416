package chart

import (
	"math"

	"github.com/raykavin/chartdesk/pkg/core"
	"github.com/raykavin/chartdesk/pkg/logger"
)

// Option configures a View.
type Option func(*View)

// WithTheme replaces the default theme.
func WithTheme(theme Theme) Option {
	return func(v *View) {
		v.theme = theme
	}
}

// WithAnchoring selects how annotations follow the candles.
func WithAnchoring(a Anchoring) Option {
	return func(v *View) {
		v.anchoring = a
	}
}

// WithMargins overrides the plot margins.
func WithMargins(m Margins) Option {
	return func(v *View) {
		v.margins = m
	}
}

// WithFlagPrompter answers flag notes synchronously instead of leaving the flag pending.
func WithFlagPrompter(p FlagPrompter) Option {
	return func(v *View) {
		v.prompt = p
	}
}

// WithInvalidateHook registers fn to run whenever the view needs a redraw.
func WithInvalidateHook(fn func()) Option {
	return func(v *View) {
		v.onInvalidate = fn
	}
}

// View owns one chart: its candles, annotations, drawing session and hover
// state. It is explicitly created and torn down by whoever mounts it and is
// not safe for concurrent use.
type View struct {
	log       logger.Logger
	theme     Theme
	anchoring Anchoring
	margins   Margins
	prompt    FlagPrompter

	width   float64
	height  float64
	candles []core.Candle
	rng     PriceRange

	store    *Store
	ctrl     *Controller
	renderer *Renderer

	onInvalidate func()
	dirty        bool
	closed       bool
}

// NewView creates a view with an empty candle set on a width x height canvas.
// Sizes are rounded to whole pixels.
func NewView(log logger.Logger, width, height float64, options ...Option) *View {
	v := &View{
		log:     log,
		theme:   DefaultTheme(),
		margins: DefaultMargins(),
		width:   math.Round(width),
		height:  math.Round(height),
		rng:     PriceRangeOf(nil),
		store:   NewStore(),
		dirty:   true,
	}

	for _, option := range options {
		option(v)
	}

	v.ctrl = NewController(v.store, v, log)
	v.ctrl.SetFlagPrompter(v.prompt)
	v.renderer = NewRenderer(v.theme, v.anchoring, log)

	return v
}

// Mapper maps pointers against the current canvas and candles.
func (v *View) Mapper() (Mapper, bool) {
	g := NewGeometry(v.width, v.height, v.margins, len(v.candles))
	return NewMapper(g, v.rng)
}

// Candles returns the candle sequence on display.
func (v *View) Candles() []core.Candle {
	return v.candles
}

// Size returns the canvas size.
func (v *View) Size() (width, height float64) {
	return v.width, v.height
}

// Theme returns the view theme.
func (v *View) Theme() Theme {
	return v.theme
}

// SetCandles replaces the candle sequence wholesale.
func (v *View) SetCandles(candles []core.Candle) {
	if v.closed {
		return
	}

	v.candles = candles
	v.rng = PriceRangeOf(candles)
	v.ctrl.PointerLeave()
	v.Invalidate()
}

// Resize changes the canvas size, rounded to whole pixels. Stored annotations
// are left untouched and a drag in progress continues.
func (v *View) Resize(width, height float64) {
	width, height = math.Round(width), math.Round(height)
	if v.closed || (width == v.width && height == v.height) {
		return
	}

	v.log.Debugf("resize %.0fx%.0f -> %.0fx%.0f", v.width, v.height, width, height)
	v.width, v.height = width, height
	v.ctrl.Resized(NewGeometry(width, height, v.margins, len(v.candles)))
	v.Invalidate()
}

// Invalidate marks the view for redraw.
func (v *View) Invalidate() {
	v.dirty = true
	if v.onInvalidate != nil {
		v.onInvalidate()
	}
}

// Dirty reports whether a redraw is pending.
func (v *View) Dirty() bool {
	return v.dirty
}

// Frame snapshots the current state for the renderer.
func (v *View) Frame() Frame {
	return Frame{
		Candles:     v.candles,
		Geometry:    NewGeometry(v.width, v.height, v.margins, len(v.candles)),
		Range:       v.rng,
		Annotations: v.store.List(),
		Session:     v.ctrl.State(),
		Hover:       v.ctrl.Hover(),
	}
}

// Redraw paints the full frame onto s. A surface of a different size than
// the canvas resizes the view first. It returns false when nothing was drawn.
func (v *View) Redraw(s Surface) bool {
	if v.closed || s == nil {
		v.log.Debug("redraw skipped, view closed or surface missing")
		return false
	}

	if w, h := s.Size(); w != v.width || h != v.height {
		v.width, v.height = w, h
		v.ctrl.Resized(NewGeometry(w, h, v.margins, len(v.candles)))
	}

	drawn := v.renderer.Render(s, v.Frame())
	if drawn {
		v.dirty = false
	}
	return drawn
}

// Session returns the drawing session snapshot.
func (v *View) Session() SessionState {
	return v.ctrl.State()
}

// Hover returns the tooltip state.
func (v *View) Hover() HoverState {
	return v.ctrl.Hover()
}

// Entries returns the stored annotations with their IDs.
func (v *View) Entries() []Entry {
	return v.store.Entries()
}

// RemoveAnnotation deletes one stored annotation.
func (v *View) RemoveAnnotation(id int64) bool {
	return v.apply(v.store.Remove(id))
}

// ArmTool toggles the drawing tool.
func (v *View) ArmTool(t Tool) bool {
	return v.apply(!v.closed && v.ctrl.ArmTool(t))
}

// PointerDown forwards a pointer press.
func (v *View) PointerDown(p Point) bool {
	return v.apply(!v.closed && v.ctrl.PointerDown(p))
}

// PointerMove forwards a pointer move.
func (v *View) PointerMove(p Point) bool {
	return v.apply(!v.closed && v.ctrl.PointerMove(p))
}

// PointerUp forwards a pointer release.
func (v *View) PointerUp(p Point) bool {
	return v.apply(!v.closed && v.ctrl.PointerUp(p))
}

// PointerLeave forwards the pointer leaving the canvas.
func (v *View) PointerLeave() bool {
	return v.apply(!v.closed && v.ctrl.PointerLeave())
}

// ClearAll removes every annotation and resets the session.
func (v *View) ClearAll() bool {
	return v.apply(!v.closed && v.ctrl.ClearAll())
}

// SubmitFlagText attaches text to the pending flag and stores it.
func (v *View) SubmitFlagText(text string) (int64, bool) {
	if v.closed {
		return 0, false
	}
	id, ok := v.ctrl.SubmitFlagText(text)
	v.apply(ok)
	return id, ok
}

// CancelFlagText stores the pending flag without a note.
func (v *View) CancelFlagText() (int64, bool) {
	return v.SubmitFlagText("")
}

// Teardown commits a pending flag, resets the session and detaches the view.
// Every later call is a no-op.
func (v *View) Teardown() {
	if v.closed {
		return
	}
	v.ctrl.Teardown()
	v.closed = true
	v.onInvalidate = nil
}

// Closed reports whether the view was torn down.
func (v *View) Closed() bool {
	return v.closed
}

func (v *View) apply(changed bool) bool {
	if changed {
		v.Invalidate()
	}
	return changed
}
