package chart

import (
	"github.com/raykavin/chartdesk/pkg/core"
	"github.com/raykavin/chartdesk/pkg/logger"
)

// Phase is the drawing session state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDragging
)

func (p Phase) String() string {
	if p == PhaseDragging {
		return "dragging"
	}
	return "idle"
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Layout supplies the controller with the frame it maps pointers against.
type Layout interface {
	// Mapper returns the current mapper; ok is false when there is nothing to map onto.
	Mapper() (m Mapper, ok bool)
	Candles() []core.Candle
}

// FlagPrompter asks for a flag note synchronously. ok is false when the prompt was cancelled.
type FlagPrompter func(anchor Point, price float64) (text string, ok bool)

// SessionState is a snapshot of the drawing session.
type SessionState struct {
	ArmedTool Tool   `json:"armedTool"`
	Phase     Phase  `json:"phase"`
	Anchor    *Point `json:"anchor,omitempty"`
	Cursor    *Point `json:"cursor,omitempty"`
	// Pending is a placed flag still waiting for its note.
	Pending *Flag `json:"pending,omitempty"`
}

// HoverState describes the tooltip under the pointer.
type HoverState struct {
	Visible bool  `json:"visible"`
	Pointer Point `json:"pointer"`
	Hit     Hit   `json:"-"`
}

// Controller is the drawing session state machine. Every event method
// reports whether the frame changed and a redraw is due. Events that make
// no sense in the current state are ignored.
type Controller struct {
	log    logger.Logger
	store  *Store
	layout Layout
	prompt FlagPrompter

	armed      Tool
	phase      Phase
	anchor     *Point
	cursor     *Point
	anchorData DataPoint
	dragMapper Mapper
	pending    *Flag
	hover      HoverState

	// staleMove drops the first pointer move after a resize during a drag.
	staleMove bool
}

// NewController creates an idle session with no tool armed.
func NewController(store *Store, layout Layout, log logger.Logger) *Controller {
	return &Controller{
		log:    log,
		store:  store,
		layout: layout,
	}
}

// SetFlagPrompter installs a synchronous prompt for flag notes.
// With no prompter a placed flag stays pending until SubmitFlagText or CancelFlagText.
func (c *Controller) SetFlagPrompter(p FlagPrompter) {
	c.prompt = p
}

// State returns a copy of the session.
func (c *Controller) State() SessionState {
	state := SessionState{ArmedTool: c.armed, Phase: c.phase}
	if c.anchor != nil {
		p := *c.anchor
		state.Anchor = &p
	}
	if c.cursor != nil {
		p := *c.cursor
		state.Cursor = &p
	}
	if c.pending != nil {
		f := *c.pending
		state.Pending = &f
	}
	return state
}

// Hover returns the current tooltip state.
func (c *Controller) Hover() HoverState {
	return c.hover
}

// ArmTool toggles t: arming the armed tool disarms it. Ignored mid-drag.
func (c *Controller) ArmTool(t Tool) bool {
	if c.phase != PhaseIdle {
		return false
	}

	c.commitPending()

	if t == c.armed {
		t = ToolNone
	}
	c.armed = t

	c.log.WithField("tool", t).Debug("tool armed")
	return true
}

// PointerDown starts a drawing with the armed tool.
func (c *Controller) PointerDown(p Point) bool {
	if c.phase != PhaseIdle || c.armed == ToolNone {
		return false
	}

	m, ok := c.layout.Mapper()
	if !ok {
		c.log.Debug("pointer down ignored, nothing to draw on")
		return false
	}

	c.commitPending()

	anchor, cursor := p, p
	c.phase = PhaseDragging
	c.anchor = &anchor
	c.cursor = &cursor
	c.anchorData = m.ToData(p)
	c.dragMapper = m
	c.hover = HoverState{}
	c.staleMove = false
	return true
}

// PointerMove updates the drag preview, or the tooltip when idle.
func (c *Controller) PointerMove(p Point) bool {
	if c.phase == PhaseDragging {
		if c.staleMove {
			c.staleMove = false
			return false
		}

		switch c.armed {
		case ToolHorizontalLine:
			p.Y = c.anchor.Y
		case ToolFlag:
			p = *c.anchor
		}
		c.cursor = &p
		return true
	}

	return c.updateHover(p)
}

func (c *Controller) updateHover(p Point) bool {
	was := c.hover.Visible

	m, ok := c.layout.Mapper()
	if !ok {
		c.hover = HoverState{}
		return was
	}

	hit, ok := NearestCandle(p.X, m.Geometry, c.layout.Candles())
	if !ok {
		c.hover = HoverState{}
		return was
	}

	c.hover = HoverState{Visible: true, Pointer: p, Hit: hit}
	return true
}

// PointerUp finalizes the drawing in progress and returns to idle.
// The tool stays armed.
func (c *Controller) PointerUp(p Point) bool {
	if c.phase != PhaseDragging {
		return false
	}

	m, ok := c.layout.Mapper()
	if !ok {
		m = c.dragMapper
	}
	if c.staleMove {
		p = m.Geometry.Clamp(p)
	}

	anchor := *c.anchor
	switch c.armed {
	case ToolTrendLine:
		c.add(TrendLine{
			StartX: anchor.X,
			StartY: anchor.Y,
			EndX:   p.X,
			EndY:   p.Y,
			Start:  c.anchorData,
			End:    m.ToData(p),
		})

	case ToolHorizontalLine:
		c.add(HorizontalLine{Y: anchor.Y, Price: c.anchorData.Price})

	case ToolFlag:
		flag := Flag{X: anchor.X, Y: anchor.Y, Price: c.anchorData.Price, Anchor: c.anchorData}
		if c.prompt == nil {
			c.pending = &flag
			break
		}
		if text, ok := c.prompt(anchor, flag.Price); ok {
			flag.Text = text
		}
		c.add(flag)
	}

	c.phase = PhaseIdle
	c.anchor = nil
	c.cursor = nil
	c.staleMove = false
	return true
}

// PointerLeave hides the tooltip. A drag in progress is kept.
func (c *Controller) PointerLeave() bool {
	was := c.hover.Visible
	c.hover = HoverState{}
	return was
}

// SubmitFlagText stores the pending flag with text.
func (c *Controller) SubmitFlagText(text string) (int64, bool) {
	if c.pending == nil {
		return 0, false
	}

	flag := *c.pending
	flag.Text = text
	c.pending = nil
	return c.add(flag), true
}

// CancelFlagText stores the pending flag without a note.
func (c *Controller) CancelFlagText() (int64, bool) {
	return c.SubmitFlagText("")
}

func (c *Controller) commitPending() {
	if c.pending != nil {
		c.CancelFlagText()
	}
}

// ClearAll empties the store and resets the session, whatever its state.
func (c *Controller) ClearAll() bool {
	c.store.Clear()
	c.reset()
	c.log.Debug("annotations cleared")
	return true
}

// Resized keeps a drag alive across a canvas resize. The anchor is pulled
// into the new canvas and the next pointer move, computed against the old
// layout, is dropped.
func (c *Controller) Resized(g Geometry) {
	c.hover = HoverState{}

	if c.phase != PhaseDragging {
		return
	}

	anchor := g.Clamp(*c.anchor)
	c.anchor = &anchor
	if c.cursor != nil {
		cursor := g.Clamp(*c.cursor)
		c.cursor = &cursor
	}
	c.staleMove = true
}

// Teardown commits a pending flag and resets the session.
func (c *Controller) Teardown() {
	c.commitPending()
	c.reset()
}

func (c *Controller) reset() {
	c.armed = ToolNone
	c.phase = PhaseIdle
	c.anchor = nil
	c.cursor = nil
	c.pending = nil
	c.staleMove = false
}

func (c *Controller) add(a Annotation) int64 {
	id := c.store.Append(a)
	c.log.WithFields(map[string]any{
		"id":   id,
		"kind": a.Kind().String(),
	}).Debug("annotation added")
	return id
}
