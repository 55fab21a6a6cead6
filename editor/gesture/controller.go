// Package gesture implements the drag and resize state machines used on the
// template canvas and in the crop dialog.
package gesture

import (
	"idcard-designer/editor/geometry"
	"image"
)

type State int

const (
	Idle State = iota
	Dragging
	Resizing
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

// Target is the rectangle collection a Controller mutates.
type Target interface {
	Rect(id string) (geometry.Rect, bool)
	SetRect(id string, r geometry.Rect)
}

// Controller moves or resizes one rectangle of a Target per gesture.
// It is not safe for concurrent use; callers serialise events.
type Controller struct {
	target Target
	scope  *Scope

	state  State
	id     string
	bounds geometry.Bounds

	// drag
	offset image.Point
	// resize
	start     image.Point
	startSize geometry.Size

	release func()
}

func NewController(target Target, scope *Scope) *Controller {
	return &Controller{target: target, scope: scope}
}

func (c *Controller) State() State {
	return c.state
}

// ActiveID returns the id of the rectangle under gesture, or "".
func (c *Controller) ActiveID() string {
	if c.state == Idle {
		return ""
	}
	return c.id
}

// BeginDrag starts moving rectangle id. pointer is canvas-local.
func (c *Controller) BeginDrag(id string, pointer image.Point, b geometry.Bounds) bool {
	r, ok := c.target.Rect(id)
	if !ok {
		return false
	}
	c.begin(Dragging, id, b)
	c.offset = pointer.Sub(r.Origin())
	return true
}

// BeginResize starts resizing rectangle id from its bottom-right handle.
func (c *Controller) BeginResize(id string, pointer image.Point, b geometry.Bounds) bool {
	r, ok := c.target.Rect(id)
	if !ok {
		return false
	}
	c.begin(Resizing, id, b)
	c.start = pointer
	c.startSize = r.Size()
	return true
}

func (c *Controller) begin(s State, id string, b geometry.Bounds) {
	c.end()
	c.state = s
	c.id = id
	c.bounds = b
	c.release = c.scope.Acquire(c)
}

// PointerMove applies the gesture for the current pointer position.
func (c *Controller) PointerMove(p image.Point) {
	if c.state == Idle {
		return
	}
	r, ok := c.target.Rect(c.id)
	if !ok {
		// the rectangle was removed mid-gesture
		c.end()
		return
	}
	switch c.state {
	case Dragging:
		pos := geometry.ClampPosition(p.Sub(c.offset), r.Size(), c.bounds.Canvas)
		r.X, r.Y = pos.X, pos.Y
	case Resizing:
		delta := p.Sub(c.start)
		size := geometry.ClampSize(r.Origin(), geometry.Size{
			Width:  c.startSize.Width + delta.X,
			Height: c.startSize.Height + delta.Y,
		}, c.bounds)
		r.Width, r.Height = size.Width, size.Height
	}
	c.target.SetRect(c.id, r)
}

// PointerUp ends the gesture. The last written rectangle is final.
func (c *Controller) PointerUp(image.Point) {
	c.end()
}

// PointerLost ends the gesture without further writes.
func (c *Controller) PointerLost() {
	c.release = nil
	c.end()
}

func (c *Controller) end() {
	if c.release != nil {
		c.release()
		c.release = nil
	}
	c.state = Idle
	c.id = ""
}
