package crop

import (
	"idcard-designer/editor/geometry"
	"idcard-designer/editor/gesture"
	"image"
)

const selectionID = "selection"

// Selection is the crop rectangle of an open crop dialog. It is moved and
// resized by the same gesture controller as template fields.
type Selection struct {
	viewport geometry.Size
	rect     geometry.Rect
	zoom     float64

	scope gesture.Scope
	ctl   *gesture.Controller
}

func NewSelection(viewport geometry.Size) *Selection {
	if viewport.Width <= 0 || viewport.Height <= 0 {
		viewport = DefaultViewport
	}
	s := &Selection{viewport: viewport, zoom: 1}
	s.rect = geometry.ClampRect(InitialSelection, SelectionBounds(viewport))
	s.ctl = gesture.NewController(s, &s.scope)
	return s
}

// Rect implements gesture.Target.
func (s *Selection) Rect(id string) (geometry.Rect, bool) {
	if id != selectionID {
		return geometry.Rect{}, false
	}
	return s.rect, true
}

// SetRect implements gesture.Target.
func (s *Selection) SetRect(id string, r geometry.Rect) {
	if id == selectionID {
		s.rect = r
	}
}

func (s *Selection) Viewport() geometry.Size {
	return s.viewport
}

// Value returns the current selection.
func (s *Selection) Value() geometry.Rect {
	return s.rect
}

func (s *Selection) Zoom() float64 {
	return s.zoom
}

func (s *Selection) SetZoom(z float64) {
	s.zoom = ClampZoom(z)
}

// PointerDown starts a drag when p is inside the selection.
func (s *Selection) PointerDown(p image.Point) bool {
	if !s.rect.Contains(p) {
		return false
	}
	return s.ctl.BeginDrag(selectionID, p, SelectionBounds(s.viewport))
}

// ResizeDown starts a resize from the bottom-right handle.
func (s *Selection) ResizeDown(p image.Point) bool {
	return s.ctl.BeginResize(selectionID, p, SelectionBounds(s.viewport))
}

func (s *Selection) PointerMove(p image.Point) {
	s.scope.Move(p)
}

func (s *Selection) PointerUp(p image.Point) {
	s.scope.Up(p)
}

// Apply crops src with the current selection.
func (s *Selection) Apply(src image.Image) (*image.RGBA, error) {
	return Crop(src, s.viewport, s.rect)
}
