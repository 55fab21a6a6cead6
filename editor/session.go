// Package editor holds the live editing state of one template: both side
// registries, the active side, the selection and the gesture in progress.
package editor

import (
	"context"
	"errors"
	"fmt"
	"idcard-designer/core"
	"idcard-designer/editor/fields"
	"idcard-designer/editor/geometry"
	"idcard-designer/editor/gesture"
	"idcard-designer/editor/insertion"
	"idcard-designer/editor/styling"
	"image"

	"github.com/sirupsen/logrus"
)

var (
	ErrNoTemplate    = errors.New("no template is open")
	ErrInvalidSide   = errors.New("invalid side")
	ErrFieldNotFound = errors.New("field not found")
	ErrUnknownStyle  = errors.New("unknown style operation")
)

// DefaultCanvas is used for a side whose background has no known size.
var DefaultCanvas = geometry.Size{Width: 600, Height: 400}

// Session is one operator's editing state. It is not safe for concurrent
// use; Loop serialises access to it.
type Session struct {
	template   *core.Template
	registries map[core.Side]fields.Registry
	selected   map[core.Side]string
	active     core.Side

	defaultCanvas geometry.Size
	origin        image.Point

	scope   gesture.Scope
	gesture *gesture.Controller

	lastInsert int64
}

// NewSession returns an empty session. A zero defaultCanvas means DefaultCanvas.
func NewSession(defaultCanvas geometry.Size) *Session {
	if defaultCanvas.Width <= 0 || defaultCanvas.Height <= 0 {
		defaultCanvas = DefaultCanvas
	}
	s := &Session{
		defaultCanvas: defaultCanvas,
		active:        core.SideFront,
	}
	s.reset()
	s.gesture = gesture.NewController(activeSide{s}, &s.scope)
	return s
}

func (s *Session) reset() {
	s.registries = map[core.Side]fields.Registry{
		core.SideFront: fields.New(core.SideFront, nil),
		core.SideBack:  fields.New(core.SideBack, nil),
	}
	s.selected = make(map[core.Side]string)
}

// Load replaces the session state with a stored template and its layout.
// Stored fields are conformed to the current canvas of their side, which
// may have shrunk since they were saved.
func (s *Session) Load(t *core.Template, layout *core.Layout) {
	s.endGesture()
	s.template = t
	s.reset()
	s.active = core.SideFront
	s.lastInsert = 0
	if layout == nil {
		return
	}
	for _, side := range core.Sides {
		s.registries[side] = fields.New(side, fields.ConformAll(layout.Fields(side), s.Canvas(side)))
	}
}

func (s *Session) Template() *core.Template {
	return s.template
}

// Canvas returns the canvas size of a side: the natural size of its
// background, or the default when that is unknown.
func (s *Session) Canvas(side core.Side) geometry.Size {
	if s.template != nil {
		w, h := s.template.CanvasSize(side)
		if w > 0 && h > 0 {
			return geometry.Size{Width: w, Height: h}
		}
	}
	return s.defaultCanvas
}

// SetOrigin records where the active canvas sits in the client viewport.
func (s *Session) SetOrigin(p image.Point) {
	s.origin = p
}

func (s *Session) ActiveSide() core.Side {
	return s.active
}

// SetSide switches the active side. A gesture in progress ends.
func (s *Session) SetSide(side core.Side) error {
	if !side.Valid() {
		return fmt.Errorf("%q: %w", side, ErrInvalidSide)
	}
	if side != s.active {
		s.endGesture()
		s.active = side
	}
	return nil
}

// Registry returns the current snapshot of a side.
func (s *Session) Registry(side core.Side) fields.Registry {
	return s.registries[side]
}

// Selected returns the selected field of the active side.
func (s *Session) Selected() (core.TemplateField, bool) {
	id := s.selected[s.active]
	if id == "" {
		return core.TemplateField{}, false
	}
	return s.registries[s.active].Find(id)
}

// Select selects a field of the active side; an empty id clears the selection.
func (s *Session) Select(id string) error {
	if id == "" {
		delete(s.selected, s.active)
		return nil
	}
	if _, ok := s.registries[s.active].Find(id); !ok {
		return fmt.Errorf("%s: %w", id, ErrFieldNotFound)
	}
	s.selected[s.active] = id
	return nil
}

// PointerDown selects the topmost field under the viewport position and
// starts dragging it. It reports whether a field was hit.
func (s *Session) PointerDown(viewport image.Point) bool {
	p := geometry.ToCanvasLocal(viewport, s.origin)
	id, ok := s.registries[s.active].HitTest(p)
	if !ok {
		return false
	}
	s.selected[s.active] = id
	return s.gesture.BeginDrag(id, p, s.bounds())
}

// ResizeDown selects a field and starts resizing it from its handle.
func (s *Session) ResizeDown(id string, viewport image.Point) bool {
	if _, ok := s.registries[s.active].Find(id); !ok {
		return false
	}
	s.selected[s.active] = id
	return s.gesture.BeginResize(id, geometry.ToCanvasLocal(viewport, s.origin), s.bounds())
}

// PointerMove and PointerUp arrive at document scope, wherever the pointer is.
func (s *Session) PointerMove(viewport image.Point) {
	s.scope.Move(geometry.ToCanvasLocal(viewport, s.origin))
}

func (s *Session) PointerUp(viewport image.Point) {
	s.scope.Up(geometry.ToCanvasLocal(viewport, s.origin))
}

// GestureState reports the gesture in progress.
func (s *Session) GestureState() gesture.State {
	return s.gesture.State()
}

func (s *Session) endGesture() {
	s.scope.Cancel()
}

func (s *Session) bounds() geometry.Bounds {
	return geometry.FieldBounds(s.Canvas(s.active))
}

// Drop creates a field from a native drop at a viewport position. Malformed
// payloads leave the canvas unchanged.
func (s *Session) Drop(data []byte, viewport image.Point) (core.TemplateField, error) {
	p, err := insertion.DecodePayload(data)
	if err != nil {
		logrus.WithError(err).Warn("Discarding malformed drop payload")
		return core.TemplateField{}, err
	}
	at := geometry.ToCanvasLocal(viewport, s.origin)
	return s.add(insertion.NewField(p, s.active, at, s.Canvas(s.active))), nil
}

// Insert creates a centred field from an out-of-band insert. Payloads whose
// timestamp is not newer than the last applied insert are dropped.
func (s *Session) Insert(p insertion.Payload) (core.TemplateField, error) {
	if err := p.Validate(); err != nil {
		logrus.WithError(err).Warn("Discarding malformed insert payload")
		return core.TemplateField{}, err
	}
	if p.Timestamp <= s.lastInsert {
		logrus.WithFields(logrus.Fields{
			"timestamp": p.Timestamp,
			"last":      s.lastInsert,
		}).Debug("Dropping stale insert")
		return core.TemplateField{}, insertion.ErrStalePayload
	}
	s.lastInsert = p.Timestamp
	return s.add(insertion.NewCenteredField(p, s.active, s.Canvas(s.active))), nil
}

func (s *Session) add(f core.TemplateField) core.TemplateField {
	s.registries[s.active] = s.registries[s.active].Add(f)
	s.selected[s.active] = f.ID
	f.Side = s.active
	return f
}

// Delete removes a field from the active side and clears the selection if
// it pointed at it.
func (s *Session) Delete(id string) bool {
	next, ok := s.registries[s.active].Remove(id)
	if !ok {
		return false
	}
	s.registries[s.active] = next
	if s.selected[s.active] == id {
		delete(s.selected, s.active)
	}
	if s.gesture.ActiveID() == id {
		s.endGesture()
	}
	return true
}

// ApplyStyle mutates the style of a text field. Image fields are left alone
// and report false.
func (s *Session) ApplyStyle(id string, op styling.Op) (bool, error) {
	f, ok := s.registries[s.active].Find(id)
	if !ok {
		return false, fmt.Errorf("%s: %w", id, ErrFieldNotFound)
	}
	if f.FieldType != core.FieldText {
		return false, nil
	}
	style, ok := styling.Apply(f.FieldStyle, op)
	if !ok {
		return false, fmt.Errorf("%q: %w", op.Kind, ErrUnknownStyle)
	}
	s.registries[s.active], _ = s.registries[s.active].Update(id, func(f *core.TemplateField) {
		f.FieldStyle = style
	})
	return true, nil
}

// SetSize applies a numeric width/height entry, clamped like a resize.
func (s *Session) SetSize(id string, size geometry.Size) (geometry.Rect, error) {
	r, ok := s.registries[s.active].Rect(id)
	if !ok {
		return geometry.Rect{}, fmt.Errorf("%s: %w", id, ErrFieldNotFound)
	}
	next := geometry.ClampSize(r.Origin(), size, s.bounds())
	r.Width, r.Height = next.Width, next.Height
	s.registries[s.active], _ = s.registries[s.active].SetRect(id, r)
	return r, nil
}

// Layout snapshots both sides. Empty sides are empty lists.
func (s *Session) Layout() *core.Layout {
	l := &core.Layout{
		Front: s.registries[core.SideFront].Fields(),
		Back:  s.registries[core.SideBack].Fields(),
	}
	if s.template != nil {
		l.TemplateID = s.template.ID
	}
	l.Normalize()
	return l
}

// Save replaces the stored layout of the open template with both sides.
// On failure the session state is left as it was.
func (s *Session) Save(ctx context.Context, store core.TemplateStore) error {
	if s.template == nil || s.template.ID == "" {
		return ErrNoTemplate
	}
	layout := s.Layout()
	if err := store.ReplaceLayout(ctx, layout); err != nil {
		logrus.WithFields(logrus.Fields{
			"template": layout.TemplateID,
			"error":    err,
		}).Error("Failed to save layout")
		return fmt.Errorf("failed to save layout: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"template": layout.TemplateID,
		"front":    len(layout.Front),
		"back":     len(layout.Back),
	}).Info("Saved layout")
	return nil
}

// activeSide adapts the active registry to gesture.Target.
type activeSide struct {
	s *Session
}

func (a activeSide) Rect(id string) (geometry.Rect, bool) {
	return a.s.registries[a.s.active].Rect(id)
}

func (a activeSide) SetRect(id string, r geometry.Rect) {
	a.s.registries[a.s.active], _ = a.s.registries[a.s.active].SetRect(id, r)
}
