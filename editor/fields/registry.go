// Package fields holds the per-side field list of a template being edited.
//
// A Registry is an immutable snapshot: every mutation returns a new
// Registry and leaves the receiver untouched, so observers holding an older
// snapshot never see a partial update.
package fields

import (
	"idcard-designer/core"
	"idcard-designer/editor/geometry"
	"image"
)

type Registry struct {
	side   core.Side
	fields []core.TemplateField
}

// New returns a snapshot of the given fields tagged with side.
func New(side core.Side, list []core.TemplateField) Registry {
	return Registry{side: side, fields: retag(side, list)}
}

func (r Registry) Side() core.Side {
	return r.side
}

func (r Registry) Len() int {
	return len(r.fields)
}

// Fields returns a copy of the field list in insertion order.
func (r Registry) Fields() []core.TemplateField {
	out := make([]core.TemplateField, len(r.fields))
	copy(out, r.fields)
	return out
}

// Find returns the field with the given id.
func (r Registry) Find(id string) (core.TemplateField, bool) {
	if i := r.index(id); i >= 0 {
		return r.fields[i], true
	}
	return core.TemplateField{}, false
}

// Add appends f, tagging it with the registry's side.
func (r Registry) Add(f core.TemplateField) Registry {
	f.Side = r.side
	next := make([]core.TemplateField, len(r.fields), len(r.fields)+1)
	copy(next, r.fields)
	return Registry{side: r.side, fields: append(next, f)}
}

// Update applies fn to a copy of the field with the given id. The second
// result is false when no such field exists, in which case r is returned.
func (r Registry) Update(id string, fn func(*core.TemplateField)) (Registry, bool) {
	i := r.index(id)
	if i < 0 {
		return r, false
	}
	next := r.Fields()
	fn(&next[i])
	next[i].ID = id
	next[i].Side = r.side
	return Registry{side: r.side, fields: next}, true
}

// Remove drops the field with the given id.
func (r Registry) Remove(id string) (Registry, bool) {
	i := r.index(id)
	if i < 0 {
		return r, false
	}
	next := make([]core.TemplateField, 0, len(r.fields)-1)
	next = append(next, r.fields[:i]...)
	next = append(next, r.fields[i+1:]...)
	return Registry{side: r.side, fields: next}, true
}

// Replace swaps the whole list.
func (r Registry) Replace(list []core.TemplateField) Registry {
	return New(r.side, list)
}

// Rect returns the geometry of a field.
func (r Registry) Rect(id string) (geometry.Rect, bool) {
	f, ok := r.Find(id)
	if !ok {
		return geometry.Rect{}, false
	}
	return RectOf(f), true
}

// SetRect moves and resizes a field.
func (r Registry) SetRect(id string, rect geometry.Rect) (Registry, bool) {
	return r.Update(id, func(f *core.TemplateField) {
		f.X, f.Y, f.Width, f.Height = rect.X, rect.Y, rect.Width, rect.Height
	})
}

// HitTest returns the topmost field containing p. Later fields are on top.
func (r Registry) HitTest(p image.Point) (string, bool) {
	for i := len(r.fields) - 1; i >= 0; i-- {
		if RectOf(r.fields[i]).Contains(p) {
			return r.fields[i].ID, true
		}
	}
	return "", false
}

// RectOf returns the geometry of f.
func RectOf(f core.TemplateField) geometry.Rect {
	return geometry.Rect{X: f.X, Y: f.Y, Width: f.Width, Height: f.Height}
}

func (r Registry) index(id string) int {
	for i := range r.fields {
		if r.fields[i].ID == id {
			return i
		}
	}
	return -1
}

func retag(side core.Side, list []core.TemplateField) []core.TemplateField {
	out := make([]core.TemplateField, len(list))
	copy(out, list)
	for i := range out {
		out[i].Side = side
	}
	return out
}
