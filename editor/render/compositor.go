// Package render composes the read-only view of a template side with a
// person's record substituted into its fields, and rasterises it.
package render

import (
	"idcard-designer/core"
	"idcard-designer/editor/fields"
	"idcard-designer/editor/geometry"
)

type VisualKind string

const (
	VisualText        VisualKind = "text"
	VisualImage       VisualKind = "image"
	VisualPlaceholder VisualKind = "placeholder"
)

// Visual is one drawable item of a rendered side.
type Visual struct {
	Kind     VisualKind      `json:"kind"`
	FieldID  string          `json:"field_id"`
	Label    string          `json:"label"`
	Rect     geometry.Rect   `json:"rect"`
	Text     string          `json:"text,omitempty"`
	ImageURL string          `json:"image_url,omitempty"`
	Style    core.FieldStyle `json:"style"`
}

type Compositor struct {
	bindings Bindings
}

// NewCompositor uses the default label table when b is nil.
func NewCompositor(b Bindings) *Compositor {
	if b == nil {
		b = DefaultBindings()
	}
	return &Compositor{bindings: b}
}

// Render maps fields to visuals in the same order. Fields are not modified.
func (c *Compositor) Render(list []core.TemplateField, record map[string]string) []Visual {
	out := make([]Visual, 0, len(list))
	for _, f := range list {
		v := Visual{
			FieldID: f.ID,
			Label:   f.FieldLabel,
			Rect:    fields.RectOf(f),
			Style:   f.FieldStyle,
		}
		switch {
		case f.FieldType == core.FieldImage && f.ImageURL == "":
			v.Kind = VisualPlaceholder
		case f.FieldType == core.FieldImage:
			v.Kind = VisualImage
			v.ImageURL = f.ImageURL
		default:
			v.Kind = VisualText
			v.Text = c.bindings.Resolve(f.FieldLabel, record)
		}
		out = append(out, v)
	}
	return out
}

// Render uses the default label table.
func Render(list []core.TemplateField, record map[string]string) []Visual {
	return NewCompositor(nil).Render(list, record)
}
