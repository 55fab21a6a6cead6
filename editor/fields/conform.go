package fields

import (
	"errors"
	"fmt"
	"idcard-designer/core"
	"idcard-designer/editor/geometry"
	"idcard-designer/editor/styling"
)

var (
	ErrMissingID        = errors.New("field has no id")
	ErrDuplicateID      = errors.New("duplicate field id")
	ErrUnknownFieldType = errors.New("unknown field type")
)

// Check rejects a layout whose fields cannot be conformed: a missing or
// repeated id (across both sides) or an unknown field type.
func Check(l *core.Layout) error {
	seen := make(map[string]core.Side)
	for _, side := range core.Sides {
		for _, f := range l.Fields(side) {
			if f.ID == "" {
				return fmt.Errorf("%s %q: %w", side, f.FieldLabel, ErrMissingID)
			}
			if other, ok := seen[f.ID]; ok {
				return fmt.Errorf("%s on %s and %s: %w", f.ID, other, side, ErrDuplicateID)
			}
			seen[f.ID] = side
			if !f.FieldType.Valid() {
				return fmt.Errorf("%s: %q: %w", f.ID, f.FieldType, ErrUnknownFieldType)
			}
		}
	}
	return nil
}

// Conform returns f moved and sized inside canvas, never below the field
// floor, with a complete style whose font size is in range.
func Conform(f core.TemplateField, canvas geometry.Size) core.TemplateField {
	r := geometry.ClampRect(RectOf(f), geometry.FieldBounds(canvas))
	f.X, f.Y, f.Width, f.Height = r.X, r.Y, r.Width, r.Height
	f.FieldStyle = conformStyle(f.FieldStyle)
	return f
}

// ConformAll applies Conform to every field of a side.
func ConformAll(list []core.TemplateField, canvas geometry.Size) []core.TemplateField {
	out := make([]core.TemplateField, len(list))
	for i, f := range list {
		out[i] = Conform(f, canvas)
	}
	return out
}

// conformStyle fills blank or unknown values from core.DefaultStyle.
func conformStyle(s core.FieldStyle) core.FieldStyle {
	d := core.DefaultStyle()
	out := styling.SetFontFamily(d, s.FontFamily)
	out.FontColor = styling.SetColor(d, s.FontColor).FontColor
	if s.FontSize != 0 {
		out = styling.SetFontSize(out, s.FontSize)
	}
	if s.FontWeight == core.WeightBold {
		out.FontWeight = core.WeightBold
	}
	if s.FontStyle == core.StyleItalic {
		out.FontStyle = core.StyleItalic
	}
	if s.TextDecoration == core.DecorationUnderline {
		out.TextDecoration = core.DecorationUnderline
	}
	return out
}
