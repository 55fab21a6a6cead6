package insertion

import (
	"idcard-designer/core"
	"idcard-designer/editor/geometry"
	"image"

	"github.com/google/uuid"
)

// DefaultSize returns the creation size for a payload kind.
func DefaultSize(k Kind) geometry.Size {
	switch k {
	case KindImage:
		return geometry.Size{Width: 120, Height: 120}
	case KindIDPicture:
		return geometry.Size{Width: 100, Height: 120}
	case KindSignature:
		return geometry.Size{Width: 120, Height: 60}
	default:
		return geometry.Size{Width: 150, Height: 30}
	}
}

// NewID allocates a field id.
var NewID = func() string {
	return uuid.NewString()
}

// NewField builds the field for p with its top-left corner at p (canvas
// local), clamped into the canvas. p is assumed valid.
func NewField(p Payload, side core.Side, at image.Point, canvas geometry.Size) core.TemplateField {
	size := DefaultSize(p.Type)
	rect := geometry.ClampRect(geometry.Rect{
		X:      at.X,
		Y:      at.Y,
		Width:  size.Width,
		Height: size.Height,
	}, geometry.FieldBounds(canvas))

	f := core.TemplateField{
		ID:         NewID(),
		FieldType:  core.FieldText,
		FieldLabel: p.DisplayLabel(),
		X:          rect.X,
		Y:          rect.Y,
		Width:      rect.Width,
		Height:     rect.Height,
		FieldStyle: core.DefaultStyle(),
		Side:       side,
	}
	if p.Type.IsImage() {
		f.FieldType = core.FieldImage
		f.ImageURL = p.ImageURL
	}
	return f
}

// NewCenteredField builds the field for an insert, centred on the canvas.
func NewCenteredField(p Payload, side core.Side, canvas geometry.Size) core.TemplateField {
	return NewField(p, side, geometry.Centered(DefaultSize(p.Type), canvas), canvas)
}
