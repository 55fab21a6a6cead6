// Package geometry maps pointer coordinates into canvas space and keeps
// rectangles inside a canvas.
package geometry

import "image"

const (
	MinFieldWidth  = 50
	MinFieldHeight = 20
)

type (
	// Size is a width/height pair in pixels.
	Size struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}

	// Rect is a top-left anchored rectangle in canvas-local pixels.
	Rect struct {
		X      int `json:"x"`
		Y      int `json:"y"`
		Width  int `json:"width"`
		Height int `json:"height"`
	}

	// Bounds constrains a rectangle: it must fit in Canvas and never be
	// smaller than Min.
	Bounds struct {
		Canvas Size
		Min    Size
	}
)

// FieldMin is the size floor for template fields.
var FieldMin = Size{Width: MinFieldWidth, Height: MinFieldHeight}

// FieldBounds returns the bounds used for template fields on a canvas.
func FieldBounds(canvas Size) Bounds {
	return Bounds{Canvas: canvas, Min: FieldMin}
}

// Origin returns the top-left corner.
func (r Rect) Origin() image.Point {
	return image.Pt(r.X, r.Y)
}

// Size returns the width/height pair.
func (r Rect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p image.Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Image converts r to an image.Rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// ToCanvasLocal converts a viewport pointer position to canvas-local
// coordinates given the canvas's on-screen origin.
func ToCanvasLocal(pointer, canvasOrigin image.Point) image.Point {
	return pointer.Sub(canvasOrigin)
}

// ClampRect returns the nearest rectangle that fits inside the canvas.
// The size floor always wins: on a canvas smaller than the floor the
// rectangle keeps the floor size and its position is pinned to 0.
func ClampRect(r Rect, b Bounds) Rect {
	size := ClampSize(image.Point{}, r.Size(), b)
	pos := ClampPosition(r.Origin(), size, b.Canvas)
	return Rect{X: pos.X, Y: pos.Y, Width: size.Width, Height: size.Height}
}

// ClampPosition keeps a rectangle of the given size inside the canvas by
// moving it. Size is never touched.
func ClampPosition(p image.Point, size Size, canvas Size) image.Point {
	return image.Pt(
		clamp(p.X, 0, canvas.Width-size.Width),
		clamp(p.Y, 0, canvas.Height-size.Height),
	)
}

// ClampSize limits a size anchored at pos to [min, canvas - pos] on each axis.
func ClampSize(pos image.Point, size Size, b Bounds) Size {
	return Size{
		Width:  max(b.Min.Width, min(b.Canvas.Width-pos.X, size.Width)),
		Height: max(b.Min.Height, min(b.Canvas.Height-pos.Y, size.Height)),
	}
}

// Centered returns the top-left corner that centres size on the canvas.
func Centered(size Size, canvas Size) image.Point {
	return image.Pt((canvas.Width-size.Width)/2, (canvas.Height-size.Height)/2)
}

// clamp pins v into [lo, hi]; when hi < lo the lower bound wins.
func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
