// Package signature rasterises strokes captured on a signature pad.
package signature

import (
	"errors"
	"idcard-designer/editor/geometry"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

const (
	StrokeWidth = 2.0

	// MaxPadSide bounds each side of the pad.
	MaxPadSide = 2048

	// MaxPoints bounds the samples across all strokes of one signature.
	MaxPoints = 20000

	// capSegments is the number of edges used to approximate round caps.
	capSegments = 12
)

var (
	DefaultPad = geometry.Size{Width: 400, Height: 200}

	ErrNoStrokes = errors.New("signature has no strokes")
	ErrPadSize   = errors.New("signature pad size out of range")
	ErrTooLong   = errors.New("signature has too many points")
)

// Point is a pad-local pointer sample.
type Point struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Stroke is one pen-down to pen-up path.
type Stroke []Point

// Rasterize draws strokes in black, StrokeWidth wide with round joins and
// caps, onto a white pad. A zero pad size uses DefaultPad. Samples off the
// pad are pinned to its edge.
//
// All strokes go into a single path clipped to their bounding box, so the
// cost is one pass over that box plus the point count.
func Rasterize(strokes []Stroke, pad geometry.Size) (*image.RGBA, error) {
	if pad.Width == 0 && pad.Height == 0 {
		pad = DefaultPad
	}
	if pad.Width <= 0 || pad.Height <= 0 || pad.Width > MaxPadSide || pad.Height > MaxPadSide {
		return nil, ErrPadSize
	}
	points := 0
	for _, s := range strokes {
		points += len(s)
	}
	if points == 0 {
		return nil, ErrNoStrokes
	}
	if points > MaxPoints {
		return nil, ErrTooLong
	}

	dst := image.NewRGBA(image.Rect(0, 0, pad.Width, pad.Height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	strokes = pinned(strokes, pad)
	box := inkBounds(strokes, StrokeWidth/2).Intersect(dst.Bounds())
	if box.Empty() {
		return dst, nil
	}

	z := vector.NewRasterizer(box.Dx(), box.Dy())
	off := Point{X: float32(box.Min.X), Y: float32(box.Min.Y)}
	for _, s := range strokes {
		for i, p := range s {
			p = p.sub(off)
			disc(z, p, StrokeWidth/2)
			if i > 0 {
				segment(z, s[i-1].sub(off), p, StrokeWidth/2)
			}
		}
	}
	z.Draw(dst, box, image.NewUniform(color.Black), image.Point{})
	return dst, nil
}

func (p Point) sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// pinned returns a copy of strokes with every sample moved onto the pad.
func pinned(strokes []Stroke, pad geometry.Size) []Stroke {
	w, h := float32(pad.Width), float32(pad.Height)
	out := make([]Stroke, len(strokes))
	for i, s := range strokes {
		out[i] = make(Stroke, len(s))
		for j, p := range s {
			out[i][j] = Point{X: max(0, min(w, p.X)), Y: max(0, min(h, p.Y))}
		}
	}
	return out
}

// inkBounds is the pixel box covering every sample grown by r.
func inkBounds(strokes []Stroke, r float32) image.Rectangle {
	minX, minY := float32(math.MaxFloat32), float32(math.MaxFloat32)
	maxX, maxY := -minX, -minY
	for _, s := range strokes {
		for _, p := range s {
			minX, maxX = min(minX, p.X), max(maxX, p.X)
			minY, maxY = min(minY, p.Y), max(maxY, p.Y)
		}
	}
	return image.Rect(
		int(math.Floor(float64(minX-r)))-1,
		int(math.Floor(float64(minY-r)))-1,
		int(math.Ceil(float64(maxX+r)))+1,
		int(math.Ceil(float64(maxY+r)))+1,
	)
}

func disc(z *vector.Rasterizer, c Point, r float32) {
	for i := 0; i < capSegments; i++ {
		a := 2 * math.Pi * float64(i) / capSegments
		x := c.X + r*float32(math.Cos(a))
		y := c.Y + r*float32(math.Sin(a))
		if i == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()
}

func segment(z *vector.Rasterizer, a, b Point, r float32) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := float32(math.Hypot(float64(dx), float64(dy)))
	if l == 0 {
		return
	}
	// Wound the same way as disc so overlapping shapes never cancel out.
	nx, ny := -dy/l*r, dx/l*r
	z.MoveTo(a.X-nx, a.Y-ny)
	z.LineTo(b.X-nx, b.Y-ny)
	z.LineTo(b.X+nx, b.Y+ny)
	z.LineTo(a.X+nx, a.Y+ny)
	z.ClosePath()
}
