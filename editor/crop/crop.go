// Package crop maps a selection drawn over a scaled preview back onto the
// full-resolution source image and resamples the region.
package crop

import (
	"bytes"
	"errors"
	"fmt"
	"idcard-designer/editor/geometry"
	"image"
	"image/png"
	"math"

	"golang.org/x/image/draw"
)

const (
	MinSelection = 50

	// MaxViewportSide bounds the preview, and with it the output size.
	MaxViewportSide = 2048

	MinZoom  = 0.5
	MaxZoom  = 3.0
	ZoomStep = 0.1
)

var (
	// DefaultViewport is the preview size the selection is drawn on.
	DefaultViewport = geometry.Size{Width: 400, Height: 300}

	// InitialSelection is where a new crop dialog places its selection.
	InitialSelection = geometry.Rect{X: 50, Y: 50, Width: 200, Height: 200}

	ErrEmptySource   = errors.New("source image is empty")
	ErrEmptyViewport = errors.New("viewport is empty")
	ErrViewportSize  = errors.New("viewport is too large")
)

// SelectionBounds keeps a selection inside the viewport and at least
// MinSelection on each side.
func SelectionBounds(viewport geometry.Size) geometry.Bounds {
	return geometry.Bounds{
		Canvas: viewport,
		Min:    geometry.Size{Width: MinSelection, Height: MinSelection},
	}
}

// SourceRect is a region of the source image in natural pixels.
type SourceRect struct {
	X, Y, Width, Height float64
}

// Image rounds r to whole pixels.
func (r SourceRect) Image() image.Rectangle {
	x0 := int(math.Round(r.X))
	y0 := int(math.Round(r.Y))
	x1 := int(math.Round(r.X + r.Width))
	y1 := int(math.Round(r.Y + r.Height))
	return image.Rect(x0, y0, x1, y1)
}

// Source scales a viewport selection to source coordinates:
// (sx·Nw/Dw, sy·Nh/Dh, sw·Nw/Dw, sh·Nh/Dh). Zoom is not an input.
func Source(natural, viewport geometry.Size, sel geometry.Rect) SourceRect {
	kx := float64(natural.Width) / float64(viewport.Width)
	ky := float64(natural.Height) / float64(viewport.Height)
	return SourceRect{
		X:      float64(sel.X) * kx,
		Y:      float64(sel.Y) * ky,
		Width:  float64(sel.Width) * kx,
		Height: float64(sel.Height) * ky,
	}
}

// Crop resamples the selected region of src into a new image of the
// selection's size. The selection is clamped into the viewport first, so
// the output is never larger than the viewport.
func Crop(src image.Image, viewport geometry.Size, sel geometry.Rect) (*image.RGBA, error) {
	b := src.Bounds()
	if b.Empty() {
		return nil, ErrEmptySource
	}
	if viewport.Width <= 0 || viewport.Height <= 0 {
		return nil, ErrEmptyViewport
	}
	if viewport.Width > MaxViewportSide || viewport.Height > MaxViewportSide {
		return nil, ErrViewportSize
	}
	sel = geometry.ClampRect(sel, SelectionBounds(viewport))

	natural := geometry.Size{Width: b.Dx(), Height: b.Dy()}
	sr := Source(natural, viewport, sel).Image().Add(b.Min).Intersect(b)
	if sr.Empty() {
		return nil, fmt.Errorf("selection %+v maps outside the source", sel)
	}

	dst := image.NewRGBA(image.Rect(0, 0, sel.Width, sel.Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sr, draw.Src, nil)
	return dst, nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// ClampZoom pins z to [MinZoom, MaxZoom] and rounds it to ZoomStep.
// Zoom only scales the preview.
func ClampZoom(z float64) float64 {
	if z == 0 || math.IsNaN(z) {
		return 1
	}
	z = math.Max(MinZoom, math.Min(MaxZoom, z))
	return math.Round(z/ZoomStep) * ZoomStep
}
