package render

import (
	"context"
	"idcard-designer/core"
	"idcard-designer/editor/geometry"
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const textPadding = 8

var (
	paper            = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	textBackground   = color.NRGBA{R: 255, G: 255, B: 255, A: 204}
	placeholderFill  = color.RGBA{R: 0xe2, G: 0xe8, B: 0xf0, A: 0xff}
	placeholderLine  = color.RGBA{R: 0xcb, G: 0xd5, B: 0xe1, A: 0xff}
	placeholderLabel = color.RGBA{R: 0x47, G: 0x55, B: 0x69, A: 0xff}
)

// Rasterizer draws a composed side to an image.
type Rasterizer struct {
	images ImageSource
	faces  *faceCache
}

func NewRasterizer(images ImageSource) *Rasterizer {
	return &Rasterizer{images: images, faces: newFaceCache()}
}

// Rasterize draws the background scaled to the canvas, then every visual in
// order. Images that cannot be loaded are drawn as placeholders; only font
// failures are returned as errors.
func (r *Rasterizer) Rasterize(ctx context.Context, background string, canvas geometry.Size, visuals []Visual) (*image.RGBA, error) {
	dst := image.NewRGBA(image.Rect(0, 0, canvas.Width, canvas.Height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(paper), image.Point{}, draw.Src)

	if background != "" {
		if img, err := r.open(ctx, background); err != nil {
			logrus.WithError(err).Warn("Failed to load background image")
		} else {
			draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
		}
	}

	for _, v := range visuals {
		rect := v.Rect.Image().Intersect(dst.Bounds())
		if rect.Empty() {
			continue
		}
		switch v.Kind {
		case VisualImage:
			img, err := r.open(ctx, v.ImageURL)
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"field": v.FieldID,
					"error": err,
				}).Warn("Drawing placeholder for broken image")
				if err := r.placeholder(dst, rect, v.Label); err != nil {
					return nil, err
				}
				continue
			}
			draw.CatmullRom.Scale(dst, v.Rect.Image(), img, img.Bounds(), draw.Over, nil)
		case VisualPlaceholder:
			if err := r.placeholder(dst, rect, v.Label); err != nil {
				return nil, err
			}
		default:
			if err := r.text(dst, rect, v.Text, v.Style); err != nil {
				return nil, err
			}
		}
	}
	return dst, nil
}

func (r *Rasterizer) open(ctx context.Context, ref string) (image.Image, error) {
	if r.images == nil {
		return nil, ErrUnsupportedRef
	}
	return r.images.Open(ctx, ref)
}

func (r *Rasterizer) placeholder(dst *image.RGBA, rect image.Rectangle, label string) error {
	draw.Draw(dst, rect, image.NewUniform(placeholderFill), image.Point{}, draw.Src)
	outline(dst, rect, placeholderLine)

	style := core.DefaultStyle()
	style.FontSize = 10
	face, err := r.faces.face(style)
	if err != nil {
		return err
	}
	label = truncate(face, label, rect.Dx()-4)
	w := font.MeasureString(face, label).Ceil()
	drawString(dst, rect, face, label, rect.Min.X+(rect.Dx()-w)/2, placeholderLabel)
	return nil
}

func (r *Rasterizer) text(dst *image.RGBA, rect image.Rectangle, text string, style core.FieldStyle) error {
	draw.Draw(dst, rect, image.NewUniform(textBackground), image.Point{}, draw.Over)

	face, err := r.faces.face(style)
	if err != nil {
		return err
	}
	c := parseColor(style.FontColor)
	text = truncate(face, text, rect.Dx()-2*textPadding)
	baseline := drawString(dst, rect, face, text, rect.Min.X+textPadding, c)

	if style.TextDecoration == core.DecorationUnderline && text != "" {
		w := font.MeasureString(face, text).Ceil()
		thickness := max(1, style.FontSize/14)
		y := baseline + max(1, face.Metrics().Descent.Ceil()/2)
		line := image.Rect(rect.Min.X+textPadding, y, rect.Min.X+textPadding+w, y+thickness).Intersect(rect)
		draw.Draw(dst, line, image.NewUniform(c), image.Point{}, draw.Over)
	}
	return nil
}

// drawString draws s vertically centred in rect, clipped to it, starting at
// x. It returns the baseline y.
func drawString(dst *image.RGBA, rect image.Rectangle, face font.Face, s string, x int, c color.Color) int {
	m := face.Metrics()
	ascent, descent := m.Ascent.Ceil(), m.Descent.Ceil()
	baseline := rect.Min.Y + (rect.Dy()+ascent-descent)/2

	clip, ok := dst.SubImage(rect).(*image.RGBA)
	if !ok {
		return baseline
	}
	d := &font.Drawer{
		Dst:  clip,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(s)
	return baseline
}

// truncate shortens s with a trailing ellipsis until it fits in width.
func truncate(face font.Face, s string, width int) string {
	if width <= 0 {
		return ""
	}
	limit := fixed.I(width)
	if font.MeasureString(face, s) <= limit {
		return s
	}
	runes := []rune(s)
	for n := len(runes) - 1; n > 0; n-- {
		candidate := string(runes[:n]) + "…"
		if font.MeasureString(face, candidate) <= limit {
			return candidate
		}
	}
	return ""
}

func outline(dst *image.RGBA, r image.Rectangle, c color.Color) {
	u := image.NewUniform(c)
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1), u, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y), u, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y), u, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y), u, image.Point{}, draw.Src)
}

// parseColor falls back to black for colours that do not parse.
func parseColor(hex string) color.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.Black
	}
	return c.Clamped()
}
