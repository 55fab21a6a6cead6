package crop

import (
	"bytes"
	"idcard-designer/editor/geometry"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestSource_ScalesToNaturalSize(t *testing.T) {
	got := Source(
		geometry.Size{Width: 800, Height: 600},
		geometry.Size{Width: 400, Height: 300},
		geometry.Rect{X: 50, Y: 50, Width: 200, Height: 200},
	)
	want := SourceRect{X: 100, Y: 100, Width: 400, Height: 400}
	if got != want {
		t.Errorf("Source() = %+v, want %+v", got, want)
	}
	if r := got.Image(); r != image.Rect(100, 100, 500, 500) {
		t.Errorf("Image() = %v", r)
	}
}

func TestSource_NonUniformScale(t *testing.T) {
	got := Source(
		geometry.Size{Width: 1000, Height: 300},
		DefaultViewport,
		geometry.Rect{X: 40, Y: 30, Width: 100, Height: 60},
	)
	want := SourceRect{X: 100, Y: 30, Width: 250, Height: 60}
	if got != want {
		t.Errorf("Source() = %+v, want %+v", got, want)
	}
}

func halves(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: 255, A: 255}
			if x >= w/2 {
				c = color.RGBA{B: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestCrop_OutputSizeAndContent(t *testing.T) {
	src := halves(800, 600)

	out, err := Crop(src, DefaultViewport, geometry.Rect{X: 0, Y: 0, Width: 150, Height: 300})
	if err != nil {
		t.Fatalf("Crop() failed: %v", err)
	}
	if out.Bounds().Dx() != 150 || out.Bounds().Dy() != 300 {
		t.Fatalf("output size = %v, want 150x300", out.Bounds().Size())
	}
	if c := out.RGBAAt(75, 150); c.R < 200 || c.B > 50 {
		t.Errorf("centre pixel = %v, want red", c)
	}

	out, err = Crop(src, DefaultViewport, geometry.Rect{X: 250, Y: 100, Width: 100, Height: 100})
	if err != nil {
		t.Fatalf("Crop() failed: %v", err)
	}
	if c := out.RGBAAt(50, 50); c.B < 200 || c.R > 50 {
		t.Errorf("centre pixel = %v, want blue", c)
	}
}

func TestCrop_SelectionClampedToViewport(t *testing.T) {
	out, err := Crop(halves(400, 300), DefaultViewport, geometry.Rect{X: 380, Y: 290, Width: 10, Height: 10})
	if err != nil {
		t.Fatalf("Crop() failed: %v", err)
	}
	if out.Bounds().Dx() != MinSelection || out.Bounds().Dy() != MinSelection {
		t.Errorf("output size = %v, want %dx%d", out.Bounds().Size(), MinSelection, MinSelection)
	}
}

func TestCrop_EmptySource(t *testing.T) {
	if _, err := Crop(image.NewRGBA(image.Rect(0, 0, 0, 0)), DefaultViewport, InitialSelection); err != ErrEmptySource {
		t.Errorf("Crop() error = %v, want %v", err, ErrEmptySource)
	}
}

func TestEncodePNG(t *testing.T) {
	data, err := EncodePNG(halves(10, 10))
	if err != nil {
		t.Fatalf("EncodePNG() failed: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeConfig() failed: %v", err)
	}
	if cfg.Width != 10 || cfg.Height != 10 {
		t.Errorf("decoded size = %dx%d", cfg.Width, cfg.Height)
	}
}

func TestClampZoom(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 1},
		{0.1, 0.5},
		{1.04, 1.0},
		{1.26, 1.3},
		{9, 3},
	}
	for _, tt := range tests {
		if got := ClampZoom(tt.in); got < tt.want-1e-9 || got > tt.want+1e-9 {
			t.Errorf("ClampZoom(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSelection_DragAndResize(t *testing.T) {
	s := NewSelection(geometry.Size{})
	if s.Viewport() != DefaultViewport {
		t.Fatalf("Viewport() = %+v, want default", s.Viewport())
	}
	if s.Value() != InitialSelection {
		t.Fatalf("Value() = %+v, want %+v", s.Value(), InitialSelection)
	}

	if !s.PointerDown(image.Pt(60, 60)) {
		t.Fatal("PointerDown() inside selection did not start a drag")
	}
	s.PointerMove(image.Pt(1000, 1000))
	s.PointerUp(image.Pt(1000, 1000))
	if got := s.Value(); got != (geometry.Rect{X: 200, Y: 100, Width: 200, Height: 200}) {
		t.Errorf("after drag Value() = %+v", got)
	}

	s.ResizeDown(image.Pt(400, 300))
	s.PointerMove(image.Pt(0, 0))
	s.PointerUp(image.Pt(0, 0))
	if got := s.Value(); got.Width != MinSelection || got.Height != MinSelection || got.X != 200 || got.Y != 100 {
		t.Errorf("after resize Value() = %+v", got)
	}

	if s.PointerDown(image.Pt(5, 5)) {
		t.Error("PointerDown() outside selection started a drag")
	}
}

func TestSelection_ZoomDoesNotChangeCrop(t *testing.T) {
	src := halves(800, 600)
	s := NewSelection(DefaultViewport)
	a, err := s.Apply(src)
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	s.SetZoom(2.5)
	b, err := s.Apply(src)
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("zoom changed the crop output")
	}
	if s.Zoom() != 2.5 {
		t.Errorf("Zoom() = %v, want 2.5", s.Zoom())
	}
}

func TestCrop_ViewportLimits(t *testing.T) {
	src := halves(4, 4)
	huge := geometry.Size{Width: 6000, Height: 6000}
	if _, err := Crop(src, huge, geometry.Rect{Width: 6000, Height: 6000}); err != ErrViewportSize {
		t.Errorf("Crop(huge viewport) error = %v, want %v", err, ErrViewportSize)
	}
	if _, err := Crop(src, geometry.Size{Width: 400}, InitialSelection); err != ErrEmptyViewport {
		t.Errorf("Crop(empty viewport) error = %v, want %v", err, ErrEmptyViewport)
	}

	largest := geometry.Size{Width: MaxViewportSide, Height: MaxViewportSide}
	out, err := Crop(src, largest, geometry.Rect{Width: 9000, Height: 9000})
	if err != nil {
		t.Fatalf("Crop(largest viewport) failed: %v", err)
	}
	if out.Bounds().Size() != image.Pt(MaxViewportSide, MaxViewportSide) {
		t.Errorf("output size = %v, want the viewport", out.Bounds().Size())
	}
}
