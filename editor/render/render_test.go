package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"idcard-designer/core"
	"idcard-designer/editor/geometry"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func textField(id, label string) core.TemplateField {
	return core.TemplateField{
		ID:         id,
		FieldType:  core.FieldText,
		FieldLabel: label,
		X:          10,
		Y:          20,
		Width:      150,
		Height:     30,
		FieldStyle: core.DefaultStyle(),
		Side:       core.SideFront,
	}
}

func TestRender_ResolvesBoundLabels(t *testing.T) {
	record := map[string]string{"first_name": "Ana", "student_id": "2024-001"}
	list := []core.TemplateField{
		textField("a", "First Name"),
		textField("b", "Custom Text"),
		textField("c", "Student ID"),
		textField("d", "Last Name"),
	}

	got := Render(list, record)
	var texts []string
	for _, v := range got {
		texts = append(texts, v.Text)
	}
	want := []string{"Ana", "Custom Text", "2024-001", "Last Name"}
	if diff := cmp.Diff(want, texts); diff != "" {
		t.Errorf("Render() texts mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_ImagesAndPlaceholders(t *testing.T) {
	photo := textField("p", "ID Picture")
	photo.FieldType = core.FieldImage
	photo.ImageURL = "/api/assets/01HX"
	slot := textField("s", "Signature")
	slot.FieldType = core.FieldImage

	got := Render([]core.TemplateField{photo, slot}, nil)
	if got[0].Kind != VisualImage || got[0].ImageURL != photo.ImageURL {
		t.Errorf("photo visual = %+v", got[0])
	}
	if got[1].Kind != VisualPlaceholder {
		t.Errorf("slot visual kind = %q, want placeholder", got[1].Kind)
	}
	if got[0].Rect != (geometry.Rect{X: 10, Y: 20, Width: 150, Height: 30}) {
		t.Errorf("rect = %+v", got[0].Rect)
	}
}

func TestRender_DoesNotMutateFields(t *testing.T) {
	list := []core.TemplateField{textField("a", "First Name"), textField("b", "Email")}
	before := make([]core.TemplateField, len(list))
	copy(before, list)

	Render(list, map[string]string{"first_name": "Ana", "email": "ana@example.com"})
	if diff := cmp.Diff(before, list); diff != "" {
		t.Errorf("fields mutated (-before +after):\n%s", diff)
	}
}

func TestLoadBindings_ExtendsWithoutOverriding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bindings.yaml")
	data := "Nickname: nickname\nFirst Name: given_name\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	b, err := LoadBindings(path)
	if err != nil {
		t.Fatalf("LoadBindings() failed: %v", err)
	}
	if b["Nickname"] != "nickname" {
		t.Errorf("Nickname bound to %q", b["Nickname"])
	}
	if b["First Name"] != "first_name" {
		t.Errorf("First Name bound to %q, want first_name", b["First Name"])
	}

	record := map[string]string{"nickname": "Annie"}
	if got := NewCompositor(b).Render([]core.TemplateField{textField("a", "Nickname")}, record)[0].Text; got != "Annie" {
		t.Errorf("Render() = %q, want Annie", got)
	}
}

func TestLoadBindings_Errors(t *testing.T) {
	if _, err := LoadBindings(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadBindings() of missing file succeeded")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("- a\n- b\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	if _, err := LoadBindings(path); err == nil {
		t.Error("LoadBindings() of a list succeeded")
	}
	b, err := LoadBindings("")
	if err != nil || len(b) != 12 {
		t.Errorf("LoadBindings(\"\") = %d entries, %v", len(b), err)
	}
}

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() failed: %v", err)
	}
	return buf.Bytes()
}

type mockAssets struct {
	assets map[string]*core.Asset
}

func (m *mockAssets) FindID(_ context.Context, id string) (*core.Asset, error) {
	if a, ok := m.assets[id]; ok {
		return a, nil
	}
	return nil, core.ErrNotFound
}

func (m *mockAssets) Create(_ context.Context, a *core.Asset) (string, error) {
	m.assets[a.ID] = a
	return a.ID, nil
}

func TestAssetSource_Open(t *testing.T) {
	red := solidPNG(t, 4, 4, color.RGBA{R: 255, A: 255})
	src := AssetSource{Assets: &mockAssets{assets: map[string]*core.Asset{
		"RED": {ID: "RED", Data: red},
	}}}
	ctx := context.Background()

	if _, err := src.Open(ctx, core.AssetURL("RED")); err != nil {
		t.Errorf("Open(asset) failed: %v", err)
	}
	if _, err := src.Open(ctx, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(red)); err != nil {
		t.Errorf("Open(data url) failed: %v", err)
	}
	if _, err := src.Open(ctx, core.AssetURL("MISSING")); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Open(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := src.Open(ctx, "https://example.com/a.png"); !errors.Is(err, ErrUnsupportedRef) {
		t.Errorf("Open(http) error = %v, want ErrUnsupportedRef", err)
	}
}

func TestRasterize(t *testing.T) {
	blue := solidPNG(t, 20, 10, color.RGBA{B: 255, A: 255})
	green := solidPNG(t, 5, 5, color.RGBA{G: 255, A: 255})
	src := AssetSource{Assets: &mockAssets{assets: map[string]*core.Asset{
		"BG":    {ID: "BG", Data: blue},
		"PHOTO": {ID: "PHOTO", Data: green},
	}}}

	photo := textField("p", "ID Picture")
	photo.FieldType = core.FieldImage
	photo.ImageURL = core.AssetURL("PHOTO")
	photo.X, photo.Y, photo.Width, photo.Height = 100, 100, 50, 60

	broken := textField("b", "Signature")
	broken.FieldType = core.FieldImage
	broken.ImageURL = core.AssetURL("GONE")
	broken.X, broken.Y, broken.Width, broken.Height = 200, 100, 60, 30

	name := textField("n", "First Name")
	name.FieldStyle.TextDecoration = core.DecorationUnderline
	name.FieldStyle.FontWeight = core.WeightBold

	visuals := Render([]core.TemplateField{photo, broken, name}, map[string]string{"first_name": "A very long first name that cannot fit"})
	img, err := NewRasterizer(src).Rasterize(context.Background(), core.AssetURL("BG"), geometry.Size{Width: 400, Height: 300}, visuals)
	if err != nil {
		t.Fatalf("Rasterize() failed: %v", err)
	}

	if img.Bounds() != image.Rect(0, 0, 400, 300) {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	if c := img.RGBAAt(350, 250); c.B < 200 || c.R > 50 {
		t.Errorf("background pixel = %v, want blue", c)
	}
	if c := img.RGBAAt(125, 130); c.G < 200 || c.B > 50 {
		t.Errorf("photo pixel = %v, want green", c)
	}
	if c := img.RGBAAt(202, 102); c != placeholderFill {
		t.Errorf("broken image pixel = %v, want placeholder fill", c)
	}
}

func TestRasterize_NoBackground(t *testing.T) {
	img, err := NewRasterizer(nil).Rasterize(context.Background(), "", geometry.Size{Width: 60, Height: 40}, nil)
	if err != nil {
		t.Fatalf("Rasterize() failed: %v", err)
	}
	if c := img.RGBAAt(30, 20); c != paper {
		t.Errorf("pixel = %v, want white", c)
	}
}
