package gesture

import (
	"idcard-designer/editor/geometry"
	"image"
	"math/rand"
	"testing"
)

type rectMap map[string]geometry.Rect

func (m rectMap) Rect(id string) (geometry.Rect, bool) {
	r, ok := m[id]
	return r, ok
}

func (m rectMap) SetRect(id string, r geometry.Rect) {
	m[id] = r
}

var canvas = geometry.Size{Width: 600, Height: 400}

func newController(rects rectMap) (*Controller, *Scope) {
	scope := &Scope{}
	return NewController(rects, scope), scope
}

func TestDrag_FollowsPointerWithOffset(t *testing.T) {
	rects := rectMap{"a": {X: 100, Y: 100, Width: 150, Height: 30}}
	c, scope := newController(rects)

	if !c.BeginDrag("a", image.Pt(110, 105), geometry.FieldBounds(canvas)) {
		t.Fatal("BeginDrag() failed")
	}
	if c.State() != Dragging {
		t.Fatalf("State() = %v, want dragging", c.State())
	}

	scope.Move(image.Pt(210, 155))
	if got := rects["a"]; got.X != 200 || got.Y != 150 {
		t.Errorf("position = (%d,%d), want (200,150)", got.X, got.Y)
	}
	if rects["a"].Width != 150 || rects["a"].Height != 30 {
		t.Errorf("drag changed size: %+v", rects["a"])
	}

	scope.Up(image.Pt(999, 999))
	if c.State() != Idle {
		t.Errorf("State() after up = %v, want idle", c.State())
	}
	if scope.Held() {
		t.Error("scope still held after pointer-up")
	}

	// Moves after release are ignored.
	scope.Move(image.Pt(0, 0))
	if got := rects["a"]; got.X != 200 || got.Y != 150 {
		t.Errorf("position changed after release: (%d,%d)", got.X, got.Y)
	}
}

func TestDrag_ClampsOutsideCanvas(t *testing.T) {
	rects := rectMap{"a": {X: 10, Y: 10, Width: 150, Height: 30}}
	c, scope := newController(rects)
	c.BeginDrag("a", image.Pt(20, 20), geometry.FieldBounds(canvas))

	scope.Move(image.Pt(5000, -300))
	want := geometry.Rect{X: 450, Y: 0, Width: 150, Height: 30}
	if rects["a"] != want {
		t.Errorf("rect = %+v, want %+v", rects["a"], want)
	}
}

func TestDrag_RandomSequencesStayInside(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 200; run++ {
		w := 50 + rng.Intn(200)
		h := 20 + rng.Intn(100)
		rects := rectMap{"a": {X: rng.Intn(600 - w), Y: rng.Intn(400 - h), Width: w, Height: h}}
		c, scope := newController(rects)

		start := image.Pt(rng.Intn(800)-100, rng.Intn(600)-100)
		c.BeginDrag("a", start, geometry.FieldBounds(canvas))
		for i := 0; i < 30; i++ {
			scope.Move(image.Pt(rng.Intn(1600)-500, rng.Intn(1200)-400))
			r := rects["a"]
			if r.X < 0 || r.X > canvas.Width-r.Width || r.Y < 0 || r.Y > canvas.Height-r.Height {
				t.Fatalf("run %d: rect %+v escaped the canvas", run, r)
			}
		}
		scope.Up(image.Pt(-1000, -1000))
	}
}

func TestResize_GrowsFromHandle(t *testing.T) {
	rects := rectMap{"a": {X: 100, Y: 100, Width: 150, Height: 30}}
	c, scope := newController(rects)

	c.BeginResize("a", image.Pt(250, 130), geometry.FieldBounds(canvas))
	scope.Move(image.Pt(300, 170))

	want := geometry.Rect{X: 100, Y: 100, Width: 200, Height: 70}
	if rects["a"] != want {
		t.Errorf("rect = %+v, want %+v", rects["a"], want)
	}
	scope.Up(image.Pt(300, 170))
	if c.State() != Idle {
		t.Errorf("State() = %v, want idle", c.State())
	}
}

func TestResize_RandomSequencesRespectBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for run := 0; run < 200; run++ {
		x, y := rng.Intn(500), rng.Intn(350)
		rects := rectMap{"a": {X: x, Y: y, Width: min(600-x, 50+rng.Intn(100)), Height: min(400-y, 20+rng.Intn(30))}}
		if rects["a"].Width < 50 || rects["a"].Height < 20 {
			continue
		}
		c, scope := newController(rects)
		c.BeginResize("a", image.Pt(rng.Intn(600), rng.Intn(400)), geometry.FieldBounds(canvas))
		for i := 0; i < 30; i++ {
			scope.Move(image.Pt(rng.Intn(2000)-700, rng.Intn(2000)-700))
			r := rects["a"]
			if r.Width < 50 || r.Height < 20 {
				t.Fatalf("run %d: rect %+v below minimum", run, r)
			}
			if r.X+r.Width > canvas.Width || r.Y+r.Height > canvas.Height {
				t.Fatalf("run %d: rect %+v exceeds canvas", run, r)
			}
			if r.X != x || r.Y != y {
				t.Fatalf("run %d: resize moved the rect to (%d,%d)", run, r.X, r.Y)
			}
		}
		scope.Up(image.Point{})
	}
}

func TestBegin_MissingRect(t *testing.T) {
	c, scope := newController(rectMap{})
	if c.BeginDrag("nope", image.Point{}, geometry.FieldBounds(canvas)) {
		t.Error("BeginDrag() of missing rect succeeded")
	}
	if scope.Held() {
		t.Error("scope acquired for missing rect")
	}
}

func TestNewGestureReplacesPrevious(t *testing.T) {
	rects := rectMap{
		"a": {X: 0, Y: 0, Width: 100, Height: 30},
		"b": {X: 200, Y: 200, Width: 100, Height: 30},
	}
	scope := &Scope{}
	first := NewController(rects, scope)
	second := NewController(rects, scope)

	first.BeginDrag("a", image.Pt(5, 5), geometry.FieldBounds(canvas))
	second.BeginResize("b", image.Pt(300, 230), geometry.FieldBounds(canvas))

	if first.State() != Idle {
		t.Errorf("first controller State() = %v, want idle", first.State())
	}
	scope.Move(image.Pt(320, 240))
	if rects["a"].X != 0 || rects["a"].Y != 0 {
		t.Errorf("replaced gesture still moved a: %+v", rects["a"])
	}
	if rects["b"].Width != 120 {
		t.Errorf("b width = %d, want 120", rects["b"].Width)
	}
}

func TestMove_RectRemovedMidGesture(t *testing.T) {
	rects := rectMap{"a": {X: 0, Y: 0, Width: 100, Height: 30}}
	c, scope := newController(rects)
	c.BeginDrag("a", image.Pt(1, 1), geometry.FieldBounds(canvas))

	delete(rects, "a")
	scope.Move(image.Pt(50, 50))

	if c.State() != Idle {
		t.Errorf("State() = %v, want idle", c.State())
	}
	if _, ok := rects["a"]; ok {
		t.Error("removed rect was written back")
	}
}
