package fields

import (
	"idcard-designer/core"
	"idcard-designer/editor/geometry"
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func field(id string, x, y int) core.TemplateField {
	return core.TemplateField{
		ID:         id,
		FieldType:  core.FieldText,
		FieldLabel: "Label " + id,
		X:          x,
		Y:          y,
		Width:      150,
		Height:     30,
		FieldStyle: core.DefaultStyle(),
	}
}

func TestNew_TagsSide(t *testing.T) {
	r := New(core.SideBack, []core.TemplateField{field("a", 0, 0)})
	got, ok := r.Find("a")
	if !ok {
		t.Fatal("Find() did not return field a")
	}
	if got.Side != core.SideBack {
		t.Errorf("Side = %q, want back", got.Side)
	}
}

func TestAdd_DoesNotMutateSnapshot(t *testing.T) {
	before := New(core.SideFront, nil)
	after := before.Add(field("a", 10, 10))

	if before.Len() != 0 {
		t.Errorf("old snapshot changed: Len() = %d", before.Len())
	}
	if after.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", after.Len())
	}
}

func TestUpdate(t *testing.T) {
	r := New(core.SideFront, []core.TemplateField{field("a", 0, 0), field("b", 5, 5)})

	next, ok := r.Update("b", func(f *core.TemplateField) {
		f.X = 40
		f.ID = "hijacked"
	})
	if !ok {
		t.Fatal("Update() reported missing field")
	}

	got, _ := next.Find("b")
	if got.X != 40 {
		t.Errorf("X = %d, want 40", got.X)
	}
	old, _ := r.Find("b")
	if old.X != 5 {
		t.Errorf("old snapshot X = %d, want 5", old.X)
	}
}

func TestUpdate_Missing(t *testing.T) {
	r := New(core.SideFront, []core.TemplateField{field("a", 0, 0)})
	if _, ok := r.Update("zzz", func(f *core.TemplateField) {}); ok {
		t.Error("Update() of missing field reported success")
	}
}

func TestRemove(t *testing.T) {
	r := New(core.SideFront, []core.TemplateField{field("a", 0, 0), field("b", 0, 0), field("c", 0, 0)})
	next, ok := r.Remove("b")
	if !ok {
		t.Fatal("Remove() reported missing field")
	}

	var ids []string
	for _, f := range next.Fields() {
		ids = append(ids, f.ID)
	}
	if diff := cmp.Diff([]string{"a", "c"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if r.Len() != 3 {
		t.Errorf("old snapshot Len() = %d, want 3", r.Len())
	}
}

func TestReplace(t *testing.T) {
	r := New(core.SideFront, []core.TemplateField{field("a", 0, 0)})
	next := r.Replace([]core.TemplateField{field("x", 0, 0), field("y", 0, 0)})
	if next.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", next.Len())
	}
	if _, ok := next.Find("a"); ok {
		t.Error("replaced list still contains a")
	}
}

func TestSetRect(t *testing.T) {
	r := New(core.SideFront, []core.TemplateField{field("a", 0, 0)})
	next, _ := r.SetRect("a", geometry.Rect{X: 1, Y: 2, Width: 60, Height: 25})
	got, _ := next.Rect("a")
	if diff := cmp.Diff(geometry.Rect{X: 1, Y: 2, Width: 60, Height: 25}, got); diff != "" {
		t.Errorf("rect mismatch (-want +got):\n%s", diff)
	}
}

func TestHitTest_TopmostWins(t *testing.T) {
	r := New(core.SideFront, []core.TemplateField{field("under", 0, 0), field("over", 10, 10)})

	id, ok := r.HitTest(image.Pt(20, 20))
	if !ok || id != "over" {
		t.Errorf("HitTest() = %q, %v; want over", id, ok)
	}

	id, ok = r.HitTest(image.Pt(2, 2))
	if !ok || id != "under" {
		t.Errorf("HitTest() = %q, %v; want under", id, ok)
	}

	if _, ok := r.HitTest(image.Pt(500, 500)); ok {
		t.Error("HitTest() outside every field reported a hit")
	}
}
