// Package storetest checks a store implementation against the behaviour
// every backend shares.
package storetest

import (
	"context"
	"errors"
	"idcard-designer/core"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Store is what each backend implements.
type Store interface {
	core.AssetStore
	core.TemplateStore
}

// Run exercises s. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("Assets", func(t *testing.T) { testAssets(t, newStore(t)) })
	t.Run("TemplateCRUD", func(t *testing.T) { testTemplateCRUD(t, newStore(t)) })
	t.Run("ListNewestFirst", func(t *testing.T) { testListNewestFirst(t, newStore(t)) })
	t.Run("ReplaceLayout", func(t *testing.T) { testReplaceLayout(t, newStore(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newStore(t)) })
}

func testAssets(t *testing.T, s Store) {
	ctx := context.Background()
	asset := &core.Asset{
		Kind:        core.AssetSignature,
		ContentType: "image/png",
		Width:       400,
		Height:      200,
		Data:        []byte{0x89, 'P', 'N', 'G', 1, 2, 3},
	}
	id, err := s.Create(ctx, asset)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if id == "" || asset.ID != id {
		t.Fatalf("Create() id = %q, asset.ID = %q", id, asset.ID)
	}

	got, err := s.FindID(ctx, id)
	if err != nil {
		t.Fatalf("FindID() failed: %v", err)
	}
	if diff := cmp.Diff(asset, got, cmpopts.EquateApproxTime(time.Second)); diff != "" {
		t.Errorf("FindID() mismatch (-want +got):\n%s", diff)
	}
}

func testTemplateCRUD(t *testing.T, s Store) {
	ctx := context.Background()
	tpl := &core.Template{
		Name:             "Student ID 2025",
		Description:      "Front and back",
		FrontImageURL:    core.AssetURL("FRONT"),
		FrontImageWidth:  1011,
		FrontImageHeight: 638,
		IsActive:         true,
	}
	if err := s.Save(ctx, tpl); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if tpl.ID == "" || tpl.CreatedAt.IsZero() {
		t.Fatalf("Save() did not assign id and timestamps: %+v", tpl)
	}
	created := tpl.CreatedAt

	tpl.Name = "Student ID 2026"
	tpl.BackImageURL = core.AssetURL("BACK")
	if err := s.Save(ctx, tpl); err != nil {
		t.Fatalf("Save() update failed: %v", err)
	}

	got, err := s.Get(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Name != "Student ID 2026" || got.BackImageURL != core.AssetURL("BACK") || got.FrontImageWidth != 1011 || !got.IsActive {
		t.Errorf("Get() = %+v", got)
	}
	if got.CreatedAt.Sub(created).Abs() > time.Second {
		t.Errorf("CreatedAt changed on update: %v -> %v", created, got.CreatedAt)
	}

	if err := s.ReplaceLayout(ctx, &core.Layout{TemplateID: tpl.ID, Front: []core.TemplateField{field("a", 0)}}); err != nil {
		t.Fatalf("ReplaceLayout() failed: %v", err)
	}
	if err := s.Delete(ctx, tpl.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := s.Get(ctx, tpl.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get() after Delete() error = %v, want ErrNotFound", err)
	}
	if _, err := s.Layout(ctx, tpl.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Layout() after Delete() error = %v, want ErrNotFound", err)
	}
}

func testListNewestFirst(t *testing.T, s Store) {
	ctx := context.Background()
	var ids []string
	for _, name := range []string{"first", "second", "third"} {
		tpl := &core.Template{Name: name}
		if err := s.Save(ctx, tpl); err != nil {
			t.Fatalf("Save() failed: %v", err)
		}
		ids = append(ids, tpl.ID)
		time.Sleep(5 * time.Millisecond)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	var got []string
	for _, tpl := range list {
		got = append(got, tpl.ID)
	}
	want := []string{ids[2], ids[1], ids[0]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("List() order mismatch (-want +got):\n%s", diff)
	}
}

func field(id string, x int) core.TemplateField {
	return core.TemplateField{
		ID:         id,
		FieldType:  core.FieldText,
		FieldLabel: "First Name",
		X:          x,
		Y:          10,
		Width:      150,
		Height:     30,
		FieldStyle: core.DefaultStyle(),
	}
}

func testReplaceLayout(t *testing.T, s Store) {
	ctx := context.Background()
	tpl := &core.Template{Name: "Layout"}
	if err := s.Save(ctx, tpl); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	empty, err := s.Layout(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("Layout() failed: %v", err)
	}
	if empty.Front == nil || empty.Back == nil || len(empty.Front)+len(empty.Back) != 0 {
		t.Errorf("Layout() of a new template = %+v, want two empty lists", empty)
	}

	photo := field("photo", 300)
	photo.FieldType = core.FieldImage
	photo.FieldLabel = "ID Picture"
	photo.ImageURL = core.AssetURL("PHOTO")

	first := &core.Layout{
		TemplateID: tpl.ID,
		Front:      []core.TemplateField{field("a", 0), field("b", 10), photo},
		Back:       []core.TemplateField{field("c", 20)},
	}
	if err := s.ReplaceLayout(ctx, first); err != nil {
		t.Fatalf("ReplaceLayout() failed: %v", err)
	}

	second := &core.Layout{
		TemplateID: tpl.ID,
		Front:      []core.TemplateField{field("b", 50), field("d", 60)},
		Back:       []core.TemplateField{},
	}
	if err := s.ReplaceLayout(ctx, second); err != nil {
		t.Fatalf("ReplaceLayout() failed: %v", err)
	}

	got, err := s.Layout(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("Layout() failed: %v", err)
	}
	want := &core.Layout{
		TemplateID: tpl.ID,
		Front:      []core.TemplateField{field("b", 50), field("d", 60)},
		Back:       []core.TemplateField{},
	}
	want.Normalize()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Layout() after replace mismatch (-want +got):\n%s", diff)
	}

	if err := s.ReplaceLayout(ctx, first); err != nil {
		t.Fatalf("ReplaceLayout() failed: %v", err)
	}
	got, err = s.Layout(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("Layout() failed: %v", err)
	}
	if len(got.Front) != 3 || got.Front[2].ImageURL != core.AssetURL("PHOTO") || len(got.Back) != 1 {
		t.Errorf("Layout() = %+v", got)
	}
}

func testNotFound(t *testing.T, s Store) {
	ctx := context.Background()
	if _, err := s.FindID(ctx, "01J00000000000000000000000"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("FindID() error = %v, want ErrNotFound", err)
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if err := s.Save(ctx, &core.Template{ID: "missing", Name: "x"}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Save() of unknown id error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
	if err := s.ReplaceLayout(ctx, &core.Layout{TemplateID: "missing"}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("ReplaceLayout() error = %v, want ErrNotFound", err)
	}
}
