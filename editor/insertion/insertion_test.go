package insertion

import (
	"errors"
	"idcard-designer/core"
	"idcard-designer/editor/geometry"
	"image"
	"sync"
	"testing"
)

var canvas = geometry.Size{Width: 600, Height: 400}

func TestDecodePayload_Signature(t *testing.T) {
	p, err := DecodePayload([]byte(`{"type":"signature","label":"Signature","imageUrl":"/api/assets/SIG"}`))
	if err != nil {
		t.Fatalf("DecodePayload() failed: %v", err)
	}
	if p.Type != KindSignature || p.ImageURL != "/api/assets/SIG" {
		t.Errorf("payload = %+v", p)
	}
}

func TestDecodePayload_LegacyFieldShape(t *testing.T) {
	p, err := DecodePayload([]byte(`{"type":"field","field":{"id":"firstName","label":"First Name"}}`))
	if err != nil {
		t.Fatalf("DecodePayload() failed: %v", err)
	}
	if p.DisplayLabel() != "First Name" {
		t.Errorf("DisplayLabel() = %q, want First Name", p.DisplayLabel())
	}
}

func TestDecodePayload_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"empty", ``, ErrEmptyPayload},
		{"unknown type", `{"type":"sticker","label":"x"}`, ErrUnknownKind},
		{"no label", `{"type":"field"}`, ErrMissingLabel},
		{"signature without image", `{"type":"signature","label":"Signature"}`, ErrMissingImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePayload([]byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("DecodePayload() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := DecodePayload([]byte(`{not json`)); err == nil {
		t.Error("DecodePayload() accepted invalid JSON")
	}
}

func TestNewField_SignatureDrop(t *testing.T) {
	p := Payload{Type: KindSignature, Label: "Signature", ImageURL: "data:image/png;base64,AAAA"}
	f := NewField(p, core.SideFront, image.Pt(40, 50), canvas)

	if f.FieldType != core.FieldImage {
		t.Errorf("FieldType = %q, want image", f.FieldType)
	}
	if f.Width != 120 || f.Height != 60 {
		t.Errorf("size = %dx%d, want 120x60", f.Width, f.Height)
	}
	if f.ImageURL != p.ImageURL {
		t.Errorf("ImageURL = %q, want %q", f.ImageURL, p.ImageURL)
	}
	if f.X != 40 || f.Y != 50 {
		t.Errorf("position = (%d,%d), want (40,50)", f.X, f.Y)
	}
	if f.ID == "" {
		t.Error("ID is empty")
	}
}

func TestNewField_DefaultSizes(t *testing.T) {
	tests := []struct {
		kind Kind
		want geometry.Size
		typ  core.FieldType
	}{
		{KindField, geometry.Size{Width: 150, Height: 30}, core.FieldText},
		{KindImage, geometry.Size{Width: 120, Height: 120}, core.FieldImage},
		{KindIDPicture, geometry.Size{Width: 100, Height: 120}, core.FieldImage},
		{KindSignature, geometry.Size{Width: 120, Height: 60}, core.FieldImage},
	}
	for _, tt := range tests {
		f := NewField(Payload{Type: tt.kind, Label: "x", ImageURL: "u"}, core.SideBack, image.Pt(0, 0), canvas)
		if f.Width != tt.want.Width || f.Height != tt.want.Height {
			t.Errorf("%s: size = %dx%d, want %dx%d", tt.kind, f.Width, f.Height, tt.want.Width, tt.want.Height)
		}
		if f.FieldType != tt.typ {
			t.Errorf("%s: FieldType = %q, want %q", tt.kind, f.FieldType, tt.typ)
		}
		if f.Side != core.SideBack {
			t.Errorf("%s: Side = %q, want back", tt.kind, f.Side)
		}
		if f.FieldStyle != core.DefaultStyle() {
			t.Errorf("%s: style = %+v, want default", tt.kind, f.FieldStyle)
		}
	}
}

func TestNewField_DropNearEdgeIsClamped(t *testing.T) {
	f := NewField(Payload{Type: KindField, Label: "Course"}, core.SideFront, image.Pt(590, 395), canvas)
	if f.X != 450 || f.Y != 370 {
		t.Errorf("position = (%d,%d), want (450,370)", f.X, f.Y)
	}
}

func TestNewCenteredField(t *testing.T) {
	f := NewCenteredField(Payload{Type: KindIDPicture, Label: "ID Picture", ImageURL: "u"}, core.SideFront, canvas)
	if f.X != 250 || f.Y != 140 {
		t.Errorf("position = (%d,%d), want (250,140)", f.X, f.Y)
	}
}

func TestNewField_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		f := NewField(Payload{Type: KindField, Label: "x"}, core.SideFront, image.Point{}, canvas)
		if seen[f.ID] {
			t.Fatalf("duplicate id %s", f.ID)
		}
		seen[f.ID] = true
	}
}

func TestQueue_TimestampsIncrease(t *testing.T) {
	q := NewQueue(100)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Send(Payload{Type: KindField, Label: "x"})
		}()
	}
	wg.Wait()
	q.Close()

	var last int64
	n := 0
	for p := range q.C() {
		if p.Timestamp <= last {
			t.Fatalf("timestamp %d not greater than %d", p.Timestamp, last)
		}
		last = p.Timestamp
		n++
	}
	if n != 50 {
		t.Errorf("received %d payloads, want 50", n)
	}
}

func TestQueue_SendAfterClose(t *testing.T) {
	q := NewQueue(1)
	q.Close()
	if q.Send(Payload{Type: KindField, Label: "x"}) {
		t.Error("Send() after Close() succeeded")
	}
}
