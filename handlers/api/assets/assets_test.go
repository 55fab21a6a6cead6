package assets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"idcard-designer/core"
	"idcard-designer/editor/insertion"
	"idcard-designer/editor/signature"
	"idcard-designer/stores/memory"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

type recordingInserter struct {
	accept bool
	calls  []string
	got    []insertion.Payload
}

func (m *recordingInserter) Insert(sessionID string, p insertion.Payload) bool {
	m.calls = append(m.calls, sessionID)
	m.got = append(m.got, p)
	return m.accept
}

type brokenAssets struct {
	core.AssetStore
	err error
}

func (b *brokenAssets) FindID(ctx context.Context, id string) (*core.Asset, error) {
	return nil, b.err
}

// oversized is a json body just past the request limit.
func oversized() string {
	return strings.Repeat(" ", maxRequestBytes+1) + "{}"
}

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
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

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) AssetResponse {
	t.Helper()
	var resp AssetResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestHandleUpload(t *testing.T) {
	store := memory.NewStore()

	req := httptest.NewRequest(http.MethodPost, "/api/assets?kind=template", bytes.NewReader(pngBytes(t, 320, 200, color.White)))
	w := httptest.NewRecorder()
	HandleUpload(store, 1<<20)(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	resp := decodeResponse(t, w)
	if resp.Width != 320 || resp.Height != 200 || resp.Kind != "template" {
		t.Errorf("response = %+v", resp)
	}
	if resp.URL != "/api/assets/"+resp.ID {
		t.Errorf("URL = %q", resp.URL)
	}

	stored, err := store.FindID(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("FindID() failed: %v", err)
	}
	if stored.ContentType != "image/png" {
		t.Errorf("ContentType = %q, want image/png", stored.ContentType)
	}
}

func TestHandleUpload_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		body   []byte
		limit  int64
		status int
	}{
		{"corrupt image", "?kind=image", []byte("definitely not a png"), 1 << 20, http.StatusBadRequest},
		{"unknown kind", "?kind=sticker", nil, 1 << 20, http.StatusBadRequest},
		{"too large", "", bytes.Repeat([]byte{0}, 64), 16, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore()
			req := httptest.NewRequest(http.MethodPost, "/api/assets"+tt.query, bytes.NewReader(tt.body))
			w := httptest.NewRecorder()
			HandleUpload(store, tt.limit)(w, req)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestHandleGet(t *testing.T) {
	store := memory.NewStore()
	data := pngBytes(t, 4, 4, color.Black)
	id, err := store.Create(context.Background(), &core.Asset{Kind: core.AssetImage, ContentType: "image/png", Data: data})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	req := httptest.NewRequest(http.MethodGet, "/api/assets/"+id, nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()
	HandleGet(store)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.Equal(w.Body.Bytes(), data) {
		t.Error("body does not match stored data")
	}

	rctx.URLParams = chi.RouteParams{}
	rctx.URLParams.Add("id", "missing")
	w = httptest.NewRecorder()
	HandleGet(store)(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandleCrop_InsertsIntoSession(t *testing.T) {
	store := memory.NewStore()
	id, err := store.Create(context.Background(), &core.Asset{Kind: core.AssetImage, Data: pngBytes(t, 800, 600, color.RGBA{R: 255, A: 255})})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	inserter := &recordingInserter{accept: true}

	body, _ := json.Marshal(map[string]any{
		"assetId":   id,
		"selection": map[string]int{"x": 50, "y": 50, "width": 200, "height": 200},
		"zoom":      1.5,
		"session":   "sock-1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/assets/crop", bytes.NewReader(body))
	w := httptest.NewRecorder()
	HandleCrop(store, inserter)(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	resp := decodeResponse(t, w)
	if resp.Width != 200 || resp.Height != 200 || resp.Kind != string(core.AssetCrop) || !resp.Inserted {
		t.Errorf("response = %+v", resp)
	}
	if len(inserter.got) != 1 || inserter.calls[0] != "sock-1" {
		t.Fatalf("inserts = %v", inserter.calls)
	}
	p := inserter.got[0]
	if p.Type != insertion.KindIDPicture || p.Label != "ID Picture" || p.ImageURL != resp.URL {
		t.Errorf("payload = %+v", p)
	}
}

func TestHandleCrop_Errors(t *testing.T) {
	store := memory.NewStore()
	corrupt, _ := store.Create(context.Background(), &core.Asset{Kind: core.AssetImage, Data: []byte("broken")})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"invalid json", "{", http.StatusBadRequest},
		{"unknown asset", `{"assetId":"nope","selection":{"x":0,"y":0,"width":60,"height":60}}`, http.StatusNotFound},
		{"undecodable asset", `{"assetId":"` + corrupt + `","selection":{"x":0,"y":0,"width":60,"height":60}}`, http.StatusBadRequest},
		{"viewport too large", `{"assetId":"` + corrupt + `","viewport":{"width":6000,"height":6000},"selection":{"x":0,"y":0,"width":6000,"height":6000}}`, http.StatusBadRequest},
		{"body too large", oversized(), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/assets/crop", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			HandleCrop(store, nil)(w, req)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestHandleSignature(t *testing.T) {
	store := memory.NewStore()
	inserter := &recordingInserter{accept: false}

	body := `{"strokes":[[{"x":10,"y":10},{"x":120,"y":80}]],"session":"gone"}`
	req := httptest.NewRequest(http.MethodPost, "/api/assets/signature", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	HandleSignature(store, inserter)(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	resp := decodeResponse(t, w)
	if resp.Width != 400 || resp.Height != 200 || resp.Kind != string(core.AssetSignature) {
		t.Errorf("response = %+v", resp)
	}
	if resp.Inserted {
		t.Error("Inserted = true for a session that refused the payload")
	}
	if len(inserter.got) != 1 || inserter.got[0].Type != insertion.KindSignature {
		t.Errorf("payloads = %+v", inserter.got)
	}
}

func TestHandleSignature_NoStrokes(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/assets/signature", bytes.NewBufferString(`{"strokes":[]}`))
	w := httptest.NewRecorder()
	HandleSignature(memory.NewStore(), nil)(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleCrop_StoreFailure(t *testing.T) {
	store := &brokenAssets{AssetStore: memory.NewStore(), err: errors.New("connection reset")}

	body := `{"assetId":"a","selection":{"x":0,"y":0,"width":60,"height":60}}`
	req := httptest.NewRequest(http.MethodPost, "/api/assets/crop", strings.NewReader(body))
	w := httptest.NewRecorder()
	HandleCrop(store, nil)(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestHandleSignature_Limits(t *testing.T) {
	var points strings.Builder
	for i := 0; i <= signature.MaxPoints; i++ {
		if i > 0 {
			points.WriteByte(',')
		}
		points.WriteString(`{"x":1,"y":1}`)
	}

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"too many points", `{"strokes":[[` + points.String() + `]]}`, http.StatusBadRequest},
		{"pad too large", `{"strokes":[[{"x":1,"y":1}]],"width":4096,"height":4096}`, http.StatusBadRequest},
		{"body too large", oversized(), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore()
			req := httptest.NewRequest(http.MethodPost, "/api/assets/signature", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			HandleSignature(store, nil)(w, req)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
		})
	}
}
