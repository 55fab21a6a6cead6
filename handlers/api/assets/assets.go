package assets

import (
	"encoding/json"
	"errors"
	"idcard-designer/core"
	"idcard-designer/editor/crop"
	"idcard-designer/editor/geometry"
	"idcard-designer/editor/insertion"
	"idcard-designer/editor/render"
	"idcard-designer/editor/signature"
	"image"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chirender "github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// maxRequestBytes caps the json bodies of the crop and signature routes.
const maxRequestBytes = 1 << 20

type (
	AssetResponse struct {
		ID       string `json:"id"`
		URL      string `json:"url"`
		Kind     string `json:"kind"`
		Width    int    `json:"width"`
		Height   int    `json:"height"`
		Inserted bool   `json:"inserted,omitempty"`
	}

	CropRequest struct {
		AssetID   string         `json:"assetId"`
		Selection geometry.Rect  `json:"selection"`
		Viewport  *geometry.Size `json:"viewport"`
		Zoom      float64        `json:"zoom"`
		Session   string         `json:"session"`
		Label     string         `json:"label"`
	}

	SignatureRequest struct {
		Strokes []signature.Stroke `json:"strokes"`
		Width   int                `json:"width"`
		Height  int                `json:"height"`
		Session string             `json:"session"`
		Label   string             `json:"label"`
	}

	// Inserter hands a payload to a live editing session. It reports false
	// when the session is unknown or not accepting inserts.
	Inserter interface {
		Insert(sessionID string, p insertion.Payload) bool
	}
)

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	chirender.Status(r, status)
	chirender.JSON(w, r, map[string]string{"error": msg})
}

func statusFor(err error) int {
	if errors.Is(err, core.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// decodeRequest reads a size-limited json body into v. On failure it
// renders the error and returns false.
func decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		renderError(w, r, http.StatusRequestEntityTooLarge, "Request body is too large")
		return false
	}
	logrus.WithError(err).Warn("Failed to decode asset request")
	renderError(w, r, http.StatusBadRequest, "Invalid request body")
	return false
}

func respond(asset *core.Asset, inserted bool) AssetResponse {
	return AssetResponse{
		ID:       asset.ID,
		URL:      core.AssetURL(asset.ID),
		Kind:     string(asset.Kind),
		Width:    asset.Width,
		Height:   asset.Height,
		Inserted: inserted,
	}
}

// HandleUpload stores the raw request body as an image asset. The body
// must decode as an image; its natural size is recorded on the asset.
func HandleUpload(store core.AssetStore, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := core.AssetKind(r.URL.Query().Get("kind"))
		if kind == "" {
			kind = core.AssetImage
		}
		if !core.ValidAssetKind(kind) {
			renderError(w, r, http.StatusBadRequest, "Unknown asset kind")
			return
		}

		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				renderError(w, r, http.StatusRequestEntityTooLarge, "Upload is too large")
				return
			}
			logrus.WithError(err).Error("Failed to read upload")
			renderError(w, r, http.StatusBadRequest, "Failed to read request body")
			return
		}
		defer r.Body.Close()

		cfg, format, err := render.DecodeConfig(data)
		if err != nil || cfg.Width == 0 || cfg.Height == 0 {
			logrus.WithFields(logrus.Fields{
				"error": err,
				"kind":  kind,
				"bytes": len(data),
			}).Warn("Rejected upload that is not an image")
			renderError(w, r, http.StatusBadRequest, "Upload is not a supported image")
			return
		}

		asset := &core.Asset{
			Kind:        kind,
			ContentType: "image/" + format,
			Width:       cfg.Width,
			Height:      cfg.Height,
			Data:        data,
		}
		if _, err := store.Create(r.Context(), asset); err != nil {
			logrus.WithError(err).Error("Failed to store asset")
			renderError(w, r, http.StatusInternalServerError, "Failed to store asset")
			return
		}

		chirender.Status(r, http.StatusCreated)
		chirender.JSON(w, r, respond(asset, false))
	}
}

func HandleGet(store core.AssetStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		asset, err := store.FindID(r.Context(), id)
		if err != nil {
			http.Error(w, "Asset not found", statusFor(err))
			return
		}

		contentType := asset.ContentType
		if contentType == "" {
			contentType = http.DetectContentType(asset.Data)
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(asset.Data)))
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		w.Write(asset.Data) //nolint:errcheck
	}
}

// HandleCrop cuts the selected region out of a stored image and stores it
// as a new crop asset. With a session id the result is also inserted as an
// ID picture into that editing session.
func HandleCrop(store core.AssetStore, inserter Inserter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CropRequest
		if !decodeRequest(w, r, &req) {
			return
		}

		viewport := crop.DefaultViewport
		if req.Viewport != nil {
			viewport = *req.Viewport
		}
		if viewport.Width > crop.MaxViewportSide || viewport.Height > crop.MaxViewportSide {
			renderError(w, r, http.StatusBadRequest, crop.ErrViewportSize.Error())
			return
		}

		source, err := store.FindID(r.Context(), req.AssetID)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":   err,
				"assetID": req.AssetID,
			}).Warn("Failed to load crop source")
			status := statusFor(err)
			msg := "Source image not found"
			if status != http.StatusNotFound {
				msg = "Failed to load source image"
			}
			renderError(w, r, status, msg)
			return
		}
		img, err := render.Decode(source.Data)
		if err != nil {
			renderError(w, r, http.StatusBadRequest, "Source image cannot be decoded")
			return
		}

		cropped, err := crop.Crop(img, viewport, req.Selection)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":     err,
				"selection": req.Selection,
				"viewport":  viewport,
			}).Warn("Failed to crop image")
			renderError(w, r, http.StatusBadRequest, err.Error())
			return
		}

		logrus.WithFields(logrus.Fields{
			"assetID": req.AssetID,
			"zoom":    crop.ClampZoom(req.Zoom),
			"source":  crop.Source(geometry.Size{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}, viewport, req.Selection),
		}).Debug("Cropping image")

		label := req.Label
		if label == "" {
			label = "ID Picture"
		}
		storeAndInsert(w, r, store, inserter, cropped, core.AssetCrop, req.Session, insertion.Payload{
			Type:  insertion.KindIDPicture,
			Label: label,
		})
	}
}

// HandleSignature rasterises pad strokes into a signature asset.
func HandleSignature(store core.AssetStore, inserter Inserter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignatureRequest
		if !decodeRequest(w, r, &req) {
			return
		}

		img, err := signature.Rasterize(req.Strokes, geometry.Size{Width: req.Width, Height: req.Height})
		if err != nil {
			renderError(w, r, http.StatusBadRequest, err.Error())
			return
		}

		label := req.Label
		if label == "" {
			label = "Signature"
		}
		storeAndInsert(w, r, store, inserter, img, core.AssetSignature, req.Session, insertion.Payload{
			Type:  insertion.KindSignature,
			Label: label,
		})
	}
}

func storeAndInsert(w http.ResponseWriter, r *http.Request, store core.AssetStore, inserter Inserter,
	img image.Image, kind core.AssetKind, session string, p insertion.Payload) {
	data, err := crop.EncodePNG(img)
	if err != nil {
		logrus.WithError(err).Error("Failed to encode image")
		renderError(w, r, http.StatusInternalServerError, "Failed to encode image")
		return
	}

	asset := &core.Asset{
		Kind:        kind,
		ContentType: "image/png",
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		Data:        data,
	}
	if _, err := store.Create(r.Context(), asset); err != nil {
		logrus.WithError(err).Error("Failed to store asset")
		renderError(w, r, http.StatusInternalServerError, "Failed to store asset")
		return
	}

	inserted := false
	if session != "" && inserter != nil {
		p.ImageURL = core.AssetURL(asset.ID)
		inserted = inserter.Insert(session, p)
		if !inserted {
			logrus.WithFields(logrus.Fields{
				"session": session,
				"assetID": asset.ID,
			}).Warn("Editing session did not accept the insert")
		}
	}

	chirender.Status(r, http.StatusCreated)
	chirender.JSON(w, r, respond(asset, inserted))
}
