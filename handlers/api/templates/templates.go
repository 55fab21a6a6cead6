package templates

import (
	"context"
	"encoding/json"
	"errors"
	"idcard-designer/core"
	"idcard-designer/editor/fields"
	"idcard-designer/editor/geometry"
	"idcard-designer/editor/styling"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type (
	TemplateRequest struct {
		Name          string `json:"name"`
		Description   string `json:"description"`
		FrontImageURL string `json:"front_image_url"`
		BackImageURL  string `json:"back_image_url"`
		IsActive      *bool  `json:"is_active"`
	}

	LayoutRequest struct {
		Front []core.TemplateField `json:"front"`
		Back  []core.TemplateField `json:"back"`
	}

	// Store is what the template routes need: templates plus the assets
	// their backgrounds point at.
	Store interface {
		core.TemplateStore
		core.AssetStore
	}
)

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

func statusFor(err error) int {
	if errors.Is(err, core.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func HandleListTemplates(store core.TemplateStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templates, err := store.List(r.Context())
		if err != nil {
			logrus.WithError(err).Error("Failed to list templates")
			renderError(w, r, http.StatusInternalServerError, "Failed to list templates")
			return
		}

		if templates == nil {
			templates = []*core.Template{}
		}

		render.JSON(w, r, templates)
	}
}

func HandleGetTemplate(store core.TemplateStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		template, err := store.Get(r.Context(), id)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":      err,
				"templateID": id,
			}).Warn("Failed to get template")
			renderError(w, r, statusFor(err), "Template not found")
			return
		}

		render.JSON(w, r, template)
	}
}

// HandleCreateTemplate stores a new template. Background sizes are read
// from the referenced assets so the editor canvas matches the images.
func HandleCreateTemplate(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TemplateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logrus.WithError(err).Warn("Failed to decode template request")
			renderError(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			renderError(w, r, http.StatusBadRequest, "Template name is required")
			return
		}

		template := &core.Template{IsActive: true}
		if err := apply(r.Context(), store, template, req); err != nil {
			renderError(w, r, http.StatusBadRequest, err.Error())
			return
		}

		if err := store.Save(r.Context(), template); err != nil {
			logrus.WithError(err).Error("Failed to create template")
			renderError(w, r, http.StatusInternalServerError, "Failed to create template")
			return
		}

		logrus.WithField("templateID", template.ID).Info("Template created")
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, template)
	}
}

// HandleUpdateTemplate changes a template. When a background is replaced
// the stored fields are pulled inside the new canvas.
func HandleUpdateTemplate(store Store, defaultCanvas geometry.Size) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		template, err := store.Get(r.Context(), id)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":      err,
				"templateID": id,
			}).Warn("Failed to load template for update")
			renderError(w, r, statusFor(err), "Template not found")
			return
		}

		var req TemplateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logrus.WithError(err).Warn("Failed to decode template request")
			renderError(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Name == "" {
			req.Name = template.Name
		}
		before := *template

		if err := apply(r.Context(), store, template, req); err != nil {
			renderError(w, r, http.StatusBadRequest, err.Error())
			return
		}

		if err := store.Save(r.Context(), template); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":      err,
				"templateID": id,
			}).Error("Failed to update template")
			renderError(w, r, statusFor(err), "Failed to update template")
			return
		}

		if canvasChanged(&before, template) {
			if err := reconform(r.Context(), store, template, defaultCanvas); err != nil {
				logrus.WithFields(logrus.Fields{
					"error":      err,
					"templateID": id,
				}).Error("Failed to fit layout to the new background")
				renderError(w, r, statusFor(err), "Failed to update layout")
				return
			}
		}

		render.JSON(w, r, template)
	}
}

func HandleDeleteTemplate(store core.TemplateStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := store.Delete(r.Context(), id); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":      err,
				"templateID": id,
			}).Error("Failed to delete template")
			renderError(w, r, statusFor(err), "Failed to delete template")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleGetLayout(store core.TemplateStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		layout, err := store.Layout(r.Context(), id)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":      err,
				"templateID": id,
			}).Warn("Failed to get layout")
			renderError(w, r, statusFor(err), "Template not found")
			return
		}
		layout.Normalize()

		render.JSON(w, r, layout)
	}
}

// HandleReplaceLayout overwrites the stored fields of both sides. A side
// missing from the body is stored as empty. Every field is pulled inside
// its side's canvas and given a complete style before it is stored.
func HandleReplaceLayout(store core.TemplateStore, defaultCanvas geometry.Size) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		template, err := store.Get(r.Context(), id)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":      err,
				"templateID": id,
			}).Warn("Failed to load template for layout")
			renderError(w, r, statusFor(err), "Template not found")
			return
		}

		var req LayoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logrus.WithError(err).Warn("Failed to decode layout request")
			renderError(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}

		layout := &core.Layout{TemplateID: id, Front: req.Front, Back: req.Back}
		if err := fields.Check(layout); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":      err,
				"templateID": id,
			}).Warn("Rejected layout")
			renderError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		conform(layout, template, defaultCanvas)

		if err := store.ReplaceLayout(r.Context(), layout); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":      err,
				"templateID": id,
			}).Error("Failed to save layout")
			renderError(w, r, statusFor(err), "Failed to save layout")
			return
		}

		logrus.WithFields(logrus.Fields{
			"templateID": id,
			"front":      len(layout.Front),
			"back":       len(layout.Back),
		}).Info("Layout saved")
		render.JSON(w, r, layout)
	}
}

// HandleListFonts returns the font families the styling panel offers.
func HandleListFonts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, styling.FontFamilies)
	}
}

func apply(ctx context.Context, assets core.AssetStore, t *core.Template, req TemplateRequest) error {
	t.Name = strings.TrimSpace(req.Name)
	if req.Description != "" {
		t.Description = req.Description
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}

	if req.FrontImageURL != "" && req.FrontImageURL != t.FrontImageURL {
		w, h, err := naturalSize(ctx, assets, req.FrontImageURL)
		if err != nil {
			return err
		}
		t.FrontImageURL, t.FrontImageWidth, t.FrontImageHeight = req.FrontImageURL, w, h
	}
	if req.BackImageURL != "" && req.BackImageURL != t.BackImageURL {
		w, h, err := naturalSize(ctx, assets, req.BackImageURL)
		if err != nil {
			return err
		}
		t.BackImageURL, t.BackImageWidth, t.BackImageHeight = req.BackImageURL, w, h
	}
	return nil
}

// naturalSize looks up the stored dimensions of an uploaded background.
// Foreign URLs get no size, so the editor falls back to its default canvas.
func naturalSize(ctx context.Context, assets core.AssetStore, ref string) (int, int, error) {
	id, ok := core.AssetIDFromURL(ref)
	if !ok {
		return 0, 0, nil
	}
	asset, err := assets.FindID(ctx, id)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"error":   err,
			"assetID": id,
		}).Warn("Background asset not found")
		return 0, 0, errors.New("background image " + ref + " not found")
	}
	return asset.Width, asset.Height, nil
}

func canvasOf(t *core.Template, side core.Side, defaultCanvas geometry.Size) geometry.Size {
	if w, h := t.CanvasSize(side); w > 0 && h > 0 {
		return geometry.Size{Width: w, Height: h}
	}
	return defaultCanvas
}

func canvasChanged(before, after *core.Template) bool {
	for _, side := range core.Sides {
		bw, bh := before.CanvasSize(side)
		aw, ah := after.CanvasSize(side)
		if bw != aw || bh != ah {
			return true
		}
	}
	return false
}

// conform pulls every field of l inside the canvas of its side.
func conform(l *core.Layout, t *core.Template, defaultCanvas geometry.Size) {
	l.Front = fields.ConformAll(l.Front, canvasOf(t, core.SideFront, defaultCanvas))
	l.Back = fields.ConformAll(l.Back, canvasOf(t, core.SideBack, defaultCanvas))
	l.Normalize()
}

func reconform(ctx context.Context, store core.TemplateStore, t *core.Template, defaultCanvas geometry.Size) error {
	layout, err := store.Layout(ctx, t.ID)
	if err != nil {
		return err
	}
	conform(layout, t, defaultCanvas)
	return store.ReplaceLayout(ctx, layout)
}
