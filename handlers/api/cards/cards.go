// Package cards renders filled-in ID cards from a template layout and a
// student record.
package cards

import (
	"encoding/json"
	"errors"
	"idcard-designer/core"
	"idcard-designer/editor/crop"
	"idcard-designer/editor/geometry"
	"idcard-designer/editor/render"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chirender "github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type (
	// RenderResponse is the json form of a rendered side.
	RenderResponse struct {
		TemplateID string          `json:"template_id"`
		Side       core.Side       `json:"side"`
		Canvas     geometry.Size   `json:"canvas"`
		Background string          `json:"background"`
		Visuals    []render.Visual `json:"visuals"`
	}

	Renderer struct {
		Store         core.TemplateStore
		Compositor    *render.Compositor
		Rasterizer    *render.Rasterizer
		DefaultCanvas geometry.Size
	}
)

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	chirender.Status(r, status)
	chirender.JSON(w, r, map[string]string{"error": msg})
}

// HandleRender resolves the fields of one side against the record in the
// request body. format=png returns the rasterised card instead of the
// visual list.
func (rd *Renderer) HandleRender() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		side := core.Side(r.URL.Query().Get("side"))
		if side == "" {
			side = core.SideFront
		}
		if !side.Valid() {
			renderError(w, r, http.StatusBadRequest, "side must be front or back")
			return
		}
		format := strings.ToLower(r.URL.Query().Get("format"))
		if format != "" && format != "json" && format != "png" {
			renderError(w, r, http.StatusBadRequest, "format must be json or png")
			return
		}

		record := map[string]string{}
		if err := json.NewDecoder(r.Body).Decode(&record); err != nil && !errors.Is(err, io.EOF) {
			logrus.WithError(err).Warn("Failed to decode record")
			renderError(w, r, http.StatusBadRequest, "Invalid record")
			return
		}

		log := logrus.WithFields(logrus.Fields{
			"templateID": id,
			"side":       side,
		})

		template, err := rd.Store.Get(r.Context(), id)
		if err != nil {
			log.WithError(err).Warn("Failed to load template for render")
			renderError(w, r, statusFor(err), "Template not found")
			return
		}
		layout, err := rd.Store.Layout(r.Context(), id)
		if err != nil {
			log.WithError(err).Error("Failed to load layout for render")
			renderError(w, r, statusFor(err), "Failed to load layout")
			return
		}

		canvas := rd.canvas(template, side)
		visuals := rd.Compositor.Render(layout.Fields(side), record)
		background := template.ImageURL(side)

		if format != "png" {
			chirender.JSON(w, r, RenderResponse{
				TemplateID: id,
				Side:       side,
				Canvas:     canvas,
				Background: background,
				Visuals:    visuals,
			})
			return
		}

		img, err := rd.Rasterizer.Rasterize(r.Context(), background, canvas, visuals)
		if err != nil {
			log.WithError(err).Error("Failed to rasterise card")
			renderError(w, r, http.StatusInternalServerError, "Failed to render card")
			return
		}
		data, err := crop.EncodePNG(img)
		if err != nil {
			log.WithError(err).Error("Failed to encode card")
			renderError(w, r, http.StatusInternalServerError, "Failed to render card")
			return
		}

		log.WithField("visuals", len(visuals)).Debug("Card rendered")
		w.Header().Set("Content-Type", "image/png")
		w.Write(data) //nolint:errcheck
	}
}

func (rd *Renderer) canvas(t *core.Template, side core.Side) geometry.Size {
	w, h := t.CanvasSize(side)
	if w <= 0 || h <= 0 {
		return rd.DefaultCanvas
	}
	return geometry.Size{Width: w, Height: h}
}

func statusFor(err error) int {
	if errors.Is(err, core.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
