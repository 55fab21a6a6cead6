package core

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a template, layout or asset does not exist.
var ErrNotFound = errors.New("not found")

type (
	// Side selects the front or back face of a card.
	Side string

	// FieldType is the content kind of a field overlay.
	FieldType string

	// Template is a reusable front/back background pair.
	// The editor only reads the natural sizes to bound the canvas.
	Template struct {
		ID               string    `json:"id"`
		Name             string    `json:"name"`
		Description      string    `json:"description"`
		FrontImageURL    string    `json:"front_image_url"`
		BackImageURL     string    `json:"back_image_url"`
		FrontImageWidth  int       `json:"front_image_width"`
		FrontImageHeight int       `json:"front_image_height"`
		BackImageWidth   int       `json:"back_image_width"`
		BackImageHeight  int       `json:"back_image_height"`
		IsActive         bool      `json:"is_active"`
		CreatedAt        time.Time `json:"created_at"`
		UpdatedAt        time.Time `json:"updated_at"`
	}

	// FieldStyle only has an effect on text fields.
	FieldStyle struct {
		FontSize       int    `json:"font_size"`
		FontFamily     string `json:"font_family"`
		FontColor      string `json:"font_color"`
		FontWeight     string `json:"font_weight"`
		FontStyle      string `json:"font_style"`
		TextDecoration string `json:"text_decoration"`
	}

	// TemplateField is one positioned overlay on a template side.
	TemplateField struct {
		ID         string    `json:"id"`
		FieldType  FieldType `json:"field_type"`
		FieldLabel string    `json:"field_label"`
		X          int       `json:"x_position"`
		Y          int       `json:"y_position"`
		Width      int       `json:"width"`
		Height     int       `json:"height"`
		FieldStyle
		Side     Side   `json:"side"`
		ImageURL string `json:"image_url,omitempty"`
	}

	// Layout holds the complete field lists of both sides of a template.
	// An empty side is an empty list, never a missing one.
	Layout struct {
		TemplateID string          `json:"template_id"`
		Front      []TemplateField `json:"front"`
		Back       []TemplateField `json:"back"`
	}

	// TemplateStore is the persistence layer for templates and their fields.
	TemplateStore interface {
		// List returns all templates, newest first.
		List(ctx context.Context) ([]*Template, error)

		Get(ctx context.Context, id string) (*Template, error)

		// Save creates the template when ID is empty, otherwise updates it.
		Save(ctx context.Context, template *Template) error

		// Delete removes the template together with its fields.
		Delete(ctx context.Context, id string) error

		// Layout returns the stored fields of both sides.
		Layout(ctx context.Context, templateID string) (*Layout, error)

		// ReplaceLayout deletes every stored field of the template and
		// inserts the given ones. There is no merge.
		ReplaceLayout(ctx context.Context, layout *Layout) error
	}
)

const (
	SideFront Side = "front"
	SideBack  Side = "back"

	FieldText  FieldType = "text"
	FieldImage FieldType = "image"

	WeightNormal = "normal"
	WeightBold   = "bold"

	StyleNormal = "normal"
	StyleItalic = "italic"

	DecorationNone      = "none"
	DecorationUnderline = "underline"
)

// Sides lists both card faces in save order.
var Sides = []Side{SideFront, SideBack}

// Valid reports whether s names a card face.
func (s Side) Valid() bool {
	return s == SideFront || s == SideBack
}

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	return t == FieldText || t == FieldImage
}

// DefaultStyle is applied to every new field.
func DefaultStyle() FieldStyle {
	return FieldStyle{
		FontSize:       14,
		FontFamily:     "Arial",
		FontColor:      "#000000",
		FontWeight:     WeightNormal,
		FontStyle:      StyleNormal,
		TextDecoration: DecorationNone,
	}
}

// CanvasSize returns the natural image size of a side.
func (t *Template) CanvasSize(side Side) (width, height int) {
	if side == SideBack {
		return t.BackImageWidth, t.BackImageHeight
	}
	return t.FrontImageWidth, t.FrontImageHeight
}

// ImageURL returns the background image of a side.
func (t *Template) ImageURL(side Side) string {
	if side == SideBack {
		return t.BackImageURL
	}
	return t.FrontImageURL
}

// Fields returns the field list of one side.
func (l *Layout) Fields(side Side) []TemplateField {
	if side == SideBack {
		return l.Back
	}
	return l.Front
}

// Normalize tags every field with its side and replaces nil lists with empty ones.
func (l *Layout) Normalize() {
	if l.Front == nil {
		l.Front = []TemplateField{}
	}
	if l.Back == nil {
		l.Back = []TemplateField{}
	}
	for i := range l.Front {
		l.Front[i].Side = SideFront
	}
	for i := range l.Back {
		l.Back[i].Side = SideBack
	}
}
