// Package styling holds the pure mutation helpers for a text field's style
// block. Every helper returns a new FieldStyle.
package styling

import (
	"idcard-designer/core"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	MinFontSize = 8
	MaxFontSize = 72
)

// FontFamilies are the families offered to operators.
var FontFamilies = []string{
	"Arial",
	"Times New Roman",
	"Helvetica",
	"Georgia",
	"Verdana",
	"Courier New",
	"Impact",
}

// SetFontSize clamps size to [MinFontSize, MaxFontSize].
func SetFontSize(s core.FieldStyle, size int) core.FieldStyle {
	s.FontSize = max(MinFontSize, min(MaxFontSize, size))
	return s
}

// SetColor sets a hex colour, normalised to lower-case #rrggbb. Colours
// that do not parse leave the style unchanged.
func SetColor(s core.FieldStyle, hex string) core.FieldStyle {
	c, err := colorful.Hex(strings.TrimSpace(hex))
	if err != nil {
		return s
	}
	s.FontColor = c.Hex()
	return s
}

// SetFontFamily sets the family; blank names are ignored.
func SetFontFamily(s core.FieldStyle, family string) core.FieldStyle {
	if family = strings.TrimSpace(family); family != "" {
		s.FontFamily = family
	}
	return s
}

func ToggleBold(s core.FieldStyle) core.FieldStyle {
	if s.FontWeight == core.WeightBold {
		s.FontWeight = core.WeightNormal
	} else {
		s.FontWeight = core.WeightBold
	}
	return s
}

func ToggleItalic(s core.FieldStyle) core.FieldStyle {
	if s.FontStyle == core.StyleItalic {
		s.FontStyle = core.StyleNormal
	} else {
		s.FontStyle = core.StyleItalic
	}
	return s
}

func ToggleUnderline(s core.FieldStyle) core.FieldStyle {
	if s.TextDecoration == core.DecorationUnderline {
		s.TextDecoration = core.DecorationNone
	} else {
		s.TextDecoration = core.DecorationUnderline
	}
	return s
}

// Op is a style mutation as sent by editor clients.
type Op struct {
	// Kind is one of font_size, color, font_family, bold, italic, underline.
	Kind  string `json:"kind"`
	Value string `json:"value,omitempty"`
	Size  int    `json:"size,omitempty"`
}

// Apply runs op against s. Unknown kinds return s unchanged and false.
func Apply(s core.FieldStyle, op Op) (core.FieldStyle, bool) {
	switch op.Kind {
	case "font_size":
		return SetFontSize(s, op.Size), true
	case "color":
		return SetColor(s, op.Value), true
	case "font_family":
		return SetFontFamily(s, op.Value), true
	case "bold":
		return ToggleBold(s), true
	case "italic":
		return ToggleItalic(s), true
	case "underline":
		return ToggleUnderline(s), true
	}
	return s, false
}
