package render

import (
	"fmt"
	"idcard-designer/core"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

type faceKey struct {
	mono   bool
	bold   bool
	italic bool
	size   int
}

// faceCache hands out font faces for field styles. Browser font families
// map onto the Go fonts: Courier New to Go Mono, everything else to Go.
type faceCache struct {
	mu    sync.Mutex
	fonts map[faceKey]*opentype.Font
	faces map[faceKey]font.Face
}

func newFaceCache() *faceCache {
	return &faceCache{
		fonts: make(map[faceKey]*opentype.Font),
		faces: make(map[faceKey]font.Face),
	}
}

func ttfFor(k faceKey) []byte {
	switch {
	case k.mono && k.bold && k.italic:
		return gomonobolditalic.TTF
	case k.mono && k.bold:
		return gomonobold.TTF
	case k.mono && k.italic:
		return gomonoitalic.TTF
	case k.mono:
		return gomono.TTF
	case k.bold && k.italic:
		return gobolditalic.TTF
	case k.bold:
		return gobold.TTF
	case k.italic:
		return goitalic.TTF
	default:
		return goregular.TTF
	}
}

func (c *faceCache) face(s core.FieldStyle) (font.Face, error) {
	k := faceKey{
		mono:   s.FontFamily == "Courier New",
		bold:   s.FontWeight == core.WeightBold,
		italic: s.FontStyle == core.StyleItalic,
		size:   s.FontSize,
	}
	if k.size <= 0 {
		k.size = core.DefaultStyle().FontSize
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.faces[k]; ok {
		return f, nil
	}

	fk := faceKey{mono: k.mono, bold: k.bold, italic: k.italic}
	fnt, ok := c.fonts[fk]
	if !ok {
		var err error
		fnt, err = opentype.Parse(ttfFor(k))
		if err != nil {
			return nil, fmt.Errorf("failed to parse font: %w", err)
		}
		c.fonts[fk] = fnt
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    float64(k.size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	c.faces[k] = face
	return face, nil
}
