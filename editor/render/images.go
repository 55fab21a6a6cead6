package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"idcard-designer/core"
	"image"
	"strings"

	// Formats accepted for backgrounds and image fields.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var ErrUnsupportedRef = errors.New("unsupported image reference")

// ImageSource opens the image behind an image_url.
type ImageSource interface {
	Open(ctx context.Context, ref string) (image.Image, error)
}

// AssetSource resolves data: URLs and references to stored assets.
type AssetSource struct {
	Assets core.AssetStore
}

func (s AssetSource) Open(ctx context.Context, ref string) (image.Image, error) {
	if strings.HasPrefix(ref, "data:") {
		data, err := DecodeDataURL(ref)
		if err != nil {
			return nil, err
		}
		return Decode(data)
	}
	id, ok := core.AssetIDFromURL(ref)
	if !ok || s.Assets == nil {
		return nil, fmt.Errorf("%q: %w", ref, ErrUnsupportedRef)
	}
	asset, err := s.Assets.FindID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load asset %s: %w", id, err)
	}
	return Decode(asset.Data)
}

// Decode decodes any registered image format.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// DecodeConfig returns the natural size and format of an encoded image.
func DecodeConfig(data []byte) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", fmt.Errorf("failed to decode image header: %w", err)
	}
	return cfg, format, nil
}

// DecodeDataURL returns the payload of a base64 data: URL.
func DecodeDataURL(ref string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("data url: %w", ErrUnsupportedRef)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode data url: %w", err)
	}
	return data, nil
}
