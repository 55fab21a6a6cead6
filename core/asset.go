package core

import (
	"context"
	"strings"
	"time"
)

type (
	// AssetKind tells where an asset came from.
	AssetKind string

	// Asset is image data backing a template background or an image field.
	Asset struct {
		ID          string    `json:"id"`
		Kind        AssetKind `json:"kind"`
		ContentType string    `json:"content_type"`
		Width       int       `json:"width"`
		Height      int       `json:"height"`
		Data        []byte    `json:"data,omitempty"`
		CreatedAt   time.Time `json:"created_at"`
	}

	AssetStore interface {
		FindID(ctx context.Context, id string) (*Asset, error)
		// Create stores the asset and returns its new id.
		Create(ctx context.Context, asset *Asset) (string, error)
	}
)

const (
	AssetTemplate  AssetKind = "template"
	AssetImage     AssetKind = "image"
	AssetIDPicture AssetKind = "id_picture"
	AssetSignature AssetKind = "signature"
	AssetCrop      AssetKind = "crop"
)

// ValidAssetKind reports whether k is one of the known asset kinds.
func ValidAssetKind(k AssetKind) bool {
	switch k {
	case AssetTemplate, AssetImage, AssetIDPicture, AssetSignature, AssetCrop:
		return true
	}
	return false
}

// AssetPathPrefix is the URL path under which assets are served.
const AssetPathPrefix = "/api/assets/"

// AssetURL returns the image_url that refers to a stored asset.
func AssetURL(id string) string {
	return AssetPathPrefix + id
}

// AssetIDFromURL extracts the asset id from an image_url produced by AssetURL.
func AssetIDFromURL(ref string) (string, bool) {
	id, ok := strings.CutPrefix(ref, AssetPathPrefix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
