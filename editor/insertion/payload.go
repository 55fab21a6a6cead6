// Package insertion turns drop and insert payloads into new template fields.
package insertion

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind is the asset kind carried by a payload.
type Kind string

const (
	KindField     Kind = "field"
	KindImage     Kind = "image"
	KindIDPicture Kind = "id_picture"
	KindSignature Kind = "signature"
)

var (
	ErrUnknownKind  = errors.New("unknown payload type")
	ErrMissingLabel = errors.New("payload has no label")
	ErrMissingImage = errors.New("payload has no imageUrl")
	ErrStalePayload = errors.New("payload timestamp is not newer than the last insert")
	ErrEmptyPayload = errors.New("empty payload")
)

type (
	// FieldRef is the sidebar entry a text payload was dragged from.
	FieldRef struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}

	// Payload is the single schema shared by drops and inserts:
	//
	//	{"type": "field"|"image"|"id_picture"|"signature",
	//	 "label": "...", "field": {"id": "...", "label": "..."},
	//	 "imageUrl": "...", "timestamp": 123}
	//
	// Timestamp is only set on inserts.
	Payload struct {
		Type      Kind      `json:"type"`
		Label     string    `json:"label"`
		Field     *FieldRef `json:"field,omitempty"`
		ImageURL  string    `json:"imageUrl,omitempty"`
		Timestamp int64     `json:"timestamp,omitempty"`
	}
)

// DecodePayload parses and validates a wire payload.
func DecodePayload(data []byte) (Payload, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Payload{}, ErrEmptyPayload
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("failed to decode payload: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Payload{}, err
	}
	return p, nil
}

// Validate checks that the payload can produce a field.
func (p Payload) Validate() error {
	switch p.Type {
	case KindField, KindImage:
	case KindIDPicture, KindSignature:
		if p.ImageURL == "" {
			return fmt.Errorf("%s: %w", p.Type, ErrMissingImage)
		}
	default:
		return fmt.Errorf("%q: %w", p.Type, ErrUnknownKind)
	}
	if p.DisplayLabel() == "" {
		return ErrMissingLabel
	}
	return nil
}

// DisplayLabel returns the label the new field is created with. Text
// payloads prefer the sidebar entry's label, which keeps the older
// lookup-by-id shape ({"type":"field","field":{...}}) working.
func (p Payload) DisplayLabel() string {
	if p.Type == KindField && p.Field != nil && strings.TrimSpace(p.Field.Label) != "" {
		return strings.TrimSpace(p.Field.Label)
	}
	return strings.TrimSpace(p.Label)
}

// IsImage reports whether the payload produces an image field.
func (k Kind) IsImage() bool {
	return k == KindImage || k == KindIDPicture || k == KindSignature
}
