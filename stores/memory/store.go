package memory

import (
	"context"
	"fmt"
	"idcard-designer/core"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// memStore implements both AssetStore and TemplateStore in process memory.
type memStore struct {
	mu        sync.RWMutex
	assets    map[string]core.Asset
	templates map[string]core.Template
	layouts   map[string]core.Layout
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{
		assets:    make(map[string]core.Asset),
		templates: make(map[string]core.Template),
		layouts:   make(map[string]core.Layout),
	}
}

// FindID retrieves an asset by its ID. Part of the AssetStore interface.
func (s *memStore) FindID(ctx context.Context, id string) (*core.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := logrus.WithField("asset_id", id)
	if val, ok := s.assets[id]; ok {
		log.Debug("Asset retrieved successfully")
		return &val, nil
	}
	log.Warn("Asset with specified ID not found")
	return nil, fmt.Errorf("asset %s: %w", id, core.ErrNotFound)
}

// Create stores a new asset. Part of the AssetStore interface.
func (s *memStore) Create(ctx context.Context, asset *core.Asset) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset.ID = ulid.Make().String()
	asset.CreatedAt = time.Now()
	stored := *asset
	stored.Data = append([]byte(nil), asset.Data...)
	s.assets[asset.ID] = stored

	logrus.WithFields(logrus.Fields{
		"asset_id":    asset.ID,
		"kind":        asset.Kind,
		"data_length": len(asset.Data),
	}).Info("Asset created successfully")
	return asset.ID, nil
}

// List returns all templates, newest first. Part of the TemplateStore interface.
func (s *memStore) List(ctx context.Context) ([]*core.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	templates := make([]*core.Template, 0, len(s.templates))
	for _, t := range s.templates {
		t := t
		templates = append(templates, &t)
	}
	sort.Slice(templates, func(i, j int) bool {
		if templates[i].CreatedAt.Equal(templates[j].CreatedAt) {
			return templates[i].ID > templates[j].ID
		}
		return templates[i].CreatedAt.After(templates[j].CreatedAt)
	})

	logrus.Debugf("Listed %d templates", len(templates))
	return templates, nil
}

func (s *memStore) Get(ctx context.Context, id string) (*core.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[id]
	if !ok {
		logrus.WithField("template_id", id).Warn("Template not found")
		return nil, fmt.Errorf("template %s: %w", id, core.ErrNotFound)
	}
	return &t, nil
}

// Save creates the template when it has no ID yet, otherwise updates it.
func (s *memStore) Save(ctx context.Context, template *core.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if template.ID == "" {
		template.ID = ulid.Make().String()
		template.CreatedAt = now
	} else {
		existing, ok := s.templates[template.ID]
		if !ok {
			return fmt.Errorf("template %s: %w", template.ID, core.ErrNotFound)
		}
		template.CreatedAt = existing.CreatedAt
	}
	template.UpdatedAt = now
	s.templates[template.ID] = *template

	logrus.WithField("template_id", template.ID).Info("Template saved successfully")
	return nil
}

// Delete removes a template and its fields.
func (s *memStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[id]; !ok {
		return fmt.Errorf("template %s: %w", id, core.ErrNotFound)
	}
	delete(s.templates, id)
	delete(s.layouts, id)

	logrus.WithField("template_id", id).Info("Template deleted successfully")
	return nil
}

func (s *memStore) Layout(ctx context.Context, templateID string) (*core.Layout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.templates[templateID]; !ok {
		return nil, fmt.Errorf("template %s: %w", templateID, core.ErrNotFound)
	}
	stored := s.layouts[templateID]
	layout := &core.Layout{
		TemplateID: templateID,
		Front:      append([]core.TemplateField(nil), stored.Front...),
		Back:       append([]core.TemplateField(nil), stored.Back...),
	}
	layout.Normalize()
	return layout, nil
}

// ReplaceLayout swaps the stored fields of both sides for the given ones.
func (s *memStore) ReplaceLayout(ctx context.Context, layout *core.Layout) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[layout.TemplateID]; !ok {
		return fmt.Errorf("template %s: %w", layout.TemplateID, core.ErrNotFound)
	}
	stored := core.Layout{
		TemplateID: layout.TemplateID,
		Front:      append([]core.TemplateField(nil), layout.Front...),
		Back:       append([]core.TemplateField(nil), layout.Back...),
	}
	stored.Normalize()
	s.layouts[layout.TemplateID] = stored

	logrus.WithFields(logrus.Fields{
		"template_id": layout.TemplateID,
		"front":       len(stored.Front),
		"back":        len(stored.Back),
	}).Info("Layout replaced successfully")
	return nil
}
