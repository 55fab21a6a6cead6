package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"idcard-designer/core"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// fsStore keeps one JSON file per asset, template and layout:
//
//	<base>/assets/<id>.json
//	<base>/templates/<id>.json
//	<base>/layouts/<template id>.json
type fsStore struct {
	basePath string
	mu       sync.RWMutex
}

var dirs = []string{"assets", "templates", "layouts"}

// NewStore creates a new filesystem-based store.
func NewStore(basePath string) *fsStore {
	for _, dir := range dirs {
		if err := os.MkdirAll(filepath.Join(basePath, dir), 0755); err != nil {
			log.Fatalf("failed to create base directory: %v", err)
		}
	}
	return &fsStore{basePath: basePath}
}

func (s *fsStore) path(dir, id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", fmt.Errorf("invalid id %q: %w", id, core.ErrNotFound)
	}
	return filepath.Join(s.basePath, dir, id+".json"), nil
}

func (s *fsStore) read(dir, id string, v any) error {
	filePath, err := s.path(dir, id)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s %s: %w", strings.TrimSuffix(dir, "s"), id, core.ErrNotFound)
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filePath, err)
	}
	return nil
}

// write replaces the file through a rename so readers never see a partial file.
func (s *fsStore) write(dir, id string, v any) error {
	filePath, err := s.path(dir, id)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filePath)
}

// AssetStore implementation
func (s *fsStore) FindID(ctx context.Context, id string) (*core.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := logrus.WithField("asset_id", id)
	var asset core.Asset
	if err := s.read("assets", id, &asset); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			log.Warn("Asset with specified ID not found")
		} else {
			log.WithError(err).Error("Failed to retrieve asset")
		}
		return nil, err
	}
	log.Debug("Asset retrieved successfully")
	return &asset, nil
}

func (s *fsStore) Create(ctx context.Context, asset *core.Asset) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset.ID = ulid.Make().String()
	asset.CreatedAt = time.Now()
	log := logrus.WithFields(logrus.Fields{
		"asset_id":    asset.ID,
		"kind":        asset.Kind,
		"data_length": len(asset.Data),
	})

	if err := s.write("assets", asset.ID, asset); err != nil {
		log.WithError(err).Error("Failed to create asset")
		return "", err
	}
	log.Info("Asset created successfully")
	return asset.ID, nil
}

// TemplateStore implementation
func (s *fsStore) List(ctx context.Context) ([]*core.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dirPath := filepath.Join(s.basePath, "templates")
	files, err := os.ReadDir(dirPath)
	if err != nil {
		logrus.WithError(err).WithField("path", dirPath).Error("Failed to read templates directory")
		return nil, err
	}

	templates := make([]*core.Template, 0, len(files))
	for _, file := range files {
		id, ok := strings.CutSuffix(file.Name(), ".json")
		if file.IsDir() || !ok {
			continue
		}
		var t core.Template
		if err := s.read("templates", id, &t); err != nil {
			logrus.WithError(err).Warnf("Failed to read template file %s, skipping", file.Name())
			continue
		}
		templates = append(templates, &t)
	}
	sort.Slice(templates, func(i, j int) bool {
		if templates[i].CreatedAt.Equal(templates[j].CreatedAt) {
			return templates[i].ID > templates[j].ID
		}
		return templates[i].CreatedAt.After(templates[j].CreatedAt)
	})
	return templates, nil
}

func (s *fsStore) Get(ctx context.Context, id string) (*core.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t core.Template
	if err := s.read("templates", id, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *fsStore) Save(ctx context.Context, t *core.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if t.ID == "" {
		t.ID = ulid.Make().String()
		t.CreatedAt = now
	} else {
		var existing core.Template
		if err := s.read("templates", t.ID, &existing); err != nil {
			return err
		}
		t.CreatedAt = existing.CreatedAt
	}
	t.UpdatedAt = now

	log := logrus.WithField("template_id", t.ID)
	if err := s.write("templates", t.ID, t); err != nil {
		log.WithError(err).Error("Failed to save template")
		return err
	}
	log.Info("Template saved successfully")
	return nil
}

func (s *fsStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	filePath, err := s.path("templates", id)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("template %s: %w", id, core.ErrNotFound)
		}
		return err
	}
	layoutPath, _ := s.path("layouts", id)
	if err := os.Remove(layoutPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	logrus.WithField("template_id", id).Info("Template deleted successfully")
	return nil
}

func (s *fsStore) Layout(ctx context.Context, templateID string) (*core.Layout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t core.Template
	if err := s.read("templates", templateID, &t); err != nil {
		return nil, err
	}
	layout := &core.Layout{TemplateID: templateID}
	if err := s.read("layouts", templateID, layout); err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}
	layout.Normalize()
	return layout, nil
}

func (s *fsStore) ReplaceLayout(ctx context.Context, layout *core.Layout) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var t core.Template
	if err := s.read("templates", layout.TemplateID, &t); err != nil {
		return err
	}
	stored := *layout
	stored.Normalize()

	log := logrus.WithField("template_id", layout.TemplateID)
	if err := s.write("layouts", layout.TemplateID, &stored); err != nil {
		log.WithError(err).Error("Failed to replace layout")
		return err
	}
	log.WithFields(logrus.Fields{
		"front": len(stored.Front),
		"back":  len(stored.Back),
	}).Info("Layout replaced successfully")
	return nil
}
