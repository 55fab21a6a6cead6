package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"idcard-designer/core"
	"log"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS assets (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	content_type TEXT,
	width INTEGER,
	height INTEGER,
	data BLOB,
	created_at DATETIME
);
CREATE TABLE IF NOT EXISTS templates (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	front_image_url TEXT,
	back_image_url TEXT,
	front_image_width INTEGER,
	front_image_height INTEGER,
	back_image_width INTEGER,
	back_image_height INTEGER,
	is_active INTEGER,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS template_fields (
	id TEXT NOT NULL,
	template_id TEXT NOT NULL,
	side TEXT NOT NULL,
	position INTEGER NOT NULL,
	field_type TEXT NOT NULL,
	field_label TEXT,
	x_position INTEGER,
	y_position INTEGER,
	width INTEGER,
	height INTEGER,
	font_size INTEGER,
	font_family TEXT,
	font_color TEXT,
	font_weight TEXT,
	font_style TEXT,
	text_decoration TEXT,
	image_url TEXT,
	PRIMARY KEY (template_id, id)
);`

// NewStore creates a new SQLite-based store.
func NewStore(dataSourceName string) *sqliteStore {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		log.Fatalf("failed to open sqlite database: %v", err)
	}
	if _, err = db.Exec(schema); err != nil {
		log.Fatalf("failed to create tables: %v", err)
	}
	return &sqliteStore{db}
}

// AssetStore implementation
func (s *sqliteStore) FindID(ctx context.Context, id string) (*core.Asset, error) {
	log := logrus.WithField("asset_id", id)
	log.Debug("Retrieving asset by ID")

	asset := core.Asset{ID: id}
	err := s.db.QueryRowContext(ctx,
		"SELECT kind, content_type, width, height, data, created_at FROM assets WHERE id = ?", id,
	).Scan(&asset.Kind, &asset.ContentType, &asset.Width, &asset.Height, &asset.Data, &asset.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("Asset with specified ID not found")
			return nil, fmt.Errorf("asset %s: %w", id, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to retrieve asset")
		return nil, err
	}
	return &asset, nil
}

func (s *sqliteStore) Create(ctx context.Context, asset *core.Asset) (string, error) {
	asset.ID = ulid.Make().String()
	asset.CreatedAt = time.Now()
	log := logrus.WithFields(logrus.Fields{
		"asset_id":    asset.ID,
		"kind":        asset.Kind,
		"data_length": len(asset.Data),
	})

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO assets (id, kind, content_type, width, height, data, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		asset.ID, asset.Kind, asset.ContentType, asset.Width, asset.Height, asset.Data, asset.CreatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to create asset")
		return "", err
	}
	log.Info("Asset created successfully")
	return asset.ID, nil
}

// TemplateStore implementation
const templateColumns = `id, name, description, front_image_url, back_image_url,
	front_image_width, front_image_height, back_image_width, back_image_height,
	is_active, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row scanner) (*core.Template, error) {
	var t core.Template
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.FrontImageURL, &t.BackImageURL,
		&t.FrontImageWidth, &t.FrontImageHeight, &t.BackImageWidth, &t.BackImageHeight,
		&t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *sqliteStore) List(ctx context.Context) ([]*core.Template, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+templateColumns+" FROM templates ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := []*core.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (s *sqliteStore) Get(ctx context.Context, id string) (*core.Template, error) {
	t, err := scanTemplate(s.db.QueryRowContext(ctx, "SELECT "+templateColumns+" FROM templates WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("template %s: %w", id, core.ErrNotFound)
		}
		return nil, err
	}
	return t, nil
}

func (s *sqliteStore) Save(ctx context.Context, t *core.Template) error {
	now := time.Now()
	log := logrus.WithField("template_id", t.ID)

	if t.ID == "" {
		t.ID = ulid.Make().String()
		t.CreatedAt = now
		t.UpdatedAt = now
		_, err := s.db.ExecContext(ctx, "INSERT INTO templates ("+templateColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			t.ID, t.Name, t.Description, t.FrontImageURL, t.BackImageURL,
			t.FrontImageWidth, t.FrontImageHeight, t.BackImageWidth, t.BackImageHeight,
			t.IsActive, t.CreatedAt, t.UpdatedAt)
		if err != nil {
			log.WithError(err).Error("Failed to create template")
			return err
		}
		logrus.WithField("template_id", t.ID).Info("Template created successfully")
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // Rollback on any error

	var created time.Time
	err = tx.QueryRowContext(ctx, "SELECT created_at FROM templates WHERE id = ?", t.ID).Scan(&created)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("template %s: %w", t.ID, core.ErrNotFound)
	}
	if err != nil {
		return err
	}

	t.CreatedAt = created
	t.UpdatedAt = now
	_, err = tx.ExecContext(ctx, `UPDATE templates SET name = ?, description = ?, front_image_url = ?, back_image_url = ?,
		front_image_width = ?, front_image_height = ?, back_image_width = ?, back_image_height = ?,
		is_active = ?, updated_at = ? WHERE id = ?`,
		t.Name, t.Description, t.FrontImageURL, t.BackImageURL,
		t.FrontImageWidth, t.FrontImageHeight, t.BackImageWidth, t.BackImageHeight,
		t.IsActive, t.UpdatedAt, t.ID)
	if err != nil {
		log.WithError(err).Error("Failed to update template")
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Info("Template updated successfully")
	return nil
}

func (s *sqliteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // Rollback on any error

	res, err := tx.ExecContext(ctx, "DELETE FROM templates WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("template %s: %w", id, core.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM template_fields WHERE template_id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) exists(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, id string) error {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM templates WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("template %s: %w", id, core.ErrNotFound)
	}
	return err
}

func (s *sqliteStore) Layout(ctx context.Context, templateID string) (*core.Layout, error) {
	if err := s.exists(ctx, s.db, templateID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, side, field_type, field_label, x_position, y_position, width, height,
		font_size, font_family, font_color, font_weight, font_style, text_decoration, image_url
		FROM template_fields WHERE template_id = ? ORDER BY side, position`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	layout := &core.Layout{TemplateID: templateID}
	for rows.Next() {
		var f core.TemplateField
		if err := rows.Scan(&f.ID, &f.Side, &f.FieldType, &f.FieldLabel, &f.X, &f.Y, &f.Width, &f.Height,
			&f.FontSize, &f.FontFamily, &f.FontColor, &f.FontWeight, &f.FontStyle, &f.TextDecoration, &f.ImageURL); err != nil {
			return nil, err
		}
		if f.Side == core.SideBack {
			layout.Back = append(layout.Back, f)
		} else {
			layout.Front = append(layout.Front, f)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	layout.Normalize()
	return layout, nil
}

// ReplaceLayout deletes every field of the template and inserts the new
// lists in one transaction.
func (s *sqliteStore) ReplaceLayout(ctx context.Context, layout *core.Layout) error {
	log := logrus.WithField("template_id", layout.TemplateID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // Rollback on any error

	if err := s.exists(ctx, tx, layout.TemplateID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM template_fields WHERE template_id = ?", layout.TemplateID); err != nil {
		log.WithError(err).Error("Failed to delete fields")
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO template_fields (id, template_id, side, position, field_type, field_label,
		x_position, y_position, width, height, font_size, font_family, font_color, font_weight, font_style,
		text_decoration, image_url) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, side := range core.Sides {
		for i, f := range layout.Fields(side) {
			_, err := stmt.ExecContext(ctx, f.ID, layout.TemplateID, side, i, f.FieldType, f.FieldLabel,
				f.X, f.Y, f.Width, f.Height, f.FontSize, f.FontFamily, f.FontColor, f.FontWeight, f.FontStyle,
				f.TextDecoration, f.ImageURL)
			if err != nil {
				log.WithError(err).Error("Failed to insert field")
				return fmt.Errorf("failed to insert field %s: %w", f.ID, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"front": len(layout.Front),
		"back":  len(layout.Back),
	}).Info("Layout replaced successfully")
	return nil
}
