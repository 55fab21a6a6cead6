package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"idcard-designer/core"
	"io"
	"log"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// objectAPI is the part of the S3 client the store uses.
type objectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// s3Store keeps asset bytes as raw objects (assets/<id>) with their
// attributes in object metadata, and templates and layouts as JSON
// (templates/<id>.json, layouts/<id>.json).
type s3Store struct {
	s3Client objectAPI
	bucket   string
}

// NewStore creates a new S3-based store.
func NewStore(bucketName string) *s3Store {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}
	return newStore(s3.NewFromConfig(cfg), bucketName)
}

func newStore(client objectAPI, bucketName string) *s3Store {
	return &s3Store{s3Client: client, bucket: bucketName}
}

// key builds an object key, rejecting ids that are paths.
func key(prefix, id, ext string) (string, error) {
	if id == "" || id == "." || id == ".." || path.Base(id) != id {
		return "", fmt.Errorf("invalid id %q: %w", id, core.ErrNotFound)
	}
	return path.Join(prefix, id+ext), nil
}

func (s *s3Store) get(ctx context.Context, objectKey string) (*s3.GetObjectOutput, []byte, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, nil, fmt.Errorf("%s: %w", objectKey, core.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("failed to get %s: %w", objectKey, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", objectKey, err)
	}
	return resp, data, nil
}

func (s *s3Store) getJSON(ctx context.Context, objectKey string, v any) error {
	_, data, err := s.get(ctx, objectKey)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", objectKey, err)
	}
	return nil
}

func (s *s3Store) putJSON(ctx context.Context, objectKey string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", objectKey, err)
	}
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", objectKey, err)
	}
	return nil
}

// AssetStore implementation
func (s *s3Store) FindID(ctx context.Context, id string) (*core.Asset, error) {
	objectKey, err := key("assets", id, "")
	if err != nil {
		return nil, err
	}
	resp, data, err := s.get(ctx, objectKey)
	if err != nil {
		return nil, err
	}

	asset := &core.Asset{
		ID:          id,
		Kind:        core.AssetKind(resp.Metadata["kind"]),
		ContentType: aws.ToString(resp.ContentType),
		Data:        data,
	}
	asset.Width, _ = strconv.Atoi(resp.Metadata["width"])
	asset.Height, _ = strconv.Atoi(resp.Metadata["height"])
	if created, err := time.Parse(time.RFC3339Nano, resp.Metadata["created-at"]); err == nil {
		asset.CreatedAt = created
	}
	return asset, nil
}

func (s *s3Store) Create(ctx context.Context, asset *core.Asset) (string, error) {
	asset.ID = ulid.Make().String()
	asset.CreatedAt = time.Now()
	objectKey, _ := key("assets", asset.ID, "")

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(asset.Data),
		ContentType: aws.String(asset.ContentType),
		Metadata: map[string]string{
			"kind":       string(asset.Kind),
			"width":      strconv.Itoa(asset.Width),
			"height":     strconv.Itoa(asset.Height),
			"created-at": asset.CreatedAt.Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"asset_id":    asset.ID,
		"kind":        asset.Kind,
		"data_length": len(asset.Data),
	}).Info("Asset created successfully")
	return asset.ID, nil
}

// TemplateStore implementation
func (s *s3Store) List(ctx context.Context) ([]*core.Template, error) {
	templates := []*core.Template{}
	paginator := s3.NewListObjectsV2Paginator(s.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String("templates/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list templates: %w", err)
		}
		for _, object := range page.Contents {
			objectKey := aws.ToString(object.Key)
			if !strings.HasSuffix(objectKey, ".json") {
				continue
			}
			var t core.Template
			if err := s.getJSON(ctx, objectKey, &t); err != nil {
				logrus.WithError(err).Warnf("Failed to read template %s, skipping", objectKey)
				continue
			}
			templates = append(templates, &t)
		}
	}
	sort.Slice(templates, func(i, j int) bool {
		if templates[i].CreatedAt.Equal(templates[j].CreatedAt) {
			return templates[i].ID > templates[j].ID
		}
		return templates[i].CreatedAt.After(templates[j].CreatedAt)
	})
	return templates, nil
}

func (s *s3Store) Get(ctx context.Context, id string) (*core.Template, error) {
	objectKey, err := key("templates", id, ".json")
	if err != nil {
		return nil, err
	}
	var t core.Template
	if err := s.getJSON(ctx, objectKey, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *s3Store) Save(ctx context.Context, t *core.Template) error {
	now := time.Now()
	if t.ID == "" {
		t.ID = ulid.Make().String()
		t.CreatedAt = now
	} else {
		existing, err := s.Get(ctx, t.ID)
		if err != nil {
			return err
		}
		t.CreatedAt = existing.CreatedAt
	}
	t.UpdatedAt = now

	objectKey, err := key("templates", t.ID, ".json")
	if err != nil {
		return err
	}
	if err := s.putJSON(ctx, objectKey, t); err != nil {
		return err
	}
	logrus.WithField("template_id", t.ID).Info("Template saved successfully")
	return nil
}

func (s *s3Store) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	for _, prefix := range []string{"layouts", "templates"} {
		objectKey, _ := key(prefix, id, ".json")
		_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(objectKey),
		})
		if err != nil {
			return fmt.Errorf("failed to delete %s: %w", objectKey, err)
		}
	}
	logrus.WithField("template_id", id).Info("Template deleted successfully")
	return nil
}

func (s *s3Store) Layout(ctx context.Context, templateID string) (*core.Layout, error) {
	if _, err := s.Get(ctx, templateID); err != nil {
		return nil, err
	}
	objectKey, _ := key("layouts", templateID, ".json")
	layout := &core.Layout{TemplateID: templateID}
	if err := s.getJSON(ctx, objectKey, layout); err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}
	layout.Normalize()
	return layout, nil
}

// ReplaceLayout overwrites the layout object. A single PUT replaces both
// sides at once.
func (s *s3Store) ReplaceLayout(ctx context.Context, layout *core.Layout) error {
	if _, err := s.Get(ctx, layout.TemplateID); err != nil {
		return err
	}
	stored := *layout
	stored.Normalize()

	objectKey, _ := key("layouts", layout.TemplateID, ".json")
	if err := s.putJSON(ctx, objectKey, &stored); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"template_id": layout.TemplateID,
		"front":       len(stored.Front),
		"back":        len(stored.Back),
	}).Info("Layout replaced successfully")
	return nil
}
