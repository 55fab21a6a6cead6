// Package config reads service settings from the environment, after an
// optional .env file has been loaded.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type (
	Config struct {
		Listen  string
		Storage Storage
		Auth    Auth
		Editor  Editor

		// MaxUploadBytes caps asset upload bodies.
		MaxUploadBytes int64
	}

	Storage struct {
		// Type is one of memory, filesystem, sqlite or s3.
		Type           string
		LocalPath      string
		DataSourceName string
		BucketName     string
	}

	Auth struct {
		JWTSecret string

		GitHubClientID     string
		GitHubClientSecret string
		GitHubRedirectURL  string

		OIDCIssuerURL    string
		OIDCClientID     string
		OIDCClientSecret string
		OIDCRedirectURL  string
	}

	Editor struct {
		CanvasWidth       int
		CanvasHeight      int
		LabelBindingsFile string
	}
)

// Load reads .env (when present) and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		Listen: get("LISTEN", ":3002"),
		Storage: Storage{
			Type:           get("STORAGE_TYPE", "memory"),
			LocalPath:      get("LOCAL_STORAGE_PATH", "./data"),
			DataSourceName: get("DATA_SOURCE_NAME", "idcard.db"),
			BucketName:     getenv("S3_BUCKET_NAME"),
		},
		Auth: Auth{
			JWTSecret:          getenv("JWT_SECRET"),
			GitHubClientID:     getenv("GITHUB_CLIENT_ID"),
			GitHubClientSecret: getenv("GITHUB_CLIENT_SECRET"),
			GitHubRedirectURL:  getenv("GITHUB_REDIRECT_URL"),
			OIDCIssuerURL:      getenv("OIDC_ISSUER_URL"),
			OIDCClientID:       getenv("OIDC_CLIENT_ID"),
			OIDCClientSecret:   getenv("OIDC_CLIENT_SECRET"),
			OIDCRedirectURL:    getenv("OIDC_REDIRECT_URL"),
		},
		Editor: Editor{
			LabelBindingsFile: getenv("LABEL_BINDINGS_FILE"),
		},
	}

	var err error
	if cfg.Editor.CanvasWidth, err = positiveInt(get("CANVAS_DEFAULT_WIDTH", "600")); err != nil {
		return nil, fmt.Errorf("CANVAS_DEFAULT_WIDTH: %w", err)
	}
	if cfg.Editor.CanvasHeight, err = positiveInt(get("CANVAS_DEFAULT_HEIGHT", "400")); err != nil {
		return nil, fmt.Errorf("CANVAS_DEFAULT_HEIGHT: %w", err)
	}
	maxUpload, err := positiveInt(get("MAX_UPLOAD_BYTES", "10485760"))
	if err != nil {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	switch cfg.Storage.Type {
	case "memory", "filesystem", "sqlite":
	case "s3":
		if cfg.Storage.BucketName == "" {
			return nil, fmt.Errorf("S3_BUCKET_NAME must be set for s3 storage type")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_TYPE %q", cfg.Storage.Type)
	}
	return cfg, nil
}

// GitHubEnabled reports whether GitHub login is configured.
func (a Auth) GitHubEnabled() bool {
	return a.GitHubClientID != "" && a.GitHubClientSecret != ""
}

// OIDCEnabled reports whether OIDC login is configured.
func (a Auth) OIDCEnabled() bool {
	return a.OIDCIssuerURL != "" && a.OIDCClientID != ""
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}
