package stores

import (
	"idcard-designer/config"
	"idcard-designer/core"
	"idcard-designer/stores/aws"
	"idcard-designer/stores/filesystem"
	"idcard-designer/stores/memory"
	"idcard-designer/stores/sqlite"

	"github.com/sirupsen/logrus"
)

// Store is a union interface that includes all store types.
type Store interface {
	core.AssetStore
	core.TemplateStore
}

func GetStore(cfg config.Storage) Store {
	var store Store

	storageField := logrus.Fields{
		"storageType": cfg.Type,
	}

	switch cfg.Type {
	case "filesystem":
		storageField["basePath"] = cfg.LocalPath
		store = filesystem.NewStore(cfg.LocalPath)
	case "sqlite":
		storageField["dataSourceName"] = cfg.DataSourceName
		store = sqlite.NewStore(cfg.DataSourceName)
	case "s3":
		if cfg.BucketName == "" {
			logrus.Fatal("S3_BUCKET_NAME environment variable must be set for s3 storage type")
		}
		storageField["bucketName"] = cfg.BucketName
		store = aws.NewStore(cfg.BucketName)
	default:
		store = memory.NewStore()
		storageField["storageType"] = "in-memory"
	}
	logrus.WithFields(storageField).Info("Use storage")
	return store
}
