package storage

import (
	"context"
	"fmt"
	"strings"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the minimal S3-compatible operations the artifact sync needs.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}

// ObjectKey joins prefix and name into a bucket key.
func ObjectKey(prefix, name string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if prefix == "" {
		return name
	}
	if name == "" {
		return prefix
	}
	if strings.HasPrefix(name, prefix+"/") {
		return name
	}
	return fmt.Sprintf("%s/%s", prefix, name)
}

// RelativeKey strips prefix from key.
func RelativeKey(prefix, key string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	key = strings.TrimPrefix(key, "/")
	if prefix == "" {
		return key
	}
	return strings.TrimPrefix(strings.TrimPrefix(key, prefix), "/")
}
