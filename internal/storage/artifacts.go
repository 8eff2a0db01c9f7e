package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ArtifactSync moves model artifact files between a bucket prefix and a local directory.
type ArtifactSync struct {
	store  ObjectStorage
	prefix string
}

func NewArtifactSync(store ObjectStorage, prefix string) *ArtifactSync {
	return &ArtifactSync{store: store, prefix: prefix}
}

// Fetch downloads the named files into destDir. Every file must exist under the
// prefix before anything is written. Each file is downloaded to a temporary name
// and renamed into place.
func (s *ArtifactSync) Fetch(ctx context.Context, destDir string, files []string) ([]string, error) {
	listPrefix := ObjectKey(s.prefix, "")
	if listPrefix != "" {
		listPrefix += "/"
	}
	objects, err := s.store.ListObjects(ctx, listPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts under %s: %w", s.prefix, err)
	}
	available := make(map[string]bool, len(objects))
	for _, obj := range objects {
		available[RelativeKey(s.prefix, obj.Key)] = true
	}

	var missing []string
	for _, name := range files {
		if !available[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("artifacts missing under %s: %v", s.prefix, missing)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure artifact dir %s: %w", destDir, err)
	}

	paths := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, name := range files {
		g.Go(func() error {
			dest := filepath.Join(destDir, name)
			tmp := dest + ".download"
			if err := s.store.DownloadObject(gctx, ObjectKey(s.prefix, name), tmp); err != nil {
				return err
			}
			if err := os.Rename(tmp, dest); err != nil {
				return fmt.Errorf("failed to move %s into place: %w", dest, err)
			}
			paths[i] = dest
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(paths)
	log.Info().Str("prefix", s.prefix).Str("dir", destDir).Int("files", len(paths)).Msg("artifacts fetched")
	return paths, nil
}

// Publish uploads the named files from srcDir.
func (s *ArtifactSync) Publish(ctx context.Context, srcDir string, files []string) ([]string, error) {
	keys := make([]string, 0, len(files))
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(srcDir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read artifact %s: %w", name, err)
		}
		key := ObjectKey(s.prefix, name)
		if err := s.store.UploadObject(ctx, key, data); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	log.Info().Str("prefix", s.prefix).Int("files", len(keys)).Msg("artifacts published")
	return keys, nil
}
