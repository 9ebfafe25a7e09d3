package media

import (
	"context"
	"log/slog"
	"path/filepath"
)

var _ Store = (*NoopStore)(nil)

// NoopStore stands in when no Cloudinary credentials are configured, for
// local development. Uploads "succeed" with a placeholder URL and deletes
// do nothing.
type NoopStore struct {
	logger *slog.Logger
}

func NewNoopStore(logger *slog.Logger) *NoopStore {
	return &NoopStore{logger: logger}
}

func (s *NoopStore) Upload(_ context.Context, localPath, folder string) (string, error) {
	url := "https://media.invalid/" + folder + "/" + filepath.Base(localPath)
	s.logger.Warn("media store not configured, returning placeholder url",
		slog.String("url", url))
	return url, nil
}

func (s *NoopStore) Delete(_ context.Context, url string) error {
	s.logger.Warn("media store not configured, skipping delete",
		slog.String("url", url))
	return nil
}
