package media

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/sociable/sociable/internal/apperror"
)

var _ Store = (*CloudinaryStore)(nil)

// CloudinaryStore hosts images on Cloudinary.
type CloudinaryStore struct {
	client *cloudinary.Cloudinary
	logger *slog.Logger
}

func NewCloudinaryStore(cloudName, apiKey, apiSecret string, logger *slog.Logger) (*CloudinaryStore, error) {
	client, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("media: creating cloudinary client: %w", err)
	}
	return &CloudinaryStore{client: client, logger: logger}, nil
}

func (s *CloudinaryStore) Upload(ctx context.Context, localPath, folder string) (string, error) {
	resp, err := s.client.Upload.Upload(ctx, localPath, uploader.UploadParams{
		Folder: folder,
	})
	if err != nil {
		return "", apperror.Upstream("uploading image", err)
	}
	if resp.Error.Message != "" {
		return "", apperror.Upstream("uploading image",
			fmt.Errorf("cloudinary: %s", resp.Error.Message))
	}

	s.logger.Debug("image uploaded",
		slog.String("public_id", resp.PublicID),
		slog.String("url", resp.SecureURL))
	return resp.SecureURL, nil
}

func (s *CloudinaryStore) Delete(ctx context.Context, assetURL string) error {
	publicID, err := publicIDFromURL(assetURL)
	if err != nil {
		return err
	}

	resp, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID: publicID,
	})
	if err != nil {
		return apperror.Upstream("deleting image", err)
	}
	// "not found" is fine here: the asset is gone either way.
	if resp.Result != "ok" && resp.Result != "not found" {
		return apperror.Upstream("deleting image",
			fmt.Errorf("cloudinary: destroy returned %q", resp.Result))
	}

	s.logger.Debug("image deleted", slog.String("public_id", publicID))
	return nil
}

// versionSegment matches the "v1234567890" path element Cloudinary puts
// between the delivery type and the public id.
var versionSegment = regexp.MustCompile(`^v\d+$`)

// publicIDFromURL recovers the public id from a delivery URL such as
// https://res.cloudinary.com/demo/image/upload/v1570979139/sociable/pic.jpg
// (public id "sociable/pic").
func publicIDFromURL(assetURL string) (string, error) {
	u, err := url.Parse(assetURL)
	if err != nil {
		return "", fmt.Errorf("media: parsing asset url %q: %w", assetURL, err)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if seg != "upload" || i == len(segments)-1 {
			continue
		}
		rest := segments[i+1:]
		if versionSegment.MatchString(rest[0]) {
			rest = rest[1:]
		}
		if len(rest) == 0 {
			break
		}
		id := strings.Join(rest, "/")
		return strings.TrimSuffix(id, path.Ext(id)), nil
	}
	return "", fmt.Errorf("media: no public id in asset url %q", assetURL)
}
