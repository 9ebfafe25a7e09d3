package handler

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/sociable/sociable/internal/apperror"
)

// maxUploadBytes caps multipart memory; larger parts spill to disk.
const maxUploadBytes = 10 << 20

// saveUpload copies the named multipart file part to a temp file and
// returns its path with a cleanup func. The caller always runs cleanup:
// the media store reads the file during upload, after which it is waste.
func saveUpload(r *http.Request, field string) (string, func(), error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", nil, apperror.ValidationFailed(field, "invalid multipart form")
	}

	part, header, err := r.FormFile(field)
	if err != nil {
		return "", nil, apperror.ValidationFailed(field, fmt.Sprintf("file %q is required", field))
	}
	defer part.Close()

	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		return "", nil, fmt.Errorf("handler: creating temp file: %w", err)
	}
	if _, err := io.Copy(tmp, part); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("handler: saving upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("handler: closing temp file: %w", err)
	}

	path := tmp.Name()
	return path, func() { os.Remove(path) }, nil
}
