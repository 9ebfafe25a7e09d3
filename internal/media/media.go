// Package media abstracts image hosting for posts and profile pictures.
package media

import "context"

// Store uploads local files to a hosting service and deletes them again
// by their public URL.
type Store interface {
	// Upload pushes the file at localPath into the given folder and
	// returns the public URL to serve it from.
	Upload(ctx context.Context, localPath, folder string) (string, error)
	// Delete removes the asset a previous Upload returned url for.
	Delete(ctx context.Context, url string) error
}
