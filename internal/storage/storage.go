package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrObjectNotFound = errors.New("storage: object not found")

// Storage defines the interface for poster storage operations
type Storage interface {
	// Store saves an object under the event and returns its storage key
	Store(ctx context.Context, eventID uuid.UUID, filename string, content io.Reader, contentType string) (string, error)

	// Retrieve gets an object by storage key
	Retrieve(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an object by storage key
	Delete(ctx context.Context, key string) error

	// PublicURL returns the URL clients use to fetch the object
	PublicURL(key string) string

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)
}

type FileMetadata struct {
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType"`
	LastModified time.Time `json:"lastModified"`
}

type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
)

// objectKey builds posters/<event>/<year>/<month>/<uuid>_<name>.
func objectKey(eventID uuid.UUID, filename string, now time.Time) string {
	return strings.Join([]string{
		"posters",
		eventID.String(),
		now.Format("2006"),
		now.Format("01"),
		uuid.NewString() + "_" + sanitizeFilename(filename),
	}, "/")
}

var filenameReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", "..", "_", ":", "_", "*", "_",
	"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
)

func sanitizeFilename(filename string) string {
	filename = filenameReplacer.Replace(filename)
	if filename == "" {
		return "poster"
	}
	return filename
}
