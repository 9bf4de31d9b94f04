package backup

import (
	"context"
	"io"
)

// ObjectStore provides the object storage operations the backup service
// needs. This interface enables mocking and testing of storage functionality.
type ObjectStore interface {
	// Upload copies r into bucket/object, replacing any existing object.
	Upload(ctx context.Context, bucket, object string, r io.Reader) error

	// Download copies bucket/object into w.
	Download(ctx context.Context, bucket, object string, w io.Writer) error
}
