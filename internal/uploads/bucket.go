package uploads

import (
	"context"
	"io"
)

// Bucket is the object-storage surface handlers and the client SDK rely on.
// Keys are slash-separated paths like "messages/<uid>/<file>".
type Bucket interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error
	Remove(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	PublicURL(key string) string
}
