package storage

import "context"

// KV is the metadata store contract: arbitrary string keys to string
// values, no multi-key atomicity. Get reports absence via ok=false
// rather than an error.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// BlobStore stores binary objects addressed by string key.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
