package objectstore

import "context"

// Store is the key-value blob store the render fleet coordinates through.
// Keys are namespaced by job id ("{job_id}/..."). List returns the matching
// keys together with their count, since the completion check cares about
// the count alone.
type Store interface {
	Put(ctx context.Context, bucket, key, localPath string) error
	Get(ctx context.Context, bucket, key, localPath string) error
	List(ctx context.Context, bucket, prefix string) ([]string, int, error)
}
