package out

import "context"

// KVStore is process-wide scratch storage that survives relaunch. It is not
// transactional.
type KVStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
