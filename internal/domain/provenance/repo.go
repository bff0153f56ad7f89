package provenance

import "context"

// Repository persists provenance records. A nil Repository means audit
// persistence is disabled; callers must treat it as optional.
type Repository interface {
	Create(ctx context.Context, r *Record) error
	List(ctx context.Context, limit int) ([]*Record, error)
}
