package audit

import "context"

// Store persists audit events append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByCredential(ctx context.Context, id uint64) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
