package catalog

import "context"

// Store persists the ordered sequence of catalog records. Implementations
// must round-trip records exactly, including order.
//
// Load returns (nil, nil) when no catalog has been persisted yet - a missing
// blob is a fresh start, not an error. Save overwrites the persisted catalog
// wholesale.
type Store interface {
	Load(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, records []Record) error
}
