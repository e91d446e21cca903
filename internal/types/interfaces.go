// internal/types/interfaces.go
package types

import "context"

// SnapshotSource performs the one-time point-in-time fetch.
type SnapshotSource interface {
	Fetch(ctx context.Context) (*Batch, error)
}

// BatchIngester accepts deliveries from any source. Push transports call it
// whenever data arrives.
type BatchIngester interface {
	IngestBatch(batch *Batch)
}
