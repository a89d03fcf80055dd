package domain

import (
	"context"
	"io"
	"time"
)

// Archive kinds. Each maps to its own key prefix, archive/<kind>/.
const (
	ArchiveKindTrades        = "trades"
	ArchiveKindOpportunities = "opportunities"
	ArchiveKindAudit         = "audit"
)

// BlobInfo is one archived object as listed by the bucket.
type BlobInfo struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// BlobWriter uploads archive objects. PutMultipart is for bodies too large
// for a single PUT.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader reads archived history back.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}

// Archiver copies trade history, opportunities and the audit log older than a
// cutoff to cold storage. Each call returns how many rows it uploaded.
type Archiver interface {
	ArchiveTrades(ctx context.Context, before time.Time) (int64, error)
	ArchiveOpportunities(ctx context.Context, before time.Time) (int64, error)
	ArchiveAudit(ctx context.Context, before time.Time) (int64, error)
}
