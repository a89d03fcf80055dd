package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

const jsonlContentType = "application/x-ndjson"

// multipartThreshold switches uploads to the transfer manager.
const multipartThreshold = 4 * minPartSize

// TradeSource lists trade history older than a cutoff.
type TradeSource interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error)
}

// OpportunitySource lists opportunities older than a cutoff.
type OpportunitySource interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.ArbitrageOpportunity, error)
}

// ObjectChecker reports whether an object key is taken.
type ObjectChecker interface {
	Exists(ctx context.Context, path string) (bool, error)
}

// ArchiveImpl implements domain.Archiver. It copies rows to JSONL objects and
// records each upload in the audit log; it never deletes source rows.
type ArchiveImpl struct {
	writer  domain.BlobWriter
	checker ObjectChecker
	trades  TradeSource
	opps    OpportunitySource
	audit   domain.AuditStore
}

// NewArchiver creates an archiver. checker may be nil, in which case an
// existing object for the same month is overwritten.
func NewArchiver(writer domain.BlobWriter, checker ObjectChecker, trades TradeSource, opps OpportunitySource, audit domain.AuditStore) *ArchiveImpl {
	return &ArchiveImpl{
		writer:  writer,
		checker: checker,
		trades:  trades,
		opps:    opps,
		audit:   audit,
	}
}

// ArchiveTrades uploads trades older than before to archive/trades/YYYY-MM.jsonl.
func (a *ArchiveImpl) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	rows, err := a.trades.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades query: %w", err)
	}
	return archiveRows(ctx, a, domain.ArchiveKindTrades, before, rows)
}

// ArchiveOpportunities uploads opportunities older than before.
func (a *ArchiveImpl) ArchiveOpportunities(ctx context.Context, before time.Time) (int64, error) {
	rows, err := a.opps.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities query: %w", err)
	}
	return archiveRows(ctx, a, domain.ArchiveKindOpportunities, before, rows)
}

// ArchiveAudit uploads audit entries older than before.
func (a *ArchiveImpl) ArchiveAudit(ctx context.Context, before time.Time) (int64, error) {
	rows, err := a.audit.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit query: %w", err)
	}
	return archiveRows(ctx, a, domain.ArchiveKindAudit, before, rows)
}

func archiveRows[T any](ctx context.Context, a *ArchiveImpl, kind string, before time.Time, rows []T) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(rows)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive %s marshal: %w", kind, err)
	}

	path, err := a.freePath(ctx, kind, before)
	if err != nil {
		return 0, err
	}

	if int64(len(buf)) >= multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), jsonlContentType)
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive %s upload: %w", kind, err)
	}

	count := int64(len(rows))
	if err := a.audit.Log(ctx, "archive."+kind, map[string]any{
		"path":   path,
		"count":  count,
		"bytes":  len(buf),
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive %s audit log: %w", kind, err)
	}
	return count, nil
}

// freePath returns archivePath, or the first numbered variant of it not yet
// taken when a run for the same month already uploaded.
func (a *ArchiveImpl) freePath(ctx context.Context, kind string, before time.Time) (string, error) {
	base := archivePath(kind, before)
	if a.checker == nil {
		return base, nil
	}
	path := base
	for n := 2; n < 1000; n++ {
		taken, err := a.checker.Exists(ctx, path)
		if err != nil {
			return "", fmt.Errorf("s3blob: archive %s: %w", kind, err)
		}
		if !taken {
			return path, nil
		}
		path = fmt.Sprintf("archive/%s/%s-%d.jsonl", kind, before.Format("2006-01"), n)
	}
	return "", fmt.Errorf("s3blob: archive %s: no free key under %s", kind, base)
}

// archivePath is partitioned by the cutoff's year and month:
//
//	archive/trades/2025-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL writes one compact JSON object per line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

var _ domain.Archiver = (*ArchiveImpl)(nil)
