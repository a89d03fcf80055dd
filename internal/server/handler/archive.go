package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/cardanodash/internal/domain"
	"github.com/alanyoungcy/cardanodash/internal/pipeline"
)

// ArchiveRunner runs one archive pass.
type ArchiveRunner interface {
	Run(ctx context.Context) (pipeline.ArchiveReport, error)
}

// ArchiveLister lists uploaded archive objects.
type ArchiveLister interface {
	List(ctx context.Context, prefix string) ([]domain.BlobInfo, error)
}

var archiveKinds = map[string]bool{
	domain.ArchiveKindTrades:        true,
	domain.ArchiveKindOpportunities: true,
	domain.ArchiveKindAudit:         true,
}

// ArchiveHandler triggers the cold-storage archive and lists its output.
type ArchiveHandler struct {
	archiver ArchiveRunner
	objects  ArchiveLister
	logger   *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler. objects may be nil, in which
// case listing answers 503.
func NewArchiveHandler(archiver ArchiveRunner, objects ArchiveLister, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{archiver: archiver, objects: objects, logger: logger}
}

// TriggerArchive runs the archive synchronously and returns the counts. A
// partial failure still returns the counts of what was archived.
// POST /api/archive
func (h *ArchiveHandler) TriggerArchive(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "handler: archive trigger requested")
	report, err := h.archiver.Run(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: archive run failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":  "archive run failed",
			"report": report,
		})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ListArchives returns uploaded objects, newest first, optionally narrowed
// to one kind.
// GET /api/archive?kind=trades
func (h *ArchiveHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	if h.objects == nil {
		writeError(w, http.StatusServiceUnavailable, "archive storage not configured")
		return
	}
	prefix := "archive/"
	if kind := r.URL.Query().Get("kind"); kind != "" {
		if !archiveKinds[kind] {
			writeError(w, http.StatusBadRequest, "kind must be trades, opportunities or audit")
			return
		}
		prefix += kind + "/"
	}

	objects, err := h.objects.List(r.Context(), prefix)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list archives failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "list archives failed")
		return
	}
	if objects == nil {
		objects = []domain.BlobInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"objects": objects})
}
