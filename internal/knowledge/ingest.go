package knowledge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Invalidator drops cached state derived from the knowledge source.
type Invalidator interface {
	Invalidate()
}

// Upload is a document submitted for ingestion.
type Upload struct {
	FileName   string
	Data       []byte
	UploadedBy string
}

// Ingestor adds documents to the knowledge source.
type Ingestor struct {
	index             Index
	knowledgeSourceID string
	sessions          Invalidator
	ledger            Ledger
	now               func() time.Time
	logger            *slog.Logger
}

// NewIngestor creates an ingestor. sessions and ledger may be nil.
func NewIngestor(index Index, knowledgeSourceID string, sessions Invalidator, ledger Ledger) *Ingestor {
	return &Ingestor{
		index:             index,
		knowledgeSourceID: knowledgeSourceID,
		sessions:          sessions,
		ledger:            ledger,
		now:               time.Now,
		logger:            slog.Default().With("component", "ingestor"),
	}
}

// Ingest uploads the document, attaches it to the knowledge source and
// invalidates the cached session before returning, so no later question is
// answered by a session that predates the document. Upload and attach
// failures are returned as *UploadError and *AttachError.
func (i *Ingestor) Ingest(ctx context.Context, up Upload) (Record, error) {
	rec := Record{
		ID:                uuid.NewString(),
		FileName:          up.FileName,
		KnowledgeSourceID: i.knowledgeSourceID,
		UploadedBy:        up.UploadedBy,
		CreatedAt:         i.now().UTC(),
	}
	if i.knowledgeSourceID == "" {
		return rec, ErrNoKnowledgeSource
	}

	docID, err := i.index.AddDocument(ctx, up.FileName, up.Data)
	if err != nil {
		var uploadErr *UploadError
		if !errors.As(err, &uploadErr) {
			err = &UploadError{FileName: up.FileName, Err: err}
		}
		rec.Status, rec.Error = StatusUploadFailed, err.Error()
		i.record(ctx, rec)
		return rec, err
	}
	rec.DocumentID = docID

	if err := i.index.Attach(ctx, docID, i.knowledgeSourceID); err != nil {
		var attachErr *AttachError
		if !errors.As(err, &attachErr) {
			err = &AttachError{DocumentID: docID, KnowledgeSourceID: i.knowledgeSourceID, Err: err}
		}
		rec.Status, rec.Error = StatusAttachFailed, err.Error()
		i.record(ctx, rec)
		return rec, err
	}

	if i.sessions != nil {
		i.sessions.Invalidate()
	}
	rec.Status = StatusIndexed
	i.record(ctx, rec)
	i.logger.Info("document ingested",
		"file_name", up.FileName,
		"document_id", docID,
		"knowledge_source_id", i.knowledgeSourceID)
	return rec, nil
}

// List returns recent ingestions, newest first.
func (i *Ingestor) List(ctx context.Context, limit int) ([]Record, error) {
	if i.ledger == nil {
		return nil, nil
	}
	return i.ledger.List(ctx, limit)
}

func (i *Ingestor) record(ctx context.Context, rec Record) {
	if i.ledger == nil {
		return
	}
	if err := i.ledger.Record(ctx, rec); err != nil {
		i.logger.Warn("failed to record ingestion", "file_name", rec.FileName, "error", err)
	}
}
