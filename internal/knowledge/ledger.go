package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Status is the outcome of one ingestion.
type Status string

// Ingestion statuses.
const (
	StatusIndexed      Status = "indexed"
	StatusUploadFailed Status = "upload_failed"
	StatusAttachFailed Status = "attach_failed"
)

// Record is one ledger row.
type Record struct {
	ID                string    `json:"id"`
	FileName          string    `json:"file_name"`
	DocumentID        string    `json:"document_id,omitempty"`
	KnowledgeSourceID string    `json:"knowledge_source_id"`
	Status            Status    `json:"status"`
	UploadedBy        string    `json:"uploaded_by,omitempty"`
	Error             string    `json:"error,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id                  TEXT PRIMARY KEY,
	file_name           TEXT NOT NULL,
	document_id         TEXT,
	knowledge_source_id TEXT NOT NULL,
	status              TEXT NOT NULL,
	uploaded_by         TEXT,
	error               TEXT,
	created_at          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS documents_created_at ON documents (created_at);
`

// Ledger records ingestion attempts.
type Ledger interface {
	Record(ctx context.Context, rec Record) error
	List(ctx context.Context, limit int) ([]Record, error)
}

// SQLiteLedger keeps the ledger in a SQLite database.
type SQLiteLedger struct {
	db *sql.DB
}

// OpenLedger opens the database at path and runs migrations. Use ":memory:"
// for a throwaway ledger.
func OpenLedger(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

// Close closes the underlying database.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

// Record inserts rec.
func (l *SQLiteLedger) Record(ctx context.Context, rec Record) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO documents (id, file_name, document_id, knowledge_source_id, status, uploaded_by, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.FileName, nullable(rec.DocumentID), rec.KnowledgeSourceID, string(rec.Status),
		nullable(rec.UploadedBy), nullable(rec.Error), rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// List returns the most recent records first. A limit of 0 returns all.
func (l *SQLiteLedger) List(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT id, file_name, document_id, knowledge_source_id, status, uploaded_by, error, created_at
		FROM documents ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec                        Record
			docID, uploadedBy, errText sql.NullString
			status, createdAt          string
		)
		if err := rows.Scan(&rec.ID, &rec.FileName, &docID, &rec.KnowledgeSourceID, &status,
			&uploadedBy, &errText, &createdAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		rec.DocumentID = docID.String
		rec.UploadedBy = uploadedBy.String
		rec.Error = errText.String
		rec.Status = Status(status)
		rec.CreatedAt, err = time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
