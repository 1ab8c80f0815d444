// Package knowledge manages the document collection answers are grounded in:
// uploading study material to the index, attaching it to the knowledge
// source, and keeping a local ledger of what was ingested.
package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/ahrav/go-mentor/internal/llm/configuration"
	"github.com/ahrav/go-mentor/internal/llm/providers"
	"github.com/ahrav/go-mentor/internal/llm/retry"
)

// Index is the document index collaborator.
type Index interface {
	AddDocument(ctx context.Context, name string, data []byte) (string, error)
	Attach(ctx context.Context, documentID, knowledgeSourceID string) error
	CreateKnowledgeSource(ctx context.Context, name string) (string, error)
}

// filePurpose marks uploads as retrieval material.
const filePurpose = "assistants"

// OpenAIIndex stores documents as OpenAI files attached to a vector store.
type OpenAIIndex struct {
	config  configuration.ProviderConfig
	client  *http.Client
	retrier *retry.Retrier
	logger  *slog.Logger
}

// NewOpenAIIndex creates an index client. Calls are retried under retrier.
func NewOpenAIIndex(cfg configuration.ProviderConfig, client *http.Client, retrier *retry.Retrier) *OpenAIIndex {
	if cfg.Endpoint == "" {
		cfg.Endpoint = configuration.DefaultEndpoint
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if client == nil {
		client = http.DefaultClient
	}
	if retrier == nil {
		retrier = retry.NewRetrier(retry.PoliciesFromConfig(configuration.DefaultRetryConfig()))
	}
	return &OpenAIIndex{
		config:  cfg,
		client:  client,
		retrier: retrier,
		logger:  slog.Default().With("component", "knowledge_index"),
	}
}

type objectID struct {
	ID string `json:"id"`
}

// AddDocument uploads data and returns the document id.
func (x *OpenAIIndex) AddDocument(ctx context.Context, name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", &UploadError{FileName: name, Err: ErrEmptyDocument}
	}

	created, _, err := retry.Do(ctx, x.retrier, func(ctx context.Context) (objectID, error) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		if err := w.WriteField("purpose", filePurpose); err != nil {
			return objectID{}, err
		}
		part, err := w.CreateFormFile("file", name)
		if err != nil {
			return objectID{}, err
		}
		if _, err := part.Write(data); err != nil {
			return objectID{}, err
		}
		if err := w.Close(); err != nil {
			return objectID{}, err
		}

		var out objectID
		err = x.do(ctx, http.MethodPost, "/files", w.FormDataContentType(), &buf, &out)
		return out, err
	})
	if err != nil {
		return "", &UploadError{FileName: name, Err: err}
	}
	x.logger.Info("document uploaded", "file_name", name, "document_id", created.ID, "bytes", len(data))
	return created.ID, nil
}

// Attach adds a stored document to a knowledge source.
func (x *OpenAIIndex) Attach(ctx context.Context, documentID, knowledgeSourceID string) error {
	_, _, err := retry.Do(ctx, x.retrier, func(ctx context.Context) (objectID, error) {
		var out objectID
		err := x.doJSON(ctx, http.MethodPost, "/vector_stores/"+knowledgeSourceID+"/files",
			map[string]string{"file_id": documentID}, &out)
		return out, err
	})
	if err != nil {
		return &AttachError{DocumentID: documentID, KnowledgeSourceID: knowledgeSourceID, Err: err}
	}
	x.logger.Info("document attached", "document_id", documentID, "knowledge_source_id", knowledgeSourceID)
	return nil
}

// CreateKnowledgeSource creates an empty vector store and returns its id.
func (x *OpenAIIndex) CreateKnowledgeSource(ctx context.Context, name string) (string, error) {
	created, _, err := retry.Do(ctx, x.retrier, func(ctx context.Context) (objectID, error) {
		var out objectID
		err := x.doJSON(ctx, http.MethodPost, "/vector_stores", map[string]string{"name": name}, &out)
		return out, err
	})
	if err != nil {
		return "", fmt.Errorf("create knowledge source %q: %w", name, err)
	}
	x.logger.Info("knowledge source created", "name", name, "knowledge_source_id", created.ID)
	return created.ID, nil
}

func (x *OpenAIIndex) doJSON(ctx context.Context, method, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return x.do(ctx, method, path, "application/json", bytes.NewReader(b), out)
}

func (x *OpenAIIndex) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, x.config.Endpoint+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+x.config.APIKey)
	httpReq.Header.Set("Content-Type", contentType)
	for k, v := range x.config.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := x.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return providers.ParseOpenAIError(httpResp.StatusCode, httpResp.Header, respBody)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
