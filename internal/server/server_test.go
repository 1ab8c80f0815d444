package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-mentor/internal/assistant"
	"github.com/ahrav/go-mentor/internal/domain"
	"github.com/ahrav/go-mentor/internal/knowledge"
	"github.com/ahrav/go-mentor/internal/server"
)

type fakeAssistant struct {
	events    []assistant.Event
	evaluated []string
	ingested  []assistant.Attachment
	senders   []string
	reply     string
}

func (f *fakeAssistant) Respond(_ context.Context, ev assistant.Event, limit int) []string {
	f.events = append(f.events, ev)
	f.senders = append(f.senders, ev.Sender)
	return assistant.Chunks([]string{f.reply}, limit)
}

func (f *fakeAssistant) Evaluate(_ context.Context, sender, text string) []string {
	f.evaluated = append(f.evaluated, text)
	f.senders = append(f.senders, sender)
	return []string{"evaluated"}
}

func (f *fakeAssistant) IngestDocument(_ context.Context, sender string, file assistant.Attachment) []string {
	f.ingested = append(f.ingested, file)
	f.senders = append(f.senders, sender)
	return []string{assistant.UploadStartedMessage, "done"}
}

type fakeLedger struct {
	records []knowledge.Record
	err     error
}

func (f *fakeLedger) List(context.Context, int) ([]knowledge.Record, error) {
	return f.records, f.err
}

func newServer(t *testing.T, a *fakeAssistant, ledger server.Ledger) *server.Server {
	t.Helper()
	return server.New(server.Config{
		Addr:        ":0",
		ChunkLimit:  200,
		BodyLimit:   1 << 20,
		AdminSecret: "s3cret",
	}, a, ledger)
}

func do(t *testing.T, s *server.Server, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := s.App().Test(req, int((5 * time.Second).Milliseconds()))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func chunksOf(t *testing.T, body []byte) []string {
	t.Helper()
	var out server.ChunksResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out.Chunks
}

func multipartBody(t *testing.T, fields map[string]string, fileName, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	s := newServer(t, &fakeAssistant{}, nil)
	code, body := do(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestAsk(t *testing.T) {
	a := &fakeAssistant{reply: strings.Repeat("para one. ", 15) + "\n\n" + strings.Repeat("para two. ", 15)}
	s := newServer(t, a, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/ask",
		strings.NewReader(`{"sender":"u1","question":"Who led the Revolt of 1857 in Kanpur?"}`))
	req.Header.Set("Content-Type", "application/json")
	code, body := do(t, s, req)

	require.Equal(t, http.StatusOK, code)
	chunks := chunksOf(t, body)
	assert.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 200)
	}
	require.Len(t, a.events, 1)
	assert.Equal(t, "u1", a.events[0].Sender)
	assert.Equal(t, assistant.KindText, a.events[0].Kind)
	assert.Equal(t, "Who led the Revolt of 1857 in Kanpur?", a.events[0].Text)
}

func TestAsk_SenderFromHeader(t *testing.T) {
	a := &fakeAssistant{reply: "ok"}
	s := newServer(t, a, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"Why?"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(server.HeaderSender, "telegram-42")
	code, _ := do(t, s, req)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"telegram-42"}, a.senders)
}

func TestAsk_BadBody(t *testing.T) {
	s := newServer(t, &fakeAssistant{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{`))
	req.Header.Set("Content-Type", "application/json")
	code, body := do(t, s, req)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.JSONEq(t, `{"error":"invalid request body"}`, string(body))
}

func TestEvaluate(t *testing.T) {
	t.Run("pdf upload is a document event", func(t *testing.T) {
		a := &fakeAssistant{reply: "scored"}
		s := newServer(t, a, nil)
		body, ct := multipartBody(t, map[string]string{"sender": "u", "caption": "Q3"}, "answer.pdf", "application/pdf", []byte("%PDF-1.4"))

		req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", body)
		req.Header.Set("Content-Type", ct)
		code, resp := do(t, s, req)

		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, []string{"scored"}, chunksOf(t, resp))
		require.Len(t, a.events, 1)
		ev := a.events[0]
		assert.Equal(t, assistant.KindDocument, ev.Kind)
		assert.Equal(t, "Q3", ev.Caption)
		require.NotNil(t, ev.File)
		assert.Equal(t, "answer.pdf", ev.File.FileName)
		assert.Equal(t, []byte("%PDF-1.4"), ev.File.Data)
	})

	t.Run("image upload is a photo event", func(t *testing.T) {
		a := &fakeAssistant{reply: "scored"}
		s := newServer(t, a, nil)
		body, ct := multipartBody(t, nil, "page.jpg", "image/jpeg", []byte{0xff, 0xd8})

		req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", body)
		req.Header.Set("Content-Type", ct)
		code, _ := do(t, s, req)

		require.Equal(t, http.StatusOK, code)
		require.Len(t, a.events, 1)
		assert.Equal(t, assistant.KindPhoto, a.events[0].Kind)
		assert.Equal(t, domain.KindImage, domain.KindFromFileName(a.events[0].File.FileName, a.events[0].File.MIMEType))
	})

	t.Run("form text", func(t *testing.T) {
		a := &fakeAssistant{}
		s := newServer(t, a, nil)
		body, ct := multipartBody(t, map[string]string{"sender": "u", "text": "my answer"}, "", "", nil)

		req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", body)
		req.Header.Set("Content-Type", ct)
		code, resp := do(t, s, req)

		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, []string{"evaluated"}, chunksOf(t, resp))
		assert.Equal(t, []string{"my answer"}, a.evaluated)
		assert.Empty(t, a.events)
	})

	t.Run("json text", func(t *testing.T) {
		a := &fakeAssistant{}
		s := newServer(t, a, nil)

		req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", strings.NewReader(`{"sender":"u9","text":"evaluate"}`))
		req.Header.Set("Content-Type", "application/json")
		code, _ := do(t, s, req)

		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, []string{"evaluate"}, a.evaluated)
		assert.Equal(t, []string{"u9"}, a.senders)
	})
}

func TestKnowledgeDocuments(t *testing.T) {
	t.Run("rejects missing secret", func(t *testing.T) {
		a := &fakeAssistant{}
		s := newServer(t, a, nil)
		body, ct := multipartBody(t, nil, "notes.pdf", "application/pdf", []byte("%PDF"))

		req := httptest.NewRequest(http.MethodPost, "/v1/knowledge/documents", body)
		req.Header.Set("Content-Type", ct)
		code, resp := do(t, s, req)

		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Contains(t, string(resp), assistant.NotAuthorizedMessage)
		assert.Empty(t, a.ingested)
	})

	t.Run("uploads with secret", func(t *testing.T) {
		a := &fakeAssistant{}
		s := newServer(t, a, nil)
		body, ct := multipartBody(t, nil, "notes.pdf", "application/pdf", []byte("%PDF"))

		req := httptest.NewRequest(http.MethodPost, "/v1/knowledge/documents", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set(server.HeaderAdminSecret, "s3cret")
		req.Header.Set(server.HeaderSender, "ops")
		code, resp := do(t, s, req)

		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, []string{assistant.UploadStartedMessage, "done"}, chunksOf(t, resp))
		require.Len(t, a.ingested, 1)
		assert.Equal(t, "notes.pdf", a.ingested[0].FileName)
		assert.Equal(t, []string{"ops"}, a.senders)
	})

	t.Run("upload without file", func(t *testing.T) {
		s := newServer(t, &fakeAssistant{}, nil)
		req := httptest.NewRequest(http.MethodPost, "/v1/knowledge/documents", nil)
		req.Header.Set(server.HeaderAdminSecret, "s3cret")
		code, _ := do(t, s, req)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("lists ledger records", func(t *testing.T) {
		ledger := &fakeLedger{records: []knowledge.Record{{ID: "r1", FileName: "notes.pdf", Status: knowledge.StatusIndexed}}}
		s := newServer(t, &fakeAssistant{}, ledger)

		req := httptest.NewRequest(http.MethodGet, "/v1/knowledge/documents?limit=5", nil)
		req.Header.Set(server.HeaderAdminSecret, "s3cret")
		code, body := do(t, s, req)

		require.Equal(t, http.StatusOK, code)
		var out struct {
			Documents []knowledge.Record `json:"documents"`
		}
		require.NoError(t, json.Unmarshal(body, &out))
		require.Len(t, out.Documents, 1)
		assert.Equal(t, "r1", out.Documents[0].ID)
	})

	t.Run("ledger failure is hidden", func(t *testing.T) {
		s := newServer(t, &fakeAssistant{}, &fakeLedger{err: errors.New("disk I/O error")})

		req := httptest.NewRequest(http.MethodGet, "/v1/knowledge/documents", nil)
		req.Header.Set(server.HeaderAdminSecret, "s3cret")
		code, body := do(t, s, req)

		assert.Equal(t, http.StatusInternalServerError, code)
		assert.JSONEq(t, `{"error":"`+domain.UnexpectedFailureMessage+`"}`, string(body))
	})

	t.Run("disabled without a configured secret", func(t *testing.T) {
		s := server.New(server.Config{}, &fakeAssistant{}, nil)
		req := httptest.NewRequest(http.MethodGet, "/v1/knowledge/documents", nil)
		req.Header.Set(server.HeaderAdminSecret, "")
		code, _ := do(t, s, req)
		assert.Equal(t, http.StatusUnauthorized, code)
	})
}
