package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-mentor/internal/assistant"
)

type echoHandler struct {
	mu     sync.Mutex
	events []assistant.Event
}

func (h *echoHandler) Handle(_ context.Context, ev assistant.Event) []string {
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
	if ev.File != nil {
		return []string{"file " + ev.File.FileName}
	}
	return []string{"echo " + ev.Text}
}

func TestLineEvent(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "answer.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF"), 0o600))
	img := filepath.Join(dir, "page.png")
	require.NoError(t, os.WriteFile(img, []byte{0x89}, 0o600))

	ev, err := lineEvent("u", "What was the Ilbert Bill?")
	require.NoError(t, err)
	assert.Equal(t, assistant.KindText, ev.Kind)

	ev, err = lineEvent("u", "@"+pdf+" 15 marker")
	require.NoError(t, err)
	assert.Equal(t, assistant.KindDocument, ev.Kind)
	assert.Equal(t, "15 marker", ev.Caption)
	assert.Equal(t, "answer.pdf", ev.File.FileName)
	assert.Equal(t, []byte("%PDF"), ev.File.Data)

	ev, err = lineEvent("u", "@"+img)
	require.NoError(t, err)
	assert.Equal(t, assistant.KindPhoto, ev.Kind)
	assert.Empty(t, ev.Caption)

	_, err = lineEvent("u", "@"+filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)
}

func TestRunChat(t *testing.T) {
	h := &echoHandler{}
	var out bytes.Buffer
	in := strings.NewReader("hello\n\n@/definitely/missing.pdf\nsecond\n")

	err := runChat(context.Background(), h, "console", in, &out, 1, 0)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "echo hello")
	assert.Contains(t, out.String(), "echo second")
	assert.Contains(t, out.String(), "cannot read file")
	assert.Len(t, h.events, 2)
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "chat", "mcp", "worker", "evaluate", "knowledge"})

	knowledge, _, err := root.Find([]string{"knowledge", "upload"})
	require.NoError(t, err)
	assert.Equal(t, "upload", knowledge.Name())
}

func TestRootFailsWithoutAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	root := newRootCmd()
	root.SetArgs([]string{"--env-file", "", "knowledge", "list"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}
