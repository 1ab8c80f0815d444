// Package mcptool exposes the assistant as Model Context Protocol tools.
package mcptool

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ahrav/go-mentor/internal/assistant"
	"github.com/ahrav/go-mentor/internal/domain"
)

// DefaultSender identifies MCP callers that do not name themselves. All
// such callers share one last-submission slot.
const DefaultSender = "mcp"

// Assistant is the conversation surface the tools call into.
type Assistant interface {
	Respond(ctx context.Context, ev assistant.Event, limit int) []string
	Evaluate(ctx context.Context, sender, text string) []string
}

// MetadataAskQuestion describes the ask_question tool.
var MetadataAskQuestion = &mcp.Tool{
	Name: "ask_question",
	Description: "Answer a History question from the indexed study material. " +
		"Answers quote the source material; when the material does not support an answer, " +
		"the tool says so instead of guessing.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"question"},
		"properties": map[string]interface{}{
			"question": map[string]interface{}{
				"type":        "string",
				"description": "The question to answer",
			},
			"sender": map[string]interface{}{
				"type":        "string",
				"description": "Optional caller identity used for rate limiting and submission history.",
			},
		},
	},
}

// MetadataEvaluateAnswer describes the evaluate_answer tool.
var MetadataEvaluateAnswer = &mcp.Tool{
	Name: "evaluate_answer",
	Description: "Evaluate a written exam answer against the marker rubric. " +
		"Pass the answer as text, or as a base64 PDF or image in file_base64 with its file_name. " +
		"A short text with no file scores the caller's previous submission.",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": "The answer text, or a short instruction such as the marks the question carries",
			},
			"file_base64": map[string]interface{}{
				"type":        "string",
				"description": "Base64 content of a PDF or image of the answer",
			},
			"file_name": map[string]interface{}{
				"type":        "string",
				"description": "Name of the uploaded file, e.g. answer.pdf",
			},
			"sender": map[string]interface{}{
				"type":        "string",
				"description": "Optional caller identity used for rate limiting and submission history.",
			},
		},
	},
}

// InputAskQuestion is the input for the ask_question tool.
type InputAskQuestion struct {
	Question string `json:"question"`
	Sender   string `json:"sender"`
}

// InputEvaluateAnswer is the input for the evaluate_answer tool.
type InputEvaluateAnswer struct {
	Text       string `json:"text"`
	FileBase64 string `json:"file_base64"`
	FileName   string `json:"file_name"`
	Sender     string `json:"sender"`
}

// Output is the output of every tool.
type Output struct {
	// Chunks are the reply segments in delivery order.
	Chunks []string `json:"chunks"`
}

// Tools implements the tool handlers.
type Tools struct {
	assistant  Assistant
	chunkLimit int
}

// New creates the tool handlers.
func New(a Assistant, chunkLimit int) *Tools {
	return &Tools{assistant: a, chunkLimit: chunkLimit}
}

// AskQuestion answers a question.
func (t *Tools) AskQuestion(ctx context.Context, _ *mcp.CallToolRequest, input InputAskQuestion) (*mcp.CallToolResult, Output, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, Output{}, fmt.Errorf("question is required")
	}
	ev := assistant.Event{Sender: senderOr(input.Sender), Kind: assistant.KindText, Text: input.Question}
	return nil, Output{Chunks: t.assistant.Respond(ctx, ev, t.chunkLimit)}, nil
}

// EvaluateAnswer evaluates an answer given as text or as a file.
func (t *Tools) EvaluateAnswer(ctx context.Context, _ *mcp.CallToolRequest, input InputEvaluateAnswer) (*mcp.CallToolResult, Output, error) {
	sender := senderOr(input.Sender)
	if input.FileBase64 == "" {
		return nil, Output{Chunks: assistant.Chunks(t.assistant.Evaluate(ctx, sender, input.Text), t.chunkLimit)}, nil
	}

	data, err := base64.StdEncoding.DecodeString(input.FileBase64)
	if err != nil {
		return nil, Output{}, fmt.Errorf("file_base64 is not valid base64: %w", err)
	}
	name := input.FileName
	if name == "" {
		name = "answer.pdf"
	}
	ev := assistant.Event{
		Sender:  sender,
		Kind:    assistant.KindDocument,
		Caption: input.Text,
		File:    &assistant.Attachment{FileName: name, Data: data},
	}
	if domain.KindFromFileName(name, "") == domain.KindImage {
		ev.Kind = assistant.KindPhoto
	}
	return nil, Output{Chunks: t.assistant.Respond(ctx, ev, t.chunkLimit)}, nil
}

// Register adds every tool to server.
func (t *Tools) Register(server *mcp.Server) {
	mcp.AddTool(server, MetadataAskQuestion, t.AskQuestion)
	mcp.AddTool(server, MetadataEvaluateAnswer, t.EvaluateAnswer)
}

// NewServer creates an MCP server with the tools registered.
func NewServer(version string, t *Tools) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "mentor", Version: version}, nil)
	t.Register(server)
	return server
}

func senderOr(s string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return DefaultSender
}
