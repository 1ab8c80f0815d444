// Package server exposes the assistant over HTTP. Every reply endpoint
// returns the reply chunks in delivery order.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/ahrav/go-mentor/internal/assistant"
	"github.com/ahrav/go-mentor/internal/domain"
	"github.com/ahrav/go-mentor/internal/knowledge"
)

// Header names.
const (
	HeaderSender      = "X-Sender-ID"
	HeaderAdminSecret = "X-Admin-Secret"
)

// Assistant is the conversation surface served over HTTP.
type Assistant interface {
	Respond(ctx context.Context, ev assistant.Event, limit int) []string
	Evaluate(ctx context.Context, sender, text string) []string
	IngestDocument(ctx context.Context, sender string, file assistant.Attachment) []string
}

// Ledger lists ingested documents.
type Ledger interface {
	List(ctx context.Context, limit int) ([]knowledge.Record, error)
}

// Config controls the HTTP server.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    int
	ChunkLimit   int
	// AdminSecret authorizes knowledge endpoints. Empty disables them.
	AdminSecret string
}

// ChunksResponse is the body of every reply endpoint.
type ChunksResponse struct {
	Chunks []string `json:"chunks"`
}

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

type askRequest struct {
	Sender   string `json:"sender"`
	Question string `json:"question"`
}

// Server is the HTTP front-end.
type Server struct {
	app       *fiber.App
	cfg       Config
	assistant Assistant
	ledger    Ledger
	logger    *slog.Logger
}

// New builds the server and its routes. ledger may be nil.
func New(cfg Config, a Assistant, ledger Ledger) *Server {
	s := &Server{
		cfg:       cfg,
		assistant: a,
		ledger:    ledger,
		logger:    slog.Default().With("component", "http"),
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "mentor",
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		BodyLimit:             cfg.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(s.logRequests)

	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := s.app.Group("/v1")
	v1.Post("/ask", s.ask)
	v1.Post("/evaluate", s.evaluate)

	docs := v1.Group("/knowledge/documents", s.requireAdmin)
	docs.Post("/", s.uploadDocument)
	docs.Get("/", s.listDocuments)
	return s
}

// App returns the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- s.app.Listen(s.cfg.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	}
}

func (s *Server) ask(c *fiber.Ctx) error {
	var req askRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	ev := assistant.Event{
		Sender: senderOf(c, req.Sender),
		Kind:   assistant.KindText,
		Text:   req.Question,
	}
	return c.JSON(ChunksResponse{Chunks: s.assistant.Respond(c.UserContext(), ev, s.cfg.ChunkLimit)})
}

// evaluate accepts either a multipart "file" with an optional "caption", or
// a "text" field holding the answer, as a form or JSON.
func (s *Server) evaluate(c *fiber.Ctx) error {
	sender := senderOf(c, c.FormValue("sender"))

	if isMultipart(c) {
		if header, err := c.FormFile("file"); err == nil {
			file, err := readAttachment(header)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "unreadable upload")
			}
			ev := assistant.Event{
				Sender:  sender,
				Kind:    assistant.KindDocument,
				Caption: c.FormValue("caption"),
				File:    &file,
			}
			if domain.KindFromFileName(file.FileName, file.MIMEType) == domain.KindImage {
				ev.Kind = assistant.KindPhoto
			}
			return c.JSON(ChunksResponse{Chunks: s.assistant.Respond(c.UserContext(), ev, s.cfg.ChunkLimit)})
		}
	}

	text := c.FormValue("text")
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		var body struct {
			Sender string `json:"sender"`
			Text   string `json:"text"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		text = body.Text
		sender = senderOf(c, body.Sender)
	}
	replies := s.assistant.Evaluate(c.UserContext(), sender, text)
	return c.JSON(ChunksResponse{Chunks: assistant.Chunks(replies, s.cfg.ChunkLimit)})
}

func (s *Server) uploadDocument(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}
	file, err := readAttachment(header)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unreadable upload")
	}
	replies := s.assistant.IngestDocument(c.UserContext(), senderOf(c, ""), file)
	return c.JSON(ChunksResponse{Chunks: assistant.Chunks(replies, s.cfg.ChunkLimit)})
}

func (s *Server) listDocuments(c *fiber.Ctx) error {
	if s.ledger == nil {
		return c.JSON(fiber.Map{"documents": []knowledge.Record{}})
	}
	records, err := s.ledger.List(c.UserContext(), c.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	if records == nil {
		records = []knowledge.Record{}
	}
	return c.JSON(fiber.Map{"documents": records})
}

func (s *Server) requireAdmin(c *fiber.Ctx) error {
	got := c.Get(HeaderAdminSecret)
	if s.cfg.AdminSecret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.AdminSecret)) != 1 {
		return fiber.NewError(fiber.StatusUnauthorized, assistant.NotAuthorizedMessage)
	}
	return c.Next()
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	s.logger.Info("http request",
		"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"duration", time.Since(start))
	return err
}

// handleError hides internal errors behind the fixed failure message.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := domain.UnexpectedFailureMessage

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		if code < fiber.StatusInternalServerError {
			msg = fe.Message
		}
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(ErrorResponse{Error: msg})
}

// senderOf picks the sender from the body, the sender header, or the
// client address, in that order.
func senderOf(c *fiber.Ctx, fromBody string) string {
	if s := strings.TrimSpace(fromBody); s != "" {
		return s
	}
	if s := strings.TrimSpace(c.Get(HeaderSender)); s != "" {
		return s
	}
	return c.IP()
}

func readAttachment(header *multipart.FileHeader) (assistant.Attachment, error) {
	f, err := header.Open()
	if err != nil {
		return assistant.Attachment{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return assistant.Attachment{}, err
	}
	return assistant.Attachment{
		FileName: header.Filename,
		MIMEType: header.Header.Get(fiber.HeaderContentType),
		Data:     data,
	}, nil
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}
