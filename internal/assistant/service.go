package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ahrav/go-mentor/internal/detect"
	"github.com/ahrav/go-mentor/internal/domain"
	"github.com/ahrav/go-mentor/internal/knowledge"
	"github.com/ahrav/go-mentor/internal/llm/retry"
	"github.com/ahrav/go-mentor/internal/ratelimit"
	"github.com/ahrav/go-mentor/internal/scoring"
	"github.com/ahrav/go-mentor/internal/segment"
	"github.com/ahrav/go-mentor/internal/store"
)

// Extractor turns a raw submission into text.
type Extractor interface {
	Extract(ctx context.Context, sub domain.RawSubmission) (domain.ExtractedDocument, error)
}

// Answerer answers questions from the study material.
type Answerer interface {
	Answer(ctx context.Context, question string) domain.EvidenceCheckResult
}

// Scorer evaluates written answers.
type Scorer interface {
	Evaluate(ctx context.Context, sub scoring.Submission) scoring.Evaluation
}

// Ingester adds documents to the knowledge source.
type Ingester interface {
	Ingest(ctx context.Context, up knowledge.Upload) (knowledge.Record, error)
}

// Privileged reports whether a sender may perform privileged operations.
type Privileged interface {
	IsPrivileged(sender string) bool
	CheckSecret(secret string) bool
}

// Route names the path an event took, for logs and tests.
type Route string

// Routes.
const (
	RouteWelcome     Route = "welcome"
	RouteShort       Route = "short"
	RouteAnswer      Route = "answer"
	RouteEvaluate    Route = "evaluate"
	RouteSubmission  Route = "submission"
	RouteUploadArm   Route = "upload_arm"
	RouteIngest      Route = "ingest"
	RouteThrottled   Route = "throttled"
	RouteUnsupported Route = "unsupported"
)

// Deps are the collaborators of a Service. Ingester, Admins and Limiter may
// be nil.
type Deps struct {
	Extractor Extractor
	Answers   Answerer
	Scorer    Scorer
	Store     store.SubmissionStore
	Ingester  Ingester
	Admins    Privileged
	Detectors *detect.Set
	Limiter   *ratelimit.Limiter
	// InlineAnswerWords is the length above which an evaluation request is
	// itself treated as the answer to score.
	InlineAnswerWords int
}

// Service handles one event at a time and returns the replies for it.
// It holds no per-request state apart from the submission store and the
// armed upload flags.
type Service struct {
	deps   Deps
	armed  sync.Map // sender -> struct{}
	logger *slog.Logger
}

// NewService creates a service. Store defaults to an in-memory store.
func NewService(deps Deps) *Service {
	if deps.Store == nil {
		deps.Store = store.NewMemoryStore()
	}
	if deps.Detectors == nil {
		deps.Detectors = detect.NewSet()
	}
	if deps.InlineAnswerWords <= 0 {
		deps.InlineAnswerWords = scoring.DefaultGenuineAttemptWords
	}
	return &Service{
		deps:   deps,
		logger: slog.Default().With("component", "assistant"),
	}
}

// Handle routes ev and returns its replies in delivery order. Replies are not
// yet split for transport limits; see Respond.
func (s *Service) Handle(ctx context.Context, ev Event) []string {
	start := time.Now()
	route, replies := s.route(ctx, ev)
	s.logger.Info("event handled",
		"sender", ev.Sender,
		"kind", ev.Kind,
		"route", route,
		"replies", len(replies),
		"duration", time.Since(start))
	return replies
}

// Respond handles ev and splits every reply into chunks of at most limit
// characters. A non-positive limit selects segment.DefaultLimit.
func (s *Service) Respond(ctx context.Context, ev Event, limit int) []string {
	return Chunks(s.Handle(ctx, ev), limit)
}

// Chunks splits each reply with segment.Split, preserving order.
func Chunks(replies []string, limit int) []string {
	if limit <= 0 {
		limit = segment.DefaultLimit
	}
	var out []string
	for _, r := range replies {
		out = append(out, segment.Split(r, limit)...)
	}
	return out
}

func (s *Service) route(ctx context.Context, ev Event) (Route, []string) {
	if ok, wait := s.deps.Limiter.Allow(ev.Sender); !ok {
		return RouteThrottled, []string{fmt.Sprintf(ThrottledFormat, int(wait/time.Second))}
	}

	if name, args, ok := ev.command(); ok {
		return s.command(ctx, name, args, ev)
	}

	switch ev.Kind {
	case KindText:
		return s.text(ctx, ev)
	case KindDocument:
		if ev.File == nil {
			return RouteUnsupported, []string{UnsupportedMessage}
		}
		if s.consumeArmed(ev.Sender) {
			return RouteIngest, s.ingest(ctx, ev)
		}
		kind := domain.KindFromFileName(ev.File.FileName, ev.File.MIMEType)
		return RouteSubmission, []string{s.submit(ctx, ev, kind)}
	case KindPhoto:
		if ev.File == nil {
			return RouteUnsupported, []string{UnsupportedMessage}
		}
		return RouteSubmission, []string{s.submit(ctx, ev, domain.KindImage)}
	default:
		return RouteUnsupported, []string{UnsupportedMessage}
	}
}

func (s *Service) command(ctx context.Context, name string, args []string, ev Event) (Route, []string) {
	switch name {
	case "evaluate":
		return RouteEvaluate, []string{s.evaluateRequest(ctx, ev.Sender, strings.Join(args, " "))}
	case "uploaddoc":
		return RouteUploadArm, []string{s.armUpload(ev.Sender, args)}
	default:
		return RouteWelcome, []string{WelcomeMessage}
	}
}

func (s *Service) text(ctx context.Context, ev Event) (Route, []string) {
	text := strings.TrimSpace(ev.Text)
	if len([]rune(text)) < 2 {
		return RouteShort, []string{domain.ShortQuestionMessage}
	}

	if s.deps.Detectors.IsEvaluationRequest(text) {
		return RouteEvaluate, []string{s.evaluateRequest(ctx, ev.Sender, text)}
	}

	result := s.deps.Answers.Answer(ctx, text)
	return RouteAnswer, []string{result.Text}
}

// evaluateRequest scores the text itself when it is long enough to be an
// answer, otherwise the sender's last submission.
func (s *Service) evaluateRequest(ctx context.Context, sender, text string) string {
	if domain.CountWords(text) >= s.deps.InlineAnswerWords {
		doc := domain.NewExtractedDocument(text, domain.ModeTyped)
		s.remember(ctx, sender, doc)
		return s.score(ctx, doc, text)
	}

	doc, ok, err := s.deps.Store.Get(ctx, sender)
	if err != nil {
		s.logger.Error("failed to load last submission", "sender", sender, "error", err)
		return domain.UnexpectedFailureMessage
	}
	if !ok {
		return NoSubmissionMessage
	}
	return s.score(ctx, doc, text)
}

// submit extracts an uploaded answer, keeps it as the sender's last
// submission and scores it.
func (s *Service) submit(ctx context.Context, ev Event, kind domain.SubmissionKind) string {
	raw := domain.RawSubmission{
		Kind:     kind,
		Bytes:    ev.File.Data,
		FileName: ev.File.FileName,
		MIMEType: ev.File.MIMEType,
		Caption:  ev.Caption,
	}
	doc, err := s.deps.Extractor.Extract(ctx, raw)
	if err != nil {
		s.logger.Warn("submission rejected", "sender", ev.Sender, "error", err)
		return domain.ResubmitMessage
	}
	if !doc.Empty() {
		s.remember(ctx, ev.Sender, doc)
	}
	return s.score(ctx, doc, ev.Caption)
}

func (s *Service) remember(ctx context.Context, sender string, doc domain.ExtractedDocument) {
	if err := s.deps.Store.Put(ctx, sender, doc); err != nil {
		s.logger.Warn("failed to store submission", "sender", sender, "error", err)
	}
}

func (s *Service) score(ctx context.Context, doc domain.ExtractedDocument, hint string) string {
	eval := s.deps.Scorer.Evaluate(ctx, scoring.Submission{Text: doc.Text, Hint: hint, Mode: doc.Mode})
	return eval.Text
}

func (s *Service) armUpload(sender string, args []string) string {
	if s.deps.Admins == nil || !s.deps.Admins.IsPrivileged(sender) {
		return NotAuthorizedMessage
	}
	if s.deps.Ingester == nil {
		return UploadDisabledMessage
	}
	if len(args) != 1 || !s.deps.Admins.CheckSecret(args[0]) {
		return UploadUsageMessage
	}
	s.armed.Store(sender, struct{}{})
	return UploadArmedMessage
}

// consumeArmed reports whether sender armed an upload, disarming it. Only
// privileged senders are ever armed.
func (s *Service) consumeArmed(sender string) bool {
	_, ok := s.armed.LoadAndDelete(sender)
	return ok
}

func (s *Service) ingest(ctx context.Context, ev Event) []string {
	rec, err := s.deps.Ingester.Ingest(ctx, knowledge.Upload{
		FileName:   ev.File.FileName,
		Data:       ev.File.Data,
		UploadedBy: ev.Sender,
	})
	if err == nil {
		return []string{UploadStartedMessage, fmt.Sprintf(UploadDoneFormat, rec.DocumentID)}
	}

	s.logger.Error("document ingestion failed", "sender", ev.Sender, "file_name", ev.File.FileName, "error", err)
	stage := "indexing"
	var uploadErr *knowledge.UploadError
	switch {
	case errors.As(err, &uploadErr):
		stage = "uploading"
	case errors.Is(err, knowledge.ErrNoKnowledgeSource):
		return []string{UploadStartedMessage, UploadDisabledMessage}
	}
	return []string{UploadStartedMessage, fmt.Sprintf(UploadFailedFormat, stage, retry.UserMessage(err))}
}

// Evaluate scores text for sender, or the sender's last submission when text
// is too short to be an answer itself. It applies the sender's rate limit.
func (s *Service) Evaluate(ctx context.Context, sender, text string) []string {
	if ok, wait := s.deps.Limiter.Allow(sender); !ok {
		return []string{fmt.Sprintf(ThrottledFormat, int(wait/time.Second))}
	}
	return []string{s.evaluateRequest(ctx, sender, strings.TrimSpace(text))}
}

// IngestDocument adds file to the knowledge source on behalf of sender. The
// caller is responsible for authenticating sender.
func (s *Service) IngestDocument(ctx context.Context, sender string, file Attachment) []string {
	if s.deps.Ingester == nil {
		return []string{UploadDisabledMessage}
	}
	return s.ingest(ctx, Event{Sender: sender, Kind: KindDocument, File: &file})
}
