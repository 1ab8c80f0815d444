package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahrav/go-mentor/internal/activity"
	"github.com/ahrav/go-mentor/internal/answer"
	"github.com/ahrav/go-mentor/internal/assistant"
	"github.com/ahrav/go-mentor/internal/config"
	"github.com/ahrav/go-mentor/internal/detect"
	"github.com/ahrav/go-mentor/internal/extract"
	"github.com/ahrav/go-mentor/internal/knowledge"
	"github.com/ahrav/go-mentor/internal/llm"
	"github.com/ahrav/go-mentor/internal/llm/retry"
	"github.com/ahrav/go-mentor/internal/ratelimit"
	"github.com/ahrav/go-mentor/internal/readability"
	"github.com/ahrav/go-mentor/internal/scoring"
	"github.com/ahrav/go-mentor/internal/session"
	"github.com/ahrav/go-mentor/internal/store"
	base "github.com/ahrav/go-mentor/pkg/activity"
	"github.com/ahrav/go-mentor/pkg/events"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg       *config.Config
	client    *llm.Client
	sessions  *session.Cache
	extractor *extract.Extractor
	answers   *answer.Engine
	scorer    *scoring.Engine
	store     store.SubmissionStore
	index     *knowledge.OpenAIIndex
	ledger    *knowledge.SQLiteLedger
	ingestor  *knowledge.Ingestor
	limiter   *ratelimit.Limiter
	service   *assistant.Service

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	client, err := llm.New(&cfg.LLM)
	if err != nil {
		return nil, err
	}
	a.client = client

	detectors := detect.NewSet()
	a.sessions = session.NewCache(client, cfg.Knowledge.SourceID)
	a.extractor = extract.NewDefault(cfg.Extract)
	a.answers = answer.New(client, a.sessions, detectors)
	a.scorer = scoring.New(client, readability.New(cfg.Readability), cfg.Scoring)

	if a.store, err = a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	retrier := retry.NewRetrier(
		retry.PoliciesFromConfig(cfg.LLM.Retry),
		retry.WithLogger(slog.Default().With("component", "retry")),
	)
	a.index = knowledge.NewOpenAIIndex(cfg.LLM.Providers[cfg.LLM.Provider],
		&http.Client{Timeout: cfg.LLM.HTTPTimeout}, retrier)

	if cfg.Knowledge.LedgerPath != "" {
		ledger, err := knowledge.OpenLedger(cfg.Knowledge.LedgerPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open ingestion ledger: %w", err)
		}
		a.ledger = ledger
		a.closers = append(a.closers, ledger.Close)
	}
	var ledger knowledge.Ledger
	if a.ledger != nil {
		ledger = a.ledger
	}
	a.ingestor = knowledge.NewIngestor(a.index, cfg.Knowledge.SourceID, a.sessions, ledger)

	if a.limiter, err = ratelimit.New(cfg.RateLimit); err != nil {
		a.Close()
		return nil, err
	}

	a.service = assistant.NewService(assistant.Deps{
		Extractor:         a.extractor,
		Answers:           a.answers,
		Scorer:            a.scorer,
		Store:             a.store,
		Ingester:          a.ingestor,
		Admins:            assistant.NewAdminSet(cfg.Admin.IDs, cfg.Admin.Secret),
		Detectors:         detectors,
		Limiter:           a.limiter,
		InlineAnswerWords: cfg.Scoring.GenuineAttemptWords,
	})
	return a, nil
}

func (a *app) openStore(ctx context.Context) (store.SubmissionStore, error) {
	if a.cfg.Store.Backend != config.StoreRedis {
		return store.NewMemoryStore(), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Store.RedisAddr,
		Password: a.cfg.Store.RedisPassword,
		DB:       a.cfg.Store.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", a.cfg.Store.RedisAddr, err)
	}
	a.closers = append(a.closers, rdb.Close)
	return store.NewRedisStore(rdb, a.cfg.Store.KeyPrefix, a.cfg.Store.TTL), nil
}

// activities builds the durable evaluation activities over the same
// extractor, scorer and store as the interactive service.
func (a *app) activities() *activity.Activities {
	sink := events.NewLogSink(slog.Default())
	return activity.NewActivities(base.NewBaseActivities(sink), a.extractor, a.scorer, a.store)
}

// startLimiter runs the idle-sender sweep until the app is closed.
func (a *app) startLimiter() {
	a.limiter.Start()
	a.closers = append(a.closers, func() error {
		a.limiter.Stop()
		return nil
	})
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
