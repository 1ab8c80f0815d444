// Package config assembles the service configuration from defaults, an
// optional YAML file, a .env file and environment variables, in that order
// of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"github.com/ahrav/go-mentor/internal/extract"
	"github.com/ahrav/go-mentor/internal/llm/configuration"
	"github.com/ahrav/go-mentor/internal/logging"
	"github.com/ahrav/go-mentor/internal/ratelimit"
	"github.com/ahrav/go-mentor/internal/readability"
	"github.com/ahrav/go-mentor/internal/scoring"
	"github.com/ahrav/go-mentor/internal/segment"
	"github.com/ahrav/go-mentor/internal/store"
	"github.com/ahrav/go-mentor/internal/worker"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config is the complete service configuration.
type Config struct {
	LLM         configuration.Config `json:"llm"         yaml:"llm"`
	Extract     extract.Config       `json:"extract"     yaml:"extract"`
	Readability readability.Config   `json:"readability" yaml:"readability"`
	Scoring     scoring.Config       `json:"scoring"     yaml:"scoring"`
	Segment     SegmentConfig        `json:"segment"     yaml:"segment"`
	Store       StoreConfig          `json:"store"       yaml:"store"`
	Knowledge   KnowledgeConfig      `json:"knowledge"   yaml:"knowledge"`
	Admin       AdminConfig          `json:"admin"       yaml:"admin"`
	RateLimit   ratelimit.Config     `json:"rate_limit"  yaml:"rate_limit"`
	Server      ServerConfig         `json:"server"      yaml:"server"`
	Dispatcher  DispatcherConfig     `json:"dispatcher"  yaml:"dispatcher"`
	Temporal    worker.Config        `json:"temporal"    yaml:"temporal"`
	Logging     logging.Config       `json:"logging"     yaml:"logging"`
}

// SegmentConfig controls reply chunking.
type SegmentConfig struct {
	Limit int `json:"limit" yaml:"limit" validate:"gte=100"`
}

// StoreConfig selects the last-submission store.
type StoreConfig struct {
	Backend       string        `json:"backend"    yaml:"backend"    validate:"oneof=memory redis"`
	RedisAddr     string        `json:"redis_addr" yaml:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string        `json:"-"          yaml:"-"`
	RedisDB       int           `json:"redis_db"   yaml:"redis_db"`
	KeyPrefix     string        `json:"key_prefix" yaml:"key_prefix"`
	TTL           time.Duration `json:"ttl"        yaml:"ttl"`
}

// KnowledgeConfig locates the knowledge source and the ingestion ledger.
type KnowledgeConfig struct {
	SourceID   string `json:"source_id"   yaml:"source_id"`
	LedgerPath string `json:"ledger_path" yaml:"ledger_path"`
}

// AdminConfig lists the senders allowed to ingest documents. The secret is
// only ever read from the environment.
type AdminConfig struct {
	IDs    []string `json:"ids" yaml:"ids"`
	Secret string   `json:"-"   yaml:"-"`
}

// ServerConfig controls the HTTP front-end.
type ServerConfig struct {
	Addr         string        `json:"addr"          yaml:"addr"          validate:"required"`
	ReadTimeout  time.Duration `json:"read_timeout"  yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	// BodyLimit caps uploads in bytes.
	BodyLimit int `json:"body_limit" yaml:"body_limit" validate:"gte=0"`
}

// DispatcherConfig bounds concurrent event processing.
type DispatcherConfig struct {
	Workers int `json:"workers" yaml:"workers" validate:"gte=0"`
}

// Default returns the production defaults without credentials.
func Default() *Config {
	return &Config{
		LLM:         *configuration.DefaultConfig(),
		Extract:     extract.DefaultConfig(),
		Readability: readability.DefaultConfig(),
		Scoring:     scoring.DefaultConfig(),
		Segment:     SegmentConfig{Limit: segment.DefaultLimit},
		Store: StoreConfig{
			Backend:   StoreMemory,
			KeyPrefix: store.DefaultKeyPrefix,
			TTL:       store.DefaultTTL,
		},
		Knowledge: KnowledgeConfig{LedgerPath: "mentor.db"},
		RateLimit: ratelimit.DefaultConfig(),
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
			BodyLimit:    20 << 20,
		},
		Dispatcher: DispatcherConfig{Workers: 8},
		Temporal:   worker.DefaultConfig(),
		Logging:    logging.DefaultConfig(),
	}
}

// Load builds the configuration. path may be empty; envFile is loaded when
// it exists and never overrides variables already set.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables. lookup has the
// signature of os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	for name, p := range c.LLM.Providers {
		if p.APIKeyEnv != "" {
			str(p.APIKeyEnv, &p.APIKey)
		}
		c.LLM.Providers[name] = p
	}
	str("OPENAI_MODEL", &c.LLM.Model)
	if p, ok := c.LLM.Providers[configuration.ProviderOpenAI]; ok {
		str("OPENAI_BASE_URL", &p.Endpoint)
		c.LLM.Providers[configuration.ProviderOpenAI] = p
	}

	str("VECTOR_STORE_ID", &c.Knowledge.SourceID)
	str("MENTOR_LEDGER_PATH", &c.Knowledge.LedgerPath)
	str("ADMIN_SECRET", &c.Admin.Secret)
	if v, ok := lookup("ADMIN_IDS"); ok {
		c.Admin.IDs = splitList(v)
	} else if v, ok := lookup("ADMIN_TELEGRAM_IDS"); ok {
		c.Admin.IDs = splitList(v)
	}

	if v, ok := lookup("REDIS_ADDR"); ok && v != "" {
		c.Store.Backend = StoreRedis
		c.Store.RedisAddr = v
	}
	str("REDIS_PASSWORD", &c.Store.RedisPassword)
	str("MENTOR_HTTP_ADDR", &c.Server.Addr)
	str("TEMPORAL_ADDRESS", &c.Temporal.HostPort)
	str("TEMPORAL_NAMESPACE", &c.Temporal.Namespace)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)

	if v, ok := lookup("MENTOR_LOG_PROMPTS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MENTOR_LOG_PROMPTS: %w", err)
		}
		c.LLM.Observability.LogPrompts = b
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks the service settings and the generation client settings.
// A missing API key is reported here so the process fails at startup.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate_limit: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
