package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"med-assistant/internal/assistant"
	"med-assistant/internal/chunker"
	"med-assistant/internal/config"
	"med-assistant/internal/inference"
	"med-assistant/internal/llm"
	"med-assistant/internal/logger"
	"med-assistant/internal/metrics"
	"med-assistant/internal/queue"
	"med-assistant/internal/risk"
	"med-assistant/internal/session"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// Deps bundles the assistant service's runtime dependencies.
type Deps struct {
	Config    config.Config
	Log       *slog.Logger
	Sessions  session.Store
	Queue     queue.Queue
	LLM       llm.Client
	Entities  inference.EntityExtractor
	Captioner inference.Captioner
	// Risk is nil when the artifact failed to load; Predict then reports risk.ErrUnavailable.
	Risk      *risk.Model
	Metrics   *metrics.Collector
	Assistant *assistant.Orchestrator

	closers []func() error
}

// Close releases connections opened by Build.
func (d Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AuditorDeps bundles what the audit consumer needs.
type AuditorDeps struct {
	Config  config.Config
	Log     *slog.Logger
	Queue   queue.Queue
	Metrics *metrics.Collector
}

// Build loads env, config, and shared components.
func Build(ctx context.Context) (Deps, error) {
	cfg, log, err := loadEnv()
	if err != nil {
		return Deps{}, err
	}
	deps := Deps{Config: cfg, Log: log, Metrics: metrics.NewCollector("medassistant")}

	sessions, err := buildSessions(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize session store: %w", err)
	}
	deps.Sessions = sessions
	deps.closers = append(deps.closers, sessions.Close)

	q, closeQueue, err := buildQueue(cfg, log)
	if err != nil {
		_ = deps.Close()
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	deps.Queue = q
	deps.closers = append(deps.closers, closeQueue)

	caps, err := buildCapabilities(cfg)
	if err != nil {
		_ = deps.Close()
		return Deps{}, fmt.Errorf("failed to load capabilities: %w", err)
	}

	chat, closeChat, err := buildLLM(ctx, cfg, caps.Chat, log)
	if err != nil {
		_ = deps.Close()
		return Deps{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	deps.LLM = chat
	deps.closers = append(deps.closers, closeChat)

	deps.Entities, deps.Captioner, err = buildHub(cfg, caps, log)
	if err != nil {
		_ = deps.Close()
		return Deps{}, fmt.Errorf("failed to initialize inference hub clients: %w", err)
	}

	deps.Risk = buildRisk(ctx, cfg, log)

	deps.Assistant = assistant.New(chat, assistant.Options{
		Entities:      deps.Entities,
		Captioner:     deps.Captioner,
		Queue:         deps.Queue,
		Metrics:       deps.Metrics,
		Log:           log,
		Chunking:      chunker.Options{},
		PreviewLength: cfg.PreviewLength,
	})
	return deps, nil
}

// BuildAuditor loads config and connects the queue for the audit consumer.
func BuildAuditor() (AuditorDeps, func() error, error) {
	cfg, log, err := loadEnv()
	if err != nil {
		return AuditorDeps{}, nil, err
	}
	if cfg.QueueProvider != "nats" {
		return AuditorDeps{}, nil, fmt.Errorf("auditor requires QUEUE_PROVIDER=nats, got %q", cfg.QueueProvider)
	}
	q, closeQueue, err := buildQueue(cfg, log)
	if err != nil {
		return AuditorDeps{}, nil, fmt.Errorf("failed to initialize queue: %w", err)
	}
	return AuditorDeps{
		Config:  cfg,
		Log:     log,
		Queue:   q,
		Metrics: metrics.NewCollector("medauditor"),
	}, closeQueue, nil
}

// loadEnv reads an optional .env file, then the process environment.
func loadEnv() (config.Config, *slog.Logger, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.Config{}, nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	return cfg, logger.New(cfg.LogLevel), nil
}

func buildSessions(cfg config.Config, log *slog.Logger) (session.Store, error) {
	switch cfg.SessionProvider {
	case "memory", "":
		log.Info("using in-memory session store", "ttl", cfg.SessionTTL)
		return session.NewMemoryStore(cfg.SessionTTL), nil
	case "redis":
		st, err := session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL)
		if err != nil {
			return nil, err
		}
		log.Info("using Redis session store", "addr", cfg.RedisAddr, "ttl", cfg.SessionTTL)
		return st, nil
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when SESSION_PROVIDER=postgres")
		}
		st, err := session.NewPostgres(cfg.DBURL, cfg.SessionTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres session store", "ttl", cfg.SessionTTL)
		return st, nil
	default:
		return nil, fmt.Errorf("invalid SESSION_PROVIDER: %s (valid options: memory, redis, postgres)", cfg.SessionProvider)
	}
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, func() error, error) {
	switch cfg.QueueProvider {
	case "none", "":
		log.Info("turn events disabled")
		return queue.NewNoop(), func() error { return nil }, nil
	case "nats":
		if cfg.QueueURL == "" {
			return nil, nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.QueueURL, nats.Name("med-assistant"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue")
		return queue.NewNATS(log, nc), nc.Drain, nil
	default:
		return nil, nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid options: none, nats)", cfg.QueueProvider)
	}
}

func buildCapabilities(cfg config.Config) (inference.Capabilities, error) {
	caps := inference.DefaultCapabilities(cfg.LLMModel, cfg.LLMBaseURL, cfg.LLMTemperature,
		cfg.HFInferenceURL, cfg.EntityModel, cfg.CaptionModel)
	return inference.LoadCapabilities(cfg.CapabilitiesFile, caps)
}

func buildLLM(ctx context.Context, cfg config.Config, spec inference.Capability, log *slog.Logger) (llm.Client, func() error, error) {
	key := cfg.ChatAPIKey()
	noop := func() error { return nil }
	switch cfg.LLMProvider {
	case "groq", "openai":
		if key == "" {
			return nil, nil, fmt.Errorf("API key is required when LLM_PROVIDER=%s", cfg.LLMProvider)
		}
		if cfg.LLMProvider == "openai" && spec.Endpoint == groqBaseURL {
			spec.Endpoint = ""
		}
		client, err := llm.NewOpenAIClient(key, spec, cfg.RequestTimeout, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize %s client: %w", cfg.LLMProvider, err)
		}
		log.Info("using OpenAI-compatible chat client", "provider", cfg.LLMProvider, "model", spec.Model)
		return client, noop, nil
	case "gemini":
		if key == "" {
			return nil, nil, fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
		client, err := llm.NewGeminiClient(ctx, key, spec, cfg.RequestTimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
		}
		log.Info("using Gemini chat client", "model", spec.Model)
		return client, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid options: groq, openai, gemini)", cfg.LLMProvider)
	}
}

// buildHub returns nil clients for capabilities that are switched off or lack a token.
func buildHub(cfg config.Config, caps inference.Capabilities, log *slog.Logger) (inference.EntityExtractor, inference.Captioner, error) {
	if cfg.HFToken == "" {
		log.Warn("HUGGINGFACE_TOKEN not set; entity extraction and image description disabled")
		return nil, nil, nil
	}
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}

	var entities inference.EntityExtractor
	if cfg.EntitiesEnabled {
		c, err := inference.NewHFEntityClient(caps.Entities, cfg.HFToken, cfg.RequestTimeout, httpClient)
		if err != nil {
			return nil, nil, err
		}
		entities = c
		log.Info("entity extraction enabled", "model", caps.Entities.Model)
	}

	captioner, err := inference.NewHFCaptionClient(caps.Caption, cfg.HFToken, cfg.RequestTimeout, httpClient)
	if err != nil {
		return nil, nil, err
	}
	log.Info("image description enabled", "model", caps.Caption.Model)
	return entities, captioner, nil
}

// buildRisk loads the classifier once. A failure leaves the predictor unavailable, not the service.
func buildRisk(ctx context.Context, cfg config.Config, log *slog.Logger) *risk.Model {
	if cfg.RiskModelSource == "" {
		log.Warn("RISK_MODEL_SOURCE not set; diabetes prediction disabled")
		return nil
	}
	model, err := risk.Load(ctx, risk.Source{
		Ref:    cfg.RiskModelSource,
		HubURL: cfg.HFHubURL,
		Token:  cfg.HFToken,
		HTTP:   &http.Client{Timeout: cfg.RequestTimeout},
	})
	if err != nil {
		log.Error("failed to load diabetes risk model; prediction disabled", "source", cfg.RiskModelSource, "err", err)
		return nil
	}
	log.Info("diabetes risk model loaded", "source", cfg.RiskModelSource)
	return model
}
