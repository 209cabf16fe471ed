package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration for the assistant and auditor services.
type Config struct {
	// Server
	Port           int           `env:"PORT" envDefault:"8080"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`

	// Upload limits
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"` // 10MB in bytes
	PreviewLength int   `env:"PREVIEW_LENGTH" envDefault:"1000"`

	// Sessions
	SessionProvider string        `env:"SESSION_PROVIDER" envDefault:"memory"` // "memory", "redis" or "postgres"
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	RedisAddr       string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	DBURL           string        `env:"DB_URL"`

	// Queue
	QueueProvider string `env:"QUEUE_PROVIDER" envDefault:"none"` // "none" or "nats"
	QueueURL      string `env:"QUEUE_URL"`

	// Chat completion
	LLMProvider    string  `env:"LLM_PROVIDER" envDefault:"groq"` // "groq", "openai" or "gemini"
	GroqAPIKey     string  `env:"GROQ_API_KEY"`
	OpenAIKey      string  `env:"OPENAI_API_KEY"`
	GeminiAPIKey   string  `env:"GEMINI_API_KEY"`
	LLMModel       string  `env:"LLM_MODEL" envDefault:"llama3-8b-8192"`
	LLMBaseURL     string  `env:"LLM_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	LLMTemperature float64 `env:"LLM_TEMPERATURE" envDefault:"0.7"`

	// Hugging Face inference hub
	HFToken          string `env:"HUGGINGFACE_TOKEN"`
	HFInferenceURL   string `env:"HF_INFERENCE_URL" envDefault:"https://api-inference.huggingface.co/models"`
	HFHubURL         string `env:"HF_HUB_URL" envDefault:"https://huggingface.co"`
	EntityModel      string `env:"ENTITY_MODEL" envDefault:"d4data/biomedical-ner-all"`
	EntitiesEnabled  bool   `env:"ENTITIES_ENABLED" envDefault:"true"`
	CaptionModel     string `env:"CAPTION_MODEL" envDefault:"Salesforce/blip-image-captioning-large"`
	CapabilitiesFile string `env:"CAPABILITIES_FILE"`

	// Diabetes risk classifier artifact: a local path or "<repo>/<file>" on the hub.
	RiskModelSource string `env:"RISK_MODEL_SOURCE" envDefault:"models/diabetes_logreg.json"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}

// TurnTimeout bounds a whole HTTP turn: two sequential remote calls plus storage.
func (c Config) TurnTimeout() time.Duration {
	return 2*c.RequestTimeout + 10*time.Second
}

// ChatAPIKey returns the credential for the selected chat provider.
func (c Config) ChatAPIKey() string {
	switch c.LLMProvider {
	case "openai":
		return c.OpenAIKey
	case "gemini":
		return c.GeminiAPIKey
	default:
		return c.GroqAPIKey
	}
}
