package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"chat-relay/backend/internal/prompt"
)

// Backend names accepted in BACKEND.
const (
	BackendPipeline = "pipeline"
	BackendModel    = "model"
	BackendRemote   = "remote"
	BackendGemini   = "gemini"
)

const hfInferenceBaseURL = "https://api-inference.huggingface.co/models/"

type Config struct {
	AppPort  int    `mapstructure:"APP_PORT" validate:"min=1,max=65535"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	Backend      string `mapstructure:"BACKEND" validate:"oneof=pipeline model remote gemini"`
	PromptStyle  string `mapstructure:"PROMPT_STYLE" validate:"omitempty,oneof=preamble dialogue raw"`
	SystemPrompt string `mapstructure:"SYSTEM_PROMPT"`

	OllamaURL   string `mapstructure:"OLLAMA_URL" validate:"omitempty,url"`
	OllamaModel string `mapstructure:"OLLAMA_MODEL"`

	LocalModelURL    string `mapstructure:"LOCAL_MODEL_URL" validate:"omitempty,url"`
	LocalModel       string `mapstructure:"LOCAL_MODEL"`
	LocalModelAPIKey string `mapstructure:"LOCAL_MODEL_API_KEY"`

	HFModel    string `mapstructure:"HF_MODEL"`
	HFModelURL string `mapstructure:"HF_MODEL_URL" validate:"omitempty,url"`
	// HFAPIToken may be empty: the remote backend then fails per request.
	HFAPIToken string `mapstructure:"HF_API_TOKEN"`

	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel  string `mapstructure:"GEMINI_MODEL"`

	MaxNewTokens      int           `mapstructure:"MAX_NEW_TOKENS" validate:"min=1"`
	Temperature       float64       `mapstructure:"TEMPERATURE" validate:"min=0"`
	TopP              float64       `mapstructure:"TOP_P" validate:"min=0,max=1"`
	DoSample          bool          `mapstructure:"DO_SAMPLE"`
	StopToken         string        `mapstructure:"STOP_TOKEN"`
	HistoryWindow     int           `mapstructure:"HISTORY_WINDOW" validate:"min=1"`
	FallbackResponse  string        `mapstructure:"FALLBACK_RESPONSE"`
	GenerationTimeout time.Duration `mapstructure:"GENERATION_TIMEOUT" validate:"min=0"`
	WaitForBackend    bool          `mapstructure:"WAIT_FOR_BACKEND"`

	// ConfigFile is the file viper read, empty when only env and defaults apply.
	ConfigFile string `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", 8000)
	v.SetDefault("LOG_LEVEL", "INFO")

	v.SetDefault("BACKEND", BackendPipeline)
	v.SetDefault("PROMPT_STYLE", "")
	v.SetDefault("SYSTEM_PROMPT", prompt.DefaultSystemPrompt)

	v.SetDefault("OLLAMA_URL", "http://ollama:11434")
	v.SetDefault("OLLAMA_MODEL", "distilgpt2")

	v.SetDefault("LOCAL_MODEL_URL", "http://localhost:8080/v1")
	v.SetDefault("LOCAL_MODEL", "microsoft/DialoGPT-medium")
	v.SetDefault("LOCAL_MODEL_API_KEY", "")

	v.SetDefault("HF_MODEL", "gpt2")
	v.SetDefault("HF_MODEL_URL", "")
	v.SetDefault("HF_API_TOKEN", "")

	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")

	v.SetDefault("MAX_NEW_TOKENS", 150)
	v.SetDefault("TEMPERATURE", 0.7)
	v.SetDefault("TOP_P", 0.9)
	v.SetDefault("DO_SAMPLE", true)
	v.SetDefault("STOP_TOKEN", "<|endoftext|>")
	v.SetDefault("HISTORY_WINDOW", prompt.DefaultHistoryWindow)
	v.SetDefault("FALLBACK_RESPONSE", prompt.DefaultFallback)
	v.SetDefault("GENERATION_TIMEOUT", "0s")
	v.SetDefault("WAIT_FOR_BACKEND", false)
}

// LoadConfig resolves configuration from, in increasing priority: defaults,
// the optional config file, a .env file in the working directory and the
// process environment. An empty configFile skips the file lookup entirely.
func LoadConfig(configFile string) (*Config, error) {
	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.PromptStyle = strings.ToLower(strings.TrimSpace(cfg.PromptStyle))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags and reports every violation at once.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on the '%s' tag (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// Style returns PROMPT_STYLE, or the style each backend was designed around
// when it is unset.
func (c *Config) Style() prompt.Style {
	if s, err := prompt.ParseStyle(c.PromptStyle); err == nil {
		return s
	}
	switch c.Backend {
	case BackendPipeline:
		return prompt.StylePreamble
	case BackendModel:
		return prompt.StyleDialogue
	default:
		return prompt.StyleRaw
	}
}

// InferenceURL is HF_MODEL_URL, or the hosted inference endpoint for HF_MODEL.
func (c *Config) InferenceURL() string {
	if c.HFModelURL != "" {
		return c.HFModelURL
	}
	return hfInferenceBaseURL + c.HFModel
}
