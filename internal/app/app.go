package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/activation"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/pflag"
	"golang.org/x/net/http2"

	"chat-relay/backend/internal/api"
	"chat-relay/backend/internal/config"
	"chat-relay/backend/internal/llm"
	"chat-relay/backend/internal/metrics"
	"chat-relay/backend/internal/prompt"
	"chat-relay/backend/internal/service"
)

const (
	shutdownTimeout  = 15 * time.Second
	backendWaitLimit = 2 * time.Minute
	backendPollEvery = 3 * time.Second
)

// App owns the generator handle and the HTTP server built around it.
type App struct {
	cfg       *config.Config
	generator llm.Generator
	server    *http.Server
}

// NewApp constructs the single generator selected by cfg.Backend and wires
// the relay service, handlers and router around it.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	generator, err := newGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}

	style := cfg.Style()
	builder := prompt.NewBuilder(style, cfg.SystemPrompt, cfg.StopToken, cfg.HistoryWindow)
	cleaner := prompt.NewCleaner(style, cfg.StopToken, cfg.FallbackResponse)
	genCfg := llm.GenerationConfig{
		MaxNewTokens: cfg.MaxNewTokens,
		Temperature:  cfg.Temperature,
		TopP:         cfg.TopP,
		DoSample:     cfg.DoSample,
		StopToken:    cfg.StopToken,
	}
	m := metrics.New()

	relayService := service.NewRelayService(generator, builder, cleaner, genCfg, m)
	router := api.NewRouter(
		api.NewChatHandler(relayService),
		api.NewHealthHandler(relayService),
		m.Handler(),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		WriteTimeout:      0, // Generation has no upper bound.
		IdleTimeout:       120 * time.Second,
	}
	if err := http2.ConfigureServer(server, nil); err != nil {
		return nil, fmt.Errorf("failed to configure http2: %w", err)
	}

	slog.Info("Generation backend ready",
		"backend", generator.Name(),
		"model", generator.Model(),
		"prompt_style", style,
	)
	return &App{cfg: cfg, generator: generator, server: server}, nil
}

func newGenerator(ctx context.Context, cfg *config.Config) (llm.Generator, error) {
	switch cfg.Backend {
	case config.BackendPipeline:
		return llm.NewOllamaGenerator(cfg.OllamaURL, cfg.OllamaModel, cfg.GenerationTimeout), nil
	case config.BackendModel:
		return llm.NewCompletionsGenerator(cfg.LocalModelURL, cfg.LocalModel, cfg.LocalModelAPIKey, cfg.GenerationTimeout), nil
	case config.BackendRemote:
		if cfg.HFAPIToken == "" {
			slog.Warn("HF_API_TOKEN is not set; every chat request will fail")
		}
		return llm.NewInferenceGenerator(cfg.InferenceURL(), cfg.HFModel, cfg.HFAPIToken, cfg.GenerationTimeout), nil
	case config.BackendGemini:
		if cfg.GeminiAPIKey == "" {
			slog.Warn("GEMINI_API_KEY is not set; every chat request will fail")
		}
		return llm.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// Handler exposes the router, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Serve accepts connections on ln until ctx is cancelled, then drains
// in-flight requests.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Serve(ln)
	}()

	slog.Info("Starting server", "addr", ln.Addr().String())
	notify(daemon.SdNotifyReady)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	notify(daemon.SdNotifyStopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the generator's resources, if it holds any.
func (a *App) Close() error {
	if closer, ok := a.generator.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func Run(args []string) int {
	flags := pflag.NewFlagSet("chat-relay", pflag.ContinueOnError)
	configFile := flags.String("config", "", "path to an optional YAML config file")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		slog.Error("Failed to parse flags", "error", err)
		return 2
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		// slog is not yet configured, so use the default logger for this critical error.
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	setupLogger(cfg.LogLevel)

	logConfigSource(cfg.ConfigFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.WaitForBackend {
		if url := probeURL(cfg); url != "" {
			waitCtx, cancel := context.WithTimeout(ctx, backendWaitLimit)
			err := waitForBackend(waitCtx, url)
			cancel()
			if err != nil {
				slog.Error("Generation backend did not become ready", "url", url, "error", err)
				return 1
			}
		}
	}

	a, err := NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("Failed to close generation backend", "error", err)
		}
	}()

	ln, err := listen(cfg.AppPort)
	if err != nil {
		slog.Error("Failed to open listener", "error", err)
		return 1
	}

	if err := a.Serve(ctx, ln); err != nil {
		slog.Error("Server failed", "error", err)
		return 1
	}
	return 0
}

// listen prefers a systemd-activated socket and falls back to APP_PORT.
func listen(port int) (net.Listener, error) {
	listeners, err := activation.Listeners()
	if err != nil {
		return nil, fmt.Errorf("failed to read activated sockets: %w", err)
	}
	for _, ln := range listeners {
		if ln != nil {
			slog.Info("Using socket-activated listener", "addr", ln.Addr().String())
			return ln, nil
		}
	}
	return net.Listen("tcp", fmt.Sprintf(":%d", port))
}

func notify(state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		slog.Warn("Failed to notify systemd", "state", state, "error", err)
	}
}

func logConfigSource(configFileUsed string) {
	if configFileUsed != "" {
		slog.Info("Successfully loaded configuration from file.", "file", configFileUsed)
	} else {
		slog.Info("Configuration file not given. Using environment variables and defaults.")
	}
}

func setupLogger(logLevel string) {
	var level slog.Level
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// probeURL is the address polled before serving. Hosted backends are not probed.
func probeURL(cfg *config.Config) string {
	switch cfg.Backend {
	case config.BackendPipeline:
		return cfg.OllamaURL
	case config.BackendModel:
		return strings.TrimSuffix(cfg.LocalModelURL, "/") + "/models"
	}
	return ""
}

// waitForBackend polls url until it answers without a server error or ctx ends.
func waitForBackend(ctx context.Context, url string) error {
	slog.Info("Waiting for generation backend to be ready...", "url", url)
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(backendPollEvery)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			if bErr := resp.Body.Close(); bErr != nil {
				slog.Warn("Failed to close response body in backend readiness check", "error", bErr)
			}
			if resp.StatusCode < http.StatusInternalServerError {
				slog.Info("Generation backend is ready.")
				return nil
			}
			err = fmt.Errorf("status %d", resp.StatusCode)
		}
		slog.Debug("Backend not ready yet, retrying...", "url", url, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
