package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lexragph/lexrag"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (JSON)")
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	// Local development keeps secrets in a .env file.
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded environment from .env")
	}

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := lexrag.DefaultConfig()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			slog.Error("opening config", "error", err)
			os.Exit(1)
		}
		if err := json.NewDecoder(f).Decode(&cfg); err != nil {
			f.Close()
			slog.Error("parsing config", "error", err)
			os.Exit(1)
		}
		f.Close()
	}

	// Override from environment variables.
	if v := os.Getenv("LEXRAG_KB_BASE_URL"); v != "" {
		cfg.KBBaseURL = v
	}
	if v := os.Getenv("LEXRAG_KB_API_SECRET"); v != "" {
		cfg.KBAPISecret = v
	}
	if v := os.Getenv("LEXRAG_KB_ENABLED"); v != "" {
		cfg.KBEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("LEXRAG_SQG_ENABLED"); v != "" {
		cfg.SQGEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("LEXRAG_SQG_MODEL"); v != "" {
		cfg.SQGModel = v
	}
	if v := os.Getenv("LEXRAG_SQG_PROVIDER"); v != "" {
		cfg.Structuring.Provider = v
	}
	if v := os.Getenv("LEXRAG_SQG_BASE_URL"); v != "" {
		cfg.Structuring.BaseURL = v
	}
	if v := os.Getenv("LEXRAG_SQG_API_KEY"); v != "" {
		cfg.Structuring.APIKey = v
	}
	if v := os.Getenv("LEXRAG_AUDIT_DB_PATH"); v != "" {
		cfg.AuditDBPath = v
	}
	if v := os.Getenv("LEXRAG_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TopK = n
		}
	}

	// Fallback: check well-known provider env vars for API keys.
	if cfg.Structuring.APIKey == "" {
		switch cfg.Structuring.Provider {
		case "openai":
			cfg.Structuring.APIKey = os.Getenv("OPENAI_API_KEY")
		case "groq":
			cfg.Structuring.APIKey = os.Getenv("GROQ_API_KEY")
		}
	}

	apiKey := os.Getenv("LEXRAG_API_KEY")

	engine, err := lexrag.New(cfg)
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	h := newHandler(engine)
	mux := http.NewServeMux()

	mux.HandleFunc("POST /chat", h.handleChat)
	mux.HandleFunc("POST /search", h.handleSearch)
	mux.HandleFunc("GET /health", h.handleHealth)

	// Middleware chain: recovery -> auth -> request id -> logging -> mux
	var handler http.Handler = mux
	handler = logMiddleware(handler)
	handler = requestIDMiddleware(handler)
	handler = authMiddleware(apiKey, handler)
	handler = recoveryMiddleware(handler)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}
