package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/avieira/kindlepost/internal/bot"
	"github.com/avieira/kindlepost/internal/config"
	"github.com/avieira/kindlepost/internal/mailer"
	"github.com/avieira/kindlepost/internal/session"
)

func main() {
	// Secrets may live in a .env next to the binary during development.
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found")
	}

	path := os.Getenv("KINDLEPOST_CONFIG")
	if path == "" {
		path = "config.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state := session.NewState()
	smtp := mailer.NewSMTP(cfg.SMTP.Address, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From, cfg.Kindle.Address)

	tgBot, err := bot.New(cfg.Telegram, state, smtp)
	if err != nil {
		slog.Error("telegram setup failed", "error", err)
		os.Exit(1)
	}

	watchdog := session.NewWatchdog(state, tgBot, bot.IdleSummary,
		time.Duration(cfg.Session.PollInterval), time.Duration(cfg.Session.IdleTimeout))
	go watchdog.Run(ctx)

	if cfg.Telegram.WebhookURL != "" {
		runWebhook(ctx, cfg.Telegram, tgBot)
	} else {
		if err := tgBot.DeleteWebhook(ctx); err != nil {
			slog.Warn("delete webhook failed", "error", err)
		}
		tgBot.Start(ctx)
	}

	slog.Info("shutting down")
}

// runWebhook serves Telegram pushes plus a plain liveness page. Blocks
// until ctx is cancelled.
func runWebhook(ctx context.Context, cfg config.TelegramConfig, tgBot *bot.Bot) {
	mux := http.NewServeMux()
	mux.Handle("/webhook", tgBot.WebhookHandler())
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "kindlepost online")
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	go func() {
		slog.Info("http server listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
		}
	}()

	if err := tgBot.StartWebhook(ctx, cfg.WebhookURL+"/webhook"); err != nil {
		slog.Error("webhook start failed", "error", err)
		os.Exit(1)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
