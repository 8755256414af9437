package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/chatwire/chatwire/api"
	"github.com/chatwire/chatwire/auth"
	"github.com/chatwire/chatwire/chat"
	"github.com/chatwire/chatwire/config"
	"github.com/chatwire/chatwire/pkg/server"
	"github.com/chatwire/chatwire/store"
	"github.com/chatwire/chatwire/ws"
	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout,
		&slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("exit", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	serverCtx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	defer stop()

	db, err := sql.Open("sqlite3", "file:"+cfg.SQLite.File)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	goose.SetBaseFS(os.DirFS(cfg.SQLite.Migrations))
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}

	tokenOptions := auth.TokenOptions{
		Secret: cfg.Auth.Secret,
		Exp:    cfg.Auth.TokenExp,
	}

	messageStore := store.NewSQLiteMessageStore(db)

	hub := ws.New(
		ws.NewWSConnFactory(ws.WithConnLogger(logger)),
		auth.NewTokenAuthenticator(tokenOptions),
		ws.WithLogger(logger),
		ws.WithBaseContext(serverCtx),
	)

	relay := chat.New(messageStore,
		chat.WithLogger(logger),
		chat.WithPersistTimeout(cfg.Relay.PersistTimeout),
		chat.WithTypingTTL(cfg.Relay.TypingTTL),
	)
	relay.Bind(hub)
	relay.Start(serverCtx)
	hub.Start()

	_api := api.NewApi(api.ApiConfig{
		TokenOptions:   tokenOptions,
		AllowedOrigins: cfg.AllowedOrigins,
	}, messageStore, relay)

	r := chi.NewRouter()
	r.Mount("/api", _api.Mux())
	r.Get("/ws", hub.ServeHTTP)

	s := server.Server{
		Server: &http.Server{
			Handler: r,
			Addr:    cfg.Addr(),
		},
		CleanUpFuncs: []func(ctx context.Context){
			func(ctx context.Context) { hub.Close() },
			func(ctx context.Context) {
				if err := db.Close(); err != nil {
					logger.Error("close db", slog.Any("err", err))
				}
			},
		},
		Logger: logger,
	}

	return s.Start(serverCtx)
}
