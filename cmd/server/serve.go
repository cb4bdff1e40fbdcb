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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"MicroblogServer/internal/auth"
	"MicroblogServer/internal/config"
	"MicroblogServer/internal/content"
	"MicroblogServer/internal/email"
	"MicroblogServer/internal/httpapi"
	"MicroblogServer/internal/metrics"
	"MicroblogServer/internal/service"
	"MicroblogServer/internal/store/memory"
	"MicroblogServer/internal/store/postgres"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

// stores groups the persistence interfaces the services need, so the server
// can run on Postgres or, without APP_DB_DSN, on the in-memory store.
type stores struct {
	accounts      service.AccountsStore
	tokens        service.TokenStore
	resets        service.ResetAccountsStore
	sessions      service.SessionsStore
	relationships service.RelationshipsStore
	posts         service.PostsStore
	ping          func(context.Context) error
	close         func()
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (stores, error) {
	if cfg.DBDSN == "" {
		logger.Warn("APP_DB_DSN not set: using in-memory store, data is lost on restart")
		m := memory.New()
		return stores{
			accounts:      m,
			tokens:        m,
			resets:        m,
			sessions:      m,
			relationships: m,
			posts:         m,
			close:         func() {},
		}, nil
	}

	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, cfg.DBDSN); err != nil {
			return stores{}, err
		}
		logger.Info("migrations applied")
	}

	pool, err := postgres.Open(ctx, cfg.DBDSN)
	if err != nil {
		return stores{}, fmt.Errorf("db open: %w", err)
	}
	accounts := postgres.NewAccountsStore(pool)
	return stores{
		accounts:      accounts,
		tokens:        accounts,
		resets:        accounts,
		sessions:      postgres.NewSessionsStore(pool),
		relationships: postgres.NewRelationshipsStore(pool),
		posts:         postgres.NewPostsStore(pool),
		ping:          pool.Ping,
		close:         pool.Close,
	}, nil
}

func newMailer(cfg config.Config, logger *slog.Logger) service.Mailer {
	if !cfg.SMTP.Enabled() {
		logger.Info("smtp disabled: activation and reset mails are logged only")
		return service.LogMailer{Logger: logger}
	}
	return &service.EmailService{
		SMTP: email.SMTPSettings{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			TLSMode:  cfg.SMTP.TLSMode,
		},
		FromEmail: cfg.SMTP.FromEmail,
		FromName:  cfg.SMTP.FromName,
		PublicURL: cfg.PublicURL,
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	tokens := &service.TokenService{
		Store:    st.tokens,
		Mailer:   newMailer(cfg, logger),
		ResetTTL: cfg.ResetTokenTTL,
		Logger:   logger,
		Now:      time.Now,
	}
	authSvc := &service.AuthService{
		Accounts:            st.accounts,
		Sessions:            st.sessions,
		Tokens:              tokens,
		SessionTTL:          cfg.SessionTTL,
		Events:              collector,
		Now:                 time.Now,
		GoogleClientID:      cfg.GoogleClientID,
		AppleServiceID:      cfg.AppleServiceID,
		VerifyGoogleIDToken: auth.VerifyGoogleIDToken,
		VerifyAppleIDToken:  auth.VerifyAppleIDToken,
	}
	accountsSvc := &service.AccountService{Accounts: st.accounts, Tokens: tokens, Events: collector, Now: time.Now}

	if err := bootstrapAdmin(ctx, logger, accountsSvc, cfg); err != nil {
		return err
	}

	apiRouter := httpapi.NewRouter(httpapi.RouterOpts{
		Logger:   logger,
		IsProd:   cfg.IsProd(),
		DBPing:   st.ping,
		Auth:     authSvc,
		Accounts: accountsSvc,
		Resets: &service.PasswordResetService{
			Accounts: st.resets,
			Tokens:   tokens,
			Auth:     authSvc,
			Events:   collector,
		},
		Graph: &service.GraphService{Accounts: st.accounts, Relationships: st.relationships},
		Feed: &service.FeedService{
			Posts:     st.posts,
			Accounts:  st.accounts,
			Sanitizer: content.NewSanitizer(),
			Events:    collector,
			Now:       time.Now,
		},
		Metrics:        collector,
		MetricsHandler: metrics.Handler(reg),
		CookieCodec:    auth.NewCookieCodec([]byte(cfg.CookieSecret)),
		CookieSecure:   cfg.CookieSecure(),
		SessionTTL:     cfg.SessionTTL,
		RememberTTL:    cfg.RememberTTL,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiRouter,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "env", cfg.Env, "addr", cfg.Addr, "db_enabled", cfg.DBDSN != "")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			return err
		}
		return nil
	}
}

func bootstrapAdmin(ctx context.Context, logger *slog.Logger, accounts *service.AccountService, cfg config.Config) error {
	if cfg.AdminBootstrapPassword == "" {
		return nil
	}
	acct, created, err := accounts.Bootstrap(ctx, cfg.AdminBootstrapName, cfg.AdminBootstrapEmail, cfg.AdminBootstrapPassword)
	if err != nil {
		return fmt.Errorf("admin bootstrap: %w", err)
	}
	if created {
		logger.Info("admin bootstrap: created admin account", "account_id", acct.ID)
	} else {
		logger.Info("admin bootstrap: account already exists", "account_id", acct.ID)
	}
	return nil
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
