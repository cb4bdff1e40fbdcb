package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"MicroblogServer/internal/auth"
	"MicroblogServer/internal/metrics"
	"MicroblogServer/internal/service"
)

type RouterOpts struct {
	Logger *slog.Logger
	IsProd bool

	DBPing func(context.Context) error

	Auth     *service.AuthService
	Accounts *service.AccountService
	Resets   *service.PasswordResetService
	Graph    *service.GraphService
	Feed     *service.FeedService

	Metrics        *metrics.Collector
	MetricsHandler http.Handler

	CookieCodec  auth.CookieCodec
	CookieSecure bool
	SessionTTL   time.Duration
	RememberTTL  time.Duration
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	api := &api{
		logger:       logger,
		isProd:       opts.IsProd,
		dbPing:       opts.DBPing,
		authSvc:      opts.Auth,
		accountsSvc:  opts.Accounts,
		resetSvc:     opts.Resets,
		graphSvc:     opts.Graph,
		feedSvc:      opts.Feed,
		cookieCodec:  opts.CookieCodec,
		cookieSecure: opts.CookieSecure,
		sessionTTL:   opts.SessionTTL,
		rememberTTL:  opts.RememberTTL,
		loginLimiter: newLoginLimiter(),
	}

	publicMux := http.NewServeMux()
	apiMux := http.NewServeMux()

	publicMux.HandleFunc("GET /healthz", api.handleHealthz)
	if opts.MetricsHandler != nil {
		publicMux.Handle("GET /metrics", opts.MetricsHandler)
	}

	if api.authSvc == nil {
		apiMux.HandleFunc("POST /v1/auth/login", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/google", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/apple", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/logout", handleNotImplemented)
		apiMux.HandleFunc("GET /v1/auth/me", handleNotImplemented)
	} else {
		apiMux.HandleFunc("POST /v1/auth/login", api.handleAuthLogin)
		apiMux.HandleFunc("POST /v1/auth/google", api.handleAuthLoginGoogle)
		apiMux.HandleFunc("POST /v1/auth/apple", api.handleAuthLoginApple)
		apiMux.HandleFunc("POST /v1/auth/logout", api.requireAuth(api.handleAuthLogout))
		apiMux.HandleFunc("GET /v1/auth/me", api.requireAuth(api.handleAuthMe))

		if api.accountsSvc != nil {
			apiMux.HandleFunc("POST /v1/accounts", api.handleAccountsCreate)
			apiMux.HandleFunc("POST /v1/accounts/activate", api.handleAccountsActivate)
			apiMux.HandleFunc("GET /v1/accounts", api.requireAuth(api.handleAccountsList))
			apiMux.HandleFunc("GET /v1/accounts/{id}", api.handleAccountsShow)
			apiMux.HandleFunc("PATCH /v1/accounts/{id}", api.requireAuth(api.handleAccountsUpdate))
			apiMux.HandleFunc("DELETE /v1/accounts/{id}", api.requireAuth(api.handleAccountsDestroy))
		}

		if api.resetSvc != nil {
			apiMux.HandleFunc("POST /v1/password-resets", api.handlePasswordResetCreate)
			apiMux.HandleFunc("GET /v1/password-resets/{token}", api.handlePasswordResetCheck)
			apiMux.HandleFunc("PATCH /v1/password-resets/{token}", api.handlePasswordResetUpdate)
		}

		if api.graphSvc != nil {
			apiMux.HandleFunc("POST /v1/accounts/{id}/follow", api.requireAuth(api.handleFollow))
			apiMux.HandleFunc("DELETE /v1/accounts/{id}/follow", api.requireAuth(api.handleUnfollow))
			apiMux.HandleFunc("GET /v1/accounts/{id}/followers", api.requireAuth(api.handleFollowers))
			apiMux.HandleFunc("GET /v1/accounts/{id}/following", api.requireAuth(api.handleFollowing))
		}

		if api.feedSvc != nil {
			apiMux.HandleFunc("GET /v1/feed", api.requireAuth(api.handleFeed))
			apiMux.HandleFunc("POST /v1/posts", api.requireAuth(api.handlePostsCreate))
			apiMux.HandleFunc("DELETE /v1/posts/{id}", api.requireAuth(api.handlePostsDelete))
			apiMux.HandleFunc("GET /v1/accounts/{id}/posts", api.handleAccountPosts)
		}
	}

	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, pattern := apiMux.Handler(r)
		if pattern == "" {
			handleV1NotFound(w, r)
			return
		}
		setRoutePattern(r.Context(), pattern)
		h.ServeHTTP(w, r)
	})

	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/") || r.URL.Path == "/v1" {
			apiHandler.ServeHTTP(w, r)
			return
		}
		if _, pattern := publicMux.Handler(r); pattern != "" {
			setRoutePattern(r.Context(), pattern)
		}
		publicMux.ServeHTTP(w, r)
	})

	var h http.Handler = root
	h = RequestMetrics(opts.Metrics)(h)
	h = RequestLogger(logger)(h)
	h = RequestID()(h)
	h = Recoverer(logger, opts.IsProd)(h)
	return h
}

func handleNotImplemented(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotImplemented, "not_implemented", "not implemented")
}

func handleV1NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotFound, "not_found", "not found")
}

type api struct {
	logger *slog.Logger
	isProd bool

	dbPing func(context.Context) error

	authSvc      *service.AuthService
	accountsSvc  *service.AccountService
	resetSvc     *service.PasswordResetService
	graphSvc     *service.GraphService
	feedSvc      *service.FeedService
	cookieCodec  auth.CookieCodec
	cookieSecure bool
	sessionTTL   time.Duration
	rememberTTL  time.Duration

	loginLimiter *loginLimiter
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if a.dbPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()
		if err := a.dbPing(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db down"))
			return
		}
	}

	_, _ = w.Write([]byte("ok"))
}
