package app

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	_ "github.com/lib/pq"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "dealdesk/docs"
	"dealdesk/internal/config"
	"dealdesk/internal/handlers"
	"dealdesk/internal/middleware"
	"dealdesk/internal/pdf"
	"dealdesk/internal/realtime"
	"dealdesk/internal/repositories"
	"dealdesk/internal/routes"
	"dealdesk/internal/services"
	"dealdesk/internal/web"
)

const shutdownTimeout = 10 * time.Second

// Run serves until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.Auth.GeneratedSecret {
		logger.Warn("auth.jwt_secret is not set, using a random one: sessions will not survive a restart")
	}

	// === Store ===
	store, closeStore, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// === Services ===
	notifier, err := NewNotifier(cfg, logger)
	if err != nil {
		return err
	}
	dealService := services.NewDealService(store, notifier, logger)
	// let in-flight closed-deal notices finish before the store goes away
	defer dealService.Wait()

	// === Gin ===
	router, err := NewRouter(cfg, dealService, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.WithStack(err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "could not shut down server")
		}
		return nil
	})
	return g.Wait()
}

// OpenDB opens and pings the Postgres database.
func OpenDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "could not open database")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "could not reach database")
	}
	return db, nil
}

// OpenStore returns the configured deal store. For Postgres it also starts
// the change listener, which stops with ctx.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (services.DealStore, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Info("using in-memory deal store, deals are lost on exit")
		return repositories.NewMemoryDealRepository(logger), func() {}, nil
	}

	db, err := OpenDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.Migrate {
		if err := repositories.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}

	repo := repositories.NewDealRepository(db, logger)
	listener := repositories.NewDealListener(cfg.Database.DSN, repo, logger)

	listenCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := listener.Run(listenCtx); err != nil {
			logger.Error("deal change listener stopped", zap.Error(err))
		}
	}()

	closeFn := func() {
		cancel()
		<-done
		if err := db.Close(); err != nil {
			logger.Warn("could not close database", zap.Error(err))
		}
	}
	return repo, closeFn, nil
}

// NewNotifier fans deal-closed events out to every configured channel.
func NewNotifier(cfg *config.Config, logger *zap.Logger) (services.DealNotifier, error) {
	var notifiers services.Notifiers
	if cfg.Email.Enabled() {
		notifiers = append(notifiers, services.NewEmailService(
			cfg.Email.SMTPHost,
			cfg.Email.SMTPPort,
			cfg.Email.SMTPUser,
			cfg.Email.SMTPPassword,
			cfg.Email.FromEmail,
		))
		logger.Info("email notifications enabled", zap.String("host", cfg.Email.SMTPHost))
	}
	if cfg.Telegram.Enabled() {
		tg, err := services.NewTelegramService(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, tg)
		logger.Info("telegram notifications enabled", zap.Int64("chat_id", cfg.Telegram.ChatID))
	}
	return notifiers, nil
}

// NewRouter wires sessions, providers and handlers around dealService.
func NewRouter(cfg *config.Config, dealService *services.DealService, logger *zap.Logger) (*gin.Engine, error) {
	sessionStore, err := newSessionStore(cfg)
	if err != nil {
		return nil, err
	}
	providers := setupProviders(cfg, sessionStore)

	tokens := middleware.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	sess := middleware.NewSessions(sessionStore, tokens, cfg.Auth.SessionMaxAge)
	hub := realtime.NewIdentityHub()

	authHandler := handlers.NewAuthHandler(sess, tokens, hub, cfg.Auth.LocalAccounts, providers, logger)
	dealHandler := handlers.NewDealHandler(dealService, pdf.NewDealListGenerator(cfg.Export.FontPath), logger)
	pageHandler := handlers.NewPageHandler(
		dealService,
		sess,
		hub,
		authHandler,
		web.PageTemplate(),
		realtime.NewUpgrader(cfg.Server.AllowedOrigins),
		cfg.Realtime.IntentsPerSecond,
		cfg.Realtime.IntentBurst,
		logger,
	)

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	if len(cfg.Server.AllowedOrigins) > 0 {
		router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	}

	routes.SetupRoutes(router, middleware.Identify(tokens, sess), pageHandler, authHandler, dealHandler)
	return router, nil
}

func newSessionStore(cfg *config.Config) (*sessions.CookieStore, error) {
	var keyPairs [][]byte
	for _, k := range cfg.Auth.SessionKeys {
		key, err := hex.DecodeString(k)
		if err != nil {
			return nil, errors.Wrap(err, "auth.session_keys must be hex encoded")
		}
		keyPairs = append(keyPairs, key)
	}
	if len(keyPairs) == 0 {
		// derived from the token secret so a configured secret keeps cookies valid
		keyPairs = append(keyPairs, []byte(cfg.Auth.JWTSecret))
	}

	store := sessions.NewCookieStore(keyPairs...)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.Auth.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	return store, nil
}

func setupProviders(cfg *config.Config, store sessions.Store) []handlers.Provider {
	baseURL := strings.TrimRight(cfg.Server.BaseURL, "/")
	gothProviders := make([]goth.Provider, 0)
	providers := make([]handlers.Provider, 0)

	if cfg.Auth.Google.Enabled() {
		p := google.New(
			cfg.Auth.Google.Key,
			cfg.Auth.Google.Secret,
			fmt.Sprintf("%s/auth/providers/google/callback", baseURL),
			cfg.Auth.Google.Scopes...,
		)
		gothProviders = append(gothProviders, p)
		providers = append(providers, handlers.Provider{ID: p.Name(), Label: "Google"})
	}
	if cfg.Auth.Github.Enabled() {
		p := github.New(
			cfg.Auth.Github.Key,
			cfg.Auth.Github.Secret,
			fmt.Sprintf("%s/auth/providers/github/callback", baseURL),
			cfg.Auth.Github.Scopes...,
		)
		gothProviders = append(gothProviders, p)
		providers = append(providers, handlers.Provider{ID: p.Name(), Label: "GitHub"})
	}

	goth.UseProviders(gothProviders...)
	gothic.Store = store
	return providers
}
