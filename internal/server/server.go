// Package server exposes a vault over HTTP. It serves the capsule API,
// Prometheus metrics, and a daily scan that announces newly unlockable
// capsules to a webhook.
package server

import (
	"context"
	"io"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	chronoseal "github.com/chronoseal/capsule-go"
)

// Config holds server settings.
type Config struct {
	// Addr is the listen address, for example ":8475".
	Addr string
	// WebhookURL receives unlock notifications. Empty disables them.
	WebhookURL string
	// WebhookSecret signs notification payloads when set.
	WebhookSecret string
	// RateLimit caps requests per second per client IP. Zero uses the
	// default of 20.
	RateLimit float64
	// Logger defaults to a warn-level logger when nil.
	Logger *logrus.Logger
}

// Server serves one vault over HTTP.
type Server struct {
	vault    *chronoseal.Vault
	echo     *echo.Echo
	cfg      Config
	logger   *logrus.Logger
	notifier *notifier
	registry *webhookRegistry
	broker   *broker
	scanner  *unlockScanner
}

// New builds a server around an open vault. Start must be called to listen.
func New(vault *chronoseal.Vault, cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8475"
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 20
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	s := &Server{
		vault:  vault,
		cfg:    cfg,
		logger: logger,
	}
	s.notifier = newNotifier(cfg.WebhookURL, cfg.WebhookSecret, logger)
	s.registry = newWebhookRegistry(filepath.Join(vault.Dir(), "webhooks.json"), logger)
	s.broker = newBroker()
	s.scanner = newUnlockScanner(vault, s.notifier, s.registry, s.broker, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetOutput(io.Discard)

	e.Use(middleware.Recover())
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimit))))

	s.registerRoutes(e)
	s.echo = e
	return s
}

func (s *Server) registerRoutes(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.POST("/keys", s.handleGenerateKeys)
	api.POST("/keys/restore", s.handleRestoreKeys)
	api.GET("/keys", s.handleGetKeys)
	api.POST("/capsules", s.handleCreateCapsule)
	api.GET("/capsules", s.handleListCapsules)
	api.GET("/capsules/:index", s.handleGetCapsule)
	api.POST("/capsules/:index/decrypt", s.handleDecryptCapsule)
	api.POST("/capsules/:index/verify", s.handleVerifyCapsule)
	api.GET("/export", s.handleExport)
	api.POST("/import", s.handleImport)
	api.POST("/webhooks", s.handleCreateWebhook)
	api.GET("/webhooks", s.handleListWebhooks)
	api.GET("/webhooks/:id", s.handleGetWebhook)
	api.PATCH("/webhooks/:id", s.handleUpdateWebhook)
	api.DELETE("/webhooks/:id", s.handleDeleteWebhook)
	api.POST("/webhooks/:id/test", s.handleTestWebhook)
	api.POST("/webhooks/:id/rotate-secret", s.handleRotateWebhookSecret)
	api.GET("/events", s.handleEvents)
}

// Start listens on the configured address and runs the unlock scanner. It
// blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.scanner.start()

	s.logger.WithFields(logrus.Fields{
		"addr":    s.cfg.Addr,
		"webhook": s.cfg.WebhookURL != "",
	}).Info("server listening")

	if err := s.echo.Start(s.cfg.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the scanner and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.scanner.stop()
	return s.echo.Shutdown(ctx)
}

// Handler exposes the HTTP handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
