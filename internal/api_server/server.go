package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/propertyhub/lease-planner/internal/auth"
	"github.com/propertyhub/lease-planner/internal/config"
	handlers "github.com/propertyhub/lease-planner/internal/handlers/v1alpha1"
	"github.com/propertyhub/lease-planner/internal/service"
	"github.com/propertyhub/lease-planner/internal/store"
	"github.com/propertyhub/lease-planner/pkg/metrics"
	"github.com/propertyhub/lease-planner/pkg/middleware"
	"github.com/propertyhub/lease-planner/pkg/secrets"
	"go.uber.org/zap"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
)

type Server struct {
	cfg         *config.Config
	store       store.Store
	listener    net.Listener
	eventWriter service.EventWriter
	secrets     *secrets.Box
}

// New returns a new instance of a lease-planner server.
func New(
	cfg *config.Config,
	store store.Store,
	ew service.EventWriter,
	listener net.Listener,
) *Server {
	return &Server{
		cfg:         cfg,
		store:       store,
		eventWriter: ew,
		listener:    listener,
	}
}

// WithSecrets shares the credential key with the scrape runner of the process.
func (s *Server) WithSecrets(b *secrets.Box) *Server {
	s.secrets = b
	return s
}

// Handler builds the router with the whole middleware chain.
func (s *Server) Handler(authenticator auth.Authenticator) http.Handler {
	router := chi.NewRouter()

	metricMiddleware := metrics.NewMiddleware("api_server")
	metricMiddleware.MustRegisterDefault()

	router.Use(
		metricMiddleware.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.Service.AllowedOrigins,
			AllowedMethods:   []string{"GET", "PUT", "POST", "DELETE", "HEAD", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.RequestID,
		authenticator.Authenticator,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	scrapeSrv := service.NewScrapeService(s.store, s.eventWriter)
	if s.secrets != nil {
		scrapeSrv = scrapeSrv.WithSecrets(s.secrets)
	}

	h := handlers.NewServiceHandler(
		service.NewContractService(s.store, s.eventWriter),
		scrapeSrv,
	)
	h.Routes(router)

	return router
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	authenticator, err := auth.NewAuthenticator(s.cfg.Service.Auth)
	if err != nil {
		return fmt.Errorf("failed to create authenticator: %w", err)
	}

	srv := http.Server{Addr: s.cfg.Service.Address, Handler: s.Handler(authenticator)}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	// Serve returns as soon as Shutdown starts, requests in flight still use the store
	<-stopped
	return nil
}
