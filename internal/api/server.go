// internal/api/server.go
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpbundle/internal/pumpportal"
	"github.com/rovshanmuradov/pumpbundle/internal/relay"
	"github.com/rovshanmuradov/pumpbundle/internal/schedule"
	"github.com/rovshanmuradov/pumpbundle/internal/trade"
	"github.com/rovshanmuradov/pumpbundle/internal/wallet"
	"github.com/rovshanmuradov/pumpbundle/internal/wizard"
)

// Trader submits a single trade for a user.
type Trader interface {
	SubmitSingleTrade(ctx context.Context, userID string, w *wallet.Wallet, intent trade.Intent) relay.Result
}

// Scheduler manages recurring purchases.
type Scheduler interface {
	Start(key schedule.Key, intent trade.Intent) (schedule.Ack, error)
	Stop(key schedule.Key) bool
	List(userID string) []schedule.Info
}

// Wizard drives the token-creation conversation.
type Wizard interface {
	Begin(userID string) (wizard.Reply, error)
	Handle(ctx context.Context, userID string, in wizard.Input) (wizard.Reply, error)
	Cancel(userID string) bool
}

// WalletIssuer generates fresh wallets.
type WalletIssuer interface {
	CreateWallet(ctx context.Context) (*pumpportal.GeneratedWallet, error)
}

// Config for the HTTP surface.
type Config struct {
	Listen         string
	AuthToken      string
	AllowedOrigins []string
	MaxImageBytes  int64
}

// Deps are the components behind the routes.
type Deps struct {
	Store     *wallet.Store
	Builder   *trade.Builder
	Trader    Trader
	Scheduler Scheduler
	Wizard    Wizard
	Wallets   WalletIssuer
	Gatherer  prometheus.Gatherer
}

type Server struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger
	srv    *http.Server
}

func New(cfg Config, deps Deps, logger *zap.Logger) *Server {
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 10 << 20
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{cfg: cfg, deps: deps, logger: logger.Named("api")}
	s.srv = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler)

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Post("/wallets", s.createWallet)
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Put("/key", s.setKey)
			r.Delete("/key", s.removeKey)

			r.Post("/trades", s.submitTrade)

			r.Post("/schedules", s.startSchedule)
			r.Get("/schedules", s.listSchedules)
			r.Delete("/schedules/{mint}", s.stopSchedule)

			r.Post("/wizard", s.beginWizard)
			r.Post("/wizard/input", s.wizardInput)
			r.Delete("/wizard", s.cancelWizard)
		})
	})
	return r
}

// Start serves until Shutdown. It returns nil on a graceful stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	s.logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AuthToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("Request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
