// Package dashboard exposes a small read-only HTTP API over the bot's
// current state: the open position, the latest snapshot, and the latest
// signal or skip.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/earnmater-design/nifty-signal-bot/internal/models"
	"github.com/earnmater-design/nifty-signal-bot/internal/storage"
	"github.com/earnmater-design/nifty-signal-bot/internal/strategy"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// State is the bot's latest cycle output, shared with the HTTP handlers.
// The bot writes after each poll; handlers only read.
type State struct {
	mu sync.RWMutex

	lastUpdate   time.Time
	spot         float64
	volatility   float64
	putCallRatio float64
	provenance   models.Provenance
	lastSignal   *models.Signal
	lastSkip     *strategy.Skip
	lastDecision *strategy.Decision
}

// RecordSnapshot stores the headline numbers of the latest snapshot.
func (s *State) RecordSnapshot(snap *models.MarketSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUpdate = time.Now()
	s.spot = snap.Spot
	s.volatility = snap.Volatility
	s.putCallRatio = snap.PutCallRatio()
	s.provenance = snap.Provenance
}

// RecordSignal stores the outcome of an entry evaluation. Exactly one of
// sig and skip is non-nil.
func (s *State) RecordSignal(sig *models.Signal, skip *strategy.Skip) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSignal = sig
	s.lastSkip = skip
}

// RecordDecision stores the latest monitor verdict.
func (s *State) RecordDecision(d *strategy.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastDecision = d
}

type Server struct {
	router     *chi.Mux
	server     *http.Server
	storage    storage.Interface
	state      *State
	logger     *logrus.Logger
	port       int
	authToken  string
	marketOpen func(time.Time) bool
}

type Config struct {
	Port      int
	AuthToken string

	// MarketOpen reports whether the exchange is trading at the given
	// instant. Nil means always closed.
	MarketOpen func(time.Time) bool
}

func NewServer(cfg Config, store storage.Interface, state *State, logger *logrus.Logger) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		storage:    store,
		state:      state,
		logger:     logger,
		port:       cfg.Port,
		authToken:  cfg.AuthToken,
		marketOpen: cfg.MarketOpen,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if s.authToken != "" {
		s.router.Use(s.authMiddleware)
	}

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/position", s.handleGetPosition)
	s.router.Get("/api/market", s.handleGetMarket)
	s.router.Get("/api/signal", s.handleGetSignal)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if token != s.authToken {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.router,
	}

	s.logger.Infof("Starting dashboard server on port %d", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	}
	s.writeJSON(w, health)
}

// PositionView is the API shape of the open position plus the latest
// monitor verdict.
type PositionView struct {
	Position       *models.OpenPosition `json:"position"`
	CurrentPremium float64              `json:"current_premium,omitempty"`
	PnLPerLot      float64              `json:"pnl_per_lot,omitempty"`
	ExitPending    bool                 `json:"exit_pending"`
	ExitReason     string               `json:"exit_reason,omitempty"`
}

func (s *Server) handleGetPosition(w http.ResponseWriter, _ *http.Request) {
	pos, ok := s.storage.Load()
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	view := PositionView{Position: pos}

	s.state.mu.RLock()
	if d := s.state.lastDecision; d != nil {
		view.CurrentPremium = d.CurrentPremium
		view.PnLPerLot = d.PnLPerLot
		view.ExitPending = d.ShouldExit
		view.ExitReason = string(d.Reason)
	}
	s.state.mu.RUnlock()

	s.writeJSON(w, view)
}

// MarketView summarizes the latest snapshot.
type MarketView struct {
	LastUpdate   time.Time         `json:"last_update"`
	Spot         float64           `json:"spot"`
	Volatility   float64           `json:"volatility"`
	PutCallRatio float64           `json:"put_call_ratio"`
	Provenance   models.Provenance `json:"provenance"`
	MarketStatus string            `json:"market_status"`
}

func (s *Server) handleGetMarket(w http.ResponseWriter, _ *http.Request) {
	status := "Closed"
	if s.marketOpen != nil && s.marketOpen(time.Now()) {
		status = "Open"
	}

	s.state.mu.RLock()
	view := MarketView{
		LastUpdate:   s.state.lastUpdate,
		Spot:         s.state.spot,
		Volatility:   s.state.volatility,
		PutCallRatio: s.state.putCallRatio,
		Provenance:   s.state.provenance,
		MarketStatus: status,
	}
	s.state.mu.RUnlock()

	s.writeJSON(w, view)
}

// SignalView is the latest evaluation outcome.
type SignalView struct {
	Signal     *models.Signal `json:"signal,omitempty"`
	SkipCode   string         `json:"skip_code,omitempty"`
	SkipReason string         `json:"skip_reason,omitempty"`
}

func (s *Server) handleGetSignal(w http.ResponseWriter, _ *http.Request) {
	s.state.mu.RLock()
	sig, skip := s.state.lastSignal, s.state.lastSkip
	s.state.mu.RUnlock()

	if sig == nil && skip == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	view := SignalView{Signal: sig}
	if skip != nil {
		view.SkipCode = string(skip.Code)
		view.SkipReason = skip.Reason
	}

	s.writeJSON(w, view)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}
