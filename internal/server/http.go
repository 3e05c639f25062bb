// Package server exposes the engine over HTTP/JSON. All engine access goes
// through a read-write mutex: the engine is single-writer, so writes
// serialize and reads run concurrently with each other but never with a
// write.
package server

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"StableMint/internal/engine"
	"StableMint/internal/ledger"
	"StableMint/internal/observability"
	"StableMint/internal/oracle"
	"StableMint/internal/query"
	"StableMint/internal/registry"
)

type Server struct {
	eng     *engine.Engine
	queries *query.Service
	health  *observability.HealthChecker
	metrics *observability.Metrics
	log     zerolog.Logger

	// guards all engine access: writes exclusive, reads shared. The ledger
	// under the engine is not safe for concurrent map access.
	mu sync.RWMutex
}

func New(eng *engine.Engine, queries *query.Service, health *observability.HealthChecker, metrics *observability.Metrics) *Server {
	return &Server{
		eng:     eng,
		queries: queries,
		health:  health,
		metrics: metrics,
		log:     observability.NewLogger("http"),
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.health.LivenessHandler)
	r.Get("/readyz", s.health.ReadinessHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/accounts/{user}/deposits", s.handleDeposit)
		r.Post("/accounts/{user}/mints", s.handleMint)
		r.Post("/accounts/{user}/redemptions", s.handleRedeem)
		r.Post("/accounts/{user}/burns", s.handleBurn)
		r.Post("/liquidations", s.handleLiquidate)

		r.Get("/accounts/{user}", s.handleAccount)
		r.Get("/accounts/{user}/collateral/{asset}", s.handleCollateral)
		r.Get("/assets", s.handleAssets)
		r.Get("/config", s.handleConfig)
		r.Get("/solvency", s.handleSolvency)
	})

	return r
}

// ============================================================
// Write endpoints
// ============================================================

type depositRequest struct {
	Asset      string `json:"asset"`
	Amount     string `json:"amount"`
	MintAmount string `json:"mint_amount,omitempty"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	user, ok := s.userParam(w, r)
	if !ok {
		return
	}

	var req depositRequest
	if !s.decode(w, r, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.MintAmount != "" {
		mintAmount, err := parseAmount(req.MintAmount)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := s.eng.DepositCollateralAndMint(user, req.Asset, amount, mintAmount); err != nil {
			s.writeEngineError(w, err)
			return
		}
	} else if err := s.eng.DepositCollateral(user, req.Asset, amount); err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.writeAccount(w, user)
}

type mintRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	user, ok := s.userParam(w, r)
	if !ok {
		return
	}

	var req mintRequest
	if !s.decode(w, r, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.eng.Mint(user, amount); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeAccount(w, user)
}

type redeemRequest struct {
	Asset      string `json:"asset"`
	Amount     string `json:"amount"`
	BurnAmount string `json:"burn_amount,omitempty"`
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	user, ok := s.userParam(w, r)
	if !ok {
		return
	}

	var req redeemRequest
	if !s.decode(w, r, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.BurnAmount != "" {
		burnAmount, err := parseAmount(req.BurnAmount)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := s.eng.RedeemCollateralForDebt(user, req.Asset, amount, burnAmount); err != nil {
			s.writeEngineError(w, err)
			return
		}
	} else if err := s.eng.RedeemCollateral(user, req.Asset, amount); err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.writeAccount(w, user)
}

type burnRequest struct {
	Amount string `json:"amount"`
	Payer  string `json:"payer,omitempty"`
}

func (s *Server) handleBurn(w http.ResponseWriter, r *http.Request) {
	user, ok := s.userParam(w, r)
	if !ok {
		return
	}

	var req burnRequest
	if !s.decode(w, r, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	payer := user
	if req.Payer != "" {
		payer, err = uuid.Parse(req.Payer)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, errors.New("invalid payer id"))
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.eng.Burn(payer, user, amount); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeAccount(w, user)
}

type liquidationRequest struct {
	Liquidator  string `json:"liquidator"`
	Target      string `json:"target"`
	Asset       string `json:"asset"`
	DebtToCover string `json:"debt_to_cover"`
}

func (s *Server) handleLiquidate(w http.ResponseWriter, r *http.Request) {
	var req liquidationRequest
	if !s.decode(w, r, &req) {
		return
	}

	liquidator, err := uuid.Parse(req.Liquidator)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid liquidator id"))
		return
	}
	target, err := uuid.Parse(req.Target)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid target id"))
		return
	}
	debtToCover, err := parseAmount(req.DebtToCover)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.eng.Liquidate(liquidator, target, req.Asset, debtToCover); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeAccount(w, target)
}

// ============================================================
// Read endpoints
// ============================================================

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := s.userParam(w, r)
	if !ok {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	s.writeAccount(w, user)
}

func (s *Server) handleCollateral(w http.ResponseWriter, r *http.Request) {
	user, ok := s.userParam(w, r)
	if !ok {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	balance, err := s.queries.Collateral(user, chi.URLParam(r, "asset"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, balance)
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	assets, err := s.queries.Assets()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, assets)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.writeJSON(w, http.StatusOK, s.queries.Config())
}

func (s *Server) handleSolvency(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, err := s.queries.Solvency()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// ============================================================
// Helpers
// ============================================================

func (s *Server) userParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	user, err := uuid.Parse(chi.URLParam(r, "user"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid user id"))
		return uuid.Nil, false
	}
	return user, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("malformed request body"))
		return false
	}
	return true
}

func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, errors.New("amount must be a decimal integer string")
	}
	if amount.Sign() <= 0 {
		return nil, errors.New("amount must be positive")
	}
	return amount, nil
}

func (s *Server) writeAccount(w http.ResponseWriter, user uuid.UUID) {
	summary, err := s.queries.Account(user)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("response encode failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeEngineError maps engine failures onto HTTP statuses: 503 when the
// oracle cannot be trusted, 409 for ineligible liquidations, 422 for
// solvency violations, 400 for everything shape-related.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	var hfErr *engine.HealthFactorError
	switch {
	case errors.Is(err, oracle.ErrStalePrice), errors.Is(err, oracle.ErrInvalidPrice):
		s.writeError(w, http.StatusServiceUnavailable, err)
	case errors.As(err, &hfErr), errors.Is(err, engine.ErrHealthFactorNotImproved):
		s.writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, engine.ErrNotLiquidatable):
		s.writeError(w, http.StatusConflict, err)
	case errors.Is(err, registry.ErrUnknownAsset),
		errors.Is(err, ledger.ErrZeroAmount),
		errors.Is(err, ledger.ErrUnsupportedAsset),
		errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, engine.ErrTransferFailed):
		s.writeError(w, http.StatusBadRequest, err)
	default:
		s.log.Error().Err(err).Msg("unclassified engine error")
		s.writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

// observe records request counts and latency per route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		s.metrics.HTTPRequests.WithLabelValues(pattern, http.StatusText(ww.Status())).Inc()
		s.metrics.HTTPDuration.WithLabelValues(pattern).Observe(time.Since(start).Seconds())
	})
}
