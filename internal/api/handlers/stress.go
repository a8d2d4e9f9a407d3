package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/hedgestress/internal/store"
	"github.com/wonny/hedgestress/internal/stress"
	"github.com/wonny/hedgestress/pkg/logger"
)

// ResultReader 저장된 결과 조회 (internal/store.Repository 가 구현)
type ResultReader interface {
	Latest(ctx context.Context, scenario string) (*store.Record, error)
}

// StressHandler handles stress engine API endpoints
// ⭐ SSOT: 스트레스 API 핸들러는 이 구조체에서만
type StressHandler struct {
	engine  *stress.Engine
	results ResultReader
	timeout time.Duration
	logger  *logger.Logger
}

// NewStressHandler creates a new stress handler
// results 가 nil 이면 결과 조회는 404
func NewStressHandler(engine *stress.Engine, results ResultReader, timeout time.Duration, log *logger.Logger) *StressHandler {
	return &StressHandler{
		engine:  engine,
		results: results,
		timeout: timeout,
		logger:  log,
	}
}

// OptimizeRequest represents a worst-case search request
type OptimizeRequest struct {
	Scenario stress.Scenario  `json:"scenario"`
	Stats    stress.RiskStats `json:"stats"`
}

// Optimize runs the worst-case search for one scenario
// POST /api/stress/optimize
func (h *StressHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	res, err := h.engine.Optimize(ctx, req.Scenario, req.Stats)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, res)
}

// EvaluateRequest represents a shock evaluation request
// Shock 이 있으면 fixed, 없으면 Proposer (worst_case / greek_aligned)
type EvaluateRequest struct {
	Scenario stress.Scenario     `json:"scenario"`
	Stats    stress.RiskStats    `json:"stats"`
	Shock    *stress.ShockParams `json:"shock,omitempty"`
	Proposer string              `json:"proposer,omitempty"`
}

// Evaluate scores a proposed or supplied shock
// POST /api/stress/evaluate
func (h *StressHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	proposer, ok := h.proposer(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Unknown proposer: "+req.Proposer)
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	ev, err := h.engine.EvaluateProposal(ctx, proposer, req.Scenario, req.Stats)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, ev)
}

func (h *StressHandler) proposer(req EvaluateRequest) (stress.ShockProposer, bool) {
	if req.Shock != nil {
		return stress.FixedProposer{Label: req.Proposer, Shock: *req.Shock}, true
	}
	switch req.Proposer {
	case "", "worst_case":
		return stress.WorstCaseProposer{Config: h.engine.Config()}, true
	case "greek_aligned":
		return stress.GreekAlignedProposer{}, true
	default:
		return nil, false
	}
}

// GreeksRequest represents a net greeks request
type GreeksRequest struct {
	Scenario stress.Scenario `json:"scenario"`
}

// Greeks returns per-leg and net greeks
// POST /api/stress/greeks
func (h *StressHandler) Greeks(w http.ResponseWriter, r *http.Request) {
	var req GreeksRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := stress.ValidateScenario(req.Scenario); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, stress.ComputeGreeks(req.Scenario.Exposure, req.Scenario.Hedge))
}

// LatestResult returns the most recent stored result of a scenario
// GET /api/stress/results/{scenario}
func (h *StressHandler) LatestResult(w http.ResponseWriter, r *http.Request) {
	scenario := mux.Vars(r)["scenario"]

	if h.results == nil {
		respondError(w, http.StatusNotFound, "Result persistence is disabled")
		return
	}

	rec, err := h.results.Latest(r.Context(), scenario)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "No stored result for scenario "+scenario)
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("scenario", scenario).Error("Failed to get stored result")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve stored result")
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

func (h *StressHandler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.timeout)
}
