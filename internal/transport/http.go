package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/atlas-desktop/agente/internal/economy/decisionlog"
	"github.com/atlas-desktop/agente/internal/economy/engine"
	"github.com/atlas-desktop/agente/internal/economy/metricstore"
	"github.com/atlas-desktop/agente/internal/economy/types"
	"github.com/atlas-desktop/agente/internal/economy/validate"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// tickTimeout bounds both the HTTP POST /tick handler's context and the WS
// "tick" message handler's context, matching the engine's own 10-second
// per-tick deadline. Neither deadline is configurable.
const tickTimeout = 10 * time.Second

// maxBodyBytes enforces the 1 MiB POST body limit.
const maxBodyBytes = 1 << 20

// Adjustment is one parameter change the engine applied (or would apply, in
// advisor mode) this tick, reported back to the host.
type Adjustment struct {
	Key   string             `json:"key"`
	Value float64            `json:"value"`
	Scope *types.ActionScope `json:"scope,omitempty"`
}

// Alert summarizes one tick's diagnosed violations for the host.
type Alert struct {
	PrincipleID   string         `json:"principleId"`
	PrincipleName string         `json:"principleName"`
	Severity      float64        `json:"severity"`
	Evidence      map[string]any `json:"evidence,omitempty"`
	Reasoning     string         `json:"reasoning"`
}

func adjustmentsFor(result engine.TickResult) []Adjustment {
	if result.Plan == nil || result.Decision.Result != types.ResultApplied {
		return nil
	}
	return []Adjustment{{
		Key:   result.Plan.Parameter,
		Value: result.Plan.TargetValue,
		Scope: result.Plan.Scope,
	}}
}

func alertsFor(diagnoses []types.Diagnosis) []Alert {
	out := make([]Alert, 0, len(diagnoses))
	for _, d := range diagnoses {
		reasoning := ""
		if d.Violation.SuggestedAction != nil {
			reasoning = d.Violation.SuggestedAction.Reasoning
		}
		out = append(out, Alert{
			PrincipleID:   d.PrincipleID,
			PrincipleName: d.PrincipleName,
			Severity:      d.Violation.Severity,
			Evidence:      d.Violation.Evidence,
			Reasoning:     reasoning,
		})
	}
	return out
}

// StateSink receives every state/events pair submitted over push-mode
// transport, so a pull-mode caller against the same Adapter (see
// internal/economy/adapter.Loopback) observes the most recent snapshot.
type StateSink interface {
	SetState(state types.EconomyState, events []types.EconomicEvent)
}

// Server wires the engine to gorilla/mux-routed HTTP handlers, a
// gorilla/websocket Hub, and a Prometheus /metrics endpoint, CORS-wrapped
// for cross-origin hosts.
type Server struct {
	logger *zap.Logger
	eng    *engine.Engine
	hub    *Hub
	start  time.Time

	router           *mux.Router
	http             *http.Server
	metricsCollector *metrics
	sink             StateSink
}

// Config holds the Server's bind address.
type Config struct {
	Host string
	Port int
}

// NewServer builds a fully-routed Server bound to eng. sink may be nil.
func NewServer(logger *zap.Logger, eng *engine.Engine, sink StateSink, cfg Config) *Server {
	s := &Server{
		logger: logger.Named("transport"),
		eng:    eng,
		start:  time.Now(),
		router: mux.NewRouter(),
		sink:   sink,
	}
	s.hub = NewHub(logger, eng, sink)
	s.metricsCollector = newMetrics()

	s.setupRoutes()

	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}).Handler(s.router)

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/", s.handleBanner).Methods(http.MethodGet)
	s.router.HandleFunc("/tick", s.handleTick).Methods(http.MethodPost)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/decisions", s.handleDecisions).Methods(http.MethodGet)
	s.router.HandleFunc("/config", s.handleConfig).Methods(http.MethodPost)
	s.router.HandleFunc("/principles", s.handlePrinciples).Methods(http.MethodGet)
	s.router.HandleFunc("/diagnose", s.handleDiagnose).Methods(http.MethodPost)
	s.router.HandleFunc("/metrics", s.metricsCollector.handler())
	s.router.HandleFunc("/ws", s.hub.ServeHTTP)
}

// Router exposes the underlying mux.Router, e.g. for httptest.NewServer in
// tests.
func (s *Server) Router() *mux.Router { return s.router }

// ListenAndServe blocks serving HTTP until the server is shut down or
// fails to bind.
func (s *Server) ListenAndServe() error {
	s.logger.Info("transport listening", zap.String("addr", s.http.Addr))
	return s.http.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests, allowing up to 10 seconds
// for them to complete.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}

func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "agente",
		"uptime":  time.Since(s.start).Seconds(),
	})
}

type tickRequest struct {
	State  types.EconomyState    `json:"state"`
	Events []types.EconomicEvent `json:"events,omitempty"`
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req tickRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_state", []validate.Issue{{Message: err.Error()}})
		return
	}

	issues := validate.State(req.State, req.Events)
	if len(issues) > 0 {
		writeError(w, http.StatusBadRequest, "invalid_state", issues)
		return
	}

	if s.sink != nil {
		s.sink.SetState(req.State, req.Events)
	}

	ctx, cancel := context.WithTimeout(r.Context(), tickTimeout)
	defer cancel()

	result, err := s.eng.ProcessTick(ctx, req.State, req.Events, req.State.PersonaDistribution)
	s.metricsCollector.observeTick(time.Since(started), result.Decision.Result)
	s.metricsCollector.observeDiagnoses(result.Diagnoses)
	s.metricsCollector.setActivePlans(len(s.eng.ActivePlans()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "tick_failed", []validate.Issue{{Message: err.Error()}})
		return
	}

	resp := map[string]any{
		"adjustments": adjustmentsFor(result),
		"alerts":      alertsFor(result.Diagnoses),
		"health":      result.HealthScore,
		"tick":        result.Tick,
	}
	if warnings := validate.Warnings(req.State); len(warnings) > 0 {
		resp["validationWarnings"] = warnings
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	latest, _ := s.eng.MetricStore().Latest(metricstore.Fine)
	writeJSON(w, http.StatusOK, map[string]any{
		"health":      metricstore.HealthScore(latest),
		"tick":        latest.Tick,
		"mode":        s.eng.Mode(),
		"activePlans": len(s.eng.ActivePlans()),
		"uptime":      time.Since(s.start).Seconds(),
	})
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	var decisions []types.DecisionEntry
	if since := r.URL.Query().Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_state", []validate.Issue{{Field: "since", Message: "must be RFC3339"}})
			return
		}
		decisions = s.eng.DecisionLog().Query(decisionlog.Filter{Since: t})
	} else {
		decisions = s.eng.DecisionLog().Latest(limit)
	}

	writeJSON(w, http.StatusOK, map[string]any{"decisions": decisions})
}

type configRequest struct {
	Lock      []string `json:"lock,omitempty"`
	Unlock    []string `json:"unlock,omitempty"`
	Constrain []struct {
		Param string  `json:"param"`
		Min   float64 `json:"min"`
		Max   float64 `json:"max"`
	} `json:"constrain,omitempty"`
	Mode string `json:"mode,omitempty"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_state", []validate.Issue{{Message: err.Error()}})
		return
	}

	for _, key := range req.Lock {
		s.eng.Lock(key)
	}
	for _, key := range req.Unlock {
		s.eng.Unlock(key)
	}
	for _, c := range req.Constrain {
		s.eng.Constrain(c.Param, c.Min, c.Max)
	}
	if req.Mode == string(types.ModeAutonomous) || req.Mode == string(types.ModeAdvisor) {
		s.eng.SetMode(types.EngineMode(req.Mode))
	}

	writeJSON(w, http.StatusOK, map[string]any{"mode": s.eng.Mode()})
}

func (s *Server) handlePrinciples(w http.ResponseWriter, r *http.Request) {
	all := s.eng.Principles().All()
	out := make([]map[string]any, 0, len(all))
	for _, p := range all {
		out = append(out, map[string]any{
			"id":          p.ID,
			"name":        p.Name,
			"category":    p.Category,
			"description": p.Description,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "principles": out})
}

type diagnoseRequest struct {
	State types.EconomyState `json:"state"`
}

func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	var req diagnoseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_state", []validate.Issue{{Message: err.Error()}})
		return
	}
	if issues := validate.State(req.State, nil); len(issues) > 0 {
		writeError(w, http.StatusBadRequest, "invalid_state", issues)
		return
	}

	health, diagnoses := s.eng.Diagnose(req.State, nil)
	writeJSON(w, http.StatusOK, map[string]any{"health": health, "diagnoses": diagnoses})
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	body := io.LimitReader(r.Body, maxBodyBytes+1)
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if len(data) > maxBodyBytes {
		return fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)
	}
	return json.Unmarshal(data, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, issues []validate.Issue) {
	writeJSON(w, status, map[string]any{"error": code, "validationErrors": issues})
}
