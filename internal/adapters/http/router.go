package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dosipov/geotech-qa/internal/config"
	"github.com/dosipov/geotech-qa/internal/core/ports"
	"github.com/dosipov/geotech-qa/internal/observability/metrics"
)

const serviceName = "geotech-qa-api"

type Router struct {
	answerer ports.QuestionAnswerer
	searcher ports.KnowledgeSearcher
	metrics  *metrics.HTTPServerMetrics
	cfg      config.Config
}

func NewRouter(
	answerer ports.QuestionAnswerer,
	searcher ports.KnowledgeSearcher,
	serverMetrics *metrics.HTTPServerMetrics,
	cfg config.Config,
) *Router {
	return &Router{
		answerer: answerer,
		searcher: searcher,
		metrics:  serverMetrics,
		cfg:      cfg,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/ask", rt.ask)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, 50*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"index_initialized": rt.searcher.IsInitialized(),
	})
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}
	if rt.cfg.MaxQuestionLength > 0 && len(question) > rt.cfg.MaxQuestionLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question exceeds maximum length"})
		return
	}

	response := rt.answerer.Ask(r.Context(), question)
	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
