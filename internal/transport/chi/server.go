package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/calmbox/calmbox/internal/domain"
	"github.com/calmbox/calmbox/internal/metrics"
	healthuc "github.com/calmbox/calmbox/internal/usecase/health"
	sessionuc "github.com/calmbox/calmbox/internal/usecase/session"
)

// Error codes returned to clients.
const (
	codeBadRequest    = "bad_request"
	codeEmptyTurn     = "empty_turn"
	codeNotFound      = "not_found"
	codeProviderError = "provider_error"
	codeInternalError = "internal_error"
)

const maxChunkIDs = 50

// Sessions handles conversational turns.
type Sessions interface {
	Handle(ctx context.Context, userText string, events []string) (sessionuc.Turn, error)
}

// Chunks loads knowledge chunk rows by id.
type Chunks interface {
	ByIDs(ctx context.Context, ids []string) ([]domain.Chunk, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the turn pipeline over HTTP. On the device a companion app
// talks to it over the local network; in development it doubles as the test
// harness surface.
type Server struct {
	sessions      Sessions
	chunks        Chunks
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(sessions Sessions, chunks Chunks, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		sessions: sessions,
		chunks:   chunks,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyTurn, http.StatusBadRequest, codeEmptyTurn),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrGeneratorError, http.StatusBadGateway, codeProviderError),
	}
	return s
}

// Routes mounts all handlers on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/turn", s.handleTurn)
	r.Get("/v1/chunks", s.handleChunks)
	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

type turnRequest struct {
	Text   string   `json:"text"`
	Events []string `json:"events,omitempty"`
}

type turnResponse struct {
	Reply    string   `json:"reply"`
	Outcome  string   `json:"outcome"`
	Protocol string   `json:"protocol,omitempty"`
	UsedIDs  []string `json:"used_ids,omitempty"`
}

// handleTurn handles POST /v1/turn.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	turn, err := s.sessions.Handle(r.Context(), req.Text, req.Events)
	if err != nil {
		metrics.TurnsTotal.WithLabelValues("error").Inc()
		s.handleDomainError(w, err)
		return
	}
	metrics.TurnsTotal.WithLabelValues(turn.Outcome).Inc()

	writeJSON(w, http.StatusOK, turnResponse{
		Reply:    turn.Reply,
		Outcome:  turn.Outcome,
		Protocol: turn.Protocol,
		UsedIDs:  turn.UsedIDs,
	})
}

type chunkItem struct {
	ChunkID      string   `json:"chunk_id"`
	DisplayID    string   `json:"display_id,omitempty"`
	GroupID      string   `json:"group_id,omitempty"`
	Text         string   `json:"text"`
	Dimension    string   `json:"dimension"`
	Risk         string   `json:"risk,omitempty"`
	Status       string   `json:"status"`
	QualityScore float64  `json:"quality_score"`
	Tags         []string `json:"tags,omitempty"`
}

type chunkListResponse struct {
	Items []chunkItem `json:"items"`
}

// handleChunks handles GET /v1/chunks?ids=a,b,c.
func (s *Server) handleChunks(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("ids"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "ids query parameter is required")
		return
	}

	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 || len(ids) > maxChunkIDs {
		writeError(w, http.StatusBadRequest, codeBadRequest, "ids count must be between 1 and 50")
		return
	}

	chunks, err := s.chunks.ByIDs(r.Context(), ids)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]chunkItem, len(chunks))
	for i, c := range chunks {
		items[i] = chunkItem{
			ChunkID:      c.ChunkID,
			DisplayID:    c.DisplayID,
			GroupID:      c.GroupID,
			Text:         c.Text,
			Dimension:    c.Dimension,
			Risk:         c.Risk,
			Status:       c.Status,
			QualityScore: c.QualityScore,
			Tags:         c.Tags,
		}
	}

	writeJSON(w, http.StatusOK, chunkListResponse{Items: items})
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyTurn,
		domain.ErrNotFound,
		domain.ErrEmbeddingProviderError,
		domain.ErrGeneratorError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
