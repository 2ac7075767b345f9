package http

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/cwygoda/feedhandler/internal/domain"
	"github.com/cwygoda/feedhandler/internal/feed"
)

// Deps are the domain collaborators the HTTP adapter drives.
type Deps struct {
	Docs      *domain.DocService
	Resources domain.ResourceRepository
	Handler   *domain.FeedHandler
	Creator   domain.ResourceCreator
	Logger    *zap.Logger
}

// Server is the HTTP adapter for the feed service.
type Server struct {
	deps   Deps
	log    *zap.Logger
	router chi.Router
	server *http.Server
	secret string
}

// NewServer creates a new HTTP server.
func NewServer(deps Deps, addr string, secret string) *Server {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		deps:   deps,
		log:    log,
		router: chi.NewRouter(),
		secret: secret,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(requestLogger(s.log))
		r.Use(middleware.Recoverer)

		r.Post("/feed", s.handleSubmit)
		r.Post("/feed/handle", s.handleFeed)
		r.Get("/docs/{id}", s.handleGetDoc)
		r.Get("/resources/{apiID}", s.handleGetResource)
	})
}

// errorResponse is the JSON error response.
type errorResponse struct {
	Error string `json:"error"`
}

// readFeed reads and verifies a feed request body.
func (s *Server) readFeed(w http.ResponseWriter, r *http.Request) ([]domain.Doc, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}

	if s.secret != "" {
		if err := s.verifySignature(r, body); err != nil {
			s.log.Warn("feed verification failed",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Error(err),
			)
			s.writeError(w, http.StatusUnauthorized, err.Error())
			return nil, false
		}
	}

	docs, err := feed.Decode(bytes.NewReader(body))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return nil, false
	}
	return docs, true
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.readFeed(w, r)
	if !ok {
		return
	}
	if len(docs) == 0 {
		s.writeError(w, http.StatusBadRequest, "feed is empty")
		return
	}
	for i, doc := range docs {
		if err := doc.Validate(); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("doc %d: %v", i, err))
			return
		}
	}

	stored := make([]domain.Doc, 0, len(docs))
	for _, doc := range docs {
		created, err := s.deps.Docs.Submit(r.Context(), doc)
		if err != nil {
			s.log.Error("submit failed", zap.Int64("api_id", doc.APIID), zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		stored = append(stored, *created)
	}

	s.writeJSON(w, http.StatusCreated, toResponses(stored))
}

// handleFeed runs the feed handler synchronously and returns the outcomes.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.readFeed(w, r)
	if !ok {
		return
	}

	out := s.deps.Handler.Handle(r.Context(), docs, s.deps.Creator)

	failed := 0
	for _, doc := range out {
		if doc.Status == domain.StatusFailed {
			failed++
		}
	}
	s.log.Info("feed handled",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Int("received", len(docs)),
		zap.Int("emitted", len(out)),
		zap.Int("failed", failed),
	)

	s.writeJSON(w, http.StatusOK, toResponses(out))
}

const maxTimestampSkew = 5 * time.Minute

func (s *Server) verifySignature(r *http.Request, body []byte) error {
	timestamp := r.Header.Get("X-Timestamp")
	if timestamp == "" {
		return fmt.Errorf("missing X-Timestamp header")
	}

	ts, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return fmt.Errorf("invalid X-Timestamp: must be ISO8601/RFC3339 format")
	}

	skew := time.Since(ts)
	if skew < 0 {
		skew = -skew
	}
	if skew > maxTimestampSkew {
		return fmt.Errorf("X-Timestamp too far from current time (skew: %v, max: %v)", skew.Truncate(time.Second), maxTimestampSkew)
	}

	signature := r.Header.Get("X-Signature")
	if signature == "" {
		return fmt.Errorf("missing X-Signature header")
	}

	if signature != Sign(timestamp, body, s.secret) {
		return fmt.Errorf("invalid signature")
	}
	return nil
}

// Sign returns the expected X-Signature: hex SHA256("${timestamp}\n${body}\n${secret}").
func Sign(timestamp string, body []byte, secret string) string {
	payload := fmt.Sprintf("%s\n%s\n%s", timestamp, string(body), secret)
	hash := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(hash[:])
}

func (s *Server) handleGetDoc(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid doc ID")
		return
	}

	doc, err := s.deps.Docs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrDocNotFound) {
			s.writeError(w, http.StatusNotFound, "doc not found")
			return
		}
		s.log.Error("get doc failed", zap.Int64("id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.writeJSON(w, http.StatusOK, feed.ToResponse(*doc))
}

func (s *Server) handleGetResource(w http.ResponseWriter, r *http.Request) {
	apiID, err := strconv.ParseInt(chi.URLParam(r, "apiID"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid api ID")
		return
	}

	res, err := s.deps.Resources.FindByID(r.Context(), apiID)
	if err != nil {
		if errors.Is(err, domain.ErrResourceNotFound) {
			s.writeError(w, http.StatusNotFound, "resource not found")
			return
		}
		s.log.Error("get resource failed", zap.Int64("api_id", apiID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.writeJSON(w, http.StatusOK, feed.ResourceToResponse(res))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func toResponses(docs []domain.Doc) []feed.DocResponse {
	out := make([]feed.DocResponse, len(docs))
	for i, doc := range docs {
		out[i] = feed.ToResponse(doc)
	}
	return out
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Port extracts the port from the address.
func (s *Server) Port() int {
	addr := s.server.Addr
	if idx := strings.LastIndex(addr, ":"); idx >= 0 {
		port, _ := strconv.Atoi(addr[idx+1:])
		return port
	}
	return 0
}
