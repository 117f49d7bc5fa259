package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/joescharf/codereview/internal/models"
	"github.com/joescharf/codereview/internal/review"
	"github.com/joescharf/codereview/internal/store"
)

const maxBodyBytes = 1 << 20

// Server provides the REST API handlers.
type Server struct {
	svc   *review.Service
	store store.Store
	log   *slog.Logger
}

// NewServer creates a new API server.
// The service and store may each be nil; the affected routes answer 503.
func NewServer(svc *review.Service, s store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{svc: svc, store: s, log: logger}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/review", s.createReview)
	mux.HandleFunc("POST /review_code", s.createReview)

	mux.HandleFunc("GET /api/v1/reviews", s.listReviews)
	mux.HandleFunc("GET /api/v1/reviews/{id}", s.getReview)
	mux.HandleFunc("DELETE /api/v1/reviews/{id}", s.deleteReview)

	mux.HandleFunc("GET /api/v1/health", s.health)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- Reviews ---

func (s *Server) createReview(w http.ResponseWriter, r *http.Request) {
	if s.svc == nil || !s.svc.Available() {
		writeError(w, http.StatusServiceUnavailable, "review model not configured (set anthropic.api_key or ANTHROPIC_API_KEY)")
		return
	}

	var req review.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	resp, err := s.svc.Review(r.Context(), req)
	if err != nil {
		if errors.Is(err, review.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error("review request failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Review process failed: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "review history disabled")
		return
	}

	filter := store.ReviewListFilter{Verdict: models.Verdict(r.URL.Query().Get("verdict"))}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit: "+v)
			return
		}
		filter.Limit = n
	}

	records, err := s.store.ListReviews(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []*models.ReviewRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) getReview(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "review history disabled")
		return
	}
	rec, err := s.store.FindReview(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteReview(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "review history disabled")
		return
	}
	if err := s.store.DeleteReview(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrAmbiguous):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// --- Health ---

type healthResponse struct {
	Status    string `json:"status"`
	Generator bool   `json:"generator"`
	History   bool   `json:"history"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Generator: s.svc != nil && s.svc.Available(),
		History:   s.store != nil,
	})
}
