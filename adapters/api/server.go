// Package api exposes the comparison service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"macrosad/app"
	"macrosad/domain/core"
	"macrosad/domain/sad"
)

// Server routes HTTP requests to the comparison service.
type Server struct {
	svc    *app.CompareService
	router chi.Router
}

// NewServer builds the router.
func NewServer(svc *app.CompareService) *Server {
	s := &Server{svc: svc}
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/models", s.handleModels)
	r.Post("/compare", s.handleCompare)

	s.router = r
	return s
}

// Handler returns the root handler for an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"models": sad.Names()})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req app.CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rec, err := s.svc.Run(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if core.IsPreconditionError(err) ||
			errors.Is(err, core.ErrUnknownModel) ||
			core.IsRootError(err) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[API] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
