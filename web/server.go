// Package web exposes the derived views as a small read-only JSON API for
// the side-panel widgets (stats, feed, streak, activity). It has no
// mutating surface and, like the read commands, consults no authorization.
package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/loaa/reading-console/middleware"
	"github.com/loaa/reading-console/service"
	"github.com/loaa/reading-console/state"
)

type Server struct {
	State *state.State
	Log   zerolog.Logger
}

func NewServer(st *state.State, log zerolog.Logger) *Server {
	return &Server{State: st, Log: log}
}

// Router builds the widget API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.AllowAll())
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.getStats)
		r.Get("/feed", s.getFeed)
		r.Get("/streak/{user}", s.getStreak)
		r.Get("/activity", s.getActivity)
	})
	return r
}

// ListenAndServe runs the API until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	s.Log.Info().Str("addr", addr).Msg("widget api listening")
	server := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, service.ComputeStats(s.State.Books("")))
}

func (s *Server) getFeed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, service.ComputeFeed(s.State.Events()))
}

func (s *Server) getStreak(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	writeJSON(w, service.ComputeStreak(s.State.Events(), user, time.Now()))
}

func (s *Server) getActivity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"summary": service.Summary(s.State.Events())})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
