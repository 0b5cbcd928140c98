// Package web exposes the scheduling core over a small JSON API. Handlers
// load the tree and history from storage, run the pure core functions, and
// persist scheduler output; they hold no state of their own.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/studylog/fukushu/internal/domain"
	"github.com/studylog/fukushu/internal/review"
	"github.com/studylog/fukushu/internal/storage"
	syncer "github.com/studylog/fukushu/internal/sync"
	"github.com/studylog/fukushu/internal/trend"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	db             *storage.DB
	router         *http.ServeMux
	reposDir       string
	stagnationDays int
	location       *time.Location
	now            func() time.Time
}

// NewServer creates and configures a new server. The location governs
// calendar-date normalization for due and stagnation queries.
func NewServer(db *storage.DB, reposDir string, stagnationDays int, loc *time.Location) *Server {
	if loc == nil {
		loc = time.Local
	}
	s := &Server{
		db:             db,
		router:         http.NewServeMux(),
		reposDir:       reposDir,
		stagnationDays: stagnationDays,
		location:       loc,
		now:            time.Now,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.HandleFunc("/api/subjects", s.handleGetSubjects())
	s.router.HandleFunc("/api/reviews/today", s.handleGetDue(review.DueOn))
	s.router.HandleFunc("/api/reviews/backlog", s.handleGetDue(review.DueOnOrBefore))
	s.router.HandleFunc("/api/questions/", s.handlePostAnswer())
	s.router.HandleFunc("/api/analysis/reverts", s.handleGetReverts())
	s.router.HandleFunc("/api/analysis/cycles", s.handleGetCycles())
	s.router.HandleFunc("/api/analysis/stagnant", s.handleGetStagnant())
	s.router.HandleFunc("/api/analysis/subjects", s.handleGetSubjectCounts())
	s.router.HandleFunc("/api/analysis/series", s.handleGetSeries())
	s.router.HandleFunc("/api/sync", s.handlePostSync())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// handleGetSubjects returns the full subject tree.
func (s *Server) handleGetSubjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		tree, err := s.db.LoadTree(r.Context())
		if err != nil {
			slog.Error("failed to load tree", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, http.StatusOK, tree)
	}
}

// handleGetDue serves both due variants. The optional ?date=YYYY-MM-DD
// parameter defaults to today.
func (s *Server) handleGetDue(selector func(domain.Tree, time.Time) []review.DueQuestion) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		date := s.now().In(s.location)
		if raw := r.URL.Query().Get("date"); raw != "" {
			parsed, err := time.ParseInLocation("2006-01-02", raw, s.location)
			if err != nil {
				s.writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
				return
			}
			date = parsed
		}
		tree, err := s.db.LoadTree(r.Context())
		if err != nil {
			slog.Error("failed to load tree", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, http.StatusOK, selector(tree, date))
	}
}

// answerRequest is the POST body for recording an answer.
type answerRequest struct {
	Correct       bool   `json:"correct"`
	Understanding string `json:"understanding"`
	Reason        string `json:"reason"`
}

// handlePostAnswer records one answer for /api/questions/{id}/answers.
func (s *Server) handlePostAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(r.URL.Path, "/api/questions/")
		questionID, tail, found := strings.Cut(rest, "/")
		if !found || tail != "answers" || questionID == "" {
			http.NotFound(w, r)
			return
		}

		var req answerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		answer := domain.ParseUnderstanding(req.Understanding)
		if answer.Kind == domain.Ambiguous && req.Reason != "" {
			answer.Reason = req.Reason
		}

		tree, err := s.db.LoadTree(r.Context())
		if err != nil {
			slog.Error("failed to load tree", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		ref, record, err := review.RecordAnswer(tree, questionID, req.Correct, answer, s.now().In(s.location))
		if errors.Is(err, domain.ErrQuestionNotFound) {
			s.writeError(w, http.StatusNotFound, "question not found")
			return
		}
		if err != nil {
			slog.Error("failed to record answer", "question_id", questionID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if err := s.db.ApplyAnswer(r.Context(), ref.Question, record); err != nil {
			slog.Error("failed to persist answer", "question_id", questionID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		s.writeJSON(w, http.StatusOK, map[string]any{
			"question": ref.Question,
			"record":   record,
		})
	}
}

func (s *Server) handleGetReverts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		tree, history, ok := s.loadAll(w, r)
		if !ok {
			return
		}
		s.writeJSON(w, http.StatusOK, trend.SimpleReverts(tree, history))
	}
}

func (s *Server) handleGetCycles() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		tree, history, ok := s.loadAll(w, r)
		if !ok {
			return
		}
		s.writeJSON(w, http.StatusOK, trend.CompleteRevertCycles(tree, history))
	}
}

func (s *Server) handleGetStagnant() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		tree, err := s.db.LoadTree(r.Context())
		if err != nil {
			slog.Error("failed to load tree", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, http.StatusOK, trend.Stagnant(tree, s.now().In(s.location), s.stagnationDays))
	}
}

func (s *Server) handleGetSubjectCounts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		tree, err := s.db.LoadTree(r.Context())
		if err != nil {
			slog.Error("failed to load tree", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, http.StatusOK, trend.AmbiguousBySubject(tree))
	}
}

func (s *Server) handleGetSeries() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		granularity := trend.Granularity(r.URL.Query().Get("granularity"))
		switch granularity {
		case "":
			granularity = trend.Daily
		case trend.Daily, trend.Weekly, trend.Monthly:
		default:
			s.writeError(w, http.StatusBadRequest, "granularity must be daily, weekly or monthly")
			return
		}
		tree, history, ok := s.loadAll(w, r)
		if !ok {
			return
		}
		daily := trend.AmbiguousSeries(tree, history)
		s.writeJSON(w, http.StatusOK, trend.Resample(daily, granularity))
	}
}

// handlePostSync triggers a reconciliation of all deck sources.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := syncer.Run(r.Context(), s.db, s.reposDir); err != nil {
			slog.Error("sync failed", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) loadAll(w http.ResponseWriter, r *http.Request) (domain.Tree, []domain.AnswerRecord, bool) {
	tree, err := s.db.LoadTree(r.Context())
	if err != nil {
		slog.Error("failed to load tree", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, nil, false
	}
	history, err := s.db.LoadHistory(r.Context())
	if err != nil {
		slog.Error("failed to load history", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, nil, false
	}
	return tree, history, true
}
