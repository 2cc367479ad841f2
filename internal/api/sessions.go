package api

import (
	"net/http"

	"github.com/baisoku/sonar/internal/answer"
	"github.com/baisoku/sonar/internal/survey"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var in survey.CreateSessionInput
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.engine.CreateSession(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	ov, err := s.engine.Overview(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (s *Server) generateQuestions(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	qs, err := s.engine.GenerateBatch(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"questions": qs})
}

func (s *Server) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var sub answer.Submission
	if err := decodeBody(w, r, &sub); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.engine.SubmitAnswer(r.Context(), sub)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if guest := GuestSubject(r.Context()); guest != "" {
		s.logger.Debug("answer submitted", "session_id", rec.SessionID, "guest", guest)
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) generateReport(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	rep, err := s.engine.GenerateReport(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

func (s *Server) latestReport(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	rep, err := s.engine.LatestReport(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// sessionID parses the {id} route parameter. Malformed ids are reported as
// not found.
func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: msgNotFound})
		return uuid.Nil, false
	}
	return id, true
}
