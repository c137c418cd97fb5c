package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/claude/overload/internal/models"
	"github.com/google/uuid"
)

const defaultSessionLimit = 20

type sessionRequest struct {
	Name      string     `json:"name"`
	RoutineID *uuid.UUID `json:"routine_id"`
	StartedAt *time.Time `json:"started_at"`
}

type endSessionRequest struct {
	EndedAt *time.Time `json:"ended_at"`
}

type setRequest struct {
	ExerciseID  uuid.UUID  `json:"exercise_id"`
	Index       *int       `json:"index"`
	Weight      float64    `json:"weight"`
	Reps        int        `json:"reps"`
	IsWarmup    bool       `json:"is_warmup"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
}

// completedAt resolves the completion time: an explicit timestamp wins,
// "completed": true means now.
func (req setRequest) completedAt() *time.Time {
	if req.CompletedAt != nil {
		return req.CompletedAt
	}
	if req.Completed {
		now := time.Now().UTC()
		return &now
	}
	return nil
}

func (req setRequest) problems() []string {
	var problems []string
	if req.Weight < 0 {
		problems = append(problems, "weight must not be negative")
	}
	if req.Reps < 0 {
		problems = append(problems, "reps must not be negative")
	}
	if req.Index != nil && *req.Index < 0 {
		problems = append(problems, "index must not be negative")
	}
	return problems
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultSessionLimit)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	sessions, err := s.db.ListSessions(r.Context(), userIDFromContext(r), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	uid := userIDFromContext(r)
	if req.RoutineID != nil {
		if _, err := s.db.GetRoutine(r.Context(), uid, *req.RoutineID); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	sess := &models.Session{
		UserID:    uid,
		RoutineID: req.RoutineID,
		Name:      strings.TrimSpace(req.Name),
		StartedAt: time.Now().UTC(),
	}
	if req.StartedAt != nil {
		sess.StartedAt = *req.StartedAt
	}
	if err := s.db.CreateSession(r.Context(), sess); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	uid := userIDFromContext(r)
	sess, err := s.db.GetSession(r.Context(), uid, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sets, err := s.db.ListSessionSets(r.Context(), uid, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.SessionSets{Session: *sess, Sets: sets})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req endSessionRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	at := time.Now().UTC()
	if req.EndedAt != nil {
		at = *req.EndedAt
	}
	sess, err := s.db.EndSession(r.Context(), userIDFromContext(r), id, at)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleListSessionSets(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	uid := userIDFromContext(r)
	if _, err := s.db.GetSession(r.Context(), uid, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	sets, err := s.db.ListSessionSets(r.Context(), uid, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sets)
}

func (s *Server) handleAddSet(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := urlID(w, r)
	if !ok {
		return
	}
	var req setRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if problems := req.problems(); len(problems) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation failed", "problems": problems})
		return
	}
	set := &models.SetEntry{
		UserID:      userIDFromContext(r),
		SessionID:   sessionID,
		ExerciseID:  req.ExerciseID,
		Weight:      req.Weight,
		Reps:        req.Reps,
		IsWarmup:    req.IsWarmup,
		CompletedAt: req.completedAt(),
	}
	var err error
	if req.Index != nil {
		set.Index = *req.Index
		err = s.db.InsertSet(r.Context(), set)
	} else {
		err = s.db.AppendSet(r.Context(), set)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, set)
}

func (s *Server) handleUpdateSet(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req setRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if problems := req.problems(); len(problems) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation failed", "problems": problems})
		return
	}
	set := &models.SetEntry{
		ID:          id,
		UserID:      userIDFromContext(r),
		Weight:      req.Weight,
		Reps:        req.Reps,
		IsWarmup:    req.IsWarmup,
		CompletedAt: req.completedAt(),
	}
	if err := s.db.UpdateSet(r.Context(), set); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleDeleteSet(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := s.db.DeleteSet(r.Context(), userIDFromContext(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
