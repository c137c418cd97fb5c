package server

import (
	"net/http"
	"strings"

	"github.com/claude/overload/internal/backup"
	"github.com/claude/overload/internal/models"
	"github.com/claude/overload/internal/progression"
	"github.com/google/uuid"
)

type configRequest struct {
	RepMin          *int     `json:"rep_min"`
	RepMax          *int     `json:"rep_max"`
	WorkSetsTarget  *int     `json:"work_sets_target"`
	WeightIncrement *float64 `json:"weight_increment"`
	Unit            *string  `json:"unit"`
}

// apply overlays the fields present in the request onto base.
func (c *configRequest) apply(base progression.Config) progression.Config {
	if c == nil {
		return base
	}
	if c.RepMin != nil {
		base.RepMin = *c.RepMin
	}
	if c.RepMax != nil {
		base.RepMax = *c.RepMax
	}
	if c.WorkSetsTarget != nil {
		base.WorkSetsTarget = *c.WorkSetsTarget
	}
	if c.WeightIncrement != nil {
		base.WeightIncrement = *c.WeightIncrement
	}
	if c.Unit != nil {
		base.Unit = *c.Unit
	}
	return base
}

type exerciseRequest struct {
	Name      *string        `json:"name"`
	Equipment *string        `json:"equipment"`
	Config    *configRequest `json:"config"`
}

// apply overlays the fields present in the request onto ex.
func (req *exerciseRequest) apply(ex *models.Exercise) {
	if req.Name != nil {
		ex.Name = strings.TrimSpace(*req.Name)
	}
	if req.Equipment != nil {
		ex.Equipment = strings.TrimSpace(*req.Equipment)
	}
	ex.Config = req.Config.apply(ex.Config)
}

// validateExercise enforces the progression invariants before anything is stored.
func validateExercise(e *models.Exercise) []string {
	var problems []string
	if strings.TrimSpace(e.Name) == "" {
		problems = append(problems, "name is required")
	}
	c := e.Config
	problems = append(problems, backup.ConfigProblems(c.RepMin, c.RepMax, c.WorkSetsTarget, c.WeightIncrement)...)
	return problems
}

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	exercises, err := s.db.ListExercises(r.Context(), userIDFromContext(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exercises)
}

func (s *Server) handleGetExercise(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	ex, err := s.db.GetExercise(r.Context(), userIDFromContext(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

func (s *Server) handleCreateExercise(w http.ResponseWriter, r *http.Request) {
	var req exerciseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ex := &models.Exercise{UserID: userIDFromContext(r), Config: s.defaults}
	req.apply(ex)
	if problems := validateExercise(ex); len(problems) > 0 {
		s.writeError(w, r, &backup.ValidationError{Problems: problems})
		return
	}
	if err := s.db.CreateExercise(r.Context(), ex); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ex)
}

func (s *Server) handleUpdateExercise(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req exerciseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ex, err := s.db.GetExercise(r.Context(), userIDFromContext(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req.apply(ex)
	if problems := validateExercise(ex); len(problems) > 0 {
		s.writeError(w, r, &backup.ValidationError{Problems: problems})
		return
	}
	if err := s.db.UpdateExercise(r.Context(), ex); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

func (s *Server) handleDeleteExercise(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := s.db.DeleteExercise(r.Context(), userIDFromContext(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var sessionID *uuid.UUID
	if v := r.URL.Query().Get("session"); v != "" {
		parsed, err := uuid.Parse(v)
		if err != nil {
			writeBadRequest(w, "invalid session id")
			return
		}
		sessionID = &parsed
	}
	advice, err := s.advisor.Suggest(r.Context(), userIDFromContext(r), id, sessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, advice)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	h, err := s.advisor.History(r.Context(), userIDFromContext(r), id, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

type routineRequest struct {
	Name        string      `json:"name"`
	ExerciseIDs []uuid.UUID `json:"exercise_ids"`
}

func (s *Server) handleListRoutines(w http.ResponseWriter, r *http.Request) {
	routines, err := s.db.ListRoutines(r.Context(), userIDFromContext(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, routines)
}

func (s *Server) handleCreateRoutine(w http.ResponseWriter, r *http.Request) {
	var req routineRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	uid := userIDFromContext(r)
	routine := &models.Routine{UserID: uid, Name: strings.TrimSpace(req.Name), ExerciseIDs: req.ExerciseIDs}
	if routine.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}
	for _, exID := range routine.ExerciseIDs {
		if _, err := s.db.GetExercise(r.Context(), uid, exID); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if err := s.db.CreateRoutine(r.Context(), routine); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, routine)
}

func (s *Server) handleDeleteRoutine(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := s.db.DeleteRoutine(r.Context(), userIDFromContext(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
