package server

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/claude/overload/internal/models"
	"github.com/claude/overload/internal/storage"
	"github.com/google/uuid"
)

// memStore is an in-memory Store that also satisfies the advisor and backup stores.
type memStore struct {
	mu        sync.Mutex
	users     map[string]int
	exercises map[uuid.UUID]models.Exercise
	routines  map[uuid.UUID]models.Routine
	sessions  map[uuid.UUID]models.Session
	sets      map[uuid.UUID]models.SetEntry
	logs      []storage.ImportLog
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[string]int{"local": 1},
		exercises: map[uuid.UUID]models.Exercise{},
		routines:  map[uuid.UUID]models.Routine{},
		sessions:  map[uuid.UUID]models.Session{},
		sets:      map[uuid.UUID]models.SetEntry{},
	}
}

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
}

func (m *memStore) GetOrCreateUser(_ context.Context, login, _ string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.users[login]; ok {
		return id, nil
	}
	id := len(m.users) + 1
	m.users[login] = id
	return id, nil
}

func (m *memStore) CreateExercise(_ context.Context, e *models.Exercise) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.exercises {
		if other.UserID == e.UserID && other.Name == e.Name {
			return fmt.Errorf("exercise %q: %w", e.Name, storage.ErrDuplicate)
		}
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	m.exercises[e.ID] = *e
	return nil
}

func (m *memStore) GetExercise(_ context.Context, userID int, id uuid.UUID) (*models.Exercise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exercises[id]
	if !ok || e.UserID != userID {
		return nil, notFound("exercise")
	}
	return &e, nil
}

func (m *memStore) ListExercises(_ context.Context, userID int) ([]models.Exercise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Exercise{}
	for _, e := range m.exercises {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) UpdateExercise(_ context.Context, e *models.Exercise) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.exercises[e.ID]; !ok || old.UserID != e.UserID {
		return notFound("exercise")
	}
	e.UpdatedAt = time.Now()
	m.exercises[e.ID] = *e
	return nil
}

func (m *memStore) DeleteExercise(_ context.Context, userID int, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.exercises[id]; !ok || e.UserID != userID {
		return notFound("exercise")
	}
	delete(m.exercises, id)
	for sid, s := range m.sets {
		if s.ExerciseID == id {
			delete(m.sets, sid)
		}
	}
	for rid, r := range m.routines {
		if r.UserID != userID {
			continue
		}
		kept := []uuid.UUID{}
		for _, exID := range r.ExerciseIDs {
			if exID != id {
				kept = append(kept, exID)
			}
		}
		r.ExerciseIDs = kept
		m.routines[rid] = r
	}
	return nil
}

func (m *memStore) CreateRoutine(_ context.Context, r *models.Routine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.CreatedAt = time.Now()
	m.routines[r.ID] = *r
	return nil
}

func (m *memStore) GetRoutine(_ context.Context, userID int, id uuid.UUID) (*models.Routine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routines[id]
	if !ok || r.UserID != userID {
		return nil, notFound("routine")
	}
	return &r, nil
}

func (m *memStore) ListRoutines(_ context.Context, userID int) ([]models.Routine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Routine{}
	for _, r := range m.routines {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) DeleteRoutine(_ context.Context, userID int, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.routines[id]; !ok || r.UserID != userID {
		return notFound("routine")
	}
	delete(m.routines, id)
	return nil
}

func (m *memStore) CreateSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.sessions[s.ID] = *s
	return nil
}

func (m *memStore) GetSession(_ context.Context, userID int, id uuid.UUID) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return nil, notFound("session")
	}
	return &s, nil
}

func (m *memStore) ListSessions(_ context.Context, userID, limit int) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Session{}
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) EndSession(_ context.Context, userID int, id uuid.UUID, at time.Time) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return nil, notFound("session")
	}
	if s.EndedAt == nil {
		s.EndedAt = &at
	}
	m.sessions[id] = s
	return &s, nil
}

func (m *memStore) owned(userID int, sessionID, exerciseID uuid.UUID) bool {
	s, okS := m.sessions[sessionID]
	e, okE := m.exercises[exerciseID]
	return okS && okE && s.UserID == userID && e.UserID == userID
}

func (m *memStore) InsertSet(_ context.Context, s *models.SetEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.owned(s.UserID, s.SessionID, s.ExerciseID) {
		return notFound("session or exercise for set")
	}
	for _, other := range m.sets {
		if other.SessionID == s.SessionID && other.ExerciseID == s.ExerciseID && other.Index == s.Index {
			return fmt.Errorf("set index in session %s is taken: %w", s.SessionID, storage.ErrDuplicate)
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now()
	m.sets[s.ID] = *s
	return nil
}

func (m *memStore) AppendSet(ctx context.Context, s *models.SetEntry) error {
	m.mu.Lock()
	next := 0
	for _, other := range m.sets {
		if other.SessionID == s.SessionID && other.ExerciseID == s.ExerciseID && other.Index >= next {
			next = other.Index + 1
		}
	}
	m.mu.Unlock()
	s.Index = next
	return m.InsertSet(ctx, s)
}

func (m *memStore) UpdateSet(_ context.Context, s *models.SetEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.sets[s.ID]
	if !ok || old.UserID != s.UserID {
		return notFound("set")
	}
	old.Weight, old.Reps, old.IsWarmup, old.CompletedAt = s.Weight, s.Reps, s.IsWarmup, s.CompletedAt
	m.sets[s.ID] = old
	*s = old
	return nil
}

func (m *memStore) DeleteSet(_ context.Context, userID int, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sets[id]; !ok || s.UserID != userID {
		return notFound("set")
	}
	delete(m.sets, id)
	return nil
}

func (m *memStore) filterSets(keep func(models.SetEntry) bool) []models.SetEntry {
	out := []models.SetEntry{}
	for _, s := range m.sets {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExerciseID != out[j].ExerciseID {
			return out[i].ExerciseID.String() < out[j].ExerciseID.String()
		}
		return out[i].Index < out[j].Index
	})
	return out
}

func (m *memStore) ListSessionSets(_ context.Context, userID int, sessionID uuid.UUID) ([]models.SetEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filterSets(func(s models.SetEntry) bool {
		return s.UserID == userID && s.SessionID == sessionID
	}), nil
}

func (m *memStore) ListSessionExerciseSets(_ context.Context, userID int, sessionID, exerciseID uuid.UUID) ([]models.SetEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filterSets(func(s models.SetEntry) bool {
		return s.UserID == userID && s.SessionID == sessionID && s.ExerciseID == exerciseID
	}), nil
}

func (m *memStore) LatestSessionForExercise(_ context.Context, userID int, exerciseID uuid.UUID) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.Session
	for _, set := range m.sets {
		if set.UserID != userID || set.ExerciseID != exerciseID {
			continue
		}
		s := m.sessions[set.SessionID]
		if latest == nil || s.StartedAt.After(latest.StartedAt) {
			latest = &s
		}
	}
	if latest == nil {
		return nil, notFound("session for exercise")
	}
	return latest, nil
}

func (m *memStore) RecentSessionsForExercise(ctx context.Context, userID int, exerciseID uuid.UUID, limit int) ([]models.SessionSets, error) {
	sessions, _ := m.ListSessions(ctx, userID, 0)
	out := []models.SessionSets{}
	for _, s := range sessions {
		sets, _ := m.ListSessionExerciseSets(ctx, userID, s.ID, exerciseID)
		if len(sets) == 0 {
			continue
		}
		out = append(out, models.SessionSets{Session: s, Sets: sets})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) ExportSnapshot(ctx context.Context, userID int) (*storage.Snapshot, error) {
	exercises, _ := m.ListExercises(ctx, userID)
	routines, _ := m.ListRoutines(ctx, userID)
	sessions, _ := m.ListSessions(ctx, userID, 0)
	m.mu.Lock()
	sets := m.filterSets(func(s models.SetEntry) bool { return s.UserID == userID })
	m.mu.Unlock()
	return &storage.Snapshot{Exercises: exercises, Routines: routines, Sessions: sessions, Sets: sets}, nil
}

func (m *memStore) ReplaceSnapshot(_ context.Context, userID int, snap *storage.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.exercises {
		if e.UserID == userID {
			delete(m.exercises, id)
		}
	}
	for id, r := range m.routines {
		if r.UserID == userID {
			delete(m.routines, id)
		}
	}
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
		}
	}
	for id, s := range m.sets {
		if s.UserID == userID {
			delete(m.sets, id)
		}
	}
	for _, e := range snap.Exercises {
		e.UserID = userID
		m.exercises[e.ID] = e
	}
	for _, r := range snap.Routines {
		r.UserID = userID
		m.routines[r.ID] = r
	}
	for _, s := range snap.Sessions {
		s.UserID = userID
		m.sessions[s.ID] = s
	}
	for _, s := range snap.Sets {
		s.UserID = userID
		m.sets[s.ID] = s
	}
	return nil
}

func (m *memStore) InsertImportLog(_ context.Context, l storage.ImportLog) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = int64(len(m.logs) + 1)
	m.logs = append(m.logs, l)
	return l.ID, nil
}

func (m *memStore) QueryImportLogs(_ context.Context, userID, _ int) ([]storage.ImportLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []storage.ImportLog{}
	for _, l := range m.logs {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}
