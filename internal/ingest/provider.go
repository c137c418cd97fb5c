// Package ingest holds types shared by the import providers.
package ingest

// Result holds the outcome of an ingest operation.
type Result struct {
	SessionsReceived int `json:"sessions_received"`
	SessionsInserted int `json:"sessions_inserted"`
	SessionsReplaced int `json:"sessions_replaced,omitempty"`
	ExercisesCreated int `json:"exercises_created"`

	SetsReceived int   `json:"sets_received"`
	SetsInserted int64 `json:"sets_inserted"`

	Message string `json:"message,omitempty"`
}

// Add accumulates other into r.
func (r *Result) Add(other Result) {
	r.SessionsReceived += other.SessionsReceived
	r.SessionsInserted += other.SessionsInserted
	r.SessionsReplaced += other.SessionsReplaced
	r.ExercisesCreated += other.ExercisesCreated
	r.SetsReceived += other.SetsReceived
	r.SetsInserted += other.SetsInserted
}
