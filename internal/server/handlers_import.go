package server

import (
	"context"
	"net/http"
	"time"

	"github.com/claude/overload/internal/backup"
	"github.com/claude/overload/internal/ingest"
	"github.com/claude/overload/internal/storage"
)

func (s *Server) handleAlphaIngest(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r)
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	result, err := s.alpha.Ingest(r.Context(), r.Body, uid)
	s.logImport(uid, "alpha", result, err, int(time.Since(start).Milliseconds()))
	if err != nil {
		s.log.Error("alpha ingest error", "error", err)
		writeBadRequest(w, err.Error())
		return
	}
	s.metrics.ObserveImportedSets(result.SetsInserted)

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.backup.Export(r.Context(), userIDFromContext(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		w.Header().Set("Content-Disposition", `attachment; filename="overload-backup.json"`)
		writeJSON(w, http.StatusOK, doc)
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="overload-sets.csv"`)
		if err := backup.WriteSetsCSV(w, doc); err != nil {
			s.log.Error("writing CSV export", "error", err)
		}
	default:
		writeBadRequest(w, "format must be json or csv")
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var doc backup.Document
	if !decodeJSON(w, r, &doc) {
		return
	}
	uid := userIDFromContext(r)
	start := time.Now()

	err := s.backup.Import(r.Context(), uid, &doc)
	result := &ingest.Result{
		SessionsReceived: len(doc.Sessions),
		SetsReceived:     len(doc.Sets),
	}
	if err == nil {
		result.SessionsInserted = len(doc.Sessions)
		result.SetsInserted = int64(len(doc.Sets))
	}
	s.logImport(uid, "backup", result, err, int(time.Since(start).Milliseconds()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.ObserveImportedSets(result.SetsInserted)

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	logs, err := s.db.QueryImportLogs(r.Context(), userIDFromContext(r), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// logImport records an import operation's result to the import_logs table.
func (s *Server) logImport(uid int, source string, result *ingest.Result, importErr error, durationMs int) {
	status := "success"
	var errMsg *string
	if importErr != nil {
		status = "error"
		msg := importErr.Error()
		errMsg = &msg
	}
	if result == nil {
		result = &ingest.Result{}
	}

	entry := storage.ImportLog{
		UserID:           uid,
		Source:           source,
		Status:           status,
		SessionsReceived: result.SessionsReceived,
		SessionsInserted: result.SessionsInserted,
		ExercisesCreated: result.ExercisesCreated,
		SetsReceived:     result.SetsReceived,
		SetsInserted:     result.SetsInserted,
		DurationMs:       &durationMs,
		ErrorMessage:     errMsg,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := s.db.InsertImportLog(ctx, entry); err != nil {
		s.log.Error("failed to log import", "source", source, "error", err)
	}
}
