package mcp

import (
	"context"

	"github.com/claude/overload/internal/progression"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

const defaultSessionLimit = 10

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List all tracked exercises with their progression setup (rep range, work sets, weight increment, unit)."),
)

var toolGetSuggestion = mcp.NewTool("get_progression_suggestion",
	mcp.WithDescription("Double-progression advice for an exercise: whether the work sets are complete and what to do next (collect more sets, add reps, or increase weight)."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise ID or name (case-insensitive, partial match allowed if unique)")),
	mcp.WithString("session", mcp.Description("Session ID. Defaults to the most recent session containing the exercise.")),
)

var toolGetHistory = mcp.NewTool("get_exercise_history",
	mcp.WithDescription("Estimated 1RM per recent finished session, best recent set, and the 1RM trend between the newest and oldest session in the window."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise ID or name")),
	mcp.WithNumber("limit", mcp.Description("Number of recent sessions to consider. Defaults to the server's history window.")),
)

var toolListSessions = mcp.NewTool("list_sessions",
	mcp.WithDescription("List training sessions, newest first."),
	mcp.WithNumber("limit", mcp.Description("Maximum sessions to return. Defaults to 10.")),
)

var toolEstimateOneRepMax = mcp.NewTool("estimate_one_rep_max",
	mcp.WithDescription("Epley one-rep-max estimate: weight * (1 + reps/30)."),
	mcp.WithNumber("weight", mcp.Required(), mcp.Description("Load lifted")),
	mcp.WithNumber("reps", mcp.Required(), mcp.Description("Repetitions performed")),
)

func jsonResult(v any) *mcp.CallToolResult {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed")
	}
	return result
}

func (h *handlers) listExercises(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercises, err := h.ds.ListExercises(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp list_exercises", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(exercises), nil
}

func (h *handlers) getSuggestion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	uid := UserIDFromContext(ctx)

	var sessionID *uuid.UUID
	if raw := req.GetString("session", ""); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return mcp.NewToolResultError("invalid session id: " + err.Error()), nil
		}
		sessionID = &id
	}

	ex, err := resolveExercise(ctx, h.ds, uid, ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	advice, err := h.ds.Suggest(ctx, uid, ex.ID, sessionID)
	if err != nil {
		h.log.Error("mcp get_progression_suggestion", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(advice), nil
}

func (h *handlers) getHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	limit := req.GetInt("limit", 0)
	if limit < 0 {
		return mcp.NewToolResultError("limit must not be negative"), nil
	}
	uid := UserIDFromContext(ctx)

	ex, err := resolveExercise(ctx, h.ds, uid, ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	hist, err := h.ds.History(ctx, uid, ex.ID, limit)
	if err != nil {
		h.log.Error("mcp get_exercise_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(hist), nil
}

func (h *handlers) listSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", defaultSessionLimit)
	if limit < 1 {
		return mcp.NewToolResultError("limit must be at least 1"), nil
	}

	sessions, err := h.ds.ListSessions(ctx, UserIDFromContext(ctx), limit)
	if err != nil {
		h.log.Error("mcp list_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(sessions), nil
}

func (h *handlers) estimateOneRepMax(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	weight, err := req.RequireFloat("weight")
	if err != nil || weight < 0 {
		return mcp.NewToolResultError("weight must be a non-negative number"), nil
	}
	reps, err := req.RequireInt("reps")
	if err != nil || reps < 0 {
		return mcp.NewToolResultError("reps must be a non-negative integer"), nil
	}
	return jsonResult(map[string]any{
		"weight":      weight,
		"reps":        reps,
		"one_rep_max": progression.EstimateOneRepMax(weight, reps),
	}), nil
}
