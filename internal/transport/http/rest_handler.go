package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"quizlive-service/internal/app"
	"quizlive-service/internal/domain"
)

// RESTHandler serves the read-only gamification queries: per-user
// summary, global leaderboard and the badge catalog.
type RESTHandler struct {
	coordinator *app.Coordinator
}

func NewRESTHandler(coordinator *app.Coordinator) *RESTHandler {
	return &RESTHandler{coordinator: coordinator}
}

type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// Summary handles GET /api/gamification/summary?userId=...
func (h *RESTHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "userId is required"})
		return
	}
	summary, err := h.coordinator.Engine().SummaryFor(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, apiResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: summary})
}

// Leaderboard handles GET /api/gamification/leaderboard?limit=N.
func (h *RESTHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	entries := h.coordinator.Engine().GlobalLeaderboard(limit)
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: entries})
}

// History handles GET /api/gamification/history?userId=..., returning
// the user's past attempts ranked best first.
func (h *RESTHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "userId is required"})
		return
	}
	entries, err := h.coordinator.Engine().AttemptHistory(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, apiResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: entries})
}

// Badges handles GET /api/gamification/badges.
func (h *RESTHandler) Badges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: domain.BadgeDefinitions})
}

// Rooms handles GET /api/rooms, listing live room snapshots.
func (h *RESTHandler) Rooms(w http.ResponseWriter, r *http.Request) {
	rooms := h.coordinator.Rooms().ListRooms()
	snapshots := make([]domain.RoomSnapshot, 0, len(rooms))
	for _, room := range rooms {
		snapshots = append(snapshots, room.Snapshot())
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: snapshots})
}
