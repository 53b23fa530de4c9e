package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/realtime"
)

// FeedHandler serves a room's live streams over SSE
type FeedHandler struct {
	backend Backend
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(backend Backend) *FeedHandler {
	return &FeedHandler{backend: backend}
}

// Changes handles GET /api/v1/rooms/{id}/changes
func (h *FeedHandler) Changes(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, nil)
}

// Presence handles GET /api/v1/rooms/{id}/presence?player_id=...&name=...
// The caller counts as live for as long as the stream stays open.
func (h *FeedHandler) Presence(w http.ResponseWriter, r *http.Request) {
	playerID := strings.TrimSpace(r.URL.Query().Get("player_id"))
	if playerID == "" {
		WriteError(w, NewInvalidRequestError("player_id is required"))
		return
	}
	h.serve(w, r, &model.PresenceMember{
		PlayerID: model.PlayerID(playerID),
		Name:     r.URL.Query().Get("name"),
	})
}

func (h *FeedHandler) serve(w http.ResponseWriter, r *http.Request, member *model.PresenceMember) {
	roomID := model.RoomID(mux.Vars(r)["id"])
	if _, err := h.backend.GetRoom(r.Context(), roomID); err != nil {
		WriteError(w, err)
		return
	}

	client, err := h.backend.Hubs().Join(roomID, member)
	if err != nil {
		WriteError(w, err)
		return
	}
	realtime.ServeSSE(w, r, client)
}
