package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/numerus/internal/api/request"
	"github.com/mcoot/numerus/internal/api/response"
	"github.com/mcoot/numerus/internal/model"
)

// PlayerHandler handles player endpoints
type PlayerHandler struct {
	backend Backend
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(backend Backend) *PlayerHandler {
	return &PlayerHandler{backend: backend}
}

// List handles GET /api/v1/rooms/{id}/players
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	roomID := model.RoomID(mux.Vars(r)["id"])
	if _, err := h.backend.GetRoom(r.Context(), roomID); err != nil {
		WriteError(w, err)
		return
	}

	players, err := h.backend.ListPlayers(r.Context(), roomID)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.PlayersFromModel(players))
}

// Add handles POST /api/v1/rooms/{id}/players
func (h *PlayerHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req request.AddPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		WriteError(w, NewInvalidRequestError("name is required"))
		return
	}
	if req.TurnOrder < 0 {
		WriteError(w, NewInvalidRequestError("turn_order must not be negative"))
		return
	}

	player, err := h.backend.AddPlayer(r.Context(), &model.Player{
		RoomID:    model.RoomID(mux.Vars(r)["id"]),
		Name:      name,
		IsBot:     req.IsBot,
		IsOwner:   req.IsOwner,
		TurnOrder: req.TurnOrder,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, player)
}

// UpdateScore handles PATCH /api/v1/players/{id}
func (h *PlayerHandler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Points == nil {
		WriteError(w, NewInvalidRequestError("points is required"))
		return
	}

	player, err := h.backend.UpdatePlayerScore(r.Context(), model.PlayerID(mux.Vars(r)["id"]), *req.Points)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, player)
}

// Remove handles DELETE /api/v1/players/{id}. The removed row is returned so the
// caller knows its removal is the one that took effect.
func (h *PlayerHandler) Remove(w http.ResponseWriter, r *http.Request) {
	player, err := h.backend.RemovePlayer(r.Context(), model.PlayerID(mux.Vars(r)["id"]))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, player)
}
