package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/numerus/internal/api/request"
	"github.com/mcoot/numerus/internal/api/response"
	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/realtime"
	"github.com/mcoot/numerus/internal/storage"
)

// Backend is the row store plus the hubs that fan its changes out
type Backend interface {
	storage.Storage
	Hubs() *realtime.HubManager
}

// RoomHandler handles room endpoints
type RoomHandler struct {
	backend Backend
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(backend Backend) *RoomHandler {
	return &RoomHandler{backend: backend}
}

// Create handles POST /api/v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	code := model.NormalizeRoomCode(req.Code)
	if !code.Valid() {
		WriteError(w, model.ErrInvalidRoomCode)
		return
	}
	difficulty, err := model.ParseDifficulty(req.Difficulty)
	if err != nil {
		WriteError(w, err)
		return
	}
	showHints := difficulty.ShowsHints()
	if req.ShowHints != nil {
		showHints = *req.ShowHints
	}

	room, err := h.backend.CreateRoom(r.Context(), &model.Room{
		Code:       code,
		Difficulty: difficulty,
		ShowHints:  showHints,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, room)
}

// Get handles GET /api/v1/rooms/{id}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	room, err := h.backend.GetRoom(r.Context(), model.RoomID(mux.Vars(r)["id"]))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, room)
}

// GetByCode handles GET /api/v1/rooms/by-code/{code}
func (h *RoomHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	code := model.NormalizeRoomCode(mux.Vars(r)["code"])
	if !code.Valid() {
		WriteError(w, model.ErrInvalidRoomCode)
		return
	}

	room, err := h.backend.GetRoomByCode(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, room)
}

// Update handles PATCH /api/v1/rooms/{id}
func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request) {
	var update model.RoomUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if update.Difficulty != nil {
		d, err := model.ParseDifficulty(string(*update.Difficulty))
		if err != nil {
			WriteError(w, err)
			return
		}
		update.Difficulty = &d
	}
	if update.Status != nil && *update.Status != model.RoomStatusActive && *update.Status != model.RoomStatusFinished {
		WriteError(w, NewInvalidRequestError("status must be active or finished"))
		return
	}
	if update.CurrentNumber != nil && *update.CurrentNumber < 1 {
		WriteError(w, NewInvalidRequestError("current_number must be positive"))
		return
	}

	room, err := h.backend.UpdateRoom(r.Context(), model.RoomID(mux.Vars(r)["id"]), update)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, room)
}
