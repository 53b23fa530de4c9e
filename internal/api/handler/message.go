package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mcoot/numerus/internal/api/request"
	"github.com/mcoot/numerus/internal/api/response"
	"github.com/mcoot/numerus/internal/model"
)

// MessageHandler handles room log endpoints
type MessageHandler struct {
	backend Backend
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(backend Backend) *MessageHandler {
	return &MessageHandler{backend: backend}
}

// List handles GET /api/v1/rooms/{id}/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	roomID := model.RoomID(mux.Vars(r)["id"])
	if _, err := h.backend.GetRoom(r.Context(), roomID); err != nil {
		WriteError(w, err)
		return
	}

	messages, err := h.backend.ListMessages(r.Context(), roomID)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.MessagesFromModel(messages))
}

// Add handles POST /api/v1/rooms/{id}/messages
func (h *MessageHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req request.AddMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	kind := model.MessageKind(req.Type)
	switch kind {
	case model.MessageKindSystem, model.MessageKindPlay, model.MessageKindError:
	default:
		WriteError(w, NewInvalidRequestError("type must be system, play or error"))
		return
	}
	if req.Text == "" {
		WriteError(w, NewInvalidRequestError("text is required"))
		return
	}

	var createdAt time.Time
	if req.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, req.CreatedAt)
		if err != nil {
			WriteError(w, NewInvalidRequestError("created_at must be RFC 3339"))
			return
		}
		createdAt = t
	}

	msg, err := h.backend.AddMessage(r.Context(), &model.Message{
		RoomID:         model.RoomID(mux.Vars(r)["id"]),
		Kind:           kind,
		Text:           req.Text,
		PlayerID:       model.PlayerID(req.PlayerID),
		PlayerName:     req.PlayerName,
		Number:         req.Number,
		CorrectNumeral: req.CorrectNumeral,
		Timestamp:      createdAt,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, msg)
}

// Clear handles DELETE /api/v1/rooms/{id}/messages
func (h *MessageHandler) Clear(w http.ResponseWriter, r *http.Request) {
	removed, err := h.backend.ClearMessages(r.Context(), model.RoomID(mux.Vars(r)["id"]))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.MessagesFromModel(removed))
}
