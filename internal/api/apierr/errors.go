package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/numerus/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeInvalidRoomCode   = "INVALID_ROOM_CODE"
	CodeInvalidDifficulty = "INVALID_DIFFICULTY"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeRoomNotFound      = "ROOM_NOT_FOUND"
	CodeRoomCodeTaken     = "ROOM_CODE_TAKEN"
	CodePlayerNotFound    = "PLAYER_NOT_FOUND"
	CodeMessageNotFound   = "MESSAGE_NOT_FOUND"
	CodeInternalError     = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, model.ErrRoomNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRoomNotFound, "Room not found"}}
	case errors.Is(err, model.ErrRoomCodeTaken):
		return &httpError{http.StatusConflict, APIError{CodeRoomCodeTaken, "Room code already in use"}}
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrMessageNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeMessageNotFound, "Message not found"}}
	case errors.Is(err, model.ErrInvalidRoomCode):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRoomCode, "Room code must be 6 letters or digits"}}
	case errors.Is(err, model.ErrInvalidDifficulty):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidDifficulty, "Difficulty must be easy, normal or hard"}}
	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// Sentinel maps an error code back to the model error it was produced from.
// Unknown codes return nil.
func Sentinel(code string) error {
	switch code {
	case CodeRoomNotFound:
		return model.ErrRoomNotFound
	case CodeRoomCodeTaken:
		return model.ErrRoomCodeTaken
	case CodePlayerNotFound:
		return model.ErrPlayerNotFound
	case CodeMessageNotFound:
		return model.ErrMessageNotFound
	case CodeInvalidRoomCode:
		return model.ErrInvalidRoomCode
	case CodeInvalidDifficulty:
		return model.ErrInvalidDifficulty
	}
	return nil
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
