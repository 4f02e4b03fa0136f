package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"simpleboard/internal/engine"
	"simpleboard/internal/model"
)

// ErrorInfo is the error part of every failed response.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error ErrorInfo `json:"error"`
}

// BoardResponse is a board as seen by clients. State is "optimistic" while a
// move on the board is waiting for confirmation.
type BoardResponse struct {
	ID      string          `json:"id"`
	State   model.MoveState `json:"state"`
	Buckets []model.Bucket  `json:"buckets"`
}

// MoveResponse is returned for every settled move, including refused ones:
// Buckets is always the board as it stands after the move settled.
type MoveResponse struct {
	BoardID string          `json:"boardId"`
	State   model.MoveState `json:"state"`
	Buckets []model.Bucket  `json:"buckets"`
	Error   *ErrorInfo      `json:"error,omitempty"`
}

type BoardListResponse struct {
	Boards []string `json:"boards"`
}

type MoveHistoryResponse struct {
	Moves []model.MoveRecord `json:"moves"`
}

const (
	codeInvalidRequest   = "INVALID_REQUEST"
	codeInvalidBoard     = "INVALID_BOARD"
	codeConfirmation     = "CONFIRMATION_FAILED"
	codeConcurrentMove   = "CONCURRENT_MOVE_REJECTED"
	codeQueueFull        = "MOVE_QUEUE_FULL"
	codeBoardClosed      = "BOARD_CLOSED"
	codeBoardNotFound    = "BOARD_NOT_FOUND"
	codeBoardExists      = "BOARD_EXISTS"
	codeMovePending      = "MOVE_PENDING"
	codeInternal         = "INTERNAL_ERROR"
	codeMalformedRequest = "MALFORMED_REQUEST"
)

// classify maps an error to its HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrInvalidRequest):
		return http.StatusBadRequest, codeInvalidRequest
	case errors.Is(err, model.ErrInvalidPartition):
		return http.StatusBadRequest, codeInvalidBoard
	case errors.Is(err, engine.ErrConfirmationFailed):
		return http.StatusFailedDependency, codeConfirmation
	case errors.Is(err, engine.ErrConcurrentMoveRejected):
		return http.StatusConflict, codeConcurrentMove
	case errors.Is(err, engine.ErrBoardExists):
		return http.StatusConflict, codeBoardExists
	case errors.Is(err, engine.ErrBoardNotFound):
		return http.StatusNotFound, codeBoardNotFound
	case errors.Is(err, engine.ErrBoardClosed):
		return http.StatusGone, codeBoardClosed
	case errors.Is(err, engine.ErrMoveQueueFull):
		return http.StatusServiceUnavailable, codeQueueFull
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, codeMovePending
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func (h *BoardHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *BoardHandler) respondError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Int("status", status), zap.Error(err))
	}
	h.respondJSON(w, status, errorResponse{Error: ErrorInfo{Code: code, Message: err.Error()}})
}

func (h *BoardHandler) respondBadRequest(w http.ResponseWriter, code, message string) {
	h.respondJSON(w, http.StatusBadRequest, errorResponse{Error: ErrorInfo{Code: code, Message: message}})
}
