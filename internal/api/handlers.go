package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"simpleboard/internal/engine"
	"simpleboard/internal/model"
	"simpleboard/internal/seed"
)

type ItemInput struct {
	ID      string          `json:"id" validate:"omitempty,max=128"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type BucketInput struct {
	ID    string      `json:"id" validate:"omitempty,max=128"`
	Title string      `json:"title" validate:"max=256"`
	Items []ItemInput `json:"items" validate:"dive"`
}

type CreateBoardRequest struct {
	ID      string        `json:"id" validate:"omitempty,max=128"`
	Buckets []BucketInput `json:"buckets" validate:"required,min=1,dive"`
}

// MoveItemRequest is the drag-end event. Omitting destinationBucketId
// cancels the move.
type MoveItemRequest struct {
	SourceBucketID      string `json:"sourceBucketId" validate:"required"`
	SourceIndex         int    `json:"sourceIndex"`
	DestinationBucketID string `json:"destinationBucketId,omitempty"`
	DestinationIndex    int    `json:"destinationIndex"`
}

// BoardHandler serves the board API on top of a board registry.
type BoardHandler struct {
	boards *engine.Registry
	logger *zap.Logger
}

var _ ServerInterface = (*BoardHandler)(nil)

func NewBoardHandler(boards *engine.Registry, logger *zap.Logger) *BoardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BoardHandler{boards: boards, logger: logger}
}

func (h *BoardHandler) ListBoards(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, BoardListResponse{Boards: h.boards.IDs()})
}

func (h *BoardHandler) CreateBoard(w http.ResponseWriter, r *http.Request) {
	var req CreateBoardRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.respondBadRequest(w, codeMalformedRequest, err.Error())
		return
	}

	buckets := make([]model.Bucket, len(req.Buckets))
	for i, b := range req.Buckets {
		items := make([]model.Item, len(b.Items))
		for j, it := range b.Items {
			items[j] = model.Item{ID: orNewID(it.ID), Payload: it.Payload}
		}
		buckets[i] = model.Bucket{ID: orNewID(b.ID), Title: b.Title, Items: items}
	}
	p, err := model.NewPartition(buckets)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.createBoard(w, orNewID(req.ID), p)
}

func (h *BoardHandler) CreateRandomBoard(w http.ResponseWriter, r *http.Request, params CreateRandomBoardParams) {
	var s int64
	if params.Seed != nil {
		s = *params.Seed
	}
	p, err := seed.Board(s, seed.DefaultShape)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.createBoard(w, uuid.NewString(), p)
}

func (h *BoardHandler) createBoard(w http.ResponseWriter, id string, p model.Partition) {
	bm, err := h.boards.Create(id, p)
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/boards/"+id)
	h.respondJSON(w, http.StatusCreated, boardResponse(bm))
}

func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request, boardId string) {
	bm, err := h.boards.Get(boardId)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, boardResponse(bm))
}

func (h *BoardHandler) DeleteBoard(w http.ResponseWriter, r *http.Request, boardId string) {
	if err := h.boards.Remove(boardId); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BoardHandler) AddItem(w http.ResponseWriter, r *http.Request, boardId string, bucketId string) {
	var req ItemInput
	if err := decodeBody(w, r, &req); err != nil {
		h.respondBadRequest(w, codeMalformedRequest, err.Error())
		return
	}
	bm, err := h.boards.Get(boardId)
	if err != nil {
		h.respondError(w, err)
		return
	}
	p, err := bm.AddItem(r.Context(), bucketId, model.Item{ID: orNewID(req.ID), Payload: req.Payload})
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, BoardResponse{ID: boardId, State: bm.State(), Buckets: p.Buckets})
}

func (h *BoardHandler) ListMoves(w http.ResponseWriter, r *http.Request, boardId string, params ListMovesParams) {
	if _, err := h.boards.Get(boardId); err != nil {
		h.respondError(w, err)
		return
	}
	limit := 0
	if params.Limit != nil {
		limit = *params.Limit
	}
	h.respondJSON(w, http.StatusOK, MoveHistoryResponse{Moves: h.boards.History(boardId, limit)})
}

func (h *BoardHandler) MoveItem(w http.ResponseWriter, r *http.Request, boardId string) {
	var req MoveItemRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.respondBadRequest(w, codeMalformedRequest, err.Error())
		return
	}
	bm, err := h.boards.Get(boardId)
	if err != nil {
		h.respondError(w, err)
		return
	}

	out, err := bm.Move(r.Context(), model.MoveRequest{
		SourceBucketID:      req.SourceBucketID,
		SourceIndex:         req.SourceIndex,
		DestinationBucketID: req.DestinationBucketID,
		DestinationIndex:    req.DestinationIndex,
	})
	resp := MoveResponse{BoardID: boardId, State: out.State, Buckets: out.Partition.Buckets}
	if err == nil {
		h.respondJSON(w, http.StatusOK, resp)
		return
	}

	status, code := classify(err)
	if errors.Is(err, engine.ErrConfirmationFailed) {
		h.logger.Warn("Move rolled back",
			zap.String("boardID", boardId),
			zap.String("requestID", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
	resp.Error = &ErrorInfo{Code: code, Message: err.Error()}
	h.respondJSON(w, status, resp)
}

func boardResponse(bm *engine.BoardManager) BoardResponse {
	return BoardResponse{ID: bm.ID(), State: bm.State(), Buckets: bm.Partition().Buckets}
}

func orNewID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
