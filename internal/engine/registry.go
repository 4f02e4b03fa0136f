package engine

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"simpleboard/internal/model"
)

type boardEntry struct {
	manager *BoardManager
	cancel  context.CancelFunc
}

// Registry keeps the live boards of the process. Each board is an
// independent session with its own worker.
type Registry struct {
	ctx  context.Context
	cfg  BoardCfg
	opts []Option
	deps deps

	mu     sync.RWMutex
	boards map[string]boardEntry
}

// NewRegistry creates an empty registry. opts are applied to every board it
// creates; boards stop when ctx ends.
func NewRegistry(ctx context.Context, cfg BoardCfg, opts ...Option) *Registry {
	return &Registry{
		ctx:    ctx,
		cfg:    cfg,
		opts:   opts,
		deps:   buildDeps(opts),
		boards: make(map[string]boardEntry),
	}
}

// Create starts a board with the given id and initial partition.
func (r *Registry) Create(id string, initial model.Partition) (*BoardManager, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.boards[id]; ok {
		return nil, ErrBoardExists
	}
	bm, cancel, err := NewBoardManager(r.ctx, id, initial, r.cfg, r.opts...)
	if err != nil {
		return nil, err
	}
	r.boards[id] = boardEntry{manager: bm, cancel: cancel}
	r.deps.logger.Info("board created",
		zap.String("board", id),
		zap.Int("buckets", len(initial.Buckets)),
		zap.Int("items", initial.ItemCount()),
	)
	return bm, nil
}

func (r *Registry) Get(id string) (*BoardManager, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.boards[id]
	if !ok {
		return nil, ErrBoardNotFound
	}
	return e.manager, nil
}

// IDs returns the ids of all live boards, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.boards))
	for id := range r.boards {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Remove ends the board's session and waits for its worker to exit.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	e, ok := r.boards[id]
	delete(r.boards, id)
	r.mu.Unlock()
	if !ok {
		return ErrBoardNotFound
	}
	e.cancel()
	<-e.manager.Done()
	r.deps.logger.Info("board removed", zap.String("board", id))
	return nil
}

// Close stops every board.
func (r *Registry) Close() {
	for _, id := range r.IDs() {
		_ = r.Remove(id)
	}
}

// History returns the journaled moves of a board, most recent last. A
// positive limit keeps only that many of the newest records. Without a
// journal the history is empty.
func (r *Registry) History(boardID string, limit int) []model.MoveRecord {
	out := make([]model.MoveRecord, 0)
	if r.deps.history == nil {
		return out
	}
	for _, rec := range r.deps.history.Load() {
		if rec.BoardID == boardID {
			out = append(out, rec)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
