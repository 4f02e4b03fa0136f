package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"simpleboard/internal/model"
)

// MovePolicy decides what happens to a move submitted while another one on
// the same board has not settled yet.
type MovePolicy string

const (
	// PolicyQueue applies moves one after another in arrival order.
	PolicyQueue MovePolicy = "queue"
	// PolicyReject fails the second move with ErrConcurrentMoveRejected.
	PolicyReject MovePolicy = "reject"
)

func (p *MovePolicy) UnmarshalText(text []byte) error {
	switch v := MovePolicy(strings.ToLower(strings.TrimSpace(string(text)))); v {
	case PolicyQueue, PolicyReject:
		*p = v
		return nil
	case "":
		*p = PolicyQueue
		return nil
	default:
		return fmt.Errorf("unknown move policy %q (want %q or %q)", string(text), PolicyQueue, PolicyReject)
	}
}

type BoardCfg struct {
	Policy         MovePolicy
	MaxQueuedMoves int
	EnqueueTimeout time.Duration
	ConfirmTimeout time.Duration
}

const (
	defaultMaxQueuedMoves = 64
	defaultEnqueueTimeout = 2 * time.Second
	defaultConfirmTimeout = 10 * time.Second
)

func (c BoardCfg) withDefaults() BoardCfg {
	if c.Policy == "" {
		c.Policy = PolicyQueue
	}
	if c.MaxQueuedMoves <= 0 {
		c.MaxQueuedMoves = defaultMaxQueuedMoves
	}
	if c.EnqueueTimeout <= 0 {
		c.EnqueueTimeout = defaultEnqueueTimeout
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = defaultConfirmTimeout
	}
	return c
}

// MoveRecorder receives every move that reached a terminal state.
type MoveRecorder interface {
	Append(rec model.MoveRecord) error
}

// HistorySource returns previously recorded moves.
type HistorySource interface {
	Load() []model.MoveRecord
}

// MoveObserver is told how every applied move ended and how long it took.
// An Idle state means the move was refused before it was applied.
type MoveObserver interface {
	MoveSettled(state model.MoveState, elapsed time.Duration)
}

type deps struct {
	confirmer Confirmer
	recorder  MoveRecorder
	history   HistorySource
	observer  MoveObserver
	logger    *zap.Logger
}

type Option func(*deps)

func WithConfirmer(c Confirmer) Option {
	return func(d *deps) { d.confirmer = c }
}

func WithRecorder(r MoveRecorder) Option {
	return func(d *deps) { d.recorder = r }
}

// WithJournal records settled moves in j and serves history from it.
func WithJournal(j *Journal) Option {
	return func(d *deps) {
		d.recorder = j
		d.history = j
	}
}

func WithObserver(o MoveObserver) Option {
	return func(d *deps) { d.observer = o }
}

func WithLogger(l *zap.Logger) Option {
	return func(d *deps) { d.logger = l }
}

func buildDeps(opts []Option) deps {
	var d deps
	for _, opt := range opts {
		opt(&d)
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d
}

type boardOp struct {
	move  model.MoveRequest
	add   *addItemOp
	reply chan opReply
}

type addItemOp struct {
	bucketID string
	item     model.Item
}

type opReply struct {
	outcome Outcome
	err     error
}

/*
BoardManager owns one partition. A single goroutine applies every change,
so the partition has exactly one writer:
- Ordering: the bounded channel preserves submission order.
- Confirmation runs on the worker, so a move settles before the next starts.
- Readers get deep copies of the last published state, which includes the
  optimistic state while a confirmation is in flight.
- Abandonment: confirmation runs under the board context, not the caller's.
  A caller that gives up still sees its move settled (and rolled back if
  refused) by the time it reads the board again.
*/
type BoardManager struct {
	id   string
	cfg  BoardCfg
	deps deps

	ops     chan boardOp
	busy    atomic.Bool
	stopped chan struct{}

	mu      sync.RWMutex
	current model.Partition
	state   model.MoveState
}

// NewBoardManager starts the worker for a board seeded with initial. The
// returned cancel func stops the worker; queued moves fail with
// ErrBoardClosed.
func NewBoardManager(ctx context.Context, id string, initial model.Partition, cfg BoardCfg, opts ...Option) (*BoardManager, context.CancelFunc, error) {
	if err := initial.Validate(); err != nil {
		return nil, nil, err
	}
	cfg = cfg.withDefaults()
	d := buildDeps(opts)
	d.logger = d.logger.With(zap.String("board", id))

	bm := &BoardManager{
		id:      id,
		cfg:     cfg,
		deps:    d,
		ops:     make(chan boardOp, cfg.MaxQueuedMoves),
		stopped: make(chan struct{}),
		current: initial.Clone(),
		state:   model.StateIdle,
	}

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer close(bm.stopped)
		bm.run(runCtx)
	}()
	return bm, cancel, nil
}

func (bm *BoardManager) ID() string {
	return bm.id
}

// Partition returns a copy of the current, possibly optimistic, partition.
func (bm *BoardManager) Partition() model.Partition {
	bm.mu.RLock()
	defer bm.mu.RUnlock()
	return bm.current.Clone()
}

// State is Optimistic while a move waits for confirmation, Idle otherwise.
func (bm *BoardManager) State() model.MoveState {
	bm.mu.RLock()
	defer bm.mu.RUnlock()
	if bm.state.Terminal() {
		return model.StateIdle
	}
	return bm.state
}

// Done is closed once the worker has exited.
func (bm *BoardManager) Done() <-chan struct{} {
	return bm.stopped
}

// Move submits req and waits for it to settle. On a refused confirmation the
// returned outcome carries the restored partition and err is a
// *ConfirmationError.
func (bm *BoardManager) Move(ctx context.Context, req model.MoveRequest) (Outcome, error) {
	if req.Cancelled() {
		return Outcome{Partition: bm.Partition(), State: model.StateIdle}, nil
	}

	if bm.cfg.Policy == PolicyReject && !bm.busy.CompareAndSwap(false, true) {
		bm.deps.logger.Info("move rejected while another is pending", zap.Stringer("request", req))
		return Outcome{Partition: bm.Partition(), State: model.StateIdle}, ErrConcurrentMoveRejected
	}

	reply, queued, err := bm.submit(ctx, boardOp{move: req})
	if err != nil {
		// a queued move releases the slot itself once it settles
		if bm.cfg.Policy == PolicyReject && !queued {
			bm.busy.Store(false)
		}
		return Outcome{Partition: bm.Partition(), State: model.StateIdle}, err
	}
	return reply.outcome, reply.err
}

// AddItem appends item to the end of the bucket through the board worker.
func (bm *BoardManager) AddItem(ctx context.Context, bucketID string, item model.Item) (model.Partition, error) {
	reply, _, err := bm.submit(ctx, boardOp{add: &addItemOp{bucketID: bucketID, item: item}})
	if err != nil {
		return bm.Partition(), err
	}
	return reply.outcome.Partition, reply.err
}

// submit hands op to the worker and waits for its reply. queued reports
// whether the worker accepted op, even if the caller stopped waiting.
func (bm *BoardManager) submit(ctx context.Context, op boardOp) (reply opReply, queued bool, err error) {
	op.reply = make(chan opReply, 1)

	timer := time.NewTimer(bm.cfg.EnqueueTimeout)
	defer timer.Stop()
	select {
	case bm.ops <- op:
	case <-bm.stopped:
		return opReply{}, false, ErrBoardClosed
	case <-timer.C:
		return opReply{}, false, ErrMoveQueueFull
	case <-ctx.Done():
		return opReply{}, false, ctx.Err()
	}

	select {
	case r := <-op.reply:
		return r, true, nil
	case <-ctx.Done():
		bm.deps.logger.Warn("caller abandoned pending board operation; it will still settle", zap.Error(ctx.Err()))
		return opReply{}, true, ctx.Err()
	case <-bm.stopped:
		select {
		case r := <-op.reply:
			return r, true, nil
		default:
			return opReply{}, true, ErrBoardClosed
		}
	}
}

func (bm *BoardManager) run(ctx context.Context) {
	for {
		select {
		case op := <-bm.ops:
			op.reply <- bm.apply(ctx, op)
		case <-ctx.Done():
			bm.deps.logger.Debug("board worker shutting down")
			bm.drain()
			return
		}
	}
}

func (bm *BoardManager) drain() {
	for {
		select {
		case op := <-bm.ops:
			op.reply <- opReply{outcome: Outcome{Partition: bm.Partition(), State: model.StateIdle}, err: ErrBoardClosed}
		default:
			bm.busy.Store(false)
			return
		}
	}
}

func (bm *BoardManager) apply(ctx context.Context, op boardOp) opReply {
	if op.add != nil {
		next, err := AddItem(bm.current, op.add.bucketID, op.add.item)
		if err != nil {
			return opReply{outcome: Outcome{Partition: bm.Partition(), State: model.StateIdle}, err: err}
		}
		bm.publish(model.StateIdle, next)
		return opReply{outcome: Outcome{Partition: next.Clone(), State: model.StateIdle}}
	}

	if bm.cfg.Policy == PolicyReject {
		defer bm.busy.Store(false)
	}

	req := op.move
	item, _ := MovedItem(bm.current, req)

	start := time.Now()
	cctx, cancel := context.WithTimeout(ctx, bm.cfg.ConfirmTimeout)
	out, err := Confirm(cctx, bm.current, req, bm.deps.confirmer, WithTransitionHook(bm.publish))
	cancel()
	if bm.deps.observer != nil {
		bm.deps.observer.MoveSettled(out.State, time.Since(start))
	}

	log := bm.deps.logger.With(
		zap.Stringer("request", req),
		zap.String("item", item.ID),
		zap.Stringer("state", out.State),
	)
	switch {
	case out.State == model.StateRolledBack:
		log.Warn("move rolled back", zap.Error(err))
	case err != nil:
		log.Info("move refused", zap.Error(err))
	default:
		log.Debug("move settled")
	}

	if out.State.Terminal() {
		bm.record(item, req, out.State, err)
	}
	return opReply{outcome: Outcome{Partition: out.Partition.Clone(), State: out.State}, err: err}
}

func (bm *BoardManager) publish(state model.MoveState, p model.Partition) {
	bm.mu.Lock()
	bm.current = p
	bm.state = state
	bm.mu.Unlock()
}

func (bm *BoardManager) record(item model.Item, req model.MoveRequest, state model.MoveState, cause error) {
	if bm.deps.recorder == nil {
		return
	}
	rec := model.MoveRecord{BoardID: bm.id, ItemID: item.ID, Request: req, State: state}
	if cause != nil {
		rec.Cause = cause.Error()
	}
	if err := bm.deps.recorder.Append(rec); err != nil {
		bm.deps.logger.Error("failed to journal move", zap.Error(err))
	}
}
