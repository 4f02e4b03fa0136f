package engine

import (
	"context"
	"fmt"

	"simpleboard/internal/model"
)

// Confirmer is the asynchronous check a move must pass before it is kept.
// A false result, an error or a panic all count as a refusal.
type Confirmer interface {
	ConfirmMove(ctx context.Context, req model.MoveRequest) (bool, error)
}

// ConfirmerFunc adapts a plain function to Confirmer.
type ConfirmerFunc func(ctx context.Context, req model.MoveRequest) (bool, error)

func (f ConfirmerFunc) ConfirmMove(ctx context.Context, req model.MoveRequest) (bool, error) {
	return f(ctx, req)
}

// Outcome is the settled result of Confirm. Partition is always a valid
// board: the optimistic result when State is Confirmed, the pre-move
// snapshot when RolledBack, the untouched input when Idle.
type Outcome struct {
	Partition model.Partition
	State     model.MoveState
}

// TransitionHook observes every state the move passes through together with
// the partition that is current in that state.
type TransitionHook func(state model.MoveState, p model.Partition)

type confirmOptions struct {
	hook TransitionHook
}

type ConfirmOption func(*confirmOptions)

// WithTransitionHook registers fn to be called on each state change.
func WithTransitionHook(fn TransitionHook) ConfirmOption {
	return func(o *confirmOptions) {
		o.hook = fn
	}
}

// Confirm applies req optimistically and then asks c to confirm it. When c
// refuses, the pre-move snapshot is restored and a *ConfirmationError is
// returned together with the restored partition. A nil confirmer makes the
// optimistic move final.
func Confirm(ctx context.Context, p model.Partition, req model.MoveRequest, c Confirmer, opts ...ConfirmOption) (Outcome, error) {
	var o confirmOptions
	for _, opt := range opts {
		opt(&o)
	}
	emit := func(s model.MoveState, part model.Partition) {
		if o.hook != nil {
			o.hook(s, part)
		}
	}

	if req.Cancelled() {
		emit(model.StateIdle, p)
		return Outcome{Partition: p, State: model.StateIdle}, nil
	}

	snapshot := model.TakeSnapshot(p)
	moved, err := Move(p, req)
	if err != nil {
		emit(model.StateIdle, p)
		return Outcome{Partition: p, State: model.StateIdle}, err
	}
	emit(model.StateOptimistic, moved)

	if c == nil || req.Identity() {
		emit(model.StateConfirmed, moved)
		return Outcome{Partition: moved, State: model.StateConfirmed}, nil
	}

	ok, cerr := callConfirmer(ctx, c, req)
	if cerr != nil || !ok {
		restored := snapshot.Partition()
		emit(model.StateRolledBack, restored)
		return Outcome{Partition: restored, State: model.StateRolledBack},
			&ConfirmationError{Request: req, Cause: cerr}
	}

	emit(model.StateConfirmed, moved)
	return Outcome{Partition: moved, State: model.StateConfirmed}, nil
}

func callConfirmer(ctx context.Context, c Confirmer, req model.MoveRequest) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("confirmer panicked: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.ConfirmMove(ctx, req)
}
