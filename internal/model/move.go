package model

import "fmt"

// MoveRequest describes a drag gesture from one slot to another. Indices are
// zero based. An empty DestinationBucketID means the drag was dropped outside
// any column and the move is cancelled.
type MoveRequest struct {
	SourceBucketID      string `json:"sourceBucketId"`
	SourceIndex         int    `json:"sourceIndex"`
	DestinationBucketID string `json:"destinationBucketId,omitempty"`
	DestinationIndex    int    `json:"destinationIndex"`
}

func (r MoveRequest) Cancelled() bool {
	return r.DestinationBucketID == ""
}

// Identity reports whether the request drops the item back where it started.
func (r MoveRequest) Identity() bool {
	return !r.Cancelled() &&
		r.SourceBucketID == r.DestinationBucketID &&
		r.SourceIndex == r.DestinationIndex
}

func (r MoveRequest) String() string {
	if r.Cancelled() {
		return fmt.Sprintf("%s[%d] -> (cancelled)", r.SourceBucketID, r.SourceIndex)
	}
	return fmt.Sprintf("%s[%d] -> %s[%d]", r.SourceBucketID, r.SourceIndex, r.DestinationBucketID, r.DestinationIndex)
}

// MoveState is a step of the per-move state machine:
// Idle -> Optimistic -> {Confirmed | RolledBack}.
type MoveState byte

const (
	StateIdle MoveState = iota
	StateOptimistic
	StateConfirmed
	StateRolledBack
)

func (s MoveState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOptimistic:
		return "optimistic"
	case StateConfirmed:
		return "confirmed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("state(%d)", byte(s))
	}
}

func (s MoveState) Terminal() bool {
	return s == StateConfirmed || s == StateRolledBack
}

func (s MoveState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MoveRecord is one settled move as written to the journal.
type MoveRecord struct {
	Sequence uint64      `json:"sequence"`
	BoardID  string      `json:"boardId"`
	ItemID   string      `json:"itemId"`
	Request  MoveRequest `json:"request"`
	State    MoveState   `json:"state"`
	Cause    string      `json:"cause,omitempty"`
}
