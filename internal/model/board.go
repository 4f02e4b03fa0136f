package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidPartition = errors.New("invalid partition")

// Item is a card on the board. Payload is carried around untouched.
type Item struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Bucket is one ordered column of items.
type Bucket struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Items []Item `json:"items"`
}

// Partition is the full set of buckets in display order.
//
// Values are treated as immutable: every mutation in this module builds a
// new Partition and leaves the receiver alone.
type Partition struct {
	Buckets []Bucket `json:"buckets"`
}

// NewPartition validates the caller-supplied buckets and returns a deep copy
// so later changes to the input slices cannot leak into the board.
func NewPartition(buckets []Bucket) (Partition, error) {
	p := Partition{Buckets: buckets}.Clone()
	if err := p.Validate(); err != nil {
		return Partition{}, err
	}
	return p, nil
}

// Validate checks that bucket ids are unique and that every item id appears
// exactly once across the whole partition.
func (p Partition) Validate() error {
	buckets := make(map[string]struct{}, len(p.Buckets))
	items := make(map[string]string)
	for _, b := range p.Buckets {
		if b.ID == "" {
			return fmt.Errorf("%w: bucket with empty id", ErrInvalidPartition)
		}
		if _, dup := buckets[b.ID]; dup {
			return fmt.Errorf("%w: duplicate bucket id %q", ErrInvalidPartition, b.ID)
		}
		buckets[b.ID] = struct{}{}
		for _, it := range b.Items {
			if it.ID == "" {
				return fmt.Errorf("%w: item with empty id in bucket %q", ErrInvalidPartition, b.ID)
			}
			if owner, dup := items[it.ID]; dup {
				return fmt.Errorf("%w: item %q appears in %q and %q", ErrInvalidPartition, it.ID, owner, b.ID)
			}
			items[it.ID] = b.ID
		}
	}
	return nil
}

// BucketIndex returns the position of the bucket with the given id.
func (p Partition) BucketIndex(id string) (int, bool) {
	for i := range p.Buckets {
		if p.Buckets[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// Bucket returns the bucket with the given id.
func (p Partition) Bucket(id string) (Bucket, bool) {
	i, ok := p.BucketIndex(id)
	if !ok {
		return Bucket{}, false
	}
	return p.Buckets[i], true
}

// ItemCount is the total number of items across all buckets.
func (p Partition) ItemCount() int {
	n := 0
	for _, b := range p.Buckets {
		n += len(b.Items)
	}
	return n
}

// Clone returns a deep copy, payload bytes included.
func (p Partition) Clone() Partition {
	if p.Buckets == nil {
		return Partition{}
	}
	out := Partition{Buckets: make([]Bucket, len(p.Buckets))}
	for i, b := range p.Buckets {
		out.Buckets[i] = Bucket{ID: b.ID, Title: b.Title, Items: cloneItems(b.Items)}
	}
	return out
}

// cloneItems keeps a nil slice nil so a copy is deep-equal to its source.
func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

func (it Item) Clone() Item {
	out := Item{ID: it.ID}
	if it.Payload != nil {
		out.Payload = append(json.RawMessage{}, it.Payload...)
	}
	return out
}

// Snapshot is a frozen copy of a Partition kept for rollback.
type Snapshot struct {
	partition Partition
}

// TakeSnapshot deep-copies p.
func TakeSnapshot(p Partition) Snapshot {
	return Snapshot{partition: p.Clone()}
}

// Partition hands out a fresh copy so the snapshot itself never changes.
func (s Snapshot) Partition() Partition {
	return s.partition.Clone()
}
