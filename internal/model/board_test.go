package model

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPartitionRejectsDuplicates(t *testing.T) {
	tests := []struct {
		name    string
		buckets []Bucket
	}{
		{
			name:    "duplicate bucket",
			buckets: []Bucket{{ID: "todo", Items: []Item{}}, {ID: "todo", Items: []Item{}}},
		},
		{
			name: "item in two buckets",
			buckets: []Bucket{
				{ID: "todo", Items: []Item{{ID: "a"}}},
				{ID: "done", Items: []Item{{ID: "a"}}},
			},
		},
		{
			name:    "item twice in one bucket",
			buckets: []Bucket{{ID: "todo", Items: []Item{{ID: "a"}, {ID: "a"}}}},
		},
		{
			name:    "empty bucket id",
			buckets: []Bucket{{ID: "", Items: []Item{}}},
		},
		{
			name:    "empty item id",
			buckets: []Bucket{{ID: "todo", Items: []Item{{ID: ""}}}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPartition(tc.buckets)
			if !errors.Is(err, ErrInvalidPartition) {
				t.Fatalf("expected ErrInvalidPartition, got %v", err)
			}
		})
	}
}

func TestNewPartitionCopiesInput(t *testing.T) {
	items := []Item{{ID: "a", Payload: json.RawMessage(`{"title":"one"}`)}}
	p, err := NewPartition([]Bucket{{ID: "todo", Items: items}})
	require.NoError(t, err)

	items[0].ID = "changed"
	items[0].Payload[2] = 'X'

	assert.Equal(t, "a", p.Buckets[0].Items[0].ID)
	assert.JSONEq(t, `{"title":"one"}`, string(p.Buckets[0].Items[0].Payload))
}

func TestSnapshotIsImmutable(t *testing.T) {
	p, err := NewPartition([]Bucket{
		{ID: "todo", Title: "Todo", Items: []Item{{ID: "a"}, {ID: "b"}}},
		{ID: "done", Items: []Item{}},
	})
	require.NoError(t, err)

	snap := TakeSnapshot(p)
	p.Buckets[0].Items[0].ID = "mutated"

	first := snap.Partition()
	first.Buckets[0].Items = nil

	again := snap.Partition()
	assert.Equal(t, "a", again.Buckets[0].Items[0].ID)
	assert.Len(t, again.Buckets[0].Items, 2)
}

func TestPartitionLookups(t *testing.T) {
	p, err := NewPartition([]Bucket{
		{ID: "todo", Items: []Item{{ID: "a"}, {ID: "b"}}},
		{ID: "done", Items: []Item{{ID: "c"}}},
	})
	require.NoError(t, err)

	i, ok := p.BucketIndex("done")
	assert.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = p.Bucket("missing")
	assert.False(t, ok)

	assert.Equal(t, 3, p.ItemCount())
}

func TestMoveRequestPredicates(t *testing.T) {
	assert.True(t, MoveRequest{SourceBucketID: "todo"}.Cancelled())
	assert.False(t, MoveRequest{SourceBucketID: "todo", DestinationBucketID: "todo"}.Cancelled())

	same := MoveRequest{SourceBucketID: "todo", SourceIndex: 1, DestinationBucketID: "todo", DestinationIndex: 1}
	assert.True(t, same.Identity())
	same.DestinationIndex = 2
	assert.False(t, same.Identity())
}

func TestMoveStateJSON(t *testing.T) {
	raw, err := json.Marshal(MoveRecord{BoardID: "b", State: StateRolledBack})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"state":"rolled_back"`)
	assert.True(t, StateConfirmed.Terminal())
	assert.False(t, StateOptimistic.Terminal())
}

func TestCloneKeepsNilness(t *testing.T) {
	p := Partition{Buckets: []Bucket{
		{ID: "todo", Items: []Item{{ID: "a", Payload: json.RawMessage{}}, {ID: "b"}}},
		{ID: "done"},
		{ID: "later", Items: []Item{}},
	}}

	c := p.Clone()
	assert.True(t, reflect.DeepEqual(p, c))
	assert.Nil(t, c.Buckets[1].Items)
	assert.NotNil(t, c.Buckets[2].Items)
	assert.NotNil(t, c.Buckets[0].Items[0].Payload)
	assert.Nil(t, c.Buckets[0].Items[1].Payload)

	raw, err := json.Marshal(c.Buckets[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"done","items":null}`, string(raw))
}
