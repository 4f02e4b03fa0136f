// Package seed builds random demo boards.
package seed

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/brianvoe/gofakeit/v6"

	"simpleboard/internal/model"
)

// Lead is the payload of a demo card.
type Lead struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Value       float64 `json:"value"`
}

// Shape bounds the size of a generated board.
type Shape struct {
	MinBuckets, MaxBuckets int
	MinItems, MaxItems     int
}

// DefaultShape is 2-10 columns with 2-4 leads each.
var DefaultShape = Shape{MinBuckets: 2, MaxBuckets: 10, MinItems: 2, MaxItems: 4}

// Board generates a random partition. The same seed yields the same board;
// a zero seed picks a random one.
func Board(seed int64, shape Shape) (model.Partition, error) {
	f := gofakeit.New(seed)

	buckets := make([]model.Bucket, f.IntRange(shape.MinBuckets, shape.MaxBuckets))
	for i := range buckets {
		items := make([]model.Item, f.IntRange(shape.MinItems, shape.MaxItems))
		for j := range items {
			payload, err := json.Marshal(Lead{
				Title:       fmt.Sprintf("%d %s", j, f.Name()),
				Description: f.Sentence(8),
				Value:       math.Round(f.Float64Range(1, 100)*100) / 100,
			})
			if err != nil {
				return model.Partition{}, fmt.Errorf("encode lead: %w", err)
			}
			items[j] = model.Item{ID: f.UUID(), Payload: payload}
		}
		buckets[i] = model.Bucket{ID: f.UUID(), Title: f.Name(), Items: items}
	}
	return model.NewPartition(buckets)
}
