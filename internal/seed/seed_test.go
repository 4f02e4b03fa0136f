package seed

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardIsDeterministicPerSeed(t *testing.T) {
	a, err := Board(11, DefaultShape)
	require.NoError(t, err)
	b, err := Board(11, DefaultShape)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBoardRespectsShape(t *testing.T) {
	for s := int64(1); s <= 25; s++ {
		p, err := Board(s, DefaultShape)
		require.NoError(t, err)
		require.NoError(t, p.Validate())

		assert.GreaterOrEqual(t, len(p.Buckets), DefaultShape.MinBuckets)
		assert.LessOrEqual(t, len(p.Buckets), DefaultShape.MaxBuckets)
		for _, b := range p.Buckets {
			assert.GreaterOrEqual(t, len(b.Items), DefaultShape.MinItems)
			assert.LessOrEqual(t, len(b.Items), DefaultShape.MaxItems)
			for _, it := range b.Items {
				var lead Lead
				require.NoError(t, json.Unmarshal(it.Payload, &lead))
				assert.NotEmpty(t, lead.Title)
				assert.GreaterOrEqual(t, lead.Value, 1.0)
				assert.LessOrEqual(t, lead.Value, 100.0)
			}
		}
	}
}
