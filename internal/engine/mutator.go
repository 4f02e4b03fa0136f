package engine

import (
	"fmt"

	"simpleboard/internal/model"
)

// Move returns a new partition with the item at the request's source slot
// moved to its destination slot. The input partition is never modified.
//
// The item is removed before it is inserted, so for a move inside one bucket
// the destination index addresses the sequence without the moved item.
// A cancelled request returns p as-is.
func Move(p model.Partition, req model.MoveRequest) (model.Partition, error) {
	if req.Cancelled() {
		return p, nil
	}

	src, dst, err := locate(p, req)
	if err != nil {
		return p, err
	}

	out := p.Clone()
	if req.Identity() {
		return out, nil
	}

	from := out.Buckets[src].Items
	item := from[req.SourceIndex]
	from = append(from[:req.SourceIndex], from[req.SourceIndex+1:]...)
	out.Buckets[src].Items = from

	to := out.Buckets[dst].Items
	at := req.DestinationIndex
	if at > len(to) {
		// same-bucket append: the post-removal sequence is one shorter
		at = len(to)
	}
	to = append(to, model.Item{})
	copy(to[at+1:], to[at:])
	to[at] = item
	out.Buckets[dst].Items = to

	return out, nil
}

// ValidateMove checks bucket existence and index bounds against the current
// contents of p without changing anything.
func ValidateMove(p model.Partition, req model.MoveRequest) error {
	if req.Cancelled() {
		return nil
	}
	_, _, err := locate(p, req)
	return err
}

// MovedItem returns the item a request would pick up.
func MovedItem(p model.Partition, req model.MoveRequest) (model.Item, bool) {
	b, ok := p.Bucket(req.SourceBucketID)
	if !ok || req.SourceIndex < 0 || req.SourceIndex >= len(b.Items) {
		return model.Item{}, false
	}
	return b.Items[req.SourceIndex], true
}

func locate(p model.Partition, req model.MoveRequest) (src, dst int, err error) {
	src, ok := p.BucketIndex(req.SourceBucketID)
	if !ok {
		return 0, 0, invalidRequest("unknown source bucket %q", req.SourceBucketID)
	}
	dst, ok = p.BucketIndex(req.DestinationBucketID)
	if !ok {
		return 0, 0, invalidRequest("unknown destination bucket %q", req.DestinationBucketID)
	}

	srcLen := len(p.Buckets[src].Items)
	if req.SourceIndex < 0 || req.SourceIndex >= srcLen {
		return 0, 0, invalidRequest("source index %d out of range [0,%d)", req.SourceIndex, srcLen)
	}
	dstLen := len(p.Buckets[dst].Items)
	if req.DestinationIndex < 0 || req.DestinationIndex > dstLen {
		return 0, 0, invalidRequest("destination index %d out of range [0,%d]", req.DestinationIndex, dstLen)
	}
	return src, dst, nil
}

// AddItem returns a new partition with item appended to the bucket.
func AddItem(p model.Partition, bucketID string, item model.Item) (model.Partition, error) {
	i, ok := p.BucketIndex(bucketID)
	if !ok {
		return p, invalidRequest("unknown bucket %q", bucketID)
	}
	out := p.Clone()
	out.Buckets[i].Items = append(out.Buckets[i].Items, item.Clone())
	if err := out.Validate(); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return out, nil
}
