package domain

import "context"

// GroundingClient answers whether a generation is supported by the source
// document it was produced from. The verdict is binary; anything short of a
// clear "yes" counts as ungrounded.
type GroundingClient interface {
	CheckGrounding(ctx context.Context, facts, generation string) (bool, error)
}
