package paginate

import (
	"context"

	"pagesift/internal/types"
)

// Paginator decides the sequence of pages a run visits.
type Paginator interface {
	// First returns the descriptor for the initial page.
	First() *types.PageRef

	// HasNext reports whether another page follows the current one.
	// Exhausting the configured page bound is terminal even when an
	// in-page next control is still present.
	HasNext(st *types.PipelineState) bool

	// Advance produces the descriptor for the next page. It is only
	// called after HasNext has reported true.
	Advance(ctx context.Context, st *types.PipelineState) (*types.PageRef, error)
}
