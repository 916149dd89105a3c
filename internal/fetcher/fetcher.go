package fetcher

import (
	"context"

	"pagesift/internal/types"
)

// Fetcher is the interface for all page fetcher implementations.
type Fetcher interface {
	// Fetch obtains the markup for the page named by the descriptor.
	Fetch(ctx context.Context, ref *types.PageRef) (*types.Page, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}
