package paginate

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"pagesift/internal/config"
	"pagesift/internal/types"
)

// Templated paginates by substituting the page index into a
// placeholder token in the base address. Fully deterministic; it
// terminates when the configured page count is exhausted.
type Templated struct {
	baseURL     string
	placeholder string
	maxPages    int
	logger      *slog.Logger
}

// NewTemplated creates a templated paginator from the pagination
// configuration.
func NewTemplated(cfg *config.PaginateConfig, logger *slog.Logger) *Templated {
	return &Templated{
		baseURL:     cfg.BaseURL,
		placeholder: cfg.Placeholder,
		maxPages:    cfg.MaxPages,
		logger:      logger.With("component", "templated_paginator"),
	}
}

// First returns the descriptor for page 1.
func (t *Templated) First() *types.PageRef {
	return &types.PageRef{Index: 1, URL: t.urlFor(1)}
}

// HasNext reports whether the page bound allows another page.
func (t *Templated) HasNext(st *types.PipelineState) bool {
	return st.PageIndex < t.maxPages
}

// Advance returns the descriptor for the next page index.
func (t *Templated) Advance(ctx context.Context, st *types.PipelineState) (*types.PageRef, error) {
	next := st.PageIndex + 1
	ref := &types.PageRef{Index: next, URL: t.urlFor(next)}
	t.logger.Debug("advancing", "page", next, "url", ref.URL)
	return ref, nil
}

func (t *Templated) urlFor(n int) string {
	return strings.ReplaceAll(t.baseURL, t.placeholder, strconv.Itoa(n))
}
