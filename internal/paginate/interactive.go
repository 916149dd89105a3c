package paginate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"pagesift/internal/config"
	"pagesift/internal/types"
)

// Session is the subset of the browser session the interactive
// paginator needs. The session stays owned by the pipeline driver via
// the fetcher; the paginator only borrows it per call.
type Session interface {
	Page() *rod.Page
	WaitMarker(ctx context.Context) error
}

// Interactive paginates by locating a "next" affordance in the
// current rendered state and activating it. An absent affordance is a
// terminal state, not an error; a marker timeout after activation is
// a NavigationError.
type Interactive struct {
	session      Session
	startURL     string
	nextSelector string
	maxPages     int
	waitTimeout  time.Duration
	logger       *slog.Logger
}

// NewInteractive creates an interactive paginator bound to a browser
// session.
func NewInteractive(cfg *config.Config, session Session, logger *slog.Logger) *Interactive {
	return &Interactive{
		session:      session,
		startURL:     cfg.Paginate.BaseURL,
		nextSelector: cfg.Paginate.NextSelector,
		maxPages:     cfg.Paginate.MaxPages,
		waitTimeout:  cfg.Browser.WaitTimeout,
		logger:       logger.With("component", "interactive_paginator"),
	}
}

// First returns the descriptor for the starting address.
func (p *Interactive) First() *types.PageRef {
	return &types.PageRef{Index: 1, URL: p.startURL}
}

// HasNext reports whether another page follows. The configured page
// bound takes precedence: once reached, the run stops even if a next
// control remains clickable.
func (p *Interactive) HasNext(st *types.PipelineState) bool {
	if st.PageIndex >= p.maxPages {
		return false
	}

	has, _, err := p.session.Page().Has(p.nextSelector)
	if err != nil {
		p.logger.Warn("next affordance probe failed", "selector", p.nextSelector, "error", err)
		return false
	}
	if !has {
		p.logger.Debug("no next affordance, run is terminal", "page", st.PageIndex)
	}
	return has
}

// Advance activates the next affordance and suspends until the next
// page's marker content is present.
func (p *Interactive) Advance(ctx context.Context, st *types.PipelineState) (*types.PageRef, error) {
	page := p.session.Page().Context(ctx)

	has, el, err := page.Has(p.nextSelector)
	if err != nil || !has {
		return nil, &types.NavigationError{
			Selector: p.nextSelector,
			Err:      fmt.Errorf("next affordance not found: %v", err),
		}
	}

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, &types.NavigationError{Selector: p.nextSelector, Err: err}
	}

	// Let the DOM settle before probing for the marker; stability
	// timeout alone is not fatal, the marker wait is authoritative.
	if err := page.Timeout(p.waitTimeout).WaitStable(300 * time.Millisecond); err != nil {
		p.logger.Warn("page stability timeout, continuing", "error", err)
	}

	if err := p.session.WaitMarker(ctx); err != nil {
		return nil, &types.NavigationError{Selector: p.nextSelector, Err: err}
	}

	next := st.PageIndex + 1
	ref := &types.PageRef{Index: next, Live: true}
	if info, err := p.session.Page().Info(); err == nil && info != nil {
		ref.URL = info.URL
	}

	p.logger.Debug("advanced to next page", "page", next, "url", ref.URL)
	return ref, nil
}
