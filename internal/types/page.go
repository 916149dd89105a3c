package types

import (
	"bytes"
	"time"

	"golang.org/x/net/html"
)

// PageRef identifies one logical page in the pagination sequence.
type PageRef struct {
	// Index is the 1-based position of the page in the sequence.
	Index int

	// URL is the resolved address for this page.
	URL string

	// Live marks a page whose content is already rendered in the
	// browser session (interactive pagination navigates in-place, so
	// the fetcher must capture rather than re-navigate).
	Live bool
}

// Page holds one fetched unit of source content plus its logical
// position in the pagination sequence. Immutable once fetched.
type Page struct {
	// Ref is the descriptor that produced this page.
	Ref PageRef

	// Body is the raw markup bytes.
	Body []byte

	// FetchedAt is when this page was obtained.
	FetchedAt time.Time

	// FetchDuration is how long the fetch took.
	FetchDuration time.Duration

	root *html.Node
}

// NewPage creates a Page from fetched content.
func NewPage(ref PageRef, body []byte, duration time.Duration) *Page {
	return &Page{
		Ref:           ref,
		Body:          body,
		FetchedAt:     time.Now(),
		FetchDuration: duration,
	}
}

// Root returns the parsed document root, lazily parsing the body once.
func (p *Page) Root() (*html.Node, error) {
	if p.root != nil {
		return p.root, nil
	}
	node, err := html.Parse(bytes.NewReader(p.Body))
	if err != nil {
		return nil, err
	}
	p.root = node
	return node, nil
}
