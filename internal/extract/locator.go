package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
)

// Locator finds nodes relative to a context node. It is the single
// capability the extractor is written against; the two variants cover
// structural selectors and relational path queries.
type Locator interface {
	// First returns the first matching node in document order.
	First(n *html.Node) (*html.Node, bool)

	// All returns every matching node in document order.
	All(n *html.Node) []*html.Node

	// String returns the source expression, for logging.
	String() string
}

// NewLocator builds a Locator from an expression and its kind
// ("css" or "xpath"; empty defaults to css).
func NewLocator(expr, kind string) (Locator, error) {
	switch kind {
	case "", "css":
		return NewCSSLocator(expr), nil
	case "xpath":
		return NewXPathLocator(expr)
	default:
		return nil, fmt.Errorf("unknown locator type %q", kind)
	}
}

// CSSLocator finds nodes using a CSS selector via goquery.
type CSSLocator struct {
	selector string
}

// NewCSSLocator creates a CSS selector locator.
func NewCSSLocator(selector string) *CSSLocator {
	return &CSSLocator{selector: selector}
}

func (l *CSSLocator) First(n *html.Node) (*html.Node, bool) {
	sel := goquery.NewDocumentFromNode(n).Find(l.selector)
	if sel.Length() == 0 {
		return nil, false
	}
	return sel.Get(0), true
}

func (l *CSSLocator) All(n *html.Node) []*html.Node {
	return goquery.NewDocumentFromNode(n).Find(l.selector).Nodes
}

func (l *CSSLocator) String() string { return l.selector }

// XPathLocator finds nodes using a compiled XPath expression. Path
// queries with ancestor/preceding/descendant axes stay usable when
// class names are auto-generated and unstable.
type XPathLocator struct {
	expr     string
	compiled *xpath.Expr
}

// NewXPathLocator compiles an XPath expression into a locator.
func NewXPathLocator(expr string) (*XPathLocator, error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile xpath %q: %w", expr, err)
	}
	return &XPathLocator{expr: expr, compiled: compiled}, nil
}

func (l *XPathLocator) First(n *html.Node) (*html.Node, bool) {
	node := htmlquery.QuerySelector(n, l.compiled)
	if node == nil {
		return nil, false
	}
	return node, true
}

func (l *XPathLocator) All(n *html.Node) []*html.Node {
	return htmlquery.QuerySelectorAll(n, l.compiled)
}

func (l *XPathLocator) String() string { return l.expr }

// nodeValue resolves a node to a field value: trimmed text content by
// default, or a named attribute.
func nodeValue(n *html.Node, attribute string) string {
	switch attribute {
	case "", "text":
		return strings.TrimSpace(htmlquery.InnerText(n))
	default:
		return strings.TrimSpace(htmlquery.SelectAttr(n, attribute))
	}
}
