package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/entrhq/bddrun/pkg/lifecycle"
)

// DefaultSnapshotLimit bounds the text and markup kept in a DOM snapshot.
const DefaultSnapshotLimit = 200000

// DOMSnapshot is a reduced copy of a page: scripts, styles and other noise
// removed, structure and the attributes useful for writing selectors kept.
type DOMSnapshot struct {
	Title     string
	URL       string
	HTML      string
	Truncated bool
}

// Bytes renders the snapshot as a standalone HTML file.
func (s *DOMSnapshot) Bytes() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "<!-- url: %s -->\n", s.URL)
	fmt.Fprintf(&b, "<!-- title: %s -->\n", s.Title)
	if s.Truncated {
		b.WriteString("<!-- truncated -->\n")
	}
	b.WriteString(s.HTML)
	b.WriteString("\n")
	return []byte(b.String())
}

// DOMSnapshot captures the current page. It implements the optional DOM
// source used when a failed attempt is filed.
func (s *Session) DOMSnapshot() ([]byte, error) {
	if !s.Alive() {
		return nil, lifecycle.ErrEnvironmentClosed
	}
	content, err := s.Page.Content()
	if err != nil {
		return nil, fmt.Errorf("page content unavailable: %w", wrapClosed(err))
	}
	snap, err := ParseDOM(content, DefaultSnapshotLimit)
	if err != nil {
		return nil, err
	}
	snap.URL = s.Page.URL()
	return snap.Bytes(), nil
}

// ParseDOM reduces raw HTML to a DOMSnapshot of at most limit characters of
// text and tags.
func ParseDOM(raw string, limit int) (*DOMSnapshot, error) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	w := &domWriter{limit: limit}
	w.children(doc, 0)

	return &DOMSnapshot{
		Title:     findTitle(doc),
		HTML:      strings.TrimSpace(w.b.String()),
		Truncated: w.full,
	}, nil
}

var (
	skippedTags = tagSet("script", "style", "noscript", "iframe", "embed", "object", "svg", "template")
	blockTags   = tagSet("div", "p", "section", "article", "header", "footer", "nav", "main", "aside",
		"h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "li", "table", "tr", "td", "th",
		"form", "fieldset", "blockquote", "pre", "dialog")
	voidTags = tagSet("area", "base", "br", "col", "embed", "hr", "img", "input", "link",
		"meta", "param", "source", "track", "wbr")
	selectorAttrs = tagSet("id", "class", "role", "name", "title", "aria-label", "aria-describedby")
)

func tagSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

type domWriter struct {
	b     strings.Builder
	n     int
	limit int
	full  bool
}

func (w *domWriter) node(n *html.Node, depth int) {
	if w.full {
		return
	}
	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return
	case html.TextNode:
		w.text(n.Data)
	case html.ElementNode:
		w.element(n, depth)
	default:
		w.children(n, depth)
	}
}

func (w *domWriter) children(n *html.Node, depth int) {
	for c := n.FirstChild; c != nil && !w.full; c = c.NextSibling {
		w.node(c, depth)
	}
}

func (w *domWriter) text(data string) {
	text := strings.Join(strings.Fields(data), " ")
	if text == "" {
		return
	}
	if w.n+len(text) > w.limit {
		text = text[:max(w.limit-w.n, 0)] + "..."
		w.full = true
	}
	w.b.WriteString(text)
	w.n += len(text)
}

func (w *domWriter) element(n *html.Node, depth int) {
	tag := strings.ToLower(n.Data)
	if skippedTags[tag] {
		return
	}
	if w.n >= w.limit {
		w.full = true
		return
	}

	block := blockTags[tag]
	if block && depth > 0 {
		w.newline(depth)
	}

	w.b.WriteString("<" + tag)
	for _, attr := range n.Attr {
		if keepAttr(tag, strings.ToLower(attr.Key)) {
			fmt.Fprintf(&w.b, ` %s="%s"`, attr.Key, html.EscapeString(attr.Val))
		}
	}
	w.b.WriteString(">")
	w.n += len(tag) + 2

	if voidTags[tag] {
		return
	}

	w.children(n, depth+1)

	if block {
		w.newline(depth)
	}
	w.b.WriteString("</" + tag + ">")
	w.n += len(tag) + 3
}

func (w *domWriter) newline(depth int) {
	w.b.WriteString("\n")
	w.b.WriteString(strings.Repeat("  ", depth))
}

// keepAttr keeps the attributes a step author would target.
func keepAttr(tag, attr string) bool {
	if selectorAttrs[attr] || strings.HasPrefix(attr, "data-") {
		return true
	}
	switch tag {
	case "a":
		return attr == "href"
	case "img":
		return attr == "src" || attr == "alt"
	case "input", "textarea", "select", "option":
		return attr == "type" || attr == "placeholder" || attr == "value"
	case "button":
		return attr == "type" || attr == "disabled"
	case "form":
		return attr == "action" || attr == "method"
	case "label":
		return attr == "for"
	}
	return false
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			return strings.TrimSpace(n.FirstChild.Data)
		}
		return ""
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := findTitle(c); title != "" {
			return title
		}
	}
	return ""
}
