package dom

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Snapshot annotations written by the live browser session so that an
// offline copy of the page still knows what was visible and focused.
const (
	AttrSnapshotVisible = "data-replydraft-visible"
	AttrSnapshotFocused = "data-replydraft-focused"
)

// HTMLPage is a Page over a parsed HTML document. Layout is unknown offline,
// so visibility is inferred from hidden markers and snapshot annotations.
type HTMLPage struct {
	root *html.Node
	ids  map[*html.Node]string

	mu    sync.Mutex
	cache map[string]cascadia.Selector
}

type htmlNode struct {
	n  *html.Node
	id string
}

func (h htmlNode) ID() string { return h.id }

// ParseHTML reads a full HTML document.
func ParseHTML(r io.Reader) (*HTMLPage, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	p := &HTMLPage{
		root:  root,
		ids:   make(map[*html.Node]string),
		cache: make(map[string]cascadia.Selector),
	}
	seq := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			seq++
			p.ids[n] = "n" + strconv.Itoa(seq)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return p, nil
}

// ParseHTMLString is ParseHTML for in-memory documents.
func ParseHTMLString(doc string) (*HTMLPage, error) {
	return ParseHTML(strings.NewReader(doc))
}

func (p *HTMLPage) selector(sel string) (cascadia.Selector, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.cache[sel]; ok {
		return s, nil
	}
	s, err := cascadia.Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("compile selector %q: %w", sel, err)
	}
	p.cache[sel] = s
	return s, nil
}

func (p *HTMLPage) wrap(n *html.Node) Node {
	if n == nil {
		return nil
	}
	return htmlNode{n: n, id: p.ids[n]}
}

func (p *HTMLPage) unwrap(n Node) (*html.Node, error) {
	h, ok := n.(htmlNode)
	if !ok || h.n == nil {
		return nil, fmt.Errorf("node %v does not belong to an html page", n)
	}
	return h.n, nil
}

func (p *HTMLPage) QueryAll(_ context.Context, selector string) ([]Node, error) {
	s, err := p.selector(selector)
	if err != nil {
		return nil, err
	}
	return p.wrapAll(s.MatchAll(p.root), nil), nil
}

func (p *HTMLPage) QueryAllWithin(_ context.Context, root Node, selector string) ([]Node, error) {
	r, err := p.unwrap(root)
	if err != nil {
		return nil, err
	}
	s, err := p.selector(selector)
	if err != nil {
		return nil, err
	}
	// MatchAll includes r itself; querySelectorAll does not.
	return p.wrapAll(s.MatchAll(r), r), nil
}

func (p *HTMLPage) wrapAll(matches []*html.Node, skip *html.Node) []Node {
	out := make([]Node, 0, len(matches))
	for _, m := range matches {
		if m == skip {
			continue
		}
		out = append(out, p.wrap(m))
	}
	return out
}

func (p *HTMLPage) Matches(_ context.Context, n Node, selector string) (bool, error) {
	h, err := p.unwrap(n)
	if err != nil {
		return false, err
	}
	s, err := p.selector(selector)
	if err != nil {
		return false, err
	}
	return s.Match(h), nil
}

func (p *HTMLPage) Parent(_ context.Context, n Node) (Node, error) {
	h, err := p.unwrap(n)
	if err != nil {
		return nil, err
	}
	parent := h.Parent
	if parent == nil || parent.Type != html.ElementNode {
		return nil, nil
	}
	return p.wrap(parent), nil
}

var (
	displayNone      = regexp.MustCompile(`(^|;)\s*display\s*:\s*none\b`)
	visibilityHidden = regexp.MustCompile(`(^|;)\s*visibility\s*:\s*hidden\b`)
)

func (p *HTMLPage) IsVisible(_ context.Context, n Node) (bool, error) {
	h, err := p.unwrap(n)
	if err != nil {
		return false, err
	}
	if v, ok := attr(h, AttrSnapshotVisible); ok && v == "false" {
		return false, nil
	}
	for cur := h; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		if _, ok := attr(cur, "hidden"); ok {
			return false, nil
		}
		if v, _ := attr(cur, "aria-hidden"); v == "true" {
			return false, nil
		}
		style, _ := attr(cur, "style")
		style = strings.ToLower(style)
		if displayNone.MatchString(style) || visibilityHidden.MatchString(style) {
			return false, nil
		}
	}
	return true, nil
}

func (p *HTMLPage) FocusedElement(_ context.Context) (Node, error) {
	var marked, autofocus *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if marked != nil {
			return
		}
		if n.Type == html.ElementNode {
			if _, ok := attr(n, AttrSnapshotFocused); ok {
				marked = n
				return
			}
			if _, ok := attr(n, "autofocus"); ok && autofocus == nil {
				autofocus = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(p.root)
	if marked != nil {
		return p.wrap(marked), nil
	}
	return p.wrap(autofocus), nil
}

func (p *HTMLPage) Contains(_ context.Context, outer, inner Node) (bool, error) {
	o, err := p.unwrap(outer)
	if err != nil {
		return false, err
	}
	i, err := p.unwrap(inner)
	if err != nil {
		return false, err
	}
	for cur := i; cur != nil; cur = cur.Parent {
		if cur == o {
			return true, nil
		}
	}
	return false, nil
}

func (p *HTMLPage) Text(_ context.Context, n Node) (string, error) {
	h, err := p.unwrap(n)
	if err != nil {
		return "", err
	}
	return renderText(h), nil
}

func (p *HTMLPage) Attr(_ context.Context, n Node, name string) (string, bool, error) {
	h, err := p.unwrap(n)
	if err != nil {
		return "", false, err
	}
	v, ok := attr(h, strings.ToLower(name))
	return v, ok, nil
}

func (p *HTMLPage) IsDocumentRoot(_ context.Context, n Node) bool {
	h, err := p.unwrap(n)
	if err != nil {
		return true
	}
	return h.Type != html.ElementNode || h.Data == "body" || h.Data == "html"
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

var blockElements = map[string]bool{
	"address": true, "article": true, "blockquote": true, "div": true,
	"footer": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "header": true, "li": true, "ol": true,
	"p": true, "pre": true, "section": true, "table": true, "tr": true,
	"ul": true,
}

var collapsible = regexp.MustCompile(`[ \t\r\n\f]+`)

// renderText approximates innerText: whitespace inside text nodes collapses
// to a single space, while <br> and block boundaries become line breaks.
func renderText(n *html.Node) string {
	var b strings.Builder
	newline := func() {
		s := b.String()
		if s != "" && !strings.HasSuffix(s, "\n") {
			b.WriteByte('\n')
		}
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(collapsible.ReplaceAllString(n.Data, " "))
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "head", "template":
				return
			case "br":
				b.WriteByte('\n')
				return
			}
		}
		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			newline()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			newline()
		}
	}
	walk(n)

	lines := strings.Split(b.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	result := strings.Join(lines, "\n")
	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(result)
}
