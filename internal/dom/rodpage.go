package dom

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
)

// RodPage is a Page over a live browser tab driven through the DevTools
// protocol.
type RodPage struct {
	page *rod.Page
}

type rodNode struct {
	el *rod.Element
	id string
}

func (r rodNode) ID() string { return r.id }

// NewRodPage wraps an attached rod page.
func NewRodPage(page *rod.Page) *RodPage {
	return &RodPage{page: page}
}

// wrap keys the element by its backend node id, which stays stable across
// queries while remote object handles do not.
func (p *RodPage) wrap(ctx context.Context, el *rod.Element) (Node, error) {
	desc, err := el.Context(ctx).Describe(0, false)
	if err != nil {
		return nil, fmt.Errorf("describe element: %w", err)
	}
	return rodNode{el: el, id: fmt.Sprintf("%d", desc.BackendNodeID)}, nil
}

func (p *RodPage) wrapAll(ctx context.Context, els rod.Elements) ([]Node, error) {
	out := make([]Node, 0, len(els))
	for _, el := range els {
		n, err := p.wrap(ctx, el)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func unwrapRod(n Node) (*rod.Element, error) {
	r, ok := n.(rodNode)
	if !ok || r.el == nil {
		return nil, fmt.Errorf("node %v does not belong to a live page", n)
	}
	return r.el, nil
}

func (p *RodPage) QueryAll(ctx context.Context, selector string) ([]Node, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return p.wrapAll(ctx, els)
}

func (p *RodPage) QueryAllWithin(ctx context.Context, root Node, selector string) ([]Node, error) {
	el, err := unwrapRod(root)
	if err != nil {
		return nil, err
	}
	els, err := el.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return p.wrapAll(ctx, els)
}

func (p *RodPage) Matches(ctx context.Context, n Node, selector string) (bool, error) {
	el, err := unwrapRod(n)
	if err != nil {
		return false, err
	}
	return el.Context(ctx).Matches(selector)
}

func (p *RodPage) Parent(ctx context.Context, n Node) (Node, error) {
	el, err := unwrapRod(n)
	if err != nil {
		return nil, err
	}
	// rod's Parent waits for a non-null result, so check for the root first.
	orphan, err := p.evalBool(ctx, el, `() => this.parentElement === null`)
	if err != nil || orphan {
		return nil, err
	}
	parent, err := el.Context(ctx).Parent()
	if err != nil {
		return nil, fmt.Errorf("parent element: %w", err)
	}
	return p.wrap(ctx, parent)
}

func (p *RodPage) IsVisible(ctx context.Context, n Node) (bool, error) {
	el, err := unwrapRod(n)
	if err != nil {
		return false, err
	}
	return p.evalBool(ctx, el, `() => !!(this.offsetParent || this.offsetWidth || this.offsetHeight)`)
}

func (p *RodPage) FocusedElement(ctx context.Context) (Node, error) {
	res, err := p.page.Context(ctx).Eval(`() => document.activeElement === null`)
	if err != nil {
		return nil, fmt.Errorf("read active element: %w", err)
	}
	if res.Value.Bool() {
		return nil, nil
	}
	el, err := p.page.Context(ctx).ElementByJS(rod.Eval(`() => document.activeElement`))
	if err != nil {
		return nil, fmt.Errorf("resolve active element: %w", err)
	}
	return p.wrap(ctx, el)
}

func (p *RodPage) Contains(ctx context.Context, outer, inner Node) (bool, error) {
	o, err := unwrapRod(outer)
	if err != nil {
		return false, err
	}
	i, err := unwrapRod(inner)
	if err != nil {
		return false, err
	}
	return o.Context(ctx).ContainsElement(i)
}

func (p *RodPage) Text(ctx context.Context, n Node) (string, error) {
	el, err := unwrapRod(n)
	if err != nil {
		return "", err
	}
	return el.Context(ctx).Text()
}

func (p *RodPage) Attr(ctx context.Context, n Node, name string) (string, bool, error) {
	el, err := unwrapRod(n)
	if err != nil {
		return "", false, err
	}
	v, err := el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, fmt.Errorf("read attribute %s: %w", name, err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (p *RodPage) IsDocumentRoot(ctx context.Context, n Node) bool {
	el, err := unwrapRod(n)
	if err != nil {
		return true
	}
	root, err := p.evalBool(ctx, el, `() => this === document.body || this === document.documentElement`)
	if err != nil {
		return true
	}
	return root
}

func (p *RodPage) evalBool(ctx context.Context, el *rod.Element, js string) (bool, error) {
	res, err := el.Context(ctx).Eval(js)
	if err != nil {
		return false, fmt.Errorf("evaluate: %w", err)
	}
	return res.Value.Bool(), nil
}
