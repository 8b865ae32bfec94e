// Package dom abstracts the webmail page the detector inspects. A Page is
// backed either by a live browser tab (RodPage) or by a parsed HTML
// snapshot (HTMLPage); the detector only sees the capability set below.
package dom

import "context"

// Node is an opaque element handle. Two handles refer to the same element
// exactly when their IDs are equal.
type Node interface {
	ID() string
}

// Page is the set of DOM capabilities the detector needs.
type Page interface {
	// QueryAll returns the elements matching selector in document order.
	QueryAll(ctx context.Context, selector string) ([]Node, error)
	// QueryAllWithin is QueryAll scoped to the descendants of root.
	QueryAllWithin(ctx context.Context, root Node, selector string) ([]Node, error)
	Matches(ctx context.Context, n Node, selector string) (bool, error)
	// Parent returns nil once the document root has been passed.
	Parent(ctx context.Context, n Node) (Node, error)
	IsVisible(ctx context.Context, n Node) (bool, error)
	// FocusedElement returns nil when no element has focus.
	FocusedElement(ctx context.Context) (Node, error)
	// Contains reports whether inner is outer or one of its descendants.
	Contains(ctx context.Context, outer, inner Node) (bool, error)
	// Text returns the rendered text of n.
	Text(ctx context.Context, n Node) (string, error)
	Attr(ctx context.Context, n Node, name string) (string, bool, error)
	// IsDocumentRoot reports whether n is the body or html element, where
	// ancestor walks stop.
	IsDocumentRoot(ctx context.Context, n Node) bool
}

// Dedupe drops repeated handles, keeping the first occurrence of each.
func Dedupe(nodes []Node) []Node {
	seen := make(map[string]struct{}, len(nodes))
	out := nodes[:0:0]
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if _, ok := seen[n.ID()]; ok {
			continue
		}
		seen[n.ID()] = struct{}{}
		out = append(out, n)
	}
	return out
}
