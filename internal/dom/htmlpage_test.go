package dom

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

const fixture = `<!DOCTYPE html>
<html><body>
  <div id="a" class="wrap">
    <span class="name" email="a@b.com">Alice</span>
    <div id="body" class="a3s">Line one<br>Line   two
      <p>Para</p>
    </div>
  </div>
  <div id="hidden" hidden><div id="inner">x</div></div>
  <div id="styled" style="color: red; display: none">y</div>
  <div id="annotated" data-replydraft-visible="false">z</div>
  <div id="focused" data-replydraft-focused><span id="child">c</span></div>
  <input id="auto" autofocus>
</body></html>`

func parseFixture(t *testing.T) *HTMLPage {
	t.Helper()
	p, err := ParseHTMLString(fixture)
	require.NoError(t, err)
	return p
}

func byID(t *testing.T, p *HTMLPage, id string) Node {
	t.Helper()
	nodes, err := p.QueryAll(context.Background(), "#"+id)
	require.NoError(t, err)
	require.Len(t, nodes, 1, "element #%s", id)
	return nodes[0]
}

func TestHTMLPage_QueryAndIdentity(t *testing.T) {
	p := parseFixture(t)
	ctx := context.Background()

	first, err := p.QueryAll(ctx, "div.a3s")
	require.NoError(t, err)
	second, err := p.QueryAll(ctx, "div#body")
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	require.Equal(t, first[0].ID(), second[0].ID())

	deduped := Dedupe(append(first, second...))
	require.Len(t, deduped, 1)
}

func TestHTMLPage_QueryAllWithinExcludesRoot(t *testing.T) {
	p := parseFixture(t)
	ctx := context.Background()

	wrap := byID(t, p, "a")
	divs, err := p.QueryAllWithin(ctx, wrap, "div")
	require.NoError(t, err)
	require.Len(t, divs, 1)
	require.Equal(t, byID(t, p, "body").ID(), divs[0].ID())
}

func TestHTMLPage_ParentAndRoot(t *testing.T) {
	p := parseFixture(t)
	ctx := context.Background()

	parent, err := p.Parent(ctx, byID(t, p, "body"))
	require.NoError(t, err)
	require.Equal(t, byID(t, p, "a").ID(), parent.ID())

	body, err := p.Parent(ctx, parent)
	require.NoError(t, err)
	require.True(t, p.IsDocumentRoot(ctx, body))

	htmlEl, err := p.Parent(ctx, body)
	require.NoError(t, err)
	top, err := p.Parent(ctx, htmlEl)
	require.NoError(t, err)
	require.Nil(t, top)
}

func TestHTMLPage_Visibility(t *testing.T) {
	p := parseFixture(t)
	ctx := context.Background()

	tests := []struct {
		id   string
		want bool
	}{
		{"body", true},
		{"hidden", false},
		{"inner", false},
		{"styled", false},
		{"annotated", false},
		{"focused", true},
	}
	for _, tc := range tests {
		got, err := p.IsVisible(ctx, byID(t, p, tc.id))
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "visibility of #%s", tc.id)
	}
}

func TestHTMLPage_FocusPrefersAnnotation(t *testing.T) {
	p := parseFixture(t)
	ctx := context.Background()

	focused, err := p.FocusedElement(ctx)
	require.NoError(t, err)
	require.Equal(t, byID(t, p, "focused").ID(), focused.ID())

	ok, err := p.Contains(ctx, focused, byID(t, p, "child"))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = p.Contains(ctx, focused, focused)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = p.Contains(ctx, byID(t, p, "child"), focused)
	require.NoError(t, err)
	require.False(t, ok)

	plain, err := ParseHTMLString(`<body><div></div><input id="auto" autofocus></body>`)
	require.NoError(t, err)
	focused, err = plain.FocusedElement(ctx)
	require.NoError(t, err)
	require.NotNil(t, focused)

	none, err := ParseHTMLString(`<body><div></div></body>`)
	require.NoError(t, err)
	focused, err = none.FocusedElement(ctx)
	require.NoError(t, err)
	require.Nil(t, focused)
}

func TestHTMLPage_TextAndAttr(t *testing.T) {
	p := parseFixture(t)
	ctx := context.Background()

	text, err := p.Text(ctx, byID(t, p, "body"))
	require.NoError(t, err)
	require.Equal(t, "Line one\nLine two\nPara", text)

	spans, err := p.QueryAll(ctx, "span[email]")
	require.NoError(t, err)
	require.Len(t, spans, 1)
	email, ok, err := p.Attr(ctx, spans[0], "email")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a@b.com", email)

	_, ok, err = p.Attr(ctx, spans[0], "name")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHTMLPage_BadSelector(t *testing.T) {
	p := parseFixture(t)
	_, err := p.QueryAll(context.Background(), "div[")
	require.Error(t, err)
}
