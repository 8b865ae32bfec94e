package detector

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"replydraft/internal/dom"
	"replydraft/internal/model"
	"replydraft/internal/util"
)

// ExtractContext builds the reply context for editor. Subject and sender
// resolve independently of the body, so the result is always complete.
func (d *Detector) ExtractContext(ctx context.Context, editor dom.Node) model.ReplyContext {
	subject, threadID := d.subject(ctx)

	var body, sender string
	if container := d.findMessageContainer(ctx, editor); container != nil {
		body = d.extractBodyFromContainer(ctx, container)
		sender = d.ExtractSenderFromContainer(ctx, container)
	} else {
		// No enclosing message: use the latest message of the thread. Body
		// and sender are picked separately and may belong to different
		// messages.
		body = d.latestThreadBody(ctx)
		sender = d.latestThreadSender(ctx)
	}

	rc := model.NewReplyContext(subject, sender, body)
	rc.ThreadID = threadID
	return rc
}

func (d *Detector) subject(ctx context.Context) (subject, threadID string) {
	heading := d.first(ctx, nil, subjectSelector)
	if heading == nil {
		return model.NoSubject, ""
	}
	subject = strings.TrimSpace(d.text(ctx, heading))
	if subject == "" {
		subject = model.NoSubject
	}
	for _, name := range threadIDAttrs {
		if v, ok, err := d.page.Attr(ctx, heading, name); err == nil && ok && v != "" {
			threadID = v
			break
		}
	}
	return subject, threadID
}

// findMessageContainer walks up from editor to the nearest message
// container, stopping at the document root.
func (d *Detector) findMessageContainer(ctx context.Context, editor dom.Node) dom.Node {
	containers := group(ContainerSelectors)
	for node := editor; node != nil && !d.page.IsDocumentRoot(ctx, node); {
		ok, err := d.page.Matches(ctx, node, containers)
		if err != nil {
			d.log.Debug("match message container", zap.Error(err))
			return nil
		}
		if ok {
			return node
		}
		parent, err := d.page.Parent(ctx, node)
		if err != nil {
			d.log.Debug("walk to parent", zap.Error(err))
			return nil
		}
		node = parent
	}
	return nil
}

func (d *Detector) extractBodyFromContainer(ctx context.Context, container dom.Node) string {
	node := d.first(ctx, container, bodySelector)
	if node == nil {
		return ""
	}
	return strings.TrimSpace(d.text(ctx, node))
}

// ExtractSenderFromContainer formats the author of the message in container.
// An element carrying an explicit address wins over a name-only element.
func (d *Detector) ExtractSenderFromContainer(ctx context.Context, container dom.Node) string {
	var candidates []dom.Node
	for _, sel := range []string{senderNameSelector, senderEmailSelector} {
		nodes, err := d.page.QueryAllWithin(ctx, container, sel)
		if err != nil {
			d.log.Debug("query sender", zap.String("selector", sel), zap.Error(err))
			continue
		}
		candidates = append(candidates, nodes...)
	}
	candidates = dom.Dedupe(candidates)
	if len(candidates) == 0 {
		return model.UnknownSender
	}

	chosen := candidates[0]
	for _, c := range candidates {
		if addr, ok, err := d.page.Attr(ctx, c, emailAttr); err == nil && ok && strings.TrimSpace(addr) != "" {
			chosen = c
			break
		}
	}
	return d.formatSender(ctx, chosen)
}

func (d *Detector) formatSender(ctx context.Context, node dom.Node) string {
	name := strings.TrimSpace(d.text(ctx, node))
	if name == "" {
		name, _, _ = d.page.Attr(ctx, node, nameAttr)
	}
	addr, _, _ := d.page.Attr(ctx, node, emailAttr)
	if s := util.FormatSender(name, addr); s != "" {
		return s
	}
	return model.UnknownSender
}

func (d *Detector) latestThreadBody(ctx context.Context) string {
	nodes, err := d.page.QueryAll(ctx, threadBodySelector)
	if err != nil {
		d.log.Debug("query thread bodies", zap.Error(err))
		return ""
	}
	var latest string
	for _, n := range nodes {
		text := d.text(ctx, n)
		if util.Sanitize(text, d.sanitizeLimit) != "" {
			latest = text
		}
	}
	return strings.TrimSpace(latest)
}

func (d *Detector) latestThreadSender(ctx context.Context) string {
	nodes, err := d.page.QueryAll(ctx, threadSenderSelector)
	if err != nil {
		d.log.Debug("query thread senders", zap.Error(err))
		return model.UnknownSender
	}
	if len(nodes) == 0 {
		return model.UnknownSender
	}
	return d.formatSender(ctx, nodes[len(nodes)-1])
}

// first returns the first match of selector, scoped to root when non-nil.
func (d *Detector) first(ctx context.Context, root dom.Node, selector string) dom.Node {
	var (
		nodes []dom.Node
		err   error
	)
	if root == nil {
		nodes, err = d.page.QueryAll(ctx, selector)
	} else {
		nodes, err = d.page.QueryAllWithin(ctx, root, selector)
	}
	if err != nil {
		d.log.Debug("query", zap.String("selector", selector), zap.Error(err))
		return nil
	}
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

func (d *Detector) text(ctx context.Context, n dom.Node) string {
	text, err := d.page.Text(ctx, n)
	if err != nil {
		d.log.Debug("read text", zap.String("node", n.ID()), zap.Error(err))
		return ""
	}
	return text
}
