package detector

import (
	"context"

	"go.uber.org/zap"

	"replydraft/internal/dom"
)

// LocateActiveEditor returns the reply editor the user is working in, or nil
// when none is visible. Among several visible editors the one holding focus
// wins; otherwise the last one in document order, which is where webmail
// appends the newest compose box.
func (d *Detector) LocateActiveEditor(ctx context.Context) dom.Node {
	candidates, err := d.page.QueryAll(ctx, group(EditorSelectors))
	if err != nil {
		d.log.Debug("query reply editors", zap.Error(err))
		return nil
	}
	candidates = dom.Dedupe(candidates)

	visible := candidates[:0]
	for _, c := range candidates {
		ok, err := d.page.IsVisible(ctx, c)
		if err != nil {
			d.log.Debug("visibility check", zap.String("node", c.ID()), zap.Error(err))
			continue
		}
		if ok {
			visible = append(visible, c)
		}
	}
	if len(visible) == 0 {
		return nil
	}

	if focused, err := d.page.FocusedElement(ctx); err != nil {
		d.log.Debug("read focused element", zap.Error(err))
	} else if focused != nil {
		for _, ed := range visible {
			if ed.ID() == focused.ID() {
				return ed
			}
			if ok, err := d.page.Contains(ctx, ed, focused); err == nil && ok {
				return ed
			}
		}
	}
	return visible[len(visible)-1]
}
