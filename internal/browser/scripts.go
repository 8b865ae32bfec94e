package browser

// mutationBinding is the window function the observer calls once per
// mutation batch.
const mutationBinding = "__replydraftMutated"

// observerFunc starts a MutationObserver on the document. It is safe to run
// more than once per document. Only structural changes are observed; the
// snapshot's own attribute marks must not trigger another detection.
const observerFunc = `() => {
	if (window.__replydraftObserver) return true;
	const notify = () => {
		try { window.__replydraftMutated(); } catch (e) {}
	};
	const start = () => {
		const root = document.documentElement || document.body;
		if (!root || window.__replydraftObserver) return;
		window.__replydraftObserver = new MutationObserver(notify);
		window.__replydraftObserver.observe(root, {
			subtree: true,
			childList: true,
		});
	};
	if (document.documentElement) {
		start();
	} else {
		document.addEventListener('DOMContentLoaded', start, { once: true });
	}
	return true;
}`

func observerScript() string {
	return "(" + observerFunc + ")();"
}

// snapshotFunc serialises the document after marking hidden elements and the
// focused element with the given attributes. The marks are removed again
// before returning.
const snapshotFunc = `(visibleAttr, focusedAttr) => {
	const marked = [];
	const all = document.body ? document.body.querySelectorAll('*') : [];
	for (const el of all) {
		if (!(el.offsetParent || el.offsetWidth || el.offsetHeight)) {
			el.setAttribute(visibleAttr, 'false');
			marked.push(el);
		}
	}
	const active = document.activeElement;
	if (active && active !== document.body && active !== document.documentElement) {
		active.setAttribute(focusedAttr, '');
		marked.push(active);
	}
	const html = '<!DOCTYPE html>\n' + document.documentElement.outerHTML;
	for (const el of marked) {
		el.removeAttribute(visibleAttr);
		el.removeAttribute(focusedAttr);
	}
	return html;
}`
