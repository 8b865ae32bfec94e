package browser

import "strings"

type tabInfo struct {
	ID      string
	URL     string
	Visible bool
}

func isWebmail(url, prefix string) bool {
	return prefix != "" && strings.HasPrefix(url, prefix)
}

// pickWebmailTab prefers a visible webmail tab and otherwise takes the first
// one, in the order the browser lists its targets.
func pickWebmailTab(tabs []tabInfo, prefix string) (tabInfo, bool) {
	var first *tabInfo
	for i := range tabs {
		t := &tabs[i]
		if !isWebmail(t.URL, prefix) {
			continue
		}
		if t.Visible {
			return *t, true
		}
		if first == nil {
			first = t
		}
	}
	if first == nil {
		return tabInfo{}, false
	}
	return *first, true
}
