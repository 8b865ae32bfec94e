package orchestrator

import "replydraft/internal/bus"

// Badge is the reply-available indicator, one per tab plus the current one.
type Badge int

const (
	BadgeDefault Badge = iota
	BadgeAvailable
)

func BadgeFor(available bool) Badge {
	if available {
		return BadgeAvailable
	}
	return BadgeDefault
}

func (b Badge) Available() bool { return b == BadgeAvailable }

// Color is the badge background.
func (b Badge) Color() string {
	if b == BadgeAvailable {
		return "#2f6bff"
	}
	return "#c1c7d0"
}

func (b Badge) String() string {
	if b == BadgeAvailable {
		return "reply open"
	}
	return "no reply"
}

// HandleNotification records the state pushed by a tab's detector and
// returns the tab's new badge.
func (o *Orchestrator) HandleNotification(env bus.Envelope) Badge {
	b := BadgeFor(env.Notification.HasReplyOpen)
	o.setBadge(env.TabID, b)
	return b
}

// Badge returns the badge of tabID. Tabs never heard from show the default.
func (o *Orchestrator) Badge(tabID string) Badge {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.badges[tabID]
}

// CurrentBadge is the badge of the tab from the latest check. Before any
// check it follows whichever tab notified last.
func (o *Orchestrator) CurrentBadge() Badge {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

func (o *Orchestrator) setBadge(tabID string, b Badge) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.badges[tabID] = b
	if o.checkedTab == "" || o.checkedTab == tabID {
		o.current = b
	}
}

func (o *Orchestrator) setCurrentBadge(b Badge) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.current = b
}
