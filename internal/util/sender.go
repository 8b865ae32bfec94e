package util

import (
	"net/mail"
	"strings"
)

// FormatSender renders a sender for display and prompting:
// - "Name <addr>" when both are known
// - whichever one is present otherwise
// - "" when neither is, so the caller can substitute its own placeholder.
func FormatSender(name, address string) string {
	name = strings.TrimSpace(name)
	address = strings.TrimSpace(address)
	switch {
	case name != "" && address != "":
		return name + " <" + address + ">"
	case name != "":
		return name
	default:
		return address
	}
}

// AddressOf extracts the bare email address from a sender string such as
// "Name <user@example.com>". Returns empty string if no address can be parsed.
func AddressOf(sender string) string {
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return ""
	}
	addr, err := mail.ParseAddress(sender)
	if err != nil || addr == nil {
		// Display names with unquoted punctuation trip the parser; retry on
		// the bracketed part alone, then on each comma separated entry.
		if open := strings.LastIndexByte(sender, '<'); open > -1 {
			if end := strings.IndexByte(sender[open:], '>'); end > 0 {
				a, e := mail.ParseAddress(sender[open : open+end+1])
				if e == nil && a != nil {
					return a.Address
				}
			}
		}
		for _, p := range strings.Split(sender, ",") {
			a, e := mail.ParseAddress(strings.TrimSpace(p))
			if e == nil && a != nil {
				return a.Address
			}
		}
		return ""
	}
	return addr.Address
}
