package util

import "testing"

func TestFormatSender(t *testing.T) {
	tests := []struct {
		name, addr string
		want       string
	}{
		{"Jane Doe", "jane@example.com", "Jane Doe <jane@example.com>"},
		{"Jane Doe", "", "Jane Doe"},
		{"", "jane@example.com", "jane@example.com"},
		{"  Jane Doe ", " jane@example.com ", "Jane Doe <jane@example.com>"},
		{"", "", ""},
	}
	for _, tc := range tests {
		if got := FormatSender(tc.name, tc.addr); got != tc.want {
			t.Errorf("FormatSender(%q, %q) = %q; want %q", tc.name, tc.addr, got, tc.want)
		}
	}
}

func TestAddressOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`Name <User@Example.COM>`, "User@Example.COM"},
		{`"Name" <user+news@example.com>`, "user+news@example.com"},
		{`user@example.com`, "user@example.com"},
		{`Doe, Jane <jane@example.com>`, "jane@example.com"},
		{`Unknown`, ""},
		{`"A" <not-an-email> , "B" <c@d.com>`, "c@d.com"},
		{``, ""},
	}
	for _, tc := range tests {
		if got := AddressOf(tc.in); got != tc.want {
			t.Errorf("AddressOf(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}
