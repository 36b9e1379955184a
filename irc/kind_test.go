package irc

import "testing"

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, ok)
		}
	}

	tests := []struct {
		name string
		want Kind
		ok   bool
	}{
		{"JOIN", KindJoin, true},
		{"Channel_Notice", KindChannelNotice, true},
		{"ctcp_req", KindCTCPRequest, true},
		{"connect", 0, false},
		{"default", 0, false},
		{"wallops", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseKind(tt.name)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseKind(%q) = %v, %v; want %v, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestKind_String(t *testing.T) {
	if got := Kind(-1).String(); got != "unknown" {
		t.Errorf("got %q", got)
	}
	if got := KindCTCPAction.String(); got != "ctcp_action" {
		t.Errorf("got %q", got)
	}
	if n := len(Kinds()); n != 16 {
		t.Errorf("expected 16 kinds, got %d", n)
	}
}
