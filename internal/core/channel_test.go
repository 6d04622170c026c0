package core

import "testing"

func TestValidChannel(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{name: ChannelPublic, want: true},
		{name: ChannelUsers, want: true},
		{name: PrivateChannel("bob"), want: true},
		{name: PrivateChannel("  bob  "), want: true},
		{name: "/queue/private.", want: false},
		{name: "/queue/private.   ", want: false},
		{name: "/queue/private. bob ", want: false},
		{name: "/queue/private.bob\t", want: false},
		{name: "/topic/other", want: false},
		{name: "", want: false},
	}

	for _, tt := range tests {
		if got := ValidChannel(tt.name); got != tt.want {
			t.Errorf("ValidChannel(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestPrivateChannelRoundTrips(t *testing.T) {
	for _, receiver := range []string{"bob", " bob", "bob ", "a b"} {
		if ch := PrivateChannel(receiver); !ValidChannel(ch) {
			t.Errorf("PrivateChannel(%q) = %q is not a valid channel", receiver, ch)
		}
	}
}
