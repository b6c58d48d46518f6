package token

import "testing"

func TestFromAuthorizationHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"bearer", "Bearer abc.def.ghi", "abc.def.ghi"},
		{"lowercase scheme", "bearer abc.def.ghi", "abc.def.ghi"},
		{"extra whitespace", "  Bearer   abc.def.ghi  ", "abc.def.ghi"},
		{"empty", "", ""},
		{"scheme only", "Bearer", ""},
		{"basic auth", "Basic dXNlcjpwYXNz", ""},
		{"raw token", "abc.def.ghi", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromAuthorizationHeader(tt.header); got != tt.want {
				t.Errorf("FromAuthorizationHeader(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
