package logging

import "testing"

func TestMaskToken(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"short token fully hidden", "abc123", "***"},
		{"long token keeps edges", "AAAAB3NzaC1yc2EAAA", "AAA***AAA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskToken(tt.in); got != tt.want {
				t.Errorf("MaskToken(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewAcceptsAnyLevelString(t *testing.T) {
	for _, level := range []string{"debug", "info", "WARN", "error", "", "nonsense"} {
		if log := New(level); log == nil {
			t.Errorf("New(%q) returned nil", level)
		}
	}
}
