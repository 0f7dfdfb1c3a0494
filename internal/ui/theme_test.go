package ui

import (
	"strings"
	"testing"
)

func TestLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"pending", "Pending"},
		{"in_progress", "In Progress"},
		{"HIGH", "High"},
	}
	for _, tt := range tests {
		if got := Label(tt.in); got != tt.want {
			t.Errorf("Label(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestProgressBar_Clamps(t *testing.T) {
	if got := ProgressBar(150, 10); !strings.HasSuffix(got, "100%") {
		t.Errorf("expected clamp to 100%%, got %q", got)
	}
	if got := ProgressBar(-5, 10); !strings.HasSuffix(got, "  0%") {
		t.Errorf("expected clamp to 0%%, got %q", got)
	}
}
