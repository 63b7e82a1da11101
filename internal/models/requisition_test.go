package models

import "testing"

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
		ok   bool
	}{
		{"In Progress", StatusInProgress, true},
		{"in_progress", StatusInProgress, true},
		{" in-progress ", StatusInProgress, true},
		{"COMPLETED", StatusCompleted, true},
		{"done", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseStatus(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseStatus(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
