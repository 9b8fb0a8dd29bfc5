package reminders

import "testing"

func TestClampDueLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"unset", 0, maxDueBatch},
		{"negative", -5, maxDueBatch},
		{"within cap", 25, 25},
		{"at cap", maxDueBatch, maxDueBatch},
		{"over cap", maxDueBatch + 1, maxDueBatch},
		{"far over cap", 10_000, maxDueBatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampDueLimit(tt.limit); got != tt.want {
				t.Errorf("clampDueLimit(%d) = %d, want %d", tt.limit, got, tt.want)
			}
		})
	}
}
