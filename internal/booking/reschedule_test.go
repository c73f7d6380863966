package booking

import (
	"testing"
	"time"
)

func TestShouldNotifyReschedule(t *testing.T) {
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		old  time.Time
		new  time.Time
		want bool
	}{
		{"identical", base, base, false},
		{"different day", base, base.AddDate(0, 0, 1), true},
		{"different minute", base, base.Add(time.Minute), true},
		{"one second apart", base, base.Add(time.Second), true},
		{"sub-second apart", base, base.Add(time.Millisecond), true},
		{"same instant different zone", base, base.In(time.FixedZone("UTC+3", 3*3600)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldNotifyReschedule(tt.old, tt.new); got != tt.want {
				t.Errorf("ShouldNotifyReschedule(%v, %v) = %v, want %v", tt.old, tt.new, got, tt.want)
			}
		})
	}
}
