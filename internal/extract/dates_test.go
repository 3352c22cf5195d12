package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveDaySentinel(t *testing.T) {
	// A mid-month Saturday, so day arithmetic stays within the month.
	now := time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		token    string
		wantDay  int
		resolved bool
	}{
		{name: "today minus seven", token: "<today-7>", wantDay: 8, resolved: true},
		{name: "today minus zero", token: "<today-0>", wantDay: 15, resolved: true},
		{name: "spaces inside sentinel", token: "<today - 3>", wantDay: 12, resolved: true},
		{name: "yesterday's day", token: "<yesterday's day>", wantDay: 14, resolved: true},
		{name: "bare yesterday", token: "<yesterday>", wantDay: 14, resolved: true},
		{name: "mixed case", token: "<Yesterday>", wantDay: 14, resolved: true},
		{name: "unknown sentinel", token: "<tomorrow>", resolved: false},
		{name: "plain number is not a sentinel", token: "12", resolved: false},
		{name: "empty", token: "", resolved: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day, ok := resolveDaySentinel(tt.token, now)
			assert.Equal(t, tt.resolved, ok)
			if tt.resolved {
				assert.Equal(t, tt.wantDay, day)
			}
		})
	}
}

func TestResolveDaySentinelCrossesMonthBoundary(t *testing.T) {
	now := time.Date(2025, time.March, 2, 0, 0, 0, 0, time.UTC)

	day, ok := resolveDaySentinel("<today-7>", now)
	assert.True(t, ok)
	// Seven days before March 2 is February 23.
	assert.Equal(t, 23, day)
}

func TestIsPlaceholder(t *testing.T) {
	assert.True(t, isPlaceholder("<month>"))
	assert.True(t, isPlaceholder("  <year> "))
	assert.False(t, isPlaceholder("2025"))
	assert.False(t, isPlaceholder(float64(3)))
	assert.False(t, isPlaceholder(nil))
}
