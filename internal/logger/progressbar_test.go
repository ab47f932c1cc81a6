package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressBarRender(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		total    int
		width    int
		expected string
	}{
		{name: "empty", current: 0, total: 10, width: 10, expected: "[          ] 0/10 (0%)"},
		{name: "half", current: 5, total: 10, width: 10, expected: "[=====     ] 5/10 (50%)"},
		{name: "full", current: 10, total: 10, width: 10, expected: "[==========] 10/10 (100%)"},
		{name: "overflow clamps", current: 12, total: 10, width: 10, expected: "[==========] 12/10 (100%)"},
		{name: "zero total", current: 0, total: 0, width: 4, expected: "[    ] 0/0 (0%)"},
		{name: "width defaults", current: 1, total: 2, width: 0, expected: "[=====     ] 1/2 (50%)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := NewProgressBar(tt.total, tt.width, false)
			for i := 0; i < tt.current; i++ {
				pb.Increment()
			}
			assert.Equal(t, tt.expected, pb.Render())
		})
	}
}

func TestProgressBarPercentage(t *testing.T) {
	pb := NewProgressBar(3, 10, false)
	assert.Equal(t, 0, pb.percentage())
	pb.Increment()
	assert.Equal(t, 33, pb.percentage())
	pb.Increment()
	pb.Increment()
	assert.Equal(t, 100, pb.percentage())
}
