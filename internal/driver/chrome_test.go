package driver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClearFieldJSHandlesEveryFieldKind(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "contenteditable host", want: `this.textContent = ""`},
		{name: "input and textarea", want: `this.value = ""`},
		{name: "input listeners notified", want: `new Event("input", { bubbles: true })`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, clearFieldJS, tt.want)
		})
	}

	assert.True(t, strings.HasPrefix(clearFieldJS, "function()"), "runs with the node bound to this")
}
