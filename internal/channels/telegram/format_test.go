package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatHTML(t *testing.T) {
	tests := []struct {
		name string
		md   string
		want string
	}{
		{"emphasis", "**bold** and _it_", "<b>bold</b> and <i>it</i>"},
		{"escape", "a < b & c", "a &lt; b &amp; c"},
		{"heading", "# Title", "<b>Title</b>"},
		{"code span", "run `x<y` now", "run <code>x&lt;y</code> now"},
		{"code block", "```\nx<y\n```", "<pre>x&lt;y\n</pre>"},
		{"list", "- one\n- two", "• one\n• two"},
		{"strike", "~~gone~~", "<s>gone</s>"},
		{"link", "[site](http://e.com/?a=1&b=2)", `<a href="http://e.com/?a=1&amp;b=2">site</a>`},
		{"raw html dropped", "hi <script>x</script>", "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FormatHTML(tt.md)
			assert.True(t, ok)
			assert.Contains(t, got, tt.want)
		})
	}
}

func TestFormatHTMLTable(t *testing.T) {
	got, ok := FormatHTML("| a | bb |\n|---|---|\n| ccc | d |")
	assert.True(t, ok)
	assert.True(t, strings.HasPrefix(got, "<pre>"))
	assert.Contains(t, got, "a   | bb")
	assert.Contains(t, got, "----+---")
	assert.Contains(t, got, "ccc | d")
}

func TestFormatHTMLEmpty(t *testing.T) {
	got, ok := FormatHTML("")
	assert.True(t, ok)
	assert.Empty(t, got)
}
