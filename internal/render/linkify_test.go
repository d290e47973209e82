package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinkifyBareURL(t *testing.T) {
	out := linkify("<p>Check this out: https://example.com/page</p>")
	assert.Contains(t, out, `<a href="https://example.com/page">https://example.com/page</a>`)
}

func TestLinkifyYouTubeURLBecomesThumbnail(t *testing.T) {
	out := linkify("Watch https://www.youtube.com/watch?v=dQw4w9WgXcQ now")
	assert.Contains(t, out, "img.youtube.com/vi/dQw4w9WgXcQ/maxresdefault.jpg")
	assert.Contains(t, out, `<a href="https://www.youtube.com/watch?v=dQw4w9WgXcQ">`)
}

func TestLinkifyDoesNotRewriteURLAlreadyInsideAnchor(t *testing.T) {
	in := `<a href="https://example.com">https://example.com</a>`
	out := linkify(in)
	assert.Equal(t, in, out)
}

func TestLinkifyDoesNotRewriteHrefAttribute(t *testing.T) {
	in := `<a href="https://example.com/already-linked">click here</a>`
	out := linkify(in)
	assert.Equal(t, in, out)
}

func TestTransformTextNodesSkipsTagMarkup(t *testing.T) {
	out := transformTextNodes(`<div class="x">hello</div>`, func(s string) string {
		return "[" + s + "]"
	})
	assert.Equal(t, `<div class="x">[hello]</div>`, out)
}
