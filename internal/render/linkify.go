package render

import (
	"fmt"
	"regexp"
	"strings"
)

// bareURLPattern matches a bare http(s) URL that is not already part of an
// HTML attribute. It deliberately stops at whitespace, `<`, `"` and `'` so a
// URL already sitting inside href="..." is never matched at the top level;
// linkify additionally only applies it to text outside tags and anchor
// bodies, via transformTextNodes.
var bareURLPattern = regexp.MustCompile(`https?://[^\s"'<>]+`)

var youtubeIDPattern = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([A-Za-z0-9_-]{6,})`)

// linkify implements pipeline step 2 (spec.md §4.3 step 2): every bare URL
// becomes a clickable anchor, and a YouTube URL additionally renders as a
// thumbnail image linking to the video rather than plain anchor text. URLs
// already wrapped in an anchor (href attribute or anchor body) are left
// untouched — linkify only sees text nodes, never tag contents, thanks to
// transformTextNodes.
func linkify(html string) string {
	return transformTextNodes(html, func(text string) string {
		return bareURLPattern.ReplaceAllStringFunc(text, func(url string) string {
			if m := youtubeIDPattern.FindStringSubmatch(url); m != nil {
				videoID := m[1]
				thumb := fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", videoID)
				return fmt.Sprintf(`<a href="%s"><img src="%s" alt="video thumbnail" style="max-width:100%%;"></a>`, url, thumb)
			}
			return fmt.Sprintf(`<a href="%s">%s</a>`, url, url)
		})
	})
}

var anchorOpenPattern = regexp.MustCompile(`(?i)^<a[\s>]`)

// transformTextNodes applies f to every run of HTML that sits outside a tag
// (`<...>`) and outside an existing anchor's body, leaving tag markup and
// already-linked text untouched. This is a deliberately small parser, not a
// general HTML tokenizer: it is enough to keep linkify from rewriting URLs
// that already live inside an attribute or inside <a>...</a>.
func transformTextNodes(html string, f func(string) string) string {
	var b strings.Builder
	inTag := false
	anchorDepth := 0
	var tagRun strings.Builder
	var textRun strings.Builder

	flush := func() {
		if textRun.Len() > 0 {
			if anchorDepth > 0 {
				b.WriteString(textRun.String())
			} else {
				b.WriteString(f(textRun.String()))
			}
			textRun.Reset()
		}
	}

	for _, r := range html {
		switch {
		case r == '<':
			flush()
			inTag = true
			tagRun.Reset()
			tagRun.WriteRune(r)
			b.WriteRune(r)
		case r == '>':
			inTag = false
			tagRun.WriteRune(r)
			tag := tagRun.String()
			if anchorOpenPattern.MatchString(tag) {
				anchorDepth++
			} else if strings.EqualFold(tag, "</a>") {
				if anchorDepth > 0 {
					anchorDepth--
				}
			}
			b.WriteRune(r)
		case inTag:
			tagRun.WriteRune(r)
			b.WriteRune(r)
		default:
			textRun.WriteRune(r)
		}
	}
	flush()
	return b.String()
}
