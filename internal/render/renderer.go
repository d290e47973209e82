// Package render implements the template rendering pipeline (spec.md §4.3):
// variable substitution, linkification, short-link rewriting, empty-
// paragraph normalisation, and preset wrapping. Campaign and sequence-step
// content is authored as HTML at the admin surface boundary — there is no
// Markdown source format to detect or convert in this system, so the
// pipeline's only job is to transform that HTML, not parse a second input
// format.
package render

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/driftloop/mailcore/internal/domain"
)

// Input carries everything one invocation of Render needs. Two calls with
// equal Input values produce byte-equal HTML (spec.md §8); nothing in the
// pipeline consults wall-clock time or randomness apart from ShortUrl code
// minting, which is opaque to the caller.
type Input struct {
	Subject        string
	Content        string
	TemplateID     string
	Brand          *domain.BrandSettings
	SubscriberName string
	SubscriberEmail string
	UnsubscribeURL string
	SiteURL        string
	CampaignID     string
	SequenceStepID string
}

// Renderer runs the 5-step pipeline against a Store-backed ShortUrl
// repository.
type Renderer struct {
	shortUrls domain.ShortUrlRepository
}

func New(shortUrls domain.ShortUrlRepository) *Renderer {
	return &Renderer{shortUrls: shortUrls}
}

var emptyParagraphPattern = regexp.MustCompile(`(?i)<p>\s*</p>`)

// Render executes the pipeline in order and returns the final HTML document.
func (r *Renderer) Render(ctx context.Context, in Input) (string, error) {
	vars := Variables{
		Name:           orDefault(in.SubscriberName, "there"),
		Email:          in.SubscriberEmail,
		UnsubscribeURL: in.UnsubscribeURL,
		SiteURL:        in.SiteURL,
		PrimaryColor:   in.Brand.PrimaryColor,
	}

	// step 1: variable substitution
	content := substituteVariables(in.Content, vars)

	// step 2: linkification
	content = linkify(content)

	// step 3: short-link rewriting — only when the render is attached to a
	// real campaign or sequence step (spec.md §4.3 step 3); a preview or
	// test-send has neither and must not mint persisted ShortUrl rows.
	if in.CampaignID != "" || in.SequenceStepID != "" {
		shortBase := strings.TrimRight(in.SiteURL, "/") + "/l"
		rewritten, err := rewriteShortLinks(ctx, r.shortUrls, content, in.CampaignID, in.SequenceStepID, shortBase, in.UnsubscribeURL)
		if err != nil {
			return "", fmt.Errorf("render content: %w", err)
		}
		content = rewritten
	}

	// step 4: empty-paragraph normalisation — an empty <p></p> collapses
	// to nothing in most mail clients; <br> keeps the intended blank line.
	content = emptyParagraphPattern.ReplaceAllString(content, "<p><br></p>")

	// step 5: preset wrapping
	return wrapPreset(in.TemplateID, in.Subject, content, in.Brand), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
