package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/driftloop/mailcore/internal/domain"
)

// skipShortening reports whether href should pass through untouched: it is
// not a trackable web destination, or it is the per-subscriber unsubscribe
// link, which must stay stable across opens rather than mint a fresh code
// on every render.
func skipShortening(href, unsubscribeURL string) bool {
	if href == "" || href == unsubscribeURL {
		return true
	}
	switch {
	case strings.HasPrefix(href, "mailto:"):
		return true
	case strings.HasPrefix(href, "tel:"):
		return true
	case strings.HasPrefix(href, "#"):
		return true
	}
	return !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://")
}

// rewriteShortLinks implements pipeline step 3 (spec.md §4.3 step 3). Every
// anchor's href is replaced by a freshly-minted short link; occurrences of
// the same URL are never deduplicated, so two identical hrefs in the same
// piece of content produce two distinct short codes distinguished by
// Position (spec.md §8).
func rewriteShortLinks(ctx context.Context, repo domain.ShortUrlRepository, html string, campaignID, sequenceStepID, shortBaseURL, unsubscribeURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse content for short-link rewriting: %w", err)
	}

	positions := make(map[string]int)
	var rewriteErr error

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if skipShortening(href, unsubscribeURL) {
			return true
		}

		positions[href]++
		short := &domain.ShortUrl{
			OriginalURL:    href,
			Position:       positions[href],
			CampaignID:     campaignID,
			SequenceStepID: sequenceStepID,
		}
		if err := repo.Create(ctx, short); err != nil {
			rewriteErr = fmt.Errorf("mint short link for %q: %w", href, err)
			return false
		}
		s.SetAttr("href", strings.TrimRight(shortBaseURL, "/")+"/"+short.ShortCode)
		return true
	})
	if rewriteErr != nil {
		return "", rewriteErr
	}

	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("serialize content after short-link rewriting: %w", err)
	}
	return unwrapDocument(out), nil
}

// unwrapDocument strips the <html><head></head><body>...</body></html>
// wrapper that goquery.NewDocumentFromReader adds around a bare fragment,
// returning the fragment unchanged.
func unwrapDocument(doc string) string {
	doc = strings.TrimSpace(doc)
	doc = strings.TrimPrefix(doc, "<html><head></head><body>")
	doc = strings.TrimSuffix(doc, "</body></html>")
	return doc
}
