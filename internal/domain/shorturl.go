package domain

import (
	"context"
	"time"
)

// ShortUrl maps an 8-char code to one occurrence of a link encountered
// while rendering a campaign or sequence step. Every occurrence mints
// its own code — even repeats of the same href — so that per-link click
// analytics can tell two placements of the same URL apart (spec.md §3,
// §4.3 step 3). Position is the 1-based rank of this occurrence among
// all occurrences of OriginalURL within the same piece of content.
type ShortUrl struct {
	ID             string
	ShortCode      string
	OriginalURL    string
	Position       int
	CampaignID     string
	SequenceStepID string
	CreatedAt      time.Time
}

// ShortUrlRepository is the Store's short-link CRUD surface.
type ShortUrlRepository interface {
	// Create mints a fresh ShortUrl, retrying an 8-char short-code
	// collision up to 3 times before giving up (spec.md §8).
	Create(ctx context.Context, s *ShortUrl) error
	GetByCode(ctx context.Context, code string) (*ShortUrl, error)
}
