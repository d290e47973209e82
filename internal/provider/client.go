// Package provider talks to the external transactional/broadcast email
// API over HTTP: single and batched sends, contact/segment management,
// and broadcast create+send, each wrapped in the retry/backoff/rate-limit
// discipline the teacher applies to its own provider integrations.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/driftloop/mailcore/pkg/logger"
)

// HTTPClient is the minimal surface Client depends on, so tests can
// substitute a fake transport without standing up a server.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config parameterises Client construction (spec.md §4.2).
type Config struct {
	BaseURL           string
	APIKey            string
	DefaultSenderName string
	DefaultSender     string
	DefaultReplyTo    string
	UseBroadcastAPI   bool
	DefaultSegmentID  string
	ShortLinkBaseURL  string
}

// Client is the engine's sole outbound channel to the provider.
type Client struct {
	httpClient HTTPClient
	cfg        Config
	logger     logger.Logger
}

func New(httpClient HTTPClient, cfg Config, log logger.Logger) *Client {
	return &Client{httpClient: httpClient, cfg: cfg, logger: log}
}

// ShortLinkBaseURL returns the configured short-link base (SPEC_FULL.md
// expansion: §4.2). The Template Renderer does not read it: it builds short
// links against SiteURL + "/l".
func (c *Client) ShortLinkBaseURL() string {
	return c.cfg.ShortLinkBaseURL
}

// DefaultSegmentID exposes the deployment-wide fallback broadcast segment
// (spec.md §4.8.B) to callers that need it without holding their own copy
// of Config.
func (c *Client) DefaultSegmentID() string {
	return c.cfg.DefaultSegmentID
}

// SendMessage is one outbound email (spec.md §4.2).
type SendMessage struct {
	ToEmail    string
	ToName     string
	FromName   string
	Subject    string
	HTMLBody   string
	ReplyTo    string
	Tags       map[string]string
}

// SendResult is the discriminated outcome of one send attempt: exactly
// one of ProviderMessageID (success) or Err (failure) is set, so callers
// never need to inspect an error's type to know whether a send landed.
type SendResult struct {
	Email             string
	ProviderMessageID string
	Err               error
}

func (r SendResult) Success() bool { return r.Err == nil }

// Send performs one transactional send with the retry/backoff discipline
// of spec.md §4.2.
func (c *Client) Send(ctx context.Context, msg SendMessage) SendResult {
	body := map[string]interface{}{
		"from":     formatFrom(orDefault(msg.FromName, c.cfg.DefaultSenderName), c.cfg.DefaultSender),
		"to":       []string{msg.ToEmail},
		"subject":  msg.Subject,
		"html":     msg.HTMLBody,
		"reply_to": orDefault(msg.ReplyTo, c.cfg.DefaultReplyTo),
	}
	if len(msg.Tags) > 0 {
		body["tags"] = msg.Tags
	}

	var parsed struct {
		ID string `json:"id"`
	}
	err := c.doWithRetry(ctx, http.MethodPost, "/emails", body, &parsed)
	if err != nil {
		return SendResult{Email: msg.ToEmail, Err: err}
	}
	return SendResult{Email: msg.ToEmail, ProviderMessageID: parsed.ID}
}

// SendBatch sends messages in chunks of at most 100, sleeping at least
// 550ms between chunks to stay under the provider's per-second rate
// limit (spec.md §4.2, §8). Sends within one chunk run concurrently,
// bounded by maxChunkConcurrency, since nothing about one recipient's
// send depends on another's.
func (c *Client) SendBatch(ctx context.Context, messages []SendMessage) []SendResult {
	const chunkSize = 100
	const maxChunkConcurrency = 10
	const interleave = 550 * time.Millisecond

	results := make([]SendResult, 0, len(messages))
	for i := 0; i < len(messages); i += chunkSize {
		end := i + chunkSize
		if end > len(messages) {
			end = len(messages)
		}
		chunk := messages[i:end]
		chunkResults := make([]SendResult, len(chunk))

		var g errgroup.Group
		g.SetLimit(maxChunkConcurrency)
		for j, m := range chunk {
			j, m := j, m
			g.Go(func() error {
				chunkResults[j] = c.Send(ctx, m)
				return nil
			})
		}
		_ = g.Wait()
		results = append(results, chunkResults...)

		if end < len(messages) {
			select {
			case <-ctx.Done():
				return results
			case <-time.After(interleave):
			}
		}
	}
	return results
}

// EnsureContact upserts a recipient into the provider's own contact
// store ahead of a broadcast send (spec.md §4.2).
func (c *Client) EnsureContact(ctx context.Context, email, name string) error {
	body := map[string]interface{}{"email": email, "first_name": name}
	if c.cfg.DefaultSegmentID != "" {
		body["segment_id"] = c.cfg.DefaultSegmentID
	}
	return c.doWithRetry(ctx, http.MethodPost, "/contacts", body, nil)
}

// MarkUnsubscribed tells the provider to record this contact as
// unsubscribed in its own audience, independent of the Store write that
// is this engine's source of truth (spec.md §4.5 step 4).
func (c *Client) MarkUnsubscribed(ctx context.Context, email string) error {
	body := map[string]interface{}{"email": email, "unsubscribed": true}
	return c.doWithRetry(ctx, http.MethodPost, "/contacts/unsubscribe", body, nil)
}

// CreateSegment creates a provider-side segment for a contact list
// (spec.md §4.2).
func (c *Client) CreateSegment(ctx context.Context, name string) (string, error) {
	var parsed struct {
		ID string `json:"id"`
	}
	err := c.doWithRetry(ctx, http.MethodPost, "/segments", map[string]interface{}{"name": name}, &parsed)
	if err != nil {
		return "", err
	}
	return parsed.ID, nil
}

func (c *Client) AddToSegment(ctx context.Context, segmentID, email string) error {
	return c.doWithRetry(ctx, http.MethodPost, fmt.Sprintf("/segments/%s/contacts", segmentID), map[string]interface{}{"email": email}, nil)
}

func (c *Client) DeleteSegment(ctx context.Context, segmentID string) error {
	return c.doWithRetry(ctx, http.MethodDelete, fmt.Sprintf("/segments/%s", segmentID), nil, nil)
}

// BroadcastResult is the provider's broadcast handle, used to poll or
// report stats back against (spec.md §4.2).
type BroadcastResult struct {
	ID string
}

// CreateAndSendBroadcast creates a provider-side broadcast targeting
// segmentID and immediately triggers its send (spec.md §4.2).
func (c *Client) CreateAndSendBroadcast(ctx context.Context, segmentID, subject, fromName, htmlBody, replyTo string) (BroadcastResult, error) {
	createBody := map[string]interface{}{
		"segment_id": segmentID,
		"from":       formatFrom(orDefault(fromName, c.cfg.DefaultSenderName), c.cfg.DefaultSender),
		"subject":    subject,
		"html":       htmlBody,
		"reply_to":   orDefault(replyTo, c.cfg.DefaultReplyTo),
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := c.doWithRetry(ctx, http.MethodPost, "/broadcasts", createBody, &created); err != nil {
		return BroadcastResult{}, err
	}

	if err := c.doWithRetry(ctx, http.MethodPost, fmt.Sprintf("/broadcasts/%s/send", created.ID), nil, nil); err != nil {
		return BroadcastResult{}, err
	}
	return BroadcastResult{ID: created.ID}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode provider request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func formatFrom(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}
