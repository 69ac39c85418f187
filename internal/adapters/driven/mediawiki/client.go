// Package mediawiki implements the revision source port over the
// MediaWiki Action API: latest-revision lookup, revision fetch and
// by-timestamp lookup, with discussion items delivered as JSON.
package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/jwbth/talkwatch/internal/core/domain"
	"github.com/jwbth/talkwatch/internal/core/ports/driven"
	"github.com/jwbth/talkwatch/internal/logger"
)

const userAgent = "talkwatch/1.0"

// Ensure Client implements the interface.
var _ driven.RevisionSource = (*Client)(nil)

// Config configures a client.
type Config struct {
	// Endpoint is the api.php URL, e.g. https://en.wikipedia.org/w/api.php.
	Endpoint string

	// Page is the watched page title.
	Page string

	// TokenSource provides an optional OAuth bearer token for
	// authenticated access. Nil means anonymous.
	TokenSource oauth2.TokenSource

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client talks to one wiki about one page.
type Client struct {
	endpoint string
	page     string
	http     *http.Client
	tokens   oauth2.TokenSource
	limiter  *rateLimiter
}

// NewClient creates a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" || cfg.Page == "" {
		return nil, fmt.Errorf("%w: endpoint and page are required", domain.ErrInvalidInput)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		endpoint: cfg.Endpoint,
		page:     cfg.Page,
		http:     httpClient,
		tokens:   cfg.TokenSource,
		limiter:  newRateLimiter(),
	}, nil
}

// Close releases resources.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// LatestRevisionID returns the id of the newest revision of the page.
func (c *Client) LatestRevisionID(ctx context.Context) (int64, error) {
	params := url.Values{
		"action":  {"query"},
		"titles":  {c.page},
		"prop":    {"revisions"},
		"rvprop":  {"ids"},
		"rvlimit": {"1"},
	}
	var payload revisionQueryResponse
	if err := c.get(ctx, params, &payload); err != nil {
		return 0, err
	}
	rev, err := payload.firstRevision()
	if err != nil {
		return 0, err
	}
	return rev.RevID, nil
}

// FetchRevision returns a revision's discussion items as a raw payload.
func (c *Client) FetchRevision(ctx context.Context, revisionID int64) (*domain.RawRevision, error) {
	params := url.Values{
		"action": {"discussiontoolspageinfo"},
		"page":   {c.page},
		"oldid":  {fmt.Sprintf("%d", revisionID)},
		"prop":   {"threaditemshtml"},
	}
	body, err := c.getRaw(ctx, params)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Error *apiErrorPayload `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding revision %d: %w", revisionID, err)
	}
	if envelope.Error != nil {
		return nil, &APIError{Code: envelope.Error.Code, Info: envelope.Error.Info}
	}

	return &domain.RawRevision{ID: revisionID, Timestamp: time.Now().UTC(), Content: body}, nil
}

// RevisionAt returns the newest revision saved at or before t.
func (c *Client) RevisionAt(ctx context.Context, t time.Time) (*domain.RawRevision, error) {
	params := url.Values{
		"action":  {"query"},
		"titles":  {c.page},
		"prop":    {"revisions"},
		"rvprop":  {"ids|timestamp"},
		"rvlimit": {"1"},
		"rvstart": {t.UTC().Format(time.RFC3339)},
		"rvdir":   {"older"},
	}
	var payload revisionQueryResponse
	if err := c.get(ctx, params, &payload); err != nil {
		return nil, err
	}
	rev, err := payload.firstRevision()
	if err != nil {
		return nil, err
	}
	return c.FetchRevision(ctx, rev.RevID)
}

// get performs a GET request and decodes the JSON response, surfacing API
// errors through the taxonomy.
func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	body, err := c.getRaw(ctx, params)
	if err != nil {
		return err
	}
	var envelope struct {
		Error *apiErrorPayload `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if envelope.Error != nil {
		return &APIError{Code: envelope.Error.Code, Info: envelope.Error.Info}
	}
	return json.Unmarshal(body, out)
}

// getRaw performs a rate-limited GET request and returns the body.
func (c *Client) getRaw(ctx context.Context, params url.Values) ([]byte, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, err
	}

	params.Set("format", "json")
	params.Set("formatversion", "2")
	requestURL := c.endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("fetching access token: %w", err)
		}
		token.SetAuthHeader(req)
	}

	logger.Debug("GET %s action=%s", c.endpoint, params.Get("action"))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", params.Get("action"), err)
	}
	defer resp.Body.Close()

	if err := c.limiter.check(resp); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, params.Get("action"))
	}
	return io.ReadAll(resp.Body)
}

// apiErrorPayload is the wire shape of a MediaWiki error.
type apiErrorPayload struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

// revisionQueryResponse is the wire shape of a revisions query.
type revisionQueryResponse struct {
	Query struct {
		Pages []struct {
			Missing   bool           `json:"missing"`
			Revisions []wireRevision `json:"revisions"`
		} `json:"pages"`
	} `json:"query"`
}

type wireRevision struct {
	RevID     int64  `json:"revid"`
	Timestamp string `json:"timestamp"`
}

func (r *revisionQueryResponse) firstRevision() (*wireRevision, error) {
	for _, page := range r.Query.Pages {
		if page.Missing {
			continue
		}
		if len(page.Revisions) > 0 {
			return &page.Revisions[0], nil
		}
	}
	return nil, domain.ErrNoRevision
}
