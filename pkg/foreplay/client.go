// Package foreplay is a client for the Foreplay Meta ad library API.
package foreplay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/pteargryphon/creative-brief-generator/internal/resilience"
)

const (
	defaultBaseURL = "https://public.api.foreplay.co/api"
	defaultLimit   = 10
)

// Client searches the Foreplay ad library.
type Client interface {
	// SearchByKeyword returns advertisers running ads that match keyword,
	// longest-running first.
	SearchByKeyword(ctx context.Context, keyword string) ([]Advertiser, error)
	// SearchByDomain returns advertisers whose ads point at domain.
	SearchByDomain(ctx context.Context, domain string) ([]Advertiser, error)
}

// Advertiser is one advertiser record as returned by the ad library.
type Advertiser struct {
	Name            string  `json:"name"`
	Domain          string  `json:"domain"`
	DaysRunning     int     `json:"days_running"`
	AdCount         int     `json:"ad_count"`
	EngagementScore float64 `json:"engagement_score"`
	TopAds          []Ad    `json:"top_ads"`
	LandingPage     string  `json:"landing_page"`
	HasLeadMagnet   bool    `json:"has_lead_magnet"`
}

// Ad is a single creative in an advertiser's library.
type Ad struct {
	AdID        string `json:"ad_id"`
	Headline    string `json:"headline"`
	Body        string `json:"body"`
	CTA         string `json:"cta"`
	DaysRunning int    `json:"days_running"`
	ImageURL    string `json:"image_url"`
	Link        string `json:"link"`
}

type keywordResponse struct {
	Ads []Advertiser `json:"ads"`
}

type domainResponse struct {
	Advertisers []Advertiser `json:"advertisers"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Foreplay client throttled to 5 req/s by default.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(5, 5),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SearchByKeyword(ctx context.Context, keyword string) ([]Advertiser, error) {
	q := url.Values{}
	q.Set("keyword", keyword)
	q.Set("platform", "facebook")
	q.Set("sort_by", "days_running")
	q.Set("limit", strconv.Itoa(defaultLimit))

	var resp keywordResponse
	if err := c.get(ctx, "/ads/search", q, &resp); err != nil {
		return nil, eris.Wrapf(err, "foreplay: search keyword %q", keyword)
	}
	return resp.Ads, nil
}

func (c *httpClient) SearchByDomain(ctx context.Context, domain string) ([]Advertiser, error) {
	q := url.Values{}
	q.Set("domain", domain)
	q.Set("platform", "facebook")

	var resp domainResponse
	if err := c.get(ctx, "/advertisers/search", q, &resp); err != nil {
		return nil, eris.Wrapf(err, "foreplay: search domain %s", domain)
	}
	return resp.Advertisers, nil
}

func (c *httpClient) get(ctx context.Context, path string, q url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limit")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}

	if resp.StatusCode != http.StatusOK {
		return resilience.StatusError("foreplay", resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}
