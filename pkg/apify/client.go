// Package apify runs Apify actors synchronously and returns their dataset items.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pteargryphon/creative-brief-generator/internal/resilience"
)

const (
	defaultBaseURL = "https://api.apify.com/v2"
	// DefaultRedditActor is the community Reddit scraper used for pain-point mining.
	DefaultRedditActor = "trudax~reddit-scraper-lite"
)

// Client runs Apify actors.
type Client interface {
	// RunSync starts actorID with input, waits for it to finish and decodes
	// the default dataset into out.
	RunSync(ctx context.Context, actorID string, input any, out any) error
	// SearchReddit runs the Reddit scraper for the given search terms.
	SearchReddit(ctx context.Context, queries []string, maxItems int) ([]RedditPost, error)
}

// RedditPost is one item produced by the Reddit scraper actor.
type RedditPost struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Body         string `json:"body"`
	URL          string `json:"url"`
	Community    string `json:"communityName"`
	UpVotes      int    `json:"upVotes"`
	CommentCount int    `json:"numberOfComments"`
	DataType     string `json:"dataType"`
}

// Text returns the title and body joined for prompting.
func (p RedditPost) Text() string {
	return strings.TrimSpace(p.Title + "\n" + p.Body)
}

type redditInput struct {
	Searches       []string `json:"searches"`
	MaxItems       int      `json:"maxItems"`
	Sort           string   `json:"sort"`
	SearchPosts    bool     `json:"searchPosts"`
	SearchComments bool     `json:"searchComments"`
	SkipComments   bool     `json:"skipComments"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithRedditActor overrides the actor used by SearchReddit.
func WithRedditActor(actorID string) Option {
	return func(c *httpClient) {
		if actorID != "" {
			c.redditActor = actorID
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	token       string
	baseURL     string
	redditActor string
	http        *http.Client
}

// NewClient creates an Apify client. Synchronous actor runs can take a
// while, so the default timeout is generous.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:       token,
		baseURL:     defaultBaseURL,
		redditActor: DefaultRedditActor,
		http: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) RunSync(ctx context.Context, actorID string, input any, out any) error {
	body, err := json.Marshal(input)
	if err != nil {
		return eris.Wrap(err, "apify: marshal input")
	}

	endpoint := fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items", c.baseURL, url.PathEscape(actorID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "apify: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "apify: run actor %s", actorID)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "apify: read response")
	}

	// run-sync answers 201 Created once the run has finished.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return resilience.StatusError("apify", resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "apify: unmarshal dataset items")
	}
	return nil
}

func (c *httpClient) SearchReddit(ctx context.Context, queries []string, maxItems int) ([]RedditPost, error) {
	if len(queries) == 0 {
		return nil, nil
	}
	input := redditInput{
		Searches:     queries,
		MaxItems:     maxItems,
		Sort:         "relevance",
		SearchPosts:  true,
		SkipComments: true,
	}

	var items []RedditPost
	if err := c.RunSync(ctx, c.redditActor, input, &items); err != nil {
		return nil, err
	}

	posts := items[:0]
	for _, it := range items {
		if it.DataType != "" && it.DataType != "post" {
			continue
		}
		posts = append(posts, it)
	}
	return posts, nil
}
