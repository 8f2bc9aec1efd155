// Package coda is a minimal client for the Coda REST API: copying a
// template doc and inserting rows into its tables.
package coda

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/pteargryphon/creative-brief-generator/internal/resilience"
)

const defaultBaseURL = "https://coda.io/apis/v1"

// Client defines the Coda operations used for publishing.
type Client interface {
	CreateDoc(ctx context.Context, req CreateDocRequest) (*Doc, error)
	GetDoc(ctx context.Context, docID string) (*Doc, error)
	// InsertRows appends rows to a table. table may be an id or a name; row
	// keys are column names.
	InsertRows(ctx context.Context, docID, table string, rows []Row) error
}

// CreateDocRequest is the body of POST /docs.
type CreateDocRequest struct {
	Title     string `json:"title"`
	SourceDoc string `json:"sourceDoc,omitempty"`
	FolderID  string `json:"folderId,omitempty"`
}

// Doc is the subset of Coda doc metadata we use.
type Doc struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	BrowserLink string `json:"browserLink"`
}

// Row maps column names to cell values.
type Row map[string]any

type cell struct {
	Column string `json:"column"`
	Value  any    `json:"value"`
}

type rowPayload struct {
	Cells []cell `json:"cells"`
}

type insertRowsRequest struct {
	Rows []rowPayload `json:"rows"`
}

// cells renders a row with columns in a stable order.
func (r Row) cells() []cell {
	cols := make([]string, 0, len(r))
	for k := range r {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	out := make([]cell, 0, len(cols))
	for _, c := range cols {
		out = append(out, cell{Column: c, Value: r[c]})
	}
	return out
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
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Coda client throttled to 5 req/s by default.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
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

func (c *httpClient) CreateDoc(ctx context.Context, req CreateDocRequest) (*Doc, error) {
	var doc Doc
	if err := c.do(ctx, http.MethodPost, "/docs", req, &doc); err != nil {
		return nil, eris.Wrap(err, "coda: create doc")
	}
	return &doc, nil
}

func (c *httpClient) GetDoc(ctx context.Context, docID string) (*Doc, error) {
	var doc Doc
	if err := c.do(ctx, http.MethodGet, "/docs/"+url.PathEscape(docID), nil, &doc); err != nil {
		return nil, eris.Wrapf(err, "coda: get doc %s", docID)
	}
	return &doc, nil
}

func (c *httpClient) InsertRows(ctx context.Context, docID, table string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	body := insertRowsRequest{Rows: make([]rowPayload, 0, len(rows))}
	for _, r := range rows {
		body.Rows = append(body.Rows, rowPayload{Cells: r.cells()})
	}
	path := fmt.Sprintf("/docs/%s/tables/%s/rows", url.PathEscape(docID), url.PathEscape(table))
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return eris.Wrapf(err, "coda: insert rows into %s", table)
	}
	return nil
}

func (c *httpClient) do(ctx context.Context, method, path string, in, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limit")
		}
	}

	var reqBody io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return eris.Wrap(err, "marshal request")
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resilience.StatusError("coda", resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}
