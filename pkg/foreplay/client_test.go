package foreplay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pteargryphon/creative-brief-generator/internal/resilience"
)

func TestSearchByKeyword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/ads/search", r.URL.Path)
		assert.Equal(t, "protein powder", r.URL.Query().Get("keyword"))
		assert.Equal(t, "facebook", r.URL.Query().Get("platform"))
		assert.Equal(t, "days_running", r.URL.Query().Get("sort_by"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer fp-key", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{"ads": [{
			"name": "Rival Nutrition",
			"domain": "rival.com",
			"days_running": 120,
			"ad_count": 14,
			"engagement_score": 3.5,
			"landing_page": "https://rival.com/quiz",
			"has_lead_magnet": true,
			"top_ads": [{"ad_id": "a1", "headline": "Finally, protein that tastes good", "cta": "Shop Now", "days_running": 120}]
		}]}`))
	}))
	defer srv.Close()

	c := NewClient("fp-key", WithBaseURL(srv.URL), WithRateLimit(0))
	got, err := c.SearchByKeyword(context.Background(), "protein powder")

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Rival Nutrition", got[0].Name)
	assert.Equal(t, 120, got[0].DaysRunning)
	assert.Equal(t, 14, got[0].AdCount)
	assert.InDelta(t, 3.5, got[0].EngagementScore, 0.001)
	assert.True(t, got[0].HasLeadMagnet)
	require.Len(t, got[0].TopAds, 1)
	assert.Equal(t, "a1", got[0].TopAds[0].AdID)
}

func TestSearchByDomain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/advertisers/search", r.URL.Path)
		assert.Equal(t, "rival.com", r.URL.Query().Get("domain"))
		_, _ = w.Write([]byte(`{"advertisers": [{"name": "Rival", "domain": "rival.com"}, {"name": "Rival EU", "domain": "rival.com"}]}`))
	}))
	defer srv.Close()

	got, err := NewClient("k", WithBaseURL(srv.URL)).SearchByDomain(context.Background(), "rival.com")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   string
		transient bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, "unexpected status 429", true},
		{"bad gateway", http.StatusBadGateway, `oops`, "unexpected status 502", true},
		{"forbidden", http.StatusForbidden, `{"error":"bad key"}`, "unexpected status 403", false},
		{"malformed", http.StatusOK, `{"ads": [`, "unmarshal response", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient("k", WithBaseURL(srv.URL)).SearchByKeyword(context.Background(), "x")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Contains(t, err.Error(), "foreplay: search keyword")
			assert.Equal(t, tt.transient, resilience.IsTransient(err))
		})
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("k").(*httpClient)
	assert.Equal(t, defaultBaseURL, c.baseURL)
	assert.Equal(t, 30*time.Second, c.http.Timeout)
	require.NotNil(t, c.limiter)
	assert.InDelta(t, 5.0, float64(c.limiter.Limit()), 0.001)

	custom := &http.Client{}
	c = NewClient("k", WithHTTPClient(custom), WithRateLimit(2)).(*httpClient)
	assert.Same(t, custom, c.http)
	assert.InDelta(t, 2.0, float64(c.limiter.Limit()), 0.001)
}

func TestRateLimitHonorsCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ads": []}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithRateLimit(0.001))
	_, err := c.SearchByKeyword(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.SearchByKeyword(ctx, "second")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}
