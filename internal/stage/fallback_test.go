package stage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pteargryphon/creative-brief-generator/internal/model"
)

func TestFallbackBrand(t *testing.T) {
	b := FallbackBrand(State{URL: "acme.com"})
	assert.Equal(t, "acme.com", b.BrandName)
	assert.Equal(t, "https://acme.com", b.URL)
	assert.Equal(t, "Unknown", b.Industry)
	assert.Equal(t, "Unknown", b.Niche)
	assert.Equal(t, "Unknown", b.FunnelType)
	assert.Equal(t, []string{"Unable to determine"}, b.USP)
	assert.Equal(t, []string{"acme"}, b.Keywords)
}

func TestFallbackCompetitors(t *testing.T) {
	st := testState()
	got := FallbackCompetitors(st)
	require.Len(t, got, 5)

	assert.Equal(t, "Premium Protein Co", got[0].BrandName)
	assert.Equal(t, "Leading provider of protein solutions with focus on quality", got[0].USP)
	assert.Equal(t, "Health Direct", got[1].BrandName)
	assert.Equal(t, "Quick Protein", got[2].BrandName)
	assert.False(t, got[2].HasAds)
	assert.Equal(t, "quiz", got[2].FunnelType)
	assert.Equal(t, "Protein Pro", got[3].BrandName)
	assert.Equal(t, "The Protein Store", got[4].BrandName)
	assert.Equal(t, "https://example-competitor5.com", got[4].URL)

	assert.Equal(t, got, FallbackCompetitors(st))
}

func TestFallbackCompetitors_UnknownBrand(t *testing.T) {
	got := FallbackCompetitors(State{Brand: FallbackBrand(State{URL: "acme.com"})})
	assert.Equal(t, "Premium Unknown Co", got[0].BrandName)

	got = FallbackCompetitors(State{})
	assert.Equal(t, "Premium Products Co", got[0].BrandName)
	assert.Equal(t, "General Direct", got[1].BrandName)
}

func TestFallbackAdvertisers(t *testing.T) {
	got := FallbackAdvertisers(testState())
	require.Len(t, got, 3)

	assert.Equal(t, "Top Protein Powder Brand", got[0].AdvertiserName)
	assert.Equal(t, 950, got[0].Score)
	require.Len(t, got[0].TopAds, 3)
	assert.Equal(t, "Revolutionary Protein Powder - 50% Off Today Only", got[0].TopAds[0].Headline)
	assert.Equal(t, "Discover why thousands are switching to our protein powder...", got[0].TopAds[0].Body)
	assert.Equal(t, "https://via.placeholder.com/1200x628", got[0].TopAds[0].ImageURL)
	assert.Equal(t, 780, got[1].Score)
	assert.Len(t, got[1].TopAds, 2)
	assert.Equal(t, "Protein Powder Direct", got[2].AdvertiserName)
	assert.True(t, got[2].HasLeadMagnet)

	noKeywords := FallbackAdvertisers(State{})
	assert.Equal(t, "Top Product Brand", noKeywords[0].AdvertiserName)
}

func TestFallbackPainPoints(t *testing.T) {
	got := FallbackPainPoints(testState())
	require.Len(t, got, 5)
	assert.Equal(t, "User Experience", got[0].Category)
	assert.Equal(t, 52, got[0].Count)
	assert.Equal(t, "The protein powder interface is confusing and hard to navigate", got[0].ExampleQuote)
	require.Len(t, got[0].Problems, 3)
	assert.Equal(t, model.Problem{Statement: "protein powder UI needs improvement", Score: 342}, got[0].Problems[0])
	assert.Equal(t, "Customer Support", got[4].Category)

	st := State{Brand: model.BrandProfile{Niche: "coffee"}}
	assert.Equal(t, "Why does coffee crash so often?", FallbackPainPoints(st)[1].ExampleQuote)
}

func TestDefaultConcepts(t *testing.T) {
	all := DefaultConcepts()
	require.Len(t, all, model.ConceptCount)
	hooks := make([]string, 0, len(all))
	for _, c := range all {
		hooks = append(hooks, c.HookType)
	}
	assert.Equal(t, []string{"problem", "statistic", "story", "question", "comparison"}, hooks)

	all[0].Headline = "mutated"
	assert.NotEqual(t, "mutated", DefaultConcept(0).Headline)
	assert.Equal(t, DefaultConcept(0), DefaultConcept(99))
}

func TestFallbackStrategy(t *testing.T) {
	s := FallbackStrategy(State{})
	assert.Len(t, s.Trends.HeadlinePatterns, 5)
	assert.Len(t, s.Trends.HookTypes, 5)
	require.Len(t, s.Opportunities, 3)
	assert.Equal(t, []string{"angle", "design", "funnel"},
		[]string{s.Opportunities[0].Type, s.Opportunities[1].Type, s.Opportunities[2].Type})
	assert.Len(t, s.Concepts, model.ConceptCount)
}

func TestPlaceholderURL(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 5, 7, 0, time.UTC)
	assert.Equal(t, "https://coda.io/d/Creative-Brief_mock_20260301_090507", PlaceholderURL(at))
}
