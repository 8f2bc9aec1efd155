package stage

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pteargryphon/creative-brief-generator/internal/errlog"
	"github.com/pteargryphon/creative-brief-generator/internal/model"
	"github.com/pteargryphon/creative-brief-generator/pkg/foreplay"
)

func TestAdvertiserScore(t *testing.T) {
	assert.Equal(t, 0, AdvertiserScore(foreplay.Advertiser{}))
	assert.Equal(t, 2*100+12+35, AdvertiserScore(foreplay.Advertiser{DaysRunning: 100, AdCount: 12, EngagementScore: 3.5}))
}

func TestRankAdvertisers(t *testing.T) {
	ads := make([]foreplay.Ad, 7)
	for i := range ads {
		ads[i] = foreplay.Ad{AdID: string(rune('a' + i))}
	}
	in := []foreplay.Advertiser{
		{Name: "Low", DaysRunning: 1},
		{Name: "High", DaysRunning: 300, TopAds: ads, LandingPage: "https://high.com/quiz", HasLeadMagnet: true},
		{Name: "", Domain: "mid.com", DaysRunning: 50},
		{Name: "TieFirst", DaysRunning: 10},
		{Name: "TieSecond", DaysRunning: 10},
	}

	got := RankAdvertisers(in, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "High", got[0].AdvertiserName)
	assert.Equal(t, 600, got[0].Score)
	assert.Len(t, got[0].TopAds, 5)
	assert.Equal(t, "https://high.com/quiz", got[0].FunnelURL)
	assert.True(t, got[0].HasLeadMagnet)
	assert.Equal(t, "Unknown", got[1].AdvertiserName)
	assert.Equal(t, "mid.com", got[1].Domain)
	assert.Equal(t, "TieFirst", got[2].AdvertiserName)
}

func TestAdIntelligence_Success(t *testing.T) {
	fp := &mockForeplayClient{}
	fp.On("SearchByKeyword", mock.Anything, "protein powder").Return([]foreplay.Advertiser{{Name: "A", DaysRunning: 10}}, nil)
	fp.On("SearchByKeyword", mock.Anything, "whey").Return([]foreplay.Advertiser{{Name: "B", DaysRunning: 40}}, nil)
	fp.On("SearchByKeyword", mock.Anything, "vegan protein").Return([]foreplay.Advertiser{}, nil)
	fp.On("SearchByDomain", mock.Anything, "rival1.com").Return([]foreplay.Advertiser{{Name: "C", DaysRunning: 20}}, nil)
	fp.On("SearchByDomain", mock.Anything, "rival2.com").Return([]foreplay.Advertiser{{Name: "D", DaysRunning: 30}}, nil)

	st := testState()
	st.Competitors = []model.Competitor{
		{URL: "https://www.rival1.com"},
		{URL: "https://rival2.com"},
		{URL: "https://rival3.com"},
	}

	d := testDeps()
	res := NewAdIntelligence(d, fp).Execute(context.Background(), st)

	require.False(t, res.Degraded)
	require.Len(t, res.Output, 3)
	assert.Equal(t, "B", res.Output[0].AdvertiserName)
	assert.Equal(t, "D", res.Output[1].AdvertiserName)
	assert.Equal(t, "C", res.Output[2].AdvertiserName)
	fp.AssertNotCalled(t, "SearchByKeyword", mock.Anything, "shakes")
	fp.AssertNotCalled(t, "SearchByDomain", mock.Anything, "rival3.com")
	assert.Zero(t, d.Errors.Count())
}

func TestAdIntelligence_NoAdsIsNotDegraded(t *testing.T) {
	fp := &mockForeplayClient{}
	fp.On("SearchByKeyword", mock.Anything, mock.Anything).Return([]foreplay.Advertiser{}, nil)

	res := NewAdIntelligence(testDeps(), fp).Execute(context.Background(), testState())
	assert.False(t, res.Degraded)
	assert.Empty(t, res.Output)
}

func TestAdIntelligence_SearchFailure(t *testing.T) {
	fp := &mockForeplayClient{}
	fp.On("SearchByKeyword", mock.Anything, mock.Anything).Return(nil, eris.New("foreplay: unexpected status 403"))

	d := testDeps()
	st := testState()
	res := NewAdIntelligence(d, fp).Execute(context.Background(), st)

	assert.True(t, res.Degraded)
	assert.Equal(t, FallbackAdvertisers(st), res.Output)
	assert.Len(t, d.Errors.ForStage(NameAdIntelligence), 1)
}

func TestAdIntelligence_MissingCredential(t *testing.T) {
	d := testDeps()
	res := NewAdIntelligence(d, nil).Execute(context.Background(), testState())

	assert.True(t, res.Degraded)
	assert.Len(t, res.Output, 3)
	assert.Equal(t, errlog.KindMissingCredential, d.Errors.Entries()[0].Kind)
}
