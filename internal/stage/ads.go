package stage

import (
	"context"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/pteargryphon/creative-brief-generator/internal/errlog"
	"github.com/pteargryphon/creative-brief-generator/internal/model"
	"github.com/pteargryphon/creative-brief-generator/pkg/foreplay"
)

const (
	adKeywords          = 3
	adCompetitors       = 2
	topAdvertisers      = 3
	topAdsPerAdvertiser = 5
)

// AdIntelligence ranks the longest-running Meta advertisers in the niche.
type AdIntelligence struct {
	deps     Deps
	foreplay foreplay.Client
}

// NewAdIntelligence wires the stage. A nil client means the credential is missing.
func NewAdIntelligence(d Deps, fp foreplay.Client) *AdIntelligence {
	return &AdIntelligence{deps: d, foreplay: fp}
}

func (s *AdIntelligence) Name() string { return NameAdIntelligence }

func (s *AdIntelligence) Execute(ctx context.Context, st State) Result[[]model.Advertiser] {
	return guard(ctx, s.deps, s.Name(), st, s.run, FallbackAdvertisers)
}

func (s *AdIntelligence) run(ctx context.Context, st State) ([]model.Advertiser, error) {
	if s.foreplay == nil {
		return nil, eris.Wrap(errlog.ErrMissingCredential, "foreplay")
	}

	keywords := st.Brand.Keywords
	if len(keywords) > adKeywords {
		keywords = keywords[:adKeywords]
	}
	var domains []string
	for _, c := range st.Competitors {
		if len(domains) == adCompetitors {
			break
		}
		if h := BareHost(c.URL); h != "" {
			domains = append(domains, h)
		}
	}

	results := make([][]foreplay.Advertiser, len(keywords)+len(domains))
	g, gctx := errgroup.WithContext(ctx)
	for i, kw := range keywords {
		g.Go(func() error {
			found, err := call(gctx, s.deps, "foreplay", "search_keyword", func(ctx context.Context) ([]foreplay.Advertiser, error) {
				return s.foreplay.SearchByKeyword(ctx, kw)
			})
			results[i] = found
			return err
		})
	}
	for j, domain := range domains {
		g.Go(func() error {
			found, err := call(gctx, s.deps, "foreplay", "search_domain", func(ctx context.Context) ([]foreplay.Advertiser, error) {
				return s.foreplay.SearchByDomain(ctx, domain)
			})
			results[len(keywords)+j] = found
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "ads: search")
	}

	var all []foreplay.Advertiser
	for _, r := range results {
		all = append(all, r...)
	}
	return RankAdvertisers(all, topAdvertisers), nil
}

// AdvertiserScore weights longevity over volume and engagement.
func AdvertiserScore(a foreplay.Advertiser) int {
	return int(math.Round(float64(a.DaysRunning)*2 + float64(a.AdCount) + a.EngagementScore*10))
}

// RankAdvertisers scores every advertiser and returns the best n, highest
// first. Ties keep their input order.
func RankAdvertisers(in []foreplay.Advertiser, n int) []model.Advertiser {
	out := make([]model.Advertiser, 0, len(in))
	for _, a := range in {
		ads := a.TopAds
		if len(ads) > topAdsPerAdvertiser {
			ads = ads[:topAdsPerAdvertiser]
		}
		top := make([]model.Ad, 0, len(ads))
		for _, ad := range ads {
			top = append(top, model.Ad{
				AdID:        ad.AdID,
				Headline:    ad.Headline,
				Body:        ad.Body,
				CTA:         ad.CTA,
				DaysRunning: ad.DaysRunning,
				ImageURL:    ad.ImageURL,
				Link:        ad.Link,
			})
		}
		out = append(out, model.Advertiser{
			AdvertiserName: orDefault(a.Name, "Unknown"),
			Domain:         a.Domain,
			Score:          AdvertiserScore(a),
			TopAds:         top,
			FunnelURL:      a.LandingPage,
			HasLeadMagnet:  a.HasLeadMagnet,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
