package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pteargryphon/creative-brief-generator/internal/errlog"
	"github.com/pteargryphon/creative-brief-generator/internal/model"
	"github.com/pteargryphon/creative-brief-generator/pkg/jina"
	"github.com/pteargryphon/creative-brief-generator/pkg/perplexity"
)

const (
	maxCompetitors  = 5
	searchedQueries = 2
)

// CompetitorDiscovery finds up to five competitor sites by web search.
// Jina Search is the primary source; Perplexity citations are merged in
// after it when configured.
type CompetitorDiscovery struct {
	deps       Deps
	search     jina.Client
	perplexity perplexity.Client
}

// NewCompetitorDiscovery wires the stage. Either client may be nil, but not both.
func NewCompetitorDiscovery(d Deps, search jina.Client, pplx perplexity.Client) *CompetitorDiscovery {
	return &CompetitorDiscovery{deps: d, search: search, perplexity: pplx}
}

func (s *CompetitorDiscovery) Name() string { return NameCompetitorDiscovery }

func (s *CompetitorDiscovery) Execute(ctx context.Context, st State) Result[[]model.Competitor] {
	return guard(ctx, s.deps, s.Name(), st, s.run, FallbackCompetitors)
}

// CompetitorQueries builds the search phrases for a brand, most specific first.
func CompetitorQueries(b model.BrandProfile) []string {
	main := b.PrimaryKeyword(b.Niche)
	return []string{
		fmt.Sprintf("%s brands like %s", b.Niche, b.BrandName),
		fmt.Sprintf("best %s %s companies", main, b.Industry),
		fmt.Sprintf("%s alternatives competitors", b.BrandName),
	}
}

type searchHit struct {
	title       string
	url         string
	description string
}

func (s *CompetitorDiscovery) run(ctx context.Context, st State) ([]model.Competitor, error) {
	if s.search == nil && s.perplexity == nil {
		return nil, eris.Wrap(errlog.ErrMissingCredential, "jina")
	}

	queries := CompetitorQueries(st.Brand)[:searchedQueries]

	// One slot per source so the merge order is fixed regardless of which
	// search finishes first.
	slots := make([][]searchHit, searchedQueries+1)
	errs := make([]error, searchedQueries+1)

	g, gctx := errgroup.WithContext(ctx)
	if s.search != nil {
		for i, q := range queries {
			g.Go(func() error {
				slots[i], errs[i] = s.searchJina(gctx, q)
				return nil
			})
		}
	}
	if s.perplexity != nil {
		g.Go(func() error {
			slots[searchedQueries], errs[searchedQueries] = s.searchPerplexity(gctx, st.Brand)
			return nil
		})
	}
	_ = g.Wait()

	var hits []searchHit
	var firstErr error
	succeeded := 0
	for i := range slots {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			zap.L().Debug("competitor search source failed", zap.Int("source", i), zap.Error(errs[i]))
			continue
		}
		if slots[i] != nil {
			succeeded++
		}
		hits = append(hits, slots[i]...)
	}
	if succeeded == 0 && firstErr != nil {
		return nil, eris.Wrap(firstErr, "competitors: search")
	}

	return pickCompetitors(hits, BareHost(NormalizeURL(st.URL))), nil
}

func (s *CompetitorDiscovery) searchJina(ctx context.Context, query string) ([]searchHit, error) {
	resp, err := call(ctx, s.deps, "jina", "search", func(ctx context.Context) (*jina.SearchResponse, error) {
		return s.search.Search(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	hits := make([]searchHit, 0, len(resp.Data))
	for _, r := range resp.Data {
		hits = append(hits, searchHit{title: r.Title, url: r.URL, description: r.Description})
	}
	return hits, nil
}

func (s *CompetitorDiscovery) searchPerplexity(ctx context.Context, b model.BrandProfile) ([]searchHit, error) {
	temp := 0.2
	req := perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "system", Content: "You research consumer brands. Answer briefly and cite the competitors' own websites."},
			{Role: "user", Content: fmt.Sprintf("List %d direct competitors of %s (%s), a %s brand in %s.",
				maxCompetitors, b.BrandName, b.URL, b.Niche, b.Industry)},
		},
		Temperature: &temp,
	}
	resp, err := call(ctx, s.deps, "perplexity", "competitors", func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
		return s.perplexity.ChatCompletion(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	titles := make(map[string]string, len(resp.SearchResults))
	for _, r := range resp.SearchResults {
		titles[r.URL] = r.Title
	}
	urls := resp.SourceURLs()
	hits := make([]searchHit, 0, len(urls))
	for _, u := range urls {
		title := titles[u]
		if title == "" {
			title = BrandNameFromTitle("", Host(u))
		}
		hits = append(hits, searchHit{title: title, url: u})
	}
	return hits, nil
}

// pickCompetitors drops the brand's own site, keeps the first hit per host
// and stops at maxCompetitors.
func pickCompetitors(hits []searchHit, ownHost string) []model.Competitor {
	seen := map[string]bool{ownHost: true}
	out := make([]model.Competitor, 0, maxCompetitors)
	for _, h := range hits {
		if strings.TrimSpace(h.url) == "" {
			continue
		}
		host := BareHost(h.url)
		if host == "" || seen[host] {
			continue
		}
		seen[host] = true
		out = append(out, model.Competitor{
			BrandName:  orDefault(h.title, "Unknown"),
			URL:        siteRoot(h.url),
			USP:        orDefault(h.description, "To be analyzed"),
			FunnelType: "Unknown",
			HasAds:     true,
		})
		if len(out) == maxCompetitors {
			break
		}
	}
	return out
}
