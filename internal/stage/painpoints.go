package stage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/pteargryphon/creative-brief-generator/internal/errlog"
	"github.com/pteargryphon/creative-brief-generator/internal/model"
	"github.com/pteargryphon/creative-brief-generator/pkg/apify"
)

const (
	painPointCategories = 5
	promptPosts         = 40
	postChars           = 400
	defaultRedditItems  = 50

	painPointSystemPrompt = "You analyze customer conversations for advertisers. Respond with a JSON array only."
)

// PainPointMining scrapes Reddit discussions and clusters the complaints
// into pain-point categories.
type PainPointMining struct {
	deps     Deps
	apify    apify.Client
	llm      *LLM
	maxItems int
}

// NewPainPointMining wires the stage. maxItems caps scraped posts; zero uses
// the default.
func NewPainPointMining(d Deps, scraper apify.Client, llm *LLM, maxItems int) *PainPointMining {
	if maxItems <= 0 {
		maxItems = defaultRedditItems
	}
	return &PainPointMining{deps: d, apify: scraper, llm: llm, maxItems: maxItems}
}

func (s *PainPointMining) Name() string { return NamePainPointMining }

func (s *PainPointMining) Execute(ctx context.Context, st State) Result[[]model.PainPoint] {
	return guard(ctx, s.deps, s.Name(), st, s.run, FallbackPainPoints)
}

func (s *PainPointMining) run(ctx context.Context, st State) ([]model.PainPoint, error) {
	if s.apify == nil {
		return nil, eris.Wrap(errlog.ErrMissingCredential, "apify")
	}
	if err := s.llm.available(); err != nil {
		return nil, err
	}

	queries := st.Brand.Keywords
	if len(queries) > 3 {
		queries = queries[:3]
	}
	if len(queries) == 0 && st.Brand.Niche != "" {
		queries = []string{st.Brand.Niche}
	}
	if len(queries) == 0 {
		return nil, eris.New("painpoints: no search terms")
	}

	posts, err := call(ctx, s.deps, "apify", "reddit", func(ctx context.Context) ([]apify.RedditPost, error) {
		return s.apify.SearchReddit(ctx, queries, s.maxItems)
	})
	if err != nil {
		return nil, eris.Wrap(err, "painpoints: scrape reddit")
	}
	if len(posts) == 0 {
		return nil, eris.Errorf("painpoints: no reddit posts for %q", strings.Join(queries, ", "))
	}

	var clusters []model.PainPoint
	prompt := painPointPrompt(st.Brand, queries, posts)
	if err := s.llm.completeJSON(ctx, s.deps, s.Name(), painPointSystemPrompt, prompt, 0.5, &clusters); err != nil {
		return nil, eris.Wrap(err, "painpoints: cluster")
	}

	out := make([]model.PainPoint, 0, painPointCategories)
	for _, p := range clusters {
		if strings.TrimSpace(p.Category) == "" {
			continue
		}
		out = append(out, p)
		if len(out) == painPointCategories {
			break
		}
	}
	if len(out) == 0 {
		return nil, eris.New("painpoints: model returned no categories")
	}
	return out, nil
}

// painPointPrompt lists the most upvoted posts for the model to cluster.
func painPointPrompt(b model.BrandProfile, queries []string, posts []apify.RedditPost) string {
	ranked := make([]apify.RedditPost, len(posts))
	copy(ranked, posts)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].UpVotes > ranked[j].UpVotes })
	if len(ranked) > promptPosts {
		ranked = ranked[:promptPosts]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Niche: %s\nKeywords: %s\n\nReddit posts:\n", b.Niche, strings.Join(queries, ", "))
	for i, p := range ranked {
		fmt.Fprintf(&sb, "%d. [r/%s, %d upvotes] %s\n", i+1, p.Community, p.UpVotes,
			strings.ReplaceAll(truncate(p.Text(), postChars), "\n", " "))
	}
	fmt.Fprintf(&sb, `
Group the complaints in these posts into the top %d customer pain point categories.
Return a JSON array. Each element must have:
- category: short category name
- count: how many posts mention it
- example_quote: a representative quote from the posts
- problems: array of 3 objects {"statement": specific problem, "score": combined upvotes}`, painPointCategories)
	return sb.String()
}
