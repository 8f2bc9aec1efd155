package stage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/pteargryphon/creative-brief-generator/internal/model"
)

const opportunityCount = 3

// StrategySynthesis turns the research into creative trends, strategic
// opportunities and five ad concepts.
type StrategySynthesis struct {
	deps Deps
	llm  *LLM
}

// NewStrategySynthesis wires the stage.
func NewStrategySynthesis(d Deps, llm *LLM) *StrategySynthesis {
	return &StrategySynthesis{deps: d, llm: llm}
}

func (s *StrategySynthesis) Name() string { return NameStrategySynthesis }

func (s *StrategySynthesis) Execute(ctx context.Context, st State) Result[model.Strategy] {
	return guard(ctx, s.deps, s.Name(), st, s.run, FallbackStrategy)
}

func (s *StrategySynthesis) run(ctx context.Context, st State) (model.Strategy, error) {
	if err := s.llm.available(); err != nil {
		return model.Strategy{}, err
	}

	trends, err := s.trends(ctx, st.Advertisers)
	if err != nil {
		return model.Strategy{}, eris.Wrap(err, "strategy: trends")
	}
	opps, err := s.opportunities(ctx, st)
	if err != nil {
		return model.Strategy{}, eris.Wrap(err, "strategy: opportunities")
	}
	concepts, err := s.concepts(ctx, st, trends, opps)
	if err != nil {
		return model.Strategy{}, eris.Wrap(err, "strategy: concepts")
	}
	return model.Strategy{Trends: trends, Opportunities: opps, Concepts: concepts}, nil
}

type adSummary struct {
	Headline    string `json:"headline"`
	Body        string `json:"body"`
	CTA         string `json:"cta"`
	DaysRunning int    `json:"days_running"`
}

func (s *StrategySynthesis) trends(ctx context.Context, advertisers []model.Advertiser) (model.Trends, error) {
	if len(advertisers) == 0 {
		return DefaultTrends(), nil
	}

	var ads []adSummary
	for i, a := range advertisers {
		if i == 3 {
			break
		}
		for j, ad := range a.TopAds {
			if j == 3 {
				break
			}
			ads = append(ads, adSummary{Headline: ad.Headline, Body: ad.Body, CTA: ad.CTA, DaysRunning: ad.DaysRunning})
		}
	}
	if len(ads) == 0 {
		return DefaultTrends(), nil
	}

	prompt := fmt.Sprintf(`Analyze these top-performing Meta ads and identify creative trends:

Ads Data:
%s

Provide a JSON object with:
1. headline_patterns - array of 3-5 common headline patterns
2. visual_themes - array of 3-5 common visual themes
3. cta_styles - array of 3-5 effective CTA approaches
4. hook_types - array of 3-5 successful hook strategies

Focus on patterns that appear in long-running ads.`, jsonText(ads))

	var t model.Trends
	if err := s.llm.completeJSON(ctx, s.deps, s.Name(),
		"You are a creative strategist analyzing ad trends. Respond with valid JSON only.", prompt, 0.7, &t); err != nil {
		return model.Trends{}, err
	}

	def := DefaultTrends()
	if len(t.HeadlinePatterns) == 0 {
		t.HeadlinePatterns = def.HeadlinePatterns
	}
	if len(t.VisualThemes) == 0 {
		t.VisualThemes = def.VisualThemes
	}
	if len(t.CTAStyles) == 0 {
		t.CTAStyles = def.CTAStyles
	}
	if len(t.HookTypes) == 0 {
		t.HookTypes = def.HookTypes
	}
	return t, nil
}

func (s *StrategySynthesis) opportunities(ctx context.Context, st State) ([]model.Opportunity, error) {
	var funnels []string
	for i, c := range st.Competitors {
		if i == 3 {
			break
		}
		funnels = append(funnels, c.FunnelType)
	}

	prompt := fmt.Sprintf(`Based on this competitive analysis, identify strategic opportunities:

Brand: %s
Industry: %s
Niche: %s
Current USP: %s

Competitors: %d analyzed
Common funnel types: %s

Top Reddit Problems:
%s

Provide a JSON array with exactly 3 opportunities:
[{"type": "angle|design|funnel", "title": "...", "description": "...", "implementation": "..."}]

Focus on gaps in the current market that align with customer pain points.`,
		st.Brand.BrandName, st.Brand.Industry, st.Brand.Niche, jsonText(st.Brand.USP),
		len(st.Competitors), jsonText(funnels), jsonText(topQuotes(st.PainPoints, 3)))

	var opps []model.Opportunity
	if err := s.llm.completeJSON(ctx, s.deps, s.Name(),
		"You are a strategic marketing consultant. Respond with valid JSON only.", prompt, 0.8, &opps); err != nil {
		return nil, err
	}
	return fitOpportunities(opps), nil
}

func (s *StrategySynthesis) concepts(ctx context.Context, st State, trends model.Trends, opps []model.Opportunity) ([]model.AdConcept, error) {
	titles := make([]string, 0, len(opps))
	for _, o := range opps {
		titles = append(titles, o.Title)
	}
	patterns := trends.HeadlinePatterns
	if len(patterns) > 3 {
		patterns = patterns[:3]
	}

	prompt := fmt.Sprintf(`Generate 5 unique static ad concepts for this brand:

Brand: %s
Industry: %s
Niche: %s
USP: %s

Top Customer Pain Points:
%s

Strategic Opportunities:
%s

Current Trends to Consider:
%s

Return a JSON array of exactly 5 objects with the keys hook_type (problem, solution, story,
comparison, question or statistic), headline, body_copy, cta, visual_direction, rationale and
pain_point_addressed. Make each concept unique.`,
		st.Brand.BrandName, st.Brand.Industry, st.Brand.Niche, jsonText(st.Brand.USP),
		jsonText(topQuotes(st.PainPoints, 3)), jsonText(titles), jsonText(patterns))

	var concepts []model.AdConcept
	if err := s.llm.completeJSON(ctx, s.deps, s.Name(),
		"You are an expert copywriter creating high-converting ad concepts. Respond with valid JSON only.", prompt, 0.9, &concepts); err != nil {
		return nil, err
	}
	return FitConcepts(concepts), nil
}

// FitConcepts truncates to five concepts or pads with the templates.
func FitConcepts(in []model.AdConcept) []model.AdConcept {
	if len(in) >= model.ConceptCount {
		return in[:model.ConceptCount]
	}
	out := make([]model.AdConcept, len(in), model.ConceptCount)
	copy(out, in)
	for i := 0; len(out) < model.ConceptCount; i++ {
		out = append(out, DefaultConcept(i))
	}
	return out
}

func fitOpportunities(in []model.Opportunity) []model.Opportunity {
	if len(in) >= opportunityCount {
		return in[:opportunityCount]
	}
	def := DefaultOpportunities()
	out := make([]model.Opportunity, len(in), opportunityCount)
	copy(out, in)
	for i := len(in); i < opportunityCount; i++ {
		out = append(out, def[i])
	}
	return out
}

func topQuotes(points []model.PainPoint, n int) []string {
	out := make([]string, 0, n)
	for _, p := range points {
		if len(out) == n {
			break
		}
		out = append(out, p.ExampleQuote)
	}
	return out
}

func jsonText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}
