package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/pteargryphon/creative-brief-generator/internal/errlog"
	"github.com/pteargryphon/creative-brief-generator/internal/model"
	"github.com/pteargryphon/creative-brief-generator/pkg/jina"
)

const brandSystemPrompt = "You are a marketing analyst. Respond with valid JSON only."

// titleSeparators split a page title into brand and tagline.
var titleSeparators = []string{" - ", " | ", " — ", " · "}

// BrandAnalysis reads the brand's homepage and profiles it.
type BrandAnalysis struct {
	deps Deps
	jina jina.Client
	llm  *LLM
}

// NewBrandAnalysis wires the stage. A nil client means the credential is missing.
func NewBrandAnalysis(d Deps, reader jina.Client, llm *LLM) *BrandAnalysis {
	return &BrandAnalysis{deps: d, jina: reader, llm: llm}
}

func (s *BrandAnalysis) Name() string { return NameBrandAnalysis }

func (s *BrandAnalysis) Execute(ctx context.Context, st State) Result[model.BrandProfile] {
	return guard(ctx, s.deps, s.Name(), st, s.run, FallbackBrand)
}

type brandAnalysis struct {
	Industry   string     `json:"industry"`
	Niche      string     `json:"niche"`
	USP        stringList `json:"usp"`
	FunnelType string     `json:"funnel_type"`
	Keywords   stringList `json:"keywords"`
}

func (s *BrandAnalysis) run(ctx context.Context, st State) (model.BrandProfile, error) {
	target := NormalizeURL(st.URL)
	if s.jina == nil {
		return model.BrandProfile{}, eris.Wrap(errlog.ErrMissingCredential, "jina")
	}
	if err := s.llm.available(); err != nil {
		return model.BrandProfile{}, err
	}

	page, err := call(ctx, s.deps, "jina", "read", func(ctx context.Context) (*jina.ReadResponse, error) {
		return s.jina.Read(ctx, target)
	})
	if err != nil {
		return model.BrandProfile{}, eris.Wrap(err, "brand: read homepage")
	}

	prompt := fmt.Sprintf(`Analyze this brand website and extract the following information:

URL: %s
Meta Description: %s
Website Content: %s

Provide a JSON object with:
1. industry - the primary industry (e.g. "e-commerce", "SaaS", "healthcare")
2. niche - the specific niche within the industry
3. usp - array of 3-5 unique selling propositions
4. funnel_type - one of "direct_purchase", "lead_magnet", "quiz", "vsl", "free_trial", "demo_request", "other"
5. keywords - array of 5-10 keywords for finding competitors and ads`,
		target, page.Data.Description, truncate(page.Data.Content, 2000))

	var a brandAnalysis
	if err := s.llm.completeJSON(ctx, s.deps, s.Name(), brandSystemPrompt, prompt, 0.7, &a); err != nil {
		return model.BrandProfile{}, eris.Wrap(err, "brand: analyze")
	}

	host := Host(target)
	profile := model.BrandProfile{
		BrandName:       BrandNameFromTitle(page.Data.Title, host),
		URL:             target,
		MetaDescription: page.Data.Description,
		Industry:        orDefault(a.Industry, "Unknown"),
		Niche:           orDefault(a.Niche, "Unknown"),
		USP:             a.USP,
		FunnelType:      orDefault(a.FunnelType, "Unknown"),
		Keywords:        a.Keywords,
	}
	if len(profile.USP) == 0 {
		profile.USP = []string{"Unable to determine"}
	}
	if len(profile.Keywords) == 0 {
		profile.Keywords = []string{strings.ReplaceAll(host, ".com", "")}
	}
	return profile, nil
}

// BrandNameFromTitle takes the part of a page title before the first
// separator. Without a usable title the first label of host is used.
func BrandNameFromTitle(title, host string) string {
	title = strings.TrimSpace(title)
	if title != "" {
		for _, sep := range titleSeparators {
			if i := strings.Index(title, sep); i > 0 {
				return strings.TrimSpace(title[:i])
			}
		}
		return title
	}
	label := strings.TrimPrefix(strings.ToLower(host), "www.")
	if i := strings.Index(label, "."); i > 0 {
		label = label[:i]
	}
	return titleCase(label)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
