package model

import "time"

// BrandProfile is what BrandAnalysis learns about the submitted brand.
type BrandProfile struct {
	BrandName       string   `json:"brand_name" yaml:"brand_name"`
	URL             string   `json:"url" yaml:"url"`
	MetaDescription string   `json:"meta_description,omitempty" yaml:"meta_description,omitempty"`
	Industry        string   `json:"industry" yaml:"industry"`
	Niche           string   `json:"niche" yaml:"niche"`
	USP             []string `json:"usp" yaml:"usp"`
	FunnelType      string   `json:"funnel_type" yaml:"funnel_type"`
	Keywords        []string `json:"keywords" yaml:"keywords"`
}

// PrimaryKeyword returns the first keyword, or fallback when there is none.
func (b BrandProfile) PrimaryKeyword(fallback string) string {
	if len(b.Keywords) > 0 && b.Keywords[0] != "" {
		return b.Keywords[0]
	}
	return fallback
}

// Competitor is one brand competing for the same audience.
type Competitor struct {
	BrandName  string `json:"brand_name" yaml:"brand_name"`
	URL        string `json:"url" yaml:"url"`
	USP        string `json:"usp" yaml:"usp"`
	FunnelType string `json:"funnel_type" yaml:"funnel_type"`
	HasAds     bool   `json:"has_ads" yaml:"has_ads"`
}

// Ad is a single Meta ad creative.
type Ad struct {
	AdID        string `json:"ad_id" yaml:"ad_id"`
	Headline    string `json:"headline" yaml:"headline"`
	Body        string `json:"body" yaml:"body"`
	CTA         string `json:"cta" yaml:"cta"`
	DaysRunning int    `json:"days_running" yaml:"days_running"`
	ImageURL    string `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	Link        string `json:"link,omitempty" yaml:"link,omitempty"`
}

// Advertiser is a ranked Meta advertiser in the brand's niche.
type Advertiser struct {
	AdvertiserName string `json:"advertiser_name" yaml:"advertiser_name"`
	Domain         string `json:"domain" yaml:"domain"`
	Score          int    `json:"score" yaml:"score"`
	TopAds         []Ad   `json:"top_ads" yaml:"top_ads"`
	FunnelURL      string `json:"funnel_url" yaml:"funnel_url"`
	HasLeadMagnet  bool   `json:"has_lead_magnet" yaml:"has_lead_magnet"`
}

// Problem is one concrete complaint inside a pain-point category.
type Problem struct {
	Statement string `json:"statement" yaml:"statement"`
	Score     int    `json:"score" yaml:"score"`
}

// PainPoint is a cluster of customer complaints mined from social posts.
type PainPoint struct {
	Category     string    `json:"category" yaml:"category"`
	Count        int       `json:"count" yaml:"count"`
	ExampleQuote string    `json:"example_quote" yaml:"example_quote"`
	Problems     []Problem `json:"problems" yaml:"problems"`
}

// Trends summarizes the creative patterns in long-running ads.
type Trends struct {
	HeadlinePatterns []string `json:"headline_patterns" yaml:"headline_patterns"`
	VisualThemes     []string `json:"visual_themes" yaml:"visual_themes"`
	CTAStyles        []string `json:"cta_styles" yaml:"cta_styles"`
	HookTypes        []string `json:"hook_types" yaml:"hook_types"`
}

// Opportunity is a strategic gap the brand can exploit.
type Opportunity struct {
	Type           string `json:"type" yaml:"type"` // angle, design or funnel
	Title          string `json:"title" yaml:"title"`
	Description    string `json:"description" yaml:"description"`
	Implementation string `json:"implementation" yaml:"implementation"`
}

// AdConcept is a ready-to-produce static ad idea.
type AdConcept struct {
	HookType           string `json:"hook_type" yaml:"hook_type"`
	Headline           string `json:"headline" yaml:"headline"`
	BodyCopy           string `json:"body_copy" yaml:"body_copy"`
	CTA                string `json:"cta" yaml:"cta"`
	VisualDirection    string `json:"visual_direction" yaml:"visual_direction"`
	Rationale          string `json:"rationale" yaml:"rationale"`
	PainPointAddressed string `json:"pain_point_addressed" yaml:"pain_point_addressed"`
}

// ConceptCount is the number of ad concepts every brief carries.
const ConceptCount = 5

// Strategy is the generated half of the brief.
type Strategy struct {
	Trends        Trends        `json:"creative_trends" yaml:"creative_trends"`
	Opportunities []Opportunity `json:"opportunities" yaml:"opportunities"`
	Concepts      []AdConcept   `json:"ad_concepts" yaml:"ad_concepts"`
}

// Diagnostics is attached to the published brief for operators.
type Diagnostics struct {
	DebugErrors string `json:"debug_errors" yaml:"debug_errors"`
	APIStatus   string `json:"api_status" yaml:"api_status"`
}

// Brief is the assembled creative brief.
type Brief struct {
	Brand           BrandProfile  `json:"brand_overview" yaml:"brand_overview"`
	Competitors     []Competitor  `json:"competitors" yaml:"competitors"`
	MetaAdvertisers []Advertiser  `json:"meta_advertisers" yaml:"meta_advertisers"`
	RedditProblems  []PainPoint   `json:"reddit_problems" yaml:"reddit_problems"`
	Trends          Trends        `json:"creative_trends" yaml:"creative_trends"`
	Opportunities   []Opportunity `json:"opportunities" yaml:"opportunities"`
	Concepts        []AdConcept   `json:"ad_concepts" yaml:"ad_concepts"`
	Diagnostics     Diagnostics   `json:"diagnostics" yaml:"diagnostics"`
}

// Publication is where a brief ended up.
type Publication struct {
	URL         string `json:"url" yaml:"url"`
	Destination string `json:"destination" yaml:"destination"` // coda, notion or placeholder
}

// StageReport records how one pipeline stage went.
type StageReport struct {
	Name     string `json:"name" yaml:"name"`
	Degraded bool   `json:"degraded" yaml:"degraded"`
	Duration int64  `json:"duration_ms" yaml:"duration_ms"`
}

// BriefResult is the payload of a completed job.
type BriefResult struct {
	BriefURL    string        `json:"brief_url" yaml:"brief_url"`
	Destination string        `json:"destination" yaml:"destination"`
	BrandName   string        `json:"brand_name" yaml:"brand_name"`
	CompletedAt time.Time     `json:"completed_at" yaml:"completed_at"`
	Brief       Brief         `json:"brief" yaml:"brief"`
	Stages      []StageReport `json:"stages" yaml:"stages"`
}

// Degraded reports whether the named stage fell back to synthetic output.
func (r *BriefResult) Degraded(stage string) bool {
	for _, s := range r.Stages {
		if s.Name == stage {
			return s.Degraded
		}
	}
	return false
}
