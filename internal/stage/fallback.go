package stage

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pteargryphon/creative-brief-generator/internal/model"
)

// Fallback generators. Each depends only on its inputs, so a degraded
// stage produces the same output for the same state every time.

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// FallbackBrand derives a minimal profile from the submitted URL.
func FallbackBrand(st State) model.BrandProfile {
	target := NormalizeURL(st.URL)
	host := Host(target)
	return model.BrandProfile{
		BrandName:  host,
		URL:        target,
		Industry:   "Unknown",
		Niche:      "Unknown",
		USP:        []string{"Unable to determine"},
		FunnelType: "Unknown",
		Keywords:   []string{strings.ReplaceAll(host, ".com", "")},
	}
}

// FallbackCompetitors returns five synthetic competitors shaped after the
// brand's niche and industry.
func FallbackCompetitors(st State) []model.Competitor {
	niche := orDefault(st.Brand.Niche, "products")
	industry := orDefault(st.Brand.Industry, "general")
	n, ind := titleCase(niche), titleCase(industry)

	return []model.Competitor{
		{
			BrandName:  fmt.Sprintf("Premium %s Co", n),
			URL:        "https://example-competitor1.com",
			USP:        fmt.Sprintf("Leading provider of %s solutions with focus on quality", niche),
			FunnelType: "lead_magnet",
			HasAds:     true,
		},
		{
			BrandName:  fmt.Sprintf("%s Direct", ind),
			URL:        "https://example-competitor2.com",
			USP:        fmt.Sprintf("Direct-to-consumer %s brand with competitive pricing", industry),
			FunnelType: "direct_purchase",
			HasAds:     true,
		},
		{
			BrandName:  fmt.Sprintf("Quick %s", n),
			URL:        "https://example-competitor3.com",
			USP:        fmt.Sprintf("Fast and affordable %s services", niche),
			FunnelType: "quiz",
			HasAds:     false,
		},
		{
			BrandName:  fmt.Sprintf("%s Pro", n),
			URL:        "https://example-competitor4.com",
			USP:        fmt.Sprintf("Professional-grade %s for serious users", niche),
			FunnelType: "free_trial",
			HasAds:     true,
		},
		{
			BrandName:  fmt.Sprintf("The %s Store", n),
			URL:        "https://example-competitor5.com",
			USP:        fmt.Sprintf("One-stop shop for all %s needs", niche),
			FunnelType: "direct_purchase",
			HasAds:     true,
		},
	}
}

const placeholderImage = "https://via.placeholder.com/1200x628"

// FallbackAdvertisers returns three synthetic advertisers built around the
// brand's primary keyword.
func FallbackAdvertisers(st State) []model.Advertiser {
	keyword := st.Brand.PrimaryKeyword("product")
	k := titleCase(keyword)

	ad := func(id, headline, body, cta string, days int, link string) model.Ad {
		return model.Ad{AdID: id, Headline: headline, Body: body, CTA: cta, DaysRunning: days, ImageURL: placeholderImage, Link: link}
	}

	return []model.Advertiser{
		{
			AdvertiserName: fmt.Sprintf("Top %s Brand", k),
			Domain:         "topbrand.com",
			Score:          950,
			TopAds: []model.Ad{
				ad("1001", fmt.Sprintf("Revolutionary %s - 50%% Off Today Only", k), fmt.Sprintf("Discover why thousands are switching to our %s...", keyword), "Shop Now", 145, "https://topbrand.com/offer"),
				ad("1002", fmt.Sprintf("The %s That Changed Everything", k), "See the before and after results that shocked everyone...", "Learn More", 89, "https://topbrand.com/testimonials"),
				ad("1003", fmt.Sprintf("Why Doctors Recommend This %s", k), "3 reasons medical professionals choose our solution...", "Get Free Guide", 67, "https://topbrand.com/guide"),
			},
			FunnelURL:     "https://topbrand.com/quiz",
			HasLeadMagnet: true,
		},
		{
			AdvertiserName: fmt.Sprintf("Premium %s Co", k),
			Domain:         "premiumco.com",
			Score:          780,
			TopAds: []model.Ad{
				ad("2001", fmt.Sprintf("This %s Trick Will Blow Your Mind", k), "One simple change that makes all the difference...", "See How", 203, "https://premiumco.com/secret"),
				ad("2002", fmt.Sprintf("Get Your First %s Free", k), "Limited time offer for new customers only...", "Claim Yours", 156, "https://premiumco.com/free-trial"),
			},
			FunnelURL:     "https://premiumco.com/vsl",
			HasLeadMagnet: false,
		},
		{
			AdvertiserName: fmt.Sprintf("%s Direct", k),
			Domain:         "direct.com",
			Score:          650,
			TopAds: []model.Ad{
				ad("3001", fmt.Sprintf("%s Sale Ends Tonight", k), "Don't miss out on our biggest discount of the year...", "Shop Sale", 45, "https://direct.com/sale"),
				ad("3002", fmt.Sprintf("Compare Our %s to Others", k), "See why we consistently rank #1 in quality...", "View Comparison", 112, "https://direct.com/compare"),
			},
			FunnelURL:     "https://direct.com/shop",
			HasLeadMagnet: true,
		},
	}
}

// FallbackPainPoints returns five fixed complaint categories templated with
// the brand's primary keyword, or its niche when there is none.
func FallbackPainPoints(st State) []model.PainPoint {
	topic := st.Brand.PrimaryKeyword(orDefault(st.Brand.Niche, "this product"))

	problems := func(pairs ...any) []model.Problem {
		out := make([]model.Problem, 0, len(pairs)/2)
		for i := 0; i+1 < len(pairs); i += 2 {
			out = append(out, model.Problem{Statement: pairs[i].(string), Score: pairs[i+1].(int)})
		}
		return out
	}

	return []model.PainPoint{
		{
			Category:     "User Experience",
			Count:        52,
			ExampleQuote: fmt.Sprintf("The %s interface is confusing and hard to navigate", topic),
			Problems:     problems(fmt.Sprintf("%s UI needs improvement", topic), 342, "Too complex for new users", 289, "Steep learning curve", 234),
		},
		{
			Category:     "Performance Issues",
			Count:        41,
			ExampleQuote: fmt.Sprintf("Why does %s crash so often?", topic),
			Problems:     problems("Frequent crashes and bugs", 298, "Slow loading times", 256, "Sync problems", 198),
		},
		{
			Category:     "Pricing Concerns",
			Count:        38,
			ExampleQuote: fmt.Sprintf("The pricing for %s is getting ridiculous", topic),
			Problems:     problems("Too expensive for small businesses", 267, "Hidden fees and charges", 223, "Poor value for money", 187),
		},
		{
			Category:     "Feature Limitations",
			Count:        29,
			ExampleQuote: fmt.Sprintf("I wish %s had better integration options", topic),
			Problems:     problems("Missing key features", 212, "Poor third-party integrations", 178, "Limited customization options", 156),
		},
		{
			Category:     "Customer Support",
			Count:        24,
			ExampleQuote: "Support is basically non-existent",
			Problems:     problems("Slow response times", 189, "Unhelpful documentation", 167, "No live chat option", 134),
		},
	}
}

// DefaultTrends is used when there are no ads to analyze.
func DefaultTrends() model.Trends {
	return model.Trends{
		HeadlinePatterns: []string{
			"Problem-agitation headlines focusing on pain points",
			"Social proof with specific numbers/statistics",
			`Curiosity-driven "secret" or "trick" angles`,
			"Time-sensitive urgency with limited offers",
			"Transformation/before-after narratives",
		},
		VisualThemes: []string{
			"Before/after comparison imagery",
			"Lifestyle shots showing desired outcome",
			"Product close-ups with key features",
			"User-generated content and testimonials",
			"Bold text overlays on gradient backgrounds",
		},
		CTAStyles: []string{
			"Direct action: Shop Now, Get Started",
			"Value-focused: Claim Your Discount, Get 50% Off",
			"Curiosity: Learn More, See How",
			"Urgency: Limited Time, While Supplies Last",
			"Free value: Get Free Guide, Try Free",
		},
		HookTypes: []string{
			"Problem identification hooks",
			"Statistical/data hooks",
			"Story-based emotional hooks",
			"Question hooks that create curiosity",
			"Comparison hooks showing superiority",
		},
	}
}

// DefaultOpportunities returns one angle, one design and one funnel opportunity.
func DefaultOpportunities() []model.Opportunity {
	return []model.Opportunity{
		{
			Type:           "angle",
			Title:          "Underserved Pain Point Angle",
			Description:    "Competitors focus on features while customers care about specific outcomes",
			Implementation: "Create ads that directly address the #1 customer frustration with clear solutions",
		},
		{
			Type:           "design",
			Title:          "Visual Differentiation Opportunity",
			Description:    "Most competitors use similar stock imagery and color schemes",
			Implementation: "Develop unique visual identity with custom illustrations or authentic user photos",
		},
		{
			Type:           "funnel",
			Title:          "Interactive Funnel Innovation",
			Description:    "Direct purchase funnels dominate but customers want education first",
			Implementation: "Implement quiz or calculator funnel to provide personalized recommendations",
		},
	}
}

var defaultConcepts = []model.AdConcept{
	{
		HookType:           "problem",
		Headline:           "Still Struggling With [Problem]? You're Not Alone",
		BodyCopy:           "Join thousands who finally found relief with our proven solution. See real results in days, not months.",
		CTA:                "Discover The Solution",
		VisualDirection:    "Split image showing frustrated person transforming to happy/relieved",
		Rationale:          "Acknowledges pain point and offers hope with social proof",
		PainPointAddressed: "Feeling alone in their struggle",
	},
	{
		HookType:           "statistic",
		Headline:           "87% of Users See Results in Just 14 Days",
		BodyCopy:           "Clinical studies prove our method works faster than anything else on the market. Try it risk-free.",
		CTA:                "Start Your Trial",
		VisualDirection:    "Clean infographic showing impressive statistics with product shot",
		Rationale:          "Uses specific data to build credibility and set expectations",
		PainPointAddressed: "Skepticism about effectiveness",
	},
	{
		HookType:           "story",
		Headline:           "How Sarah Finally Overcame [Problem] After 10 Years",
		BodyCopy:           "Her secret? A simple 5-minute routine that changed everything. Get her exact method free.",
		CTA:                "Get The Free Guide",
		VisualDirection:    "Authentic photo of relatable person with quote overlay",
		Rationale:          "Personal story creates emotional connection and curiosity",
		PainPointAddressed: "Long-term suffering without solution",
	},
	{
		HookType:           "question",
		Headline:           "What If You Could [Desired Outcome] in Half the Time?",
		BodyCopy:           "Our revolutionary approach is helping people achieve what usually takes months in just weeks.",
		CTA:                "Learn How",
		VisualDirection:    "Time-lapse or clock imagery showing accelerated progress",
		Rationale:          "Plants possibility and appeals to desire for faster results",
		PainPointAddressed: "Frustration with slow progress",
	},
	{
		HookType:           "comparison",
		Headline:           "Why Smart Shoppers Choose Us Over [Competitor]",
		BodyCopy:           "Better quality, lower price, and a guarantee that actually means something. See the difference.",
		CTA:                "Compare Now",
		VisualDirection:    "Side-by-side comparison chart or versus imagery",
		Rationale:          "Positions as superior choice for informed buyers",
		PainPointAddressed: "Confusion about best option",
	},
}

// DefaultConcept returns the i-th template concept; out-of-range indexes
// wrap to the first.
func DefaultConcept(i int) model.AdConcept {
	if i < 0 || i >= len(defaultConcepts) {
		return defaultConcepts[0]
	}
	return defaultConcepts[i]
}

// DefaultConcepts returns all five template concepts.
func DefaultConcepts() []model.AdConcept {
	out := make([]model.AdConcept, len(defaultConcepts))
	copy(out, defaultConcepts)
	return out
}

// FallbackStrategy is the fully templated strategy.
func FallbackStrategy(State) model.Strategy {
	return model.Strategy{
		Trends:        DefaultTrends(),
		Opportunities: DefaultOpportunities(),
		Concepts:      DefaultConcepts(),
	}
}

// PlaceholderURL is the link reported when publishing failed.
func PlaceholderURL(at time.Time) string {
	return "https://coda.io/d/Creative-Brief_mock_" + at.Format("20060102_150405")
}
