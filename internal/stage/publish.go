package stage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pteargryphon/creative-brief-generator/internal/errlog"
	"github.com/pteargryphon/creative-brief-generator/internal/model"
	"github.com/pteargryphon/creative-brief-generator/pkg/coda"
	"github.com/pteargryphon/creative-brief-generator/pkg/notion"
)

// Publish destinations.
const (
	DestinationCoda        = "coda"
	DestinationNotion      = "notion"
	DestinationPlaceholder = "placeholder"
)

// Publisher writes a finished brief somewhere a human can open it.
type Publisher interface {
	// Destination names the service, also used as its breaker key.
	Destination() string
	Publish(ctx context.Context, brief model.Brief) (model.Publication, error)
}

// Publish hands the assembled brief to a Publisher. Documents are not
// idempotent, so the publisher is attempted once.
type Publish struct {
	deps      Deps
	publisher Publisher
	now       func() time.Time
}

// NewPublish wires the stage. A nil now uses time.Now.
func NewPublish(d Deps, p Publisher, now func() time.Time) *Publish {
	if now == nil {
		now = time.Now
	}
	return &Publish{deps: d, publisher: p, now: now}
}

func (s *Publish) Name() string { return NamePublish }

func (s *Publish) Execute(ctx context.Context, st State) Result[model.Publication] {
	return guard(ctx, s.deps, s.Name(), st, s.run, s.fallback)
}

func (s *Publish) run(ctx context.Context, st State) (model.Publication, error) {
	if s.publisher == nil {
		return model.Publication{}, eris.Wrap(errlog.ErrMissingCredential, "publish")
	}
	d := s.deps
	d.Policy.MaxAttempts = 1
	return call(ctx, d, s.publisher.Destination(), "publish", func(ctx context.Context) (model.Publication, error) {
		return s.publisher.Publish(ctx, st.Brief())
	})
}

func (s *Publish) fallback(State) model.Publication {
	return model.Publication{URL: PlaceholderURL(s.now()), Destination: DestinationPlaceholder}
}

// BriefTitle names the published document.
func BriefTitle(brand string, at time.Time) string {
	return fmt.Sprintf("Creative Brief - %s - %s", brand, at.Format("2006-01-02"))
}

// CodaPublisher creates one Coda doc per brief, copied from a template doc
// whose tables match the brief sections.
type CodaPublisher struct {
	client        coda.Client
	templateDocID string
	folderID      string
	now           func() time.Time
}

// NewCodaPublisher returns a publisher for client. A nil client means the
// token is missing.
func NewCodaPublisher(client coda.Client, templateDocID, folderID string, now func() time.Time) *CodaPublisher {
	if now == nil {
		now = time.Now
	}
	return &CodaPublisher{client: client, templateDocID: templateDocID, folderID: folderID, now: now}
}

func (p *CodaPublisher) Destination() string { return DestinationCoda }

// Publish creates the doc and fills its tables. A table that cannot be
// written is logged and skipped; only doc creation failures are errors.
func (p *CodaPublisher) Publish(ctx context.Context, brief model.Brief) (model.Publication, error) {
	if p.client == nil {
		return model.Publication{}, eris.Wrap(errlog.ErrMissingCredential, "coda")
	}

	doc, err := p.client.CreateDoc(ctx, coda.CreateDocRequest{
		Title:     BriefTitle(brief.Brand.BrandName, p.now()),
		SourceDoc: p.templateDocID,
		FolderID:  p.folderID,
	})
	if err != nil {
		return model.Publication{}, eris.Wrap(err, "publish: create coda doc")
	}

	log := zap.L().With(zap.String("doc_id", doc.ID))
	for _, t := range codaTables(brief) {
		if err := p.client.InsertRows(ctx, doc.ID, t.name, t.rows); err != nil {
			log.Warn("coda: skipping table", zap.String("table", t.name), zap.Error(err))
		}
	}

	link := doc.BrowserLink
	if fresh, err := p.client.GetDoc(ctx, doc.ID); err == nil && fresh.BrowserLink != "" {
		link = fresh.BrowserLink
	} else if err != nil {
		log.Debug("coda: get doc failed, using create response", zap.Error(err))
	}
	if link == "" {
		link = "https://coda.io/d/" + doc.ID
	}
	return model.Publication{URL: link, Destination: DestinationCoda}, nil
}

type codaTable struct {
	name string
	rows []coda.Row
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func codaTables(b model.Brief) []codaTable {
	overview := []coda.Row{
		{"Field": "Brand Name", "Value": b.Brand.BrandName},
		{"Field": "Website", "Value": b.Brand.URL},
		{"Field": "Industry", "Value": b.Brand.Industry},
		{"Field": "Niche", "Value": b.Brand.Niche},
		{"Field": "USP", "Value": strings.Join(b.Brand.USP, ", ")},
		{"Field": "Funnel Type", "Value": b.Brand.FunnelType},
		{"Field": "Keywords", "Value": strings.Join(b.Brand.Keywords, ", ")},
	}

	var competitors []coda.Row
	for _, c := range b.Competitors {
		competitors = append(competitors, coda.Row{
			"Brand": c.BrandName, "URL": c.URL, "USP": c.USP, "Funnel Type": c.FunnelType, "Has Ads": yesNo(c.HasAds),
		})
	}

	var advertisers []coda.Row
	for _, a := range b.MetaAdvertisers {
		headlines := make([]string, 0, len(a.TopAds))
		for _, ad := range a.TopAds {
			headlines = append(headlines, fmt.Sprintf("%s (%d days)", ad.Headline, ad.DaysRunning))
		}
		advertisers = append(advertisers, coda.Row{
			"Advertiser": a.AdvertiserName, "Domain": a.Domain, "Score": a.Score,
			"Funnel URL": a.FunnelURL, "Lead Magnet": yesNo(a.HasLeadMagnet), "Top Ads": strings.Join(headlines, "; "),
		})
	}

	var pains []coda.Row
	for _, p := range b.RedditProblems {
		problems := make([]string, 0, len(p.Problems))
		for _, pr := range p.Problems {
			problems = append(problems, pr.Statement)
		}
		pains = append(pains, coda.Row{
			"Category": p.Category, "Mentions": p.Count, "Example Quote": p.ExampleQuote, "Problems": strings.Join(problems, "; "),
		})
	}

	var trends []coda.Row
	for _, group := range []struct {
		kind  string
		items []string
	}{
		{"Headline Pattern", b.Trends.HeadlinePatterns},
		{"Visual Theme", b.Trends.VisualThemes},
		{"CTA Style", b.Trends.CTAStyles},
		{"Hook Type", b.Trends.HookTypes},
	} {
		for _, item := range group.items {
			trends = append(trends, coda.Row{"Type": group.kind, "Pattern": item})
		}
	}

	var opps []coda.Row
	for _, o := range b.Opportunities {
		opps = append(opps, coda.Row{
			"Type": titleCase(o.Type), "Title": o.Title, "Description": o.Description, "Implementation": o.Implementation,
		})
	}

	var concepts []coda.Row
	for i, c := range b.Concepts {
		concepts = append(concepts, coda.Row{
			"Concept": strconv.Itoa(i + 1), "Hook Type": titleCase(c.HookType), "Headline": c.Headline,
			"Body Copy": c.BodyCopy, "CTA": c.CTA, "Visual Direction": c.VisualDirection,
			"Rationale": c.Rationale, "Pain Point": c.PainPointAddressed,
		})
	}

	return []codaTable{
		{"Brand Overview", overview},
		{"Competitors", competitors},
		{"Meta Advertisers", advertisers},
		{"Reddit Pain Points", pains},
		{"Creative Trends", trends},
		{"Opportunities", opps},
		{"Ad Concepts", concepts},
		{"Diagnostics", []coda.Row{{"Debug_Errors": b.Diagnostics.DebugErrors, "API_Status": b.Diagnostics.APIStatus}}},
	}
}

// NotionPublisher writes each brief as a page in a Notion database.
type NotionPublisher struct {
	client     notion.Client
	databaseID string
}

// NewNotionPublisher returns a publisher for client. A nil client or empty
// database id means Notion is not configured.
func NewNotionPublisher(client notion.Client, databaseID string) *NotionPublisher {
	return &NotionPublisher{client: client, databaseID: databaseID}
}

func (p *NotionPublisher) Destination() string { return DestinationNotion }

func (p *NotionPublisher) Publish(ctx context.Context, brief model.Brief) (model.Publication, error) {
	if p.client == nil || p.databaseID == "" {
		return model.Publication{}, eris.Wrap(errlog.ErrMissingCredential, "notion")
	}

	props := notionapi.Properties{
		"Name":     notion.TitleProperty(brief.Brand.BrandName),
		"Brand":    notion.TextProperty(brief.Brand.URL),
		"Industry": notion.TextProperty(brief.Brand.Industry),
	}
	page, err := notion.CreateDatabasePage(ctx, p.client, p.databaseID, props, notionSections(brief))
	if page == nil {
		return model.Publication{}, eris.Wrap(err, "publish: create notion page")
	}
	if err != nil {
		zap.L().Warn("notion: brief page is incomplete", zap.String("page_id", string(page.ID)), zap.Error(err))
	}

	link := page.URL
	if link == "" {
		link = "https://www.notion.so/" + strings.ReplaceAll(string(page.ID), "-", "")
	}
	return model.Publication{URL: link, Destination: DestinationNotion}, nil
}

func notionSections(b model.Brief) []notion.Section {
	sections := []notion.Section{{
		Heading: "Brand Overview",
		Bullets: []string{
			"Website: " + b.Brand.URL,
			"Industry: " + b.Brand.Industry,
			"Niche: " + b.Brand.Niche,
			"USP: " + strings.Join(b.Brand.USP, ", "),
			"Funnel Type: " + b.Brand.FunnelType,
			"Keywords: " + strings.Join(b.Brand.Keywords, ", "),
		},
	}}

	comp := notion.Section{Heading: "Competitors"}
	for _, c := range b.Competitors {
		comp.Bullets = append(comp.Bullets, fmt.Sprintf("%s (%s): %s [%s, ads: %s]", c.BrandName, c.URL, c.USP, c.FunnelType, yesNo(c.HasAds)))
	}
	sections = append(sections, comp)

	for _, a := range b.MetaAdvertisers {
		s := notion.Section{
			Heading:    "Meta Advertiser - " + a.AdvertiserName,
			Paragraphs: []string{fmt.Sprintf("Domain: %s | Score: %d | Funnel: %s", a.Domain, a.Score, a.FunnelURL)},
		}
		for _, ad := range a.TopAds {
			s.Bullets = append(s.Bullets, fmt.Sprintf("%s: %s (CTA: %s, running %d days)", ad.Headline, ad.Body, ad.CTA, ad.DaysRunning))
		}
		sections = append(sections, s)
	}

	pains := notion.Section{Heading: "Reddit Pain Points"}
	for _, p := range b.RedditProblems {
		pains.Bullets = append(pains.Bullets, fmt.Sprintf("%s (%d mentions): %q", p.Category, p.Count, p.ExampleQuote))
	}
	sections = append(sections, pains)

	trends := notion.Section{Heading: "Creative Trends"}
	for _, t := range b.Trends.HeadlinePatterns {
		trends.Bullets = append(trends.Bullets, "Headline: "+t)
	}
	for _, t := range b.Trends.VisualThemes {
		trends.Bullets = append(trends.Bullets, "Visual: "+t)
	}
	for _, t := range b.Trends.CTAStyles {
		trends.Bullets = append(trends.Bullets, "CTA: "+t)
	}
	for _, t := range b.Trends.HookTypes {
		trends.Bullets = append(trends.Bullets, "Hook: "+t)
	}
	sections = append(sections, trends)

	opps := notion.Section{Heading: "Strategic Opportunities"}
	for i, o := range b.Opportunities {
		opps.Paragraphs = append(opps.Paragraphs,
			fmt.Sprintf("Opportunity %d: %s (%s). %s How to implement: %s", i+1, o.Title, titleCase(o.Type), o.Description, o.Implementation))
	}
	sections = append(sections, opps)

	for i, c := range b.Concepts {
		sections = append(sections, notion.Section{
			Heading: fmt.Sprintf("Ad Concept %d", i+1),
			Bullets: []string{
				"Hook Type: " + titleCase(c.HookType),
				"Headline: " + c.Headline,
				"Body Copy: " + c.BodyCopy,
				"CTA: " + c.CTA,
				"Visual Direction: " + c.VisualDirection,
				"Why It Works: " + c.Rationale,
				"Pain Point Addressed: " + c.PainPointAddressed,
			},
		})
	}

	sections = append(sections, notion.Section{
		Heading:    "Diagnostics",
		Paragraphs: []string{b.Diagnostics.DebugErrors, b.Diagnostics.APIStatus},
	})
	return sections
}
