package main

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pteargryphon/creative-brief-generator/internal/config"
	"github.com/pteargryphon/creative-brief-generator/internal/errlog"
	"github.com/pteargryphon/creative-brief-generator/internal/job"
	"github.com/pteargryphon/creative-brief-generator/internal/pipeline"
	"github.com/pteargryphon/creative-brief-generator/internal/resilience"
	"github.com/pteargryphon/creative-brief-generator/internal/stage"
	anthropicpkg "github.com/pteargryphon/creative-brief-generator/pkg/anthropic"
	"github.com/pteargryphon/creative-brief-generator/pkg/apify"
	"github.com/pteargryphon/creative-brief-generator/pkg/coda"
	"github.com/pteargryphon/creative-brief-generator/pkg/foreplay"
	"github.com/pteargryphon/creative-brief-generator/pkg/jina"
	"github.com/pteargryphon/creative-brief-generator/pkg/notion"
	"github.com/pteargryphon/creative-brief-generator/pkg/perplexity"
)

// appEnv holds the wired components shared by the serve and generate commands.
type appEnv struct {
	Errors      *errlog.Aggregator
	Breakers    *resilience.Breakers
	Store       *job.Store
	Executor    *job.Executor
	Pipeline    *pipeline.Pipeline
	Credentials []errlog.Credential
}

// Close releases in-memory state. The executor is shut down by the caller,
// which owns its context.
func (e *appEnv) Close() {
	e.Store.Clear()
	e.Errors.Clear()
}

// initEnv wires clients, stages, pipeline and executor from c. A client
// whose credential is unset stays nil so its stage degrades without a call.
func initEnv(c *config.Config) (*appEnv, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	creds := c.Credentials()
	set := make(map[string]bool, len(creds))
	for _, cr := range creds {
		set[cr.Name] = cr.Set()
		if !cr.Set() {
			zap.L().Warn("credential not set, stage will use fallback data", zap.String("service", cr.Name))
		}
	}

	var llm *stage.LLM
	if set["Anthropic"] {
		llm = &stage.LLM{
			Client:    anthropicpkg.NewClient(c.Anthropic.Key),
			Model:     c.Anthropic.Model,
			MaxTokens: c.Anthropic.MaxTokens,
		}
	}

	var jinaClient jina.Client
	if set["Jina"] {
		jinaOpts := []jina.Option{jina.WithBaseURL(c.Jina.BaseURL)}
		if c.Jina.SearchBaseURL != "" {
			jinaOpts = append(jinaOpts, jina.WithSearchBaseURL(c.Jina.SearchBaseURL))
		}
		jinaClient = jina.NewClient(c.Jina.Key, jinaOpts...)
	}

	var perplexityClient perplexity.Client
	if set["Perplexity"] {
		perplexityClient = perplexity.NewClient(c.Perplexity.Key,
			perplexity.WithBaseURL(c.Perplexity.BaseURL),
			perplexity.WithModel(c.Perplexity.Model),
		)
	}

	var foreplayClient foreplay.Client
	if set["Foreplay"] {
		foreplayClient = foreplay.NewClient(c.Foreplay.Key,
			foreplay.WithBaseURL(c.Foreplay.BaseURL),
			foreplay.WithRateLimit(c.Foreplay.RateLimit),
		)
	}

	var apifyClient apify.Client
	if set["Apify"] {
		apifyClient = apify.NewClient(c.Apify.Token,
			apify.WithBaseURL(c.Apify.BaseURL),
			apify.WithRedditActor(c.Apify.ActorID),
		)
	}

	publisher, err := initPublisher(c, set)
	if err != nil {
		return nil, err
	}

	errs := errlog.New()
	breakers := resilience.NewBreakers(resilience.BreakerConfigFrom(c.Resilience.FailureThreshold, c.Resilience.ResetTimeoutSecs))
	deps := stage.Deps{
		Errors:   errs,
		Breakers: breakers,
		Policy:   resilience.PolicyFrom(c.Resilience.MaxAttempts, c.Resilience.InitialBackoffMs, c.Resilience.MaxBackoffMs),
		Timeout:  time.Duration(c.Jobs.StageTimeoutSecs) * time.Second,
	}

	p := pipeline.New(pipeline.Stages{
		Brand:       stage.NewBrandAnalysis(deps, jinaClient, llm),
		Competitors: stage.NewCompetitorDiscovery(deps, jinaClient, perplexityClient),
		Ads:         stage.NewAdIntelligence(deps, foreplayClient),
		PainPoints:  stage.NewPainPointMining(deps, apifyClient, llm, c.Apify.MaxItems),
		Strategy:    stage.NewStrategySynthesis(deps, llm),
		Publish:     stage.NewPublish(deps, publisher, nil),
	}, errs, func() string { return errlog.CheckAPIStatus(creds) })

	store := job.NewStore()
	return &appEnv{
		Errors:      errs,
		Breakers:    breakers,
		Store:       store,
		Executor:    job.NewExecutor(store, p, errs, c.Jobs.Workers),
		Pipeline:    p,
		Credentials: creds,
	}, nil
}

// initPublisher picks the brief destination. An unset token still yields a
// publisher; it fails at publish time and the brief gets a placeholder link.
func initPublisher(c *config.Config, set map[string]bool) (stage.Publisher, error) {
	switch c.Publish.Destination {
	case stage.DestinationNotion:
		var client notion.Client
		if set["Notion"] {
			client = notion.NewClient(c.Notion.Token)
		}
		return stage.NewNotionPublisher(client, c.Notion.BriefDB), nil
	case stage.DestinationCoda:
		var client coda.Client
		if set["Coda"] {
			client = coda.NewClient(c.Coda.Token, coda.WithBaseURL(c.Coda.BaseURL))
		}
		return stage.NewCodaPublisher(client, c.Coda.TemplateDocID, c.Coda.FolderID, nil), nil
	default:
		return nil, eris.Errorf("unknown publish destination %q", c.Publish.Destination)
	}
}
