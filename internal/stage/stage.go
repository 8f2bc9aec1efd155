// Package stage implements the six brief-building stages. Every stage pairs
// a remote path with a deterministic fallback, so Execute always yields a
// well-formed output and never returns an error.
package stage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pteargryphon/creative-brief-generator/internal/errlog"
	"github.com/pteargryphon/creative-brief-generator/internal/model"
	"github.com/pteargryphon/creative-brief-generator/internal/resilience"
)

// Stage names, also used as the errlog stage key.
const (
	NameBrandAnalysis       = "BrandAnalysis"
	NameCompetitorDiscovery = "CompetitorDiscovery"
	NameAdIntelligence      = "AdIntelligence"
	NamePainPointMining     = "PainPointMining"
	NameStrategySynthesis   = "StrategySynthesis"
	NamePublish             = "Publish"
)

// Result is a stage outcome. Output has the same shape whether it came from
// the remote path or the fallback.
type Result[T any] struct {
	Output   T
	Degraded bool
}

// Stage is one step of brief generation.
type Stage[T any] interface {
	Name() string
	Execute(ctx context.Context, st State) Result[T]
}

// State accumulates stage outputs for one job. Stages receive it by value.
type State struct {
	URL         string
	Brand       model.BrandProfile
	Competitors []model.Competitor
	Advertisers []model.Advertiser
	PainPoints  []model.PainPoint
	Strategy    model.Strategy
	Diagnostics model.Diagnostics
}

// Brief assembles the publishable brief from the accumulated outputs.
func (s State) Brief() model.Brief {
	return model.Brief{
		Brand:           s.Brand,
		Competitors:     s.Competitors,
		MetaAdvertisers: s.Advertisers,
		RedditProblems:  s.PainPoints,
		Trends:          s.Strategy.Trends,
		Opportunities:   s.Strategy.Opportunities,
		Concepts:        s.Strategy.Concepts,
		Diagnostics:     s.Diagnostics,
	}
}

// Deps are the collaborators every stage shares.
type Deps struct {
	Errors   *errlog.Aggregator
	Breakers *resilience.Breakers
	Policy   resilience.Policy
	// Timeout bounds one stage's remote path. Zero means no extra bound.
	Timeout time.Duration
}

func (d Deps) breaker(service string) *resilience.Breaker {
	if d.Breakers == nil {
		return nil
	}
	return d.Breakers.Get(service)
}

// call runs one remote operation through the service's breaker and the
// retry policy.
func call[T any](ctx context.Context, d Deps, service, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	p := d.Policy
	if p.OnRetry == nil {
		p.OnRetry = resilience.LogRetries(service, op)
	}
	return resilience.Call(ctx, d.breaker(service), p, fn)
}

// guard runs the remote path and substitutes the fallback on any error,
// recording exactly one errlog entry for the failure. Panics propagate.
func guard[T any](
	ctx context.Context,
	d Deps,
	name string,
	st State,
	run func(ctx context.Context, st State) (T, error),
	fallback func(st State) T,
) Result[T] {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	out, err := run(ctx, st)
	if err == nil {
		return Result[T]{Output: out}
	}

	if d.Errors != nil {
		d.Errors.Record(name, err, map[string]any{"url": st.URL})
	}
	zap.L().Warn("stage degraded to fallback",
		zap.String("stage", name),
		zap.String("url", st.URL),
		zap.Error(err),
	)
	return Result[T]{Output: fallback(st), Degraded: true}
}
