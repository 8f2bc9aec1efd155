// Package pipeline runs the six brief stages in order for one job.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pteargryphon/creative-brief-generator/internal/errlog"
	"github.com/pteargryphon/creative-brief-generator/internal/model"
	"github.com/pteargryphon/creative-brief-generator/internal/stage"
)

// Checkpoint is the progress window and status message of one stage.
type Checkpoint struct {
	Stage   string
	Start   int
	End     int
	Message string
}

// Checkpoints lists the stages in execution order.
var Checkpoints = []Checkpoint{
	{stage.NameBrandAnalysis, 5, 20, "Analyzing brand website..."},
	{stage.NameCompetitorDiscovery, 20, 35, "Finding competitors..."},
	{stage.NameAdIntelligence, 35, 50, "Analyzing Meta ads..."},
	{stage.NamePainPointMining, 50, 70, "Mining Reddit for customer problems..."},
	{stage.NameStrategySynthesis, 70, 90, "Generating creative strategy..."},
	{stage.NamePublish, 90, 100, "Publishing creative brief..."},
}

// Stages holds one implementation per step.
type Stages struct {
	Brand       stage.Stage[model.BrandProfile]
	Competitors stage.Stage[[]model.Competitor]
	Ads         stage.Stage[[]model.Advertiser]
	PainPoints  stage.Stage[[]model.PainPoint]
	Strategy    stage.Stage[model.Strategy]
	Publish     stage.Stage[model.Publication]
}

// Pipeline produces a brief from a URL. Stage failures never stop it;
// only cancellation does.
type Pipeline struct {
	stages    Stages
	errors    *errlog.Aggregator
	apiStatus func() string
	now       func() time.Time
}

// New creates a Pipeline. apiStatus renders the credential status line
// attached to each brief and may be nil.
func New(stages Stages, errs *errlog.Aggregator, apiStatus func() string) *Pipeline {
	if apiStatus == nil {
		apiStatus = func() string { return "" }
	}
	return &Pipeline{stages: stages, errors: errs, apiStatus: apiStatus, now: time.Now}
}

// WithClock replaces the time source used for durations and completion time.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Run executes every stage for url. progress receives each stage's start
// and end checkpoint.
func (p *Pipeline) Run(ctx context.Context, url string, progress func(percent int, message string)) (*model.BriefResult, error) {
	if progress == nil {
		progress = func(int, string) {}
	}
	r := &run{p: p, progress: progress, log: zap.L().With(zap.String("url", url))}
	r.log.Info("pipeline: starting brief")

	st := stage.State{URL: url}
	var err error

	if st.Brand, err = step(ctx, r, 0, p.stages.Brand, st); err != nil {
		return nil, err
	}
	if st.Competitors, err = step(ctx, r, 1, p.stages.Competitors, st); err != nil {
		return nil, err
	}
	if st.Advertisers, err = step(ctx, r, 2, p.stages.Ads, st); err != nil {
		return nil, err
	}
	if st.PainPoints, err = step(ctx, r, 3, p.stages.PainPoints, st); err != nil {
		return nil, err
	}
	if st.Strategy, err = step(ctx, r, 4, p.stages.Strategy, st); err != nil {
		return nil, err
	}

	st.Diagnostics = model.Diagnostics{APIStatus: p.apiStatus(), DebugErrors: "No errors logged"}
	if p.errors != nil {
		st.Diagnostics.DebugErrors = p.errors.Summary()
	}

	pub, err := step(ctx, r, 5, p.stages.Publish, st)
	if err != nil {
		return nil, err
	}

	result := &model.BriefResult{
		BriefURL:    pub.URL,
		Destination: pub.Destination,
		BrandName:   st.Brand.BrandName,
		CompletedAt: p.now(),
		Brief:       st.Brief(),
		Stages:      r.reports,
	}
	degraded := 0
	for _, s := range r.reports {
		if s.Degraded {
			degraded++
		}
	}
	r.log.Info("pipeline: brief complete",
		zap.String("brand", result.BrandName),
		zap.String("brief_url", result.BriefURL),
		zap.Int("degraded_stages", degraded),
	)
	return result, nil
}

type run struct {
	p        *Pipeline
	progress func(int, string)
	log      *zap.Logger
	reports  []model.StageReport
}

// step runs one stage between its checkpoints and records its report.
func step[T any](ctx context.Context, r *run, idx int, s stage.Stage[T], st stage.State) (T, error) {
	var zero T
	cp := Checkpoints[idx]
	if err := ctx.Err(); err != nil {
		return zero, eris.Wrapf(err, "pipeline: before %s", cp.Stage)
	}
	if s == nil {
		return zero, eris.Errorf("pipeline: stage %s not configured", cp.Stage)
	}

	r.progress(cp.Start, cp.Message)
	start := r.p.now()
	res := s.Execute(ctx, st)
	duration := r.p.now().Sub(start).Milliseconds()

	r.reports = append(r.reports, model.StageReport{Name: s.Name(), Degraded: res.Degraded, Duration: duration})
	if res.Degraded {
		r.log.Warn("pipeline: stage degraded", zap.String("stage", s.Name()), zap.Int64("duration_ms", duration))
	} else {
		r.log.Info("pipeline: stage complete", zap.String("stage", s.Name()), zap.Int64("duration_ms", duration))
	}

	r.progress(cp.End, cp.Message)
	return res.Output, nil
}
