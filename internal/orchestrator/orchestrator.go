// Package orchestrator runs analyses end to end.
//
// A run checks the cache, waits for an admission slot, scrapes the page with retries and
// then fans the page out to the selected agents. Classification finishes before summary and
// UX review start so both can use it as context. Design advice runs last and only for pages
// classified as landing pages. Agent failures are recorded in the result; only a failed
// scrape aborts a run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/site-insight/internal/analysis"
	"github.com/JakeFAU/site-insight/internal/cache"
	"github.com/JakeFAU/site-insight/internal/clock/system"
	"github.com/JakeFAU/site-insight/internal/id/uuid"
	"github.com/JakeFAU/site-insight/internal/metrics"
	"github.com/JakeFAU/site-insight/internal/ratelimit"
	"github.com/JakeFAU/site-insight/internal/retry"
)

// DefaultRateKey is the process-wide admission bucket.
const DefaultRateKey = "default"

// Scraper turns a URL into page data.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*analysis.PageData, error)
}

// Classifier determines the website type.
type Classifier interface {
	Classify(ctx context.Context, page *analysis.PageData) (analysis.Classification, error)
}

// Summarizer summarizes a page. hint may be nil.
type Summarizer interface {
	Summarize(ctx context.Context, page *analysis.PageData, hint *analysis.Classification) (analysis.Summary, error)
}

// UXReviewer reviews usability. hint may be nil.
type UXReviewer interface {
	Review(ctx context.Context, page *analysis.PageData, hint *analysis.Classification) (analysis.UXReview, error)
}

// DesignAdvisor recommends design changes for landing pages.
type DesignAdvisor interface {
	Advise(ctx context.Context, page *analysis.PageData, hint *analysis.Classification) (analysis.DesignAdvice, error)
}

// Publisher emits completion events.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// IDGenerator issues run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Clock supplies timestamps.
type Clock interface {
	Now() time.Time
}

// Agents groups the analysts a run can invoke.
type Agents struct {
	Classifier    Classifier
	Summarizer    Summarizer
	UXReviewer    UXReviewer
	DesignAdvisor DesignAdvisor
}

// Deps are the collaborators of an Orchestrator. Publisher, IDs, Clock and Logger are optional.
type Deps struct {
	Scraper   Scraper
	Agents    Agents
	Cache     *cache.Cache
	Limiter   *ratelimit.Limiter
	Publisher Publisher
	IDs       IDGenerator
	Clock     Clock
	Logger    *zap.Logger
}

// Config tunes a run.
type Config struct {
	CacheTTL time.Duration
	Retry    retry.Policy
	// RateKey is the admission bucket. Empty uses DefaultRateKey.
	RateKey string
	// Topic names the destination of completion events.
	Topic string
	// RunTimeout bounds a shared cached run. Shared runs are detached from the callers
	// that started them; zero leaves them unbounded.
	RunTimeout time.Duration
}

// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	scraper   Scraper
	agents    Agents
	cache     *cache.Cache
	limiter   *ratelimit.Limiter
	publisher Publisher
	ids       IDGenerator
	clock     Clock
	logger    *zap.Logger
	cfg       Config
	group     singleflight.Group

	total, succeeded, failed, cacheHits, cacheMisses atomic.Int64
}

// New validates deps and builds an Orchestrator.
func New(deps Deps, cfg Config) (*Orchestrator, error) {
	switch {
	case deps.Scraper == nil:
		return nil, errors.New("orchestrator: scraper is required")
	case deps.Cache == nil:
		return nil, errors.New("orchestrator: cache is required")
	case deps.Limiter == nil:
		return nil, errors.New("orchestrator: limiter is required")
	case deps.Agents.Classifier == nil || deps.Agents.Summarizer == nil ||
		deps.Agents.UXReviewer == nil || deps.Agents.DesignAdvisor == nil:
		return nil, errors.New("orchestrator: all four agents are required")
	}
	if deps.IDs == nil {
		deps.IDs = uuid.NewUUIDGenerator()
	}
	if deps.Clock == nil {
		deps.Clock = system.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.RateKey == "" {
		cfg.RateKey = DefaultRateKey
	}
	return &Orchestrator{
		scraper:   deps.Scraper,
		agents:    deps.Agents,
		cache:     deps.Cache,
		limiter:   deps.Limiter,
		publisher: deps.Publisher,
		ids:       deps.IDs,
		clock:     deps.Clock,
		logger:    deps.Logger.Named("orchestrator"),
		cfg:       cfg,
	}, nil
}

// AnalyzeFull runs every agent, with design advice gated on a landing page classification.
func (o *Orchestrator) AnalyzeFull(ctx context.Context, url string, useCache bool) (*analysis.Record, error) {
	return o.analyze(ctx, url, analysis.KindFull, analysis.AllAgents(), useCache)
}

// AnalyzeQuick runs classification and summary concurrently.
func (o *Orchestrator) AnalyzeQuick(ctx context.Context, url string, useCache bool) (*analysis.Record, error) {
	return o.analyze(ctx, url, analysis.KindQuick, analysis.QuickAgents(), useCache)
}

// AnalyzeCustom runs the selected agents. Design advice stays gated on a landing page
// classification, so it is skipped when the classifier is not selected.
func (o *Orchestrator) AnalyzeCustom(
	ctx context.Context,
	url string,
	flags analysis.AgentFlags,
	useCache bool,
) (*analysis.Record, error) {
	return o.analyze(ctx, url, analysis.KindCustom, flags, useCache)
}

// Analyze dispatches on kind. flags only apply to custom runs.
func (o *Orchestrator) Analyze(
	ctx context.Context,
	url string,
	kind analysis.Kind,
	flags analysis.AgentFlags,
	useCache bool,
) (*analysis.Record, error) {
	switch kind {
	case analysis.KindQuick:
		return o.AnalyzeQuick(ctx, url, useCache)
	case analysis.KindCustom:
		return o.AnalyzeCustom(ctx, url, flags, useCache)
	default:
		return o.AnalyzeFull(ctx, url, useCache)
	}
}

func (o *Orchestrator) analyze(
	ctx context.Context,
	url string,
	kind analysis.Kind,
	flags analysis.AgentFlags,
	useCache bool,
) (*analysis.Record, error) {
	o.total.Add(1)
	cacheKind := analysis.CacheKind(kind, flags)
	key := cache.Key(url, cacheKind)

	var (
		rec *analysis.Record
		err error
	)
	if useCache {
		if cached, ok := o.lookup(ctx, key); ok {
			o.cacheHits.Add(1)
			o.succeeded.Add(1)
			o.logger.Debug("cache hit", zap.String("url", url), zap.String("kind", cacheKind))
			return cached, nil
		}
		o.cacheMisses.Add(1)
		rec, err = o.shared(ctx, key, func(runCtx context.Context) (*analysis.Record, error) {
			return o.execute(runCtx, url, kind, flags, cacheKind, key, true)
		})
	} else {
		rec, err = o.execute(ctx, url, kind, flags, cacheKind, key, false)
	}

	if err != nil {
		o.failed.Add(1)
		metrics.ObserveAnalysis(string(kind), "error")
		return nil, err
	}
	o.succeeded.Add(1)
	return rec, nil
}

// shared runs fn once per key for all concurrent callers. The run does not inherit any
// caller's cancellation, so one caller leaving cannot fail the record the others receive.
// Each caller stops waiting when its own ctx ends.
func (o *Orchestrator) shared(
	ctx context.Context,
	key string,
	fn func(context.Context) (*analysis.Record, error),
) (*analysis.Record, error) {
	ch := o.group.DoChan(key, func() (any, error) {
		runCtx := context.WithoutCancel(ctx)
		if o.cfg.RunTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(runCtx, o.cfg.RunTimeout)
			defer cancel()
		}
		return fn(runCtx)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for analysis: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*analysis.Record), nil
	}
}

func (o *Orchestrator) lookup(ctx context.Context, key string) (*analysis.Record, bool) {
	var rec analysis.Record
	if !o.cache.GetJSON(ctx, key, &rec) {
		return nil, false
	}
	return &rec, true
}

func (o *Orchestrator) execute(
	ctx context.Context,
	url string,
	kind analysis.Kind,
	flags analysis.AgentFlags,
	cacheKind, key string,
	store bool,
) (*analysis.Record, error) {
	start := o.clock.Now()
	log := o.logger.With(zap.String("url", url), zap.String("kind", cacheKind))

	if err := o.limiter.Wait(ctx, o.cfg.RateKey); err != nil {
		return nil, fmt.Errorf("wait for admission: %w", err)
	}

	page, err := o.scrape(ctx, url, log)
	if err != nil {
		return nil, err
	}

	id, err := o.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("run id: %w", err)
	}

	out := analysis.Outcome{ID: id, URL: url, Kind: kind, Requested: flags, Page: page}
	if kind == analysis.KindQuick {
		o.runQuick(ctx, page, &out)
	} else {
		o.runStaged(ctx, page, flags, &out)
	}
	out.CompletedAt = o.clock.Now()

	// Stages cut short by cancellation report failures that say nothing about the page.
	if err := ctx.Err(); err != nil {
		log.Warn("analysis interrupted", zap.Error(err))
		return nil, fmt.Errorf("analysis interrupted: %w", err)
	}

	rec := analysis.Aggregate(out)
	if store && !o.cache.SetJSON(ctx, key, rec, o.cfg.CacheTTL) {
		log.Warn("analysis not cached")
	}
	metrics.ObserveAnalysis(string(kind), string(rec.Status))
	o.publish(ctx, rec, cacheKind, log)

	log.Info("analysis completed",
		zap.String("run_id", rec.ID),
		zap.String("status", string(rec.Status)),
		zap.Float64("success_rate", rec.SuccessRate),
		zap.Strings("agents", rec.Metadata.AgentsUsed),
		zap.Duration("elapsed", out.CompletedAt.Sub(start)),
	)
	return rec, nil
}

func (o *Orchestrator) scrape(ctx context.Context, url string, log *zap.Logger) (*analysis.PageData, error) {
	page, attempts, err := retry.Do(ctx, o.policy("scrape", log), func(ctx context.Context) (page *analysis.PageData, err error) {
		defer recoverInto("scraper", &err)
		return o.scraper.Scrape(ctx, url)
	})
	if err == nil {
		return page, nil
	}
	log.Warn("scrape failed", zap.Int("attempts", attempts), zap.Error(err))
	if analysis.IsFetchError(err) || ctx.Err() != nil {
		return nil, err
	}
	return nil, &analysis.FetchError{URL: url, Reason: "scrape failed", Err: err}
}

// runStaged runs classification, then summary and UX review together, then design advice.
func (o *Orchestrator) runStaged(ctx context.Context, page *analysis.PageData, flags analysis.AgentFlags, out *analysis.Outcome) {
	if flags.Classifier {
		out.Classification = runStage(ctx, o, analysis.AgentClassifier, func(ctx context.Context) (analysis.Classification, error) {
			return o.agents.Classifier.Classify(ctx, page)
		})
	}
	var hint *analysis.Classification
	if out.Classification.Succeeded() {
		hint = out.Classification.Payload
	}

	var g errgroup.Group
	if flags.Summary {
		g.Go(func() error {
			out.Summary = runStage(ctx, o, analysis.AgentSummary, func(ctx context.Context) (analysis.Summary, error) {
				return o.agents.Summarizer.Summarize(ctx, page, hint)
			})
			return nil
		})
	}
	if flags.UXReviewer {
		g.Go(func() error {
			out.UXReview = runStage(ctx, o, analysis.AgentUXReviewer, func(ctx context.Context) (analysis.UXReview, error) {
				return o.agents.UXReviewer.Review(ctx, page, hint)
			})
			return nil
		})
	}
	_ = g.Wait()

	if flags.DesignAdvisor && hint.IsLandingPage() {
		out.DesignAdvice = runStage(ctx, o, analysis.AgentDesignAdvisor, func(ctx context.Context) (analysis.DesignAdvice, error) {
			return o.agents.DesignAdvisor.Advise(ctx, page, hint)
		})
	}
}

// runQuick runs classification and summary concurrently with no context passed between them.
func (o *Orchestrator) runQuick(ctx context.Context, page *analysis.PageData, out *analysis.Outcome) {
	var g errgroup.Group
	g.Go(func() error {
		out.Classification = runStage(ctx, o, analysis.AgentClassifier, func(ctx context.Context) (analysis.Classification, error) {
			return o.agents.Classifier.Classify(ctx, page)
		})
		return nil
	})
	g.Go(func() error {
		out.Summary = runStage(ctx, o, analysis.AgentSummary, func(ctx context.Context) (analysis.Summary, error) {
			return o.agents.Summarizer.Summarize(ctx, page, nil)
		})
		return nil
	})
	_ = g.Wait()
}

// runStage retries fn and folds the outcome into a result. Panics count as failed attempts.
func runStage[T any](ctx context.Context, o *Orchestrator, name string, fn func(context.Context) (T, error)) *analysis.Result[T] {
	log := o.logger.With(zap.String("agent", name))
	start := time.Now()
	payload, attempts, err := retry.Do(ctx, o.policy(name, log), func(ctx context.Context) (v T, err error) {
		defer recoverInto(name, &err)
		return fn(ctx)
	})
	metrics.ObserveAgent(name, err == nil, time.Since(start))
	if err != nil {
		log.Warn("agent failed", zap.Int("attempts", attempts), zap.Error(err))
		return analysis.Failed[T](err, attempts, o.clock.Now())
	}
	return analysis.Succeeded(payload, attempts, o.clock.Now())
}

func (o *Orchestrator) policy(stage string, log *zap.Logger) retry.Policy {
	p := o.cfg.Retry
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		log.Info("retrying stage",
			zap.String("stage", stage),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
	}
	return p
}

func (o *Orchestrator) publish(ctx context.Context, rec *analysis.Record, cacheKind string, log *zap.Logger) {
	if o.publisher == nil {
		return
	}
	id, err := o.publisher.Publish(ctx, o.cfg.Topic, analysis.EventFor(rec, cacheKind))
	if err != nil {
		log.Warn("publish analysis event failed", zap.Error(err))
		return
	}
	log.Debug("analysis event published", zap.String("message_id", id))
}

func recoverInto(name string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s panicked: %v", name, r)
	}
}
