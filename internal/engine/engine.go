// Package engine coordinates the authentication-method decision pipeline:
// signal extraction, client classification, method selection, fallback
// execution, and the security/statistics side channels.
package engine

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/org/authgate/internal/classify"
	"github.com/org/authgate/internal/fallback"
	"github.com/org/authgate/internal/security"
	"github.com/org/authgate/internal/selector"
	"github.com/org/authgate/internal/signal"
	"github.com/org/authgate/internal/stats"
	"github.com/org/authgate/pkg/models"
)

// Config is the engine's full configuration surface. Zero values take the
// defaults below; validation happens once at construction and never
// mid-request.
type Config struct {
	SessionCookie string           `yaml:"session_cookie"`
	Weights       selector.Weights `yaml:"weights"`
	DefaultMethod models.Method    `yaml:"default_method"`
	CapabilityTTL time.Duration    `yaml:"capability_ttl"`
	DecisionTTL   time.Duration    `yaml:"decision_ttl"`
	SuccessAlpha  float64          `yaml:"success_alpha"`
	Security      security.Config  `yaml:"security"`
}

func (c Config) withDefaults() Config {
	if c.SessionCookie == "" {
		c.SessionCookie = "authgate_session"
	}
	if c.Weights == (selector.Weights{}) {
		c.Weights = selector.DefaultWeights
	}
	if c.DefaultMethod == "" {
		c.DefaultMethod = models.MethodJWT
	}
	if c.CapabilityTTL == 0 {
		c.CapabilityTTL = time.Hour
	}
	if c.DecisionTTL == 0 {
		c.DecisionTTL = 15 * time.Minute
	}
	if c.SuccessAlpha == 0 {
		c.SuccessAlpha = 0.2
	}
	return c
}

// Validate rejects configurations the engine cannot start with.
func (c Config) Validate() error {
	c = c.withDefaults()
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if !c.DefaultMethod.Valid() {
		return &models.ConfigError{Field: "default_method", Reason: "unknown method"}
	}
	if c.CapabilityTTL < 0 || c.DecisionTTL < 0 {
		return &models.ConfigError{Field: "ttl", Reason: "must not be negative"}
	}
	if c.SuccessAlpha < 0 || c.SuccessAlpha > 1 {
		return &models.ConfigError{Field: "success_alpha", Reason: "must be within [0,1]"}
	}
	return c.Security.Validate()
}

// Request is the engine's inbound descriptor: parsed request metadata, not
// raw transport bytes.
type Request struct {
	Header     http.Header
	SourceIP   string
	RouteClass string
}

// Engine is the coordination pipeline. Safe for concurrent use; each shared
// structure carries its own synchronization, so work for one fingerprint
// never blocks another.
type Engine struct {
	extractor     *signal.Extractor
	classifier    *classify.Classifier
	selector      *selector.Selector
	executor      *fallback.Executor
	monitor       *security.Monitor
	successStats  *selector.SuccessStats
	agg           *stats.Aggregator
	defaultMethod models.Method
}

// New wires an Engine from config, credential validators, and an event sink.
func New(cfg Config, validators fallback.Validators, sink security.EventSink) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	agg := stats.New()
	sel, err := selector.New(cfg.Weights, cfg.DefaultMethod, cfg.DecisionTTL)
	if err != nil {
		return nil, err
	}
	monitor, err := security.NewMonitor(cfg.Security, &countingSink{next: sink, agg: agg})
	if err != nil {
		return nil, err
	}

	return &Engine{
		extractor:     signal.NewExtractor(cfg.SessionCookie),
		classifier:    classify.New(cfg.CapabilityTTL),
		selector:      sel,
		executor:      fallback.New(validators),
		monitor:       monitor,
		successStats:  selector.NewSuccessStats(cfg.SuccessAlpha),
		agg:           agg,
		defaultMethod: cfg.DefaultMethod,
	}, nil
}

// Stats exposes the aggregator for the dashboard collaborator.
func (e *Engine) Stats() *stats.Aggregator {
	return e.agg
}

// Authenticate coordinates one request end to end. The returned error is
// models.ErrRateLimited, models.ErrFallbackExhausted, a terminal AuthError,
// or a context error when the caller went away.
func (e *Engine) Authenticate(ctx context.Context, req Request) (models.Result, error) {
	if !e.monitor.Check(ctx, req.SourceIP) {
		return models.Result{}, models.ErrRateLimited
	}

	sig := e.extractor.Extract(req.Header)
	fp := signal.Fingerprint(req.SourceIP, req.Header)

	verdict := e.classify(ctx, req.SourceIP, fp, sig)
	decision := e.decide(fp, req.RouteClass, sig, verdict)

	creds := fallback.Credentials{
		BearerToken:   signal.BearerToken(req.Header),
		SessionCookie: e.extractor.SessionCookie(req.Header),
	}
	result, err := e.executor.Authenticate(ctx, decision, creds)
	result.ClientType = verdict.Type

	// Abandoned requests record nothing: there is no completed outcome.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return result, err
	}

	for _, o := range result.Outcomes {
		e.successStats.Record(o.Method, o.Succeeded)
		e.agg.RecordOutcome(o)
		e.monitor.RecordOutcome(ctx, req.SourceIP, o)
	}
	if result.FellBack {
		e.monitor.ReportFallback(ctx, req.SourceIP, result.Method)
	}
	return result, err
}

// classify returns the cached verdict for the fingerprint or computes a
// fresh one. Any unexpected classifier fault degrades to the safe default
// verdict rather than failing the request.
func (e *Engine) classify(ctx context.Context, ip, fp string, sig models.SignalSet) (verdict models.Verdict) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("classifier fault, using default verdict")
			verdict = models.Verdict{Type: models.ClientAPI, Confidence: 0.4, ComputedAt: time.Now().UTC()}
		}
	}()

	if cached, ok := e.classifier.Cached(fp); ok {
		e.agg.RecordCacheHit(stats.CacheCapability)
		e.agg.RecordClientType(cached.Type)
		return cached
	}
	e.agg.RecordCacheMiss(stats.CacheCapability)

	verdict = e.classifier.Classify(fp, sig)
	e.agg.RecordClientType(verdict.Type)
	e.monitor.RecordVerdict(ctx, ip, fp, verdict.Type)
	return verdict
}

// decide returns the cached decision for (fingerprint, route class) or runs
// the selector. A selector fault degrades to the configured default method.
func (e *Engine) decide(fp, routeClass string, sig models.SignalSet, verdict models.Verdict) (decision models.Decision) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("selector fault, using default method")
			decision = e.defaultDecision()
		}
	}()

	if cached, ok := e.selector.Cached(fp, routeClass); ok {
		e.agg.RecordCacheHit(stats.CacheDecision)
		return cached
	}
	e.agg.RecordCacheMiss(stats.CacheDecision)

	start := time.Now()
	decision = e.selector.Select(fp, routeClass, sig, verdict, e.successStats)
	e.agg.RecordDecision(time.Since(start))
	return decision
}

func (e *Engine) defaultDecision() models.Decision {
	d := models.Decision{Primary: e.defaultMethod, DecidedAt: time.Now().UTC()}
	for _, m := range models.AllMethods {
		if m != e.defaultMethod {
			d.FallbackOrder = append(d.FallbackOrder, m)
		}
	}
	return d
}

// countingSink counts every emitted event into the aggregator before
// forwarding it to the external sink.
type countingSink struct {
	next security.EventSink
	agg  *stats.Aggregator
}

func (s *countingSink) Emit(ctx context.Context, ev models.SecurityEvent) {
	s.agg.RecordEvent(ev.Kind)
	if s.next != nil {
		s.next.Emit(ctx, ev)
	}
}
