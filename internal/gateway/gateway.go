// Package gateway is the single entry point between student-facing features
// and the remote text-generation service. Every operation checks the
// credential, builds the prompt, makes at most one provider call, and
// validates the answer into a typed result or an *ai.Failure.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/preppysphere/internal/ai"
	"github.com/p-n-ai/preppysphere/internal/events"
	"github.com/p-n-ai/preppysphere/internal/intent"
	"github.com/p-n-ai/preppysphere/internal/wellness"
)

// DefaultBudgetScope is the budget bucket used when Config leaves it empty.
const DefaultBudgetScope = "gateway"

// ErrBudgetExhausted is wrapped in a rate-limited failure when the daily
// token budget is spent.
var ErrBudgetExhausted = errors.New("daily token budget exhausted")

// Outcomes recorded on ai_request events.
const (
	OutcomeLive    = "live"
	OutcomeCache   = "cache"
	OutcomeFailure = "failure"
)

// WellnessOptions tunes a wellness tip request.
type WellnessOptions = wellness.FetchOptions

// WellnessResult is a wellness tip answer and where it came from.
type WellnessResult = wellness.Result

// Config holds everything a Gateway instance depends on. There is no
// package-level state; two gateways with different configs are independent.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // default provider only

	// Provider overrides the Gemini provider built from APIKey.
	Provider ai.Provider
	// Cache is the daily wellness slot. Nil disables caching.
	Cache *wellness.DailyCache
	// Probe runs before every provider call. Nil skips it.
	Probe ai.Reachability
	// Budget caps daily token use. Nil means unlimited.
	Budget      ai.BudgetChecker
	BudgetScope string
	// Events receives one ai_request event per operation.
	Events events.Logger
}

// Option configures optional Gateway behavior.
type Option func(*Gateway)

// WithHTTPClient sets the HTTP client of the default Gemini provider.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		g.httpClient = client
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.log = logger
		}
	}
}

// Gateway is safe for concurrent use.
type Gateway struct {
	apiKey      string
	model       string
	provider    ai.Provider
	cache       *wellness.DailyCache
	probe       ai.Reachability
	budget      ai.BudgetChecker
	budgetScope string
	events      events.Logger
	validator   *validator
	httpClient  *http.Client
	log         *slog.Logger
}

// New creates a gateway. A missing credential is not an error here; every
// operation reports it as MissingCredential instead.
func New(cfg Config, opts ...Option) (*Gateway, error) {
	v, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("compile response schemas: %w", err)
	}

	g := &Gateway{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		provider:    cfg.Provider,
		cache:       cfg.Cache,
		probe:       cfg.Probe,
		budget:      cfg.Budget,
		budgetScope: cfg.BudgetScope,
		events:      cfg.Events,
		validator:   v,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.model == "" {
		g.model = ai.DefaultModel
	}
	if g.budgetScope == "" {
		g.budgetScope = DefaultBudgetScope
	}
	if g.events == nil {
		g.events = events.NopLogger{}
	}
	if g.provider == nil {
		gopts := []ai.GoogleOption{ai.WithGoogleModel(g.model)}
		if cfg.BaseURL != "" {
			gopts = append(gopts, ai.WithGoogleBaseURL(cfg.BaseURL))
		}
		if g.httpClient != nil {
			gopts = append(gopts, ai.WithGoogleHTTPClient(g.httpClient))
		}
		g.provider = ai.NewGoogleProvider(cfg.APIKey, gopts...)
	}
	return g, nil
}

// Configured reports whether the credential is usable.
func (g *Gateway) Configured() bool {
	return ai.CredentialUsable(g.apiKey)
}

// HealthCheck checks the provider.
func (g *Gateway) HealthCheck(ctx context.Context) error {
	if !g.Configured() {
		return ai.NewFailure("health_check", ai.KindMissingCredential, ai.ErrMissingCredential)
	}
	return ai.Fail("health_check", g.provider.HealthCheck(ctx))
}

// StudyPlan generates a study plan for a subject.
func (g *Gateway) StudyPlan(ctx context.Context, req intent.StudyPlanRequest) (intent.StudyPlan, error) {
	content, err := g.complete(ctx, req)
	if err != nil {
		return intent.StudyPlan{}, g.failed(ctx, req.Kind(), err)
	}
	plan, err := g.validator.studyPlan(content)
	if err != nil {
		return intent.StudyPlan{}, g.failed(ctx, req.Kind(), err)
	}
	g.succeeded(ctx, req.Kind(), OutcomeLive)
	return plan, nil
}

// CategorizeIssue picks a category and a responsible department for a campus issue.
func (g *Gateway) CategorizeIssue(ctx context.Context, req intent.IssueCategorizationRequest) (intent.Categorization, error) {
	content, err := g.complete(ctx, req)
	if err != nil {
		return intent.Categorization{}, g.failed(ctx, req.Kind(), err)
	}
	c, err := g.validator.categorization(content)
	if err != nil {
		return intent.Categorization{}, g.failed(ctx, req.Kind(), err)
	}
	g.succeeded(ctx, req.Kind(), OutcomeLive)
	return c, nil
}

// WellnessTips returns tips for a stress level and optional query. General
// requests are served from today's cache entry unless opts.ForceRefresh is
// set, and a successful live general fetch replaces that entry. Requests
// with a query never touch the cache.
func (g *Gateway) WellnessTips(ctx context.Context, req intent.WellnessTipsRequest, opts WellnessOptions) (WellnessResult, error) {
	kind := req.Kind()
	if !g.Configured() {
		return WellnessResult{}, g.failed(ctx, kind, ai.ErrMissingCredential)
	}
	if err := req.Validate(); err != nil {
		return WellnessResult{}, err
	}

	general := req.General()
	if general && !opts.ForceRefresh && g.cache != nil {
		entry, ok, err := g.cache.Read(ctx)
		if err != nil {
			g.log.Warn("wellness cache read failed", "error", err)
		} else if ok {
			g.succeeded(ctx, kind, OutcomeCache)
			return WellnessResult{Tips: entry.Tips, StressLevel: entry.StressLevel, Source: wellness.SourceCache}, nil
		}
	}

	content, err := g.complete(ctx, req)
	if err != nil {
		return WellnessResult{}, g.failed(ctx, kind, err)
	}
	tips, err := g.validator.wellnessTips(content)
	if err != nil {
		return WellnessResult{}, g.failed(ctx, kind, err)
	}

	if general && g.cache != nil {
		if err := g.cache.Write(ctx, tips, req.StressLevel); err != nil {
			g.log.Warn("wellness cache write failed", "error", err)
		}
	}
	g.succeeded(ctx, kind, OutcomeLive)
	return WellnessResult{Tips: tips, StressLevel: req.StressLevel, Source: wellness.SourceLive}, nil
}

// SolveDoubt explains a question in plain text with markdown symbols removed.
func (g *Gateway) SolveDoubt(ctx context.Context, req intent.DoubtRequest) (string, error) {
	content, err := g.complete(ctx, req)
	if err != nil {
		return "", g.failed(ctx, req.Kind(), err)
	}
	g.succeeded(ctx, req.Kind(), OutcomeLive)
	return SanitizeAnswer(content), nil
}

// complete runs the shared pipeline up to the raw response text:
// credential, validation, budget, probe, then one provider call.
func (g *Gateway) complete(ctx context.Context, in intent.Intent) (string, error) {
	if !g.Configured() {
		return "", ai.ErrMissingCredential
	}

	prompt, err := intent.Build(in)
	if err != nil {
		return "", err
	}

	if g.budget != nil {
		ok, err := g.budget.Check(g.budgetScope)
		if err != nil {
			return "", fmt.Errorf("check budget: %w", err)
		}
		if !ok {
			return "", ai.NewFailure(in.Kind().String(), ai.KindRateLimited, ErrBudgetExhausted)
		}
	}

	if g.probe != nil {
		if err := g.probe.Check(ctx); err != nil {
			return "", ai.NewFailure(in.Kind().String(), ai.KindOffline, err)
		}
	}

	g.log.Debug("ai request", "intent", in.Kind().String(), "model", g.model, "schema", prompt.Schema != nil)

	resp, err := g.provider.Complete(ctx, ai.CompletionRequest{
		Prompt:      prompt.Text,
		Model:       g.model,
		Temperature: prompt.Temperature,
		Schema:      prompt.Schema,
	})
	if err != nil {
		return "", err
	}

	if g.budget != nil {
		if err := g.budget.Record(g.budgetScope, resp.TotalTokens()); err != nil {
			g.log.Warn("record token usage failed", "error", err)
		}
	}
	return resp.Content, nil
}

// failed turns err into an *ai.Failure, logs it, and records the event.
// Request validation errors pass through unchanged.
func (g *Gateway) failed(ctx context.Context, kind intent.Kind, err error) error {
	if errors.Is(err, intent.ErrInvalidRequest) {
		return err
	}
	f := ai.Fail(kind.String(), err)
	k := ai.KindOf(f)
	g.log.Warn("ai request failed", "intent", kind.String(), "kind", k.String(), "error", err)
	g.record(ctx, kind, OutcomeFailure, k.String())
	return f
}

func (g *Gateway) succeeded(ctx context.Context, kind intent.Kind, outcome string) {
	g.record(ctx, kind, outcome, "")
}

func (g *Gateway) record(ctx context.Context, kind intent.Kind, outcome, failure string) {
	data := map[string]any{
		"intent":  kind.String(),
		"outcome": outcome,
	}
	if failure != "" {
		data["kind"] = failure
	}
	if err := g.events.Log(ctx, events.Event{Type: events.TypeAIRequest, Data: data}); err != nil {
		g.log.Warn("log ai event failed", "error", err)
	}
}
