// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences one kit request: clarification, kit
// generation, then query building, search and ranking for every item.
//
// A run ends in one of two states. Questions halts the pipeline; the caller
// answers and re-invokes Run with a longer history. FinalKit is a kit whose
// items carry purchase metadata where a product was found. Nothing is kept
// between runs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/kit-engine/internal/clarify"
	"github.com/pdiddy/kit-engine/internal/errs"
	"github.com/pdiddy/kit-engine/internal/kit"
	"github.com/pdiddy/kit-engine/internal/query"
	"github.com/pdiddy/kit-engine/internal/telemetry"
	"github.com/pdiddy/kit-engine/pkg/types"
)

// Defaults for the orchestrator.
const (
	DefaultMaxRounds   = 3
	DefaultConcurrency = 4

	// fallbackPrice is shown when a product link has no listed price.
	fallbackPrice = "View"
)

// stallNotice is appended to the rendered history when clarification stops
// making progress.
const stallNotice = "ASSISTANT: No further clarification is available; proceed with the information provided."

// ErrNoInput is returned for a blank request.
var ErrNoInput = errors.New("no input provided")

// googleShoppingURL is the base for synthesized search links.
var googleShoppingURL = "https://www.google.com/search?tbm=shop&q="

// Gate decides whether a request needs clarification.
type Gate interface {
	Decide(ctx context.Context, userText, history, preferences string) (clarify.Outcome, error)
}

// KitBuilder produces the abstract kit.
type KitBuilder interface {
	Build(ctx context.Context, task kit.Task, clarifications, preferences string) (types.Kit, error)
}

// Searcher resolves a query to candidates. It never fails.
type Searcher interface {
	Search(ctx context.Context, query string) []types.SearchCandidate
}

// Ranker orders candidates for one item.
type Ranker interface {
	Rank(item types.KitItem, candidates []types.SearchCandidate) []types.RankedMatch
}

// Orchestrator runs requests through the pipeline stages.
type Orchestrator struct {
	gate     Gate
	builder  KitBuilder
	searcher Searcher
	ranker   Ranker

	maxRounds   int
	concurrency int
	fallback    types.FallbackPolicy
	logger      *zap.Logger
	tracer      trace.Tracer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTracer sets the tracer used for stage spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithConfig applies clarification and pipeline settings. Zero values keep
// the defaults.
func WithConfig(clarifyCfg types.ClarifyConfig, cfg types.PipelineConfig) Option {
	return func(o *Orchestrator) {
		if clarifyCfg.MaxRounds > 0 {
			o.maxRounds = clarifyCfg.MaxRounds
		}
		if cfg.Concurrency > 0 {
			o.concurrency = cfg.Concurrency
		}
		if cfg.Fallback != "" {
			o.fallback = cfg.Fallback
		}
	}
}

// New returns an Orchestrator over the given stages.
func New(gate Gate, builder KitBuilder, searcher Searcher, ranker Ranker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gate:        gate,
		builder:     builder,
		searcher:    searcher,
		ranker:      ranker,
		maxRounds:   DefaultMaxRounds,
		concurrency: DefaultConcurrency,
		fallback:    types.FallbackFirstResult,
		logger:      zap.NewNop(),
		tracer:      telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type runOptions struct {
	preferences string
}

// RunOption configures a single Run.
type RunOption func(*runOptions)

// WithPreferences passes free-form user preferences to the gate and the kit
// generator.
func WithPreferences(p string) RunOption {
	return func(r *runOptions) { r.preferences = p }
}

// Run processes one request. A non-nil error means clarification or kit
// generation failed; search and matching problems never fail a run.
func (o *Orchestrator) Run(ctx context.Context, userText string, history types.History, opts ...RunOption) (Result, error) {
	if strings.TrimSpace(userText) == "" {
		return Result{}, ErrNoInput
	}
	var ro runOptions
	for _, opt := range opts {
		opt(&ro)
	}

	runID := uuid.NewString()
	log := o.logger.With(zap.String("run_id", runID))
	ctx, span := o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("history_turns", len(history)),
	))
	defer span.End()

	rendered := history.Render()

	task, rendered, questions, err := o.clarify(ctx, log, userText, history, rendered, ro.preferences)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "clarification failed")
		return Result{}, err
	}
	if questions != nil {
		span.SetAttributes(attribute.String("outcome", string(types.KitTypeQuestions)))
		log.Info("clarification needed", zap.Int("questions", len(questions)))
		return Result{Type: types.KitTypeQuestions, Questions: questions}, nil
	}

	k, err := o.generate(ctx, task, rendered, ro.preferences)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "kit generation failed")
		return Result{}, err
	}

	o.resolveItems(ctx, log, &k)
	k.Type = types.KitTypeFinal

	span.SetAttributes(
		attribute.String("outcome", string(types.KitTypeFinal)),
		attribute.Int("items", k.ItemCount()),
	)
	log.Info("kit complete",
		zap.String("kit_title", k.KitTitle),
		zap.Int("items", k.ItemCount()),
		zap.Int("purchasable", purchasable(k)))
	return Result{Type: types.KitTypeFinal, Kit: &k}, nil
}

// clarify runs the gate and applies the override and stall rules. It returns
// either questions to ask or the task to build, plus the (possibly
// extended) rendered history.
func (o *Orchestrator) clarify(ctx context.Context, log *zap.Logger, userText string, history types.History, rendered, preferences string) (kit.Task, string, []string, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline.clarify")
	defer span.End()

	outcome, err := o.gate.Decide(ctx, userText, rendered, preferences)
	if err != nil {
		span.RecordError(err)
		return kit.Task{}, rendered, nil, fmt.Errorf("clarification failed: %w", err)
	}

	switch out := outcome.(type) {
	case clarify.Proceed:
		task := out.Task
		return kit.Task{Interpretation: &task, Text: userText}, rendered, nil, nil

	case clarify.NeedsClarification:
		if reason := stalled(out.Questions, history, o.maxRounds); reason != "" {
			span.SetAttributes(attribute.String("stalled", reason))
			log.Warn("proceeding without clarification",
				zap.Error(errs.ErrStalledDialogue),
				zap.String("reason", reason))
			return kit.Task{Text: userText}, appendTurn(rendered, stallNotice), nil, nil
		}
		if Override(userText, history) {
			span.SetAttributes(attribute.Bool("override", true))
			log.Info("clarification overridden", zap.Bool("has_history", len(history) > 0))
			return kit.Task{Text: userText}, rendered, nil, nil
		}
		return kit.Task{}, rendered, out.Questions, nil

	default:
		return kit.Task{}, rendered, nil, fmt.Errorf("clarification: unexpected outcome %T", outcome)
	}
}

func (o *Orchestrator) generate(ctx context.Context, task kit.Task, clarifications, preferences string) (types.Kit, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline.generate_kit")
	defer span.End()

	k, err := o.builder.Build(ctx, task, clarifications, preferences)
	if err != nil {
		span.RecordError(err)
		return types.Kit{}, fmt.Errorf("kit generation failed: %w", err)
	}
	span.SetAttributes(attribute.Int("items", k.ItemCount()))
	return k, nil
}

// resolveItems searches and ranks every item with bounded concurrency.
// Each goroutine writes only to its own item.
func (o *Orchestrator) resolveItems(ctx context.Context, log *zap.Logger, k *types.Kit) {
	var g errgroup.Group
	g.SetLimit(o.concurrency)

	for si := range k.Sections {
		for ii := range k.Sections[si].Items {
			item := &k.Sections[si].Items[ii]
			g.Go(func() error {
				o.resolveItem(ctx, log, item)
				return nil
			})
		}
	}
	_ = g.Wait()
}

func (o *Orchestrator) resolveItem(ctx context.Context, log *zap.Logger, item *types.KitItem) {
	ctx, span := o.tracer.Start(ctx, "pipeline.resolve_item",
		trace.WithAttributes(attribute.String("item_key", item.ItemKey)))
	defer span.End()

	plan := query.Build(*item)
	q := plan.CleanQuery
	results := o.searcher.Search(ctx, q)
	if len(results) == 0 && plan.ExpandedQuery != "" && plan.ExpandedQuery != plan.CleanQuery {
		q = plan.ExpandedQuery
		results = o.searcher.Search(ctx, q)
	}

	ilog := log.With(zap.String("item_key", item.ItemKey), zap.String("query", q))

	if matches := o.ranker.Rank(*item, results); len(matches) > 0 {
		best := matches[0]
		attach(item, best.Candidate, &types.MatchInfo{
			Kind:       types.MatchRanked,
			Confidence: best.Confidence,
			Reasons:    best.Reasons,
			Source:     best.Candidate.Source,
		})
		span.SetAttributes(attribute.Float64("confidence", best.Confidence))
		ilog.Debug("item matched", zap.Float64("confidence", best.Confidence), zap.Strings("reasons", best.Reasons))
		return
	}

	switch o.fallback {
	case types.FallbackFirstResult:
		if len(results) > 0 {
			attach(item, results[0], &types.MatchInfo{Kind: types.MatchRawFallback, Source: results[0].Source})
			ilog.Warn("item fell back to first result")
			return
		}
	case types.FallbackSearchLink:
		if q != "" {
			item.BuyURL = googleShoppingURL + url.QueryEscape(q)
			item.Price = fallbackPrice
			item.Match = &types.MatchInfo{Kind: types.MatchSearchLink, Source: "google_shopping"}
			ilog.Warn("item given a search link")
			return
		}
	}
	ilog.Info("no product found for item", zap.Int("results", len(results)))
}

func attach(item *types.KitItem, c types.SearchCandidate, info *types.MatchInfo) {
	item.BuyURL = c.URL
	item.Price = c.Price
	if item.Price == "" {
		item.Price = fallbackPrice
	}
	item.ImgURL = c.ImgURL
	item.Match = info
}

// Override reports whether a request must proceed regardless of the gate:
// prior turns exist, or the text states a concrete constraint (a currency
// symbol or any digit).
func Override(userText string, history types.History) bool {
	if len(history) > 0 {
		return true
	}
	return strings.IndexFunc(userText, func(r rune) bool {
		return unicode.Is(unicode.Sc, r) || unicode.IsDigit(r)
	}) >= 0
}

// stalled returns a non-empty reason when asking again would not help.
func stalled(questions []string, history types.History, maxRounds int) string {
	if len(questions) == 0 {
		return "no questions offered"
	}
	if history.Rounds() >= maxRounds {
		return "round limit reached"
	}
	asked := history.Questions()
	for _, q := range questions {
		if slices.ContainsFunc(asked, func(a string) bool { return strings.EqualFold(strings.TrimSpace(a), q) }) {
			return "question repeated"
		}
	}
	return ""
}

func appendTurn(rendered, turn string) string {
	if rendered == "" {
		return turn
	}
	return rendered + "\n" + turn
}

func purchasable(k types.Kit) int {
	n := 0
	for _, s := range k.Sections {
		for _, it := range s.Items {
			if it.HasPurchase() {
				n++
			}
		}
	}
	return n
}
