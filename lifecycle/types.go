// Package lifecycle drives the mark/notify/delete cycle for one namespace
// at a time. A resource is deleted only if it has been continuously
// marked, not excluded, not opted out, and has passed through
// notification.
package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/fieldbay/sweeper/config"
	"github.com/fieldbay/sweeper/events"
	"github.com/fieldbay/sweeper/exclusion"
	"github.com/fieldbay/sweeper/notify"
	"github.com/fieldbay/sweeper/owner"
	"github.com/fieldbay/sweeper/rules"
	"github.com/fieldbay/sweeper/schedule"
	"github.com/fieldbay/sweeper/store"
	"github.com/fieldbay/sweeper/telemetry"
	"github.com/fieldbay/sweeper/types"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotFound is returned by on-demand operations referencing a resource
// absent from the candidate source or the tracking repository. Cycle
// operations never return it; they skip instead.
var ErrNotFound = errors.New("resource not found")

// CandidateSource enumerates raw candidates for a namespace. Implemented
// per resource type by cloud providers.
type CandidateSource interface {
	GetCandidates(ctx context.Context, cfg types.WorkConfiguration) ([]types.Resource, error)
	GetCandidate(ctx context.Context, resourceID, name string, cfg types.WorkConfiguration) (*types.Resource, error)
}

// Preprocessor is the resource-type-specific hook run over the candidate
// batch before rule evaluation, e.g. attaching discovery health.
type Preprocessor interface {
	Preprocess(ctx context.Context, candidates []types.Candidate, cfg types.WorkConfiguration) ([]types.Candidate, error)
}

// Deleter removes resources. Implemented per resource type; may partially
// fail per batch.
type Deleter interface {
	DeleteResources(ctx context.Context, resources []types.MarkedResource, cfg types.WorkConfiguration) error
}

// CycleResult carries the per-cycle counters. Returned by value so cycles
// for different namespaces never share mutable state.
type CycleResult struct {
	Namespace types.Namespace `json:"namespace"`
	Action    types.Action    `json:"action"`
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`

	Scanned   int      `json:"scanned"`
	Processed int      `json:"processed"`
	Excluded  int      `json:"excluded"`
	Failed    int      `json:"failed"`
	Marked    int      `json:"marked"`
	Unmarked  int      `json:"unmarked"`
	Deleted   int      `json:"deleted"`
	Notified  int      `json:"notified"`
	Errors    []string `json:"errors,omitempty"`
}

// Evaluation is the outcome of a read-only candidate evaluation.
type Evaluation struct {
	ResourceID string          `json:"resource_id"`
	WouldMark  bool            `json:"would_mark"`
	Reason     string          `json:"reason,omitempty"`
	Summaries  []types.Summary `json:"summaries,omitempty"`
}

// Controller orchestrates lifecycle cycles for namespaces. It holds no
// cross-namespace state; concurrent cycles for different namespaces are
// safe as long as single-writer-per-namespace scheduling is enforced by
// the host.
type Controller struct {
	source     CandidateSource
	pre        Preprocessor
	deleter    Deleter
	evaluator  *rules.Evaluator
	exclusions *exclusion.Engine
	owners     owner.Resolver
	marked     store.MarkedRepository
	states     store.StateRepository
	usage      store.UseTrackingRepository
	publisher  events.Publisher
	queue      notify.Queue
	windows    *schedule.Windows
	dynamic    config.DynamicConfig

	logger  *telemetry.Logger
	tracer  trace.Tracer
	metrics *telemetry.CycleMetrics

	defaultOwner string
	unmarkCap    int
	clock        func() time.Time
}

// Deps wires the controller's collaborators.
type Deps struct {
	Source     CandidateSource
	Pre        Preprocessor
	Deleter    Deleter
	Evaluator  *rules.Evaluator
	Exclusions *exclusion.Engine
	Owners     owner.Resolver
	Marked     store.MarkedRepository
	States     store.StateRepository
	Usage      store.UseTrackingRepository
	Publisher  events.Publisher
	Queue      notify.Queue
	Windows    *schedule.Windows
	Dynamic    config.DynamicConfig

	DefaultOwner string
	UnmarkCap    int
	Metrics      *telemetry.CycleMetrics
	Clock        func() time.Time
}

// defaultUnmarkCap bounds the unmark sweep per cycle.
const defaultUnmarkCap = 250

// NewController creates a lifecycle controller.
func NewController(deps Deps) *Controller {
	c := &Controller{
		source:       deps.Source,
		pre:          deps.Pre,
		deleter:      deps.Deleter,
		evaluator:    deps.Evaluator,
		exclusions:   deps.Exclusions,
		owners:       deps.Owners,
		marked:       deps.Marked,
		states:       deps.States,
		usage:        deps.Usage,
		publisher:    deps.Publisher,
		queue:        deps.Queue,
		windows:      deps.Windows,
		dynamic:      deps.Dynamic,
		defaultOwner: deps.DefaultOwner,
		unmarkCap:    deps.UnmarkCap,
		metrics:      deps.Metrics,
		clock:        deps.Clock,
		logger:       telemetry.NewLogger("lifecycle"),
		tracer:       telemetry.Tracer,
	}

	if c.exclusions == nil {
		c.exclusions = exclusion.NewEngine()
	}
	if c.publisher == nil {
		c.publisher = events.Discard{}
	}
	if c.queue == nil {
		c.queue = notify.NewDirectQueue(notify.NewLogNotifier())
	}
	if c.windows == nil {
		c.windows = schedule.Always()
	}
	if c.dynamic == nil {
		c.dynamic = config.StaticDynamicConfig{}
	}
	if c.unmarkCap <= 0 {
		c.unmarkCap = defaultUnmarkCap
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	return c
}

// now returns the controller's current time.
func (c *Controller) now() time.Time {
	return c.clock()
}

// maxItems returns the effective per-cycle item cap, consulting the
// dynamic override.
func (c *Controller) maxItems(cfg types.WorkConfiguration) int {
	return c.dynamic.MaxItemsPerCycle(cfg.Namespace, cfg.MaxItemsPerCycle)
}

// enrich resolves an owner and produces an enriched candidate.
func (c *Controller) enrich(ctx context.Context, resource types.Resource, cfg types.WorkConfiguration) types.Candidate {
	def := cfg.Notifications.DefaultDestination
	if def == "" {
		def = c.defaultOwner
	}
	return types.Enrich(resource, owner.ResolveOrDefault(ctx, c.owners, resource, def))
}

// preprocess runs the resource-type hook if configured.
func (c *Controller) preprocess(ctx context.Context, candidates []types.Candidate, cfg types.WorkConfiguration) ([]types.Candidate, error) {
	if c.pre == nil {
		return candidates, nil
	}
	return c.pre.Preprocess(ctx, candidates, cfg)
}

// publish fires an event; failures are logged and swallowed since
// publication is fire-and-forget.
func (c *Controller) publish(ctx context.Context, event events.Event) {
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger.WithContext(ctx).Warn().
			Err(err).
			Str("event_type", string(event.Type)).
			Str("resource_id", event.ResourceID).
			Msg("event publication failed")
	}
}

func (c *Controller) newResult(ns types.Namespace, action types.Action) *CycleResult {
	return &CycleResult{
		Namespace: ns,
		Action:    action,
		StartedAt: c.now(),
	}
}

func (c *Controller) finishResult(ctx context.Context, result *CycleResult) *CycleResult {
	result.Duration = c.now().Sub(result.StartedAt)

	if c.metrics != nil {
		ns := result.Namespace.String()
		action := string(result.Action)
		c.metrics.RecordProcessed(ctx, ns, action, int64(result.Processed))
		c.metrics.RecordCycleDuration(ctx, ns, action, float64(result.Duration.Milliseconds()))
	}

	c.logger.WithContext(ctx).Info().
		Str("namespace", result.Namespace.String()).
		Str("action", string(result.Action)).
		Int("scanned", result.Scanned).
		Int("processed", result.Processed).
		Int("excluded", result.Excluded).
		Int("failed", result.Failed).
		Int("marked", result.Marked).
		Int("unmarked", result.Unmarked).
		Int("deleted", result.Deleted).
		Int("notified", result.Notified).
		Dur("duration", result.Duration).
		Msg("cycle complete")

	return result
}

// countExclusion records an exclusion in both the result and the metrics.
func (c *Controller) countExclusion(ctx context.Context, result *CycleResult, reason string) {
	result.Excluded++
	if c.metrics != nil {
		c.metrics.RecordExclusion(ctx, result.Namespace.String(), string(result.Action), reason)
	}
}

// countFailure records an isolated per-candidate failure.
func (c *Controller) countFailure(ctx context.Context, result *CycleResult, resourceID string, err error) {
	result.Failed++
	result.Errors = append(result.Errors, err.Error())
	if c.metrics != nil {
		c.metrics.RecordFailure(ctx, result.Namespace.String(), string(result.Action))
	}
	c.logger.LogCandidateSkipped(ctx, result.Namespace.String(), resourceID, err)
}
