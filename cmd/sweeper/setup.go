package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fieldbay/sweeper/config"
	"github.com/fieldbay/sweeper/events"
	"github.com/fieldbay/sweeper/exclusion"
	"github.com/fieldbay/sweeper/lifecycle"
	"github.com/fieldbay/sweeper/notify"
	"github.com/fieldbay/sweeper/owner"
	awsprovider "github.com/fieldbay/sweeper/providers/aws"
	"github.com/fieldbay/sweeper/rules"
	"github.com/fieldbay/sweeper/store"
	"github.com/fieldbay/sweeper/telemetry"
	"github.com/fieldbay/sweeper/types"
)

// disabledServerGroupStaleDays is how long a server group must sit
// disabled with no healthy instances before the rule fires.
const disabledServerGroupStaleDays = 30

// workUnit pairs a namespace policy with its lifecycle controller.
type workUnit struct {
	work types.WorkConfiguration
	ctrl *lifecycle.Controller
}

// runtime holds everything a command needs to drive cycles.
type runtime struct {
	cfg          *config.Config
	store        *store.BoltStore
	journal      *events.Journal
	metrics      *telemetry.CycleMetrics
	dynamic      *config.OverridableConfig
	units        []workUnit
	otelShutdown func(context.Context) error
}

// newRuntime loads configuration and wires a controller per work unit.
func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	otelShutdown, err := telemetry.InitOTEL(ctx, telemetry.Config{
		ServiceName:    "sweeper",
		ServiceVersion: version,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init telemetry: %w", err)
	}

	metrics, err := telemetry.InitCycleMetrics(telemetry.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	windows, err := cfg.BuildWindows()
	if err != nil {
		return nil, err
	}

	st, err := store.NewBoltStore(cfg.StorageDir)
	if err != nil {
		return nil, err
	}

	journalDir := cfg.JournalDir
	if journalDir == "" {
		journalDir = cfg.StorageDir
	}
	journal, err := events.OpenJournal(journalDir)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	rt := &runtime{
		cfg:          cfg,
		store:        st,
		journal:      journal,
		metrics:      metrics,
		dynamic:      &config.OverridableConfig{},
		otelShutdown: otelShutdown,
	}

	registry := rules.NewRegistry()
	registry.Register(awsprovider.ResourceType,
		rules.AlwaysCleanRule{},
		rules.NewDisabledServerGroupRule(disabledServerGroupStaleDays),
	)
	evaluator := rules.NewEvaluator(registry)

	engine, err := buildExclusionEngine(ctx, cfg)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	queue := notify.NewDirectQueue(notify.NewLogNotifier())
	resolver := owner.Chain{
		owner.DetailResolver{Key: "owner"},
		owner.Static{Owner: cfg.DefaultOwner},
	}

	for _, unitCfg := range cfg.Units {
		work := unitCfg.ToWorkConfiguration()

		provider, err := providerFor(ctx, work.Namespace)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}

		ctrl := lifecycle.NewController(lifecycle.Deps{
			Source:       provider,
			Pre:          provider,
			Deleter:      provider,
			Evaluator:    evaluator,
			Exclusions:   engine,
			Owners:       resolver,
			Marked:       st.Marked(),
			States:       st.States(),
			Usage:        st.Usage(),
			Publisher:    journal,
			Queue:        queue,
			Windows:      windows,
			Dynamic:      rt.dynamic,
			DefaultOwner: cfg.DefaultOwner,
			Metrics:      metrics,
		})

		rt.units = append(rt.units, workUnit{work: work, ctrl: ctrl})
	}

	return rt, nil
}

// buildExclusionEngine registers the standard policies plus any Rego
// policies named in the config.
func buildExclusionEngine(ctx context.Context, cfg *config.Config) (*exclusion.Engine, error) {
	extras := make([]exclusion.Policy, 0, len(cfg.RegoPolicies))
	for _, rp := range cfg.RegoPolicies {
		code, err := os.ReadFile(rp.File) // #nosec G304 -- path comes from operator config
		if err != nil {
			return nil, fmt.Errorf("failed to read rego policy %s: %w", rp.Name, err)
		}
		policy, err := exclusion.NewRegoPolicy(ctx, rp.Name, string(code))
		if err != nil {
			return nil, err
		}
		extras = append(extras, policy)
	}
	return exclusion.NewEngine(extras...), nil
}

// providerFor builds the provider backing a namespace.
func providerFor(ctx context.Context, ns types.Namespace) (*awsprovider.ServerGroups, error) {
	if ns.ResourceType != awsprovider.ResourceType {
		return nil, fmt.Errorf("unsupported resource type %q", ns.ResourceType)
	}
	return awsprovider.NewServerGroups(ctx, ns.Region)
}

// unitsFor finds the work unit for a namespace string, or all units when
// the selector is empty.
func (rt *runtime) unitsFor(selector string) ([]workUnit, error) {
	if selector == "" {
		return rt.units, nil
	}
	for _, u := range rt.units {
		if u.work.Namespace.String() == selector {
			return []workUnit{u}, nil
		}
	}
	return nil, fmt.Errorf("no work unit configured for namespace %q", selector)
}

// Close releases the runtime's resources.
func (rt *runtime) Close() error {
	var firstErr error
	if rt.journal != nil {
		if err := rt.journal.Close(); err != nil {
			firstErr = err
		}
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if rt.otelShutdown != nil {
		if err := rt.otelShutdown(context.Background()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
