package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/fieldbay/sweeper/lifecycle"
	"github.com/fieldbay/sweeper/telemetry"
)

var (
	daemonInterval    time.Duration
	daemonMetricsAddr string
)

// daemonCmd runs the janitor continuously
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run continuous mark/notify/delete cycles",
	Long: `Run Sweeper as a long-lived daemon. Every interval, each configured
namespace goes through a mark, notify, and delete cycle in order.

Prometheus metrics are served on /metrics and liveness on /health.
The daemon shuts down gracefully on SIGTERM/SIGINT.`,
	Example: `  sweeper daemon                         # Cycle every 30 minutes
  sweeper daemon --interval 10m
  sweeper daemon --metrics-addr :9090`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.Flags().DurationVar(&daemonInterval, "interval", 30*time.Minute, "Cycle interval")
	daemonCmd.Flags().StringVar(&daemonMetricsAddr, "metrics-addr", ":2112", "Metrics HTTP server address")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	fmt.Printf("Starting sweeper daemon: %d namespace(s), interval %s, metrics on %s\n",
		len(rt.units), daemonInterval, daemonMetricsAddr)

	var group run.Group

	group.Add(run.SignalHandler(cmd.Context(), syscall.SIGINT, syscall.SIGTERM))

	srv := metricsServer(daemonMetricsAddr)
	group.Add(
		func() error { return srv.ListenAndServe() },
		func(error) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		},
	)

	schedulerCtx, cancelScheduler := context.WithCancel(cmd.Context())
	group.Add(
		func() error { return runScheduler(schedulerCtx, rt) },
		func(error) { cancelScheduler() },
	)

	err = group.Run()

	var sig run.SignalError
	if errors.As(err, &sig) {
		fmt.Printf("Received %s, daemon stopped\n", sig.Signal)
		return nil
	}
	return err
}

// metricsServer serves the Prometheus registry and health checks.
func metricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		telemetry.PrometheusRegistry,
		promhttp.HandlerOpts{Registry: telemetry.PrometheusRegistry},
	))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// runScheduler drives cycles for every work unit until the context ends.
// The first pass starts immediately.
func runScheduler(ctx context.Context, rt *runtime) error {
	ticker := time.NewTicker(daemonInterval)
	defer ticker.Stop()

	for {
		runAllCycles(ctx, rt)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// runAllCycles runs mark, notify, delete for every namespace. Namespaces
// proceed concurrently; within a namespace the cycles run in order, so
// each namespace has exactly one writer at a time. Cycle failures are
// printed and skipped; the daemon keeps going.
func runAllCycles(ctx context.Context, rt *runtime) {
	type cycle struct {
		name string
		fn   func(context.Context, workUnit) (*lifecycle.CycleResult, error)
	}
	cycles := []cycle{
		{"mark", func(ctx context.Context, u workUnit) (*lifecycle.CycleResult, error) { return u.ctrl.Mark(ctx, u.work) }},
		{"notify", func(ctx context.Context, u workUnit) (*lifecycle.CycleResult, error) { return u.ctrl.Notify(ctx, u.work) }},
		{"delete", func(ctx context.Context, u workUnit) (*lifecycle.CycleResult, error) { return u.ctrl.Delete(ctx, u.work) }},
	}

	var wg sync.WaitGroup
	for _, u := range rt.units {
		wg.Add(1)
		go func(u workUnit) {
			defer wg.Done()
			for _, c := range cycles {
				if ctx.Err() != nil {
					return
				}
				result, err := c.fn(ctx, u)
				if err != nil {
					fmt.Printf("namespace %s: %s cycle failed: %v\n", u.work.Namespace, c.name, err)
					continue
				}
				printResult(result)
			}
		}(u)
	}
	wg.Wait()
}
