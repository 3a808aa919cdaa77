package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldbay/sweeper/lifecycle"
)

var markNamespace string

// markCmd runs one mark cycle
var markCmd = &cobra.Command{
	Use:   "mark",
	Short: "Run a mark cycle",
	Long: `Scan candidates, evaluate cleanup rules, and mark violators for
deletion. Resources that stopped violating, or that vanished upstream,
have their marks retracted.`,
	Example: `  sweeper mark                                      # All namespaces
  sweeper mark --namespace prod:us-east-1:servergroup`,
	RunE: runMark,
}

func init() {
	rootCmd.AddCommand(markCmd)
	markCmd.Flags().StringVarP(&markNamespace, "namespace", "n", "", "Limit to one namespace (account:region:type)")
}

func runMark(cmd *cobra.Command, args []string) error {
	return runCycles(cmd.Context(), markNamespace, func(ctx context.Context, u workUnit) (*lifecycle.CycleResult, error) {
		return u.ctrl.Mark(ctx, u.work)
	})
}

// runCycles executes one cycle function across the selected work units.
func runCycles(ctx context.Context, selector string, cycle func(context.Context, workUnit) (*lifecycle.CycleResult, error)) error {
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	units, err := rt.unitsFor(selector)
	if err != nil {
		return err
	}

	var firstErr error
	for _, u := range units {
		result, err := cycle(ctx, u)
		if err != nil {
			fmt.Printf("namespace %s: cycle failed: %v\n", u.work.Namespace, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		printResult(result)
	}
	return firstErr
}

func printResult(r *lifecycle.CycleResult) {
	fmt.Printf("namespace %s: %s cycle finished in %s\n", r.Namespace, r.Action, r.Duration.Round(time.Millisecond))
	fmt.Printf("  scanned=%d processed=%d excluded=%d failed=%d\n", r.Scanned, r.Processed, r.Excluded, r.Failed)
	fmt.Printf("  marked=%d unmarked=%d notified=%d deleted=%d\n", r.Marked, r.Unmarked, r.Notified, r.Deleted)
	for _, msg := range r.Errors {
		fmt.Printf("  error: %s\n", msg)
	}
}
