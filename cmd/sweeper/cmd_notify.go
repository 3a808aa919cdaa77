package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fieldbay/sweeper/lifecycle"
)

var notifyNamespace string

// notifyCmd runs one notify cycle
var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Run a notify cycle",
	Long: `Tell owners about marked resources awaiting deletion. Namespaces
with notifications disabled get their records stamped silently, with the
grace period extended by the time already spent marked.`,
	Example: `  sweeper notify
  sweeper notify --namespace prod:us-east-1:servergroup`,
	RunE: runNotify,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.Flags().StringVarP(&notifyNamespace, "namespace", "n", "", "Limit to one namespace (account:region:type)")
}

func runNotify(cmd *cobra.Command, args []string) error {
	return runCycles(cmd.Context(), notifyNamespace, func(ctx context.Context, u workUnit) (*lifecycle.CycleResult, error) {
		return u.ctrl.Notify(ctx, u.work)
	})
}
