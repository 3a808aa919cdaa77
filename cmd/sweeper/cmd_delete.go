package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fieldbay/sweeper/lifecycle"
)

var deleteNamespace string

// deleteCmd runs one delete cycle
var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Run a delete cycle",
	Long: `Delete marked resources whose grace period has elapsed and whose
owners were notified. Every candidate is re-validated against live
upstream data first; resources that recovered are unmarked instead.`,
	Example: `  sweeper delete
  sweeper delete --namespace prod:us-east-1:servergroup`,
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().StringVarP(&deleteNamespace, "namespace", "n", "", "Limit to one namespace (account:region:type)")
}

func runDelete(cmd *cobra.Command, args []string) error {
	return runCycles(cmd.Context(), deleteNamespace, func(ctx context.Context, u workUnit) (*lifecycle.CycleResult, error) {
		return u.ctrl.Delete(ctx, u.work)
	})
}
