package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	recalcNamespace string
	recalcMax       int
)

// recalcCmd re-derives projected deletion timestamps
var recalcCmd = &cobra.Command{
	Use:   "recalculate",
	Short: "Recalculate projected deletion timestamps",
	Long: `Re-derive the projected deletion timestamp of marked resources from
the current retention policy and maintenance windows. Timestamps only
ever move earlier; a running grace period is never extended.`,
	Example: `  sweeper recalculate --namespace prod:us-east-1:servergroup
  sweeper recalculate --namespace prod:us-east-1:servergroup --max 50`,
	RunE: runRecalc,
}

func init() {
	rootCmd.AddCommand(recalcCmd)
	recalcCmd.Flags().StringVarP(&recalcNamespace, "namespace", "n", "", "Limit to one namespace (account:region:type)")
	recalcCmd.Flags().IntVar(&recalcMax, "max", 0, "Maximum resources to update, oldest first (0 = unlimited)")
}

func runRecalc(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	units, err := rt.unitsFor(recalcNamespace)
	if err != nil {
		return err
	}

	for _, u := range units {
		updated, err := u.ctrl.RecalculateDeletionTimestamps(cmd.Context(), u.work, recalcMax)
		if err != nil {
			return err
		}
		fmt.Printf("namespace %s: %d timestamp(s) shortened\n", u.work.Namespace, updated)
	}
	return nil
}
