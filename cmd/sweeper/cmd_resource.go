package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	resourceNamespace string
	resourceReason    string
)

// resourceCmd groups on-demand single-resource operations
var resourceCmd = &cobra.Command{
	Use:   "resource",
	Short: "On-demand operations on a single resource",
}

var resourceMarkCmd = &cobra.Command{
	Use:   "mark <resource-id>",
	Short: "Mark one resource for deletion, bypassing rule evaluation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUnit(cmd, func(rt *runtime, u workUnit) error {
			m, err := u.ctrl.MarkResource(cmd.Context(), args[0], args[0], u.work, resourceReason)
			if err != nil {
				return err
			}
			fmt.Printf("marked %s, projected deletion at %s\n", m.Resource.ID, m.ProjectedDeletionAt.Format("2006-01-02 15:04 MST"))
			return nil
		})
	},
}

var resourceDeleteCmd = &cobra.Command{
	Use:   "delete <resource-id>",
	Short: "Delete one marked resource immediately",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUnit(cmd, func(rt *runtime, u workUnit) error {
			if err := u.ctrl.DeleteResource(cmd.Context(), args[0], u.work); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		})
	},
}

var resourceOptOutCmd = &cobra.Command{
	Use:   "optout <resource-id>",
	Short: "Permanently withhold one resource from marking and deletion",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUnit(cmd, func(rt *runtime, u workUnit) error {
			m, err := u.ctrl.OptOut(cmd.Context(), args[0], u.work)
			if err != nil {
				return err
			}
			fmt.Printf("opted out %s (owner %s)\n", m.Resource.ID, m.ResourceOwner)
			return nil
		})
	},
	Args: cobra.ExactArgs(1),
}

var resourceEvaluateCmd = &cobra.Command{
	Use:   "evaluate <resource-id>",
	Short: "Dry-run rule evaluation for one resource",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUnit(cmd, func(rt *runtime, u workUnit) error {
			eval, err := u.ctrl.EvaluateCandidate(cmd.Context(), args[0], args[0], u.work)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(eval, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(resourceCmd)
	resourceCmd.AddCommand(resourceMarkCmd, resourceDeleteCmd, resourceOptOutCmd, resourceEvaluateCmd)

	resourceCmd.PersistentFlags().StringVarP(&resourceNamespace, "namespace", "n", "", "Namespace (account:region:type), required")
	resourceMarkCmd.Flags().StringVar(&resourceReason, "reason", "", "Why the resource is being marked")
	_ = resourceCmd.MarkPersistentFlagRequired("namespace")
}

// withUnit runs fn against the single work unit named by --namespace.
func withUnit(cmd *cobra.Command, fn func(*runtime, workUnit) error) error {
	rt, err := newRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	units, err := rt.unitsFor(resourceNamespace)
	if err != nil {
		return err
	}
	return fn(rt, units[0])
}
