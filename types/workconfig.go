package types

import "fmt"

// ExclusionRule selects a named exclusion policy and the values it matches
// against, e.g. policy "literal" with a list of resource names.
type ExclusionRule struct {
	Policy string   `json:"policy" yaml:"policy"`
	Values []string `json:"values" yaml:"values"`
}

// NotificationSettings controls the notify cycle for a namespace.
type NotificationSettings struct {
	Enabled            bool   `json:"enabled" yaml:"enabled"`
	DefaultDestination string `json:"default_destination" yaml:"default_destination"`
}

// WorkConfiguration is the immutable per-cycle policy for one namespace.
// It is constructed once per scheduled invocation and read-only during
// the cycle.
type WorkConfiguration struct {
	Namespace               Namespace            `json:"namespace"`
	MaxAgeDays              int                  `json:"max_age_days"`
	RetentionDays           int                  `json:"retention_days"`
	DryRun                  bool                 `json:"dry_run"`
	ItemsProcessedBatchSize int                  `json:"items_processed_batch_size"`
	MaxItemsPerCycle        int                  `json:"max_items_per_cycle"`
	Notifications           NotificationSettings `json:"notifications"`
	Exclusions              []ExclusionRule      `json:"exclusions,omitempty"`
}

// Validate checks the configuration is usable for a cycle.
func (w WorkConfiguration) Validate() error {
	if w.Namespace.IsZero() {
		return fmt.Errorf("work configuration requires a namespace")
	}
	if w.RetentionDays < 0 {
		return fmt.Errorf("retention days must not be negative")
	}
	if w.MaxAgeDays < 0 {
		return fmt.Errorf("max age days must not be negative")
	}
	if w.ItemsProcessedBatchSize <= 0 {
		return fmt.Errorf("items processed batch size must be positive")
	}
	return nil
}
