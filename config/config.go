package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fieldbay/sweeper/schedule"
	"github.com/fieldbay/sweeper/types"
)

// Config is the main sweeper configuration: one work unit per namespace
// plus shared deletion windows and defaults.
type Config struct {
	Version      string             `yaml:"version"`
	DefaultOwner string             `yaml:"default_owner"`
	StorageDir   string             `yaml:"storage_dir"`
	JournalDir   string             `yaml:"journal_dir"`
	Windows      []WindowConfig     `yaml:"deletion_windows,omitempty"`
	RegoPolicies []RegoPolicyConfig `yaml:"rego_policies,omitempty"`
	Units        []WorkUnitConfig   `yaml:"work_units"`
}

// RegoPolicyConfig registers a Rego exclusion policy loaded from a file.
// Work units reference it by name in their exclusions.
type RegoPolicyConfig struct {
	Name string `yaml:"name"`
	File string `yaml:"file"`
}

// WorkUnitConfig configures the janitor for one namespace.
type WorkUnitConfig struct {
	Namespace               types.Namespace            `yaml:"namespace"`
	MaxAgeDays              int                        `yaml:"max_age_days"`
	RetentionDays           int                        `yaml:"retention_days"`
	DryRun                  bool                       `yaml:"dry_run"`
	ItemsProcessedBatchSize int                        `yaml:"items_processed_batch_size"`
	MaxItemsPerCycle        int                        `yaml:"max_items_per_cycle"`
	Notifications           types.NotificationSettings `yaml:"notifications"`
	Exclusions              []types.ExclusionRule      `yaml:"exclusions,omitempty"`
}

// WindowConfig is one recurring deletion window in the config file.
type WindowConfig struct {
	Days      []string `yaml:"days"`
	StartHour int      `yaml:"start_hour"`
	EndHour   int      `yaml:"end_hour"`
}

// Load reads and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate ensures the config has required fields.
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}
	if len(c.Units) == 0 {
		return fmt.Errorf("at least one work unit is required")
	}
	for i, unit := range c.Units {
		if err := unit.ToWorkConfiguration().Validate(); err != nil {
			return fmt.Errorf("work unit %d: %w", i, err)
		}
	}
	for _, w := range c.Windows {
		if _, err := parseWeekdays(w.Days); err != nil {
			return err
		}
	}
	for _, rp := range c.RegoPolicies {
		if rp.Name == "" || rp.File == "" {
			return fmt.Errorf("rego policy needs both name and file")
		}
	}
	return nil
}

// ToWorkConfiguration converts a unit config into the immutable per-cycle
// policy, applying defaults for unset fields.
func (u WorkUnitConfig) ToWorkConfiguration() types.WorkConfiguration {
	cfg := types.WorkConfiguration{
		Namespace:               u.Namespace,
		MaxAgeDays:              u.MaxAgeDays,
		RetentionDays:           u.RetentionDays,
		DryRun:                  u.DryRun,
		ItemsProcessedBatchSize: u.ItemsProcessedBatchSize,
		MaxItemsPerCycle:        u.MaxItemsPerCycle,
		Notifications:           u.Notifications,
		Exclusions:              u.Exclusions,
	}
	if cfg.ItemsProcessedBatchSize == 0 {
		cfg.ItemsProcessedBatchSize = 10
	}
	if cfg.MaxItemsPerCycle == 0 {
		cfg.MaxItemsPerCycle = 100
	}
	return cfg
}

// BuildWindows converts window configs into a schedule resolver.
func (c *Config) BuildWindows() (*schedule.Windows, error) {
	if len(c.Windows) == 0 {
		return schedule.Always(), nil
	}

	windows := make([]schedule.Window, 0, len(c.Windows))
	for _, w := range c.Windows {
		days, err := parseWeekdays(w.Days)
		if err != nil {
			return nil, err
		}
		windows = append(windows, schedule.Window{
			Days:      days,
			StartHour: w.StartHour,
			EndHour:   w.EndHour,
		})
	}
	return schedule.New(windows, time.UTC)
}

func parseWeekdays(names []string) ([]time.Weekday, error) {
	byName := map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}

	days := make([]time.Weekday, 0, len(names))
	for _, name := range names {
		day, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		days = append(days, day)
	}
	return days, nil
}
