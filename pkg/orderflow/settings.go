package orderflow

import (
	"github.com/shopspring/decimal"

	"github.com/randalmurphal/orderflow/pkg/orderflow/aggregate"
	"github.com/randalmurphal/orderflow/pkg/orderflow/config"
	"github.com/randalmurphal/orderflow/pkg/orderflow/deadletter"
	"github.com/randalmurphal/orderflow/pkg/orderflow/notify"
	"github.com/randalmurphal/orderflow/pkg/orderflow/route"
)

// Settings sizes and tunes the pipeline.
type Settings struct {
	// HighValueThreshold is the inclusive lower bound for high-value routing.
	// Default: 500.00
	HighValueThreshold decimal.Decimal

	// BatchSize is how many orders per customer close an aggregate.
	// Default: 3
	BatchSize int

	// DeadLetterCapacity bounds the dead letter channel.
	// Default: 50
	DeadLetterCapacity int

	// FlaggedCapacity bounds the high-value review queue.
	// Default: 20
	FlaggedCapacity int

	// AggregateCapacity bounds the recent aggregates.
	// Default: 20
	AggregateCapacity int

	// NotificationCapacity bounds the notification store.
	// Default: 50
	NotificationCapacity int
}

// DefaultSettings returns the standard pipeline sizes.
func DefaultSettings() Settings {
	return Settings{
		HighValueThreshold:   route.DefaultThreshold,
		BatchSize:            aggregate.DefaultBatchSize,
		DeadLetterCapacity:   deadletter.DefaultCapacity,
		FlaggedCapacity:      route.DefaultFlaggedCapacity,
		AggregateCapacity:    aggregate.DefaultCapacity,
		NotificationCapacity: notify.DefaultCapacity,
	}
}

// SettingsFromConfig reads settings from cfg. Missing keys, non-positive
// sizes and non-positive thresholds keep their defaults.
func SettingsFromConfig(cfg config.Config) Settings {
	d := DefaultSettings()
	return Settings{
		HighValueThreshold:   cfg.Decimal("high_value_threshold", d.HighValueThreshold),
		BatchSize:            cfg.Int("batch_size", d.BatchSize),
		DeadLetterCapacity:   cfg.Int("dead_letter_capacity", d.DeadLetterCapacity),
		FlaggedCapacity:      cfg.Int("flagged_capacity", d.FlaggedCapacity),
		AggregateCapacity:    cfg.Int("aggregate_capacity", d.AggregateCapacity),
		NotificationCapacity: cfg.Int("notification_capacity", d.NotificationCapacity),
	}.withDefaults()
}

// withDefaults replaces non-positive fields with their defaults.
func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if !s.HighValueThreshold.IsPositive() {
		s.HighValueThreshold = d.HighValueThreshold
	}
	s.BatchSize = positive(s.BatchSize, d.BatchSize)
	s.DeadLetterCapacity = positive(s.DeadLetterCapacity, d.DeadLetterCapacity)
	s.FlaggedCapacity = positive(s.FlaggedCapacity, d.FlaggedCapacity)
	s.AggregateCapacity = positive(s.AggregateCapacity, d.AggregateCapacity)
	s.NotificationCapacity = positive(s.NotificationCapacity, d.NotificationCapacity)
	return s
}

func positive(v, def int) int {
	if v < 1 {
		return def
	}
	return v
}
