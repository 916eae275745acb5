package extension

import "time"

// Config holds the IOU extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.iou" or "iou" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// PartialPaymentFloor rejects repayments below each IOU's partial
	// payment percentage of face value unless they settle the debt.
	PartialPaymentFloor bool `json:"partial_payment_floor" mapstructure:"partial_payment_floor" yaml:"partial_payment_floor"`

	// CheckpointEvery saves a contract checkpoint after every n-th journal
	// entry (default: 64). A negative value disables checkpoints.
	CheckpointEvery int `json:"checkpoint_every" mapstructure:"checkpoint_every" yaml:"checkpoint_every"`

	// LockRedisAddr, when set, serializes contracts across processes with a
	// Redis lock at this address.
	LockRedisAddr string `json:"lock_redis_addr" mapstructure:"lock_redis_addr" yaml:"lock_redis_addr"`

	// LockExpiry is how long a contract lock is held before Redis expires
	// it (default: 5s).
	LockExpiry time.Duration `json:"lock_expiry" mapstructure:"lock_expiry" yaml:"lock_expiry"`

	// Metrics registers the OpenTelemetry metrics plugin on the global
	// meter provider.
	Metrics bool `json:"metrics" mapstructure:"metrics" yaml:"metrics"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CheckpointEvery: 64,
		LockExpiry:      5 * time.Second,
	}
}
