package extension

import (
	"github.com/xraph/iou"
	"github.com/xraph/iou/lock"
	"github.com/xraph/iou/plugin"
	"github.com/xraph/iou/store"
)

// Option configures the IOU Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedgerOption passes an iou.Option through to the underlying ledger.
func WithLedgerOption(opt iou.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, iou.WithPlugin(p))
	}
}

// WithLocker sets the cross-process locker. It takes precedence over
// LockRedisAddr.
func WithLocker(lk lock.Locker) Option {
	return func(e *Extension) {
		e.locker = lk
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithPartialPaymentFloor enforces each IOU's partial payment percentage.
func WithPartialPaymentFloor() Option {
	return func(e *Extension) { e.config.PartialPaymentFloor = true }
}

// WithCheckpointEvery sets the checkpoint interval in journal entries.
func WithCheckpointEvery(n int) Option {
	return func(e *Extension) { e.config.CheckpointEvery = n }
}

// WithRedisLock serializes contracts through the Redis server at addr.
func WithRedisLock(addr string) Option {
	return func(e *Extension) { e.config.LockRedisAddr = addr }
}

// WithMetrics registers the OpenTelemetry metrics plugin.
func WithMetrics() Option {
	return func(e *Extension) { e.config.Metrics = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
