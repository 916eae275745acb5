// Package extension provides the Forge extension adapter for IOU.
//
// It implements the forge.Extension interface to integrate an IOU ledger
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.iou" or "iou" keys.
package extension

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/iou"
	"github.com/xraph/iou/lock"
	"github.com/xraph/iou/lock/redislock"
	"github.com/xraph/iou/observability"
	"github.com/xraph/iou/store"
	"github.com/xraph/iou/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "iou"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "IOU debt ledger with balances and allowances"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts an IOU ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	ledger     *iou.Ledger
	store      store.Store
	locker     lock.Locker
	redis      *redis.Client
	ledgerOpts []iou.Option
}

// New creates a new IOU Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ledger returns the underlying ledger.
// This is nil until Register is called.
func (e *Extension) Ledger() *iou.Ledger { return e.ledger }

// Register implements [forge.Extension]. It loads configuration,
// initializes the ledger, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	opts, err := e.buildLedgerOpts()
	if err != nil {
		return err
	}
	e.ledger = iou.New(e.store, opts...)

	return vessel.Provide(fapp.Container(), func() (*iou.Ledger, error) {
		return e.ledger, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.ledger == nil {
		return errors.New("iou: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.ledger.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	var errs []error
	if e.ledger != nil {
		errs = append(errs, e.ledger.Stop())
	}
	if e.redis != nil {
		errs = append(errs, e.redis.Close())
	}
	e.MarkStopped()
	return errors.Join(errs...)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("iou: store not initialized")
	}
	if err := e.store.Ping(ctx); err != nil {
		return err
	}
	if e.redis != nil {
		return e.redis.Ping(ctx).Err()
	}
	return nil
}

// buildLedgerOpts constructs iou.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() ([]iou.Option, error) {
	opts := make([]iou.Option, 0, len(e.ledgerOpts)+4)

	if e.config.PartialPaymentFloor {
		opts = append(opts, iou.WithPartialPaymentFloor())
	}
	if e.config.CheckpointEvery > 0 {
		opts = append(opts, iou.WithCheckpointEvery(e.config.CheckpointEvery))
	}

	lk, err := e.buildLocker()
	if err != nil {
		return nil, err
	}
	if lk != nil {
		opts = append(opts, iou.WithLocker(lk))
	}

	if e.config.Metrics {
		factory := observability.NewOTelFactory(nil, nil)
		opts = append(opts, iou.WithPlugin(observability.NewMetricsExtension(factory)))
	}

	// Append any pass-through ledger options.
	opts = append(opts, e.ledgerOpts...)

	return opts, nil
}

// buildLocker returns the programmatic locker, or a Redis locker when an
// address is configured, or nil.
func (e *Extension) buildLocker() (lock.Locker, error) {
	if e.locker != nil {
		return e.locker, nil
	}
	if e.config.LockRedisAddr == "" {
		return nil, nil //nolint:nilnil // no locker configured
	}

	e.redis = redis.NewClient(&redis.Options{Addr: e.config.LockRedisAddr})

	ropts := redislock.DefaultOptions()
	if e.config.LockExpiry > 0 {
		ropts.Expiry = e.config.LockExpiry
	}
	lk, err := redislock.New(e.redis, redislock.WithOptions(ropts))
	if err != nil {
		return nil, err
	}
	return lk, nil
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("iou: configuration is required but not found in config files; " +
				"ensure 'extensions.iou' or 'iou' key exists in your config")
		}

		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("iou: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("partial_payment_floor", e.config.PartialPaymentFloor),
		forge.F("checkpoint_every", e.config.CheckpointEvery),
		forge.F("redis_lock", e.config.LockRedisAddr != ""),
		forge.F("metrics", e.config.Metrics),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.iou", "iou"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("iou: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("iou: loaded config from file", forge.F("key", key))
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.CheckpointEvery == 0 {
		cfg.CheckpointEvery = defaults.CheckpointEvery
	}
	if cfg.LockExpiry == 0 {
		cfg.LockExpiry = defaults.LockExpiry
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.PartialPaymentFloor {
		yamlConfig.PartialPaymentFloor = true
	}
	if programmaticConfig.Metrics {
		yamlConfig.Metrics = true
	}

	if yamlConfig.LockRedisAddr == "" {
		yamlConfig.LockRedisAddr = programmaticConfig.LockRedisAddr
	}
	if yamlConfig.CheckpointEvery == 0 {
		yamlConfig.CheckpointEvery = programmaticConfig.CheckpointEvery
	}
	if yamlConfig.LockExpiry == 0 {
		yamlConfig.LockExpiry = programmaticConfig.LockExpiry
	}

	return mergeWithDefaults(yamlConfig)
}
