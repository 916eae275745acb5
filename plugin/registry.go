package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/iou/debt"
	"github.com/xraph/iou/event"
	"github.com/xraph/iou/id"
	"github.com/xraph/iou/journal"
	"github.com/xraph/iou/types"
)

// DefaultTimeout bounds each hook call.
const DefaultTimeout = 5 * time.Second

var _ event.Sink = (*Registry)(nil)

// Registry manages registered plugins and dispatches hooks to them.
// Hook lists are cached by type at registration.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit              []OnInit
	onShutdown          []OnShutdown
	onIssuance          []OnIssuance
	onTransfer          []OnTransfer
	onDeposit           []OnDeposit
	onApproval          []OnApproval
	onDebtRepaid        []OnDebtRepaid
	onDebtSettled       []OnDebtSettled
	onOperationRejected []OnOperationRejected
	paymentValidators   []PaymentValidator
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnIssuance); ok {
		r.onIssuance = append(r.onIssuance, v)
	}
	if v, ok := p.(OnTransfer); ok {
		r.onTransfer = append(r.onTransfer, v)
	}
	if v, ok := p.(OnDeposit); ok {
		r.onDeposit = append(r.onDeposit, v)
	}
	if v, ok := p.(OnApproval); ok {
		r.onApproval = append(r.onApproval, v)
	}
	if v, ok := p.(OnDebtRepaid); ok {
		r.onDebtRepaid = append(r.onDebtRepaid, v)
	}
	if v, ok := p.(OnDebtSettled); ok {
		r.onDebtSettled = append(r.onDebtSettled, v)
	}
	if v, ok := p.(OnOperationRejected); ok {
		r.onOperationRejected = append(r.onOperationRejected, v)
	}
	if v, ok := p.(PaymentValidator); ok {
		r.paymentValidators = append(r.paymentValidators, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	t    reflect.Type
	name string
}{
	{reflect.TypeFor[OnInit](), "OnInit"},
	{reflect.TypeFor[OnShutdown](), "OnShutdown"},
	{reflect.TypeFor[OnIssuance](), "OnIssuance"},
	{reflect.TypeFor[OnTransfer](), "OnTransfer"},
	{reflect.TypeFor[OnDeposit](), "OnDeposit"},
	{reflect.TypeFor[OnApproval](), "OnApproval"},
	{reflect.TypeFor[OnDebtRepaid](), "OnDebtRepaid"},
	{reflect.TypeFor[OnDebtSettled](), "OnDebtSettled"},
	{reflect.TypeFor[OnOperationRejected](), "OnOperationRejected"},
	{reflect.TypeFor[PaymentValidator](), "PaymentValidator"},
}

func implementedInterfaces(p Plugin) []string {
	v := reflect.TypeOf(p)

	var out []string
	for _, h := range hookTypes {
		if v.Implements(h.t) {
			out = append(out, h.name)
		}
	}
	return out
}

// Get returns a plugin by name, or nil.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// Emit implements event.Sink by routing e to its hook.
func (r *Registry) Emit(ctx context.Context, contractID id.ContractID, e event.Event) {
	switch v := e.(type) {
	case event.Issuance:
		r.EmitIssuance(ctx, contractID, v)
	case event.Transfer:
		r.EmitTransfer(ctx, contractID, v)
	case event.Deposit:
		r.EmitDeposit(ctx, contractID, v)
	case event.Approval:
		r.EmitApproval(ctx, contractID, v)
	default:
		r.logger.Warn("plugin: unroutable event", "kind", e.Kind())
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, l any) {
	for _, p := range snapshot(r, &r.onInit) {
		r.call(ctx, p.Name(), "OnInit", func() error { return p.OnInit(ctx, l) })
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, p := range snapshot(r, &r.onShutdown) {
		r.call(ctx, p.Name(), "OnShutdown", func() error { return p.OnShutdown(ctx) })
	}
}

// EmitIssuance calls OnIssuance for all plugins that implement it.
func (r *Registry) EmitIssuance(ctx context.Context, contractID id.ContractID, e event.Issuance) {
	for _, p := range snapshot(r, &r.onIssuance) {
		r.call(ctx, p.Name(), "OnIssuance", func() error { return p.OnIssuance(ctx, contractID, e) })
	}
}

// EmitTransfer calls OnTransfer for all plugins that implement it.
func (r *Registry) EmitTransfer(ctx context.Context, contractID id.ContractID, e event.Transfer) {
	for _, p := range snapshot(r, &r.onTransfer) {
		r.call(ctx, p.Name(), "OnTransfer", func() error { return p.OnTransfer(ctx, contractID, e) })
	}
}

// EmitDeposit calls OnDeposit for all plugins that implement it.
func (r *Registry) EmitDeposit(ctx context.Context, contractID id.ContractID, e event.Deposit) {
	for _, p := range snapshot(r, &r.onDeposit) {
		r.call(ctx, p.Name(), "OnDeposit", func() error { return p.OnDeposit(ctx, contractID, e) })
	}
}

// EmitApproval calls OnApproval for all plugins that implement it.
func (r *Registry) EmitApproval(ctx context.Context, contractID id.ContractID, e event.Approval) {
	for _, p := range snapshot(r, &r.onApproval) {
		r.call(ctx, p.Name(), "OnApproval", func() error { return p.OnApproval(ctx, contractID, e) })
	}
}

// EmitDebtRepaid calls OnDebtRepaid for all plugins that implement it.
func (r *Registry) EmitDebtRepaid(ctx context.Context, rec debt.Record, amount types.Amount) {
	for _, p := range snapshot(r, &r.onDebtRepaid) {
		r.call(ctx, p.Name(), "OnDebtRepaid", func() error { return p.OnDebtRepaid(ctx, rec, amount) })
	}
}

// EmitDebtSettled calls OnDebtSettled for all plugins that implement it.
func (r *Registry) EmitDebtSettled(ctx context.Context, rec debt.Record) {
	for _, p := range snapshot(r, &r.onDebtSettled) {
		r.call(ctx, p.Name(), "OnDebtSettled", func() error { return p.OnDebtSettled(ctx, rec) })
	}
}

// EmitOperationRejected calls OnOperationRejected for all plugins that
// implement it.
func (r *Registry) EmitOperationRejected(ctx context.Context, contractID id.ContractID, op journal.Op, opErr error) {
	for _, p := range snapshot(r, &r.onOperationRejected) {
		r.call(ctx, p.Name(), "OnOperationRejected", func() error {
			return p.OnOperationRejected(ctx, contractID, op, opErr)
		})
	}
}

// ValidatePayment runs every PaymentValidator in registration order and
// returns the first rejection. Validators are called synchronously.
func (r *Registry) ValidatePayment(ctx context.Context, rec debt.Record, payer types.AccountID, amount types.Amount) error {
	for _, v := range snapshot(r, &r.paymentValidators) {
		if err := v.ValidatePayment(ctx, rec, payer, amount); err != nil {
			return fmt.Errorf("plugin %s: %w", v.Name(), err)
		}
	}
	return nil
}

func snapshot[T any](r *Registry, list *[]T) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, len(*list))
	copy(out, *list)
	return out
}

func (r *Registry) call(ctx context.Context, pluginName, hook string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", pluginName,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
