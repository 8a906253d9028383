// Package adapter provides the engine's default host Adapter: a
// loopback implementation used when cmd/agente runs standalone rather
// than embedded in a host process. Real deployments are expected to
// implement executor.Adapter (and optionally executor.EventSource)
// against their own game/marketplace state directly; this one exists so
// the service is runnable and so the Adapter's pull-mode methods
// (GetState, PendingEvents) have a concrete, exercised implementation
// rather than sitting unused behind the push-mode HTTP/WS transport.
package adapter

import (
	"context"
	"sync"

	"github.com/atlas-desktop/agente/internal/economy/types"
	"go.uber.org/zap"
)

// Loopback tracks the last EconomyState pushed to it (e.g. by a POST /tick
// call) and replays it for pull-mode callers, applying parameter changes
// to an in-memory key/value map rather than a real host economy.
type Loopback struct {
	logger *zap.Logger

	mu       sync.RWMutex
	state    types.EconomyState
	hasState bool
	events   []types.EconomicEvent
	params   map[string]float64
}

// New builds an empty Loopback adapter.
func New(logger *zap.Logger) *Loopback {
	return &Loopback{
		logger: logger.Named("adapter"),
		params: map[string]float64{},
	}
}

// SetState records the latest state/events pair, e.g. called by the
// transport layer right before ProcessTick so a subsequent pull-mode poll
// sees the same snapshot the push-mode caller just submitted.
func (l *Loopback) SetState(state types.EconomyState, events []types.EconomicEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = state
	l.hasState = true
	l.events = append([]types.EconomicEvent(nil), events...)
}

// GetState implements executor.Adapter.
func (l *Loopback) GetState(ctx context.Context) (types.EconomyState, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state, nil
}

// PendingEvents implements executor.EventSource.
func (l *Loopback) PendingEvents(ctx context.Context) ([]types.EconomicEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.events, nil
}

// SetParam implements executor.Adapter by recording the change in-memory
// and logging it; there is no real host economy backing a standalone run.
func (l *Loopback) SetParam(ctx context.Context, key string, value float64, scope *types.ActionScope) error {
	l.mu.Lock()
	l.params[key] = value
	l.mu.Unlock()
	l.logger.Info("setParam", zap.String("key", key), zap.Float64("value", value))
	return nil
}

// Param returns the last value SetParam recorded for key, for tests and
// introspection.
func (l *Loopback) Param(key string) (float64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.params[key]
	return v, ok
}

// HasState reports whether any state has been pushed yet, distinguishing a
// genuinely empty EconomyState from "never initialized".
func (l *Loopback) HasState() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.hasState
}
