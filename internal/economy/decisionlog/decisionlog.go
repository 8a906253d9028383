// Package decisionlog holds the append-only, bounded-memory record of every
// pipeline outcome: applied, rolled back, or skipped with a reason. The
// bound-then-trim ring discipline mirrors the reference's regime transition
// history (internal/orchestrator/orchestrator.go's regimeHistory), sized up
// for the decision log's higher entry count and 1.5x/1.0x trim ratio.
package decisionlog

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/atlas-desktop/agente/internal/economy/types"
	"github.com/google/uuid"
)

const (
	maxEntries  = 1000
	trimTrigger = 1500
)

// Log is the engine's append-only decision history.
type Log struct {
	mu      sync.Mutex
	entries []types.DecisionEntry
}

// New builds an empty Log.
func New() *Log {
	return &Log{entries: make([]types.DecisionEntry, 0, maxEntries)}
}

// Record appends one decision entry, assigning it an ID and timestamp, and
// trims the log back to maxEntries once it reaches trimTrigger.
func (l *Log) Record(tick int, diagnosis *types.Diagnosis, plan *types.ActionPlan, result types.DecisionResult, reasoning string, metrics types.EconomyMetrics) types.DecisionEntry {
	entry := types.DecisionEntry{
		ID:              uuid.New().String(),
		Tick:            tick,
		Timestamp:       time.Now(),
		Diagnosis:       diagnosis,
		Plan:            plan,
		Result:          result,
		Reasoning:       reasoning,
		MetricsSnapshot: metrics,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if len(l.entries) >= trimTrigger {
		excess := len(l.entries) - maxEntries
		l.entries = append([]types.DecisionEntry(nil), l.entries[excess:]...)
	}
	return entry
}

// Filter narrows a Query call. Zero values mean "unconstrained" for that
// field; IssuePrincipleID and Parameter match exactly when non-empty.
type Filter struct {
	Since            time.Time
	Until            time.Time
	IssuePrincipleID string
	Parameter        string
	Result           types.DecisionResult
}

// Query returns every entry matching the filter, oldest-first.
func (l *Log) Query(f Filter) []types.DecisionEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	matches := make([]types.DecisionEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
			continue
		}
		if f.IssuePrincipleID != "" && (e.Diagnosis == nil || e.Diagnosis.PrincipleID != f.IssuePrincipleID) {
			continue
		}
		if f.Parameter != "" && (e.Plan == nil || e.Plan.Parameter != f.Parameter) {
			continue
		}
		if f.Result != "" && e.Result != f.Result {
			continue
		}
		matches = append(matches, e)
	}
	return matches
}

// Latest returns the n most recent entries, newest-first.
func (l *Log) Latest(n int) []types.DecisionEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]types.DecisionEntry, n)
	for i := 0; i < n; i++ {
		out[i] = l.entries[len(l.entries)-1-i]
	}
	return out
}

// Len returns the current entry count.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Export serializes the full log as either "json" or "text".
func (l *Log) Export(format string) (string, error) {
	l.mu.Lock()
	entries := append([]types.DecisionEntry(nil), l.entries...)
	l.mu.Unlock()

	switch format {
	case "json":
		b, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal decision log: %w", err)
		}
		return string(b), nil
	case "text":
		var sb strings.Builder
		for _, e := range entries {
			principle := "-"
			if e.Diagnosis != nil {
				principle = e.Diagnosis.PrincipleID
			}
			parameter := "-"
			if e.Plan != nil {
				parameter = e.Plan.Parameter
			}
			fmt.Fprintf(&sb, "[tick %d] %s principle=%s parameter=%s: %s\n",
				e.Tick, e.Result, principle, parameter, e.Reasoning)
		}
		return sb.String(), nil
	default:
		return "", fmt.Errorf("unknown export format %q", format)
	}
}
