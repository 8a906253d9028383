// Package validate checks a host-submitted EconomyState and its tick-local
// events for structural problems before they reach the Observer, the way
// the reference service's internal/data/quality.go screens bars before
// they reach the regime detector: missing optional fields default to
// zero rather than erroring, but structurally nonsensical input is
// rejected with an itemized error list.
package validate

import (
	"fmt"

	"github.com/atlas-desktop/agente/internal/economy/types"
)

// Issue is one itemized validation finding.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// State reports every structural problem with a submitted EconomyState and
// its accompanying events. An empty slice means the state is acceptable.
func State(state types.EconomyState, events []types.EconomicEvent) []Issue {
	var issues []Issue

	if state.Tick < 0 {
		issues = append(issues, Issue{Field: "tick", Message: "must be >= 0"})
	}

	for agent, balances := range state.AgentBalances {
		for currency, v := range balances {
			if v < 0 {
				issues = append(issues, Issue{
					Field:   fmt.Sprintf("agentBalances.%s.%s", agent, currency),
					Message: "balance must be >= 0",
				})
			}
		}
	}

	for agent, inv := range state.AgentInventories {
		for resource, qty := range inv {
			if qty < 0 {
				issues = append(issues, Issue{
					Field:   fmt.Sprintf("agentInventories.%s.%s", agent, resource),
					Message: "quantity must be >= 0",
				})
			}
		}
	}

	for agent, s := range state.AgentSatisfaction {
		if s < 0 || s > 100 {
			issues = append(issues, Issue{
				Field:   fmt.Sprintf("agentSatisfaction.%s", agent),
				Message: "must be within [0, 100]",
			})
		}
	}

	for currency, prices := range state.MarketPrices {
		for market, p := range prices {
			if p < 0 {
				issues = append(issues, Issue{
					Field:   fmt.Sprintf("marketPrices.%s.%s", currency, market),
					Message: "price must be >= 0",
				})
			}
		}
	}

	for i, e := range events {
		issues = append(issues, event(i, e)...)
	}

	return issues
}

func event(index int, e types.EconomicEvent) []Issue {
	var issues []Issue
	prefix := fmt.Sprintf("events[%d]", index)

	if !types.ValidEventTypes[e.Type] {
		issues = append(issues, Issue{
			Field:   prefix + ".type",
			Message: fmt.Sprintf("unrecognized event type %q", e.Type),
		})
	}
	if e.Amount < 0 {
		issues = append(issues, Issue{
			Field:   prefix + ".amount",
			Message: "must be >= 0",
		})
	}
	return issues
}

// Warnings reports conditions that are acceptable but worth surfacing to
// the host (e.g. via the HTTP response's validationWarnings or a WS
// validation_warning message), distinct from the hard errors State reports.
func Warnings(state types.EconomyState) []Issue {
	var warnings []Issue
	if len(state.Currencies) == 0 && len(state.AgentBalances) == 0 {
		warnings = append(warnings, Issue{
			Field:   "currencies",
			Message: "no currencies declared and no agent balances to infer them from",
		})
	}
	if len(state.AgentSatisfaction) == 0 {
		warnings = append(warnings, Issue{
			Field:   "agentSatisfaction",
			Message: "omitted: avgSatisfaction-dependent principles will read 0",
		})
	}
	return warnings
}
