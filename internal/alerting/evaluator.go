package alerting

import (
	"github.com/shopspring/decimal"
)

// Rule is a user-configured downward price threshold.
type Rule struct {
	ID        string
	Threshold decimal.Decimal
	Enabled   bool
}

// Event is emitted exactly once per downward threshold crossing.
type Event struct {
	RuleID    string
	Threshold decimal.Decimal
	Price     decimal.Decimal
}

// Evaluator is an edge-triggered rule engine over a stream of price
// observations. Each rule id carries a two-state machine (armed/fired):
//
//	armed -> fired  when the previous price was strictly above the threshold
//	                and the current price is at or below it
//	fired -> armed  when the current price is strictly above the threshold
//
// The previous price is shared across rules so every rule sees the same
// before/after pair within one pass. The very first observation never fires.
// Disabled rules are skipped for both transitions and keep whatever state
// they were left in.
//
// Evaluator is not safe for concurrent use; callers serialise Observe.
type Evaluator struct {
	prev  *decimal.Decimal
	fired map[string]struct{}
}

// NewEvaluator constructs an evaluator with every rule implicitly armed.
func NewEvaluator() *Evaluator {
	return &Evaluator{fired: make(map[string]struct{})}
}

// Observe feeds one price observation through the rule list and returns the
// events produced by armed->fired transitions, in rule-list order.
func (e *Evaluator) Observe(price decimal.Decimal, rules []Rule) []Event {
	byID := make(map[string]Rule, len(rules))
	for _, rule := range rules {
		byID[rule.ID] = rule
	}

	// Re-arm pass runs before trigger checks so a rule cannot fire twice
	// without the price recovering above its threshold in between. State for
	// ids no longer present in the rule list is dropped here.
	for id := range e.fired {
		rule, ok := byID[id]
		if !ok {
			delete(e.fired, id)
			continue
		}
		if rule.Enabled && price.GreaterThan(rule.Threshold) {
			delete(e.fired, id)
		}
	}

	var events []Event
	if e.prev != nil {
		for _, rule := range rules {
			if !rule.Enabled {
				continue
			}
			if _, alreadyFired := e.fired[rule.ID]; alreadyFired {
				continue
			}
			if e.prev.GreaterThan(rule.Threshold) && price.LessThanOrEqual(rule.Threshold) {
				e.fired[rule.ID] = struct{}{}
				events = append(events, Event{RuleID: rule.ID, Threshold: rule.Threshold, Price: price})
			}
		}
	}

	// Updated only after the full pass so every rule saw the same pair.
	prev := price
	e.prev = &prev

	return events
}
