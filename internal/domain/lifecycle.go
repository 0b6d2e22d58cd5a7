package domain

import "strings"

type LifecycleState string

const (
	StateHolding   LifecycleState = "HOLDING"
	StateCreated   LifecycleState = "CREATED"
	StateConfirmed LifecycleState = "CONFIRMED"
	StateUpdated   LifecycleState = "UPDATED"
	StateCancelled LifecycleState = "CANCELLED"
	StateExpired   LifecycleState = "EXPIRED"
)

var AllStates = []LifecycleState{
	StateHolding,
	StateCreated,
	StateConfirmed,
	StateUpdated,
	StateCancelled,
	StateExpired,
}

// stateRank orders the non-terminal states. CONFIRMED and UPDATED share a rank
// so a remote update of a confirmed booking and a later confirm are both lateral.
var stateRank = map[LifecycleState]int{
	StateHolding:   0,
	StateCreated:   1,
	StateConfirmed: 2,
	StateUpdated:   2,
}

func (s LifecycleState) IsTerminal() bool {
	return s == StateCancelled || s == StateExpired
}

func (s LifecycleState) Valid() bool {
	for _, st := range AllStates {
		if st == s {
			return true
		}
	}
	return false
}

// CanTransition reports whether a booking in state from may move to state to.
// Self transitions are allowed so replays are no-ops rather than errors.
func CanTransition(from, to LifecycleState) bool {
	if from == to {
		return true
	}
	if from.IsTerminal() {
		return false
	}
	if to.IsTerminal() {
		return true
	}
	fr, ok := stateRank[from]
	if !ok {
		return false
	}
	tr, ok := stateRank[to]
	if !ok {
		return false
	}
	return tr >= fr
}

// SourcesFor lists every state from which to is reachable. Repositories use it
// to express a guarded transition as a single UPDATE ... WHERE state IN (...).
func SourcesFor(to LifecycleState) []LifecycleState {
	out := make([]LifecycleState, 0, len(AllStates))
	for _, from := range AllStates {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// StateFromRemote maps a status string reported by the scheduling authority.
func StateFromRemote(status string) (LifecycleState, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "created", "temporary", "pending":
		return StateCreated, true
	case "confirmed", "booked":
		return StateConfirmed, true
	case "updated":
		return StateUpdated, true
	case "canceled", "cancelled":
		return StateCancelled, true
	case "expired":
		return StateExpired, true
	}
	return "", false
}
