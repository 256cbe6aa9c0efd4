package store

// NextTicketNumber reserves the next sequence number for category. The entry
// is created at zero on first use. Callers persist the state.
func NextTicketNumber(state *State, category string) int {
	if state.Counters == nil {
		state.Counters = make(map[string]int)
	}
	next := state.Counters[category] + 1
	state.Counters[category] = next
	return next
}

// EnsureCounter initialises the counter for category to zero when absent.
func EnsureCounter(state *State, category string) {
	if state.Counters == nil {
		state.Counters = make(map[string]int)
	}
	if _, ok := state.Counters[category]; !ok {
		state.Counters[category] = 0
	}
}

// CategoryInUse reports whether a tracked ticket channel still carries a name
// from category.
func CategoryInUse(state *State, category string) bool {
	for _, record := range state.TicketStatus {
		if record != nil && record.TicketType == category {
			return true
		}
	}
	return false
}
