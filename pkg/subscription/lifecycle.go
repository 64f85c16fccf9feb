package subscription

// transitions is the full lifecycle graph. A missing (status, event) pair
// means the event is ignored in that state, not that it is an error: the
// provider redelivers and reorders webhooks, so unexpected pairs are normal
// operation.
var transitions = map[Status]map[Event]Status{
	StatusPending: {
		EventActivated: StatusActive,
		EventCancelled: StatusCancelled,
		EventExpired:   StatusExpired,
	},
	StatusActive: {
		EventSuspended: StatusSuspended,
		EventCancelled: StatusCancelled,
		EventExpired:   StatusExpired,
	},
	StatusSuspended: {
		EventActivated: StatusActive,
		EventCancelled: StatusCancelled,
		EventExpired:   StatusExpired,
	},
	// StatusCancelled and StatusExpired have no outgoing edges.
}

// nextStatus resolves the transition for an event in the given state. The
// second return is false when the lifecycle ignores the event there.
func nextStatus(from Status, event Event) (Status, bool) {
	to, ok := transitions[from][event]
	return to, ok
}

// targetOf returns the state an event drives toward regardless of origin.
// Used to recognize redelivered or out-of-order events whose effect is
// already applied.
func targetOf(event Event) Status {
	switch event {
	case EventActivated:
		return StatusActive
	case EventSuspended:
		return StatusSuspended
	case EventCancelled:
		return StatusCancelled
	case EventExpired:
		return StatusExpired
	default:
		return ""
	}
}
