package models

import "strings"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every status in pipeline order.
var Statuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusDelivered,
	StatusCancelled,
}

// transitions is the complete table of legal moves. Terminal statuses have no entry.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusDelivered, StatusCancelled},
}

// AllowedTransitions returns the statuses reachable from current in one step.
func AllowedTransitions(current Status) []Status {
	next := transitions[current]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// ParseStatus validates external input against the status domain.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", NewValidationError("unknown order status %q", raw)
	}
	return s, nil
}
