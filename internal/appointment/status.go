package appointment

import "strings"

// transitions lists every allowed status change. Completed and Cancelled are
// terminal.
var transitions = map[Status][]Status{
	StatusScheduled: {StatusCompleted, StatusCancelled},
}

// ParseStatus matches a status name case-insensitively.
func ParseStatus(raw string) (Status, error) {
	for _, s := range []Status{StatusScheduled, StatusCompleted, StatusCancelled} {
		if strings.EqualFold(raw, string(s)) {
			return s, nil
		}
	}
	return "", ErrInvalidStatus
}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Active appointments occupy their slot.
func (s Status) Active() bool {
	return s.Valid() && s != StatusCancelled
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
