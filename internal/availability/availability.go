// Package availability holds the per-person, per-day availability mapping.
//
// A missing entry at either level means available. Values are treated as
// immutable: every update returns a new outer map, so a previous value can be
// handed to a renderer and compared by reference.
package availability

import "github.com/dukerupert/freeday/internal/model"

type Status string

const (
	StatusAvailable   Status = "available"
	StatusUnavailable Status = "unavailable"
)

// Toggle flips available and unavailable.
func (s Status) Toggle() Status {
	if s == StatusUnavailable {
		return StatusAvailable
	}
	return StatusUnavailable
}

// Available reports whether s is the available status.
func (s Status) Available() bool {
	return s != StatusUnavailable
}

// FromBool maps a stored available flag to a Status.
func FromBool(available bool) Status {
	if available {
		return StatusAvailable
	}
	return StatusUnavailable
}

// Availability maps person id -> ISO day -> available.
type Availability map[string]map[string]bool

// GetStatus returns unavailable only for an explicit false entry. Unknown
// people and unseen days are free.
func GetStatus(a Availability, personID, day string) Status {
	if available, ok := a[personID][day]; ok && !available {
		return StatusUnavailable
	}
	return StatusAvailable
}

// SetStatus returns a copy of a with the (personID, day) cell overwritten.
// Inner maps of other people are shared with a.
func SetStatus(a Availability, personID, day string, status Status) Availability {
	next := make(Availability, len(a)+1)
	for id, days := range a {
		next[id] = days
	}

	days := make(map[string]bool, len(a[personID])+1)
	for k, v := range a[personID] {
		days[k] = v
	}
	days[day] = status.Available()
	next[personID] = days

	return next
}

// FromRows builds an Availability from stored rows. A later row for the same
// key wins.
func FromRows(rows []model.AvailabilityRow) Availability {
	a := make(Availability)
	for _, r := range rows {
		days, ok := a[r.PersonID]
		if !ok {
			days = make(map[string]bool)
			a[r.PersonID] = days
		}
		days[r.Day] = r.Available
	}
	return a
}

// HasUnavailable reports whether personID is unavailable on any of days. It
// stops at the first hit.
func HasUnavailable(a Availability, personID string, days []string) bool {
	for _, day := range days {
		if GetStatus(a, personID, day) == StatusUnavailable {
			return true
		}
	}
	return false
}
