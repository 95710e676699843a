package model

import "time"

// AvailabilityRow is the stored status of one person on one day. Rows are
// unique by (PersonID, Day).
type AvailabilityRow struct {
	PersonID  string    `json:"person_id"`
	Day       string    `json:"day"`
	Available bool      `json:"available"`
	UpdatedAt time.Time `json:"updated_at"`
}
