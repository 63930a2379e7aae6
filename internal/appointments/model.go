package appointments

import (
	"fmt"
	"strings"
	"time"
)

// Status enumerates appointment lifecycle states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Appointment is a scheduled visit booked through the assistant. Date and
// Time are kept as the wire strings (YYYY-MM-DD and HH:MM[:SS]) the portal
// clients exchange; StartsAt combines them into an instant.
type Appointment struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Type      string    `json:"type"`
	Origin    string    `json:"origin"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// IsPending reports whether the appointment counts as pending. An absent
// status is treated as pending.
func (a Appointment) IsPending() bool {
	return a.Status == StatusPending || a.Status == ""
}

// StartsAt combines Date and Time into a UTC instant. Seconds are optional
// in the time component.
func (a Appointment) StartsAt() (time.Time, error) {
	date := strings.TrimSpace(a.Date)
	clock := strings.TrimSpace(a.Time)
	if date == "" || clock == "" {
		return time.Time{}, fmt.Errorf("appointments: missing date or time")
	}
	combined := date + "T" + clock
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, combined, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("appointments: invalid date/time %q %q", a.Date, a.Time)
}
