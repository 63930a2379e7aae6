package appointments

import (
	"sort"
	"time"
)

// UpcomingPending selects the next pending appointments relative to the
// reference instant: status pending or absent, starting at or after the
// reference, ascending by start instant, truncated to limit. The sort is
// stable so records sharing an instant keep their input order.
//
// Records whose date/time do not parse are excluded rather than surfaced as
// errors; a malformed row must never break the dashboard preview.
func UpcomingPending(appts []Appointment, reference time.Time, limit int) []Appointment {
	if limit <= 0 {
		return nil
	}

	type candidate struct {
		appt     Appointment
		startsAt time.Time
	}

	candidates := make([]candidate, 0, len(appts))
	for _, a := range appts {
		if !a.IsPending() {
			continue
		}
		startsAt, err := a.StartsAt()
		if err != nil {
			continue
		}
		if startsAt.Before(reference) {
			continue
		}
		candidates = append(candidates, candidate{appt: a, startsAt: startsAt})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].startsAt.Before(candidates[j].startsAt)
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]Appointment, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.appt)
	}
	return out
}
