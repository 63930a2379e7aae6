package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Provider describes one remote time service: where to fetch and how to
// parse its response body into an instant.
type Provider struct {
	Name  string
	URL   string
	Parse func(body []byte) (time.Time, error)
}

// DefaultProviders returns the remote time services tried in priority order.
func DefaultProviders() []Provider {
	return []Provider{
		{
			Name:  "worldtimeapi",
			URL:   "https://worldtimeapi.org/api/ip",
			Parse: parseField("utc_datetime", time.RFC3339),
		},
		{
			Name:  "timeapi",
			URL:   "https://timeapi.io/api/Time/current/zone?timeZone=UTC",
			Parse: parseField("dateTime", "2006-01-02T15:04:05"),
		},
		{
			Name:  "timezonedb",
			URL:   "https://api.timezonedb.com/v2.1/get-time-zone?key=demo&format=json&by=zone&zone=UTC",
			Parse: parseField("formatted", "2006-01-02 15:04:05"),
		},
	}
}

// parseField extracts a single string field from a JSON body and parses it
// with the given layout. Fractional seconds are tolerated by trimming to the
// layout's precision when the strict parse fails.
func parseField(field, layout string) func([]byte) (time.Time, error) {
	return func(body []byte) (time.Time, error) {
		var payload map[string]json.RawMessage
		if err := json.Unmarshal(body, &payload); err != nil {
			return time.Time{}, fmt.Errorf("realtime: decode provider body: %w", err)
		}
		raw, ok := payload[field]
		if !ok {
			return time.Time{}, fmt.Errorf("realtime: provider body missing %q", field)
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return time.Time{}, fmt.Errorf("realtime: field %q not a string: %w", field, err)
		}
		value = strings.TrimSpace(value)
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
		if t, err := time.Parse(layout, truncateFraction(value)); err == nil {
			return t.UTC(), nil
		}
		return time.Time{}, fmt.Errorf("realtime: field %q value %q does not match layout %q", field, value, layout)
	}
}

// truncateFraction drops sub-second digits, e.g. "2024-01-10T12:00:00.1234567"
// becomes "2024-01-10T12:00:00". timeapi.io emits seven fractional digits
// which time.RFC3339 variants reject.
func truncateFraction(value string) string {
	dot := strings.IndexByte(value, '.')
	if dot < 0 {
		return value
	}
	rest := value[dot+1:]
	end := len(rest)
	for i, r := range rest {
		if r < '0' || r > '9' {
			end = i
			break
		}
	}
	return value[:dot] + rest[end:]
}
