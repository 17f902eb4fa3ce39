package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// naive layouts carry no offset; the backend means the store's wall clock.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp accepts RFC 3339 as well as timestamps without a zone. A zoneless value keeps its
// wall clock and is placed in a location only by In.
type Timestamp struct {
	time.Time
	Naive bool
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*ts = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	if ts.Naive {
		return json.Marshal(ts.Time.Format(naiveLayouts[0]))
	}
	return json.Marshal(ts.Time.Format(time.RFC3339Nano))
}

// In returns the instant in loc. A zoneless timestamp is read as wall clock time in loc.
func (ts Timestamp) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	if !ts.Naive {
		return ts.Time.In(loc)
	}
	t := ts.Time
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

// ParseTimestamp parses RFC 3339 or a zoneless ISO 8601 date-time. An empty string is the
// zero Timestamp.
func ParseTimestamp(s string) (Timestamp, error) {
	if s == "" {
		return Timestamp{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Timestamp{Time: t}, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t, Naive: true}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("timestamp: unrecognised format %q", s)
}
