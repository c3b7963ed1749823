// Package models defines the event and record types flowing through the
// enrichment pipeline.
package models

import (
	"encoding/json"
	"strings"
)

// Well-known event fields.
const (
	FieldID        = "id"
	FieldAttemptID = "attempt_id"
	FieldCourseID  = "course_id"
	FieldTraineeID = "trainee_id"
	FieldProgress  = "progress"
	FieldScore     = "score"
	FieldTimestamp = "timestamp"
	FieldType      = "type"
	FieldUserID    = "user_id"
)

// Entity types resolved via the lookup gateway. Each doubles as the event
// field the resolved record is attached under.
const (
	EntityAttempt = "attempt"
	EntityCourse  = "course"
	EntityTrainee = "trainee"
	EntityUser    = "user"
)

// Record is an opaque entity record returned by a remote lookup.
type Record map[string]any

// Event is one unit of work: a decoded queue payload. An event is owned by a
// single pipeline traversal and is never shared across messages.
type Event map[string]any

// DecodeEvent parses a raw queue payload into an Event.
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// StringField returns the named field if it is present and a string.
func (e Event) StringField(name string) string {
	if v, ok := e[name].(string); ok {
		return v
	}
	return ""
}

// ID returns the business id of the event.
func (e Event) ID() string {
	return e.StringField(FieldID)
}

// SetRecord attaches a resolved entity record to the event.
func (e Event) SetRecord(entity string, rec Record) {
	e[entity] = rec
}

// Date returns the calendar-date portion of the event timestamp, i.e.
// everything before the 'T'. Returns "" when the timestamp is absent or has
// no time part.
func (e Event) Date() string {
	ts := e.StringField(FieldTimestamp)
	date, _, ok := strings.Cut(ts, "T")
	if !ok {
		return ""
	}
	return date
}
