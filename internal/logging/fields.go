package logging

import "log/slog"

// Common field names for consistent logging across components.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldEventID   = "event_id"
	FieldEntity    = "entity"
	FieldLookupID  = "lookup_id"
	FieldIndex     = "index"
	FieldSubject   = "subject"
	FieldError     = "error"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// Component returns a slog attribute for the component name.
func Component(name string) slog.Attr {
	return slog.String(FieldComponent, name)
}

// EventID returns a slog attribute for an event ID.
func EventID(id string) slog.Attr {
	return slog.String(FieldEventID, id)
}

// Entity returns a slog attribute for a lookup entity type.
func Entity(name string) slog.Attr {
	return slog.String(FieldEntity, name)
}

// Index returns a slog attribute for an index name.
func Index(name string) slog.Attr {
	return slog.String(FieldIndex, name)
}

// Subject returns a slog attribute for a messaging subject.
func Subject(name string) slog.Attr {
	return slog.String(FieldSubject, name)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
