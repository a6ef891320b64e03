package data

import (
	"errors"
	"fmt"
)

// ErrNoData is returned when the first page of a collection comes back empty.
// The caller must abort before writing any output for that collection.
var ErrNoData = errors.New("no data found")

// MalformedRecordError reports a record that lacks a sub-object field the
// pipeline requires (today only the profile of a Profile Switch treatment).
type MalformedRecordError struct {
	EventType string
	Field     string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %q record: missing or invalid %q field", e.EventType, e.Field)
}
