package drillfile

import "fmt"

// RecordKind names the part of a drill file a validation error belongs to
type RecordKind string

const (
	RecordMetadata RecordKind = "metadata"
	RecordQuestion RecordKind = "question"
)

// FormatError reports text that has no usable drill structure:
// no #HEADER line, or no data line that maps onto the header.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "drillfile: malformed drill file: " + e.Reason
}

// ValidationError reports a structurally sound file whose content is invalid.
// Index is the zero-based question position and is only meaningful for RecordQuestion.
type ValidationError struct {
	Record  RecordKind
	Index   int
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Record == RecordQuestion {
		return fmt.Sprintf("drillfile: question %d: %s: %s", e.Index+1, e.Field, e.Message)
	}
	return fmt.Sprintf("drillfile: %s: %s: %s", e.Record, e.Field, e.Message)
}
