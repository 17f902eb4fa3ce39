package transfer

import (
	"errors"
	"fmt"

	"go-pos/pkg/posapi"
)

var (
	ErrNoOccupiedTables      = errors.New("no occupied tables")
	ErrSourceNotOccupied     = errors.New("source table is not occupied")
	ErrSameTable             = errors.New("destination is the source table")
	ErrDestinationNotOffered = errors.New("destination table is neither available nor occupied")
	ErrTableNotFound         = errors.New("table not found")
)

// StateError is a transition attempted from the wrong state.
type StateError struct {
	Transition string
	From       string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s while in %s", e.Transition, e.From)
}

// Kind names a transfer operation.
type Kind string

const (
	KindMove   Kind = "move"
	KindMerge  Kind = "merge"
	KindCancel Kind = "cancel"
)

var fallbackMessages = map[Kind]string{
	KindMove:   "Failed to move table",
	KindMerge:  "Failed to merge tables",
	KindCancel: "Failed to cancel table",
}

// OpError is a failed backend request. Message is what the user should see: the backend
// detail when it sent one.
type OpError struct {
	Kind    Kind
	Message string
	Err     error
}

func newOpError(kind Kind, err error) *OpError {
	return &OpError{Kind: kind, Message: posapi.Message(err, fallbackMessages[kind]), Err: err}
}

func (e *OpError) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }

func (e *OpError) Unwrap() error { return e.Err }

// UserMessage returns the message to show for err.
func UserMessage(err error) string {
	var op *OpError
	if errors.As(err, &op) {
		return op.Message
	}
	return err.Error()
}
