package printer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotConnected   = errors.New("no printer connected")
	ErrCutUnsupported = errors.New("printer does not support cutting")
	ErrNoDevice       = errors.New("no printer found")
)

// Device is a discoverable printer.
type Device struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Transport is the primitive command set of a line printer. Implementations are not safe
// for concurrent use; Service serialises access.
type Transport interface {
	Connect(ctx context.Context, d Device) error
	Disconnect() error
	Initialize() error
	SetAlignment(a Align) error
	PrintText(text string, st Style) error
	Cut() error
	Discover(ctx context.Context) ([]Device, error)
}

// Scanner lists nearby or paired devices without filtering.
type Scanner interface {
	Scan(ctx context.Context) ([]Device, error)
}

// FilterFamily keeps devices whose name contains family, case-insensitively.
func FilterFamily(devices []Device, family string) []Device {
	family = strings.ToLower(strings.TrimSpace(family))
	var out []Device
	for _, d := range devices {
		if family == "" || strings.Contains(strings.ToLower(d.Name), family) {
			out = append(out, d)
		}
	}
	return out
}

// PrintError is a failure in the middle of a print run.
type PrintError struct {
	Op  Op
	Err error
}

func (e *PrintError) Error() string { return fmt.Sprintf("printing failed at %s: %v", e.Op, e.Err) }

func (e *PrintError) Unwrap() error { return e.Err }
