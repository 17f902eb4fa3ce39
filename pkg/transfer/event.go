package transfer

import (
	"context"
	"time"

	"go-pos/pkg/model"
)

// Event describes a completed table change.
type Event struct {
	Kind        Kind             `json:"kind"`
	Source      model.Table      `json:"source"`
	Destination *model.Table     `json:"destination,omitempty"`
	OrderID     model.FlexString `json:"order_id,omitempty"`
	Actor       string           `json:"actor,omitempty"`
	Origin      string           `json:"origin,omitempty"`
	At          time.Time        `json:"at"`
}

// Notifier publishes events to other processes.
type Notifier interface {
	TablesChanged(ctx context.Context, ev Event) error
}

// Recorder keeps an audit trail of events.
type Recorder interface {
	RecordTransfer(ctx context.Context, ev Event) error
}
