package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go-pos/pkg/model"
	"go-pos/pkg/transfer"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var tableKeys = map[transfer.Kind]string{
	transfer.KindMove:   "table.moved",
	transfer.KindMerge:  "table.merged",
	transfer.KindCancel: "table.cancelled",
}

// PrintJob asks a print agent to print one order's receipt. It carries the order as loaded
// when the job was queued, so the agent never calls the backend.
type PrintJob struct {
	ID          string           `json:"id"`
	OrderID     model.FlexString `json:"order_id"`
	Order       model.Order      `json:"order"`
	Context     string           `json:"context"`
	RequestedBy string           `json:"requested_by,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

func NewPrintJob(order model.Order, receiptContext, requestedBy string) PrintJob {
	return PrintJob{
		ID:          uuid.NewString(),
		OrderID:     order.ID,
		Order:       order,
		Context:     receiptContext,
		RequestedBy: requestedBy,
		CreatedAt:   time.Now().UTC(),
	}
}

// Bus publishes domain events and print jobs on the pos_events exchange.
type Bus struct {
	pub Publisher
	log *log.Entry
}

func NewBus(pub Publisher, logger *log.Entry) *Bus {
	return &Bus{pub: pub, log: logger.WithField("component", "events")}
}

func (b *Bus) TablesChanged(ctx context.Context, ev transfer.Event) error {
	key, ok := tableKeys[ev.Kind]
	if !ok {
		return fmt.Errorf("no routing key for %q", ev.Kind)
	}
	return b.publish(ctx, key, ev)
}

func (b *Bus) EnqueuePrint(ctx context.Context, job PrintJob) error {
	return b.publish(ctx, PrintRoutingKey, job)
}

func (b *Bus) publish(ctx context.Context, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := b.pub.Publish(ctx, Exchange, key, body); err != nil {
		return fmt.Errorf("publishing %s: %w", key, err)
	}
	b.log.WithField("key", key).Debug("published")
	return nil
}

// DecodePrintJob parses a print-job message body.
func DecodePrintJob(body []byte) (PrintJob, error) {
	var job PrintJob
	if err := json.Unmarshal(body, &job); err != nil {
		return job, fmt.Errorf("decoding print job: %w", err)
	}
	if job.OrderID == "" {
		return job, fmt.Errorf("print job %s has no order id", job.ID)
	}
	if job.Order.ID != job.OrderID {
		return job, fmt.Errorf("print job %s carries order %q, want %q", job.ID, job.Order.ID, job.OrderID)
	}
	return job, nil
}
