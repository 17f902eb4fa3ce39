package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-pos/pkg/model"

	log "github.com/sirupsen/logrus"
)

// CancelAPI is the part of the backend bulk cancellation needs.
type CancelAPI interface {
	CancelOrder(ctx context.Context, id model.FlexString, req model.CancelRequest) error
	UpdateTable(ctx context.Context, id model.FlexString, upd model.TableUpdate) (model.Table, error)
}

type CancelStatus string

const (
	CancelDone    CancelStatus = "cancelled"
	CancelSkipped CancelStatus = "skipped"
	CancelFailed  CancelStatus = "failed"
)

// TableCancellation is what happened to one selected table.
type TableCancellation struct {
	TableID model.FlexString `json:"table_id"`
	Label   string           `json:"label"`
	OrderID model.FlexString `json:"order_id,omitempty"`
	Status  CancelStatus     `json:"status"`
	Message string           `json:"message,omitempty"`
	Err     error            `json:"-"`
}

type BulkResult struct {
	Tables []TableCancellation `json:"tables"`
}

func (b BulkResult) count(s CancelStatus) int {
	n := 0
	for _, t := range b.Tables {
		if t.Status == s {
			n++
		}
	}
	return n
}

func (b BulkResult) Cancelled() int { return b.count(CancelDone) }

func (b BulkResult) Failed() []TableCancellation {
	var out []TableCancellation
	for _, t := range b.Tables {
		if t.Status == CancelFailed {
			out = append(out, t)
		}
	}
	return out
}

// Err joins every per-table failure, or is nil when nothing failed.
func (b BulkResult) Err() error {
	var errs []error
	for _, t := range b.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", t.Label, t.Err))
	}
	return errors.Join(errs...)
}

// CancelNotes is the note attached to every bulk-cancelled order.
func CancelNotes(t model.Table, origin string) string {
	return fmt.Sprintf("Cancelled from %s via %s", t.Label(), origin)
}

// CancelTables cancels the order of each table and frees the table, one table at a time.
// A failure on one table never stops the others. Tables without an order are skipped.
func CancelTables(ctx context.Context, api CancelAPI, tables []model.Table, origin string) BulkResult {
	res := BulkResult{Tables: make([]TableCancellation, 0, len(tables))}
	for _, t := range tables {
		tc := TableCancellation{TableID: t.ID, Label: t.Label(), OrderID: t.OrderID()}
		switch {
		case tc.OrderID == "":
			tc.Status = CancelSkipped
			tc.Message = "table has no order"
		default:
			tc.Err = cancelOne(ctx, api, t, origin)
			if tc.Err != nil {
				tc.Status = CancelFailed
				tc.Message = UserMessage(tc.Err)
			} else {
				tc.Status = CancelDone
			}
		}
		res.Tables = append(res.Tables, tc)
	}
	return res
}

func cancelOne(ctx context.Context, api CancelAPI, t model.Table, origin string) error {
	req := model.CancelRequest{Reason: model.CancelReasonOther, Notes: CancelNotes(t, origin)}
	if err := api.CancelOrder(ctx, t.OrderID(), req); err != nil {
		return newOpError(KindCancel, err)
	}
	if _, err := api.UpdateTable(ctx, t.ID, model.ReleaseTable()); err != nil {
		return newOpError(KindCancel, err)
	}
	return nil
}

// Canceller resolves selected table ids and runs CancelTables, then refreshes the table list.
type Canceller struct {
	api      CancelAPI
	tables   TableStore
	notifier Notifier
	recorder Recorder
	actor    string
	log      *log.Entry
	now      func() time.Time
}

func NewCanceller(api CancelAPI, tables TableStore, logger *log.Entry) *Canceller {
	return &Canceller{api: api, tables: tables, log: logger.WithField("component", "bulk-cancel"), now: time.Now}
}

func (c *Canceller) WithEvents(n Notifier, r Recorder) *Canceller {
	c.notifier, c.recorder = n, r
	return c
}

func (c *Canceller) WithActor(actor string) *Canceller {
	c.actor = actor
	return c
}

// Cancel cancels the tables with the given ids. Unknown ids are reported as failed entries.
// The returned error is only for failing to load tables; per-table failures are in the result.
func (c *Canceller) Cancel(ctx context.Context, ids []model.FlexString, origin string) (BulkResult, error) {
	all, err := c.tables.List(ctx)
	if err != nil {
		return BulkResult{}, fmt.Errorf("listing tables: %w", err)
	}

	var selected []model.Table
	var missing []TableCancellation
	for _, id := range ids {
		t, ok := model.FindTable(all, id)
		if !ok {
			missing = append(missing, TableCancellation{
				TableID: id, Label: "Table " + id.String(), Status: CancelFailed,
				Message: ErrTableNotFound.Error(), Err: ErrTableNotFound,
			})
			continue
		}
		selected = append(selected, t)
	}

	res := CancelTables(ctx, c.api, selected, origin)
	res.Tables = append(res.Tables, missing...)

	for _, tc := range res.Tables {
		entry := c.log.WithFields(log.Fields{"table": tc.TableID, "order": tc.OrderID, "status": tc.Status})
		if tc.Err != nil {
			entry.WithError(tc.Err).Warn("table cancellation failed")
			continue
		}
		entry.Info("table cancellation")
		if tc.Status == CancelDone {
			t, _ := model.FindTable(all, tc.TableID)
			emit(ctx, c.notifier, c.recorder, c.log, Event{Kind: KindCancel, Source: t, OrderID: tc.OrderID, Actor: c.actor, Origin: origin, At: c.now()})
		}
	}

	if _, err := c.tables.Refetch(ctx); err != nil {
		c.log.WithError(err).Warn("refetching tables after bulk cancel")
	}
	return res, nil
}
