package transfer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go-pos/pkg/model"
	"go-pos/pkg/posapi"
)

func ptr(v float64) *float64 { return &v }

func orderRef(id string) *model.FlexString {
	f := model.FlexString(id)
	return &f
}

func occupied(id, order string) model.Table {
	return model.Table{ID: model.FlexString(id), Number: model.FlexString(id), Status: model.TableOccupied, CurrentOrderID: orderRef(order)}
}

func available(id string) model.Table {
	return model.Table{ID: model.FlexString(id), Number: model.FlexString(id), Status: model.TableAvailable}
}

// fakeBackend is an in-memory backend that applies moves, merges and cancellations the way
// the real one does, so refetches show the result.
type fakeBackend struct {
	tables []model.Table
	orders map[model.FlexString]model.Order
	rates  []model.TaxRate

	moveErr   error
	mergeErr  error
	orderErr  error
	ratesErr  error
	cancelErr map[model.FlexString]error

	calls      []string
	listCalls  int
	refetches  int
	cancelReqs []model.CancelRequest
}

func newFakeBackend(tables ...model.Table) *fakeBackend {
	return &fakeBackend{tables: tables, orders: map[model.FlexString]model.Order{}, cancelErr: map[model.FlexString]error{}}
}

func (f *fakeBackend) index(id model.FlexString) int {
	for i, t := range f.tables {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (f *fakeBackend) List(context.Context) ([]model.Table, error) {
	f.listCalls++
	return append([]model.Table(nil), f.tables...), nil
}

func (f *fakeBackend) Refetch(ctx context.Context) ([]model.Table, error) {
	f.refetches++
	return f.List(ctx)
}

func (f *fakeBackend) MoveTable(_ context.Context, from, to model.FlexString) error {
	f.calls = append(f.calls, fmt.Sprintf("move %s->%s", from, to))
	if f.moveErr != nil {
		return f.moveErr
	}
	src, dst := f.index(from), f.index(to)
	f.tables[dst].CurrentOrderID = f.tables[src].CurrentOrderID
	f.tables[dst].Status = model.TableOccupied
	f.tables[src].CurrentOrderID = nil
	f.tables[src].Status = model.TableAvailable
	return nil
}

func (f *fakeBackend) MergeTables(_ context.Context, from, to model.FlexString) error {
	f.calls = append(f.calls, fmt.Sprintf("merge %s->%s", from, to))
	if f.mergeErr != nil {
		return f.mergeErr
	}
	src, dst := f.index(from), f.index(to)
	srcOrder := f.orders[f.tables[src].OrderID()]
	dstID := f.tables[dst].OrderID()
	dstOrder := f.orders[dstID]
	dstOrder.Items = append(dstOrder.Items, srcOrder.Items...)
	total := model.Decimal(srcOrder.Total).Add(model.Decimal(dstOrder.Total)).InexactFloat64()
	dstOrder.Total = &total
	f.orders[dstID] = dstOrder
	f.tables[src].CurrentOrderID = nil
	f.tables[src].Status = model.TableAvailable
	return nil
}

func (f *fakeBackend) GetOrder(_ context.Context, id model.FlexString) (model.Order, error) {
	f.calls = append(f.calls, "get order "+id.String())
	if f.orderErr != nil {
		return model.Order{}, f.orderErr
	}
	o, ok := f.orders[id]
	if !ok {
		return model.Order{}, &posapi.APIError{StatusCode: http.StatusNotFound, Detail: "Order not found"}
	}
	return o, nil
}

func (f *fakeBackend) CancelOrder(_ context.Context, id model.FlexString, req model.CancelRequest) error {
	f.calls = append(f.calls, "cancel "+id.String())
	f.cancelReqs = append(f.cancelReqs, req)
	if err := f.cancelErr[id]; err != nil {
		return err
	}
	return nil
}

func (f *fakeBackend) UpdateTable(_ context.Context, id model.FlexString, upd model.TableUpdate) (model.Table, error) {
	f.calls = append(f.calls, "update "+id.String())
	i := f.index(id)
	if i < 0 {
		return model.Table{}, errors.New("no such table")
	}
	if upd.Status != nil {
		f.tables[i].Status = *upd.Status
	}
	f.tables[i].CurrentOrderID = upd.CurrentOrderID
	return f.tables[i], nil
}

func (f *fakeBackend) ListTaxRates(context.Context) ([]model.TaxRate, error) {
	if f.ratesErr != nil {
		return nil, f.ratesErr
	}
	return f.rates, nil
}

type captured struct {
	notified []Event
	recorded []Event
}

func (c *captured) TablesChanged(_ context.Context, ev Event) error {
	c.notified = append(c.notified, ev)
	return nil
}

func (c *captured) RecordTransfer(_ context.Context, ev Event) error {
	c.recorded = append(c.recorded, ev)
	return errors.New("audit store down")
}
