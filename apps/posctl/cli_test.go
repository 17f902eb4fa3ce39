package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go-pos/pkg/logger"
	"go-pos/pkg/model"
	"go-pos/pkg/transfer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref(id string) *model.FlexString {
	f := model.FlexString(id)
	return &f
}

func amount(v float64) *float64 { return &v }

// floor is an in-memory backend for the terminal flows.
type floor struct {
	tables    []model.Table
	orders    map[model.FlexString]model.Order
	moveErr   error
	cancelErr map[model.FlexString]error
	calls     []string
}

func newFloor() *floor {
	return &floor{
		tables: []model.Table{
			{ID: "1", Number: "1", Status: model.TableOccupied, CurrentOrderID: ref("101")},
			{ID: "2", Number: "2", Status: model.TableAvailable},
			{ID: "3", Number: "3", Status: model.TableOccupied, CurrentOrderID: ref("103")},
		},
		orders:    map[model.FlexString]model.Order{},
		cancelErr: map[model.FlexString]error{},
	}
}

func (f *floor) List(context.Context) ([]model.Table, error) {
	return append([]model.Table(nil), f.tables...), nil
}

func (f *floor) Refetch(ctx context.Context) ([]model.Table, error) { return f.List(ctx) }

func (f *floor) MoveTable(_ context.Context, from, to model.FlexString) error {
	f.calls = append(f.calls, "move "+from.String()+"->"+to.String())
	return f.moveErr
}

func (f *floor) MergeTables(_ context.Context, from, to model.FlexString) error {
	f.calls = append(f.calls, "merge "+from.String()+"->"+to.String())
	return nil
}

func (f *floor) GetOrder(_ context.Context, id model.FlexString) (model.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return model.Order{}, errors.New("not found")
	}
	return o, nil
}

func (f *floor) CancelOrder(_ context.Context, id model.FlexString, _ model.CancelRequest) error {
	f.calls = append(f.calls, "cancel "+id.String())
	return f.cancelErr[id]
}

func (f *floor) UpdateTable(_ context.Context, id model.FlexString, _ model.TableUpdate) (model.Table, error) {
	f.calls = append(f.calls, "free "+id.String())
	t, _ := model.FindTable(f.tables, id)
	return t, nil
}

func (f *floor) ListActiveOrders(context.Context) ([]model.Order, error) {
	return []model.Order{{ID: "101", OrderNumber: "1001", OrderType: model.DineIn, TableNumber: "1", Status: "preparing", Total: amount(12.5)}}, nil
}

func runTransfer(t *testing.T, f *floor, input string) string {
	t.Helper()
	var out bytes.Buffer
	cl := newCLI(strings.NewReader(input), &out)
	wf := transfer.New(f, f, transfer.WithLogger(logger.Discard()))
	require.NoError(t, cl.transfer(context.Background(), wf))
	return out.String()
}

func TestTransferMoveAfterBadInput(t *testing.T) {
	f := newFloor()
	out := runTransfer(t, f, "9\n1\n2\n")

	assert.Contains(t, out, "table not found: 9")
	assert.Contains(t, out, "Move to an available table:")
	assert.Contains(t, out, "Merge into an occupied table:")
	assert.Contains(t, out, "Moved Table 1 to Table 2")
	assert.Equal(t, []string{"move 1->2"}, f.calls)
}

func TestTransferMergeWithPreview(t *testing.T) {
	f := newFloor()
	f.orders["101"] = model.Order{ID: "101", Subtotal: amount(15), Items: []model.LineItem{
		{MenuItemName: "Burrito", Quantity: 1, Price: amount(12)},
		{MenuItemName: "Horchata", Quantity: 2, Price: amount(1.5)},
	}}
	f.orders["103"] = model.Order{ID: "103", Subtotal: amount(10), Items: []model.LineItem{
		{MenuItemName: "Nachos", Quantity: 1, Price: amount(10)},
	}}

	out := runTransfer(t, f, "1\n3\ny\n")
	prompt := strings.Index(out, "Merge? [y/N]")
	require.Positive(t, prompt)
	for _, item := range []string{"Burrito", "Horchata", "Nachos"} {
		at := strings.Index(out, item)
		require.GreaterOrEqual(t, at, 0, item)
		assert.Less(t, at, prompt, item)
	}
	assert.Less(t, strings.Index(out, "Burrito"), strings.Index(out, "Nachos"))
	assert.Contains(t, out, "$3.00")
	assert.Contains(t, out, "Combined subtotal:  $25.00")
	assert.Contains(t, out, "Estimated total:    $27.00")
	assert.Contains(t, out, "Merged Table 1 into Table 3")
	assert.Equal(t, []string{"merge 1->3"}, f.calls)
}

func TestTransferDeclinedMergeGoesBack(t *testing.T) {
	f := newFloor()
	out := runTransfer(t, f, "1\n3\nn\nb\n\n")

	assert.Contains(t, out, "Order details are unavailable")
	assert.Contains(t, out, "Cancelled.")
	assert.Empty(t, f.calls)
}

func TestTransferMoveFailureStaysOnDestination(t *testing.T) {
	f := newFloor()
	f.moveErr = errors.New("boom")
	out := runTransfer(t, f, "1\n2\n")

	assert.Contains(t, out, "Failed to move table")
	assert.Equal(t, 2, strings.Count(out, "Destination (id, b to go back): "))
	assert.Contains(t, out, "Cancelled.")
}

func TestTransferNothingOccupied(t *testing.T) {
	f := newFloor()
	f.tables = []model.Table{{ID: "2", Status: model.TableAvailable}}
	out := runTransfer(t, f, "")
	assert.Contains(t, out, "No occupied tables to transfer.")
}

func TestCancelReportsEachTable(t *testing.T) {
	f := newFloor()
	f.cancelErr["103"] = errors.New("boom")
	var out bytes.Buffer
	cl := newCLI(strings.NewReader(""), &out)

	err := cl.cancel(context.Background(), transfer.NewCanceller(f, f, logger.Discard()), parseIDs([]string{"1,3"}))
	require.Error(t, err)
	assert.Contains(t, out.String(), "Table 1: cancelled")
	assert.Contains(t, out.String(), "Table 3: failed (Failed to cancel table)")
	assert.Contains(t, out.String(), "Cancelled 1 of 2 table(s)")
	assert.Equal(t, []string{"cancel 101", "free 1", "cancel 103"}, f.calls)
}

func TestParseIDs(t *testing.T) {
	assert.Equal(t, []model.FlexString{"1", "2", "5"}, parseIDs([]string{"1,2", " 5 ", ","}))
	assert.Nil(t, parseIDs(nil))
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchPrintsOnceBeforeCancel(t *testing.T) {
	out := &syncBuffer{}
	cl := newCLI(strings.NewReader(""), out)
	ctx, cancel := context.WithCancel(context.Background())
	f := newFloor()

	done := make(chan struct{})
	go func() {
		_ = cl.watch(ctx, f, time.Hour)
		close(done)
	}()
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "Active orders") }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Contains(t, out.String(), "#1001")
	assert.Contains(t, out.String(), "Dine In")
	assert.Contains(t, out.String(), "$12.50")
}
