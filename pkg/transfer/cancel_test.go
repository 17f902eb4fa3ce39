package transfer

import (
	"context"
	"net/http"
	"testing"

	"go-pos/pkg/logger"
	"go-pos/pkg/model"
	"go-pos/pkg/posapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelTablesContinuesPastFailure(t *testing.T) {
	b := newFakeBackend(occupied("1", "101"), occupied("2", "102"), occupied("3", "103"))
	b.cancelErr["102"] = &posapi.APIError{StatusCode: http.StatusBadRequest, Detail: "Order already paid"}

	res := CancelTables(context.Background(), b, b.tables, "admin console")

	assert.Equal(t, []string{"cancel 101", "update 1", "cancel 102", "cancel 103", "update 3"}, b.calls)
	require.Len(t, res.Tables, 3)
	assert.Equal(t, CancelDone, res.Tables[0].Status)
	assert.Equal(t, CancelFailed, res.Tables[1].Status)
	assert.Equal(t, "Order already paid", res.Tables[1].Message)
	assert.Equal(t, CancelDone, res.Tables[2].Status)
	assert.Equal(t, 2, res.Cancelled())

	err := res.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Table 2")

	t2 := b.tables[b.index("2")]
	assert.True(t, t2.IsOccupied())
	t3 := b.tables[b.index("3")]
	assert.True(t, t3.IsAvailable())
	assert.Nil(t, t3.CurrentOrderID)
}

func TestCancelRequestShape(t *testing.T) {
	tbl := occupied("4", "104")
	tbl.Name = "Patio 4"
	b := newFakeBackend(tbl)

	res := CancelTables(context.Background(), b, b.tables, "admin console")
	require.NoError(t, res.Err())
	require.Len(t, b.cancelReqs, 1)
	assert.Equal(t, model.CancelRequest{Reason: "other", Notes: "Cancelled from Patio 4 via admin console"}, b.cancelReqs[0])
}

func TestCancelSkipsTablesWithoutOrder(t *testing.T) {
	b := newFakeBackend(available("1"))
	res := CancelTables(context.Background(), b, b.tables, "posctl")

	assert.Empty(t, b.calls)
	require.Len(t, res.Tables, 1)
	assert.Equal(t, CancelSkipped, res.Tables[0].Status)
	assert.NoError(t, res.Err())
}

func TestCancellerResolvesIDsAndRefetches(t *testing.T) {
	b := newFakeBackend(occupied("1", "101"), occupied("2", "102"))
	events := &captured{}
	c := NewCanceller(b, b, logger.Discard()).WithEvents(events, events).WithActor("Ana")

	res, err := c.Cancel(context.Background(), []model.FlexString{"1", "99"}, "admin console")
	require.NoError(t, err)
	require.Len(t, res.Tables, 2)
	assert.Equal(t, CancelDone, res.Tables[0].Status)
	assert.Equal(t, CancelFailed, res.Tables[1].Status)
	assert.ErrorIs(t, res.Err(), ErrTableNotFound)

	assert.Equal(t, 1, b.refetches)
	require.Len(t, events.notified, 1)
	assert.Equal(t, KindCancel, events.notified[0].Kind)
	assert.Equal(t, "admin console", events.notified[0].Origin)
	assert.Equal(t, model.FlexString("101"), events.notified[0].OrderID)
}
