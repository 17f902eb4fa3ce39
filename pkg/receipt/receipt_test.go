package receipt

import (
	"context"
	"strings"
	"testing"
	"time"

	"go-pos/pkg/config"
	"go-pos/pkg/logger"
	"go-pos/pkg/model"
	"go-pos/pkg/printer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

var fixedNow = time.Date(2024, 3, 9, 18, 45, 0, 0, time.UTC)

func newFormatter() *Formatter {
	f := NewFormatter(config.StoreConfig{Name: "Casa Verde", Address: "12 Main St", Phone: "555-0100"}, 32)
	f.Clock = func() time.Time { return fixedNow }
	f.Location = time.UTC
	return f
}

func texts(ds []printer.Directive) []string {
	var out []string
	for _, d := range ds {
		if d.Op == printer.OpText {
			out = append(out, d.Text)
		}
	}
	return out
}

func joined(ds []printer.Directive) string { return strings.Join(texts(ds), "\n") }

func burritoOrder() model.Order {
	return model.Order{
		ID:          "1",
		OrderNumber: "1002",
		OrderType:   model.DineIn,
		TableNumber: "5",
		Items: []model.LineItem{{
			MenuItemName: "Burrito",
			Quantity:     2,
			Price:        ptr(12),
			Modifiers:    []model.Modifier{{Name: "Guacamole", Price: ptr(1.5)}},
		}},
		Subtotal: ptr(27),
		Tax:      ptr(2.16),
		Total:    ptr(29.16),
	}
}

func TestFormatIsDeterministic(t *testing.T) {
	f := newFormatter()
	order := burritoOrder()
	assert.Equal(t, f.Format(order, ContextDineIn), f.Format(order, ContextDineIn))
}

func TestFormatLayout(t *testing.T) {
	out := newFormatter().Format(burritoOrder(), ContextDineIn)

	assert.Equal(t, printer.SetAlign(printer.AlignCenter), out[0])
	assert.Equal(t, "Casa Verde", out[1].Text)
	assert.True(t, out[1].Style.Bold)
	assert.Equal(t, printer.Cut(), out[len(out)-1])
	assert.Equal(t, printer.Feed(3), out[len(out)-2])

	lines := texts(out)
	assert.Contains(t, lines, "Order #1002")
	assert.Contains(t, lines, "Date: 03/09/2024")
	assert.Contains(t, lines, "Time: 6:45 PM")
	assert.Contains(t, lines, "Type: Dine In")
	assert.Contains(t, lines, "Table: 5")
	assert.Contains(t, lines, "  2 x $13.50")
	assert.Contains(t, lines, "    + Guacamole $1.50")
	assert.Contains(t, lines, "Subtotal:"+strings.Repeat(" ", 17)+"$27.00")
	assert.Contains(t, lines, strings.Repeat(" ", 26)+"$27.00")

	body := joined(out)
	assert.Less(t, strings.Index(body, "Burrito"), strings.Index(body, "2 x"))
	assert.Less(t, strings.Index(body, "Guacamole"), strings.Index(body, "Subtotal"))
}

func TestFormatOmitsOptionalBlocks(t *testing.T) {
	order := model.Order{
		ID:    "2",
		Items: []model.LineItem{{MenuItemName: "Soda", Quantity: 1, Price: ptr(2)}},
	}
	out := newFormatter().Format(order, ContextDelivery)
	body := joined(out)

	assert.NotContains(t, body, "Table:")
	assert.NotContains(t, body, "CUSTOMER INFORMATION")
	assert.NotContains(t, body, "PAYMENT INFORMATION")
	assert.NotContains(t, body, "Subtotal")
	assert.NotContains(t, body, "Tax")
	assert.NotContains(t, body, "TOTAL")
	assert.NotContains(t, body, "Order #")
	assert.NotContains(t, body, "NaN")
}

func TestFormatPresentZeroTotals(t *testing.T) {
	order := model.Order{Subtotal: ptr(0), Tax: ptr(0), Total: ptr(0)}
	lines := texts(newFormatter().Format(order, ContextDineIn))
	assert.Contains(t, lines, "Subtotal:"+strings.Repeat(" ", 18)+"$0.00")
	assert.Contains(t, lines, "Tax:"+strings.Repeat(" ", 23)+"$0.00")
}

func TestFormatCurrency(t *testing.T) {
	order := model.Order{
		Items:    []model.LineItem{{MenuItemName: "Taco", Quantity: 1, Price: ptr(8.5)}},
		Subtotal: ptr(8.5),
	}
	body := joined(newFormatter().Format(order, ContextDineIn))
	assert.Contains(t, body, "1 x $8.50")
	assert.NotContains(t, body, "$8.5\n")
}

func TestFormatZeroQuantityDoesNotPanic(t *testing.T) {
	order := model.Order{Items: []model.LineItem{{MenuItemName: "Ghost", Quantity: 0, Price: ptr(3), TotalPrice: ptr(3)}}}
	lines := texts(newFormatter().Format(order, ContextDineIn))
	assert.Contains(t, lines, "  0 x $3.00")
}

func TestFormatCustomerBlockOnlyForDelivery(t *testing.T) {
	order := burritoOrder()
	order.OrderType = model.Delivery
	order.CustomerName = "Rosa"
	order.CustomerPhone = "555-0199"
	order.CustomerAddress = "4 Elm Rd"
	order.PaymentMethod = "card"
	order.ChangeAmount = ptr(0)

	dineIn := joined(newFormatter().Format(order, ContextDineIn))
	assert.NotContains(t, dineIn, "CUSTOMER INFORMATION")

	delivery := texts(newFormatter().Format(order, ContextDelivery))
	assert.Contains(t, delivery, "CUSTOMER INFORMATION")
	assert.Contains(t, delivery, "Name: Rosa")
	assert.Contains(t, delivery, "Phone: 555-0199")
	assert.Contains(t, delivery, "Address: 4 Elm Rd")
	assert.Contains(t, delivery, "Method: CARD")
	assert.NotContains(t, strings.Join(delivery, "\n"), "Change:")

	order.PaymentMethod = "cash"
	order.ChangeAmount = ptr(3.25)
	assert.Contains(t, texts(newFormatter().Format(order, ContextDineIn)), "Change: $3.25")
}

func TestFormatUsesCreatedAt(t *testing.T) {
	at := model.Timestamp{Time: time.Date(2023, 12, 1, 9, 5, 0, 0, time.UTC)}
	lines := texts(newFormatter().Format(model.Order{CreatedAt: &at}, ContextDineIn))
	assert.Contains(t, lines, "Date: 12/01/2023")
	assert.Contains(t, lines, "Time: 9:05 AM")
}

func TestFormatPrintsInStoreZone(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	f := newFormatter()
	f.Location = chicago

	// 01:30 UTC on Dec 2 is 7:30 PM on Dec 1 in Chicago
	utc := model.Timestamp{Time: time.Date(2023, 12, 2, 1, 30, 0, 0, time.UTC)}
	lines := texts(f.Format(model.Order{CreatedAt: &utc}, ContextDineIn))
	assert.Contains(t, lines, "Date: 12/01/2023")
	assert.Contains(t, lines, "Time: 7:30 PM")

	naive, err := model.ParseTimestamp("2025-03-01T18:30:12.123456")
	require.NoError(t, err)
	lines = texts(f.Format(model.Order{CreatedAt: &naive}, ContextDineIn))
	assert.Contains(t, lines, "Date: 03/01/2025")
	assert.Contains(t, lines, "Time: 6:30 PM")

	lines = texts(f.Format(model.Order{}, ContextDineIn))
	assert.Contains(t, lines, "Date: 03/09/2024")
	assert.Contains(t, lines, "Time: 12:45 PM")
}

func TestParseContext(t *testing.T) {
	assert.Equal(t, ContextDelivery, ParseContext(" Delivery "))
	assert.Equal(t, ContextDineIn, ParseContext(""))
	assert.Equal(t, ContextDineIn, ParseContext("takeout"))
}

type nopTransport struct{ printed []string }

func (n *nopTransport) Connect(context.Context, printer.Device) error { return nil }
func (n *nopTransport) Disconnect() error                             { return nil }
func (n *nopTransport) Initialize() error                             { return nil }
func (n *nopTransport) SetAlignment(printer.Align) error              { return nil }
func (n *nopTransport) PrintText(s string, _ printer.Style) error {
	n.printed = append(n.printed, s)
	return nil
}
func (n *nopTransport) Cut() error                                         { return printer.ErrCutUnsupported }
func (n *nopTransport) Discover(context.Context) ([]printer.Device, error) { return nil, nil }

func TestPrintChecksConnectionFirst(t *testing.T) {
	tr := &nopTransport{}
	svc := printer.NewService(tr, logger.Discard())

	err := Print(context.Background(), svc, newFormatter(), burritoOrder(), ContextDineIn)
	assert.ErrorIs(t, err, printer.ErrNotConnected)
	assert.Equal(t, "no printer connected", err.Error())
	assert.Empty(t, tr.printed)

	require.NoError(t, svc.Connect(context.Background(), printer.Device{Name: "InnerPrinter"}))
	require.NoError(t, Print(context.Background(), svc, newFormatter(), burritoOrder(), ContextDineIn))
	assert.Contains(t, tr.printed, "Casa Verde")
}
