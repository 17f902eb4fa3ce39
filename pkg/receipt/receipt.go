package receipt

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go-pos/pkg/config"
	"go-pos/pkg/model"
	"go-pos/pkg/money"
	"go-pos/pkg/printer"

	"github.com/shopspring/decimal"
)

// Context decides which blocks a receipt carries.
type Context string

const (
	ContextDineIn   Context = "dine_in"
	ContextDelivery Context = "delivery"
)

// ParseContext maps anything that is not "delivery" to dine-in.
func ParseContext(s string) Context {
	if Context(strings.ToLower(strings.TrimSpace(s))) == ContextDelivery {
		return ContextDelivery
	}
	return ContextDineIn
}

const (
	dateLayout    = "01/02/2006"
	timeLayout    = "3:04 PM"
	defaultWidth  = 32
	trailingFeeds = 3
)

// Formatter turns orders into printer directives. It holds no per-call state, so the same
// order and clock always give the same directives.
type Formatter struct {
	Store config.StoreConfig
	Width int
	// Clock stamps orders that have no created_at.
	Clock func() time.Time
	// Location is the store's zone; receipt dates and times are printed in it.
	Location *time.Location
}

func NewFormatter(store config.StoreConfig, width int) *Formatter {
	return &Formatter{Store: store, Width: width, Clock: time.Now, Location: store.Location()}
}

func (f *Formatter) width() int {
	if f.Width <= 0 {
		return defaultWidth
	}
	return f.Width
}

func (f *Formatter) separator() printer.Directive {
	return printer.Text(strings.Repeat("-", f.width()))
}

// columns left-aligns label and right-aligns value on one line, falling back to a single
// space when they don't fit.
func (f *Formatter) columns(label, value string) string {
	gap := f.width() - len([]rune(label)) - len([]rune(value))
	if gap < 1 {
		gap = 1
	}
	return label + strings.Repeat(" ", gap) + value
}

func (f *Formatter) Format(order model.Order, rc Context) []printer.Directive {
	var out []printer.Directive
	add := func(d ...printer.Directive) { out = append(out, d...) }

	add(printer.SetAlign(printer.AlignCenter))
	if f.Store.Name != "" {
		add(printer.StyledText(f.Store.Name, printer.Style{Bold: true, DoubleSize: true}))
	}
	if f.Store.Address != "" {
		add(printer.Text(f.Store.Address))
	}
	if f.Store.Phone != "" {
		add(printer.Text(f.Store.Phone))
	}

	add(printer.SetAlign(printer.AlignLeft), f.separator())

	if order.OrderNumber != "" {
		add(printer.StyledText("Order #"+order.OrderNumber.String(), printer.Style{Bold: true}))
	}
	created := f.clock().In(f.location())
	if order.CreatedAt != nil && !order.CreatedAt.IsZero() {
		created = order.CreatedAt.In(f.location())
	}
	add(printer.Text("Date: "+created.Format(dateLayout)), printer.Text("Time: "+created.Format(timeLayout)))
	if order.OrderType != "" {
		add(printer.Text("Type: " + order.OrderType.Human()))
	}
	if order.TableNumber != "" {
		add(printer.Text("Table: " + order.TableNumber.String()))
	}
	add(f.separator())

	if rc == ContextDelivery && order.CustomerName != "" {
		add(printer.StyledText("CUSTOMER INFORMATION", printer.Style{Bold: true}),
			printer.Text("Name: "+order.CustomerName))
		if order.CustomerPhone != "" {
			add(printer.Text("Phone: " + order.CustomerPhone))
		}
		if order.CustomerAddress != "" {
			add(printer.Text("Address: " + order.CustomerAddress))
		}
		add(f.separator())
	}

	for _, li := range order.Items {
		add(f.item(li)...)
	}

	add(f.separator())
	if order.Subtotal != nil {
		add(printer.Text(f.columns("Subtotal:", money.FormatPtr(order.Subtotal))))
	}
	if order.Tax != nil {
		add(printer.Text(f.columns("Tax:", money.FormatPtr(order.Tax))))
	}
	if order.Total != nil {
		add(printer.StyledText(f.columns("TOTAL:", money.FormatPtr(order.Total)), printer.Style{Bold: true}))
	}

	if order.PaymentMethod != "" {
		add(f.separator(),
			printer.StyledText("PAYMENT INFORMATION", printer.Style{Bold: true}),
			printer.Text("Method: "+strings.ToUpper(order.PaymentMethod)))
		if change := model.Decimal(order.ChangeAmount); change.IsPositive() {
			add(printer.Text("Change: " + money.Format(change)))
		}
	}

	footer := f.Store.Footer
	if footer == "" {
		footer = "Thank you for your visit!"
	}
	add(printer.SetAlign(printer.AlignCenter),
		printer.Text(footer),
		printer.Feed(trailingFeeds),
		printer.Cut())
	return out
}

func (f *Formatter) item(li model.LineItem) []printer.Directive {
	total := li.LineTotal()
	qty := li.Quantity
	if qty == 0 {
		qty = 1
	}
	unit := total.Div(decimal.NewFromInt(int64(qty)))

	out := []printer.Directive{printer.StyledText(li.MenuItemName, printer.Style{Bold: true})}
	if li.Description != "" {
		out = append(out, printer.Text("  "+li.Description))
	}
	out = append(out, printer.Text("  "+strconv.Itoa(li.Quantity)+" x "+money.Format(unit)))
	for _, m := range li.Modifiers {
		out = append(out, printer.Text("    + "+m.Name+" "+money.FormatPtr(m.Price)))
	}
	return append(out, printer.Text(f.columns("", money.Format(total))))
}

func (f *Formatter) location() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}

func (f *Formatter) clock() time.Time {
	if f.Clock == nil {
		return time.Now()
	}
	return f.Clock()
}

// Print formats order and sends it to p. Nothing is formatted unless a printer is connected.
func Print(ctx context.Context, p *printer.Service, f *Formatter, order model.Order, rc Context) error {
	if !p.Connected() {
		return printer.ErrNotConnected
	}
	return p.Run(ctx, f.Format(order, rc))
}
