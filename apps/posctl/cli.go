package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"go-pos/pkg/model"
	"go-pos/pkg/money"
	"go-pos/pkg/poller"
	"go-pos/pkg/posapi"
	"go-pos/pkg/transfer"
)

var errQuit = errors.New("quit")

type cli struct {
	in  *bufio.Scanner
	out io.Writer
}

func newCLI(in io.Reader, out io.Writer) *cli {
	return &cli{in: bufio.NewScanner(in), out: out}
}

func (c *cli) printf(format string, args ...any) { fmt.Fprintf(c.out, format, args...) }

// prompt reads one trimmed line. End of input is errQuit.
func (c *cli) prompt(label string) (string, error) {
	c.printf("%s", label)
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", errQuit
	}
	return strings.TrimSpace(c.in.Text()), nil
}

func (c *cli) tableList(tables []model.Table) {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTABLE\tSTATUS\tORDER")
	for _, t := range tables {
		order := t.OrderID().String()
		if order == "" {
			order = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Label(), t.Status, order)
	}
	_ = tw.Flush()
}

func (c *cli) tables(ctx context.Context, store transfer.TableStore) error {
	tables, err := store.List(ctx)
	if err != nil {
		return errors.New(posapi.Message(err, "Failed to load tables"))
	}
	c.tableList(tables)
	return nil
}

// transfer drives the workflow from the terminal until a move or merge completes or the
// user quits.
func (c *cli) transfer(ctx context.Context, wf *transfer.Workflow) error {
	if _, err := wf.Start(ctx); err != nil {
		if errors.Is(err, transfer.ErrNoOccupiedTables) {
			c.printf("No occupied tables to transfer.\n")
			return nil
		}
		return err
	}

	for {
		var err error
		switch st := wf.State().(type) {
		case transfer.SelectSource:
			err = c.chooseSource(wf, st)
		case transfer.SelectDestination:
			var done bool
			done, err = c.chooseDestination(ctx, wf, st)
			if done {
				return nil
			}
		case transfer.ConfirmMerge:
			var done bool
			done, err = c.confirmMerge(ctx, wf, st)
			if done {
				return nil
			}
		}
		if errors.Is(err, errQuit) {
			c.printf("Cancelled.\n")
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (c *cli) chooseSource(wf *transfer.Workflow, st transfer.SelectSource) error {
	c.printf("\nOccupied tables:\n")
	c.tableList(st.Candidates)
	in, err := c.prompt("Move from table (id, blank to quit): ")
	if err != nil {
		return err
	}
	if in == "" {
		return errQuit
	}
	if _, err := wf.ChooseSource(model.FlexString(in)); err != nil {
		c.printf("%s\n", transfer.UserMessage(err))
	}
	return nil
}

func (c *cli) chooseDestination(ctx context.Context, wf *transfer.Workflow, st transfer.SelectDestination) (bool, error) {
	c.printf("\nFrom %s\n", st.Source.Label())
	if len(st.Available) > 0 {
		c.printf("Move to an available table:\n")
		c.tableList(st.Available)
	}
	if len(st.Occupied) > 0 {
		c.printf("Merge into an occupied table:\n")
		c.tableList(st.Occupied)
	}
	in, err := c.prompt("Destination (id, b to go back): ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(in) {
	case "":
		return false, errQuit
	case "b":
		wf.Back()
		return false, nil
	}

	out, err := wf.ChooseDestination(ctx, model.FlexString(in))
	if err != nil {
		c.printf("%s\n", transfer.UserMessage(err))
		return false, nil
	}
	if out.Result != nil {
		c.printf("%s\n", out.Result.Message)
		return true, nil
	}
	return false, nil
}

func (c *cli) confirmMerge(ctx context.Context, wf *transfer.Workflow, st transfer.ConfirmMerge) (bool, error) {
	c.printf("\nMerge %s into %s\n", st.Source.Label(), st.Destination.Label())
	if st.Degraded() {
		c.printf("Order details are unavailable; the backend will compute the merged total.\n")
	} else {
		s := st.Preview.Summary()
		c.orderItems(st.Source.Label(), st.SourceOrder, s.SourceSubtotal)
		c.orderItems(st.Destination.Label(), st.DestinationOrder, s.DestinationSubtotal)
		c.printf("  Combined subtotal:  %s\n", s.CombinedSubtotal)
		c.printf("  Estimated tax (%s): %s\n", s.TaxRate, s.EstimatedTax)
		c.printf("  Estimated total:    %s\n", s.EstimatedTotal)
	}
	in, err := c.prompt("Merge? [y/N]: ")
	if err != nil {
		return false, err
	}
	if !strings.EqualFold(in, "y") {
		wf.Back()
		return false, nil
	}
	res, err := wf.ConfirmMerge(ctx)
	if err != nil {
		c.printf("%s\n", transfer.UserMessage(err))
		wf.Back()
		return false, nil
	}
	c.printf("%s\n", res.Message)
	return true, nil
}

// orderItems lists one side of a merge: its line items and subtotal.
func (c *cli) orderItems(label string, order *model.Order, subtotal string) {
	c.printf("  %s\n", label)
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', tabwriter.AlignRight)
	if order != nil {
		for _, li := range order.Items {
			fmt.Fprintf(tw, "    %d x\t%s\t%s\t\n", li.Quantity, li.MenuItemName, money.Format(li.LineTotal()))
		}
	}
	fmt.Fprintf(tw, "    \tSubtotal\t%s\t\n", subtotal)
	_ = tw.Flush()
}

func (c *cli) cancel(ctx context.Context, canceller *transfer.Canceller, ids []model.FlexString) error {
	res, err := canceller.Cancel(ctx, ids, "posctl")
	if err != nil {
		return err
	}
	for _, t := range res.Tables {
		line := fmt.Sprintf("%s: %s", t.Label, t.Status)
		if t.Message != "" {
			line += " (" + t.Message + ")"
		}
		c.printf("%s\n", line)
	}
	c.printf("Cancelled %d of %d table(s)\n", res.Cancelled(), len(res.Tables))
	if n := len(res.Failed()); n > 0 {
		return fmt.Errorf("%d table(s) could not be cancelled", n)
	}
	return nil
}

// ActiveOrders is the backend call watch polls.
type ActiveOrders interface {
	ListActiveOrders(ctx context.Context) ([]model.Order, error)
}

func (c *cli) watch(ctx context.Context, api ActiveOrders, interval time.Duration) error {
	poller.Every(ctx, interval, func(ctx context.Context) error {
		orders, err := api.ListActiveOrders(ctx)
		if err != nil {
			return err
		}
		c.orderList(time.Now(), orders)
		return nil
	}, func(err error) {
		c.printf("refresh failed: %s\n", posapi.Message(err, err.Error()))
	})
	return nil
}

func (c *cli) orderList(at time.Time, orders []model.Order) {
	c.printf("\nActive orders at %s: %d\n", at.Format("15:04:05"), len(orders))
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tTYPE\tTABLE\tSTATUS\tTOTAL")
	for _, o := range orders {
		num := o.OrderNumber
		if num == "" {
			num = o.ID
		}
		table := o.TableNumber.String()
		if table == "" {
			table = "-"
		}
		fmt.Fprintf(tw, "#%s\t%s\t%s\t%s\t%s\n", num, o.OrderType.Human(), table, o.Status, money.FormatPtr(o.Total))
	}
	_ = tw.Flush()
}
