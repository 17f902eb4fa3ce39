package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go-pos/pkg/config"
	"go-pos/pkg/logger"
	"go-pos/pkg/model"
	"go-pos/pkg/posapi"
	"go-pos/pkg/printer"
	"go-pos/pkg/receipt"
	"go-pos/pkg/repository"
	"go-pos/pkg/session"
	"go-pos/pkg/transfer"

	log "github.com/sirupsen/logrus"
)

const usage = `usage: posctl [-config DIR] [-pin PIN] <command>

commands:
  tables                 list tables and their orders
  transfer               move or merge a table interactively
  cancel ID[,ID...]      cancel the orders on the given tables and free them
  print [-delivery] ID   print the receipt for an order on the local printer
  watch                  show active orders, refreshed every poll interval
`

func main() {
	configDir := flag.String("config", ".", "directory holding config.yaml")
	pin := flag.String("pin", os.Getenv("POS_PIN"), "staff PIN (default $POS_PIN)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*configDir, *pin, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configDir, pin string, args []string) error {
	c, err := config.LoadConfig(configDir)
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if pin == "" {
		return errors.New("a staff PIN is required (-pin or POS_PIN)")
	}
	// the terminal is for the user; logs go to the configured file only
	if c.Logging.File == "" {
		c.Logging.Level = "error"
	}
	entry, err := logger.Setup("posctl", c.Logging)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []session.Option
	if args[0] == "print" {
		transport, err := printer.NewFromConfig(c.Printer)
		if err != nil {
			return err
		}
		opts = append(opts, session.WithPrinter(printer.NewService(transport, entry)))
	}

	sess, err := session.Login(ctx, posapi.New(c.Backend, entry), pin, entry, opts...)
	if err != nil {
		return errors.New(posapi.Message(err, "Login failed"))
	}
	defer func() { _ = sess.Close() }()
	api, err := sess.API()
	if err != nil {
		return err
	}

	cl := newCLI(os.Stdin, os.Stdout)
	tables := repository.NewTableRepository(nil, 0, entry).Bind(api)

	switch args[0] {
	case "tables":
		return cl.tables(ctx, tables)
	case "transfer":
		wf := transfer.New(api, tables,
			transfer.WithTaxEstimator(transfer.NewTaxEstimator(api, c.Transfer.DefaultTaxRate, entry)),
			transfer.WithActor(sess.Staff.Name),
			transfer.WithLogger(entry),
		)
		return cl.transfer(ctx, wf)
	case "cancel":
		if len(args) < 2 {
			return errors.New("cancel needs table ids")
		}
		canceller := transfer.NewCanceller(api, tables, entry).WithActor(sess.Staff.Name)
		return cl.cancel(ctx, canceller, parseIDs(args[1:]))
	case "print":
		return runPrint(ctx, cl, sess, c, args[1:], entry)
	case "watch":
		return cl.watch(ctx, api, c.Orders.PollInterval)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runPrint(ctx context.Context, cl *cli, sess *session.Session, c *config.Config, args []string, entry *log.Entry) error {
	fs := flag.NewFlagSet("print", flag.ContinueOnError)
	delivery := fs.Bool("delivery", false, "print the delivery layout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("print needs exactly one order id")
	}
	rc := receipt.ContextDineIn
	if *delivery {
		rc = receipt.ContextDelivery
	}

	api, err := sess.API()
	if err != nil {
		return err
	}
	p := sess.Printer()
	device, err := p.ConnectFirst(ctx)
	if err != nil {
		return fmt.Errorf("connecting printer: %w", err)
	}
	entry.WithField("device", device.Name).Debug("printer ready")

	order, err := api.GetOrder(ctx, model.FlexString(fs.Arg(0)))
	if err != nil {
		return errors.New(posapi.Message(err, "Failed to load order"))
	}
	if err := receipt.Print(ctx, p, receipt.NewFormatter(c.Store, c.Printer.Width), order, rc); err != nil {
		return err
	}
	cl.printf("Printed order %s on %s\n", order.ID, device.Name)
	return nil
}

// parseIDs accepts "1,2" as well as "1 2".
func parseIDs(args []string) []model.FlexString {
	var ids []model.FlexString
	for _, a := range args {
		for _, p := range strings.Split(a, ",") {
			if p = strings.TrimSpace(p); p != "" {
				ids = append(ids, model.FlexString(p))
			}
		}
	}
	return ids
}
