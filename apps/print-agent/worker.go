package main

import (
	"context"

	"go-pos/pkg/events"
	"go-pos/pkg/printer"
	"go-pos/pkg/receipt"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// JobLog records how each print job ended.
type JobLog interface {
	FinishPrintJob(ctx context.Context, jobID, device string, printErr error) error
}

// worker prints the receipts of queued print jobs on the agent's printer.
type worker struct {
	printer *printer.Service
	format  *receipt.Formatter
	jobs    JobLog
	log     *log.Entry
}

// handle processes one print-job message. A returned error rejects the message.
func (w *worker) handle(ctx context.Context, body []byte) error {
	job, err := events.DecodePrintJob(body)
	if err != nil {
		w.log.WithError(err).Warn("dropping malformed print job")
		return err
	}
	entry := w.log.WithFields(log.Fields{"job": job.ID, "order": job.OrderID, "context": job.Context})

	err = receipt.Print(ctx, w.printer, w.format, job.Order, receipt.ParseContext(job.Context))
	device, _ := w.printer.Device()
	if w.jobs != nil {
		if ferr := w.jobs.FinishPrintJob(ctx, job.ID, device.Name, err); ferr != nil {
			entry.WithError(ferr).Warn("recording print job outcome")
		}
	}
	if err != nil {
		entry.WithError(err).Warn("print job failed")
		return err
	}
	entry.WithField("device", device.Name).Info("receipt printed")
	return nil
}

// reportHealth keeps the gRPC health status of service in step with the printer: SERVING
// only while a printer is connected.
func reportHealth(hs *health.Server, service string, p *printer.Service, entry *log.Entry) {
	set := func(connected bool) {
		st := healthpb.HealthCheckResponse_NOT_SERVING
		if connected {
			st = healthpb.HealthCheckResponse_SERVING
		}
		hs.SetServingStatus("", st)
		hs.SetServingStatus(service, st)
	}
	p.OnStatus(func(status string, connected bool) {
		entry.WithField("printer", status).Info("printer status")
		set(connected)
	})
	set(p.Connected())
}
