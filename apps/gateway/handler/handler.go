package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go-pos/apps/gateway/middleware"
	"go-pos/pkg/audit"
	"go-pos/pkg/events"
	"go-pos/pkg/jwt"
	"go-pos/pkg/posapi"
	"go-pos/pkg/repository"
	"go-pos/pkg/response"
	"go-pos/pkg/transfer"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Origin is how the console identifies itself in cancellation notes.
const Origin = "admin console"

// AuditLog is the audit store the gateway writes to and reads from.
type AuditLog interface {
	transfer.Recorder
	RecentTransfers(ctx context.Context, limit int) ([]audit.TransferLog, error)
	CreatePrintJob(ctx context.Context, job events.PrintJob) error
	FinishPrintJob(ctx context.Context, jobID, device string, printErr error) error
}

// PrintQueue hands print jobs to the print agents.
type PrintQueue interface {
	EnqueuePrint(ctx context.Context, job events.PrintJob) error
}

// PrinterHealth reports the serving status of the print agent.
type PrinterHealth interface {
	Status(ctx context.Context) (string, error)
}

type Deps struct {
	Backend        *posapi.Client
	Tokens         *jwt.Manager
	Tables         *repository.TableRepository
	DefaultTaxRate float64
	PollInterval   time.Duration
	// ManagerPinHash is a bcrypt hash; when set, bulk cancellation requires the manager PIN.
	ManagerPinHash string

	// Optional collaborators; nil disables the feature that needs them.
	Notifier transfer.Notifier
	Audit    AuditLog
	Print    PrintQueue
	Printer  PrinterHealth

	Log *log.Entry
}

type Handler struct {
	d   Deps
	log *log.Entry
}

func New(d Deps) *Handler {
	if d.PollInterval <= 0 {
		d.PollInterval = 30 * time.Second
	}
	return &Handler{d: d, log: d.Log.WithField("component", "gateway")}
}

// api is the backend client scoped to the caller's session.
func (h *Handler) api(c *gin.Context) *posapi.Client {
	return h.d.Backend.WithToken(middleware.Claims(c).BackendToken)
}

func (h *Handler) workflow(c *gin.Context) *transfer.Workflow {
	api := h.api(c)
	opts := []transfer.Option{
		transfer.WithLogger(h.log),
		transfer.WithActor(middleware.Claims(c).StaffName),
		transfer.WithTaxEstimator(transfer.NewTaxEstimator(api, h.d.DefaultTaxRate, h.log)),
	}
	if h.d.Notifier != nil {
		opts = append(opts, transfer.WithNotifier(h.d.Notifier))
	}
	if h.d.Audit != nil {
		opts = append(opts, transfer.WithRecorder(h.d.Audit))
	}
	return transfer.New(api, h.d.Tables.Bind(api), opts...)
}

// fail maps err onto the response envelope. Backend details are passed through verbatim.
func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	_ = c.Error(err)

	var op *transfer.OpError
	var se *transfer.StateError
	switch {
	case errors.Is(err, transfer.ErrTableNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, transfer.ErrSourceNotOccupied),
		errors.Is(err, transfer.ErrDestinationNotOffered):
		response.Error(c, http.StatusConflict, err.Error())
	case errors.As(err, &se):
		response.Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, transfer.ErrSameTable):
		response.Error(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &op):
		response.Detail(c, backendStatus(err), op.Message, detailOf(err))
	default:
		response.Detail(c, backendStatus(err), posapi.Message(err, fallback), detailOf(err))
	}
}

// backendStatus keeps backend client errors (4xx) and reports everything else as 502.
func backendStatus(err error) int {
	if s := posapi.StatusCode(err); s >= 400 && s < 500 {
		return s
	}
	return http.StatusBadGateway
}

func detailOf(err error) string {
	var apiErr *posapi.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
