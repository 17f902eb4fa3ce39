package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go-pos/pkg/response"

	"github.com/gin-gonic/gin"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCPrinterHealth asks the print agent's gRPC health service whether it has a printer.
// service is the print agent's registered name, which is also its health service name.
type GRPCPrinterHealth struct {
	client  healthpb.HealthClient
	service string
	timeout time.Duration
}

func NewGRPCPrinterHealth(client healthpb.HealthClient, service string) *GRPCPrinterHealth {
	return &GRPCPrinterHealth{client: client, service: service, timeout: 3 * time.Second}
}

func (g *GRPCPrinterHealth) Status(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	resp, err := g.client.Check(ctx, &healthpb.HealthCheckRequest{Service: g.service})
	if err != nil {
		return "", err
	}
	return resp.GetStatus().String(), nil
}

func (h *Handler) PrinterStatus(c *gin.Context) {
	if h.d.Printer == nil {
		response.Error(c, http.StatusServiceUnavailable, "Printing is not configured")
		return
	}
	status, err := h.d.Printer.Status(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Warn("print agent health check")
		response.Detail(c, http.StatusServiceUnavailable, "Print agent unreachable", err.Error())
		return
	}
	response.Success(c, gin.H{
		"status": status,
		"ready":  status == healthpb.HealthCheckResponse_SERVING.String(),
	})
}

// RecentTransfers lists the latest moves, merges and cancellations. ?limit= caps the count.
func (h *Handler) RecentTransfers(c *gin.Context) {
	if h.d.Audit == nil {
		response.Error(c, http.StatusServiceUnavailable, "Audit log is not configured")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.d.Audit.RecentTransfers(c.Request.Context(), limit)
	if err != nil {
		h.log.WithError(err).Error("reading transfer log")
		response.Error(c, http.StatusInternalServerError, "Failed to read transfer log")
		return
	}
	response.Success(c, logs)
}
