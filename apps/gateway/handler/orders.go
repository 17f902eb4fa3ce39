package handler

import (
	"context"
	"net/http"

	"go-pos/apps/gateway/middleware"
	"go-pos/pkg/events"
	"go-pos/pkg/model"
	"go-pos/pkg/poller"
	"go-pos/pkg/posapi"
	"go-pos/pkg/receipt"
	"go-pos/pkg/response"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) ActiveOrders(c *gin.Context) {
	orders, err := h.api(c).ListActiveOrders(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to load active orders")
		return
	}
	response.Success(c, orders)
}

// StreamActiveOrders pushes the active orders as server-sent events, once on connect and then
// every poll interval, until the client goes away. A failed poll sends an "error" event and
// the stream carries on.
func (h *Handler) StreamActiveOrders(c *gin.Context) {
	api := h.api(c)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	entry := h.log.WithField("staff", middleware.Claims(c).StaffName)
	entry.Debug("active orders stream opened")

	poller.Every(c.Request.Context(), h.d.PollInterval, func(ctx context.Context) error {
		orders, err := api.ListActiveOrders(ctx)
		if err != nil {
			return err
		}
		if orders == nil {
			orders = []model.Order{}
		}
		c.SSEvent("orders", orders)
		c.Writer.Flush()
		return nil
	}, func(err error) {
		entry.WithError(err).Warn("polling active orders")
		c.SSEvent("error", gin.H{"message": posapi.Message(err, "Failed to load active orders")})
		c.Writer.Flush()
	})
	entry.Debug("active orders stream closed")
}

type printRequest struct {
	Context string `json:"context"`
}

// PrintOrder queues a receipt for the print agent. The order is loaded here and travels in the
// job, so a bad id is rejected before queueing and the agent needs no backend credentials.
func (h *Handler) PrintOrder(c *gin.Context) {
	if h.d.Print == nil {
		response.Error(c, http.StatusServiceUnavailable, "Printing is not configured")
		return
	}
	var req printRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	ctx := c.Request.Context()
	orderID := model.FlexString(c.Param("id"))
	order, err := h.api(c).GetOrder(ctx, orderID)
	if err != nil {
		h.fail(c, err, "Failed to load order")
		return
	}
	if order.ID == "" {
		order.ID = orderID
	}

	job := events.NewPrintJob(order, string(receipt.ParseContext(req.Context)), middleware.Claims(c).StaffName)
	entry := h.log.WithFields(log.Fields{"job": job.ID, "order": orderID})

	if h.d.Audit != nil {
		if err := h.d.Audit.CreatePrintJob(ctx, job); err != nil {
			entry.WithError(err).Warn("recording print job")
		}
	}
	if err := h.d.Print.EnqueuePrint(ctx, job); err != nil {
		entry.WithError(err).Error("queueing print job")
		if h.d.Audit != nil {
			_ = h.d.Audit.FinishPrintJob(ctx, job.ID, "", err)
		}
		response.Error(c, http.StatusBadGateway, "Failed to queue print job")
		return
	}
	entry.Info("print job queued")
	response.Status(c, http.StatusAccepted, "Print job queued", gin.H{"job_id": job.ID, "context": job.Context})
}
