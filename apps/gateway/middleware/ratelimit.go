package middleware

import (
	"fmt"
	"net/http"

	"go-pos/pkg/response"

	sentinel "github.com/alibaba/sentinel-golang/api"
	"github.com/alibaba/sentinel-golang/core/base"
	"github.com/alibaba/sentinel-golang/core/flow"
	"github.com/gin-gonic/gin"
)

const (
	ResBulkCancel  = "bulk_cancel"
	ResPrintSubmit = "print_submit"
)

// InitSentinel starts sentinel and loads per-second limits for the guarded resources.
func InitSentinel(limits map[string]float64) error {
	if err := sentinel.InitDefault(); err != nil {
		return fmt.Errorf("initialising sentinel: %w", err)
	}
	rules := make([]*flow.Rule, 0, len(limits))
	for res, qps := range limits {
		rules = append(rules, &flow.Rule{
			Resource:               res,
			TokenCalculateStrategy: flow.Direct,
			ControlBehavior:        flow.Reject,
			Threshold:              qps,
			StatIntervalInMs:       1000,
		})
	}
	if _, err := flow.LoadRules(rules); err != nil {
		return fmt.Errorf("loading sentinel rules: %w", err)
	}
	return nil
}

// RateLimit rejects requests with 429 once resource is over its limit.
func RateLimit(resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, b := sentinel.Entry(resource, sentinel.WithTrafficType(base.Inbound))
		if b != nil {
			response.Error(c, http.StatusTooManyRequests, "Too many requests, please try again shortly")
			return
		}
		defer e.Exit()
		c.Next()
	}
}
