package handler

import (
	"time"

	"go-pos/apps/gateway/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Options struct {
	ServiceName string
	CorsOrigins []string
	// RateLimit guards bulk cancel and print submission with sentinel; InitSentinel must have run.
	RateLimit bool
	Tracing   bool
}

func NewRouter(h *Handler, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if opts.Tracing {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}
	r.Use(middleware.RequestLogger(h.log))
	if len(opts.CorsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CorsOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	limit := func(resource string) gin.HandlerFunc {
		if opts.RateLimit {
			return middleware.RateLimit(resource)
		}
		return func(c *gin.Context) { c.Next() }
	}

	r.GET("/healthz", h.Health)

	v1 := r.Group("/api/v1")
	v1.POST("/auth/pin-login", h.PinLogin)

	authed := v1.Group("/")
	authed.Use(middleware.AuthMiddleware(h.d.Tokens))
	{
		authed.GET("/tables", h.ListTables)
		authed.POST("/tables/cancel", limit(middleware.ResBulkCancel), h.CancelTables)

		authed.GET("/transfer/sources", h.TransferSources)
		authed.GET("/transfer/destinations", h.TransferDestinations)
		authed.POST("/transfer", h.Transfer)
		authed.POST("/transfer/merge", h.TransferMerge)

		authed.GET("/orders/active", h.ActiveOrders)
		authed.GET("/orders/active/stream", h.StreamActiveOrders)
		authed.POST("/orders/:id/print", limit(middleware.ResPrintSubmit), h.PrintOrder)

		authed.GET("/printer/status", h.PrinterStatus)
		authed.GET("/audit/transfers", h.RecentTransfers)
	}
	return r
}
