package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-pos/apps/gateway/handler"
	"go-pos/apps/gateway/middleware"
	"go-pos/pkg/audit"
	"go-pos/pkg/config"
	"go-pos/pkg/database"
	"go-pos/pkg/discovery"
	"go-pos/pkg/events"
	"go-pos/pkg/jwt"
	"go-pos/pkg/logger"
	"go-pos/pkg/posapi"
	"go-pos/pkg/repository"
	"go-pos/pkg/tracer"

	"github.com/gin-gonic/gin"
	_ "github.com/mbobakov/grpc-consul-resolver"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const serviceName = "pos-gateway"

func main() {
	// 1. config and logging
	c, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := c.ValidateGateway(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	if c.Service.Name == "" {
		c.Service.Name = serviceName
	}
	entry, err := logger.Setup(c.Service.Name, c.Logging)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	// 2. tracing and rate limits
	tp, err := tracer.InitTracer(c.Service.Name, c.Jaeger.Endpoint)
	if err != nil {
		entry.WithError(err).Fatal("failed to init tracer")
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	if err := middleware.InitSentinel(map[string]float64{
		middleware.ResBulkCancel:  2,
		middleware.ResPrintSubmit: 10,
	}); err != nil {
		entry.WithError(err).Fatal("failed to init sentinel")
	}

	tokens, err := jwt.NewManager(c.Jwt)
	if err != nil {
		entry.WithError(err).Fatal("failed to init jwt")
	}

	deps := handler.Deps{
		Backend:        posapi.New(c.Backend, entry),
		Tokens:         tokens,
		DefaultTaxRate: c.Transfer.DefaultTaxRate,
		PollInterval:   c.Orders.PollInterval,
		ManagerPinHash: c.Security.ManagerPinHash,
		Log:            entry,
	}

	// 3. optional infrastructure; each one missing disables only what depends on it
	var cache repository.Cache = repository.NoCache{}
	if rdb, err := database.InitRedis(c.Redis, entry); err != nil {
		entry.WithError(err).Warn("redis unavailable, table cache disabled")
	} else {
		defer rdb.Close()
		cache = repository.NewRedisCache(rdb)
	}
	deps.Tables = repository.NewTableRepository(cache, c.Redis.TableTTL, entry)

	if c.Mysql.Host != "" {
		db, err := database.InitMySQL(c.Mysql, entry)
		if err != nil {
			entry.WithError(err).Fatal("failed to init mysql")
		}
		store := audit.NewStore(db)
		if err := store.Migrate(); err != nil {
			entry.WithError(err).Fatal("failed to migrate audit tables")
		}
		deps.Audit = store
	}

	if c.RabbitMQ.Host != "" {
		mq, err := events.Dial(c.RabbitMQ)
		if err != nil {
			entry.WithError(err).Fatal("failed to connect rabbitmq")
		}
		defer mq.Close()
		if err := mq.DeclareTopology(); err != nil {
			entry.WithError(err).Fatal("failed to declare rabbitmq topology")
		}
		bus := events.NewBus(mq, entry)
		deps.Notifier = bus
		deps.Print = bus
	}

	if c.Consul.Enabled {
		conn, err := grpc.NewClient(
			fmt.Sprintf("consul://%s/%s?wait=14s", c.Consul.Address, c.PrintAgent.Name),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithDefaultServiceConfig(`{"loadBalancingPolicy": "round_robin"}`),
			grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		)
		if err != nil {
			entry.WithError(err).Fatal("failed to create print agent client")
		}
		defer conn.Close()
		deps.Printer = handler.NewGRPCPrinterHealth(healthpb.NewHealthClient(conn), c.PrintAgent.Name)
	}

	// 4. http server
	if c.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(handler.New(deps), handler.Options{
		ServiceName: c.Service.Name,
		CorsOrigins: c.Cors.AllowOrigins,
		RateLimit:   true,
		Tracing:     c.Jaeger.Endpoint != "",
	})
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.Service.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if c.Consul.Enabled {
		deregister, err := discovery.RegisterService(discovery.Registration{
			Name:  c.Service.Name,
			Port:  c.Service.Port,
			Check: discovery.CheckHTTP,
			Tags:  []string{"http", "gateway"},
		}, c.Consul.Address, entry)
		if err != nil {
			entry.WithError(err).Warn("consul registration failed")
		} else {
			defer func() { _ = deregister() }()
		}
	}

	go func() {
		entry.Infof("gateway listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			entry.WithError(err).Fatal("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	entry.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		entry.WithError(err).Warn("http shutdown")
	}
}
