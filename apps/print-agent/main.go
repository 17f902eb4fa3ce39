package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-pos/pkg/audit"
	"go-pos/pkg/config"
	"go-pos/pkg/database"
	"go-pos/pkg/discovery"
	"go-pos/pkg/events"
	"go-pos/pkg/logger"
	"go-pos/pkg/poller"
	"go-pos/pkg/printer"
	"go-pos/pkg/receipt"
	"go-pos/pkg/tracer"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const reconnectInterval = 30 * time.Second

func main() {
	// 1. config and logging
	c, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := c.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	if c.RabbitMQ.Host == "" {
		log.Fatal("rabbitmq.host is required for the print agent")
	}
	// the agent is known by print_agent.name everywhere; service.name belongs to the gateway
	name := c.PrintAgent.Name
	entry, err := logger.Setup(name, c.Logging)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	tp, err := tracer.InitTracer(name, c.Jaeger.Endpoint)
	if err != nil {
		entry.WithError(err).Fatal("failed to init tracer")
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. printer
	transport, err := printer.NewFromConfig(c.Printer)
	if err != nil {
		entry.WithError(err).Fatal("failed to build printer transport")
	}
	svc := printer.NewService(transport, entry.WithField("component", "printer"))
	defer func() { _ = svc.Disconnect() }()

	hs := health.NewServer()
	reportHealth(hs, name, svc, entry)

	go poller.Every(ctx, reconnectInterval, func(ctx context.Context) error {
		if svc.Connected() {
			return nil
		}
		_, err := svc.ConnectFirst(ctx)
		return err
	}, func(err error) {
		entry.WithError(err).Warn("no printer connected, retrying")
	})

	// 3. audit log, optional
	w := &worker{
		printer: svc,
		format:  receipt.NewFormatter(c.Store, c.Printer.Width),
		log:     entry.WithField("component", "worker"),
	}

	if c.Mysql.Host != "" {
		db, err := database.InitMySQL(c.Mysql, entry)
		if err != nil {
			entry.WithError(err).Fatal("failed to init mysql")
		}
		store := audit.NewStore(db)
		if err := store.Migrate(); err != nil {
			entry.WithError(err).Fatal("failed to migrate audit tables")
		}
		w.jobs = store
	}

	// 4. grpc health server
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", c.Service.GrpcPort))
	if err != nil {
		entry.WithError(err).Fatal("failed to listen")
	}
	s := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)
	go func() {
		entry.Infof("health server listening on %s", lis.Addr())
		if err := s.Serve(lis); err != nil {
			entry.WithError(err).Error("grpc server stopped")
		}
	}()
	defer s.GracefulStop()

	if c.Consul.Enabled {
		deregister, err := discovery.RegisterService(discovery.Registration{
			Name:  name,
			Port:  c.Service.GrpcPort,
			Check: discovery.CheckGRPC,
			Tags:  []string{"grpc", "printer"},
		}, c.Consul.Address, entry)
		if err != nil {
			entry.WithError(err).Warn("consul registration failed")
		} else {
			defer func() { _ = deregister() }()
		}
	}

	// 5. print jobs
	mq, err := events.Dial(c.RabbitMQ)
	if err != nil {
		entry.WithError(err).Fatal("failed to connect rabbitmq")
	}
	defer mq.Close()
	if err := mq.DeclareTopology(); err != nil {
		entry.WithError(err).Fatal("failed to declare rabbitmq topology")
	}
	host, _ := os.Hostname()
	deliveries, cancel, err := mq.Consume(events.PrintQueue, name+"@"+host, c.RabbitMQ.Prefetch)
	if err != nil {
		entry.WithError(err).Fatal("failed to consume print jobs")
	}
	defer cancel()

	entry.Info("print agent ready")
	events.Handle(ctx, deliveries, func(ctx context.Context, d amqp.Delivery) error {
		return w.handle(ctx, d.Body)
	})
	entry.Info("shutting down")
}
