package discovery

import (
	"fmt"
	"net"

	"github.com/hashicorp/consul/api"
	log "github.com/sirupsen/logrus"
)

// CheckKind selects how Consul probes a registered service.
type CheckKind int

const (
	CheckHTTP CheckKind = iota
	// CheckGRPC uses the standard grpc.health.v1 service.
	CheckGRPC
)

type Registration struct {
	Name  string
	Port  int
	Check CheckKind
	// HealthPath is probed for CheckHTTP.
	HealthPath string
	Tags       []string
}

// RegisterService registers the service with the Consul agent at consulAddr and returns a
// function that deregisters it.
func RegisterService(reg Registration, consulAddr string, entry *log.Entry) (func() error, error) {
	conf := api.DefaultConfig()
	conf.Address = consulAddr
	client, err := api.NewClient(conf)
	if err != nil {
		return nil, err
	}

	localIP, err := getOutboundIP()
	if err != nil {
		return nil, err
	}

	// ID must be unique per instance
	serviceID := fmt.Sprintf("%s-%s-%d", reg.Name, localIP, reg.Port)

	registration := &api.AgentServiceRegistration{
		ID:      serviceID,
		Name:    reg.Name,
		Port:    reg.Port,
		Address: localIP,
		Tags:    append([]string{"go-pos"}, reg.Tags...),
		Check:   buildCheck(reg, localIP),
	}

	if err := client.Agent().ServiceRegister(registration); err != nil {
		return nil, fmt.Errorf("registering %s with consul: %w", reg.Name, err)
	}

	entry.WithFields(log.Fields{"id": serviceID, "addr": fmt.Sprintf("%s:%d", localIP, reg.Port)}).Info("service registered")
	return func() error { return client.Agent().ServiceDeregister(serviceID) }, nil
}

func buildCheck(reg Registration, ip string) *api.AgentServiceCheck {
	check := &api.AgentServiceCheck{
		Interval:                       "10s",
		Timeout:                        "5s",
		DeregisterCriticalServiceAfter: "30s",
	}
	addr := net.JoinHostPort(ip, fmt.Sprint(reg.Port))
	switch reg.Check {
	case CheckGRPC:
		check.GRPC = addr
		check.GRPCUseTLS = false
	default:
		path := reg.HealthPath
		if path == "" {
			path = "/healthz"
		}
		check.HTTP = "http://" + addr + path
	}
	return check
}

// getOutboundIP finds the LAN address other hosts can reach us on; 127.0.0.1 is useless
// to Consul running elsewhere.
func getOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}
