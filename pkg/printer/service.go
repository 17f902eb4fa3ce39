package printer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

const (
	StatusDisconnected = "disconnected"
	StatusConnecting   = "connecting"
)

// Service owns the single printer connection of a process and serialises print runs over it.
type Service struct {
	mu        sync.Mutex
	transport Transport
	device    *Device
	status    string
	listeners []func(status string, connected bool)
	log       *log.Entry
}

func NewService(t Transport, logger *log.Entry) *Service {
	return &Service{transport: t, status: StatusDisconnected, log: logger}
}

// OnStatus registers fn to receive every status text change. fn runs with the service
// locked and must not call back into it.
func (s *Service) OnStatus(fn func(status string, connected bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Service) setStatus(status string) {
	s.status = status
	for _, fn := range s.listeners {
		fn(status, s.device != nil)
	}
}

func (s *Service) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Service) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device != nil
}

// Device returns the connected device, if any.
func (s *Service) Device() (Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return Device{}, false
	}
	return *s.device, true
}

func (s *Service) Discover(ctx context.Context) ([]Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport.Discover(ctx)
}

func (s *Service) Connect(ctx context.Context, d Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectLocked(ctx, d)
}

func (s *Service) connectLocked(ctx context.Context, d Device) error {
	s.device = nil
	s.setStatus(StatusConnecting)
	if err := s.transport.Connect(ctx, d); err != nil {
		s.setStatus("error: " + err.Error())
		s.log.WithError(err).WithField("address", d.Address).Warn("printer connect failed")
		return err
	}
	s.device = &d
	s.setStatus("connected to " + d.Name)
	s.log.WithFields(log.Fields{"name": d.Name, "address": d.Address}).Info("printer connected")
	return nil
}

// ConnectFirst discovers printers of the configured family and connects to the first one.
func (s *Service) ConnectFirst(ctx context.Context) (Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	devices, err := s.transport.Discover(ctx)
	if err != nil {
		s.setStatus("error: " + err.Error())
		return Device{}, err
	}
	if len(devices) == 0 {
		s.setStatus("error: " + ErrNoDevice.Error())
		return Device{}, ErrNoDevice
	}
	var errs []error
	for _, d := range devices {
		err := s.connectLocked(ctx, d)
		if err == nil {
			return d, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return Device{}, errors.Join(errs...)
}

func (s *Service) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.device = nil
	err := s.transport.Disconnect()
	s.setStatus(StatusDisconnected)
	return err
}

// Run prints directives in order. It fails before sending anything when no printer is
// connected; a failure part way through is returned as *PrintError. Cut failures are ignored.
func (s *Service) Run(ctx context.Context, directives []Directive) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return ErrNotConnected
	}
	if err := s.transport.Initialize(); err != nil {
		return s.failed(&PrintError{Op: "initialize", Err: err})
	}
	for _, d := range directives {
		if err := ctx.Err(); err != nil {
			return &PrintError{Op: d.Op, Err: err}
		}
		var err error
		switch d.Op {
		case OpAlign:
			err = s.transport.SetAlignment(d.Align)
		case OpText:
			err = s.transport.PrintText(d.Text, d.Style)
		case OpFeed:
			for i := 0; i < d.Lines && err == nil; i++ {
				err = s.transport.PrintText("", Style{})
			}
		case OpCut:
			if cerr := s.transport.Cut(); cerr != nil {
				s.log.WithError(cerr).Debug("cut skipped")
			}
		default:
			err = fmt.Errorf("unknown directive %q", d.Op)
		}
		if err != nil {
			return s.failed(&PrintError{Op: d.Op, Err: err})
		}
	}
	return nil
}

func (s *Service) failed(err *PrintError) error {
	if errors.Is(err.Err, ErrNotConnected) {
		s.device = nil
		s.setStatus(StatusDisconnected)
	}
	s.log.WithError(err).Warn("print run failed")
	return err
}
