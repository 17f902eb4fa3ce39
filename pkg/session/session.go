package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go-pos/pkg/model"
	"go-pos/pkg/posapi"
	"go-pos/pkg/printer"

	log "github.com/sirupsen/logrus"
)

var ErrClosed = errors.New("session closed")

// Session is one logged-in staff member: the token-scoped backend client and, on devices
// with a printer, the printer service. It is created by Login and torn down by Close.
type Session struct {
	Staff model.Staff

	mu      sync.Mutex
	api     *posapi.Client
	printer *printer.Service
	closed  bool
	log     *log.Entry
}

type Option func(*Session)

// WithPrinter attaches a printer service; Close disconnects it.
func WithPrinter(p *printer.Service) Option { return func(s *Session) { s.printer = p } }

// Login exchanges a staff PIN for a backend token.
func Login(ctx context.Context, base *posapi.Client, pin string, logger *log.Entry, opts ...Option) (*Session, error) {
	resp, err := base.PinLogin(ctx, pin)
	if err != nil {
		return nil, fmt.Errorf("pin login: %w", err)
	}
	s := Resume(base, resp.AccessToken, resp.Staff, logger, opts...)
	s.log.Info("session started")
	return s, nil
}

// Resume rebuilds a session from a token issued earlier.
func Resume(base *posapi.Client, token string, staff model.Staff, logger *log.Entry, opts ...Option) *Session {
	s := &Session{
		Staff: staff,
		api:   base.WithToken(token),
		log:   logger.WithFields(log.Fields{"staff": staff.Name, "role": staff.Role}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// API returns the session's backend client.
func (s *Session) API() (*posapi.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.api, nil
}

// Printer returns the attached printer service, or nil.
func (s *Session) Printer() *printer.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.printer
}

// Close drops the token and disconnects the printer. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.api = nil
	var err error
	if s.printer != nil && s.printer.Connected() {
		err = s.printer.Disconnect()
	}
	s.log.Info("session closed")
	return err
}
