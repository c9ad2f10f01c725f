// Package zeroconf advertises the control API over mDNS/DNS-SD so clients
// on the LAN can find the daemon.
package zeroconf

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the DNS-SD service type of the control API.
const ServiceType = "_periphd._tcp"

// Service manages mDNS service registration.
type Service struct {
	name string
	port int
	txt  []string
}

// New creates a service advertising instance name on port with the given
// TXT records.
func New(name string, port int, txt ...string) *Service {
	return &Service{name: name, port: port, txt: txt}
}

// TXT returns the TXT records that will be advertised.
func (s *Service) TXT() []string { return append([]string(nil), s.txt...) }

// Start registers the service and blocks until ctx is cancelled, then
// unregisters it.
func (s *Service) Start(ctx context.Context) error {
	if s.port <= 0 || s.port > 65535 {
		return fmt.Errorf("zeroconf: invalid port %d", s.port)
	}
	server, err := zeroconf.Register(s.name, ServiceType, "local.", s.port, s.txt, nil)
	if err != nil {
		return fmt.Errorf("zeroconf register: %w", err)
	}
	slog.Info("zeroconf: registered mDNS service", "name", s.name, "type", ServiceType, "port", s.port, "txt", s.txt)

	<-ctx.Done()

	server.Shutdown()
	slog.Info("zeroconf: mDNS service unregistered")
	return nil
}
