// Package discovery announces the controller on the local network via
// mDNS/DNS-SD, a supplemental ambient feature absent from the core
// secure-channel protocol.
package discovery

import (
	"net"
	"sync"

	"github.com/grandcat/zeroconf"
	"github.com/pion/logging"
)

// ServiceType is the DNS-SD service type this controller advertises
// itself as. There is exactly one, unlike the teacher's three-service
// (commissionable/operational/commissioner) discovery protocol.
const ServiceType = "_garagelink._tcp"

// DefaultDomain is the mDNS domain services are registered under.
const DefaultDomain = "local."

// MDNSServer is the interface for an active mDNS service registration.
// Allows dependency injection in tests.
type MDNSServer interface {
	Shutdown()
}

// MDNSServerFactory creates MDNSServer instances.
type MDNSServerFactory interface {
	Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error)
}

type zeroconfServerFactory struct{}

func (zeroconfServerFactory) Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error) {
	return zeroconf.Register(instance, service, domain, port, txt, ifaces)
}

// Config configures an Advertiser.
type Config struct {
	// InstanceName is the DNS-SD instance name. Defaults to
	// "garage-controller" if empty.
	InstanceName string

	// Port is the TCP port to advertise, matching Controller.Config's
	// ListenAddr port.
	Port int

	// Interfaces restricts advertisement to the given interfaces. If
	// nil, all interfaces are used.
	Interfaces []net.Interface

	// ServerFactory is the factory for creating mDNS servers. If nil,
	// the default zeroconf factory is used.
	ServerFactory MDNSServerFactory

	LoggerFactory logging.LoggerFactory
}

// Advertiser publishes a single _garagelink._tcp DNS-SD service, the
// minimal analog of the teacher's pkg/discovery/advertiser.go reduced
// from three service types and TXT-record subtype filtering down to
// one fixed service with no subtypes.
type Advertiser struct {
	config  Config
	factory MDNSServerFactory
	log     logging.LeveledLogger

	mu      sync.Mutex
	server  MDNSServer
	started bool
	closed  bool
}

// New creates an Advertiser. It does not register anything until Start
// is called.
func New(cfg Config) *Advertiser {
	if cfg.InstanceName == "" {
		cfg.InstanceName = "garage-controller"
	}
	factory := cfg.ServerFactory
	if factory == nil {
		factory = zeroconfServerFactory{}
	}

	a := &Advertiser{config: cfg, factory: factory}
	if cfg.LoggerFactory != nil {
		a.log = cfg.LoggerFactory.NewLogger("discovery")
	}
	return a
}

// Start registers the _garagelink._tcp service.
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	if a.started {
		return ErrAlreadyStarted
	}

	server, err := a.factory.Register(
		a.config.InstanceName,
		ServiceType,
		DefaultDomain,
		a.config.Port,
		nil,
		a.config.Interfaces,
	)
	if err != nil {
		return err
	}

	a.server = server
	a.started = true
	if a.log != nil {
		a.log.Infof("advertising %s on port %d as %q", ServiceType, a.config.Port, a.config.InstanceName)
	}
	return nil
}

// Stop unregisters the service. Idempotent once started.
func (a *Advertiser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return nil
	}
	a.server.Shutdown()
	a.server = nil
	a.started = false
	return nil
}

// Close stops the service and marks the Advertiser unusable.
func (a *Advertiser) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	if a.started {
		a.server.Shutdown()
		a.server = nil
		a.started = false
	}
	a.closed = true
	return nil
}
