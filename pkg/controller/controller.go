// Package controller is the application root, generalizing the
// teacher's Node lifecycle (NewNode/Start/Stop, ordered sub-manager
// startup) to this core's much smaller dependency graph: a seed store,
// a PRG, a TCP channel, a session state machine, a door consumer, and
// an optional LAN advertiser.
package controller

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/valblant/garagelink/pkg/discovery"
	"github.com/valblant/garagelink/pkg/rng"
	"github.com/valblant/garagelink/pkg/seedstore"
	"github.com/valblant/garagelink/pkg/session"
	"github.com/valblant/garagelink/pkg/transport"
)

// Controller owns every long-lived dependency of the garage secure
// channel and wires them together. There is no package-level
// singleton: construct one with NewController, run it with Start, and
// release it with Stop.
type Controller struct {
	config Config
	log    logging.LeveledLogger

	store      *seedstore.Store
	rng        *rng.Generator
	channel    *transport.TCPChannel
	machine    *session.Machine
	advertiser *discovery.Advertiser

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewController validates cfg, constructs every dependency, and wires
// them together. Nothing is started: no listener accepts connections
// and no goroutine runs until Start is called.
func NewController(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	c := &Controller{config: cfg}
	if cfg.LoggerFactory != nil {
		c.log = cfg.LoggerFactory.NewLogger("controller")
	}

	store, err := seedstore.Open(seedstore.Config{
		Path:          cfg.SeedStorePath,
		Rotate:        cfg.RotateSeed,
		LoggerFactory: cfg.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}
	c.store = store

	c.rng = rng.New(rng.Config{
		PSK:           cfg.PSK,
		Store:         store,
		PingEnabled:   cfg.PingEnabled,
		PingTarget:    cfg.PingTarget,
		LoggerFactory: cfg.LoggerFactory,
	})

	channel, err := transport.NewTCPChannel(transport.Config{
		ListenAddr:    cfg.ListenAddr,
		LoggerFactory: cfg.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}
	c.channel = channel

	machine, err := session.NewMachine(session.Config{
		PSK:                  cfg.PSK,
		ConversationDuration: cfg.ConversationDuration,
		RNG:                  c.rng,
		Channel:              channel,
		Consumer:             cfg.Door,
		LoggerFactory:        cfg.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}
	c.machine = machine

	if cfg.Advertise {
		c.advertiser = discovery.New(discovery.Config{
			InstanceName:  cfg.ServiceName,
			Port:          tcpPort(channel.Addr()),
			LoggerFactory: cfg.LoggerFactory,
		})
	}

	return c, nil
}

// Addr returns the address the controller accepts its connection on.
// Useful when ListenAddr uses an ephemeral port.
func (c *Controller) Addr() net.Addr {
	return c.channel.Addr()
}

func tcpPort(addr net.Addr) int {
	_, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0
	}
	return port
}

// Start accepts the controller's single connection and runs the tick
// loop in its own goroutine, mirroring the teacher's ordered
// Node.Start: advertise, then run. It returns once the goroutine has
// been launched; it does not wait for a peer to connect.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	if c.advertiser != nil {
		if err := c.advertiser.Start(); err != nil {
			c.mu.Lock()
			c.started = false
			c.mu.Unlock()
			cancel()
			return err
		}
	}

	c.wg.Add(1)
	go c.run(runCtx)

	if c.log != nil {
		c.log.Infof("controller listening on %s", c.channel.Addr())
	}
	return nil
}

// run opens the channel and then steps the session machine on a fixed
// tick until ctx is done.
func (c *Controller) run(ctx context.Context) {
	defer c.wg.Done()

	if err := c.channel.Open(ctx); err != nil {
		if c.log != nil {
			c.log.Warnf("channel open: %v", err)
		}
		return
	}

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.machine.Step(); err != nil && c.log != nil {
				c.log.Warnf("session step: %v", err)
			}
		}
	}
}

// Stop cancels the tick loop, closes the channel, and stops
// advertising. Reverse order of Start, matching the teacher's
// Node.Stop.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return ErrNotStarted
	}
	c.started = false
	cancel := c.cancel
	c.mu.Unlock()

	cancel()
	c.wg.Wait()

	if c.advertiser != nil {
		c.advertiser.Close()
	}
	c.channel.Close()

	if c.log != nil {
		c.log.Info("controller stopped")
	}
	return nil
}
