// garage-controller runs the garage door secure channel: it accepts a
// single TCP connection, speaks the encrypt-then-MAC framed protocol,
// and drives a door.Door consumer.
//
// Usage:
//
//	garage-controller -psk <32 hex chars> -seeds seeds.bin [options]
//
// Options:
//
//	-psk        32 hex characters (16 bytes), required
//	-listen     TCP listen address (default ":7777")
//	-seeds      path to the seed store file, required
//	-rotate     advance and persist the seed index on each boot (default false)
//	-ping       target "host:port" for network-entropy ping probing (default disabled)
//	-advertise  announce the controller via mDNS (default false)
//	-name       mDNS service instance name (default "garage-controller")
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pion/logging"

	"github.com/valblant/garagelink/pkg/controller"
	"github.com/valblant/garagelink/pkg/door"
)

func main() {
	var psk [16]byte
	var pingTarget string
	var pingEnabled bool

	listenAddr := flag.String("listen", controller.DefaultListenAddr, "TCP listen address")
	seedsPath := flag.String("seeds", "", "path to the seed store file (required)")
	rotate := flag.Bool("rotate", false, "advance and persist the seed index on each boot")
	advertise := flag.Bool("advertise", false, "announce the controller via mDNS")
	serviceName := flag.String("name", "garage-controller", "mDNS service instance name")
	flag.Func("psk", "32 hex characters (16 bytes), required", func(s string) error {
		b, err := hex.DecodeString(s)
		if err != nil {
			return err
		}
		if len(b) != 16 {
			return fmt.Errorf("psk must decode to 16 bytes, got %d", len(b))
		}
		copy(psk[:], b)
		return nil
	})
	flag.Func("ping", `network-entropy ping target "host:port"; omit to disable`, func(s string) error {
		pingEnabled = true
		pingTarget = s
		return nil
	})

	flag.Parse()

	if *seedsPath == "" {
		fmt.Fprintln(os.Stderr, "garage-controller: -seeds is required")
		flag.Usage()
		os.Exit(2)
	}
	if psk == [16]byte{} {
		fmt.Fprintln(os.Stderr, "garage-controller: -psk is required")
		flag.Usage()
		os.Exit(2)
	}

	loggerFactory := logging.NewDefaultLoggerFactory()

	d := door.New(door.Config{
		Actuator:      gpioActuator{},
		Sensor:        gpioSensor{},
		LoggerFactory: loggerFactory,
	})

	c, err := controller.NewController(controller.Config{
		PSK:           psk,
		ListenAddr:    *listenAddr,
		SeedStorePath: *seedsPath,
		RotateSeed:    *rotate,
		PingEnabled:   pingEnabled,
		PingTarget:    pingTarget,
		Advertise:     *advertise,
		ServiceName:   *serviceName,
		Door:          d,
		LoggerFactory: loggerFactory,
	})
	if err != nil {
		log.Fatalf("failed to create controller: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := c.Start(ctx); err != nil {
		log.Fatalf("failed to start controller: %v", err)
	}

	<-ctx.Done()
	log.Println("shutting down...")

	if err := c.Stop(); err != nil {
		log.Fatalf("controller stop error: %v", err)
	}
}

// gpioActuator and gpioSensor are placeholders for the real GPIO
// collaborators; wiring to actual hardware pins is outside this core's
// scope (Section 1: the consumer is an external collaborator).

type gpioActuator struct{}

func (gpioActuator) Pulse() {
	time.Sleep(time.Second)
}

type gpioSensor struct{}

func (gpioSensor) Closed() bool {
	return true
}
