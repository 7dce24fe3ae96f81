// Package door implements the session.Consumer the secure channel
// dispatches commanded payloads to, grounded in the original firmware's
// Garage class.
package door

import (
	"time"

	"github.com/pion/logging"
)

// State is the door's resolved physical state.
type State int

const (
	DoorOpen State = iota
	DoorClosed
	DoorMoving
)

// String matches the original's GarageStateStrings response mapping
// exactly, since these are the literal bytes written to the wire.
func (s State) String() string {
	switch s {
	case DoorOpen:
		return "DOOR_OPEN"
	case DoorClosed:
		return "DOOR_CLOSED"
	case DoorMoving:
		return "DOOR_MOVING"
	default:
		return "DOOR_MOVING"
	}
}

// Actuator is the GPIO collaborator that pulses the garage door
// opener's control relay, grounded in pressDoorSwitch's
// digitalWrite(HIGH)/delay(1000)/digitalWrite(LOW) sequence. The pulse
// duration is the actuator's concern, not the door state machine's.
type Actuator interface {
	Pulse()
}

// Sensor is the GPIO collaborator that reports whether the door is
// physically closed, grounded in readDoorSensor's reed-switch read.
type Sensor interface {
	Closed() bool
}

// Config configures a Door.
type Config struct {
	Actuator Actuator
	Sensor   Sensor

	// TravelTime is how long a press is assumed to take to move the
	// door fully open or closed. Defaults to 15 seconds, matching the
	// original's doorTravelTimer(15000).
	TravelTime time.Duration

	LoggerFactory logging.LoggerFactory
}

// Door is the door-state Consumer. It holds no State field of its own:
// like the original, the resolved state is always either "the sensor
// reading" or "DOOR_MOVING while the travel timer is still running."
type Door struct {
	actuator Actuator
	sensor   Sensor
	travel   *Timer
	log      logging.LeveledLogger
}

// New constructs a Door.
func New(cfg Config) *Door {
	travelTime := cfg.TravelTime
	if travelTime == 0 {
		travelTime = 15 * time.Second
	}

	d := &Door{
		actuator: cfg.Actuator,
		sensor:   cfg.Sensor,
		travel:   NewTimer(travelTime),
	}
	if cfg.LoggerFactory != nil {
		d.log = cfg.LoggerFactory.NewLogger("door")
	}
	return d
}

// ProcessMessage implements session.Consumer, dispatching exactly as
// the original's Garage::processMessage does: only recognized commands
// produce a response, and the response is always the resolved status
// string.
func (d *Door) ProcessMessage(payload []byte) []byte {
	command := string(payload)
	respond := true

	switch command {
	case "OPEN":
		d.open()
	case "CLOSE":
		d.close()
	case "PRESS_BUTTON":
		d.press()
	case "GET_STATUS":
		// Nothing to do.
	default:
		respond = false
	}

	if !respond {
		return nil
	}
	return []byte(d.Status().String())
}

// Status resolves the current state, matching getDoorStatus: while the
// travel timer is running and not yet elapsed, the door is DOOR_MOVING;
// otherwise it is whatever the sensor reports.
func (d *Door) Status() State {
	if d.travel.IsRunning() {
		if !d.travel.IsElapsed() {
			return DoorMoving
		}
		if d.log != nil {
			d.log.Debug("door timer elapsed")
		}
	}
	return d.readSensor()
}

// open presses the button only if the door is not already moving and
// is currently closed, matching the original's double-press guard.
func (d *Door) open() {
	if d.Status() != DoorMoving && d.readSensor() == DoorClosed {
		d.press()
	}
}

// close is the symmetric guard for closing.
func (d *Door) close() {
	if d.Status() != DoorMoving && d.readSensor() == DoorOpen {
		d.press()
	}
}

// press pulses the actuator unconditionally and starts the travel
// timer, matching pressDoorSwitch.
func (d *Door) press() {
	d.actuator.Pulse()
	if d.log != nil {
		d.log.Debug("door timer started")
	}
	d.travel.Start()
}

func (d *Door) readSensor() State {
	if d.sensor.Closed() {
		return DoorClosed
	}
	return DoorOpen
}
