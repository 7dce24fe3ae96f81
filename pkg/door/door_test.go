package door

import (
	"testing"
	"time"
)

type fakeActuator struct{ pulses int }

func (a *fakeActuator) Pulse() { a.pulses++ }

type fakeSensor struct{ closed bool }

func (s *fakeSensor) Closed() bool { return s.closed }

func newTestDoor(actuator *fakeActuator, sensor *fakeSensor, travelTime time.Duration) *Door {
	return New(Config{Actuator: actuator, Sensor: sensor, TravelTime: travelTime})
}

func TestOpenDoorWhenClosedPulsesAndMoves(t *testing.T) {
	act := &fakeActuator{}
	sensor := &fakeSensor{closed: true}
	d := newTestDoor(act, sensor, 50*time.Millisecond)

	resp := d.ProcessMessage([]byte("OPEN"))
	if act.pulses != 1 {
		t.Fatalf("pulses = %d, want 1", act.pulses)
	}
	if string(resp) != "DOOR_MOVING" {
		t.Fatalf("response = %q, want DOOR_MOVING", resp)
	}
}

func TestOpenDoorAlreadyOpenIsNoOp(t *testing.T) {
	act := &fakeActuator{}
	sensor := &fakeSensor{closed: false}
	d := newTestDoor(act, sensor, 50*time.Millisecond)

	resp := d.ProcessMessage([]byte("OPEN"))
	if act.pulses != 0 {
		t.Fatalf("pulses = %d, want 0 (door already open)", act.pulses)
	}
	if string(resp) != "DOOR_OPEN" {
		t.Fatalf("response = %q, want DOOR_OPEN", resp)
	}
}

func TestCloseDoorAlreadyClosedIsNoOp(t *testing.T) {
	act := &fakeActuator{}
	sensor := &fakeSensor{closed: true}
	d := newTestDoor(act, sensor, 50*time.Millisecond)

	resp := d.ProcessMessage([]byte("CLOSE"))
	if act.pulses != 0 {
		t.Fatalf("pulses = %d, want 0 (door already closed)", act.pulses)
	}
	if string(resp) != "DOOR_CLOSED" {
		t.Fatalf("response = %q, want DOOR_CLOSED", resp)
	}
}

func TestPressButtonAlwaysPulses(t *testing.T) {
	act := &fakeActuator{}
	sensor := &fakeSensor{closed: false}
	d := newTestDoor(act, sensor, 50*time.Millisecond)

	resp := d.ProcessMessage([]byte("PRESS_BUTTON"))
	if act.pulses != 1 {
		t.Fatalf("pulses = %d, want 1", act.pulses)
	}
	if string(resp) != "DOOR_MOVING" {
		t.Fatalf("response = %q, want DOOR_MOVING", resp)
	}
}

func TestGetStatusResolvesAfterTravelElapses(t *testing.T) {
	act := &fakeActuator{}
	sensor := &fakeSensor{closed: true}
	d := newTestDoor(act, sensor, 10*time.Millisecond)

	d.ProcessMessage([]byte("PRESS_BUTTON"))
	time.Sleep(30 * time.Millisecond)

	resp := d.ProcessMessage([]byte("GET_STATUS"))
	if string(resp) != "DOOR_CLOSED" {
		t.Fatalf("response = %q, want DOOR_CLOSED once travel elapses", resp)
	}
}

func TestUnknownCommandReturnsNil(t *testing.T) {
	act := &fakeActuator{}
	sensor := &fakeSensor{closed: true}
	d := newTestDoor(act, sensor, 50*time.Millisecond)

	resp := d.ProcessMessage([]byte("FOO"))
	if resp != nil {
		t.Fatalf("response = %q, want nil", resp)
	}
	if act.pulses != 0 {
		t.Fatalf("pulses = %d, want 0", act.pulses)
	}
}
