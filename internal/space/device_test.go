package space

import (
	"errors"
	"slices"
	"testing"
)

func TestDevice_ChangeStatus(t *testing.T) {
	tests := []struct {
		name        string
		kind        Kind
		status      Status
		reading     *float64
		wantStatus  Status
		wantReading *float64
		wantErr     error
	}{
		{"led on", KindLED, StatusOn, nil, StatusOn, nil, nil},
		{"led ignores reading", KindLED, StatusOn, Aux(5), StatusOn, nil, nil},
		{"thermometer default reading", KindThermometer, StatusOn, nil, StatusOn, Aux(DefaultReading), nil},
		{"temp sensor explicit reading", KindTempSensor, StatusOn, Aux(-4.5), StatusOn, Aux(-4.5), nil},
		{"thermometer off keeps no reading", KindThermometer, StatusOff, Aux(12), StatusOff, nil, nil},
		{"hub cannot turn off", KindRPI, StatusOff, nil, StatusOn, nil, ErrInvalidStatus},
		{"unknown status", KindLamp, Status("DIM"), nil, StatusOff, nil, ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDevice(tt.kind, 1, Point{})
			err := d.ChangeStatus(tt.status, tt.reading)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ChangeStatus() error = %v, want %v", err, tt.wantErr)
			}
			if d.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", d.Status, tt.wantStatus)
			}
			switch {
			case tt.wantReading == nil && d.Reading != nil:
				t.Errorf("Reading = %v, want nil", *d.Reading)
			case tt.wantReading != nil && (d.Reading == nil || *d.Reading != *tt.wantReading):
				t.Errorf("Reading = %v, want %v", d.Reading, *tt.wantReading)
			}
		})
	}
}

func TestDevice_ReadingKeptWhenSwitchedOff(t *testing.T) {
	d := newDevice(KindThermometer, 1, Point{})
	_ = d.ChangeStatus(StatusOn, Aux(70))
	_ = d.ChangeStatus(StatusOff, Aux(99))

	if d.Reading == nil || *d.Reading != 70 {
		t.Errorf("Reading = %v, want 70 retained", d.Reading)
	}
}

func TestDevice_ConnectIsLocal(t *testing.T) {
	hub := newDevice(KindRPI, 1, Point{})
	led := newDevice(KindLED, 1, Point{})

	led.ConnectToDevice(hub.ID)
	if !led.Connected || led.ConnectedTo != "RPI1" {
		t.Errorf("led = %v/%q, want connected to RPI1", led.Connected, led.ConnectedTo)
	}
	if len(hub.Pins) != 0 {
		t.Error("ConnectToDevice must not touch the hub registry")
	}

	led.DisconnectFromDevice()
	if led.Connected || led.ConnectedTo != "" {
		t.Error("DisconnectFromDevice should clear both fields")
	}
}

func TestDevice_CenterAndFootprint(t *testing.T) {
	hub := newDevice(KindRPI, 1, Point{})
	hub.Screen = Point{X: 10, Y: 20}
	if got := hub.Center(); got != (Point{X: 110, Y: 70}) {
		t.Errorf("Center() = %+v, want {110 70}", got)
	}

	led := newDevice(KindLED, 1, Point{})
	if led.Footprint() != deviceFootprint {
		t.Errorf("Footprint() = %+v, want %+v", led.Footprint(), deviceFootprint)
	}
}

func TestDevice_SnapshotIsDeep(t *testing.T) {
	hub := newDevice(KindRPI, 1, Point{})
	hub.AddConnectedDevice("LED1", AutoPin)

	snap := hub.Snapshot()
	snap.Pins[0].DeviceID = "LED9"

	if hub.Pins[0].DeviceID != "LED1" {
		t.Error("Snapshot() pins alias the device")
	}
	if snap.Label() != nil {
		t.Error("Snapshot() should drop the label")
	}
}

// ============================================================================
// Hub registry
// ============================================================================

func TestHub_AddConnectedDevice(t *testing.T) {
	hub := newDevice(KindRPI, 1, Point{})

	if pin := hub.AddConnectedDevice("LED1", AutoPin); pin != 1 {
		t.Errorf("first auto pin = %d, want 1", pin)
	}
	if pin := hub.AddConnectedDevice("LED2", 3); pin != 3 {
		t.Errorf("explicit pin = %d, want 3", pin)
	}
	if pin := hub.AddConnectedDevice("LED3", AutoPin); pin != 2 {
		t.Errorf("auto pin = %d, want 2", pin)
	}
	if pin := hub.AddConnectedDevice("LED4", AutoPin); pin != 4 {
		t.Errorf("auto pin = %d, want 4", pin)
	}

	want := []PinAssignment{{1, "LED1"}, {3, "LED2"}, {2, "LED3"}, {4, "LED4"}}
	if !slices.Equal(hub.Pins, want) {
		t.Errorf("Pins = %v, want %v", hub.Pins, want)
	}
}

func TestHub_RemoveConnectedDevice(t *testing.T) {
	hub := newDevice(KindRPI, 1, Point{})
	hub.AddConnectedDevice("LED1", AutoPin)
	hub.AddConnectedDevice("LED2", AutoPin)

	if !hub.RemoveConnectedDevice("LED1") {
		t.Error("RemoveConnectedDevice(LED1) = false, want true")
	}
	if hub.RemoveConnectedDevice("LED1") {
		t.Error("removing a missing entry should report false")
	}
	if hub.DeviceAtPinAlready(1) {
		t.Error("pin 1 should be free")
	}
	if !hub.DeviceAtPinAlready(2) {
		t.Error("pin 2 should still be taken")
	}
	if hub.PinOf("LED2") != 2 || hub.PinOf("LED1") != 0 {
		t.Errorf("PinOf = %d/%d, want 2/0", hub.PinOf("LED2"), hub.PinOf("LED1"))
	}
}

// ============================================================================
// Kinds
// ============================================================================

func TestParseKind(t *testing.T) {
	tests := []struct {
		input   string
		want    Kind
		wantErr bool
	}{
		{"RPI", KindRPI, false},
		{"led", KindLED, false},
		{" thermometer ", KindThermometer, false},
		{"MOTOR", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseKind(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKind(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidKind) {
				t.Errorf("ParseKind(%q) error = %v, want ErrInvalidKind", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseKind(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestKindTable(t *testing.T) {
	for _, k := range Kinds() {
		if !k.Valid() {
			t.Errorf("%s not valid", k)
		}
		if k.IsHub() != (k == KindRPI) {
			t.Errorf("%s IsHub() = %v", k, k.IsHub())
		}
		if !k.Allows(StatusOn) {
			t.Errorf("%s must allow ON", k)
		}
		if k.Allows(StatusOff) == k.IsHub() {
			t.Errorf("%s Allows(OFF) = %v", k, k.Allows(StatusOff))
		}
		if k.DisplayName() == "" {
			t.Errorf("%s has no display name", k)
		}
	}
	if !KindTempSensor.AcceptsReading() || !KindThermometer.AcceptsReading() || KindLamp.AcceptsReading() {
		t.Error("only temperature kinds accept readings")
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.123, 0.12},
		{0.125, 0.13},
		{0.8, 0.8},
		{-0.456, -0.46},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
