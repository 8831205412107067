package space

import (
	"fmt"
	"slices"
	"strings"
)

// kindSpec holds everything that differs between device kinds.
type kindSpec struct {
	displayName    string
	statuses       []Status
	initialStatus  Status
	hub            bool
	acceptsReading bool
	footprint      Size
}

var (
	hubFootprint    = Size{W: 200, H: 100}
	deviceFootprint = Size{W: 100, H: 100}
	offOn           = []Status{StatusOff, StatusOn}
)

var kindTable = map[Kind]kindSpec{
	KindRPI: {
		displayName:   "Raspberry Pi",
		statuses:      []Status{StatusOn},
		initialStatus: StatusOn,
		hub:           true,
		footprint:     hubFootprint,
	},
	KindLED: {
		displayName:   "LED Bulb",
		statuses:      offOn,
		initialStatus: StatusOff,
		footprint:     deviceFootprint,
	},
	KindTempSensor: {
		displayName:    "Temp sensor",
		statuses:       offOn,
		initialStatus:  StatusOff,
		acceptsReading: true,
		footprint:      deviceFootprint,
	},
	KindBulb: {
		displayName:   "Bulb",
		statuses:      offOn,
		initialStatus: StatusOff,
		footprint:     deviceFootprint,
	},
	KindLamp: {
		displayName:   "Lamp",
		statuses:      offOn,
		initialStatus: StatusOff,
		footprint:     deviceFootprint,
	},
	KindThermometer: {
		displayName:    "Thermometer",
		statuses:       offOn,
		initialStatus:  StatusOff,
		acceptsReading: true,
		footprint:      deviceFootprint,
	},
}

// Kinds returns every supported kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindRPI, KindLED, KindTempSensor, KindBulb, KindLamp, KindThermometer}
}

// ParseKind converts a type tag, case-insensitively, into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

// Valid reports whether k is in the closed set of kinds.
func (k Kind) Valid() bool {
	_, ok := kindTable[k]
	return ok
}

// DisplayName is the human name used as the prefix of device names.
func (k Kind) DisplayName() string {
	return kindTable[k].displayName
}

// IsHub reports whether devices of this kind own a pin registry.
func (k Kind) IsHub() bool {
	return kindTable[k].hub
}

// AcceptsReading reports whether the kind shows an auxiliary value when ON.
func (k Kind) AcceptsReading() bool {
	return kindTable[k].acceptsReading
}

// Footprint is the on-screen size of devices of this kind.
func (k Kind) Footprint() Size {
	return kindTable[k].footprint
}

// Statuses returns the statuses a device of this kind may take.
func (k Kind) Statuses() []Status {
	return slices.Clone(kindTable[k].statuses)
}

// Allows reports whether s is a legal status for this kind.
func (k Kind) Allows(s Status) bool {
	return slices.Contains(kindTable[k].statuses, s)
}
