package space

import "math"

// Kind is the device type tag. The set of kinds is closed; see kinds.go.
type Kind string

// Device kinds.
const (
	KindRPI         Kind = "RPI"
	KindLED         Kind = "LED"
	KindTempSensor  Kind = "TEMPSENSOR"
	KindBulb        Kind = "BULB"
	KindLamp        Kind = "LAMP"
	KindThermometer Kind = "THERMOMETER"
)

// Status is a device's visual status.
type Status string

// Device statuses.
const (
	StatusOff Status = "OFF"
	StatusOn  Status = "ON"
)

// DefaultReading is stored when a reading device is switched ON without a value.
const DefaultReading = 73.0

// DefaultComment is the comment every new device starts with.
const DefaultComment = "Default comment. Click to type in a new comment."

// Point is a 2D coordinate. Normalised positions use [0,1] on each axis;
// screen positions are pixel offsets from the container's top-left corner.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width and height in pixels.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// PinAssignment records a peripheral wired to one of a hub's pins.
type PinAssignment struct {
	Pin      int    `json:"pin"`
	DeviceID string `json:"device_id"`
}

// Aux wraps an auxiliary reading for ChangeStatus.
func Aux(v float64) *float64 {
	return &v
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
