package space

import (
	"fmt"
	"slices"
)

// Device is one visualised device. Its ID, Kind and Ordinal never change
// after creation. Devices are owned by a Manager and must only be touched
// from the Manager's event loop.
type Device struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	Ordinal int    `json:"ordinal"`
	Name    string `json:"name"`

	// Position is the normalised placement inside the container; it is
	// the source of truth that Screen is derived from.
	Position Point `json:"position"`
	// Screen is the last pixel offset computed by layout or drag.
	Screen Point `json:"screen"`

	Status  Status   `json:"status"`
	Reading *float64 `json:"reading,omitempty"`

	// Peripheral side of a connection.
	Connected   bool   `json:"is_connected"`
	ConnectedTo string `json:"connected_to,omitempty"`

	// Hub side: ordered pin registry. Always empty for peripherals.
	Pins []PinAssignment `json:"connected_devices,omitempty"`

	Comment string `json:"comment"`

	label *Label
}

func newDevice(kind Kind, ordinal int, position Point) *Device {
	traits := kindTable[kind]
	d := &Device{
		ID:       fmt.Sprintf("%s%d", kind, ordinal),
		Kind:     kind,
		Ordinal:  ordinal,
		Name:     fmt.Sprintf("%s %d", traits.displayName, ordinal),
		Position: position,
		Status:   traits.initialStatus,
		Comment:  DefaultComment,
	}
	d.label = newLabel(d)
	return d
}

// IsHub reports whether the device owns a pin registry.
func (d *Device) IsHub() bool {
	return d.Kind.IsHub()
}

// Footprint is the device's on-screen size.
func (d *Device) Footprint() Size {
	return d.Kind.Footprint()
}

// Center is the screen-space centre of the device.
func (d *Device) Center() Point {
	fp := d.Footprint()
	return Point{X: d.Screen.X + fp.W/2, Y: d.Screen.Y + fp.H/2}
}

// Label returns the device's annotation companion.
func (d *Device) Label() *Label {
	return d.label
}

// ChangeStatus moves the device to status when the kind allows it. For
// kinds that show a reading, switching ON stores reading, or DefaultReading
// when reading is nil. A disallowed status leaves the device unchanged.
func (d *Device) ChangeStatus(status Status, reading *float64) error {
	if !d.Kind.Allows(status) {
		return fmt.Errorf("%w: %s cannot be %q", ErrInvalidStatus, d.ID, status)
	}
	d.Status = status
	if d.Kind.AcceptsReading() && status == StatusOn {
		v := DefaultReading
		if reading != nil {
			v = *reading
		}
		d.Reading = &v
	}
	return nil
}

// ConnectToDevice records hubID as this device's hub. It does not touch
// the hub's registry; callers keep both sides in step.
func (d *Device) ConnectToDevice(hubID string) {
	d.Connected = true
	d.ConnectedTo = hubID
}

// DisconnectFromDevice clears the hub back-reference. Like
// ConnectToDevice it leaves the hub's registry alone.
func (d *Device) DisconnectFromDevice() {
	d.Connected = false
	d.ConnectedTo = ""
}

func (d *Device) setName(name string) {
	d.Name = name
	d.label.sync(d)
}

func (d *Device) setComment(comment string) {
	d.Comment = comment
	d.label.sync(d)
}

// Snapshot returns a deep copy that is safe to hand to other goroutines.
func (d *Device) Snapshot() Device {
	c := *d
	c.Pins = slices.Clone(d.Pins)
	if d.Reading != nil {
		c.Reading = Aux(*d.Reading)
	}
	c.label = nil
	return c
}
