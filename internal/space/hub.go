package space

import "slices"

// AutoPin asks AddConnectedDevice to choose the lowest free pin.
const AutoPin = 0

// AddConnectedDevice appends peripheralID to the hub's registry and returns
// the pin used. With AutoPin the lowest unused pin from 1 upwards is taken.
// Preconditions (hub kind, free pin) are checked by the Manager.
func (d *Device) AddConnectedDevice(peripheralID string, pin int) int {
	if pin <= AutoPin {
		pin = d.lowestFreePin()
	}
	d.Pins = append(d.Pins, PinAssignment{Pin: pin, DeviceID: peripheralID})
	return pin
}

// RemoveConnectedDevice drops the entry for peripheralID. A missing entry
// is a no-op and reports false.
func (d *Device) RemoveConnectedDevice(peripheralID string) bool {
	i := slices.IndexFunc(d.Pins, func(p PinAssignment) bool {
		return p.DeviceID == peripheralID
	})
	if i < 0 {
		return false
	}
	d.Pins = slices.Delete(d.Pins, i, i+1)
	return true
}

// DeviceAtPinAlready reports whether pin is taken on this hub.
func (d *Device) DeviceAtPinAlready(pin int) bool {
	return slices.ContainsFunc(d.Pins, func(p PinAssignment) bool {
		return p.Pin == pin
	})
}

// PinOf returns the pin peripheralID is wired to, or 0.
func (d *Device) PinOf(peripheralID string) int {
	for _, p := range d.Pins {
		if p.DeviceID == peripheralID {
			return p.Pin
		}
	}
	return 0
}

func (d *Device) lowestFreePin() int {
	pin := 1
	for d.DeviceAtPinAlready(pin) {
		pin++
	}
	return pin
}
