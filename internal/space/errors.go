package space

import "errors"

// Identifier and type errors.
var (
	ErrInvalidKind     = errors.New("space: invalid device kind")
	ErrDeviceNotFound  = errors.New("space: device not found")
	ErrIndexOutOfRange = errors.New("space: device index out of range")
)

// Connectivity precondition errors.
var (
	ErrNotHub           = errors.New("space: source device is not a hub")
	ErrNotPeripheral    = errors.New("space: target device is a hub")
	ErrAlreadyConnected = errors.New("space: device already connected")
	ErrNotConnected     = errors.New("space: device not connected to this hub")
	ErrPinOccupied      = errors.New("space: pin already occupied")
	ErrInvalidPin       = errors.New("space: invalid pin number")
)

// Status and label errors.
var (
	ErrInvalidStatus  = errors.New("space: status not allowed for device")
	ErrUnknownField   = errors.New("space: unknown label field")
	ErrFieldReadOnly  = errors.New("space: label field is read-only")
	ErrInvalidName    = errors.New("space: invalid device name")
	ErrInvalidComment = errors.New("space: invalid device comment")
	ErrInvalidZoom    = errors.New("space: zoom level must be positive")
)

// ErrLoopStopped is returned when work is submitted after the loop has exited.
var ErrLoopStopped = errors.New("space: event loop stopped")
