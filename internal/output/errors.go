package output

import "errors"

// Interpreter errors. None of them stop a chunk from being processed.
var (
	ErrNoPinNumber = errors.New("output: line has no pin number")
	ErrNoAccessory = errors.New("output: no accessory registered for pin")
)

// Provisioning errors.
var (
	ErrUnsupportedAccessory = errors.New("output: unsupported accessory kind")
	ErrNoHub                = errors.New("output: no hub to wire the accessory to")
	ErrAccessoryNotFound    = errors.New("output: accessory not found")
)
