// Package layout positions devices inside the visualiser container and
// builds the connector overlay between hubs and their peripherals.
//
// The Engine implements space.Layouter. Normalised positions are the source
// of truth; screen offsets are derived from them and clamped so a device's
// footprint never leaves the container. Connectors are elbows from hub
// centre to peripheral centre, and each connector is followed by clearing
// both endpoint footprints so no line shows underneath a device.
//
// Container resizes are debounced and replayed on the space event loop via
// the configured Scheduler.
package layout
