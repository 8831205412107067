package space

import "time"

// EventType names a change in the device space.
type EventType string

// Event types emitted by the Manager.
const (
	EventDeviceAdded   EventType = "device.added"
	EventDeviceDeleted EventType = "device.deleted"
	EventStatusChanged EventType = "device.status"
	EventConnected     EventType = "device.connected"
	EventDisconnected  EventType = "device.disconnected"
	EventLabelChanged  EventType = "device.label"
)

// Event sources for status changes.
const (
	SourceManual = "manual"
	SourceOutput = "output"
)

// Event describes one applied change. Device is a snapshot taken after the
// change, so observers may keep it or pass it to other goroutines.
type Event struct {
	Type   EventType `json:"type"`
	Device Device    `json:"device"`
	// PeerID and Pin are set for connect/disconnect events; PeerID is the hub.
	PeerID string    `json:"peer_id,omitempty"`
	Pin    int       `json:"pin,omitempty"`
	Source string    `json:"source,omitempty"`
	Time   time.Time `json:"time"`
}

// Observer receives events on the event loop goroutine. It must not block.
type Observer func(Event)
