package mqtt

import "fmt"

// Topic prefixes. Everything the visualiser publishes or consumes lives
// under devspace/.
const (
	// TopicPrefix is the root of all topics.
	TopicPrefix = "devspace"

	// TopicPrefixSpace carries device state and space events.
	TopicPrefixSpace = "devspace/space"

	// TopicPrefixRemote carries traffic to and from the remote board.
	TopicPrefixRemote = "devspace/remote"

	// TopicPrefixSystem carries service status.
	TopicPrefixSystem = "devspace/system"
)

// Topics provides builders for the MQTT topic tree:
//
//	topics := mqtt.Topics{}
//	topics.DeviceStatus("LED1")
//	// Returns: "devspace/space/device/LED1/status"
type Topics struct{}

// DeviceStatus returns the retained status topic for a device.
func (Topics) DeviceStatus(deviceID string) string {
	return fmt.Sprintf("%s/device/%s/status", TopicPrefixSpace, deviceID)
}

// SpaceEvent returns the topic for a space event type, e.g. device.added.
func (Topics) SpaceEvent(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefixSpace, eventType)
}

// RemoteOutput returns the topic boards publish their console output on.
func (Topics) RemoteOutput() string {
	return TopicPrefixRemote + "/output"
}

// SystemStatus returns the retained service status topic used for
// online/offline and LWT messages.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllDeviceStatuses matches every device status topic.
func (Topics) AllDeviceStatuses() string {
	return TopicPrefixSpace + "/device/+/status"
}
