package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementDeviceStatus = "device_status"
	MeasurementOutput       = "remote_output"
)

// DeviceStatus is one status change to record.
type DeviceStatus struct {
	SessionID string
	DeviceID  string
	Kind      string
	Status    string
	Reading   *float64
	Source    string
	Time      time.Time
}

// deviceStatusPoint builds the device_status point. The on field is 1 for
// ON so dashboards can graph it; reading is only set when present.
func deviceStatusPoint(s DeviceStatus) *write.Point {
	on := 0
	if s.Status == "ON" {
		on = 1
	}
	fields := map[string]interface{}{
		"status": s.Status,
		"on":     on,
	}
	if s.Reading != nil {
		fields["reading"] = *s.Reading
	}

	tags := map[string]string{
		"device_id": s.DeviceID,
		"kind":      s.Kind,
	}
	if s.Source != "" {
		tags["source"] = s.Source
	}
	if s.SessionID != "" {
		tags["session"] = s.SessionID
	}

	ts := s.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return write.NewPoint(MeasurementDeviceStatus, tags, fields, ts)
}

// WriteDeviceStatus queues a status change. Non-blocking.
func (c *Client) WriteDeviceStatus(s DeviceStatus) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(deviceStatusPoint(s))
}

// outputPoint builds the remote_output point for one interpreted chunk.
func outputPoint(applied, ignored, failed int, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementOutput,
		map[string]string{},
		map[string]interface{}{
			"applied": applied,
			"ignored": ignored,
			"failed":  failed,
		},
		ts,
	)
}

// WriteOutputSummary queues line counts for one output chunk.
func (c *Client) WriteOutputSummary(applied, ignored, failed int) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(outputPoint(applied, ignored, failed, time.Now()))
}
