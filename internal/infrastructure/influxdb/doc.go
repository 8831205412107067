// Package influxdb records device status changes and remote output
// activity in InfluxDB v2.
//
// It wraps influxdb-client-go with connection checking and non-blocking
// batched writes. Two measurements are written:
//
//	device_status   tags device_id, kind, source, session; fields status, on, reading
//	remote_output   fields applied, ignored, failed per output chunk
//
// InfluxDB is optional; Connect returns ErrDisabled when it is turned off
// and every write method is a no-op on a disconnected client.
package influxdb
