// Package telemetry records what happens in the device space.
//
// A Sink subscribes to space.Manager events and fans them out off the
// event loop: status changes go to the SQLite status_history table, to
// InfluxDB and to retained MQTT status topics, and every event is
// published on its MQTT event topic. Each run of the service has its own
// session id so history from different runs can be told apart.
package telemetry
