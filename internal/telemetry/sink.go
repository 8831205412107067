package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/devspace-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/devspace-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/devspace-core/internal/space"
)

// DefaultBuffer is the event queue capacity used when none is given.
const DefaultBuffer = 256

// writeTimeout bounds each history insert.
const writeTimeout = 5 * time.Second

// Logger defines the logging interface used by the telemetry package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Publisher is the part of *mqtt.Client the sink uses.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
	PublishRetained(topic string, payload []byte) error
}

// StatusWriter is the part of *influxdb.Client the sink uses.
type StatusWriter interface {
	WriteDeviceStatus(s influxdb.DeviceStatus)
}

// StatusMessage is the retained MQTT payload for a device.
type StatusMessage struct {
	ID      string    `json:"id"`
	Kind    string    `json:"kind"`
	Status  string    `json:"status"`
	Reading *float64  `json:"reading,omitempty"`
	Source  string    `json:"source,omitempty"`
	Session string    `json:"session"`
	Time    time.Time `json:"time"`
}

// NewSessionID returns a fresh id for one run of the service.
func NewSessionID() string {
	return uuid.NewString()
}

// Sink copies space events to history, MQTT and InfluxDB off the event
// loop. Observe never blocks: when the queue is full the event is dropped
// and counted.
type Sink struct {
	events  chan space.Event
	session string

	history   HistoryRepository
	publisher Publisher
	writer    StatusWriter
	topics    mqtt.Topics
	logger    Logger

	dropped   atomic.Uint64
	processed atomic.Uint64

	receivedTotal prometheus.Counter
	droppedTotal  prometheus.Counter
}

// NewSink creates a sink with a queue of buffer events for session.
func NewSink(buffer int, session string) *Sink {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Sink{
		events:  make(chan space.Event, buffer),
		session: session,
		logger:  noopLogger{},
		receivedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "devspace_telemetry_events_total",
			Help: "Space events accepted by the telemetry sink",
		}),
		droppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "devspace_telemetry_events_dropped_total",
			Help: "Space events dropped because the telemetry queue was full",
		}),
	}
}

// SetLogger sets the logger for the sink.
func (s *Sink) SetLogger(logger Logger) {
	s.logger = logger
}

// SetHistory enables status history recording.
func (s *Sink) SetHistory(h HistoryRepository) {
	s.history = h
}

// SetPublisher enables MQTT publishing.
func (s *Sink) SetPublisher(p Publisher) {
	s.publisher = p
}

// SetWriter enables InfluxDB points.
func (s *Sink) SetWriter(w StatusWriter) {
	s.writer = w
}

// Session returns the session id stamped on every record.
func (s *Sink) Session() string {
	return s.session
}

// Collectors returns the collectors to register.
func (s *Sink) Collectors() []prometheus.Collector {
	return []prometheus.Collector{s.receivedTotal, s.droppedTotal}
}

// Observe queues e. It has the space.Observer signature.
func (s *Sink) Observe(e space.Event) {
	select {
	case s.events <- e:
		s.receivedTotal.Inc()
	default:
		s.dropped.Add(1)
		s.droppedTotal.Inc()
		s.logger.Warn("telemetry queue full, event dropped", "type", e.Type, "device", e.Device.ID)
	}
}

// Dropped returns the number of events dropped so far.
func (s *Sink) Dropped() uint64 {
	return s.dropped.Load()
}

// Processed returns the number of events handled so far.
func (s *Sink) Processed() uint64 {
	return s.processed.Load()
}

// Run handles queued events until ctx is cancelled, then drains what is
// already queued.
func (s *Sink) Run(ctx context.Context) {
	for {
		select {
		case e := <-s.events:
			s.handle(ctx, e)
		case <-ctx.Done():
			s.drain()
			return
		}
	}
}

func (s *Sink) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	for {
		select {
		case e := <-s.events:
			s.handle(ctx, e)
		default:
			return
		}
	}
}

func (s *Sink) handle(ctx context.Context, e space.Event) {
	defer s.processed.Add(1)

	if carriesStatus(e.Type) {
		s.recordStatus(ctx, e)
	}
	if e.Type == space.EventDeviceDeleted && s.publisher != nil {
		// An empty retained payload removes the device's last status.
		if err := s.publisher.PublishRetained(s.topics.DeviceStatus(e.Device.ID), nil); err != nil {
			s.logger.Debug("retained status not cleared", "device", e.Device.ID, "error", err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishJSON(s.topics.SpaceEvent(string(e.Type)), e, false); err != nil {
			s.logger.Debug("space event not published", "type", e.Type, "error", err)
		}
	}
}

func (s *Sink) recordStatus(ctx context.Context, e space.Event) {
	d := e.Device

	if s.history != nil {
		hctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := s.history.RecordStatus(hctx, HistoryEntry{
			SessionID:  s.session,
			DeviceID:   d.ID,
			Kind:       string(d.Kind),
			Status:     string(d.Status),
			Reading:    d.Reading,
			Source:     e.Source,
			RecordedAt: e.Time,
		})
		cancel()
		if err != nil {
			s.logger.Warn("status history not recorded", "device", d.ID, "error", err)
		}
	}

	if s.writer != nil {
		s.writer.WriteDeviceStatus(influxdb.DeviceStatus{
			SessionID: s.session,
			DeviceID:  d.ID,
			Kind:      string(d.Kind),
			Status:    string(d.Status),
			Reading:   d.Reading,
			Source:    e.Source,
			Time:      e.Time,
		})
	}

	if s.publisher != nil {
		msg := StatusMessage{
			ID:      d.ID,
			Kind:    string(d.Kind),
			Status:  string(d.Status),
			Reading: d.Reading,
			Source:  e.Source,
			Session: s.session,
			Time:    e.Time,
		}
		if err := s.publisher.PublishJSON(s.topics.DeviceStatus(d.ID), msg, true); err != nil {
			s.logger.Debug("device status not published", "device", d.ID, "error", err)
		}
	}
}

// carriesStatus reports whether t changes or establishes a device status.
func carriesStatus(t space.EventType) bool {
	return t == space.EventDeviceAdded || t == space.EventStatusChanged
}
