package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/devspace-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/devspace-core/internal/space"
)

type published struct {
	topic    string
	v        any
	retained bool
}

type fakePublisher struct {
	mu  sync.Mutex
	out []published
}

func (p *fakePublisher) PublishJSON(topic string, v any, retained bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = append(p.out, published{topic, v, retained})
	return nil
}

func (p *fakePublisher) PublishRetained(topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = append(p.out, published{topic, payload, true})
	return nil
}

func (p *fakePublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.out...)
}

type fakeWriter struct {
	mu     sync.Mutex
	points []influxdb.DeviceStatus
}

func (w *fakeWriter) WriteDeviceStatus(s influxdb.DeviceStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.points = append(w.points, s)
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []HistoryEntry
}

func (h *fakeHistory) RecordStatus(_ context.Context, e HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	return nil
}

func (h *fakeHistory) GetHistory(context.Context, string, int) ([]HistoryEntry, error) {
	return nil, nil
}

func (h *fakeHistory) PruneHistory(context.Context, time.Duration) (int64, error) {
	return 0, nil
}

func waitProcessed(t *testing.T, s *Sink, n uint64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for s.Processed() < n {
		if time.Now().After(deadline) {
			t.Fatalf("Processed() = %d, want %d", s.Processed(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewSessionID(t *testing.T) {
	id := NewSessionID()
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("NewSessionID() = %q, not a uuid: %v", id, err)
	}
	if id == NewSessionID() {
		t.Error("NewSessionID() returned the same id twice")
	}
}

func TestSink_FansOutStatusEvents(t *testing.T) {
	pub := &fakePublisher{}
	writer := &fakeWriter{}
	hist := &fakeHistory{}

	sink := NewSink(8, "session-1")
	sink.SetPublisher(pub)
	sink.SetWriter(writer)
	sink.SetHistory(hist)

	m := space.NewManager()
	m.Subscribe(sink.Observe)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sink.Run(ctx)

	thermo, err := m.AddDevice(space.KindThermometer)
	if err != nil {
		t.Fatalf("AddDevice() error = %v", err)
	}
	reading := 81.0
	if err := m.ChangeStatus(thermo.ID, space.StatusOn, &reading); err != nil {
		t.Fatalf("ChangeStatus() error = %v", err)
	}
	if _, err := m.ToggleLabel(thermo.ID); err != nil {
		t.Fatalf("ToggleLabel() error = %v", err)
	}

	waitProcessed(t, sink, 2)

	hist.mu.Lock()
	entries := append([]HistoryEntry(nil), hist.entries...)
	hist.mu.Unlock()
	if len(entries) != 2 {
		t.Fatalf("history entries = %d, want 2", len(entries))
	}
	last := entries[1]
	if last.SessionID != "session-1" || last.Status != "ON" || last.Source != space.SourceManual {
		t.Errorf("history entry = %+v", last)
	}
	if last.Reading == nil || *last.Reading != 81 {
		t.Errorf("history reading = %v, want 81", last.Reading)
	}

	writer.mu.Lock()
	points := len(writer.points)
	writer.mu.Unlock()
	if points != 2 {
		t.Errorf("influx points = %d, want 2", points)
	}

	var retained, events int
	for _, p := range pub.all() {
		if p.retained {
			retained++
			if p.topic != "devspace/space/device/"+thermo.ID+"/status" {
				t.Errorf("retained topic = %q", p.topic)
			}
			if msg, ok := p.v.(StatusMessage); !ok || msg.Session != "session-1" {
				t.Errorf("retained payload = %#v", p.v)
			}
		} else {
			events++
		}
	}
	if retained != 2 || events < 2 {
		t.Errorf("retained = %d events = %d, want 2 and at least 2", retained, events)
	}
}

func TestSink_DeleteClearsRetainedStatus(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewSink(4, "s")
	sink.SetPublisher(pub)

	sink.Observe(space.Event{Type: space.EventDeviceDeleted, Device: space.Device{ID: "LED1"}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sink.Run(ctx)
	waitProcessed(t, sink, 1)

	var cleared bool
	for _, p := range pub.all() {
		if !p.retained {
			continue
		}
		if p.topic != "devspace/space/device/LED1/status" {
			t.Errorf("retained topic = %q", p.topic)
		}
		if payload, ok := p.v.([]byte); ok && len(payload) == 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("deleted device status was not cleared with an empty retained message")
	}
}

func TestSink_ConnectEventsSkipHistory(t *testing.T) {
	hist := &fakeHistory{}
	sink := NewSink(4, "s")
	sink.SetHistory(hist)

	sink.Observe(space.Event{Type: space.EventConnected, Device: space.Device{ID: "LED1"}})
	sink.Observe(space.Event{Type: space.EventDeviceDeleted, Device: space.Device{ID: "LED1"}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sink.Run(ctx)
	waitProcessed(t, sink, 2)

	hist.mu.Lock()
	defer hist.mu.Unlock()
	if len(hist.entries) != 0 {
		t.Errorf("history entries = %d, want 0", len(hist.entries))
	}
}

func TestSink_DropsWhenFull(t *testing.T) {
	sink := NewSink(1, "s")

	sink.Observe(space.Event{Type: space.EventStatusChanged})
	sink.Observe(space.Event{Type: space.EventStatusChanged})
	sink.Observe(space.Event{Type: space.EventStatusChanged})

	if got := sink.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}
	if len(sink.Collectors()) != 2 {
		t.Errorf("Collectors() = %d, want 2", len(sink.Collectors()))
	}
}

func TestSink_DrainsOnCancel(t *testing.T) {
	hist := &fakeHistory{}
	sink := NewSink(4, "s")
	sink.SetHistory(hist)

	for range 3 {
		sink.Observe(space.Event{Type: space.EventStatusChanged, Device: space.Device{ID: "LED1", Status: space.StatusOn}})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink.Run(ctx)

	if sink.Processed() != 3 {
		t.Errorf("Processed() = %d, want 3", sink.Processed())
	}
}

func TestNewSink_DefaultBuffer(t *testing.T) {
	sink := NewSink(0, "s")
	if cap(sink.events) != DefaultBuffer {
		t.Errorf("buffer = %d, want %d", cap(sink.events), DefaultBuffer)
	}
	if sink.Session() != "s" {
		t.Errorf("Session() = %q", sink.Session())
	}
}
