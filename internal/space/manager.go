package space

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"
)

// Logger defines the logging interface used by the space package.
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

// Renderer draws devices. The Manager calls Render after every change that
// affects a device's appearance and never looks at what Render produces.
type Renderer interface {
	Render(d *Device)
	SetZoom(d *Device, level float64)
}

// Layouter keeps screen positions and the connector overlay up to date.
type Layouter interface {
	PlaceDevices()
	DrawLines()
}

type nopRenderer struct{}

func (nopRenderer) Render(*Device)           {}
func (nopRenderer) SetZoom(*Device, float64) {}

type nopLayouter struct{}

func (nopLayouter) PlaceDevices() {}
func (nopLayouter) DrawLines()    {}

// Manager owns the device collection and orchestrates every mutation of it.
//
// A Manager is not safe for concurrent use. All calls, including those made
// by its Renderer, Layouter and observers, must happen on one goroutine;
// Loop provides that goroutine for the rest of the application.
type Manager struct {
	devices  []*Device
	byID     map[string]*Device
	ordinals map[Kind]int

	renderer  Renderer
	layout    Layouter
	observers []Observer
	position  func() Point
	now       func() time.Time
	logger    Logger
}

// NewManager creates an empty device space.
func NewManager() *Manager {
	return &Manager{
		byID:     make(map[string]*Device),
		ordinals: make(map[Kind]int),
		renderer: nopRenderer{},
		layout:   nopLayouter{},
		position: randomPosition,
		now:      time.Now,
		logger:   noopLogger{},
	}
}

// randomPosition places new devices somewhere in the top-left 90% of the
// container, rounded to two decimals.
func randomPosition() Point {
	return Point{
		X: Round2(0.9 * rand.Float64()), //nolint:gosec // placement only
		Y: Round2(0.9 * rand.Float64()), //nolint:gosec // placement only
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// SetRenderer sets the rendering collaborator.
func (m *Manager) SetRenderer(r Renderer) {
	m.renderer = r
}

// SetLayout sets the layout collaborator.
func (m *Manager) SetLayout(l Layouter) {
	m.layout = l
}

// SetPositionSource overrides how new devices get their initial position.
func (m *Manager) SetPositionSource(fn func() Point) {
	m.position = fn
}

// Subscribe registers an observer for space events.
func (m *Manager) Subscribe(fn Observer) {
	m.observers = append(m.observers, fn)
}

// AddDevice creates a device of kind, appends it to the space, lays out
// and redraws. Unknown kinds return ErrInvalidKind and a nil device.
func (m *Manager) AddDevice(kind Kind) (*Device, error) {
	if !kind.Valid() {
		m.logger.Warn("add device rejected", "kind", kind, "error", ErrInvalidKind)
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	m.ordinals[kind]++
	d := newDevice(kind, m.ordinals[kind], m.position())
	d.label.OnChange(func(LabelFields) {
		m.emit(EventLabelChanged, d, "", 0, "")
	})

	m.devices = append(m.devices, d)
	m.byID[d.ID] = d

	m.layout.PlaceDevices()
	m.layout.DrawLines()
	m.renderer.Render(d)

	m.logger.Info("device added", "id", d.ID, "kind", kind)
	m.emit(EventDeviceAdded, d, "", 0, "")
	return d, nil
}

// DeleteDevice removes a device and every cross-reference to it. Deleting
// a peripheral frees its hub pin; deleting a hub disconnects all of its
// peripherals.
func (m *Manager) DeleteDevice(id string) error {
	d, err := m.lookup(id)
	if err != nil {
		return err
	}

	if d.Connected {
		if hub, ok := m.byID[d.ConnectedTo]; ok {
			hub.RemoveConnectedDevice(d.ID)
		}
		d.DisconnectFromDevice()
	}
	if d.IsHub() {
		for _, p := range d.Pins {
			if peer, ok := m.byID[p.DeviceID]; ok {
				peer.DisconnectFromDevice()
				m.renderer.Render(peer)
			}
		}
		d.Pins = nil
	}

	m.devices = slices.DeleteFunc(m.devices, func(x *Device) bool { return x == d })
	delete(m.byID, d.ID)
	d.label.close()

	m.layout.DrawLines()

	m.logger.Info("device deleted", "id", d.ID)
	m.emit(EventDeviceDeleted, d, "", 0, "")
	return nil
}

// ConnectDevices wires peripheral toID to hub fromID. Pass AutoPin to take
// the lowest free pin. It returns the pin used. On error nothing changes.
func (m *Manager) ConnectDevices(fromID, toID string, pin int) (int, error) {
	hub, peer, err := m.pair(fromID, toID)
	if err != nil {
		m.logger.Warn("connect rejected", "from", fromID, "to", toID, "error", err)
		return 0, err
	}

	switch {
	case peer.Connected:
		err = fmt.Errorf("%w: %s is wired to %s", ErrAlreadyConnected, peer.ID, peer.ConnectedTo)
	case pin < AutoPin:
		err = fmt.Errorf("%w: %d", ErrInvalidPin, pin)
	case pin != AutoPin && hub.DeviceAtPinAlready(pin):
		err = fmt.Errorf("%w: %s pin %d", ErrPinOccupied, hub.ID, pin)
	}
	if err != nil {
		m.logger.Warn("connect rejected", "from", fromID, "to", toID, "pin", pin, "error", err)
		return 0, err
	}

	assigned := hub.AddConnectedDevice(peer.ID, pin)
	peer.ConnectToDevice(hub.ID)

	m.layout.DrawLines()

	m.logger.Info("devices connected", "hub", hub.ID, "device", peer.ID, "pin", assigned)
	m.emit(EventConnected, peer, hub.ID, assigned, "")
	return assigned, nil
}

// DisconnectDevices unwires peripheral toID from hub fromID.
func (m *Manager) DisconnectDevices(fromID, toID string) error {
	hub, peer, err := m.pair(fromID, toID)
	if err == nil && (!peer.Connected || peer.ConnectedTo != hub.ID) {
		err = fmt.Errorf("%w: %s", ErrNotConnected, peer.ID)
	}
	if err != nil {
		m.logger.Warn("disconnect rejected", "from", fromID, "to", toID, "error", err)
		return err
	}

	pin := hub.PinOf(peer.ID)
	hub.RemoveConnectedDevice(peer.ID)
	peer.DisconnectFromDevice()

	m.layout.DrawLines()

	m.logger.Info("devices disconnected", "hub", hub.ID, "device", peer.ID, "pin", pin)
	m.emit(EventDisconnected, peer, hub.ID, pin, "")
	return nil
}

// pair resolves a hub and a peripheral for connection operations.
func (m *Manager) pair(fromID, toID string) (hub, peer *Device, err error) {
	if hub, err = m.lookup(fromID); err != nil {
		return nil, nil, err
	}
	if peer, err = m.lookup(toID); err != nil {
		return nil, nil, err
	}
	if !hub.IsHub() {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotHub, hub.ID)
	}
	if peer.IsHub() {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotPeripheral, peer.ID)
	}
	return hub, peer, nil
}

// ChangeStatus sets the status of device id. reading is only used by
// kinds that show one; see Device.ChangeStatus.
func (m *Manager) ChangeStatus(id string, status Status, reading *float64) error {
	d, err := m.lookup(id)
	if err != nil {
		return err
	}
	return m.changeStatus(d, status, reading, SourceManual)
}

// ChangeStatusAt sets the status of the device at position index in the
// collection. Console output addresses devices this way.
func (m *Manager) ChangeStatusAt(index int, status Status, reading *float64) error {
	d, err := m.DeviceAt(index)
	if err != nil {
		return err
	}
	return m.changeStatus(d, status, reading, SourceOutput)
}

func (m *Manager) changeStatus(d *Device, status Status, reading *float64, source string) error {
	if err := d.ChangeStatus(status, reading); err != nil {
		m.logger.Warn("status change rejected", "id", d.ID, "status", status, "error", err)
		return err
	}
	m.renderer.Render(d)
	m.logger.Debug("status changed", "id", d.ID, "status", status, "source", source)
	m.emit(EventStatusChanged, d, "", 0, source)
	return nil
}

// EditLabel writes value into an editable label field of device id.
func (m *Manager) EditLabel(id, field, value string) error {
	d, err := m.lookup(id)
	if err != nil {
		return err
	}

	editable, known := Editable(field)
	switch {
	case !known:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	case !editable:
		return fmt.Errorf("%w: %q", ErrFieldReadOnly, field)
	}

	switch field {
	case FieldName:
		if err := ValidateName(value); err != nil {
			return err
		}
		d.setName(value)
	case FieldComment:
		if err := ValidateComment(value); err != nil {
			return err
		}
		d.setComment(value)
	}
	return nil
}

// ToggleLabel shows or hides the label of device id and returns whether it
// is now visible.
func (m *Manager) ToggleLabel(id string) (bool, error) {
	d, err := m.lookup(id)
	if err != nil {
		return false, err
	}
	visible := d.label.Toggle()
	m.renderer.Render(d)
	return visible, nil
}

// SetZoom forwards a zoom level for device id to the renderer.
func (m *Manager) SetZoom(id string, level float64) error {
	d, err := m.lookup(id)
	if err != nil {
		return err
	}
	if level <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidZoom, level)
	}
	m.renderer.SetZoom(d, level)
	return nil
}

// RenderAll asks the renderer to redraw every device.
func (m *Manager) RenderAll() {
	for _, d := range m.devices {
		m.renderer.Render(d)
	}
}

// Device returns the device with the given id.
func (m *Manager) Device(id string) (*Device, error) {
	return m.lookup(id)
}

// DeviceAt returns the device at position index in creation order.
func (m *Manager) DeviceAt(index int) (*Device, error) {
	if index < 0 || index >= len(m.devices) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(m.devices))
	}
	return m.devices[index], nil
}

// IndexOf returns the collection index of device id, or -1.
func (m *Manager) IndexOf(id string) int {
	return slices.IndexFunc(m.devices, func(d *Device) bool { return d.ID == id })
}

// Devices returns the devices in creation order. The slice is a copy; the
// devices are not.
func (m *Manager) Devices() []*Device {
	return slices.Clone(m.devices)
}

// Hubs returns every hub device in creation order.
func (m *Manager) Hubs() []*Device {
	var hubs []*Device
	for _, d := range m.devices {
		if d.IsHub() {
			hubs = append(hubs, d)
		}
	}
	return hubs
}

// Count returns how many devices of kind currently exist.
func (m *Manager) Count(kind Kind) int {
	n := 0
	for _, d := range m.devices {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// Len returns the number of devices.
func (m *Manager) Len() int {
	return len(m.devices)
}

// Snapshot copies every device for use outside the loop.
func (m *Manager) Snapshot() []Device {
	out := make([]Device, len(m.devices))
	for i, d := range m.devices {
		out[i] = d.Snapshot()
	}
	return out
}

func (m *Manager) lookup(id string) (*Device, error) {
	d, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, id)
	}
	return d, nil
}

func (m *Manager) emit(t EventType, d *Device, peer string, pin int, source string) {
	if len(m.observers) == 0 {
		return
	}
	ev := Event{
		Type:   t,
		Device: d.Snapshot(),
		PeerID: peer,
		Pin:    pin,
		Source: source,
		Time:   m.now().UTC(),
	}
	for _, fn := range m.observers {
		fn(ev)
	}
}
