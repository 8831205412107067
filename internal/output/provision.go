package output

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/devspace-core/internal/space"
)

// Accessory kinds accepted from the remote board configuration.
const (
	AccessoryLED    = "LED"
	AccessorySensor = "SENSOR"
	AccessoryMotor  = "MOTOR"
)

var accessoryKinds = map[string]space.Kind{
	AccessoryLED:    space.KindLED,
	AccessorySensor: space.KindThermometer,
}

// AccessoryKind maps an accessory kind name to the device kind that mirrors
// it on screen. Motors have no visual counterpart.
func AccessoryKind(name string) (space.Kind, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	kind, ok := accessoryKinds[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAccessory, name)
	}
	return kind, nil
}

// Space is the part of *space.Manager the Provisioner drives.
type Space interface {
	AddDevice(kind space.Kind) (*space.Device, error)
	DeleteDevice(id string) error
	ConnectDevices(fromID, toID string, pin int) (int, error)
	Hubs() []*space.Device
	IndexOf(id string) int
}

// Store persists the accessory table between runs.
type Store interface {
	Replace(ctx context.Context, entries []Accessory) error
	Load(ctx context.Context) ([]Accessory, error)
}

// Provisioner adds accessory devices to the space, wires them to the first
// hub at their board pin and records them in the accessory table.
// Provision and Unprovision must run on the space event loop; Save may run
// anywhere.
type Provisioner struct {
	space  Space
	table  *AccessoryTable
	store  Store
	logger Logger
}

// NewProvisioner creates a Provisioner writing into table.
func NewProvisioner(s Space, table *AccessoryTable) *Provisioner {
	return &Provisioner{
		space:  s,
		table:  table,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the provisioner.
func (p *Provisioner) SetLogger(logger Logger) {
	p.logger = logger
}

// SetStore attaches persistent storage. Without a store Save is a no-op.
func (p *Provisioner) SetStore(s Store) {
	p.store = s
}

// Table returns the accessory table the provisioner writes to.
func (p *Provisioner) Table() *AccessoryTable {
	return p.table
}

// Provision creates the device for an accessory of kind on pin. The new
// device is connected to the first hub at exactly that pin; if that fails
// the device is removed again and nothing is registered.
func (p *Provisioner) Provision(kind string, pin int) (Accessory, error) {
	deviceKind, err := AccessoryKind(kind)
	if err != nil {
		return Accessory{}, err
	}
	if pin <= space.AutoPin {
		return Accessory{}, fmt.Errorf("%w: %d", space.ErrInvalidPin, pin)
	}

	hubs := p.space.Hubs()
	if len(hubs) == 0 {
		return Accessory{}, ErrNoHub
	}
	hub := hubs[0]

	d, err := p.space.AddDevice(deviceKind)
	if err != nil {
		return Accessory{}, fmt.Errorf("adding accessory device: %w", err)
	}

	if _, err := p.space.ConnectDevices(hub.ID, d.ID, pin); err != nil {
		if delErr := p.space.DeleteDevice(d.ID); delErr != nil {
			p.logger.Error("rolling back accessory device failed", "id", d.ID, "error", delErr)
		}
		return Accessory{}, fmt.Errorf("wiring accessory to %s: %w", hub.ID, err)
	}

	a := Accessory{
		AccessoryID: d.ID,
		Kind:        strings.ToUpper(strings.TrimSpace(kind)),
		Pin:         pin,
		Index:       p.space.IndexOf(d.ID),
	}
	p.table.Register(a)

	p.logger.Info("accessory provisioned", "id", a.AccessoryID, "kind", a.Kind, "pin", pin, "index", a.Index)
	return a, nil
}

// Unprovision removes the accessory entry and its device. A device already
// deleted from the space is not an error.
func (p *Provisioner) Unprovision(accessoryID string) error {
	a, ok := p.table.Remove(accessoryID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccessoryNotFound, accessoryID)
	}

	if err := p.space.DeleteDevice(a.AccessoryID); err != nil && !errors.Is(err, space.ErrDeviceNotFound) {
		return fmt.Errorf("deleting accessory device: %w", err)
	}
	p.table.Reindex(p.space.IndexOf)

	p.logger.Info("accessory removed", "id", a.AccessoryID, "pin", a.Pin)
	return nil
}

// DeviceDeleted updates the table after deviceID was deleted from the space
// directly: its entry, if any, is dropped and the remaining indexes are
// refreshed. It reports whether an entry was dropped. It must run on the
// space event loop.
func (p *Provisioner) DeviceDeleted(deviceID string) bool {
	_, removed := p.table.Remove(deviceID)
	p.table.Reindex(p.space.IndexOf)
	return removed
}

// Restore provisions each stored entry in order. Failing entries are
// logged and skipped. It returns the number restored.
func (p *Provisioner) Restore(entries []Accessory) int {
	restored := 0
	for _, e := range entries {
		if _, err := p.Provision(e.Kind, e.Pin); err != nil {
			p.logger.Warn("accessory not restored", "kind", e.Kind, "pin", e.Pin, "error", err)
			continue
		}
		restored++
	}
	return restored
}

// Save writes the current table to the store.
func (p *Provisioner) Save(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	if err := p.store.Replace(ctx, p.table.Entries()); err != nil {
		return fmt.Errorf("saving accessories: %w", err)
	}
	return nil
}

// Load reads stored entries. Without a store it returns nothing.
func (p *Provisioner) Load(ctx context.Context) ([]Accessory, error) {
	if p.store == nil {
		return nil, nil
	}
	entries, err := p.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading accessories: %w", err)
	}
	return entries, nil
}
