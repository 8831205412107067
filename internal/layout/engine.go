package layout

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/nerrad567/devspace-core/internal/space"
)

// DefaultResizeDebounce is the quiet period before a resize is applied.
const DefaultResizeDebounce = 50 * time.Millisecond

// ErrNoArea is returned by DragEnd while the container has zero width or height.
var ErrNoArea = errors.New("layout: container has no area")

// Logger defines the logging interface used by the Engine.
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

// Space is the part of *space.Manager the engine works on.
type Space interface {
	Devices() []*space.Device
	Hubs() []*space.Device
	Device(id string) (*space.Device, error)
	RenderAll()
}

// Scheduler runs fn on the space's event loop. space.Loop.Post fits.
type Scheduler func(fn func()) error

// Engine maps normalised device positions onto the container and keeps the
// connector overlay in sync.
//
// Everything except Resize must run on the space's event loop. Resize may be
// called from any goroutine; the relayout it triggers is handed to the
// Scheduler after the debounce period.
type Engine struct {
	space  Space
	canvas Canvas
	logger Logger

	width  float64
	height float64
	last   Overlay

	mu       sync.Mutex // guards timer, gen and pending
	timer    *time.Timer
	gen      uint64
	pending  space.Size
	debounce time.Duration
	schedule Scheduler
}

// New creates an Engine for a container of the given size.
func New(s Space, width, height float64) *Engine {
	return &Engine{
		space:    s,
		canvas:   nopCanvas{},
		logger:   noopLogger{},
		width:    width,
		height:   height,
		debounce: DefaultResizeDebounce,
		schedule: func(fn func()) error { fn(); return nil },
	}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// SetCanvas sets the surface that receives the overlay.
func (e *Engine) SetCanvas(c Canvas) {
	e.canvas = c
	c.Resize(e.width, e.height)
}

// SetScheduler sets how debounced resizes get back onto the event loop and
// the debounce period. A zero debounce applies resizes on the next loop turn.
func (e *Engine) SetScheduler(s Scheduler, debounce time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.schedule = s
	e.debounce = debounce
}

// Container returns the current container size.
func (e *Engine) Container() space.Size {
	return space.Size{W: e.width, H: e.height}
}

// PlaceDevices computes each device's screen offset from its normalised
// position. When the footprint would overflow the container the offset is
// clamped and the clamped fraction is written back to Position.
func (e *Engine) PlaceDevices() {
	for _, d := range e.space.Devices() {
		fp := d.Footprint()
		d.Screen.X, d.Position.X = place(d.Position.X, e.width, fp.W)
		d.Screen.Y, d.Position.Y = place(d.Position.Y, e.height, fp.H)
	}
}

// place maps fraction onto a container axis. The result never overflows;
// a footprint larger than the container pins the device to 0. A container
// with no extent keeps the fraction so the layout survives a minimised window.
func place(fraction, container, footprint float64) (screen, position float64) {
	if container <= 0 {
		return 0, fraction
	}
	screen = math.Round(fraction * container)
	if screen+footprint <= container {
		return screen, fraction
	}
	screen = math.Max(0, container-footprint)
	return screen, space.Round2(screen / container)
}

// clampOffset keeps a dragged offset inside [0, container-footprint].
func clampOffset(offset, container, footprint float64) float64 {
	return math.Min(math.Max(0, offset), math.Max(0, container-footprint))
}

// DragMove shifts device id by the rounded pointer delta and redraws the
// lines. The device is held inside the container.
func (e *Engine) DragMove(id string, dx, dy float64) error {
	d, err := e.space.Device(id)
	if err != nil {
		return err
	}
	fp := d.Footprint()
	d.Screen.X = clampOffset(math.Round(d.Screen.X+dx), e.width, fp.W)
	d.Screen.Y = clampOffset(math.Round(d.Screen.Y+dy), e.height, fp.H)
	e.DrawLines()
	return nil
}

// DragEnd stores the dragged offset as the device's normalised position.
// The absolute value is taken as well, so an offset never stores a negative
// fraction.
func (e *Engine) DragEnd(id string) error {
	d, err := e.space.Device(id)
	if err != nil {
		return err
	}
	if e.width <= 0 || e.height <= 0 {
		return fmt.Errorf("%w (%vx%v)", ErrNoArea, e.width, e.height)
	}
	d.Position.X = math.Abs(space.Round2(d.Screen.X / e.width))
	d.Position.Y = math.Abs(space.Round2(d.Screen.Y / e.height))
	e.DrawLines()
	return nil
}

// DrawLines rebuilds the overlay: clear, then for every hub connection an
// elbow stroke from hub centre to peripheral centre followed by clearing
// both endpoint footprints.
func (e *Engine) DrawLines() {
	o := Overlay{
		Width:  e.width,
		Height: e.height,
		Ops:    []Op{{Kind: OpClear}},
	}

	for _, hub := range e.space.Hubs() {
		for _, pin := range hub.Pins {
			peer, err := e.space.Device(pin.DeviceID)
			if err != nil {
				e.logger.Warn("connector to missing device", "hub", hub.ID, "pin", pin.Pin, "device", pin.DeviceID)
				continue
			}
			o.Ops = append(o.Ops,
				Op{Kind: OpStroke, Path: elbow(hub.Center(), peer.Center()), From: hub.ID, To: peer.ID},
				Op{Kind: OpClearRect, Rect: footprintRect(hub)},
				Op{Kind: OpClearRect, Rect: footprintRect(peer)},
			)
		}
	}

	e.last = o
	e.canvas.Present(o)
}

// Overlay returns the most recently drawn overlay.
func (e *Engine) Overlay() Overlay {
	return e.last
}

// Resize records a new container size and restarts the debounce timer; only
// the last size in a burst is applied.
func (e *Engine) Resize(width, height float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pending = space.Size{W: width, H: height}
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
	}
	gen := e.gen
	e.timer = time.AfterFunc(e.debounce, func() { e.fireResize(gen) })
}

func (e *Engine) fireResize(gen uint64) {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return // superseded by a later Resize
	}
	size := e.pending
	schedule := e.schedule
	e.timer = nil
	e.mu.Unlock()

	if err := schedule(func() { e.applyResize(size) }); err != nil {
		e.logger.Warn("resize dropped", "width", size.W, "height", size.H, "error", err)
	}
}

// applyResize resizes the canvas, re-derives screen offsets for the new
// container, redraws lines and re-renders every device.
func (e *Engine) applyResize(size space.Size) {
	e.width, e.height = size.W, size.H
	e.canvas.Resize(size.W, size.H)
	e.PlaceDevices()
	e.DrawLines()
	e.space.RenderAll()
	e.logger.Debug("container resized", "width", size.W, "height", size.H)
}

// Stop cancels a pending resize.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}
