package layout

import "github.com/nerrad567/devspace-core/internal/space"

// OpKind is a drawing instruction on the connector canvas.
type OpKind string

// Overlay operations, applied in order.
const (
	// OpClear wipes the whole canvas.
	OpClear OpKind = "clear"
	// OpStroke draws the polyline in Path.
	OpStroke OpKind = "stroke"
	// OpClearRect erases Rect so no line shows under a device.
	OpClearRect OpKind = "clear_rect"
)

// Rect is an axis-aligned rectangle in screen pixels.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Op is one overlay drawing step.
type Op struct {
	Kind OpKind        `json:"op"`
	Path []space.Point `json:"path,omitempty"`
	Rect *Rect         `json:"rect,omitempty"`
	// From and To name the hub and peripheral of a stroke.
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// Overlay is the full list of steps that redraws the connector canvas.
type Overlay struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Ops    []Op    `json:"ops"`
}

// Strokes returns only the stroke operations.
func (o Overlay) Strokes() []Op {
	var out []Op
	for _, op := range o.Ops {
		if op.Kind == OpStroke {
			out = append(out, op)
		}
	}
	return out
}

// Canvas receives the connector overlay. Implementations draw it or send
// it to whatever surface shows the lines.
type Canvas interface {
	Resize(width, height float64)
	Present(o Overlay)
}

type nopCanvas struct{}

func (nopCanvas) Resize(float64, float64) {}
func (nopCanvas) Present(Overlay)         {}

// elbow is the vertical-then-horizontal connector between two centres.
func elbow(from, to space.Point) []space.Point {
	return []space.Point{
		from,
		{X: from.X, Y: to.Y},
		to,
	}
}

func footprintRect(d *space.Device) *Rect {
	fp := d.Footprint()
	return &Rect{X: d.Screen.X, Y: d.Screen.Y, W: fp.W, H: fp.H}
}
