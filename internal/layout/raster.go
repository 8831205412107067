package layout

import (
	"math"
	"strings"
	"sync"

	"github.com/nerrad567/devspace-core/internal/space"
)

// Raster is a Canvas that draws the overlay into a rune matrix, one cell
// per CellSize pixels. It backs the plain-text overlay view and tests.
//
// Origin (0,0) is top-left; X grows rightward and Y downward.
type Raster struct {
	CellSize float64

	mu     sync.RWMutex
	matrix [][]rune
	cols   int
	rows   int
}

// NewRaster creates a raster with cellSize pixels per character cell.
func NewRaster(cellSize float64) *Raster {
	if cellSize <= 0 {
		cellSize = 10
	}
	return &Raster{CellSize: cellSize}
}

// Resize reallocates the matrix for a container of width by height pixels.
func (r *Raster) Resize(width, height float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cols = int(math.Ceil(width / r.CellSize))
	r.rows = int(math.Ceil(height / r.CellSize))
	r.matrix = make([][]rune, r.rows)
	for y := range r.matrix {
		r.matrix[y] = []rune(strings.Repeat(" ", r.cols))
	}
}

// Present applies the overlay operations in order.
func (r *Raster) Present(o Overlay) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, op := range o.Ops {
		switch op.Kind {
		case OpClear:
			r.fill(0, 0, r.cols, r.rows, ' ')
		case OpStroke:
			for i := 1; i < len(op.Path); i++ {
				r.segment(op.Path[i-1], op.Path[i])
			}
		case OpClearRect:
			if op.Rect == nil {
				continue
			}
			x0, y0 := r.cell(space.Point{X: op.Rect.X, Y: op.Rect.Y})
			x1, y1 := r.cell(space.Point{X: op.Rect.X + op.Rect.W, Y: op.Rect.Y + op.Rect.H})
			r.fill(x0, y0, x1, y1, ' ')
		}
	}
}

// Get returns the rune at cell (x, y), or a space when out of bounds.
func (r *Raster) Get(x, y int) rune {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if x < 0 || x >= r.cols || y < 0 || y >= r.rows {
		return ' '
	}
	return r.matrix[y][x]
}

// Size returns the raster size in cells.
func (r *Raster) Size() (cols, rows int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cols, r.rows
}

// String returns the matrix with one line per row.
func (r *Raster) String() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sb strings.Builder
	sb.Grow(r.rows * (r.cols + 1))
	for y, row := range r.matrix {
		sb.WriteString(string(row))
		if y < r.rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func (r *Raster) cell(p space.Point) (int, int) {
	return int(math.Floor(p.X / r.CellSize)), int(math.Floor(p.Y / r.CellSize))
}

func (r *Raster) set(x, y int, ch rune) {
	if x < 0 || x >= r.cols || y < 0 || y >= r.rows {
		return
	}
	if cur := r.matrix[y][x]; cur != ' ' && cur != ch {
		ch = '+'
	}
	r.matrix[y][x] = ch
}

// segment draws an axis-aligned line. Connectors only ever produce those.
func (r *Raster) segment(a, b space.Point) {
	x0, y0 := r.cell(a)
	x1, y1 := r.cell(b)
	switch {
	case x0 == x1:
		for y := min(y0, y1); y <= max(y0, y1); y++ {
			r.set(x0, y, '|')
		}
	case y0 == y1:
		for x := min(x0, x1); x <= max(x0, x1); x++ {
			r.set(x, y0, '-')
		}
	}
}

// fill sets the half-open cell range [x0,x1) x [y0,y1) to ch.
func (r *Raster) fill(x0, y0, x1, y1 int, ch rune) {
	for y := max(y0, 0); y < min(y1, r.rows); y++ {
		for x := max(x0, 0); x < min(x1, r.cols); x++ {
			r.matrix[y][x] = ch
		}
	}
}

// Tee presents to several canvases in order.
type Tee []Canvas

// Resize forwards to every canvas.
func (t Tee) Resize(width, height float64) {
	for _, c := range t {
		c.Resize(width, height)
	}
}

// Present forwards to every canvas.
func (t Tee) Present(o Overlay) {
	for _, c := range t {
		c.Present(o)
	}
}
