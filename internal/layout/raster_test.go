package layout

import (
	"strings"
	"testing"

	"github.com/nerrad567/devspace-core/internal/space"
)

func TestRaster_Present(t *testing.T) {
	r := NewRaster(10)
	r.Resize(100, 50)

	if cols, rows := r.Size(); cols != 10 || rows != 5 {
		t.Fatalf("Size() = %dx%d, want 10x5", cols, rows)
	}

	r.Present(Overlay{Ops: []Op{
		{Kind: OpClear},
		{Kind: OpStroke, Path: elbow(space.Point{X: 5, Y: 5}, space.Point{X: 75, Y: 35})},
		{Kind: OpClearRect, Rect: &Rect{X: 60, Y: 30, W: 20, H: 10}},
	}})

	tests := []struct {
		name string
		x, y int
		want rune
	}{
		{"vertical", 0, 1, '|'},
		{"corner", 0, 3, '+'},
		{"horizontal", 3, 3, '-'},
		{"cleared under device", 6, 3, ' '},
		{"untouched", 5, 0, ' '},
		{"out of bounds", 20, 20, ' '},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Get(tt.x, tt.y); got != tt.want {
				t.Errorf("Get(%d, %d) = %q, want %q", tt.x, tt.y, got, tt.want)
			}
		})
	}

	lines := strings.Split(r.String(), "\n")
	if len(lines) != 5 || len([]rune(lines[0])) != 10 {
		t.Errorf("String() = %q, want 5 lines of 10", r.String())
	}
}

func TestRaster_ClearWipes(t *testing.T) {
	r := NewRaster(10)
	r.Resize(50, 50)
	r.Present(Overlay{Ops: []Op{{Kind: OpStroke, Path: []space.Point{{X: 0, Y: 0}, {X: 40, Y: 0}}}}})
	r.Present(Overlay{Ops: []Op{{Kind: OpClear}}})

	if strings.TrimSpace(r.String()) != "" {
		t.Errorf("String() after clear = %q, want blank", r.String())
	}
}

func TestTee(t *testing.T) {
	a, b := &recordingCanvas{}, &recordingCanvas{}
	tee := Tee{a, b}

	tee.Resize(10, 20)
	tee.Present(Overlay{Width: 10})

	for i, c := range []*recordingCanvas{a, b} {
		if len(c.sizes) != 1 || len(c.overlays) != 1 {
			t.Errorf("canvas %d got %d sizes and %d overlays, want 1 each", i, len(c.sizes), len(c.overlays))
		}
	}
}
