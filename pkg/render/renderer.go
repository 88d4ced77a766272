package render

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/game"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/protocol"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/status"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/transport"
)

// WaitingText is shown until the first snapshot arrives.
const WaitingText = "Connecting to Game..."

// BirdColumn is the fixed grid column of the bird.
const BirdColumn = 2

// View is everything drawn in one frame.
type View struct {
	State      *protocol.GameState
	Mode       game.Mode
	Connection transport.State
	Camera     bool
	Status     []status.Entry
	Summary    *game.Summary
}

// RendererConfig configures the text renderer.
type RendererConfig struct {
	// CellWidth is the number of characters per grid cell.
	// Defaults to 2.
	CellWidth int

	// Color enables ANSI colors.
	Color bool

	// ClearScreen prefixes each frame with a cursor-home sequence so frames
	// overwrite each other in a terminal.
	ClearScreen bool
}

// Renderer converts Views to text frames.
type Renderer struct {
	config RendererConfig
}

// NewRenderer creates a new Renderer with the given configuration.
func NewRenderer(config RendererConfig) *Renderer {
	if config.CellWidth <= 0 {
		config.CellWidth = 2
	}
	return &Renderer{config: config}
}

// RenderToString renders v to a string.
func (r *Renderer) RenderToString(v View) string {
	var buf bytes.Buffer
	r.RenderToWriter(&buf, v)
	return buf.String()
}

// RenderToWriter writes one frame for v to w.
func (r *Renderer) RenderToWriter(w io.Writer, v View) error {
	var b strings.Builder
	if r.config.ClearScreen {
		b.WriteString("\x1b[H\x1b[2J")
	}

	r.writeHeader(&b, v)
	if v.State == nil {
		r.writeWaiting(&b)
	} else {
		r.writeField(&b, v.State)
	}
	r.writeFooter(&b, v)

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Renderer) writeHeader(b *strings.Builder, v View) {
	score, high := 0, 0
	if v.State != nil {
		score, high = v.State.Score, v.State.Highscore
	}
	input := "keyboard"
	if v.Camera {
		input = "camera"
	}
	fmt.Fprintf(b, "Score: %d  High: %d  [%s] [%s] [%s]\n", score, high, v.Mode, v.Connection, input)
}

func (r *Renderer) writeWaiting(b *strings.Builder) {
	width := protocol.GridWidth * r.config.CellWidth
	border := "+" + strings.Repeat("-", width) + "+\n"
	b.WriteString(border)
	for row := 0; row < protocol.GridHeight; row++ {
		line := strings.Repeat(" ", width)
		if row == protocol.GridHeight/2 {
			line = center(WaitingText, width)
		}
		b.WriteString("|" + line + "|\n")
	}
	b.WriteString(border)
}

func (r *Renderer) writeField(b *strings.Builder, s *protocol.GameState) {
	grid := Grid(s)
	width := protocol.GridWidth * r.config.CellWidth
	border := "+" + strings.Repeat("-", width) + "+\n"

	b.WriteString(border)
	for _, row := range grid {
		b.WriteByte('|')
		for _, cell := range row {
			b.WriteString(r.cell(cell))
		}
		b.WriteString("|\n")
	}
	b.WriteString(border)
}

func (r *Renderer) cell(c Cell) string {
	n := r.config.CellWidth
	var s, color string
	switch c {
	case CellBird:
		s, color = "@"+strings.Repeat(">", n-1), "\x1b[33m"
	case CellPipe:
		s, color = strings.Repeat("#", n), "\x1b[32m"
	default:
		return strings.Repeat(" ", n)
	}
	if !r.config.Color {
		return s
	}
	return color + s + "\x1b[0m"
}

func (r *Renderer) writeFooter(b *strings.Builder, v View) {
	if s := v.State; s != nil {
		switch {
		case v.Summary != nil:
			fmt.Fprintf(b, "GAME OVER  final score %d  high score %d  (r: play again)\n", v.Summary.Score, v.Summary.Highscore)
		case s.ShowRestartDialog && s.AutoRestartCountdown > 0:
			fmt.Fprintf(b, "Restarting in %d...\n", s.AutoRestartCountdown)
		case v.Mode == game.ModePreview:
			b.WriteString("Preview: s to start\n")
		case v.Mode == game.ModePaused:
			b.WriteString("PAUSED: p to resume\n")
		}
	}
	for _, e := range v.Status {
		fmt.Fprintf(b, "[%s] %s\n", e.Level, e.Text)
	}
}

// Cell is the content of one grid cell.
type Cell uint8

const (
	CellEmpty Cell = iota
	CellPipe
	CellBird
)

// Grid rasterizes s onto the GridHeight x GridWidth playfield. A pipe fills
// its column except rows gap_y-1 through gap_y+1. The bird overwrites
// whatever is under it.
func Grid(s *protocol.GameState) [protocol.GridHeight][protocol.GridWidth]Cell {
	var g [protocol.GridHeight][protocol.GridWidth]Cell
	if s == nil {
		return g
	}

	for _, p := range s.Pipes {
		col := int(math.Floor(p.X))
		if col < 0 || col >= protocol.GridWidth {
			continue
		}
		top := p.GapY - 1
		bottom := p.GapY + 2
		for row := 0; row < protocol.GridHeight; row++ {
			y := float64(row)
			if y < top || y >= bottom {
				g[row][col] = CellPipe
			}
		}
	}

	row := int(math.Floor(s.BirdPosY))
	row = max(0, min(protocol.GridHeight-1, row))
	g[row][BirdColumn] = CellBird
	return g
}

func center(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	left := (width - len(s)) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-len(s)-left)
}
