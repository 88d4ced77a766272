package render

import (
	"strings"
	"testing"
	"time"

	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/game"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/protocol"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/status"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/transport"
)

func TestGrid_PipeGap(t *testing.T) {
	g := Grid(&protocol.GameState{
		BirdPosY: 0,
		Pipes:    []protocol.Pipe{{X: 10.6, GapY: 5}},
	})

	for row := 0; row < protocol.GridHeight; row++ {
		wantPipe := row < 4 || row >= 7
		got := g[row][10] == CellPipe
		if got != wantPipe {
			t.Errorf("row %d: pipe=%v, want %v", row, got, wantPipe)
		}
	}
}

func TestGrid_BirdClamped(t *testing.T) {
	tests := []struct {
		y    float64
		want int
	}{
		{y: 4.7, want: 4},
		{y: -3, want: 0},
		{y: 42, want: protocol.GridHeight - 1},
	}
	for _, tc := range tests {
		g := Grid(&protocol.GameState{BirdPosY: tc.y})
		if g[tc.want][BirdColumn] != CellBird {
			t.Errorf("bird_pos_y=%v: bird not at row %d", tc.y, tc.want)
		}
	}
}

func TestGrid_OffscreenPipesSkipped(t *testing.T) {
	g := Grid(&protocol.GameState{Pipes: []protocol.Pipe{{X: -1, GapY: 5}, {X: 25, GapY: 5}}})
	for _, row := range g {
		for col, c := range row {
			if c == CellPipe {
				t.Fatalf("pipe drawn at column %d", col)
			}
		}
	}
}

func TestRenderer_Waiting(t *testing.T) {
	r := NewRenderer(RendererConfig{})
	out := r.RenderToString(View{Mode: game.ModeConnecting, Connection: transport.StateConnecting})
	if !strings.Contains(out, WaitingText) {
		t.Fatalf("output missing waiting text:\n%s", out)
	}
	if !strings.Contains(out, "[connecting]") {
		t.Errorf("output missing mode:\n%s", out)
	}
}

func TestRenderer_FieldAndOverlays(t *testing.T) {
	r := NewRenderer(RendererConfig{CellWidth: 1})
	state := &protocol.GameState{
		Score: 3, Highscore: 8, BirdPosY: 5, GameMode: protocol.ModePlaying,
		Pipes: []protocol.Pipe{{X: 12, GapY: 5}},
	}

	out := r.RenderToString(View{
		State:      state,
		Mode:       game.ModePlaying,
		Connection: transport.StateOpen,
		Camera:     true,
		Status:     []status.Entry{{Level: status.Info, Text: "Face detected"}},
	})

	lines := strings.Split(out, "\n")
	if !strings.HasPrefix(lines[0], "Score: 3  High: 8") || !strings.Contains(lines[0], "[camera]") {
		t.Fatalf("header = %q", lines[0])
	}
	// lines[1] is the border; row r is lines[2+r].
	if got := lines[2+5][1+BirdColumn]; got != '@' {
		t.Errorf("bird cell = %q, want @", got)
	}
	if got := lines[2+0][1+12]; got != '#' {
		t.Errorf("pipe cell = %q, want #", got)
	}
	if !strings.Contains(out, "[info] Face detected") {
		t.Errorf("status missing:\n%s", out)
	}
}

func TestRenderer_Footers(t *testing.T) {
	r := NewRenderer(RendererConfig{})
	tests := []struct {
		name string
		view View
		want string
	}{
		{
			name: "summary",
			view: View{
				State:   &protocol.GameState{Score: 12, Highscore: 40, GameOver: true, GameMode: protocol.ModeGameOver},
				Mode:    game.ModeGameOver,
				Summary: &game.Summary{Score: 12, Highscore: 40, At: time.Now()},
			},
			want: "final score 12  high score 40",
		},
		{
			name: "countdown",
			view: View{
				State: &protocol.GameState{GameMode: protocol.ModeGameOver, ShowRestartDialog: true, AutoRestartCountdown: 3},
				Mode:  game.ModeGameOver,
			},
			want: "Restarting in 3",
		},
		{
			name: "preview",
			view: View{State: &protocol.GameState{GameMode: protocol.ModePreview}, Mode: game.ModePreview},
			want: "s to start",
		},
		{
			name: "paused",
			view: View{State: &protocol.GameState{GameMode: protocol.ModePaused}, Mode: game.ModePaused},
			want: "PAUSED",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if out := r.RenderToString(tc.view); !strings.Contains(out, tc.want) {
				t.Fatalf("output missing %q:\n%s", tc.want, out)
			}
		})
	}
}

func TestRenderer_DoesNotMutateState(t *testing.T) {
	state := &protocol.GameState{BirdPosY: 99, Pipes: []protocol.Pipe{{X: 3, GapY: 2}}}
	before := *state.Clone()
	NewRenderer(RendererConfig{Color: true}).RenderToString(View{State: state})
	if state.BirdPosY != before.BirdPosY || state.Pipes[0] != before.Pipes[0] {
		t.Fatal("renderer modified the snapshot")
	}
}
