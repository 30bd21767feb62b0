package tui

import (
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/snekpilot/autopilot"
	"github.com/brensch/snekpilot/command"
	"github.com/brensch/snekpilot/game"
	"github.com/brensch/snekpilot/logging"
	"github.com/brensch/snekpilot/rules"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestModel(t *testing.T, width, height int) (Model, *rules.Machine, *logging.Ring) {
	t.Helper()
	board := NewBoard()
	cfg := rules.DefaultConfig()
	cfg.Providers = []game.ProviderID{"greedy"}
	pilot := command.NewAutopilotSource(autopilot.NewChannel(), quietLogger())
	machine := rules.NewMachine(cfg, board, pilot, rand.New(rand.NewSource(1)), quietLogger())
	ring := logging.NewRing(16, slog.LevelDebug)
	m := NewModel(machine, board, ring, 0, quietLogger())
	next, _ := m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	return next.(Model), machine, ring
}

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBoardSize(t *testing.T) {
	b := NewBoard()
	if w, h := b.Size(); w != 0 || h != 0 {
		t.Fatalf("unsized board=%dx%d", w, h)
	}
	b.Resize(100, 30)
	if w, h := b.Size(); w != 98 || h != 54 {
		t.Fatalf("board=%dx%d want=98x54", w, h)
	}
	b.SetDebug(true)
	if w, h := b.Size(); w != 98-DebugWidth || h != 54 {
		t.Fatalf("debug board=%dx%d want=%dx54", w, h, 98-DebugWidth)
	}
	b.Resize(40, 30)
	if w, h := b.Size(); w != 0 || h != 0 {
		t.Fatalf("narrow debug board=%dx%d want=0x0", w, h)
	}
}

func TestStartScreenThenRun(t *testing.T) {
	m, machine, _ := newTestModel(t, 60, 20)
	view := m.View()
	if !strings.Contains(view, startMessage) {
		t.Fatalf("start screen missing prompt:\n%s", view)
	}

	next, _ := m.Update(key("right"))
	m = next.(Model)
	if machine.State() != game.Running {
		t.Fatalf("state=%v want=%v", machine.State(), game.Running)
	}
	next, cmd := m.Update(TickMsg{})
	m = next.(Model)
	if cmd == nil {
		t.Fatalf("tick did not schedule the next tick")
	}
	view = m.View()
	t.Logf("\n%s", view)
	if !strings.Contains(view, "Score: 0") {
		t.Fatalf("missing score:\n%s", view)
	}
	if !strings.ContainsAny(view, "▀▄█") {
		t.Fatalf("no snake drawn:\n%s", view)
	}
	lines := strings.Split(view, "\n")
	if len(lines) != 20 {
		t.Fatalf("view has %d lines want=20", len(lines))
	}
}

func TestQuitKeys(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		m, _, _ := newTestModel(t, 60, 20)
		_, cmd := m.Update(key(k))
		if cmd == nil {
			t.Fatalf("%s: no command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("%s: command is not quit", k)
		}
	}
}

func TestModeMenu(t *testing.T) {
	m, machine, _ := newTestModel(t, 80, 24)
	next, _ := m.Update(key("m"))
	m = next.(Model)
	view := m.View()
	if !strings.Contains(view, "Select mode") || !strings.Contains(view, "2. autopilot(greedy)") {
		t.Fatalf("menu missing:\n%s", view)
	}
	next, _ = m.Update(key("2"))
	m = next.(Model)
	if got := machine.Mode(); got != game.AutopilotMode("greedy") {
		t.Fatalf("mode=%v", got)
	}
	if !strings.Contains(m.View(), "mode: autopilot(greedy)") {
		t.Fatalf("start screen does not show mode:\n%s", m.View())
	}
}

func TestDebugPanel(t *testing.T) {
	m, machine, ring := newTestModel(t, 120, 30)
	slog.New(ring).Info("provider ready", "provider", "greedy")

	next, _ := m.Update(key("tab"))
	m = next.(Model)
	if machine.UIMode() != game.UIGameWithDebug {
		t.Fatalf("ui=%v want=%v", machine.UIMode(), game.UIGameWithDebug)
	}
	if w, _ := m.board.Size(); w != int32(120-chrome-DebugWidth) {
		t.Fatalf("board width=%d", w)
	}
	view := m.View()
	if !strings.Contains(view, "provider ready") || !strings.Contains(view, "state: not_started") {
		t.Fatalf("debug panel missing:\n%s", view)
	}
	for i, line := range strings.Split(view, "\n") {
		if w := len([]rune(line)); w > 120 {
			t.Fatalf("line %d is %d wide", i, w)
		}
	}
}

func TestGameOverScreen(t *testing.T) {
	m, machine, _ := newTestModel(t, 20, 8)
	next, _ := m.Update(key("up"))
	m = next.(Model)
	for i := 0; i < 100 && machine.State() == game.Running; i++ {
		next, _ = m.Update(TickMsg{})
		m = next.(Model)
	}
	if machine.State() != game.GameOver {
		t.Fatalf("state=%v want=%v", machine.State(), game.GameOver)
	}
	if view := m.View(); !strings.Contains(view, "Game over!") {
		t.Fatalf("game over screen missing:\n%s", view)
	}
}

func TestHalfBlock(t *testing.T) {
	cases := []struct {
		top, bottom cell
		want        string
	}{
		{cellEmpty, cellEmpty, " "},
		{cellBody, cellBody, "█"},
		{cellHead, cellEmpty, "▀"},
		{cellEmpty, cellFood, "▄"},
		{cellHead, cellBody, "▀"},
	}
	for _, tc := range cases {
		if got := halfBlock(tc.top, tc.bottom).r; got != tc.want {
			t.Fatalf("halfBlock(%d,%d)=%q want=%q", tc.top, tc.bottom, got, tc.want)
		}
	}
}

func TestTooSmall(t *testing.T) {
	m, _, _ := newTestModel(t, 2, 2)
	if got := m.View(); got != tooSmall {
		t.Fatalf("view=%q", got)
	}
}
