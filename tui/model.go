package tui

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/snekpilot/command"
	"github.com/brensch/snekpilot/game"
	"github.com/brensch/snekpilot/rules"
)

// DefaultTick is the simulation step.
const DefaultTick = 100 * time.Millisecond

// LogSource feeds the debug panel.
type LogSource interface {
	Tail(n int) []string
}

type TickMsg time.Time

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Model is the bubbletea model. All game state lives in the machine and is
// only touched from Update.
type Model struct {
	machine *rules.Machine
	board   *Board
	logs    LogSource
	tick    time.Duration
	logger  *slog.Logger
}

func NewModel(machine *rules.Machine, board *Board, logs LogSource, tick time.Duration, logger *slog.Logger) Model {
	if tick <= 0 {
		tick = DefaultTick
	}
	if logger == nil {
		logger = slog.Default()
	}
	return Model{
		machine: machine,
		board:   board,
		logs:    logs,
		tick:    tick,
		logger:  logger,
	}
}

func (m Model) Init() tea.Cmd {
	return tickCmd(m.tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.board.Resize(msg.Width, msg.Height)
		w, h := m.board.Size()
		m.logger.Debug("terminal resized", "cols", msg.Width, "rows", msg.Height, "board_width", w, "board_height", h)
	case tea.KeyMsg:
		selecting := m.machine.UIMode() == game.UISelectingMode
		if m.machine.Handle(command.Decode(msg.String(), selecting)) {
			m.logger.Info("quit requested", "score", m.machine.Score())
			return m, tea.Quit
		}
		m.board.SetDebug(m.machine.UIMode() == game.UIGameWithDebug)
	case TickMsg:
		m.machine.Tick()
		return m, tickCmd(m.tick)
	}
	return m, nil
}

func (m Model) View() string {
	cols, rows := m.board.Cells()
	return render(m.machine.Snapshot(), cols, rows, m.logs)
}
