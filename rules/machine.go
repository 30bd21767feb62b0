package rules

import (
	"log/slog"
	"math/rand"

	"github.com/brensch/snekpilot/autopilot"
	"github.com/brensch/snekpilot/command"
	"github.com/brensch/snekpilot/game"
)

// Config tunes the state machine.
type Config struct {
	FoodPolicy FoodPolicy
	// StallTicks is how many consecutive ticks an autopilot snake waits for
	// commands before it resumes moving straight. 0 waits forever.
	StallTicks   int
	PlayerBuffer int
	// Providers are offered in the mode menu after the player entry.
	Providers []game.ProviderID
}

func DefaultConfig() Config {
	return Config{
		FoodPolicy:   FoodAvoidBody,
		StallTicks:   100,
		PlayerBuffer: command.DefaultPlayerBuffer,
	}
}

// Snapshot is an immutable copy of everything the renderer needs.
type Snapshot struct {
	Width, Height int32
	Body          []game.Point
	Food          game.Point
	Score         uint32
	State         game.State
	UIMode        game.UIMode
	Mode          game.Mode
	Menu          []game.Mode

	Pending  int
	InFlight bool
	Stalled  int
	Failures int
	LastErr  string
	Ticks    uint64
}

// Machine drives NotStarted -> Running -> GameOver and owns all simulation
// state. It must only be used from the game loop goroutine.
type Machine struct {
	cfg    Config
	board  Board
	rng    *rand.Rand
	logger *slog.Logger

	snake *game.Snake
	food  game.Point
	score uint32

	state  game.State
	ui     game.UIMode
	prevUI game.UIMode
	mode   game.Mode

	player  *command.PlayerSource
	pilot   *command.AutopilotSource
	stalled int
	ticks   uint64
}

func NewMachine(cfg Config, board Board, pilot *command.AutopilotSource, rng *rand.Rand, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		cfg:    cfg,
		board:  board,
		rng:    rng,
		logger: logger,
		snake:  game.NewSnake(),
		player: command.NewPlayerSource(cfg.PlayerBuffer),
		pilot:  pilot,
	}
}

// Menu lists the selectable modes: the player first, then each provider.
func (m *Machine) Menu() []game.Mode {
	menu := []game.Mode{game.PlayerMode}
	for _, id := range m.cfg.Providers {
		menu = append(menu, game.AutopilotMode(id))
	}
	return menu
}

// SetMode switches the command source and returns to NotStarted.
func (m *Machine) SetMode(mode game.Mode) {
	if mode.Autopilot && m.pilot == nil {
		m.logger.Error("autopilot unavailable", "provider", string(mode.Provider))
		return
	}
	m.mode = mode
	if mode.Autopilot {
		m.pilot.SetProvider(mode.Provider)
	}
	m.player.Clear()
	m.state = game.NotStarted
	m.logger.Info("mode selected", "mode", mode.String())
}

// Handle applies one input. It reports true when the program should quit.
func (m *Machine) Handle(cmd command.Command) bool {
	switch cmd.Kind {
	case command.None:
		return false
	case command.Quit:
		return true
	case command.ToggleDebug:
		m.toggleDebug()
		return false
	case command.SelectMode:
		if m.ui != game.UISelectingMode {
			m.prevUI = m.ui
			m.ui = game.UISelectingMode
		}
		return false
	}

	if m.ui == game.UISelectingMode {
		if cmd.Kind != command.ChooseMode {
			return false
		}
		menu := m.Menu()
		if cmd.Choice < 0 || cmd.Choice >= len(menu) {
			return false
		}
		m.SetMode(menu[cmd.Choice])
		m.ui = m.prevUI
		return false
	}

	switch m.state {
	case game.NotStarted, game.GameOver:
		m.start(cmd)
	case game.Running:
		if cmd.Kind == command.Turn && !m.mode.Autopilot {
			m.player.Push(cmd.Direction)
		}
	}
	return false
}

func (m *Machine) toggleDebug() {
	target := &m.ui
	if m.ui == game.UISelectingMode {
		target = &m.prevUI
	}
	if *target == game.UIGameWithDebug {
		*target = game.UIGame
	} else {
		*target = game.UIGameWithDebug
	}
}

func (m *Machine) start(cmd command.Command) {
	width, height := m.board.Size()
	if width <= 0 || height <= 0 {
		m.logger.Warn("board has no area yet", "width", width, "height", height)
		return
	}
	m.newGame(width, height)
	if cmd.Kind == command.Turn {
		m.snake.SetDirection(cmd.Direction)
	}
	m.state = game.Running
	m.logger.Info("game started",
		"mode", m.mode.String(),
		"width", width,
		"height", height,
		"direction", m.snake.Direction().String(),
	)
}

func (m *Machine) newGame(width, height int32) {
	m.snake.Reset()
	m.snake.SetHead(game.CenterPoint(width, height))
	m.snake.SetDirection(game.RandomDirection(m.rng))
	m.food = RelocateFood(m.rng, m.cfg.FoodPolicy, m.snake, width, height)
	m.score = 0
	m.stalled = 0
	m.player.Clear()
	if m.pilot != nil {
		m.pilot.Reset()
	}
}

// Tick advances the simulation by one step. The order is fixed: collision,
// food, one command, move.
func (m *Machine) Tick() {
	if m.ui == game.UISelectingMode || m.state != game.Running {
		return
	}
	m.ticks++
	width, height := m.board.Size()

	if Collided(m.snake, width, height) {
		m.state = game.GameOver
		m.logger.Info("game over", "score", m.score, "head", m.snake.Head().String(), "length", m.snake.Len())
		return
	}

	if m.snake.Head() == m.food {
		m.food = RelocateFood(m.rng, m.cfg.FoodPolicy, m.snake, width, height)
		m.score++
		m.snake.Grow()
		m.logger.Debug("food eaten", "score", m.score, "food", m.food.String())
	} else if !m.food.In(width, height) {
		// The terminal shrank under the food.
		m.food = RelocateFood(m.rng, m.cfg.FoodPolicy, m.snake, width, height)
	}

	if !m.applyCommand() {
		return
	}
	m.snake.Move()
}

// applyCommand feeds at most one pending direction to the snake. It
// reports false when the snake should hold still this tick.
func (m *Machine) applyCommand() bool {
	if !m.mode.Autopilot {
		if d, ok := m.player.Next(); ok {
			m.snake.ChangeDirection(d)
		}
		return true
	}

	m.pilot.Poll()
	if d, ok := m.pilot.Next(); ok {
		m.snake.ChangeDirection(d)
		m.stalled = 0
		return true
	}
	m.pilot.Request(autopilot.NewInput(m.snake.Head(), m.snake.Direction(), m.food))
	m.stalled++
	if m.cfg.StallTicks > 0 && m.stalled > m.cfg.StallTicks {
		return true
	}
	return false
}

func (m *Machine) State() game.State   { return m.state }
func (m *Machine) UIMode() game.UIMode { return m.ui }
func (m *Machine) Mode() game.Mode     { return m.mode }
func (m *Machine) Score() uint32       { return m.score }

// Snapshot copies the current state for rendering.
func (m *Machine) Snapshot() Snapshot {
	width, height := m.board.Size()
	snap := Snapshot{
		Width:   width,
		Height:  height,
		Body:    m.snake.Body(),
		Food:    m.food,
		Score:   m.score,
		State:   m.state,
		UIMode:  m.ui,
		Mode:    m.mode,
		Menu:    m.Menu(),
		Stalled: m.stalled,
		Ticks:   m.ticks,
	}
	if m.pilot != nil {
		snap.Pending = m.pilot.Len()
		snap.InFlight = m.pilot.InFlight()
		snap.Failures = m.pilot.Failures()
		if err := m.pilot.LastErr(); err != nil {
			snap.LastErr = err.Error()
		}
	}
	return snap
}
