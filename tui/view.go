package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/brensch/snekpilot/game"
	"github.com/brensch/snekpilot/rules"
)

var (
	snakeColor = lipgloss.Color("13")
	headColor  = lipgloss.Color("201")
	foodColor  = lipgloss.Color("10")

	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63"))
	debugStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Foreground(lipgloss.Color("250"))
	titleStyle  = lipgloss.NewStyle().Bold(true)
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

const (
	startMessage = "Press any arrow to start or 'q' to quit"
	tooSmall     = "Terminal too small"
)

type cell uint8

const (
	cellEmpty cell = iota
	cellBody
	cellHead
	cellFood
)

func (c cell) color() lipgloss.TerminalColor {
	switch c {
	case cellBody:
		return snakeColor
	case cellHead:
		return headColor
	case cellFood:
		return foodColor
	default:
		return lipgloss.NoColor{}
	}
}

// grid lays the snapshot out as grid[y][x].
func grid(snap rules.Snapshot) [][]cell {
	g := make([][]cell, snap.Height)
	for y := range g {
		g[y] = make([]cell, snap.Width)
	}
	set := func(p game.Point, c cell) {
		if p.In(snap.Width, snap.Height) {
			g[p.Y][p.X] = c
		}
	}
	set(snap.Food, cellFood)
	for i := len(snap.Body) - 1; i >= 0; i-- {
		if i == 0 {
			set(snap.Body[i], cellHead)
		} else {
			set(snap.Body[i], cellBody)
		}
	}
	return g
}

type glyph struct {
	r      string
	fg, bg cell
}

// halfBlock picks the glyph showing top over bottom in one terminal cell.
func halfBlock(top, bottom cell) glyph {
	switch {
	case top == cellEmpty && bottom == cellEmpty:
		return glyph{r: " "}
	case top == bottom:
		return glyph{r: "█", fg: top}
	case bottom == cellEmpty:
		return glyph{r: "▀", fg: top}
	case top == cellEmpty:
		return glyph{r: "▄", fg: bottom}
	default:
		return glyph{r: "▀", fg: top, bg: bottom}
	}
}

// renderField draws the playfield as rows lines of cols cells. Board y grows
// upwards, so the first line holds the two highest board rows.
func renderField(snap rules.Snapshot, cols, rows int) []string {
	g := grid(snap)
	at := func(x, y int) cell {
		if y < 0 || y >= len(g) || x < 0 || x >= len(g[y]) {
			return cellEmpty
		}
		return g[y][x]
	}

	lines := make([]string, rows)
	for r := 0; r < rows; r++ {
		yBottom := (rows - 1 - r) * 2
		var sb strings.Builder
		var run glyph
		n := 0
		flush := func() {
			if n == 0 {
				return
			}
			text := strings.Repeat(run.r, n)
			if run.fg == cellEmpty && run.bg == cellEmpty {
				sb.WriteString(text)
			} else {
				style := lipgloss.NewStyle().Foreground(run.fg.color())
				if run.bg != cellEmpty {
					style = style.Background(run.bg.color())
				}
				sb.WriteString(style.Render(text))
			}
			n = 0
		}
		for x := 0; x < cols; x++ {
			gl := halfBlock(at(x, yBottom+1), at(x, yBottom))
			if n > 0 && gl != run {
				flush()
			}
			run = gl
			n++
		}
		flush()
		lines[r] = sb.String()
	}
	return lines
}

func placed(cols, rows int, content string) string {
	return lipgloss.Place(cols, rows, lipgloss.Center, lipgloss.Center, content)
}

func menuView(snap rules.Snapshot) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Select mode"))
	sb.WriteString("\n\n")
	for i, mode := range snap.Menu {
		line := fmt.Sprintf("%d. %s", i+1, mode.String())
		if mode == snap.Mode {
			line = activeStyle.Render(line + " *")
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteString("\n")
	sb.WriteString(hintStyle.Render("press a number to choose"))
	return sb.String()
}

func startView(snap rules.Snapshot) string {
	return titleStyle.Render("Snake") + "\n\n" +
		startMessage + "\n" +
		hintStyle.Render(fmt.Sprintf("mode: %s  [m] change", snap.Mode.String()))
}

func gameOverView(snap rules.Snapshot) string {
	return titleStyle.Render("Game over!") + "\n\n" +
		fmt.Sprintf("Score: %d", snap.Score) + "\n" +
		hintStyle.Render("press any key to play again, 'q' to quit")
}

func statusLine(snap rules.Snapshot, width int) string {
	left := fmt.Sprintf("Score: %d  %s", snap.Score, snap.Mode.String())
	if snap.Mode.Autopilot && snap.State == game.Running {
		if snap.InFlight {
			left += "  thinking..."
		} else if snap.Pending > 0 {
			left += fmt.Sprintf("  %d queued", snap.Pending)
		}
	}
	right := hintStyle.Render("[m] mode [tab] debug [q] quit")
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return truncate(left, width)
	}
	return left + strings.Repeat(" ", gap) + right
}

func debugView(snap rules.Snapshot, rows int, logs LogSource) string {
	inner := DebugWidth - chrome
	header := []string{
		fmt.Sprintf("state: %s  ui: %s", snap.State, snap.UIMode),
		fmt.Sprintf("mode: %s", snap.Mode.String()),
		fmt.Sprintf("board: %dx%d  ticks: %d", snap.Width, snap.Height, snap.Ticks),
		fmt.Sprintf("length: %d  head: %s", len(snap.Body), headOf(snap)),
		fmt.Sprintf("food: %s", snap.Food),
	}
	if snap.Mode.Autopilot {
		header = append(header,
			fmt.Sprintf("queued: %d  in flight: %v  stalled: %d", snap.Pending, snap.InFlight, snap.Stalled),
		)
		if snap.Failures > 0 {
			header = append(header, errorStyle.Render(truncate(fmt.Sprintf("failures: %d %s", snap.Failures, snap.LastErr), inner)))
		}
	}
	header = append(header, strings.Repeat("─", inner))

	lines := make([]string, 0, rows)
	for _, h := range header {
		if len(lines) == rows {
			break
		}
		lines = append(lines, truncate(h, inner))
	}
	if logs != nil && rows > len(lines) {
		for _, l := range logs.Tail(rows - len(lines)) {
			lines = append(lines, truncate(l, inner))
		}
	}
	return debugStyle.Width(inner).Height(rows).Render(strings.Join(lines, "\n"))
}

func headOf(snap rules.Snapshot) string {
	if len(snap.Body) == 0 {
		return "-"
	}
	return snap.Body[0].String()
}

// truncate cuts s to at most n visible cells.
func truncate(s string, n int) string {
	if lipgloss.Width(s) <= n {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes)) > n {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}

// render draws the whole screen for a board of cols x rows terminal cells.
func render(snap rules.Snapshot, cols, rows int, logs LogSource) string {
	if cols <= 0 || rows <= 0 {
		return tooSmall
	}

	var field string
	switch {
	case snap.UIMode == game.UISelectingMode:
		field = placed(cols, rows, menuView(snap))
	case snap.State == game.NotStarted:
		field = placed(cols, rows, startView(snap))
	case snap.State == game.GameOver:
		field = placed(cols, rows, gameOverView(snap))
	default:
		field = strings.Join(renderField(snap, cols, rows), "\n")
	}

	screen := frameStyle.Render(field)
	if snap.UIMode == game.UIGameWithDebug {
		screen = lipgloss.JoinHorizontal(lipgloss.Top, screen, debugView(snap, rows, logs))
	}
	return lipgloss.JoinVertical(lipgloss.Left, screen, statusLine(snap, lipgloss.Width(screen)))
}
