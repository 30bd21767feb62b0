// Package tui runs the game as a bubbletea program.
//
// The board is drawn with half-block glyphs, so every terminal row shows
// two board rows and the playable area is twice as tall as it looks in
// character cells.
package tui

const (
	// DebugWidth is the width of the debug column, borders included.
	DebugWidth = 48
	// chrome is the border around the board (2 columns, 2 rows).
	chrome = 2
	// statusRows is the line under the board.
	statusRows = 1
)

// Board tracks the terminal size and derives the playable area from it.
// It implements rules.Board.
type Board struct {
	termWidth  int
	termHeight int
	debug      bool
}

func NewBoard() *Board {
	return &Board{}
}

// Resize records a new terminal size.
func (b *Board) Resize(width, height int) {
	b.termWidth, b.termHeight = width, height
}

// SetDebug reserves or frees the debug column.
func (b *Board) SetDebug(on bool) {
	b.debug = on
}

// Cells returns the inner board size in terminal cells.
func (b *Board) Cells() (cols, rows int) {
	cols = b.termWidth - chrome
	if b.debug {
		cols -= DebugWidth
	}
	rows = b.termHeight - chrome - statusRows
	if cols < 0 || rows < 0 {
		return 0, 0
	}
	return cols, rows
}

// Size returns the playable area in board units.
func (b *Board) Size() (width, height int32) {
	cols, rows := b.Cells()
	if cols == 0 || rows == 0 {
		return 0, 0
	}
	return int32(cols), int32(rows * 2)
}
