// Package board is the boundary to the chess rules engine. The move pipeline
// only sees the Engine and Board interfaces; NewEngine backs them with
// github.com/corentings/chess/v2.
package board

import (
	"errors"
	"strconv"

	"github.com/misaelnieto/itm-2025-soa-u5/internal/domain"
)

// StartingFEN is the standard initial position.
const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	ErrMoveSyntax  = errors.New("unrecognized move notation")
	ErrIllegalMove = errors.New("illegal move")
)

// Notation tells the engine how to decode a Move.
type Notation int

const (
	NotationSAN Notation = iota
	NotationUCI
)

func (n Notation) String() string {
	if n == NotationUCI {
		return "uci"
	}
	return "san"
}

// Move is a syntactically valid move that has not been checked against a position.
type Move struct {
	Text     string
	Notation Notation
}

func (m Move) String() string { return m.Text }

// Engine parses positions and move text.
type Engine interface {
	ParseFEN(fen string) (Board, error)
	ParseMove(text string) (Move, error)
}

// Board is an immutable position. Apply returns a new Board.
type Board interface {
	ActiveColor() domain.Color
	FullMoveNumber() int
	// Apply validates legality and returns the resulting board and a
	// description of the executed move.
	Apply(mv Move) (Board, string, error)
	FEN() string
	Draw() string
}

// SyntaxError reports move text that is neither SAN nor UCI.
type SyntaxError struct {
	Text string
}

func (e *SyntaxError) Error() string {
	return "unrecognized move notation " + strconv.Quote(e.Text)
}

func (e *SyntaxError) Unwrap() error { return ErrMoveSyntax }
