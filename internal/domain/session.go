package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownState is returned when stored lifecycle text does not name a State.
var ErrUnknownState = errors.New("unknown session state")

// Color identifies a chess side.
type Color int

const (
	White Color = iota
	Black
)

func (c Color) String() string {
	if c == Black {
		return "Black"
	}
	return "White"
}

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// State is the lifecycle label of a session.
type State int

const (
	StatePending State = iota
	StateStarted
	StatePaused
	StateAbandoned
	StateCompleted
	StateWon
	StateDraw
)

var stateLabels = [...]string{
	StatePending:   "Pending",
	StateStarted:   "Started",
	StatePaused:    "Paused",
	StateAbandoned: "Abandoned",
	StateCompleted: "Completed",
	StateWon:       "Won",
	StateDraw:      "Draw",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateLabels) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateLabels[s]
}

// ParseState maps a stored label back to a State. Matching is exact.
func ParseState(label string) (State, error) {
	for i, l := range stateLabels {
		if l == label {
			return State(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownState, label)
}

// Playable reports whether moves may still be made in this state.
func (s State) Playable() bool {
	return s == StatePending || s == StateStarted
}

// MarshalText stores the state as its label.
func (s State) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(stateLabels) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownState, int(s))
	}
	return []byte(stateLabels[s]), nil
}

func (s *State) UnmarshalText(b []byte) error {
	v, err := ParseState(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Session is one persisted chess game between two player ids.
type Session struct {
	ID          int64
	WhitePlayer int64
	BlackPlayer int64
	State       State
	FEN         string
	PGN         string
	// Version increases on every successful write and guards ConditionalUpdate.
	Version int64
	Created *time.Time
	Updated *time.Time
}

// ColorOf returns the side played by player. White wins when both ids match.
func (s *Session) ColorOf(player int64) (Color, bool) {
	switch player {
	case s.WhitePlayer:
		return White, true
	case s.BlackPlayer:
		return Black, true
	default:
		return White, false
	}
}

// Plays reports whether player controls side c. A player seated on both
// sides controls both.
func (s *Session) Plays(player int64, c Color) bool {
	if c == Black {
		return player == s.BlackPlayer
	}
	return player == s.WhitePlayer
}

// PlayerFor returns the player id on the given side.
func (s *Session) PlayerFor(c Color) int64 {
	if c == Black {
		return s.BlackPlayer
	}
	return s.WhitePlayer
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Created != nil {
		t := *s.Created
		c.Created = &t
	}
	if s.Updated != nil {
		t := *s.Updated
		c.Updated = &t
	}
	return &c
}
