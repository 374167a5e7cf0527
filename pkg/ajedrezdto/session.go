package ajedrezdto

import "time"

// Session mirrors one stored session row.
type Session struct {
	ID          int64      `json:"id"`
	WhitePlayer int64      `json:"white_player"`
	BlackPlayer int64      `json:"black_player"`
	State       string     `json:"state"`
	FEN         string     `json:"fen_state"`
	PGN         string     `json:"pgn_state"`
	Version     int64      `json:"version"`
	Created     *time.Time `json:"created,omitempty"`
	Updated     *time.Time `json:"updated,omitempty"`
}

// SessionView is the inspect payload: the session plus what the board says.
type SessionView struct {
	Session     Session `json:"session"`
	ActiveColor string  `json:"active_color"`
	FullMove    int     `json:"full_move"`
	Board       string  `json:"board"`
}

type SessionList struct {
	Sessions []Session `json:"sessions"`
}
