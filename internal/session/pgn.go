package session

import (
	"fmt"
	"strings"
	"time"
)

// Preamble returns the PGN tag block a new session is seeded with.
func Preamble(whitePlayer, blackPlayer int64, date time.Time) string {
	if date.IsZero() {
		date = time.Now()
	}
	date = date.UTC()
	var b strings.Builder
	b.WriteString("[Event \"Ajedrez\"]\n")
	b.WriteString("[Site \"Online\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString("[Round \"1\"]\n")
	b.WriteString(fmt.Sprintf("[White \"%d\"]\n", whitePlayer))
	b.WriteString(fmt.Sprintf("[Black \"%d\"]\n", blackPlayer))
	return b.String()
}

// AppendMove adds one SAN token to the movetext. fullMove is the move number
// of the position the move was played from; whiteMoved selects whether the
// number prefix is written.
func AppendMove(pgn string, fullMove int, whiteMoved bool, san string) string {
	san = strings.TrimSpace(san)
	if san == "" {
		return pgn
	}
	var b strings.Builder
	b.WriteString(pgn)
	movetext := hasMovetext(pgn)
	switch {
	case !movetext:
		// blank line separates tags from movetext
		if !strings.HasSuffix(pgn, "\n") && pgn != "" {
			b.WriteString("\n")
		}
		if pgn != "" {
			b.WriteString("\n")
		}
	default:
		b.WriteString(" ")
	}
	if whiteMoved {
		b.WriteString(fmt.Sprintf("%d. %s", fullMove, san))
	} else if !movetext {
		b.WriteString(fmt.Sprintf("%d... %s", fullMove, san))
	} else {
		b.WriteString(san)
	}
	return b.String()
}

// hasMovetext reports whether the last line of pgn is movetext rather than a tag.
func hasMovetext(pgn string) bool {
	trimmed := strings.TrimRight(pgn, "\n")
	if trimmed == "" {
		return false
	}
	if strings.HasSuffix(pgn, "\n") {
		return false
	}
	idx := strings.LastIndex(trimmed, "\n")
	last := trimmed[idx+1:]
	return !strings.HasPrefix(last, "[")
}
