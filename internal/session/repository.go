// Package session holds the Session Repository contract shared by every
// storage backend, plus the in-memory backend used for development and tests.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/misaelnieto/itm-2025-soa-u5/internal/domain"
)

// StartFEN is the board every new session begins with.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// DefaultListLimit bounds List when the caller passes limit <= 0.
const DefaultListLimit = 5

// ErrNotFound is returned by lookups that require the session to exist.
// FindByID itself reports absence as (nil, nil).
var ErrNotFound = errors.New("session not found")

// Repository is the durable store of sessions. It knows nothing about chess.
type Repository interface {
	Create(ctx context.Context, whitePlayer, blackPlayer int64) (*domain.Session, error)
	List(ctx context.Context, limit int) ([]*domain.Session, error)
	FindByID(ctx context.Context, id int64) (*domain.Session, error)
	// ConditionalUpdate writes the update only when the stored version still
	// equals ExpectedVersion and returns the number of rows affected.
	ConditionalUpdate(ctx context.Context, upd Update) (int64, error)
}

// Update is the payload of a ConditionalUpdate.
type Update struct {
	ID              int64
	ExpectedVersion int64
	State           domain.State
	FEN             string
	PGN             string
}

// NormalizeLimit applies DefaultListLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

// NewSession builds the record a backend stores on Create. Backends assign
// ID, Created and Updated.
func NewSession(whitePlayer, blackPlayer int64, now time.Time) *domain.Session {
	return &domain.Session{
		WhitePlayer: whitePlayer,
		BlackPlayer: blackPlayer,
		State:       domain.StatePending,
		FEN:         StartFEN,
		PGN:         Preamble(whitePlayer, blackPlayer, now),
		Version:     1,
	}
}
