// Package move runs the move-processing pipeline: lookup, membership, board
// reconstruction, turn ownership, parse, apply and a version-guarded write.
package move

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/misaelnieto/itm-2025-soa-u5/internal/board"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/domain"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/obslog"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/session"
)

// ErrCorruptBoard marks a stored FEN the engine cannot parse.
var ErrCorruptBoard = errors.New("corrupt board state")

// DefaultMaxAttempts bounds pipeline re-runs after a lost conditional write.
const DefaultMaxAttempts = 3

// Processor turns MoveRequests into MoveResponses.
type Processor struct {
	repo        session.Repository
	engine      board.Engine
	logger      *zap.Logger
	maxAttempts int
}

type Option func(*Processor)

func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithMaxAttempts sets how many times a move is tried when another writer
// wins the race. Values below 1 mean a single attempt.
func WithMaxAttempts(n int) Option {
	return func(p *Processor) {
		if n < 1 {
			n = 1
		}
		p.maxAttempts = n
	}
}

func NewProcessor(repo session.Repository, engine board.Engine, opts ...Option) *Processor {
	p := &Processor{repo: repo, engine: engine, maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = obslog.Or(p.logger)
	return p
}

// Process never returns an error; every failure is a tagged response.
func (p *Processor) Process(ctx context.Context, req domain.MoveRequest) domain.MoveResponse {
	var (
		resp     domain.MoveResponse
		conflict bool
		attempt  int
	)
	for attempt = 1; attempt <= p.maxAttempts; attempt++ {
		resp, conflict = p.attempt(ctx, req)
		if !conflict {
			break
		}
		if err := ctx.Err(); err != nil {
			resp = failure(domain.OutcomeDatabaseError, "Database error when updating the game state: %v", err)
			conflict = false
			break
		}
	}
	if conflict {
		resp = failure(domain.OutcomeConcurrentModification,
			"Session %d was modified by another request; the move was not applied after %d attempts",
			req.SessionID, p.maxAttempts)
	}
	p.log(req, resp, min(attempt, p.maxAttempts))
	return resp
}

// attempt runs the pipeline once. conflict is true when the conditional
// write matched no row because the version moved.
func (p *Processor) attempt(ctx context.Context, req domain.MoveRequest) (resp domain.MoveResponse, conflict bool) {
	sess, err := p.repo.FindByID(ctx, req.SessionID)
	if err != nil {
		return failure(domain.OutcomeDatabaseError, "Some database error happened: %v", err), false
	}
	if sess == nil {
		return failure(domain.OutcomeSessionDoesNotExist, "Session does not exist"), false
	}

	seat, member := sess.ColorOf(req.PlayerID)
	if !member {
		return failure(domain.OutcomeUserNotInSession, "This user is not in the play session"), false
	}

	b, err := p.engine.ParseFEN(sess.FEN)
	if err != nil {
		return failure(domain.OutcomeFenParseError, "Can't load the board state from database: %q: %v", sess.FEN, err), false
	}

	active := b.ActiveColor()
	if !sess.Plays(req.PlayerID, active) {
		return failure(domain.OutcomeInvalidMove, "Player %d is %s, but next turn is for %s", req.PlayerID, seat, active), false
	}

	mv, err := p.engine.ParseMove(req.Move)
	if err != nil {
		return failure(domain.OutcomeInvalidMove, "Failed to parse the movement: %v", err), false
	}

	next, desc, err := b.Apply(mv)
	if err != nil {
		return failure(domain.OutcomeInvalidMove, "Failed to make the movement: %v", err), false
	}

	// gate the write only
	if !sess.State.Playable() {
		return failure(domain.OutcomeSessionNotPlayable, "Session %d is %s and does not accept moves", sess.ID, sess.State), false
	}

	n, err := p.repo.ConditionalUpdate(ctx, session.Update{
		ID:              sess.ID,
		ExpectedVersion: sess.Version,
		State:           domain.StateStarted,
		FEN:             next.FEN(),
		PGN:             session.AppendMove(sess.PGN, b.FullMoveNumber(), active == domain.White, desc),
	})
	switch {
	case err != nil:
		return failure(domain.OutcomeDatabaseError, "Database error when updating the game state: %v", err), false
	case n == 0:
		return domain.MoveResponse{}, true
	case n != 1:
		return failure(domain.OutcomeDatabaseError, "The game state was not updated"), false
	}
	return domain.MoveResponse{Outcome: domain.OutcomeValidMove, Description: desc}, false
}

func failure(o domain.Outcome, format string, args ...any) domain.MoveResponse {
	return domain.MoveResponse{Outcome: o, Description: fmt.Sprintf(format, args...)}
}

func (p *Processor) log(req domain.MoveRequest, resp domain.MoveResponse, attempts int) {
	fields := []zap.Field{
		zap.Int64("session_id", req.SessionID),
		zap.Int64("player_id", req.PlayerID),
		zap.String("move", strings.TrimSpace(req.Move)),
		zap.String("outcome", resp.Outcome.String()),
		zap.Int("attempts", attempts),
	}
	switch resp.Outcome {
	case domain.OutcomeDatabaseError, domain.OutcomeFenParseError:
		p.logger.Error("move_processed", append(fields, zap.String("description", resp.Description))...)
	case domain.OutcomeConcurrentModification:
		p.logger.Warn("move_processed", fields...)
	default:
		p.logger.Info("move_processed", fields...)
	}
}
