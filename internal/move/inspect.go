package move

import (
	"context"
	"fmt"

	"github.com/misaelnieto/itm-2025-soa-u5/internal/board"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/domain"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/session"
)

// SessionView pairs a stored session with its parsed board.
type SessionView struct {
	Session *domain.Session
	Board   board.Board
}

// Inspect runs lookup and board reconstruction only. A missing session wraps
// session.ErrNotFound and an unparseable FEN wraps ErrCorruptBoard.
func (p *Processor) Inspect(ctx context.Context, id int64) (*SessionView, error) {
	sess, err := p.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find session %d: %w", id, err)
	}
	if sess == nil {
		return nil, fmt.Errorf("session %d: %w", id, session.ErrNotFound)
	}
	b, err := p.engine.ParseFEN(sess.FEN)
	if err != nil {
		return nil, fmt.Errorf("session %d: %w: %v", id, ErrCorruptBoard, err)
	}
	return &SessionView{Session: sess, Board: b}, nil
}
