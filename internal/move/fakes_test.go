package move

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/misaelnieto/itm-2025-soa-u5/internal/board"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/domain"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/session"
)

// fakeEngine understands positions written as "<fullmove> <w|b>". The FEN
// "corrupt" fails to parse, move text "zz9" fails to parse and "Ke9"
// parses but is rejected by Apply.
type fakeEngine struct {
	parseFENCalls int
}

func (e *fakeEngine) ParseFEN(fen string) (board.Board, error) {
	e.parseFENCalls++
	parts := strings.Fields(fen)
	if len(parts) != 2 || (parts[1] != "w" && parts[1] != "b") {
		return nil, errors.New("bad position")
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, errors.New("bad move number")
	}
	return fakeBoard{n: n, black: parts[1] == "b"}, nil
}

func (e *fakeEngine) ParseMove(text string) (board.Move, error) {
	if text == "zz9" || text == "" {
		return board.Move{}, errors.New("cannot read move")
	}
	return board.Move{Text: text}, nil
}

type fakeBoard struct {
	n     int
	black bool
}

func (b fakeBoard) ActiveColor() domain.Color {
	if b.black {
		return domain.Black
	}
	return domain.White
}

func (b fakeBoard) FullMoveNumber() int { return b.n }

func (b fakeBoard) Apply(mv board.Move) (board.Board, string, error) {
	if mv.Text == "Ke9" {
		return nil, "", errors.New("king cannot leave the board")
	}
	next := fakeBoard{n: b.n, black: !b.black}
	if b.black {
		next.n++
	}
	return next, mv.Text, nil
}

func (b fakeBoard) FEN() string {
	side := "w"
	if b.black {
		side = "b"
	}
	return fmt.Sprintf("%d %s", b.n, side)
}

func (b fakeBoard) Draw() string { return b.FEN() }

// fakeRepo is a single-table repository whose failures can be scripted.
type fakeRepo struct {
	mu       sync.Mutex
	sessions map[int64]*domain.Session

	findErr     error
	updateErr   error
	updateCount int64 // returned instead of 1 when non-zero
	conflicts   int   // ConditionalUpdate reports 0 rows this many times
	findCalls   int
	updateCalls int
	writes      int
}

func newFakeRepo(sessions ...*domain.Session) *fakeRepo {
	r := &fakeRepo{sessions: make(map[int64]*domain.Session)}
	for _, s := range sessions {
		r.sessions[s.ID] = s.Clone()
	}
	return r
}

func (r *fakeRepo) Create(ctx context.Context, white, black int64) (*domain.Session, error) {
	return nil, errors.New("not supported")
}

func (r *fakeRepo) List(ctx context.Context, limit int) ([]*domain.Session, error) {
	return nil, errors.New("not supported")
}

func (r *fakeRepo) FindByID(ctx context.Context, id int64) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++
	if r.findErr != nil {
		return nil, r.findErr
	}
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

func (r *fakeRepo) ConditionalUpdate(ctx context.Context, upd session.Update) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	if r.updateErr != nil {
		return 0, r.updateErr
	}
	if r.conflicts > 0 {
		r.conflicts--
		return 0, nil
	}
	if r.updateCount != 0 {
		return r.updateCount, nil
	}
	s, ok := r.sessions[upd.ID]
	if !ok || s.Version != upd.ExpectedVersion {
		return 0, nil
	}
	s.State, s.FEN, s.PGN = upd.State, upd.FEN, upd.PGN
	s.Version++
	r.writes++
	return 1, nil
}

func (r *fakeRepo) get(id int64) *domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id].Clone()
}
