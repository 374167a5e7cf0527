package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/misaelnieto/itm-2025-soa-u5/internal/apiclient"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/app"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/board"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/domain"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/move"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/render"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/server"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/session"
	"github.com/misaelnieto/itm-2025-soa-u5/pkg/ajedrezdto"
)

var errSessionNotFound = errors.New("session not found")

// backend is what the commands need, served either straight from the store
// or through the HTTP API.
type backend interface {
	Migrate(ctx context.Context) (bool, error)
	Create(ctx context.Context, white, black int64) (*ajedrezdto.Session, error)
	List(ctx context.Context, limit int) ([]ajedrezdto.Session, error)
	Move(ctx context.Context, req domain.MoveRequest) (domain.MoveResponse, error)
	Inspect(ctx context.Context, id int64) (*ajedrezdto.SessionView, error)
	BoardPNG(ctx context.Context, id int64, flip bool) ([]byte, error)
	Close() error
}

type localBackend struct {
	deps *app.Deps
}

func (b *localBackend) Migrate(ctx context.Context) (bool, error) { return b.deps.Migrate(ctx) }

func (b *localBackend) Create(ctx context.Context, white, black int64) (*ajedrezdto.Session, error) {
	s, err := b.deps.Repo.Create(ctx, white, black)
	if err != nil {
		return nil, err
	}
	dto := server.SessionDTO(s)
	return &dto, nil
}

func (b *localBackend) List(ctx context.Context, limit int) ([]ajedrezdto.Session, error) {
	if limit <= 0 {
		limit = b.deps.Config.SessionListLimit
	}
	list, err := b.deps.Repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]ajedrezdto.Session, 0, len(list))
	for _, s := range list {
		out = append(out, server.SessionDTO(s))
	}
	return out, nil
}

func (b *localBackend) Move(ctx context.Context, req domain.MoveRequest) (domain.MoveResponse, error) {
	return b.deps.Processor.Process(ctx, req), nil
}

func (b *localBackend) view(ctx context.Context, id int64) (*move.SessionView, error) {
	view, err := b.deps.Processor.Inspect(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		return nil, errSessionNotFound
	}
	return view, err
}

func (b *localBackend) Inspect(ctx context.Context, id int64) (*ajedrezdto.SessionView, error) {
	view, err := b.view(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := server.ViewDTO(view)
	return &dto, nil
}

func (b *localBackend) BoardPNG(ctx context.Context, id int64, flip bool) ([]byte, error) {
	view, err := b.view(ctx, id)
	if err != nil {
		return nil, err
	}
	pos, ok := board.Position(view.Board)
	if !ok {
		return nil, fmt.Errorf("session %d: board cannot be rendered", id)
	}
	return b.deps.Renderer.RenderPNG(ctx, pos, render.Options{
		Flip:    flip,
		Caption: fmt.Sprintf("Session %d - %s to move", id, view.Board.ActiveColor()),
	})
}

func (b *localBackend) Close() error { return b.deps.Close() }

type remoteBackend struct {
	client *apiclient.Client
}

func newRemoteBackend(baseURL string) *remoteBackend {
	headers := func() map[string]string {
		return map[string]string{"X-Request-ID": "cli-" + uuid.NewString()}
	}
	return &remoteBackend{client: apiclient.New(baseURL, apiclient.WithHeaderProvider(headers))}
}

func (b *remoteBackend) Migrate(context.Context) (bool, error) {
	return false, errors.New("init runs against the store directly; drop --remote")
}

func (b *remoteBackend) Create(ctx context.Context, white, black int64) (*ajedrezdto.Session, error) {
	return b.client.CreateSession(ctx, white, black)
}

func (b *remoteBackend) List(ctx context.Context, limit int) ([]ajedrezdto.Session, error) {
	return b.client.ListSessions(ctx, limit)
}

func (b *remoteBackend) Move(ctx context.Context, req domain.MoveRequest) (domain.MoveResponse, error) {
	resp, err := b.client.MakeMove(ctx, req.SessionID, req.PlayerID, req.Move)
	if err != nil {
		return domain.MoveResponse{}, err
	}
	outcome, ok := domain.ParseOutcome(resp.Result)
	if !ok {
		return domain.MoveResponse{}, fmt.Errorf("unknown move result %q", resp.Result)
	}
	return domain.MoveResponse{Outcome: outcome, Description: resp.Description}, nil
}

func (b *remoteBackend) Inspect(ctx context.Context, id int64) (*ajedrezdto.SessionView, error) {
	view, err := b.client.Inspect(ctx, id)
	if apiclient.IsNotFound(err) {
		return nil, errSessionNotFound
	}
	return view, err
}

func (b *remoteBackend) BoardPNG(ctx context.Context, id int64, flip bool) ([]byte, error) {
	img, err := b.client.BoardPNG(ctx, id, flip)
	if apiclient.IsNotFound(err) {
		return nil, errSessionNotFound
	}
	return img, err
}

func (b *remoteBackend) Close() error { return nil }
