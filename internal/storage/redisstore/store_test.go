package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/misaelnieto/itm-2025-soa-u5/internal/domain"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/session"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	s, err := Open(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()), time.Second)
	if err != nil {
		t.Fatalf("redisstore.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestParseRedisURL(t *testing.T) {
	opts, err := parseRedisURL("redis://:secret@localhost:6380/2")
	if err != nil {
		t.Fatalf("parseRedisURL: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if _, err := parseRedisURL("http://localhost"); err == nil {
		t.Fatalf("expected scheme error")
	}
	if _, err := parseRedisURL("redis://localhost/x"); err == nil {
		t.Fatalf("expected db error")
	}
}

func TestOpenRequiresURL(t *testing.T) {
	if _, err := Open(context.Background(), "  ", time.Second); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestCreateFindList(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	created, err := s.Create(ctx, 1, 2)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != 1 || created.State != domain.StatePending || created.FEN != session.StartFEN {
		t.Fatalf("unexpected session: %+v", created)
	}
	if !mr.Exists(sessionKey(created.ID)) {
		t.Fatalf("session key not written")
	}

	got, err := s.FindByID(ctx, created.ID)
	if err != nil || got == nil {
		t.Fatalf("FindByID: %v, %v", got, err)
	}
	if got.PGN != created.PGN || !got.Created.Equal(*created.Created) || got.Version != 1 {
		t.Fatalf("stored session differs: %+v", got)
	}

	missing, err := s.FindByID(ctx, 42)
	if err != nil || missing != nil {
		t.Fatalf("FindByID missing = %v, %v", missing, err)
	}

	for i := 0; i < 6; i++ {
		if _, err := s.Create(ctx, 3, 4); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	list, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != session.DefaultListLimit || list[0].ID != 1 || list[4].ID != 5 {
		t.Fatalf("unexpected list: %d items", len(list))
	}
}

func TestListEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	list, err := s.List(context.Background(), 3)
	if err != nil || len(list) != 0 {
		t.Fatalf("List on empty store = %v, %v", list, err)
	}
}

func TestConditionalUpdate(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	sess, _ := s.Create(ctx, 1, 2)

	n, err := s.ConditionalUpdate(ctx, session.Update{ID: sess.ID, ExpectedVersion: 1, State: domain.StateStarted, FEN: "after", PGN: "pgn"})
	if err != nil || n != 1 {
		t.Fatalf("ConditionalUpdate = %d, %v", n, err)
	}
	got, _ := s.FindByID(ctx, sess.ID)
	if got.State != domain.StateStarted || got.FEN != "after" || got.Version != 2 {
		t.Fatalf("after update: %+v", got)
	}

	n, err = s.ConditionalUpdate(ctx, session.Update{ID: sess.ID, ExpectedVersion: 1, State: domain.StateStarted, FEN: "stale"})
	if err != nil || n != 0 {
		t.Fatalf("stale update = %d, %v", n, err)
	}
	n, err = s.ConditionalUpdate(ctx, session.Update{ID: 77, ExpectedVersion: 1})
	if err != nil || n != 0 {
		t.Fatalf("missing-row update = %d, %v", n, err)
	}
	got, _ = s.FindByID(ctx, sess.ID)
	if got.FEN != "after" {
		t.Fatalf("failed updates leaked: %q", got.FEN)
	}
}

func TestUnknownStoredState(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)
	sess, _ := s.Create(ctx, 1, 2)
	raw, _ := mr.Get(sessionKey(sess.ID))
	if err := mr.Set(sessionKey(sess.ID), strings.Replace(raw, `"Pending"`, `"Bogus"`, 1)); err != nil {
		t.Fatalf("corrupt state: %v", err)
	}
	if _, err := s.FindByID(ctx, sess.ID); !errors.Is(err, domain.ErrUnknownState) {
		t.Fatalf("FindByID err = %v, want ErrUnknownState", err)
	}
}

func TestStoreErrorIsNotNotFound(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()
	sess, err := s.FindByID(context.Background(), 1)
	if err == nil || sess != nil {
		t.Fatalf("FindByID on closed server = %v, %v; want error", sess, err)
	}
}
