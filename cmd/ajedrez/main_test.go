package main

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/misaelnieto/itm-2025-soa-u5/internal/board"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/move"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/server"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/session"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := newApp(&out, &errOut).Run(context.Background(), append([]string{"ajedrez"}, args...))
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("ajedrez %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func useSQLite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", filepath.Join(dir, "ajedrez.db"))
	t.Setenv("MESSAGES_DIR", "")
	t.Setenv("AJEDREZ_REMOTE", "")
	return dir
}

func TestLocalSessionFlow(t *testing.T) {
	dir := useSQLite(t)

	if out := mustRun(t, "init"); !strings.Contains(out, "Database initialised (sqlite)") {
		t.Fatalf("init output = %q", out)
	}
	if out := mustRun(t, "create_session", "--white", "1", "--black", "2"); !strings.Contains(out, "Created session 1: White 1 vs Black 2") {
		t.Fatalf("create output = %q", out)
	}
	if out := mustRun(t, "make_move", "-s", "1", "-p", "1", "-m", "e4"); strings.TrimSpace(out) != "Move: e4" {
		t.Fatalf("move output = %q", out)
	}

	out, err := runCLI(t, "make_move", "-s", "1", "-p", "1", "-m", "d4")
	if !errors.Is(err, errRejected) || !strings.HasPrefix(out, "Invalid move: ") {
		t.Fatalf("second white move = %q, %v", out, err)
	}
	out, err = runCLI(t, "make_move", "-s", "1", "-p", "7", "-m", "e5")
	if !errors.Is(err, errRejected) || !strings.Contains(out, "Player 7 is not in session 1") {
		t.Fatalf("stranger move = %q, %v", out, err)
	}

	out = mustRun(t, "inspect", "-s", "1")
	for _, want := range []string{"state", "Started", "1. e4", "Black to move, move 1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("inspect output missing %q:\n%s", want, out)
		}
	}

	out = mustRun(t, "list")
	if !strings.Contains(out, "STATE") || !strings.Contains(out, "Started") {
		t.Fatalf("list output = %q", out)
	}

	pngPath := filepath.Join(dir, "board.png")
	mustRun(t, "board", "-s", "1", "-o", pngPath, "--black")
	if info, err := os.Stat(pngPath); err != nil || info.Size() == 0 {
		t.Fatalf("board png = %v, %v", info, err)
	}
}

func TestLocalInspectMissing(t *testing.T) {
	useSQLite(t)
	out, err := runCLI(t, "inspect", "-s", "99")
	if !errors.Is(err, errRejected) || !strings.Contains(out, "Session 99 not found") {
		t.Fatalf("inspect missing = %q, %v", out, err)
	}
}

func TestListEmpty(t *testing.T) {
	useSQLite(t)
	if out := mustRun(t, "list"); !strings.Contains(out, "No sessions found") {
		t.Fatalf("list output = %q", out)
	}
}

func TestMakeMoveRequiresFlags(t *testing.T) {
	useSQLite(t)
	if _, err := runCLI(t, "make_move", "-s", "1"); err == nil {
		t.Fatalf("expected missing flag error")
	}
}

func TestRemoteFlow(t *testing.T) {
	repo := session.NewMemoryRepository()
	ts := httptest.NewServer(server.New(repo, move.NewProcessor(repo, board.NewEngine())))
	t.Cleanup(ts.Close)
	t.Setenv("AJEDREZ_API_URL", ts.URL)
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	mustRun(t, "--remote", "create_session", "-w", "3", "-b", "4")
	if out := mustRun(t, "--remote", "make_move", "-s", "1", "-p", "3", "-m", "g1f3"); strings.TrimSpace(out) != "Move: Nf3" {
		t.Fatalf("remote move = %q", out)
	}
	out, err := runCLI(t, "--remote", "make_move", "-s", "5", "-p", "3", "-m", "e4")
	if !errors.Is(err, errRejected) || !strings.Contains(out, "Session 5 does not exist") {
		t.Fatalf("remote missing session = %q, %v", out, err)
	}
	if out := mustRun(t, "--remote", "inspect", "-s", "1"); !strings.Contains(out, "Black to move") {
		t.Fatalf("remote inspect = %q", out)
	}
	if _, err := runCLI(t, "--remote", "init"); err == nil {
		t.Fatalf("init should refuse remote mode")
	}
	if out := mustRun(t, "dump_openapi"); !strings.Contains(out, `"openapi"`) {
		t.Fatalf("dump_openapi = %q", out)
	}
	if out := mustRun(t, "echo", "-m", "hola", "-m", "adios"); !strings.Contains(out, "hola") || !strings.Contains(out, "adios") {
		t.Fatalf("echo = %q", out)
	}
}
