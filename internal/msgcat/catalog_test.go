package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/misaelnieto/itm-2025-soa-u5/internal/domain"
)

func TestEveryOutcomeHasAMessage(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, o := range domain.Outcomes() {
		if _, err := c.Render("move."+o.String(), MoveData{Description: "x"}); err != nil {
			t.Fatalf("move.%s: %v", o, err)
		}
	}
}

func TestOutcomeLine(t *testing.T) {
	c, _ := New("")
	req := domain.MoveRequest{SessionID: 3, PlayerID: 1, Move: "e4"}
	if got := c.Outcome(req, domain.MoveResponse{Outcome: domain.OutcomeValidMove, Description: "e4"}); got != "Move: e4" {
		t.Fatalf("valid line = %q", got)
	}
	got := c.Outcome(req, domain.MoveResponse{Outcome: domain.OutcomeInvalidMove, Description: "Failed to parse the movement: bad"})
	if got != "Invalid move: Failed to parse the movement: bad" {
		t.Fatalf("invalid line = %q", got)
	}
	if got := c.Outcome(req, domain.MoveResponse{Outcome: domain.OutcomeUserNotInSession}); got != "Player 1 is not in session 3" {
		t.Fatalf("membership line = %q", got)
	}
}

func TestRenderMissingField(t *testing.T) {
	c, _ := New("")
	if _, err := c.Render("session.created", map[string]any{"ID": 1}); err == nil {
		t.Fatalf("expected missingkey error")
	}
	if _, err := c.Render("does.not.exist", nil); err == nil {
		t.Fatalf("expected template not found")
	}
	if got := c.RenderOr("does.not.exist", nil, "fallback"); got != "fallback" {
		t.Fatalf("RenderOr = %q", got)
	}
	var nilCat *Catalog
	if got := nilCat.RenderOr("move.ValidMove", nil, "fb"); got != "fb" {
		t.Fatalf("nil catalog RenderOr = %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("move:\n  ValidMove: \"OK {{.Description}}\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, _ := c.Render("move.ValidMove", MoveData{Description: "Nf3"})
	if got != "OK Nf3" {
		t.Fatalf("override not applied: %q", got)
	}
	if !strings.HasPrefix(c.RenderOr("move.InvalidMove", MoveData{Description: "d"}, ""), "Invalid move") {
		t.Fatalf("non-overridden key lost")
	}
}

func TestOverrideDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("session:\n  empty: nothing\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := New(dir); err == nil || !strings.Contains(err.Error(), "duplicate override key") {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func TestRejectsNonStringLeaves(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("session:\n  empty: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected unsupported value error")
	}
}

func TestKeysSorted(t *testing.T) {
	c, _ := New("")
	keys := c.Keys()
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			t.Fatalf("keys not sorted: %v", keys)
		}
	}
}
