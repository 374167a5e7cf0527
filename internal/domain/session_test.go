package domain

import (
	"errors"
	"testing"
)

func TestParseStateRoundTrip(t *testing.T) {
	for s := StatePending; s <= StateDraw; s++ {
		got, err := ParseState(s.String())
		if err != nil {
			t.Fatalf("ParseState(%q): %v", s.String(), err)
		}
		if got != s {
			t.Fatalf("ParseState(%q) = %v, want %v", s.String(), got, s)
		}
	}
}

func TestParseStateRejectsUnknown(t *testing.T) {
	for _, label := range []string{"", "pending", "Finished", "STARTED"} {
		if _, err := ParseState(label); !errors.Is(err, ErrUnknownState) {
			t.Fatalf("ParseState(%q) err = %v, want ErrUnknownState", label, err)
		}
	}
}

func TestPlayable(t *testing.T) {
	playable := map[State]bool{StatePending: true, StateStarted: true}
	for s := StatePending; s <= StateDraw; s++ {
		if s.Playable() != playable[s] {
			t.Fatalf("%s.Playable() = %v", s, s.Playable())
		}
	}
}

func TestColorOf(t *testing.T) {
	s := &Session{WhitePlayer: 1, BlackPlayer: 2}
	if c, ok := s.ColorOf(1); !ok || c != White {
		t.Fatalf("ColorOf(1) = %v,%v", c, ok)
	}
	if c, ok := s.ColorOf(2); !ok || c != Black {
		t.Fatalf("ColorOf(2) = %v,%v", c, ok)
	}
	if _, ok := s.ColorOf(999); ok {
		t.Fatalf("ColorOf(999) reported membership")
	}

	self := &Session{WhitePlayer: 7, BlackPlayer: 7}
	if c, ok := self.ColorOf(7); !ok || c != White {
		t.Fatalf("self-play ColorOf(7) = %v,%v", c, ok)
	}
	if !self.Plays(7, White) || !self.Plays(7, Black) {
		t.Fatalf("self-play player should control both sides")
	}
	if s.Plays(1, Black) || !s.Plays(2, Black) {
		t.Fatalf("Plays mismatch for distinct players")
	}
}

func TestOutcomeNames(t *testing.T) {
	want := []string{
		"SessionDoesNotExist", "UserNotInSession", "FenParseError", "InvalidMove",
		"DatabaseError", "ValidMove", "SessionNotPlayable", "ConcurrentModification",
	}
	got := Outcomes()
	if len(got) != len(want) {
		t.Fatalf("len(Outcomes()) = %d", len(got))
	}
	for i, o := range got {
		if o.String() != want[i] {
			t.Fatalf("Outcome %d = %q, want %q", i, o.String(), want[i])
		}
		if back, ok := ParseOutcome(want[i]); !ok || back != o {
			t.Fatalf("ParseOutcome(%q) = %v, %v", want[i], back, ok)
		}
	}
	if _, ok := ParseOutcome("Checkmate"); ok {
		t.Fatalf("ParseOutcome accepted an unknown tag")
	}
}
