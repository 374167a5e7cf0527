package domain

// Outcome is the closed set of results a move request can produce.
type Outcome int

const (
	OutcomeSessionDoesNotExist Outcome = iota
	OutcomeUserNotInSession
	OutcomeFenParseError
	OutcomeInvalidMove
	OutcomeDatabaseError
	OutcomeValidMove
	OutcomeSessionNotPlayable
	OutcomeConcurrentModification
)

var outcomeNames = [...]string{
	OutcomeSessionDoesNotExist:    "SessionDoesNotExist",
	OutcomeUserNotInSession:       "UserNotInSession",
	OutcomeFenParseError:          "FenParseError",
	OutcomeInvalidMove:            "InvalidMove",
	OutcomeDatabaseError:          "DatabaseError",
	OutcomeValidMove:              "ValidMove",
	OutcomeSessionNotPlayable:     "SessionNotPlayable",
	OutcomeConcurrentModification: "ConcurrentModification",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "Unknown"
	}
	return outcomeNames[o]
}

// ParseOutcome maps a tag name back to its Outcome.
func ParseOutcome(name string) (Outcome, bool) {
	for i, n := range outcomeNames {
		if n == name {
			return Outcome(i), true
		}
	}
	return 0, false
}

// Outcomes lists every tag in declaration order.
func Outcomes() []Outcome {
	out := make([]Outcome, len(outcomeNames))
	for i := range outcomeNames {
		out[i] = Outcome(i)
	}
	return out
}

// MoveRequest asks for one move in one session. It is consumed by a single pipeline run.
type MoveRequest struct {
	SessionID int64
	PlayerID  int64
	Move      string
}

// MoveResponse carries the outcome tag and a displayable description.
type MoveResponse struct {
	Outcome     Outcome
	Description string
}

func (r MoveResponse) OK() bool { return r.Outcome == OutcomeValidMove }
