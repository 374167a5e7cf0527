package board

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/misaelnieto/itm-2025-soa-u5/internal/domain"
)

// uciPattern covers coordinate notation, which the library only decodes
// against a position.
var uciPattern = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][qrbn]?$`)

var castlingZeros = strings.NewReplacer("0-0-0", "O-O-O", "0-0", "O-O")

// ParseMoveText checks move syntax without a position. UCI is tried first,
// then SAN through nchess.ValidateSAN; castling written with zeros is
// normalized and trailing annotations are dropped.
func ParseMoveText(text string) (Move, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return Move{}, ErrMoveSyntax
	}
	if lower := strings.ToLower(raw); uciPattern.MatchString(lower) {
		return Move{Text: lower, Notation: NotationUCI}, nil
	}
	san := castlingZeros.Replace(strings.TrimRight(raw, "!?"))
	if err := nchess.ValidateSAN(san); err != nil {
		return Move{}, &SyntaxError{Text: raw}
	}
	return Move{Text: san, Notation: NotationSAN}, nil
}

type chessEngine struct{}

// NewEngine returns the corentings/chess backed engine.
func NewEngine() Engine { return chessEngine{} }

func (chessEngine) ParseFEN(fen string) (Board, error) {
	return parseFEN(fen)
}

func (chessEngine) ParseMove(text string) (Move, error) {
	return ParseMoveText(text)
}

func parseFEN(fen string) (*chessBoard, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return nil, fmt.Errorf("parse fen: empty position")
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	return &chessBoard{game: nchess.NewGame(opt)}, nil
}

type chessBoard struct {
	game *nchess.Game
}

func (b *chessBoard) ActiveColor() domain.Color {
	if b.game.Position().Turn() == nchess.Black {
		return domain.Black
	}
	return domain.White
}

func (b *chessBoard) FullMoveNumber() int {
	fields := strings.Fields(b.FEN())
	if len(fields) < 6 {
		return 1
	}
	n, err := strconv.Atoi(fields[5])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func (b *chessBoard) Apply(mv Move) (Board, string, error) {
	// work on a fresh game so the receiver stays untouched
	next, err := parseFEN(b.FEN())
	if err != nil {
		return nil, "", err
	}
	pos := next.game.Position()

	var decoded *nchess.Move
	switch mv.Notation {
	case NotationUCI:
		decoded, err = nchess.UCINotation{}.Decode(pos, mv.Text)
	default:
		decoded, err = nchess.AlgebraicNotation{}.Decode(pos, mv.Text)
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w %s: %v", ErrIllegalMove, mv.Text, err)
	}
	san := nchess.AlgebraicNotation{}.Encode(pos, decoded)
	if err := next.game.Move(decoded, nil); err != nil {
		return nil, "", fmt.Errorf("%w %s: %v", ErrIllegalMove, mv.Text, err)
	}
	return next, san, nil
}

func (b *chessBoard) FEN() string { return b.game.FEN() }

func (b *chessBoard) Draw() string { return b.game.Position().Board().Draw() }

// Position exposes the engine board for renderers that draw squares directly.
func Position(b Board) (*nchess.Board, bool) {
	cb, ok := b.(*chessBoard)
	if !ok {
		return nil, false
	}
	return cb.game.Position().Board(), true
}
