package render

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	nchess "github.com/corentings/chess/v2"
)

func startBoard(t *testing.T) *nchess.Board {
	t.Helper()
	opt, err := nchess.FEN("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1")
	if err != nil {
		t.Fatalf("FEN: %v", err)
	}
	return nchess.NewGame(opt).Position().Board()
}

func TestRenderPNG(t *testing.T) {
	r := NewRenderer(32)
	raw, err := r.RenderPNG(context.Background(), startBoard(t), Options{Caption: "Session 1 - Black to move"})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 32*8+2*sideMargin || b.Dy() != 32*8+2*sideMargin+captionSpace {
		t.Fatalf("unexpected size %v", b)
	}
}

func TestRenderFlipDiffers(t *testing.T) {
	r := NewRenderer(24)
	board := startBoard(t)
	white, err := r.RenderPNG(context.Background(), board, Options{})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	black, err := r.RenderPNG(context.Background(), board, Options{Flip: true})
	if err != nil {
		t.Fatalf("RenderPNG flipped: %v", err)
	}
	if bytes.Equal(white, black) {
		t.Fatalf("flipped rendering should differ")
	}
}

func TestRenderNilBoardAndCancelled(t *testing.T) {
	r := NewRenderer(0)
	if _, err := r.RenderPNG(context.Background(), nil, Options{}); err == nil {
		t.Fatalf("expected error for nil board")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.RenderPNG(ctx, startBoard(t), Options{}); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

func TestEveryPieceRasterizes(t *testing.T) {
	for _, p := range []nchess.Piece{
		nchess.WhiteKing, nchess.WhiteQueen, nchess.WhiteRook, nchess.WhiteBishop, nchess.WhiteKnight, nchess.WhitePawn,
		nchess.BlackKing, nchess.BlackQueen, nchess.BlackRook, nchess.BlackBishop, nchess.BlackKnight, nchess.BlackPawn,
	} {
		img, err := pieceImage(p, 40)
		if err != nil {
			t.Fatalf("pieceImage(%v): %v", p, err)
		}
		if img.Bounds().Dx() != 40 {
			t.Fatalf("pieceImage(%v) size = %v", p, img.Bounds())
		}
	}
}
