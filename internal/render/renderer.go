// Package render draws a session's board as a PNG.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Options tweaks a rendering.
type Options struct {
	// Flip draws the board from Black's side.
	Flip bool
	// Caption is printed above the board when set.
	Caption string
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, board *nchess.Board, opts Options) ([]byte, error)
}

type pngRenderer struct {
	squareSize int
}

// NewRenderer returns a renderer drawing squareSize-pixel squares. Values
// below 16 use 64.
func NewRenderer(squareSize int) BoardRenderer {
	if squareSize < 16 {
		squareSize = 64
	}
	return &pngRenderer{squareSize: squareSize}
}

const (
	sideMargin   = 24
	captionSpace = 28
)

var (
	lightSquare     = color.RGBA{233, 207, 163, 255}
	darkSquare      = color.RGBA{187, 136, 96, 255}
	backgroundColor = color.RGBA{28, 31, 46, 255}
	textColor       = color.RGBA{236, 239, 255, 255}
)

var (
	ranksTopDown   = []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
	filesLeftRight = []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}
)

func (r *pngRenderer) RenderPNG(ctx context.Context, board *nchess.Board, opts Options) ([]byte, error) {
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	size := r.squareSize
	boardSize := size * 8
	top := sideMargin
	if opts.Caption != "" {
		top += captionSpace
	}
	origin := image.Point{X: sideMargin, Y: top}
	img := image.NewRGBA(image.Rect(0, 0, boardSize+sideMargin*2, boardSize+top+sideMargin))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	ranks, files := orientation(opts.Flip)
	squares := board.SquareMap()
	for row, rank := range ranks {
		for col, file := range files {
			sq := nchess.NewSquare(file, rank)
			x := origin.X + col*size
			y := origin.Y + row*size
			cell := image.Rect(x, y, x+size, y+size)
			imagedraw.Draw(img, cell, image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)

			piece := squares[sq]
			if piece == nchess.NoPiece {
				continue
			}
			glyph, err := pieceImage(piece, size)
			if err != nil {
				return nil, err
			}
			imagedraw.Draw(img, cell, glyph, image.Point{}, imagedraw.Over)
		}
	}
	drawCoordinates(img, ranks, files, size, origin)
	if opts.Caption != "" {
		drawText(img, opts.Caption, origin.X, sideMargin+13)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func orientation(flip bool) ([]nchess.Rank, []nchess.File) {
	if !flip {
		return ranksTopDown, filesLeftRight
	}
	ranks := make([]nchess.Rank, len(ranksTopDown))
	files := make([]nchess.File, len(filesLeftRight))
	for i := range ranksTopDown {
		ranks[i] = ranksTopDown[len(ranksTopDown)-1-i]
		files[i] = filesLeftRight[len(filesLeftRight)-1-i]
	}
	return ranks, files
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func drawCoordinates(dst imagedraw.Image, ranks []nchess.Rank, files []nchess.File, size int, origin image.Point) {
	ascent := basicfont.Face7x13.Metrics().Ascent.Ceil()
	for row, rank := range ranks {
		y := origin.Y + row*size + size/2 + ascent/2
		drawCentered(dst, rank.String(), origin.X-sideMargin/2, y)
	}
	bottom := origin.Y + len(ranks)*size + ascent + 4
	for col, file := range files {
		drawCentered(dst, file.String(), origin.X+col*size+size/2, bottom)
	}
}

func drawCentered(dst imagedraw.Image, text string, centerX, baseline int) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(textColor), Face: basicfont.Face7x13}
	width := d.MeasureString(text).Ceil()
	d.Dot = fixed.P(centerX-width/2, baseline)
	d.DrawString(text)
}

func drawText(dst imagedraw.Image, text string, x, baseline int) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(textColor), Face: basicfont.Face7x13, Dot: fixed.P(x, baseline)}
	d.DrawString(text)
}
