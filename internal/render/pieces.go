package render

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//go:embed assets/pieces/*.svg
var pieceFiles embed.FS

var (
	whiteFill   = []byte("#f7f3ea")
	whiteStroke = []byte("#2b2b2b")
	blackFill   = []byte("#262421")
	blackStroke = []byte("#d9d4c7")
)

type pieceCacheKey struct {
	piece nchess.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

// pieceImage rasterizes the glyph for piece at size x size pixels.
func pieceImage(piece nchess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}
	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	src, err := pieceSVG(piece)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()
	return img, nil
}

// pieceSVG loads the shape for the piece type and colours it for its side.
func pieceSVG(piece nchess.Piece) ([]byte, error) {
	name := "assets/pieces/" + pieceLetter(piece.Type()) + ".svg"
	data, err := pieceFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read piece asset %s: %w", name, err)
	}
	fill, stroke := whiteFill, whiteStroke
	if piece.Color() == nchess.Black {
		fill, stroke = blackFill, blackStroke
	}
	data = bytes.ReplaceAll(data, []byte("STROKE"), stroke)
	data = bytes.ReplaceAll(data, []byte("FILL"), fill)
	return data, nil
}

func pieceLetter(t nchess.PieceType) string {
	switch t {
	case nchess.King:
		return "K"
	case nchess.Queen:
		return "Q"
	case nchess.Rook:
		return "R"
	case nchess.Bishop:
		return "B"
	case nchess.Knight:
		return "N"
	default:
		return "P"
	}
}
