package imaging

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// dHash geometry: a 9x8 grayscale thumbnail yields 8 horizontal gradients
// per row, 64 bits total.
const (
	hashWidth  = 9
	hashHeight = 8
)

// PerceptualHash reduces an image to a 64-bit difference hash encoded as 16
// lowercase hex characters: bit (y,x) is set when pixel (x,y) is brighter
// than its right neighbor. When the payload cannot be decoded the hash
// degrades to the hex of the first 8 raw bytes, a known-weak fallback that
// keeps identical files matching but carries no perceptual meaning.
func PerceptualHash(raw []byte) string {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return fallbackHash(raw)
	}

	gray := image.NewGray(image.Rect(0, 0, hashWidth, hashHeight))
	xdraw.ApproxBiLinear.Scale(gray, gray.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	var bits uint64
	for y := 0; y < hashHeight; y++ {
		for x := 0; x < hashWidth-1; x++ {
			bits <<= 1
			if gray.GrayAt(x, y).Y > gray.GrayAt(x+1, y).Y {
				bits |= 1
			}
		}
	}
	return fmt.Sprintf("%016x", bits)
}

func fallbackHash(raw []byte) string {
	if len(raw) > 8 {
		raw = raw[:8]
	}
	h := hex.EncodeToString(raw)
	for len(h) < 16 {
		h += "0"
	}
	return h
}
