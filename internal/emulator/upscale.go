package emulator

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
)

// Upscale enlarges a PNG by an integer factor with nearest-neighbour
// sampling, which keeps pixel-art edges sharp for the model. A factor <= 1
// returns the input unchanged.
func Upscale(src []byte, factor int) ([]byte, error) {
	if factor <= 1 {
		return src, nil
	}
	img, err := png.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	out := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	for y := 0; y < out.Rect.Dy(); y++ {
		sy := y / factor
		for x := 0; x < out.Rect.Dx(); x++ {
			sx := x / factor
			si := rgba.PixOffset(sx, sy)
			di := out.PixOffset(x, y)
			copy(out.Pix[di:di+4], rgba.Pix[si:si+4])
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}
