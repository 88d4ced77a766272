package capture

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"

	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/protocol"
	"golang.org/x/image/draw"
)

// Encoder scales frames to a fixed size and compresses them as JPEG.
type Encoder struct {
	Width   int
	Height  int
	Quality int
}

// DefaultEncoder returns the 300x225, quality 80 encoder.
func DefaultEncoder() *Encoder {
	return &Encoder{Width: 300, Height: 225, Quality: 80}
}

// Encode scales img to the encoder size and returns JPEG bytes.
func (e *Encoder) Encode(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, errors.New("capture: nil frame")
	}
	dst := image.NewRGBA(image.Rect(0, 0, e.Width, e.Height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	buf.Grow(e.Width * e.Height / 4)
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: e.Quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeDataURL encodes img and wraps it as a data URL. It also returns the
// JPEG size in bytes.
func (e *Encoder) EncodeDataURL(img image.Image) (string, int, error) {
	b, err := e.Encode(img)
	if err != nil {
		return "", 0, err
	}
	return protocol.EncodeDataURL(protocol.MIMEJPEG, b), len(b), nil
}

// DecodeDataURL decodes an image carried in a data URL, such as a
// video_processed frame.
func DecodeDataURL(s string) (image.Image, error) {
	_, data, err := protocol.DecodeDataURL(s)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}
