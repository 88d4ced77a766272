package capture

import (
	"image"
	"image/color"
	"math"
	"sync"
)

// synthetic renders a moving marker on a plain background. Each Frame call
// advances the marker one step along a sine wave so downstream detection sees
// motion.
type synthetic struct {
	source string
	w, h   int
	ready  chan struct{}

	mu     sync.Mutex
	step   int
	closed bool
}

func newSynthetic(source string, w, h int) *synthetic {
	s := &synthetic{source: source, w: w, h: h, ready: make(chan struct{})}
	close(s.ready)
	return s
}

func (s *synthetic) Source() string         { return s.source }
func (s *synthetic) Ready() <-chan struct{} { return s.ready }
func (s *synthetic) Err() error             { return nil }

func (s *synthetic) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrDeviceClosed
	}
	s.step++

	img := image.NewRGBA(image.Rect(0, 0, s.w, s.h))
	bg := color.RGBA{R: 112, G: 197, B: 206, A: 255}
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = bg.R, bg.G, bg.B, bg.A
	}

	cx := s.w / 2
	cy := s.h/2 + int(float64(s.h/3)*math.Sin(float64(s.step)/15))
	r := s.h / 8
	face := color.RGBA{R: 240, G: 200, B: 160, A: 255}
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r && image.Pt(x, y).In(img.Rect) {
				img.SetRGBA(x, y, face)
			}
		}
	}
	return img, nil
}

func (s *synthetic) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	release(s.source)
	return nil
}
