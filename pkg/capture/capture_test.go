package capture

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpen_Synthetic(t *testing.T) {
	dev, err := Open("synthetic")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer dev.Close()

	select {
	case <-dev.Ready():
	default:
		t.Fatal("synthetic device should be ready immediately")
	}

	a, err := dev.Frame()
	if err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	if a.Bounds().Dx() != 640 || a.Bounds().Dy() != 480 {
		t.Errorf("Frame() bounds = %v, want 640x480", a.Bounds())
	}
}

func TestOpen_BusyUntilClosed(t *testing.T) {
	dev, err := Open("synthetic")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	_, err = Open("synthetic")
	if !errors.Is(err, ErrDeviceBusy) {
		t.Fatalf("second Open() error = %v, want ErrDeviceBusy", err)
	}
	var de *DeviceError
	if !errors.As(err, &de) || de.Op != "open" || de.Source != "synthetic" {
		t.Fatalf("error = %#v, want DeviceError{open synthetic}", err)
	}

	if err := dev.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := dev.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if _, err := dev.Frame(); !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("Frame() after Close error = %v, want ErrDeviceClosed", err)
	}

	again, err := Open("synthetic")
	if err != nil {
		t.Fatalf("Open() after Close error = %v", err)
	}
	again.Close()
}

func TestOpen_NotFound(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{name: "none", source: "none"},
		{name: "unknown scheme", source: "v4l2:/dev/video9"},
		{name: "missing dir", source: "dir:" + filepath.Join(t.TempDir(), "nope")},
		{name: "empty dir", source: "dir:" + t.TempDir()},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Open(tc.source)
			if !errors.Is(err, ErrDeviceNotFound) {
				t.Fatalf("Open(%q) error = %v, want ErrDeviceNotFound", tc.source, err)
			}
			// A failed open must not leave the source held.
			if _, err := Open(tc.source); errors.Is(err, ErrDeviceBusy) {
				t.Fatal("failed Open left the source marked busy")
			}
		})
	}
}

func writePNG(t *testing.T, path string, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestOpen_DirCyclesFrames(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), color.RGBA{R: 255, A: 255})
	writePNG(t, filepath.Join(dir, "b.png"), color.RGBA{B: 255, A: 255})
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	dev, err := Open("dir:" + dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer dev.Close()
	<-dev.Ready()
	if err := dev.Err(); err != nil {
		t.Fatalf("Err() = %v, want nil", err)
	}

	reds := 0
	for i := 0; i < 4; i++ {
		img, err := dev.Frame()
		if err != nil {
			t.Fatalf("Frame() error = %v", err)
		}
		r, _, _, _ := img.At(0, 0).RGBA()
		if r > 0 {
			reds++
		}
	}
	if reds != 2 {
		t.Errorf("red frames = %d of 4, want 2 (alternating)", reds)
	}
}

func TestOpen_DirWithoutDecodableImages(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.png"), []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}

	dev, err := Open("dir:" + dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer dev.Close()
	<-dev.Ready()

	err = dev.Err()
	if !errors.Is(err, ErrDeviceNotReady) {
		t.Fatalf("Err() = %v, want ErrDeviceNotReady", err)
	}
	if got := Coded(err).Code; got != "F004" {
		t.Errorf("Coded(Err()).Code = %s, want F004", got)
	}
	if _, err := dev.Frame(); err == nil {
		t.Error("Frame() error = nil on an unusable device")
	}
}

func TestEncoder_DataURL(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 640, 480))
	enc := DefaultEncoder()

	u, n, err := enc.EncodeDataURL(src)
	if err != nil {
		t.Fatalf("EncodeDataURL() error = %v", err)
	}
	if !strings.HasPrefix(u, "data:image/jpeg;base64,") {
		t.Fatalf("EncodeDataURL() prefix = %q", u[:30])
	}
	if n <= 0 {
		t.Fatalf("size = %d, want > 0", n)
	}

	img, err := DecodeDataURL(u)
	if err != nil {
		t.Fatalf("DecodeDataURL() error = %v", err)
	}
	if img.Bounds().Dx() != 300 || img.Bounds().Dy() != 225 {
		t.Errorf("decoded bounds = %v, want 300x225", img.Bounds())
	}
}

func TestEncoder_NilFrame(t *testing.T) {
	if _, err := DefaultEncoder().Encode(nil); err == nil {
		t.Fatal("Encode(nil) error = nil")
	}
}

func TestCoded(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{err: &DeviceError{Source: "x", Op: "open", Err: ErrPermissionDenied}, code: "F001"},
		{err: &DeviceError{Source: "x", Op: "open", Err: ErrDeviceNotFound}, code: "F002"},
		{err: &DeviceError{Source: "x", Op: "open", Err: ErrDeviceBusy}, code: "F003"},
		{err: &DeviceError{Source: "x", Op: "load", Err: ErrDeviceNotReady}, code: "F004"},
		{err: errors.New("boom"), code: "F004"},
	}
	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			got := Coded(tc.err)
			if got.Code != tc.code {
				t.Errorf("Coded(%v).Code = %s, want %s", tc.err, got.Code, tc.code)
			}
			if !errors.Is(got, tc.err) && !errors.Is(got, errors.Unwrap(tc.err)) {
				t.Errorf("Coded(%v) does not wrap the cause", tc.err)
			}
		})
	}
	if Coded(nil) != nil {
		t.Error("Coded(nil) != nil")
	}
}
