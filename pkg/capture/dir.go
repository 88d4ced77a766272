package capture

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// dirDevice replays still images from a directory, one per Frame call.
type dirDevice struct {
	source string
	files  []string
	ready  chan struct{}

	mu      sync.Mutex
	frames  []image.Image
	next    int
	loadErr error
	closed  bool
}

func openDir(source, dir string) (*dirDevice, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, ErrDeviceNotFound
		case errors.Is(err, fs.ErrPermission):
			return nil, ErrPermissionDenied
		}
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, ErrDeviceNotFound
	}
	sort.Strings(files)

	d := &dirDevice{source: source, files: files, ready: make(chan struct{})}
	go d.load()
	return d, nil
}

// load decodes every file, then signals readiness.
func (d *dirDevice) load() {
	defer close(d.ready)

	frames := make([]image.Image, 0, len(d.files))
	var loadErr error
	for _, path := range d.files {
		img, err := decodeFile(path)
		if err != nil {
			loadErr = err
			continue
		}
		frames = append(frames, img)
	}

	d.mu.Lock()
	d.frames = frames
	if len(frames) == 0 {
		d.loadErr = &DeviceError{Source: d.source, Op: "load",
			Err: fmt.Errorf("%w: no decodable images: %v", ErrDeviceNotReady, loadErr)}
	}
	d.mu.Unlock()
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func (d *dirDevice) Source() string         { return d.source }
func (d *dirDevice) Ready() <-chan struct{} { return d.ready }

func (d *dirDevice) Err() error {
	select {
	case <-d.ready:
	default:
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loadErr
}

func (d *dirDevice) Frame() (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDeviceClosed
	}
	if d.loadErr != nil {
		return nil, d.loadErr
	}
	if len(d.frames) == 0 {
		return nil, ErrDeviceNotReady
	}
	img := d.frames[d.next%len(d.frames)]
	d.next++
	return img, nil
}

func (d *dirDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	release(d.source)
	return nil
}
