package stream

import (
	"bytes"
	"context"
	"errors"
	"image"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/capture"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/protocol"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/transport"
)

type fakeConn struct {
	state transport.State
	sent  []*protocol.Message
	fail  bool
}

func (c *fakeConn) State() transport.State { return c.state }

func (c *fakeConn) Send(m *protocol.Message) bool {
	if c.fail || c.state != transport.StateOpen {
		return false
	}
	c.sent = append(c.sent, m)
	return true
}

type fakeDevice struct {
	ready    chan struct{}
	closed   int
	err      error
	startErr error
	blank    bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{ready: make(chan struct{})}
}

func (d *fakeDevice) Source() string         { return "fake" }
func (d *fakeDevice) Ready() <-chan struct{} { return d.ready }
func (d *fakeDevice) Err() error             { return d.startErr }
func (d *fakeDevice) Close() error           { d.closed++; return nil }

func (d *fakeDevice) Frame() (image.Image, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.blank {
		return nil, nil
	}
	return image.NewRGBA(image.Rect(0, 0, 64, 48)), nil
}

func opener(dev capture.Device, err error) capture.Opener {
	return func(string) (capture.Device, error) {
		if err != nil {
			return nil, err
		}
		return dev, nil
	}
}

// newArmed returns a started, ready streamer on an open connection.
func newArmed(t *testing.T, interval time.Duration) (*Streamer, *fakeConn, *fakeDevice) {
	t.Helper()
	conn := &fakeConn{state: transport.StateOpen}
	dev := newFakeDevice()
	s := New(Config{MinInterval: interval}, conn, WithOpener(opener(dev, nil)))

	ready, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	close(dev.ready)
	<-ready
	if ok, err := s.Arm(); !ok || err != nil {
		t.Fatalf("Arm() = %v, %v", ok, err)
	}
	return s, conn, dev
}

func ms(n int) time.Time {
	return time.Unix(1000, 0).Add(time.Duration(n) * time.Millisecond)
}

func TestStreamer_SendsDataURLFrame(t *testing.T) {
	s, conn, _ := newArmed(t, 100*time.Millisecond)

	if got := s.Tick(ms(0)); got != Sent {
		t.Fatalf("Tick() = %s, want sent", got)
	}
	if len(conn.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(conn.sent))
	}
	m := conn.sent[0]
	if m.Type != protocol.TypeVideoFrame || !strings.HasPrefix(m.Frame, "data:image/jpeg;base64,") {
		t.Fatalf("sent %s %.30q, want video_frame data URL", m.Type, m.Frame)
	}
	if !s.InFlight() || !s.LastSent().Equal(ms(0)) {
		t.Fatalf("InFlight=%v LastSent=%v after send", s.InFlight(), s.LastSent())
	}
}

// Frame sent at t=0 is never acked before t=250ms; nothing else goes out
// until the ack, then the next tick sends.
func TestStreamer_CreditBlocksUntilAck(t *testing.T) {
	s, conn, _ := newArmed(t, 100*time.Millisecond)

	if got := s.Tick(ms(0)); got != Sent {
		t.Fatalf("Tick(0) = %s", got)
	}
	for _, at := range []int{50, 100, 150, 200} {
		if got := s.Tick(ms(at)); got != InFlight {
			t.Fatalf("Tick(%d) = %s, want in_flight", at, got)
		}
	}
	if !s.Ack(protocol.TypeVideoProcessed, "", ms(250)) {
		t.Fatal("Ack() = false with a frame in flight")
	}
	if got := s.Tick(ms(260)); got != Sent {
		t.Fatalf("Tick(260) = %s, want sent", got)
	}
	if len(conn.sent) != 2 {
		t.Fatalf("sent %d frames, want 2", len(conn.sent))
	}
}

func TestStreamer_AtMostOneInFlight(t *testing.T) {
	tests := []struct {
		name     string
		tick     time.Duration
		ackDelay time.Duration
	}{
		{name: "fast ticks slow acks", tick: 5 * time.Millisecond, ackDelay: 370 * time.Millisecond},
		{name: "slow ticks fast acks", tick: 150 * time.Millisecond, ackDelay: 10 * time.Millisecond},
		{name: "ticks equal acks", tick: 100 * time.Millisecond, ackDelay: 100 * time.Millisecond},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, conn, _ := newArmed(t, 100*time.Millisecond)
			start := ms(0)
			outstanding := 0
			var ackAt time.Time

			for now := start; now.Before(start.Add(5 * time.Second)); now = now.Add(tc.tick) {
				if outstanding == 1 && !now.Before(ackAt) {
					s.Ack(protocol.TypeVideoProcessed, "", now)
					outstanding = 0
				}
				before := len(conn.sent)
				s.Tick(now)
				if len(conn.sent) > before {
					outstanding++
					ackAt = now.Add(tc.ackDelay)
				}
				if outstanding > 1 {
					t.Fatalf("%d frames outstanding at %v", outstanding, now.Sub(start))
				}
			}
			if len(conn.sent) == 0 {
				t.Fatal("no frames sent")
			}
		})
	}
}

func TestStreamer_RateBound(t *testing.T) {
	const interval = 100 * time.Millisecond
	s, conn, _ := newArmed(t, interval)

	window := 2 * time.Second
	for at := time.Duration(0); at < window; at += 7 * time.Millisecond {
		now := ms(0).Add(at)
		s.Tick(now)
		s.Ack(protocol.TypeVideoProcessed, "", now)
	}

	limit := int(math.Ceil(float64(window) / float64(interval)))
	if n := len(conn.sent); n > limit {
		t.Fatalf("sent %d frames in %v, want <= %d", n, window, limit)
	}
	if n := len(conn.sent); n < limit-1 {
		t.Fatalf("sent %d frames in %v, want about %d", n, window, limit)
	}
}

func TestStreamer_Gates(t *testing.T) {
	t.Run("inactive", func(t *testing.T) {
		s := New(Config{}, &fakeConn{state: transport.StateOpen})
		if got := s.Tick(ms(0)); got != Inactive {
			t.Fatalf("Tick() = %s, want inactive", got)
		}
	})

	t.Run("not ready", func(t *testing.T) {
		conn := &fakeConn{state: transport.StateOpen}
		s := New(Config{}, conn, WithOpener(opener(newFakeDevice(), nil)))
		if _, err := s.Start(context.Background()); err != nil {
			t.Fatal(err)
		}
		if got := s.Tick(ms(0)); got != NotReady {
			t.Fatalf("Tick() = %s, want not_ready", got)
		}
	})

	t.Run("disconnected", func(t *testing.T) {
		s, conn, _ := newArmed(t, 100*time.Millisecond)
		conn.state = transport.StateClosed
		if got := s.Tick(ms(0)); got != Disconnected {
			t.Fatalf("Tick() = %s, want disconnected", got)
		}
	})

	t.Run("rate", func(t *testing.T) {
		s, _, _ := newArmed(t, 100*time.Millisecond)
		s.Tick(ms(0))
		s.Ack(protocol.TypeVideoProcessed, "", ms(10))
		if got := s.Tick(ms(50)); got != RateLimited {
			t.Fatalf("Tick(50) = %s, want rate", got)
		}
		if got := s.Tick(ms(100)); got != Sent {
			t.Fatalf("Tick(100) = %s, want sent", got)
		}
	})

	t.Run("capture failure keeps credit free", func(t *testing.T) {
		s, _, dev := newArmed(t, 100*time.Millisecond)
		dev.err = errors.New("sensor glitch")
		if got := s.Tick(ms(0)); got != CaptureFailed {
			t.Fatalf("Tick() = %s, want capture_failed", got)
		}
		if s.InFlight() {
			t.Fatal("credit taken for a frame that was never sent")
		}
	})

	t.Run("encode failure is logged and keeps credit free", func(t *testing.T) {
		var buf bytes.Buffer
		conn := &fakeConn{state: transport.StateOpen}
		dev := newFakeDevice()
		dev.blank = true
		s := New(Config{MinInterval: 100 * time.Millisecond}, conn,
			WithOpener(opener(dev, nil)),
			WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
		if _, err := s.Start(context.Background()); err != nil {
			t.Fatal(err)
		}
		close(dev.ready)
		s.Arm()

		if got := s.Tick(ms(0)); got != EncodeFailed {
			t.Fatalf("Tick() = %s, want encode_failed", got)
		}
		if s.InFlight() || len(conn.sent) != 0 {
			t.Fatal("a frame that failed to encode took the credit")
		}
		if !strings.Contains(buf.String(), "F010") {
			t.Errorf("log = %q, want F010", buf.String())
		}
	})

	t.Run("send failure keeps credit and token", func(t *testing.T) {
		s, conn, _ := newArmed(t, 100*time.Millisecond)
		conn.fail = true
		if got := s.Tick(ms(0)); got != SendFailed {
			t.Fatalf("Tick() = %s, want send_failed", got)
		}
		conn.fail = false
		if got := s.Tick(ms(1)); got != Sent {
			t.Fatalf("Tick() after failed send = %s, want sent", got)
		}
	})
}

func TestStreamer_ErrorAckReleasesCredit(t *testing.T) {
	s, _, _ := newArmed(t, 100*time.Millisecond)
	s.Tick(ms(0))
	if !s.Ack(protocol.TypeError, "No face detected", ms(30)) {
		t.Fatal("error ack did not release the credit")
	}
	if s.Ack(protocol.TypeError, "late", ms(40)) {
		t.Fatal("second ack released a credit that was not held")
	}
}

func TestStreamer_StartFailures(t *testing.T) {
	for _, want := range []error{capture.ErrPermissionDenied, capture.ErrDeviceNotFound, capture.ErrDeviceBusy} {
		t.Run(want.Error(), func(t *testing.T) {
			err := &capture.DeviceError{Source: "fake", Op: "open", Err: want}
			s := New(Config{}, &fakeConn{state: transport.StateOpen}, WithOpener(opener(nil, err)))
			if _, got := s.Start(context.Background()); !errors.Is(got, want) {
				t.Fatalf("Start() error = %v, want %v", got, want)
			}
			if s.Active() {
				t.Fatal("Active() = true after failed Start")
			}
		})
	}
}

func TestStreamer_StopIsIdempotent(t *testing.T) {
	s, conn, dev := newArmed(t, 100*time.Millisecond)
	s.Tick(ms(0))

	s.Stop()
	s.Stop()
	if dev.closed != 1 {
		t.Fatalf("device closed %d times, want 1", dev.closed)
	}
	if s.InFlight() || s.Active() {
		t.Fatalf("InFlight=%v Active=%v after Stop", s.InFlight(), s.Active())
	}
	if got := s.Tick(ms(500)); got != Inactive {
		t.Fatalf("Tick() after Stop = %s, want inactive", got)
	}
	if len(conn.sent) != 1 {
		t.Fatalf("sent %d frames, want 1", len(conn.sent))
	}
	if ok, err := s.Arm(); ok || err != nil {
		t.Fatalf("Arm() after Stop = %v, %v", ok, err)
	}
}

func TestStreamer_ArmReleasesFailedDevice(t *testing.T) {
	conn := &fakeConn{state: transport.StateOpen}
	dev := newFakeDevice()
	dev.startErr = &capture.DeviceError{Source: "fake", Op: "load", Err: capture.ErrDeviceNotReady}
	s := New(Config{MinInterval: 100 * time.Millisecond}, conn, WithOpener(opener(dev, nil)))

	ready, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	close(dev.ready)
	<-ready

	ok, err := s.Arm()
	if ok || !errors.Is(err, capture.ErrDeviceNotReady) {
		t.Fatalf("Arm() = %v, %v, want false, ErrDeviceNotReady", ok, err)
	}
	if s.Active() {
		t.Error("Active() = true after a failed Arm")
	}
	if dev.closed != 1 {
		t.Errorf("device closed %d times, want 1", dev.closed)
	}
	if got := s.Tick(ms(500)); got != Inactive {
		t.Errorf("Tick() = %s, want inactive", got)
	}
	if len(conn.sent) != 0 {
		t.Errorf("sent %d frames from an unusable device", len(conn.sent))
	}
}

func TestStreamer_RestartResetsCredit(t *testing.T) {
	s, _, dev := newArmed(t, 100*time.Millisecond)
	s.Tick(ms(0))

	if _, err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("Start() while active error = %v", err)
	}
	s.Stop()

	dev.ready = make(chan struct{})
	if _, err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.InFlight() {
		t.Fatal("credit held after restart")
	}
}

func TestStreamer_DisconnectDropsCredit(t *testing.T) {
	s, conn, _ := newArmed(t, 100*time.Millisecond)
	s.Tick(ms(0))

	conn.state = transport.StateClosed
	s.Disconnected()
	if s.InFlight() {
		t.Fatal("credit survived disconnect")
	}
	if !s.Active() {
		t.Fatal("disconnect released the device")
	}

	conn.state = transport.StateOpen
	if got := s.Tick(ms(3000)); got != Sent {
		t.Fatalf("Tick() after reconnect = %s, want sent", got)
	}
}
