package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/internal/config"
	ferrors "github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/internal/errors"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/archive"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/client"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/debugserver"
	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/pkg/metrics"
)

type playOptions struct {
	dir       string
	origin    string
	device    string
	rate      float64
	noCamera  bool
	noDisplay bool
	debugAddr string
	bucket    string
	logLevel  string
	logFormat string
	traceFile string
}

func playCmd() *cobra.Command {
	var opts playOptions

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Connect to the game server and play",
		Long: `Connect to the game server and play.

Keys (press Enter after each):
  s  start        p  pause/resume   r  restart
  j  jump         c  camera on/off  q  quit

Examples:
  faceflap play
  faceflap play --origin https://game.example.com
  faceflap play --device dir:./frames --debug-addr :9090
  faceflap play --no-camera`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.dir)
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if opts.traceFile != "" {
				shutdown, err := setupTracing(opts.traceFile)
				if err != nil {
					return err
				}
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := shutdown(ctx); err != nil {
						warn("flushing traces: %v", err)
					}
				}()
			}
			return runPlay(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.dir, "dir", "d", ".", "Directory containing faceflap.json")
	f.StringVar(&opts.origin, "origin", "", "Game server origin (default from faceflap.json)")
	f.StringVar(&opts.device, "device", "", `Capture source: "synthetic", "dir:<path>" or "none"`)
	f.Float64Var(&opts.rate, "rate", 0, "Target captures per second")
	f.BoolVar(&opts.noCamera, "no-camera", false, "Do not start the camera; use keyboard control")
	f.BoolVar(&opts.noDisplay, "no-display", false, "Do not draw the game in the terminal")
	f.StringVar(&opts.debugAddr, "debug-addr", "", "Listen address for the debug HTTP server")
	f.StringVar(&opts.bucket, "archive-bucket", "", "S3 bucket for game-over archives")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")
	f.StringVar(&opts.traceFile, "trace-file", "", "Write OpenTelemetry spans as JSON to this file")

	return cmd
}

// apply copies explicitly set flags over the file configuration.
func (o *playOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("origin") {
		cfg.Server.Origin = o.origin
	}
	if f.Changed("device") {
		cfg.Capture.Device = o.device
	}
	if f.Changed("rate") {
		if o.rate <= 0 {
			return ferrors.New("F080").WithDetail(fmt.Sprintf("--rate must be positive, got %v", o.rate))
		}
		cfg.Capture.Rate = o.rate
	}
	if o.noCamera {
		cfg.Capture.AutoStart = false
	}
	if o.noDisplay {
		cfg.Display.Enabled = false
	}
	if f.Changed("debug-addr") {
		cfg.Debug.Addr = o.debugAddr
	}
	if f.Changed("archive-bucket") {
		cfg.Archive.Bucket = o.bucket
	}
	if f.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if f.Changed("log-format") {
		cfg.Log.Format = o.logFormat
	}
	return nil
}

func runPlay(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	sessionCfg, err := client.ConfigFrom(cfg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	opts := []client.Option{
		client.WithLogger(logger),
		client.WithMetrics(metrics.New(metrics.WithRegistry(registry))),
		client.WithTracer(metrics.NewTracer("")),
	}
	if cfg.Display.Enabled {
		opts = append(opts, client.WithOutput(out))
	}
	if cfg.Archive.Bucket != "" {
		s3Client := archive.NewClient(archive.ClientConfig{Region: cfg.Archive.Region, Endpoint: cfg.Archive.Endpoint})
		arch, err := archive.New(s3Client, cfg.Archive.Bucket, cfg.Archive.Prefix, logger)
		if err != nil {
			return err
		}
		opts = append(opts, client.WithArchiver(arch))
	}

	session, err := client.New(sessionCfg, opts...)
	if err != nil {
		return err
	}
	defer session.Close()

	if !cfg.Display.Enabled {
		printBanner()
		info("server  %s", sessionCfg.Transport.Endpoint)
		info("camera  %s", cfg.Capture.Device)
		fmt.Println()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Debug.Addr != "" {
		dbg := debugserver.New(cfg.Debug.Addr, session, registry, logger)
		go func() {
			if err := dbg.Run(ctx); err != nil {
				logger.Error("debug server failed", "error", err)
			}
		}()
	}

	go readKeys(ctx, in, session, cancel)

	if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if !cfg.Display.Enabled {
		success("bye")
	}
	return nil
}

var keyCommands = map[string]client.Command{
	"s": client.CmdStart,
	"p": client.CmdPause,
	"r": client.CmdRestart,
	"j": client.CmdJump,
	" ": client.CmdJump,
	"c": client.CmdCameraToggle,
}

// commander is the part of client.Session the key reader drives.
type commander interface {
	Do(ctx context.Context, cmd client.Command) error
}

// readKeys turns input lines into session commands. Only "q" ends the
// session; at EOF reading stops and the session keeps running until a signal
// arrives, so headless runs stay controllable through the debug server.
func readKeys(ctx context.Context, in io.Reader, session commander, quit context.CancelFunc) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.ToLower(sc.Text())
		key := strings.TrimSpace(line)
		if key == "" && line != "" {
			key = " "
		}
		if key == "q" {
			quit()
			return
		}
		cmd, ok := keyCommands[key]
		if !ok {
			continue
		}
		if err := session.Do(ctx, cmd); err != nil {
			if errors.Is(err, client.ErrSessionClosed) || ctx.Err() != nil {
				return
			}
			slog.Debug("command failed", "command", cmd, "error", err)
		}
	}
	if err := sc.Err(); err != nil {
		slog.Debug("key input closed", "error", err)
	}
}
