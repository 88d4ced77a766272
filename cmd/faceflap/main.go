package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	ferrors "github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┌─┐┌─┐┌─┐┌─┐┬  ┌─┐┌─┐
  ├┤ ├─┤│  ├┤ ├┤ │  ├─┤├─┘
  └  ┴ ┴└─┘└─┘└  ┴─┘┴ ┴┴
`

func main() {
	if err := rootCmd().Execute(); err != nil {
		ferrors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "faceflap",
		Short: "Play the head-controlled flappy game from the terminal",
		Long: `faceflap is the client for the face-controlled flappy game server.

It keeps a websocket open to the game server, streams camera frames
for head tracking, and draws the authoritative game state:

  • Automatic reconnect after any disconnect
  • One frame in flight at a time, rate limited
  • Keyboard fallback when no camera is available
  • Optional debug HTTP server with metrics`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		playCmd(),
		configCmd(),
		versionCmd(),
	)
	return root
}

// printBanner prints the ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
