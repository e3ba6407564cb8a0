package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/snapkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   library database path
//	-f string   remote folder name
//	-i int      sync interval in seconds
//	-w string   import directory
//	-l string   status server address
//
// Note: args are filtered with flagx.FilterArgs first, so flags meant for
// other components (like -c) do not interfere.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-d", "-f", "-i", "-w", "-l"})

	fs := flag.NewFlagSet("snapkeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "library database path")
	fs.StringVar(&cfg.RemoteFolder, "f", cfg.RemoteFolder, "remote folder name")
	syncInterval := fs.Int("i", int(cfg.SyncInterval.Seconds()), "sync interval (in seconds)")
	fs.StringVar(&cfg.ImportDir, "w", cfg.ImportDir, "directory to watch for new photos")
	fs.StringVar(&cfg.HTTPAddr, "l", cfg.HTTPAddr, "status server address")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
	return nil
}
