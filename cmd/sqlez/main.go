// sqlez is the command-line front end of the sqlez store.
//
// It brings migration domains up to date, runs ad-hoc SQL, copies stores
// with the online backup API, manages the built-in key-value store and
// follows lifecycle events published over MQTT.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on Ctrl+C or SIGTERM so long-running commands can stop cleanly
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1) //nolint:gocritic // cancel is only a signal handler
	}
}

// run executes one command line, separated from main for testability.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	defer a.teardown()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// getConfigPath returns the configuration file path and whether it was
// chosen explicitly. The --config flag wins over SQLEZ_CONFIG, which wins
// over the default.
func getConfigPath(flag string) (string, bool) {
	if flag != "" {
		return flag, true
	}
	if path := os.Getenv("SQLEZ_CONFIG"); path != "" {
		return path, true
	}
	return defaultConfigPath, false
}
