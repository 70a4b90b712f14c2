// Command symbolize resolves `<unknown>` frames of a crash log read from
// stdin against the given binary and writes the result to stdout.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/l1jgo/stagescript/internal/symbolize"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: symbolize <path to binary> < crash.log")
		os.Exit(2)
	}
	if err := run(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(binary string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if os.Getenv("SYMBOLIZE_DEBUG") != "" {
		zapCfg.Level.SetLevel(zap.DebugLevel)
	}
	log, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	return symbolize.Filter(ctx, os.Stdin, os.Stdout, symbolize.Addr2Line{Binary: binary}, log)
}
