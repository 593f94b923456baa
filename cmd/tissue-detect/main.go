package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/histoplex/tissue-detect/internal/cytomine"
	"github.com/histoplex/tissue-detect/internal/descriptor"
	"github.com/histoplex/tissue-detect/internal/logging"
	"github.com/histoplex/tissue-detect/internal/runner"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	manifest, err := descriptor.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "broken build: %v\n", err)
		os.Exit(1)
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("tissue-detect %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Printf("tissue-detect - %s\n", manifest.Description)
			fmt.Println()
			fmt.Println("Usage: tissue-detect [options]")
			fmt.Println()
			fmt.Println("Options (defined by descriptor.json):")
			fmt.Print(manifest.FlagSet().FlagUsages())
			fmt.Println()
			fmt.Println("Credentials may also come from the environment:")
			fmt.Println("  CYTOMINE_HOST, CYTOMINE_PUBLIC_KEY, CYTOMINE_PRIVATE_KEY")
			return
		}
	}

	params, err := manifest.Resolve(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "tissue-detect: %v\n", err)
		os.Exit(2)
	}

	log := logging.Setup(params.LogLevel)
	log.Info().
		Str("version", Version).
		Str("host", params.Host).
		Int64("project", params.ProjectID).
		Msg("tissue-detect starting")

	client, err := cytomine.New(params.Host, params.PublicKey, params.PrivateKey,
		cytomine.WithLogger(log))
	if err != nil {
		log.Error().Err(err).Msg("failed to create platform client")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runner.New(client, params, log).Run(ctx); err != nil {
		log.Error().Err(err).Msg("job failed")
		os.Exit(1)
	}
}
