// Package main is the entry point for the spelld language server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dshills/spelld/internal/logging"
	"github.com/dshills/spelld/internal/resolve"
	"github.com/dshills/spelld/internal/server"
	"github.com/dshills/spelld/internal/speller"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

type options struct {
	logLevel         string
	logFormat        string
	logFile          string
	dictionaries     stringList
	customDictionary string
	configs          stringList
	watch            bool
}

// stringList collects repeatable flags.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func run() int {
	opts := parseFlags()

	log, closer, err := logging.New(logging.Config{
		Level:  opts.logLevel,
		Format: opts.logFormat,
		File:   opts.logFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logging: %v\n", err)
		return 1
	}
	if closer != nil {
		defer closer.Close()
	}

	sp, err := speller.New()
	if err != nil {
		log.Error().Err(err).Msg("initializing speller")
		return 1
	}
	for _, path := range opts.dictionaries {
		if err := sp.AddDictionaryFile(path); err != nil {
			log.Error().Err(err).Str("path", path).Msg("loading dictionary")
			return 1
		}
		log.Info().Str("path", path).Msg("dictionary loaded")
	}

	resolver := resolve.New(resolve.WithLogger(logging.Component(log, "resolve")))
	for _, path := range opts.configs {
		resolver.RegisterConfigurationFile(path)
		log.Info().Str("path", path).Msg("configuration file registered")
	}

	srvOpts := []server.Option{
		server.WithLogger(log),
		server.WithVersion(version),
		server.WithSpeller(sp),
		server.WithResolver(resolver),
	}
	if opts.customDictionary != "" {
		if err := sp.AddDictionaryFile(opts.customDictionary); err != nil {
			// A missing custom dictionary is created on first use.
			if !errors.Is(err, os.ErrNotExist) {
				log.Error().Err(err).Str("path", opts.customDictionary).Msg("loading custom dictionary")
				return 1
			}
		}
		srvOpts = append(srvOpts, server.WithDictionaryPath(opts.customDictionary))
	}
	if opts.watch {
		srvOpts = append(srvOpts, server.WithConfigWatching())
	}

	srv, err := server.New(srvOpts...)
	if err != nil {
		log.Error().Err(err).Msg("initializing server")
		return 1
	}

	// The editor owns this process through stdio; a signal means it is
	// gone and there is no one left to finish the handshake with.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info().Str("signal", sig.String()).Msg("shutting down on signal")
		os.Exit(0)
	}()

	log.Info().Str("version", version).Msg("spelld listening on stdio")

	err = srv.Run(context.Background(), os.Stdin, os.Stdout)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, server.ErrExitWithoutShutdown):
		log.Warn().Msg("client exited without shutdown")
		return 1
	default:
		log.Error().Err(err).Msg("server terminated")
		return 1
	}
}

func parseFlags() options {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error, off)")
	flag.StringVar(&opts.logFormat, "log-format", "json", "Log format (json or console)")
	flag.StringVar(&opts.logFile, "log-file", "", "Write logs to a file instead of stderr")
	flag.Var(&opts.dictionaries, "dictionary", "Word list to load at startup (repeatable)")
	flag.StringVar(&opts.customDictionary, "custom-dictionary", "", "Writable dictionary file offered by code actions")
	flag.Var(&opts.configs, "config", "Configuration file to register (repeatable)")
	flag.BoolVar(&opts.watch, "watch", true, "Watch registered configuration files for changes")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "spelld - spell-checking language server\n\n")
		fmt.Fprintf(os.Stderr, "Usage: spelld [options]\n\n")
		fmt.Fprintf(os.Stderr, "The server speaks JSON-RPC 2.0 on stdin/stdout; logs go to stderr.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  spelld -dictionary words.txt\n")
		fmt.Fprintf(os.Stderr, "  spelld -dictionary words.txt -config cspell.json -custom-dictionary custom.txt\n")
		fmt.Fprintf(os.Stderr, "  spelld -log-level debug -log-file /tmp/spelld.log\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("spelld %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	return opts
}
