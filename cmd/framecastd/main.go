package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/lanikai/framecast/internal/config"
	"github.com/lanikai/framecast/internal/logging"
	"github.com/lanikai/framecast/internal/server"
)

// Populated via -ldflags="-X main.GitRevisionId=...".
var GitRevisionId string

var log = logging.DefaultLogger.WithTag("framecastd")

// version displays information and exits successfully (GNU convention)
func version() {
	fmt.Println("framecastd", GitRevisionId)
	fmt.Println("Copyright 2019 Lanikai Labs LLC. All rights reserved.")
}

func main() {
	flag.Usage = help
	flag.Parse()

	if flagHelp {
		help()
		os.Exit(0)
	}
	if flagVersion {
		version()
		os.Exit(0)
	}

	cfg := config.DefaultServer()
	if flagConfig != "" {
		var err error
		if cfg, err = config.LoadServer(flagConfig); err != nil {
			log.Fatal(err)
		}
	}
	if err := applyFlags(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	if cfg.LogLevel != "" {
		if err := logging.Configure(cfg.LogLevel); err != nil {
			log.Fatal(err)
		}
	}

	srv := server.New(cfg)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	log.Info("Streaming %s every %v", cfg.Dataset, cfg.Interval)
	if err := serve(srv, sigs); err != nil {
		log.Fatal(err)
	}
}

// serve runs srv until a signal arrives, then returns once every session has
// ended.
func serve(srv *server.Server, sigs <-chan os.Signal) error {
	drained := make(chan struct{})
	go func() {
		sig := <-sigs
		log.Info("Received %v, shutting down", sig)
		if err := srv.Shutdown(); err != nil {
			log.Warn("Shutdown: %v", err)
		}
		close(drained)
	}()

	if err := srv.ListenAndServe(); err != server.ErrServerClosed {
		return err
	}
	<-drained
	return nil
}

// applyFlags overrides configuration values with flags given explicitly on
// the command line.
func applyFlags(cfg *config.Server) error {
	if flag.CommandLine.Changed("port") {
		if flagPort <= 0 || flagPort > 65535 {
			return fmt.Errorf("invalid port %d", flagPort)
		}
		cfg.Listen = ":" + strconv.Itoa(flagPort)
	}
	if flag.CommandLine.Changed("listen") {
		cfg.Listen = flagListen
	}
	if flag.CommandLine.Changed("dataset") {
		cfg.Dataset = flagDataset
	}
	if flag.CommandLine.Changed("http") {
		cfg.HTTP = flagHTTP
	}
	if flag.CommandLine.Changed("interval") {
		cfg.Interval = flagInterval
	}
	if flag.CommandLine.Changed("max-sessions") {
		cfg.MaxSessions = flagMaxSessions
	}
	if flag.CommandLine.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	return nil
}

