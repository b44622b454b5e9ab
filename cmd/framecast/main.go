package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/lanikai/framecast/internal/client"
	"github.com/lanikai/framecast/internal/config"
	"github.com/lanikai/framecast/internal/logging"
	"github.com/lanikai/framecast/internal/quality"
)

var log = logging.DefaultLogger.WithTag("framecast")

var (
	flagConfig  string
	flagAddress string
	flagPort    int
	flagQuality string
	flagNoColor bool
	flagHelp    bool
)

func init() {
	flag.StringVarP(&flagConfig, "config", "c", "", "YAML configuration file")
	flag.StringVarP(&flagAddress, "ip", "i", "127.0.0.1", "Server address")
	flag.IntVarP(&flagPort, "port", "p", config.DefaultPort, "Server port")
	flag.StringVarP(&flagQuality, "quality", "q", "LD", "Initial quality: LD, MD or HD")
	flag.BoolVarP(&flagNoColor, "no-color", "", false, "Disable colored output")
	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: framecast [-i ADDRESS] [-p PORT] [-q LD|MD|HD]")
	fmt.Fprintln(os.Stderr)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if flagHelp {
		usage()
		os.Exit(0)
	}
	if flagNoColor {
		logging.DisableColor()
	}

	cfg := config.DefaultClient()
	if flagConfig != "" {
		var err error
		if cfg, err = config.LoadClient(flagConfig); err != nil {
			log.Fatal(err)
		}
	}
	if flag.CommandLine.Changed("ip") || flag.CommandLine.Changed("port") || flagConfig == "" {
		cfg.Address = net.JoinHostPort(flagAddress, strconv.Itoa(flagPort))
	}
	if flag.CommandLine.Changed("quality") || flagConfig == "" {
		level, err := quality.Parse(flagQuality)
		if err != nil {
			log.Fatalf("%v: %q", err, flagQuality)
		}
		cfg.Quality = level
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	c, err := client.Dial(ctx, cfg.Address, cfg.Quality)
	cancel()
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	log.Info("Connected to %s at %v", cfg.Address, cfg.Quality)
	if err := client.NewMenu(c, os.Stdin, os.Stdout).Run(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}
