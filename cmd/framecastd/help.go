package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"

	"github.com/lanikai/framecast/internal/config"
)

var (
	flagConfig      string
	flagPort        int
	flagListen      string
	flagDataset     string
	flagHTTP        string
	flagInterval    time.Duration
	flagMaxSessions int
	flagLogLevel    string
	flagHelp        bool
	flagVersion     bool
)

func init() {
	flag.StringVarP(&flagConfig, "config", "c", "", "YAML configuration file")
	flag.IntVarP(&flagPort, "port", "p", config.DefaultPort, "TCP port")
	flag.StringVarP(&flagListen, "listen", "l", "", "TCP listen address")
	flag.StringVarP(&flagDataset, "dataset", "d", config.DefaultDataset, "Frame dataset")
	flag.StringVarP(&flagHTTP, "http", "", "", "HTTP status address")
	flag.DurationVarP(&flagInterval, "interval", "", time.Second, "Delay between batches")
	flag.IntVarP(&flagMaxSessions, "max-sessions", "m", 0, "Concurrent session limit")
	flag.StringVarP(&flagLogLevel, "log-level", "", "", "Logging directives")

	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
	flag.BoolVarP(&flagVersion, "version", "v", false, "Print version information and exit")
}

const helpString = `Bitrate-adaptive frame streaming server

Usage: framecastd [OPTION]...

Network:
  -p, --port=NUM         Listen on all interfaces at port NUM (default: 8080)
  -l, --listen=ADDR      Listen address, overrides --port
      --http=ADDR        Serve /metrics, /sessions and the /stream WebSocket
                         endpoint at ADDR (default: disabled)
  -m, --max-sessions=NUM Limit concurrent TCP sessions (default: unlimited)

Stream:
  -d, --dataset=SPEC     Frame dataset, a file path or seq:FIRST-LAST
                         (default: video.txt)
      --interval=DUR     Delay between batches (default: 1s)

Miscellaneous:
  -c, --config=FILE      Read settings from a YAML file; flags take precedence
      --log-level=DIRS   Logging directives, e.g. info,stream=debug
                         (default: $LOGLEVEL)
  -h, --help             Prints this help message and exits
  -v, --version          Prints version information and exits

Quality is chosen by each client when it connects: LD keeps every 100th
frame, MD every 10th and HD every frame. Clients send pause, play and stop
at any time.`

// Help information is printed and program exits
func help() {
	r := color.New(color.FgRed)
	y := color.New(color.FgYellow)
	b := color.New(color.FgCyan)

	//   __                                              _
	//  / _| _ __  __ _  _ __ ___    ___  ___  __ _  ___| |_
	// | |_ | '__|/ _` || '_ ` _ \  / _ \/ __|/ _` |/ __| __|
	// |  _|| |  | (_| || | | | | ||  __/ (__| (_| |\__ \ |_
	// |_|  |_|   \__,_||_| |_| |_| \___|\___|\__,_||___/\__|

	r.Printf("  __ ")
	y.Printf("       ")
	b.Printf("                ")
	r.Printf("                  ")
	y.Println("    _   ")

	r.Printf(" / _|")
	y.Printf(" _ __ ")
	b.Printf(" __ _  _ __ ___ ")
	r.Printf("   ___  ___  __ _ ")
	y.Println(" ___| |_ ")

	r.Printf("| |_ ")
	y.Printf("| '__|")
	b.Printf("/ _` || '_ ` _ \\")
	r.Printf("  / _ \\/ __|/ _` |")
	y.Println("/ __| __|")

	r.Printf("|  _|")
	y.Printf("| |  ")
	b.Printf("| (_| || | | | | |")
	r.Printf("|  __/ (__| (_| |")
	y.Println("\\__ \\ |_ ")

	r.Printf("|_|  ")
	y.Printf("|_|   ")
	b.Printf("\\__,_||_| |_| |_|")
	r.Printf(" \\___|\\___|\\__,_|")
	y.Println("|___/\\__|")

	fmt.Println(helpString)
}
