// Package config holds framecast server and client settings. Values come from
// defaults, then an optional YAML file, then command line flags.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/lanikai/framecast/internal/quality"
)

const (
	DefaultPort    = 8080
	DefaultDataset = "video.txt"
)

// Server contains configuration for framecastd.
type Server struct {
	// TCP address for stream sessions, e.g. ":8080".
	Listen string `yaml:"listen"`

	// Optional HTTP address serving /metrics, /sessions and the /stream
	// WebSocket endpoint. Empty disables it.
	HTTP string `yaml:"http"`

	// Source spec of the dataset, opened fresh for each session. See
	// source.Open.
	Dataset string `yaml:"dataset"`

	// Delay between batches.
	Interval time.Duration `yaml:"interval"`

	// Bound on writing one batch. Zero disables it.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// TCP_USER_TIMEOUT for accepted connections (Linux only). Zero leaves
	// the system default.
	UserTimeout time.Duration `yaml:"tcp_user_timeout"`

	// Time allowed for the peer to send its quality selection.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`

	// Maximum number of concurrent TCP sessions. Zero means unlimited.
	MaxSessions int `yaml:"max_sessions"`

	// Number of finished sessions reported by /sessions.
	History int `yaml:"history"`

	// LOGLEVEL-style directives, e.g. "info,stream=debug".
	LogLevel string `yaml:"log_level"`
}

// Client contains configuration for the interactive client.
type Client struct {
	Address string        `yaml:"address"`
	Quality quality.Level `yaml:"quality"`
}

func DefaultServer() Server {
	return Server{
		Listen:           ":8080",
		Dataset:          DefaultDataset,
		Interval:         time.Second,
		HandshakeTimeout: 10 * time.Second,
		History:          64,
	}
}

func DefaultClient() Client {
	return Client{
		Address: "127.0.0.1:8080",
		Quality: quality.Low,
	}
}

// LoadServer reads a YAML file on top of the defaults.
func LoadServer(path string) (Server, error) {
	c := DefaultServer()
	if err := load(path, &c); err != nil {
		return c, err
	}
	return c, c.Validate()
}

// LoadClient reads a YAML file on top of the defaults.
func LoadClient(path string) (Client, error) {
	c := DefaultClient()
	err := load(path, &c)
	return c, err
}

func load(path string, v interface{}) error {
	d, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading config")
	}
	if err := yaml.Unmarshal(d, v); err != nil {
		return errors.Wrapf(err, "parsing %s", path)
	}
	return nil
}

// Validate checks for values that would prevent the server from running.
func (c *Server) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	if c.Dataset == "" {
		return errors.New("dataset is required")
	}
	if c.Interval < 0 {
		return errors.Errorf("negative interval %v", c.Interval)
	}
	if c.MaxSessions < 0 {
		return errors.Errorf("negative max_sessions %d", c.MaxSessions)
	}
	return nil
}
