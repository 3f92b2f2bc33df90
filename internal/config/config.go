package config

import (
	"time"

	"github.com/vovakirdan/ircwire/internal/proto"
)

// Config holds server and client configuration values.
type Config struct {
	// Host is the interface the server binds, or the host the client
	// dials. "*" binds all interfaces.
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`

	// HTTPAddr enables the operational HTTP surface (health, stats) when
	// non-empty.
	HTTPAddr          string        `mapstructure:"http_addr" yaml:"http_addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// DatabasePath enables chat history persistence when non-empty.
	DatabasePath   string `mapstructure:"database_path" yaml:"database_path"`
	HistoryWorkers int    `mapstructure:"history_workers" yaml:"history_workers"`

	// PollInterval bounds every readiness poll in the accept, listen, and
	// client loops; it is also the worst-case shutdown latency per loop.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`

	// ConnectTimeout bounds the client's non-blocking connect resolution.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Host:              "localhost",
		Port:              proto.DefaultPort,
		HTTPAddr:          "",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "",
		HistoryWorkers:    2,
		PollInterval:      time.Second,
		ConnectTimeout:    5 * time.Second,
		LogLevel:          "info",
	}
}
