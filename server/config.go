package server

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Server Configuration
// --------------------------------------------------------------------------

// Config holds all runtime parameters of the server.
type Config struct {
	// Endpoint is the TCP address the server listens on
	Endpoint string
	// ReusePort binds the listener with SO_REUSEPORT
	ReusePort bool
	// TCPNoDelay disables Nagle's algorithm on accepted connections
	TCPNoDelay bool

	// IdleTimeoutMs is how long a silent connection survives
	IdleTimeoutMs int64
	// Workers is the size of the background destruction pool
	Workers int
	// LargeContainer is the member count above which a sorted set is
	// destroyed off-loop
	LargeContainer int
	// MaxExpireWorks bounds TTL expirations per loop iteration
	MaxExpireWorks int

	// MetricsEndpoint is the address of the Prometheus endpoint
	// (empty = disabled)
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// DefaultConfig returns the configuration the server ships with.
func DefaultConfig() Config {
	return Config{
		Endpoint:       "0.0.0.0:1234",
		ReusePort:      false,
		TCPNoDelay:     true,
		IdleTimeoutMs:  5000,
		Workers:        4,
		LargeContainer: 1000,
		MaxExpireWorks: 2000,
		LogLevel:       "info",
	}
}

// String returns a formatted string representation of the configuration
func (c *Config) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Listener")
	addField("Endpoint", c.Endpoint)
	addField("Reuse Port", strconv.FormatBool(c.ReusePort))
	addField("TCP No Delay", strconv.FormatBool(c.TCPNoDelay))

	addSection("Timers")
	addField("Idle Timeout", fmt.Sprintf("%d ms", c.IdleTimeoutMs))
	addField("Expirations per Tick", strconv.Itoa(c.MaxExpireWorks))

	addSection("Background Work")
	addField("Workers", strconv.Itoa(c.Workers))
	addField("Large Container", fmt.Sprintf("%d members", c.LargeContainer))

	if c.MetricsEndpoint != "" {
		addSection("Metrics")
		addField("Endpoint", c.MetricsEndpoint)
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
