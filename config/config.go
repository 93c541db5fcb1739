// Package config reads pouchd's process configuration from environment
// variables (spec.md §6). Grounded on
// original_source/server/src/main.rs and its handlers/{tcp,ws}.rs, which
// read the same variable names via env::var with the same defaults; the
// teacher's own cmd/radishd/main.go uses flag instead, predating this
// spec's env-var contract, so this package follows the original rather
// than the teacher.
package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	defaultWALFile = "wal.log"

	defaultTCPHost = "0.0.0.0"
	defaultTCPPort = 6379

	defaultWSHost = "0.0.0.0"
	defaultWSPort = 6389

	defaultEnableTCP = true
	defaultEnableWS  = false
)

// Config is pouchd's resolved process configuration.
type Config struct {
	WALFile string

	EnableTCP bool
	TCPHost   string
	TCPPort   int

	EnableWS bool
	WSHost   string
	WSPort   int
}

// Load resolves Config from the environment, falling back to the
// documented defaults for anything unset or unparsable.
func Load() Config {
	return Config{
		WALFile: envString("WAL_FILE", defaultWALFile),

		EnableTCP: envBool("ENABLE_TCP", defaultEnableTCP),
		TCPHost:   envString("TCP_HOST", defaultTCPHost),
		TCPPort:   envInt("TCP_PORT", defaultTCPPort),

		EnableWS: envBool("ENABLE_WS", defaultEnableWS),
		WSHost:   envString("WS_HOST", defaultWSHost),
		WSPort:   envInt("WS_PORT", defaultWSPort),
	}
}

// TCPAddr returns the "host:port" address TCPServer should bind.
func (c Config) TCPAddr() string {
	return fmt.Sprintf("%s:%d", c.TCPHost, c.TCPPort)
}

// WSAddr returns the "host:port" address WSServer should bind.
func (c Config) WSAddr() string {
	return fmt.Sprintf("%s:%d", c.WSHost, c.WSPort)
}

func envString(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(name string, fallback int) int {
	v, ok := os.LookupEnv(name)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(name string, fallback bool) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
