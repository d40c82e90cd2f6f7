// Package config loads the server's runtime options from flags and
// environment variables, following the same flag-then-env-override
// pattern as the teacher's signaling config loader.
package config

import (
	"flag"
	"net"
	"os"
	"strconv"
)

// Config holds every option in the specification's configuration table.
type Config struct {
	BindAddr           string
	AdvertiseAddr      string
	LivenessTimeoutSec int
	ReaperTickSec      int
	RingDelayMS        int
	AuditBusCapacity   int
	MaxDatagramBytes   int
	LogLevel           string
}

// Load parses flags, then applies environment variable overrides, then
// returns the resolved Config. Flag parsing happens here rather than in
// main so tests can call Load against a scratch FlagSet indirectly via
// LoadFromArgs.
func Load() *Config {
	return LoadFromArgs(os.Args[1:])
}

// LoadFromArgs is Load with an explicit argument list, split out for
// testability.
func LoadFromArgs(args []string) *Config {
	fs := flag.NewFlagSet("sipcore", flag.ContinueOnError)

	cfg := &Config{}
	fs.StringVar(&cfg.BindAddr, "bind", "0.0.0.0:5060", "UDP bind address")
	fs.StringVar(&cfg.AdvertiseAddr, "advertise", "", "address to advertise in SDP o=/c= lines (auto-detected if not set)")
	fs.IntVar(&cfg.LivenessTimeoutSec, "liveness-timeout-sec", 30, "user offline threshold, seconds")
	fs.IntVar(&cfg.ReaperTickSec, "reaper-tick-sec", 5, "liveness reaper period, seconds")
	fs.IntVar(&cfg.RingDelayMS, "ring-delay-ms", 2000, "ringing->established delay, milliseconds")
	fs.IntVar(&cfg.AuditBusCapacity, "audit-bus-capacity", 1024, "audit bus per-subscriber depth")
	fs.IntVar(&cfg.MaxDatagramBytes, "max-datagram-bytes", 2048, "UDP read cap, bytes; oversize datagrams are truncated")
	fs.StringVar(&cfg.LogLevel, "loglevel", "info", "log level (debug, info, warn, error)")

	// fs.Parse intentionally ignores a failure here the same way the
	// teacher's Load does: an unparseable flag falls through to the
	// defaults above rather than killing startup.
	_ = fs.Parse(args)

	applyEnvOverrides(cfg)
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BIND_ADDR"); v != "" {
		cfg.BindAddr = v
	}
	if v := os.Getenv("ADVERTISE_ADDR"); v != "" {
		cfg.AdvertiseAddr = v
	}
	if cfg.AdvertiseAddr == "" || !isValidAddress(cfg.AdvertiseAddr) {
		cfg.AdvertiseAddr = primaryInterfaceIP()
	}
	if v := os.Getenv("LIVENESS_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LivenessTimeoutSec = n
		}
	}
	if v := os.Getenv("REAPER_TICK_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ReaperTickSec = n
		}
	}
	if v := os.Getenv("RING_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RingDelayMS = n
		}
	}
	if v := os.Getenv("AUDIT_BUS_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AuditBusCapacity = n
		}
	}
	if v := os.Getenv("MAX_DATAGRAM_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxDatagramBytes = n
		}
	}
	if v := os.Getenv("LOGLEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// isValidAddress reports whether addr is a literal IP or a resolvable
// hostname, the same check the teacher's config loader runs before
// trusting an operator-supplied advertise address.
func isValidAddress(addr string) bool {
	if ip := net.ParseIP(addr); ip != nil {
		return true
	}
	if ips, err := net.LookupIP(addr); err == nil && len(ips) > 0 {
		return true
	}
	return false
}

// primaryInterfaceIP picks the first non-loopback, up interface's IPv4
// address, falling back to localhost if none is found.
func primaryInterfaceIP() string {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "127.0.0.1"
	}
	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}
	return "127.0.0.1"
}
