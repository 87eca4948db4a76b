// Package agent holds the layered configuration for both dawlink processes:
// defaults, then an optional YAML file, then environment variables, then
// command line flags, each layer overriding the previous one.
package agent

import (
	"flag"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	commoncfg "github.com/soundops/dawlink/core/config"
)

// Config holds configuration for the agent-facing server: where to reach the
// host listener, call deadlines, the status endpoint, and the cache layers.
type Config struct {
	ConfigFile      string
	LogLevel        string
	BridgeAddr      string
	DialTimeout     time.Duration
	CallTimeout     time.Duration
	MutatingTimeout time.Duration
	StatusAddr      string
	AllowedOrigins  []string
	CacheDir        string
	SeedCacheDir    string
}

// BindFlags populates the struct with defaults from environment variables and
// binds command line flags so main can call flag.Parse().
func (c *Config) BindFlags() {
	c.ConfigFile = commoncfg.GetEnv("CONFIG_FILE", commoncfg.DefaultConfigPath("agent.yaml"))
	c.LogLevel = commoncfg.GetEnv("LOG_LEVEL", "info")
	c.BridgeAddr = bridgeAddrFromEnv()
	c.DialTimeout = durationEnv("DIAL_TIMEOUT", 3*time.Second)
	c.CallTimeout = durationEnv("CALL_TIMEOUT", 12*time.Second)
	c.MutatingTimeout = durationEnv("MUTATING_TIMEOUT", 30*time.Second)
	c.StatusAddr = normalizeAddr(commoncfg.GetEnv("STATUS_ADDR", "127.0.0.1:9878"))
	if v := commoncfg.GetEnv("ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitList(v)
	}
	c.CacheDir = commoncfg.GetEnv("CACHE_DIR", commoncfg.DefaultCacheDir())
	c.SeedCacheDir = commoncfg.GetEnv("SEED_CACHE_DIR", "")

	flag.StringVar(&c.ConfigFile, "config", c.ConfigFile, "agent config file path")
	flag.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log verbosity (all, debug, info, warn, error, fatal, none)")
	flag.StringVar(&c.BridgeAddr, "bridge-addr", c.BridgeAddr, "host listener address (host:port)")
	flag.DurationVar(&c.DialTimeout, "dial-timeout", c.DialTimeout, "timeout for establishing the bridge connection")
	flag.DurationVar(&c.CallTimeout, "call-timeout", c.CallTimeout, "deadline for read-only bridge calls")
	flag.DurationVar(&c.MutatingTimeout, "mutating-timeout", c.MutatingTimeout, "deadline for state-mutating bridge calls")
	flag.StringVar(&c.StatusAddr, "status-addr", c.StatusAddr, "status/metrics HTTP listen address or port (disabled when empty)")
	flag.Func("allowed-origins", "comma separated CORS origins for the status endpoint", func(v string) error {
		c.AllowedOrigins = splitList(v)
		return nil
	})
	flag.StringVar(&c.CacheDir, "cache-dir", c.CacheDir, "writable browser cache directory")
	flag.StringVar(&c.SeedCacheDir, "seed-cache-dir", c.SeedCacheDir, "read-only seed cache directory layered under the user cache")
}

// LoadFile populates the config from a YAML file. Fields already set remain
// unless overwritten by corresponding entries in the file.
func (c *Config) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, c)
}

// HostConfig holds configuration for the host-side daemon: the listen
// address for the command channel and an optional browser fixture file.
type HostConfig struct {
	ConfigFile  string
	LogLevel    string
	ListenAddr  string
	BrowserFile string
}

// BindFlags populates the struct with defaults from environment variables and
// binds command line flags so main can call flag.Parse().
func (c *HostConfig) BindFlags() {
	c.ConfigFile = commoncfg.GetEnv("CONFIG_FILE", commoncfg.DefaultConfigPath("host.yaml"))
	c.LogLevel = commoncfg.GetEnv("LOG_LEVEL", "info")
	c.ListenAddr = bridgeAddrFromEnv()
	c.BrowserFile = commoncfg.GetEnv("BROWSER_FILE", "")

	flag.StringVar(&c.ConfigFile, "config", c.ConfigFile, "host config file path")
	flag.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log verbosity (all, debug, info, warn, error, fatal, none)")
	flag.StringVar(&c.ListenAddr, "listen-addr", c.ListenAddr, "command channel listen address (host:port)")
	flag.StringVar(&c.BrowserFile, "browser-file", c.BrowserFile, "JSON file of browser items to serve instead of the built-in set")
}

// LoadFile populates the config from a YAML file.
func (c *HostConfig) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, c)
}

// bridgeAddrFromEnv assembles the command channel address from the HOST and
// PORT variables both processes share.
func bridgeAddrFromEnv() string {
	host := commoncfg.GetEnv("HOST", "127.0.0.1")
	port := commoncfg.GetEnv("PORT", "9877")
	return net.JoinHostPort(host, port)
}

// durationEnv reads a duration variable given in seconds ("12" or "0.5").
func durationEnv(name string, def time.Duration) time.Duration {
	v := commoncfg.GetEnv(name, "")
	if v == "" {
		return def
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(f * float64(time.Second))
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}

// normalizeAddr accepts a bare port ("9878") or a full address.
func normalizeAddr(addr string) string {
	if addr != "" && !strings.Contains(addr, ":") {
		return ":" + addr
	}
	return addr
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
