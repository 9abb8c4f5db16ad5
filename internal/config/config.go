// Package config handles the parsing and validation of application configuration
// from command-line arguments, environment variables and an optional INI file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/woozymasta/minequery/internal/logger"
	"github.com/woozymasta/minequery/internal/vars"
)

// AnyHost is the legacy spelling of "listen on every interface".
const AnyHost = "ANY"

// Config represents the complete application flags configuration.
type Config struct {
	// betteralign:ignore

	Server  Server        `group:"Query Server Options" namespace:"server" env-namespace:"MINEQUERY_SERVER"`
	Details Details       `group:"Details Options" namespace:"details" env-namespace:"MINEQUERY_DETAILS"`
	Game    Game          `group:"Game Server Options" namespace:"game" env-namespace:"MINEQUERY_GAME"`
	Updater Updater       `group:"Updater Options" namespace:"updater" env-namespace:"MINEQUERY_UPDATER"`
	A2S     A2S           `group:"A2S Options" namespace:"a2s" env-namespace:"MINEQUERY_A2S"`
	GeoIP   GeoIP         `group:"GeoIP Options" namespace:"geoip" env-namespace:"MINEQUERY_GEOIP"`
	Storage Storage       `group:"Storage Options" namespace:"db" env-namespace:"MINEQUERY_DB"`
	Logger  logger.Config `group:"Logger Options" namespace:"log" env-namespace:"MINEQUERY_LOG"`

	ConfigFile string `short:"c" long:"config" env:"MINEQUERY_CONFIG" description:"Path to INI configuration file, written with defaults when missing" no-ini:"true"`
	Version    bool   `short:"v" long:"version" description:"Print version and build info" no-ini:"true"`

	// created is set when Load wrote a fresh configuration file.
	created bool
}

// Server holds the query server configuration.
type Server struct {
	// betteralign:ignore

	Disable     bool          `long:"disable" env:"DISABLE" description:"Do not start the query server"`
	IP          string        `long:"ip" env:"IP" description:"Query server bind address, blank means the game server address"`
	Port        int           `long:"port" env:"PORT" description:"Query server port" default:"25566"`
	PortOutside int           `long:"port-outside" env:"PORT_OUTSIDE" description:"Game port reported to clients instead of the real one (NAT, port forwarding)"`
	ReadTimeout time.Duration `long:"read-timeout" env:"READ_TIMEOUT" description:"Deadline for reading the request line, 0 waits forever" default:"0s"`
}

// Details holds descriptive server information.
type Details struct {
	ServerName string `long:"server-name" env:"SERVER_NAME" description:"Server label reported to directories" default:"My Server"`
}

// Game describes the host game server the metrics are read from.
type Game struct {
	// betteralign:ignore

	IP          string `long:"ip" env:"IP" description:"Game server bind address, blank means any"`
	Port        int    `long:"port" env:"PORT" description:"Game server port" default:"25565"`
	StatusFile  string `long:"status-file" env:"STATUS_FILE" description:"YAML status document maintained by the game server" default:"status.yml"`
	FakePlayers int    `long:"fake-players" hidden:"true" no-ini:"true"`
}

// Updater holds heartbeat configuration for external server directories.
type Updater struct {
	// betteralign:ignore

	Enable      bool              `long:"enable" env:"ENABLE" description:"Periodically submit server status to directories"`
	Interval    time.Duration     `long:"interval" env:"INTERVAL" description:"Heartbeat interval" default:"5s"`
	Timeout     time.Duration     `long:"timeout" env:"TIMEOUT" description:"Submission request timeout" default:"10s"`
	URLs        map[string]string `long:"url" env:"URLS" env-delim:"," description:"Directory submission URL as name:url"`
	Keys        map[string]string `long:"key" env:"KEYS" env-delim:"," description:"Directory submission key as name:key"`
	MinInterval map[string]string `long:"min-interval" env:"MIN_INTERVALS" env-delim:"," description:"Minimal delay between submissions to one directory as name:duration"`
}

// A2S holds Source Query probe configuration.
type A2S struct {
	// betteralign:ignore

	Port       int           `long:"port" env:"PORT" description:"Game server A2S query port, 0 disables the probe"`
	Timeout    time.Duration `long:"timeout" env:"TIMEOUT" description:"Query timeout" default:"3s"`
	BufferSize uint16        `long:"buffer-size" env:"BUFFER_SIZE" description:"Response body buffer size" default:"1400"`
}

// GeoIP holds MaxMind GeoIP configuration.
type GeoIP struct {
	// betteralign:ignore

	Path     string        `short:"g" long:"path" env:"PATH" description:"Path to MMDB file, blank disables country lookup"`
	URL      string        `long:"url" env:"URL" description:"URL to download MMDB" default:"https://git.io/GeoLite2-Country.mmdb"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Update interval check" default:"24h"`
	CacheTTL time.Duration `long:"cache-ttl" env:"CACHE_TTL" description:"How long a country lookup is remembered" default:"10m"`
}

// Storage holds submission history database configuration.
type Storage struct {
	// betteralign:ignore

	Path    string        `short:"d" long:"path" env:"PATH" description:"Path to SQLite submission history, blank disables history"`
	Prune   time.Duration `long:"prune" description:"Delete history older than the duration and exit" no-ini:"true"`
	History int           `long:"history" description:"Print the given number of latest submissions and exit" no-ini:"true"`
}

// Service is one resolved directory service entry.
type Service struct {
	Name        string
	URL         string
	Key         string
	MinInterval time.Duration
}

// Parse reads the configuration from flags, environment variables and the INI file.
// It terminates the application if the configuration is invalid or if the help flag is invoked.
func Parse() *Config {
	cfg, err := Load(os.Args[1:])
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
			// already printed by the parser
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print()
		os.Exit(0)
	}

	return cfg
}

// Load parses args on top of the INI file named by --config.
// A missing file is created from the effective values first, so later runs
// start from the persisted defaults. Command-line values win over the file.
func Load(args []string) (*Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	parser.NamespaceDelimiter = "-"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if cfg.ConfigFile != "" {
		ini := flags.NewIniParser(parser)

		_, err := os.Stat(cfg.ConfigFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			if err := ini.WriteFile(cfg.ConfigFile, flags.IniIncludeDefaults|flags.IniIncludeComments); err != nil {
				return nil, fmt.Errorf("failed to write config file %s: %w", cfg.ConfigFile, err)
			}
			cfg.created = true
		case err != nil:
			return nil, fmt.Errorf("failed to stat config file %s: %w", cfg.ConfigFile, err)
		}

		if err := ini.ParseFile(cfg.ConfigFile); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfg.ConfigFile, err)
		}

		if _, err := parser.ParseArgs(args); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Created reports whether Load wrote a new configuration file.
func (c *Config) Created() bool {
	return c.created
}

// Validate checks value ranges and directory service consistency.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid query server port %d", c.Server.Port)
	}
	if c.Server.PortOutside < 0 || c.Server.PortOutside > 65535 {
		return fmt.Errorf("invalid outside port %d", c.Server.PortOutside)
	}
	if c.Game.Port < 1 || c.Game.Port > 65535 {
		return fmt.Errorf("invalid game server port %d", c.Game.Port)
	}
	if c.A2S.Port < 0 || c.A2S.Port > 65535 {
		return fmt.Errorf("invalid A2S port %d", c.A2S.Port)
	}
	if c.Updater.Enable && c.Updater.Interval <= 0 {
		return fmt.Errorf("updater interval must be > 0, got %s", c.Updater.Interval)
	}

	_, err := c.Services()
	return err
}

// QueryHost resolves the query server bind host: blank inherits the game
// server address, and a blank or ANY result means every interface.
func (c *Config) QueryHost() string {
	host := strings.TrimSpace(c.Server.IP)
	if host == "" {
		host = strings.TrimSpace(c.Game.IP)
	}
	if strings.EqualFold(host, AnyHost) {
		return ""
	}

	return host
}

// ReportedPort returns the game port announced to clients and directories.
func (c *Config) ReportedPort() int {
	if c.Server.PortOutside > 0 {
		return c.Server.PortOutside
	}

	return c.Game.Port
}

// Services returns the configured directories sorted by name.
// Every key and min-interval entry must name a directory that has a URL.
func (c *Config) Services() ([]Service, error) {
	for name := range c.Updater.Keys {
		if _, ok := c.Updater.URLs[name]; !ok {
			return nil, fmt.Errorf("updater key for %q has no matching url", name)
		}
	}
	for name := range c.Updater.MinInterval {
		if _, ok := c.Updater.URLs[name]; !ok {
			return nil, fmt.Errorf("updater min-interval for %q has no matching url", name)
		}
	}

	services := make([]Service, 0, len(c.Updater.URLs))
	for name, url := range c.Updater.URLs {
		if strings.TrimSpace(url) == "" {
			continue
		}

		svc := Service{Name: name, URL: url, Key: c.Updater.Keys[name]}
		if raw, ok := c.Updater.MinInterval[name]; ok {
			d, err := time.ParseDuration(raw)
			if err != nil || d < 0 {
				return nil, fmt.Errorf("invalid min-interval %q for %q", raw, name)
			}
			svc.MinInterval = d
		}

		services = append(services, svc)
	}

	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })

	return services, nil
}
