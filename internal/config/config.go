// Package config loads farectl.toml: defaults first, then any key the
// file defines.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/farectl/internal/logging"
	"github.com/danmuck/farectl/internal/transport/remote"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	LogLevel string
	Server   ServerConfig
	Store    StoreConfig
	Reader   ReaderConfig
	Relay    RelayConfig
	Routes   RoutesConfig
}

type ServerConfig struct {
	Addr        string
	CorsOrigins []string
}

type StoreConfig struct {
	Dir string
}

// ReaderConfig selects the remote reader used by `farectl dump --remote`.
type ReaderConfig struct {
	Remote          string
	Name            string
	DialTimeout     time.Duration
	RPCTimeout      time.Duration
	ConnectAttempts int
	// Token is sent to the relay as a bearer token when set.
	Token string
	TLS   remote.TLSConfig
}

type RelayConfig struct {
	Addr string
	// IdleTimeout frees the reader from a session that stopped calling.
	IdleTimeout time.Duration
	// Token, when set, is required from every client.
	Token string
	TLS   remote.TLSConfig
}

// RoutesConfig overrides the embedded bus route table when Path is set.
type RoutesConfig struct {
	Path string
}

func Default() Config {
	return Config{
		LogLevel: "info",
		Server: ServerConfig{
			Addr:        ":9300",
			CorsOrigins: []string{"http://localhost:3000"},
		},
		Store: StoreConfig{Dir: "dumps"},
		Reader: ReaderConfig{
			Name:            "farectl",
			DialTimeout:     5 * time.Second,
			RPCTimeout:      2 * time.Second,
			ConnectAttempts: 3,
		},
		Relay: RelayConfig{
			Addr:        ":9310",
			IdleTimeout: 30 * time.Second,
		},
	}
}

// farectl.toml key mapping.
type fileConfig struct {
	LogLevel string `toml:"log_level"`
	Server   struct {
		Addr        string   `toml:"addr"`
		CorsOrigins []string `toml:"cors_origins"`
	} `toml:"server"`
	Store struct {
		Dir string `toml:"dir"`
	} `toml:"store"`
	Reader struct {
		Remote          string  `toml:"remote"`
		Name            string  `toml:"name"`
		DialTimeout     string  `toml:"dial_timeout"`
		RPCTimeout      string  `toml:"rpc_timeout"`
		ConnectAttempts int     `toml:"connect_attempts"`
		Token           string  `toml:"token"`
		TLS             fileTLS `toml:"tls"`
	} `toml:"reader"`
	Relay struct {
		Addr        string  `toml:"addr"`
		IdleTimeout string  `toml:"idle_timeout"`
		Token       string  `toml:"token"`
		TLS         fileTLS `toml:"tls"`
	} `toml:"relay"`
	Routes struct {
		Path string `toml:"path"`
	} `toml:"routes"`
}

type fileTLS struct {
	Enabled    bool   `toml:"enabled"`
	Mutual     bool   `toml:"mutual"`
	CertFile   string `toml:"cert_file"`
	KeyFile    string `toml:"key_file"`
	CAFile     string `toml:"ca_file"`
	ServerName string `toml:"server_name"`
}

// overlayTLS applies the keys of [section.tls] that the file defines.
func overlayTLS(meta toml.MetaData, section string, raw fileTLS, out *remote.TLSConfig) {
	if meta.IsDefined(section, "tls", "enabled") {
		out.Enabled = raw.Enabled
	}
	if meta.IsDefined(section, "tls", "mutual") {
		out.Mutual = raw.Mutual
	}
	if meta.IsDefined(section, "tls", "cert_file") {
		out.CertFile = strings.TrimSpace(raw.CertFile)
	}
	if meta.IsDefined(section, "tls", "key_file") {
		out.KeyFile = strings.TrimSpace(raw.KeyFile)
	}
	if meta.IsDefined(section, "tls", "ca_file") {
		out.CAFile = strings.TrimSpace(raw.CAFile)
	}
	if meta.IsDefined(section, "tls", "server_name") {
		out.ServerName = strings.TrimSpace(raw.ServerName)
	}
}

// Load overlays path on Default. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %s", ErrInvalid, undecoded[0])
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("server", "addr") {
		cfg.Server.Addr = strings.TrimSpace(raw.Server.Addr)
	}
	if meta.IsDefined("server", "cors_origins") {
		cfg.Server.CorsOrigins = raw.Server.CorsOrigins
	}
	if meta.IsDefined("store", "dir") {
		cfg.Store.Dir = strings.TrimSpace(raw.Store.Dir)
	}
	if meta.IsDefined("reader", "remote") {
		cfg.Reader.Remote = strings.TrimSpace(raw.Reader.Remote)
	}
	if meta.IsDefined("reader", "name") {
		cfg.Reader.Name = strings.TrimSpace(raw.Reader.Name)
	}
	if meta.IsDefined("reader", "dial_timeout") {
		if cfg.Reader.DialTimeout, err = parseDuration("reader.dial_timeout", raw.Reader.DialTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("reader", "rpc_timeout") {
		if cfg.Reader.RPCTimeout, err = parseDuration("reader.rpc_timeout", raw.Reader.RPCTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("reader", "connect_attempts") {
		cfg.Reader.ConnectAttempts = raw.Reader.ConnectAttempts
	}
	if meta.IsDefined("reader", "token") {
		cfg.Reader.Token = strings.TrimSpace(raw.Reader.Token)
	}
	if meta.IsDefined("relay", "addr") {
		cfg.Relay.Addr = strings.TrimSpace(raw.Relay.Addr)
	}
	if meta.IsDefined("relay", "idle_timeout") {
		if cfg.Relay.IdleTimeout, err = parseDuration("relay.idle_timeout", raw.Relay.IdleTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("relay", "token") {
		cfg.Relay.Token = strings.TrimSpace(raw.Relay.Token)
	}
	overlayTLS(meta, "reader", raw.Reader.TLS, &cfg.Reader.TLS)
	overlayTLS(meta, "relay", raw.Relay.TLS, &cfg.Relay.TLS)
	if meta.IsDefined("routes", "path") {
		cfg.Routes.Path = strings.TrimSpace(raw.Routes.Path)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if !logging.ValidLevel(c.LogLevel) {
		return fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("%w: server.addr is required", ErrInvalid)
	}
	if strings.TrimSpace(c.Store.Dir) == "" {
		return fmt.Errorf("%w: store.dir is required", ErrInvalid)
	}
	if strings.TrimSpace(c.Relay.Addr) == "" {
		return fmt.Errorf("%w: relay.addr is required", ErrInvalid)
	}
	if c.Reader.DialTimeout < 0 || c.Reader.RPCTimeout < 0 {
		return fmt.Errorf("%w: reader timeouts must not be negative", ErrInvalid)
	}
	if c.Relay.IdleTimeout < 0 {
		return fmt.Errorf("%w: relay.idle_timeout must not be negative", ErrInvalid)
	}
	if c.Reader.ConnectAttempts < 1 {
		return fmt.Errorf("%w: reader.connect_attempts must be at least 1", ErrInvalid)
	}
	if err := c.Reader.TLS.ValidateClient(); err != nil {
		return fmt.Errorf("%w: reader.tls: %w", ErrInvalid, err)
	}
	if err := c.Relay.TLS.ValidateServer(); err != nil {
		return fmt.Errorf("%w: relay.tls: %w", ErrInvalid, err)
	}
	for i, origin := range c.Server.CorsOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("%w: server.cors_origins[%d] is empty", ErrInvalid, i)
		}
	}
	return nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	return d, nil
}
