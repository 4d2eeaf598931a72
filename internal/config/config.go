package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"
)

// This file defines the configuration structures used by viper_config.go
// The actual loading is handled by viper in viper_config.go

// Store backends
const (
	BackendMemory   = "memory"
	BackendNATS     = "nats"
	BackendPostgres = "postgres"
)

// ServerConfig represents the server configuration
type ServerConfig struct {
	Server ServerSettings `yaml:"server"`
	Game   GameSettings   `yaml:"game"`
	Store  StoreSettings  `yaml:"store"`
}

// ServerSettings contains server-wide settings
type ServerSettings struct {
	Port      string `yaml:"port"`
	Host      string `yaml:"host"`
	PublicURL string `yaml:"publicURL"` // Base URL encoded in join QR codes

	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"` // Timeout for HTTP requests (middleware)

	// Rate limiting (using golang.org/x/time/rate)
	RateLimit      float64 `yaml:"rateLimit"`      // requests per second
	RateLimitBurst int     `yaml:"rateLimitBurst"` // burst size

	// Proxies whose X-Forwarded-For is believed, as CIDRs or single addresses
	TrustedProxies []string `yaml:"trustedProxies"`

	// Request limits
	MaxRequestSize int64 `yaml:"maxRequestSize"`

	// Monitoring
	EnableMetrics bool   `yaml:"enableMetrics"`
	LogLevel      string `yaml:"logLevel"`
	LogFormat     string `yaml:"logFormat"`
}

// GameSettings control room rules and lifecycle
type GameSettings struct {
	MinPlayers         int           `yaml:"minPlayers"`
	DiscussionDuration time.Duration `yaml:"discussionDuration"`
	RoomCodeLength     int           `yaml:"roomCodeLength"`
	PollInterval       time.Duration `yaml:"pollInterval"`   // Advertised to clients
	MaxSaveRetries     int           `yaml:"maxSaveRetries"` // Attempts per mutation on revision conflict
	RoomTimeout        time.Duration `yaml:"roomTimeout"`
	JanitorInterval    time.Duration `yaml:"janitorInterval"`
}

// StoreSettings select and configure the room store backend
type StoreSettings struct {
	Backend     string `yaml:"backend"`
	NatsURL     string `yaml:"natsURL"`
	NatsBucket  string `yaml:"natsBucket"`
	PostgresDSN string `yaml:"postgresDSN"`
}

// Addr returns the listen address
func (s ServerSettings) Addr() string {
	return s.Host + ":" + s.Port
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address trusts that
// host only.
func (s ServerSettings) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(s.TrustedProxies))
	for _, entry := range s.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("trustedProxies: %w", err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("trustedProxies: %w", err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Port: "8080",
			Host: "0.0.0.0",

			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  30 * time.Second,

			// Rate limiting defaults
			RateLimit:      10, // 10 requests per second
			RateLimitBurst: 20,
			TrustedProxies: []string{},

			// Request limits
			MaxRequestSize: 64 * 1024,

			// Monitoring defaults
			EnableMetrics: true,
			LogLevel:      "info",
			LogFormat:     "text",
		},
		Game: GameSettings{
			MinPlayers:         3,
			DiscussionDuration: 120 * time.Second,
			RoomCodeLength:     4,
			PollInterval:       2 * time.Second,
			MaxSaveRetries:     5,
			RoomTimeout:        24 * time.Hour,
			JanitorInterval:    10 * time.Minute,
		},
		Store: StoreSettings{
			Backend:    BackendMemory,
			NatsURL:    "nats://127.0.0.1:4222",
			NatsBucket: "imposter-rooms",
		},
	}
}

// Validate checks if the configuration is valid
func (c *ServerConfig) Validate() error {
	// Required fields
	if c.Server.Port == "" {
		return fmt.Errorf("port must be set")
	}

	switch c.Server.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("logFormat must be text or json, got %q", c.Server.LogFormat)
	}
	if c.Server.RateLimit <= 0 || c.Server.RateLimitBurst < 1 {
		return fmt.Errorf("rateLimit and rateLimitBurst must be positive")
	}
	if _, err := c.Server.TrustedProxyPrefixes(); err != nil {
		return err
	}
	if c.Server.MaxRequestSize < 1 {
		return fmt.Errorf("maxRequestSize must be positive")
	}

	if c.Game.MinPlayers < 2 {
		return fmt.Errorf("minPlayers must be at least 2")
	}
	if c.Game.DiscussionDuration < time.Second {
		return fmt.Errorf("discussionDuration must be at least 1s")
	}
	if c.Game.RoomCodeLength < 3 {
		return fmt.Errorf("roomCodeLength must be at least 3")
	}
	if c.Game.MaxSaveRetries < 1 {
		return fmt.Errorf("maxSaveRetries must be at least 1")
	}
	if c.Game.PollInterval <= 0 {
		return fmt.Errorf("pollInterval must be positive")
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendNATS:
		if c.Store.NatsURL == "" || c.Store.NatsBucket == "" {
			return fmt.Errorf("natsURL and natsBucket must be set for the nats backend")
		}
	case BackendPostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("postgresDSN must be set for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	return nil
}
