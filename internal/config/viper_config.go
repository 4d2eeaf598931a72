package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration using Viper
// Priority order: Environment variables > Config file > Defaults
func LoadConfig(configPath string) (*ServerConfig, error) {
	v := viper.New()

	// Set config file details
	v.SetConfigName("server")
	v.SetConfigType("yaml")

	// Add config paths
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/imposter")
	}

	// Enable environment variable binding
	// IMPOSTER_GAME_MINPLAYERS and friends work for every key
	v.SetEnvPrefix("IMPOSTER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind the short names used by container platforms
	for key, env := range map[string]string{
		"server.port":       "PORT",
		"server.host":       "HOST",
		"server.publicurl":  "PUBLIC_URL",
		"server.loglevel":   "LOG_LEVEL",
		"server.logformat":  "LOG_FORMAT",
		"store.backend":     "STORE_BACKEND",
		"store.natsurl":     "NATS_URL",
		"store.postgresdsn": "DATABASE_URL",
	} {
		if err := v.BindEnv(key, "IMPOSTER_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	setDefaults(v, DefaultConfig())

	// Try to read config file (it's optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; continue with env vars and defaults
	}

	cfg := &ServerConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, d *ServerConfig) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.publicurl", d.Server.PublicURL)
	v.SetDefault("server.readtimeout", d.Server.ReadTimeout)
	v.SetDefault("server.writetimeout", d.Server.WriteTimeout)
	v.SetDefault("server.idletimeout", d.Server.IdleTimeout)
	v.SetDefault("server.shutdowntimeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.requesttimeout", d.Server.RequestTimeout)
	v.SetDefault("server.ratelimit", d.Server.RateLimit)
	v.SetDefault("server.ratelimitburst", d.Server.RateLimitBurst)
	v.SetDefault("server.trustedproxies", d.Server.TrustedProxies)
	v.SetDefault("server.maxrequestsize", d.Server.MaxRequestSize)
	v.SetDefault("server.enablemetrics", d.Server.EnableMetrics)
	v.SetDefault("server.loglevel", d.Server.LogLevel)
	v.SetDefault("server.logformat", d.Server.LogFormat)

	v.SetDefault("game.minplayers", d.Game.MinPlayers)
	v.SetDefault("game.discussionduration", d.Game.DiscussionDuration)
	v.SetDefault("game.roomcodelength", d.Game.RoomCodeLength)
	v.SetDefault("game.pollinterval", d.Game.PollInterval)
	v.SetDefault("game.maxsaveretries", d.Game.MaxSaveRetries)
	v.SetDefault("game.roomtimeout", d.Game.RoomTimeout)
	v.SetDefault("game.janitorinterval", d.Game.JanitorInterval)

	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.natsurl", d.Store.NatsURL)
	v.SetDefault("store.natsbucket", d.Store.NatsBucket)
	v.SetDefault("store.postgresdsn", d.Store.PostgresDSN)
}
