// Package config loads buildmonitor's runtime configuration from a TOML
// file and environment variables, with optional hot-reload via fsnotify.
package config

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/xsparkiex/buildmonitor/errors"
)

// Config is the full set of knobs a running buildmonitor process reads.
type Config struct {
	// Role is one of "offline", "server", "client".
	Role string `mapstructure:"role"`

	// RootURL is the Jenkins root the server crawls from.
	RootURL string `mapstructure:"root_url"`

	// Multicast toggles push-mode (true) vs pull/query-mode (false).
	Multicast bool `mapstructure:"multicast"`

	// BindAddr is the local address a server binds, or a client's local
	// address.
	BindAddr string `mapstructure:"bind_addr"`

	// GroupOrServerAddr is the multicast group (server/client multicast
	// mode) or the unicast server address (query mode, client side).
	GroupOrServerAddr string `mapstructure:"server_addr"`

	// CrawlerRequestsPerSecond throttles the Jenkins REST crawler.
	CrawlerRequestsPerSecond float64 `mapstructure:"crawler_requests_per_second"`

	// LogJSON switches the logger to structured JSON output.
	LogJSON bool `mapstructure:"log_json"`
}

// Defaults populates v with the settings used when neither a config file
// nor an environment variable supplies a value.
func Defaults(v *viper.Viper) {
	v.SetDefault("role", "offline")
	v.SetDefault("multicast", true)
	v.SetDefault("bind_addr", "0.0.0.0:8090")
	v.SetDefault("server_addr", "239.255.13.37:8090")
	v.SetDefault("crawler_requests_per_second", 5.0)
	v.SetDefault("log_json", false)
}

// Load reads configuration from configPath (if non-empty) layered under
// environment variables prefixed BUILDMONITOR_ and the defaults above.
func Load(configPath string) (Config, error) {
	v := viper.New()
	Defaults(v)

	v.SetEnvPrefix("buildmonitor")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		var fileCfg map[string]interface{}
		if _, err := toml.DecodeFile(configPath, &fileCfg); err != nil {
			return Config{}, errors.Wrapf(err, "config: decode %s", configPath)
		}
		if err := v.MergeConfigMap(fileCfg); err != nil {
			return Config{}, errors.Wrapf(err, "config: merge %s", configPath)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "config: unmarshal")
	}
	return cfg, nil
}
