// Package bbconfig loads proxy.toml and server.toml through viper,
// writing a default file on first run when none exists. Viper's
// TOML-backed Config binding means unknown keys don't
// abort startup and so both binaries share the same loading machinery.
package bbconfig

import (
	"errors"
	"os"

	"github.com/spf13/viper"
)

// ProxyConfig is proxy.toml.
type ProxyConfig struct {
	Address               string `mapstructure:"address"`
	ServerAddress         string `mapstructure:"server-address"`
	OnlineMode            bool   `mapstructure:"online-mode"`
	CompressionThreshold  int    `mapstructure:"compression-threshold"`
	MaxPlayers            int    `mapstructure:"max-players"`
	MOTD                  string `mapstructure:"motd"`
	IconPath              string `mapstructure:"icon-path"`
	KeepAliveIntervalSecs int    `mapstructure:"keepalive-interval-secs"`
	KeepAliveTimeoutSecs  int    `mapstructure:"keepalive-timeout-secs"`
}

// ServerConfig is server.toml: the internal-link-facing counterpart to
// ProxyConfig. It carries the same keepalive keys, but internal/mcserver
// does not read them: the proxy runs the client keepalive exchange itself.
type ServerConfig struct {
	ListenAddress         string `mapstructure:"listen-address"`
	MaxPlayers            int    `mapstructure:"max-players"`
	KeepAliveIntervalSecs int    `mapstructure:"keepalive-interval-secs"`
	KeepAliveTimeoutSecs  int    `mapstructure:"keepalive-timeout-secs"`
}

func defaultProxyConfig() ProxyConfig {
	return ProxyConfig{
		Address:               "0.0.0.0:25565",
		ServerAddress:         "127.0.0.1:8483",
		OnlineMode:            true,
		CompressionThreshold:  256,
		MaxPlayers:            100,
		MOTD:                  "A Bamboo Server",
		IconPath:              "icon.png",
		KeepAliveIntervalSecs: 10,
		KeepAliveTimeoutSecs:  30,
	}
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddress:         "0.0.0.0:8483",
		MaxPlayers:            100,
		KeepAliveIntervalSecs: 10,
		KeepAliveTimeoutSecs:  30,
	}
}

// LoadProxy reads proxy.toml at path, writing the file with defaults
// first if it does not yet exist.
func LoadProxy(path string) (*ProxyConfig, error) {
	d := defaultProxyConfig()
	v := viper.New()
	setDefaults(v, map[string]any{
		"address":                 d.Address,
		"server-address":          d.ServerAddress,
		"online-mode":             d.OnlineMode,
		"compression-threshold":   d.CompressionThreshold,
		"max-players":             d.MaxPlayers,
		"motd":                    d.MOTD,
		"icon-path":               d.IconPath,
		"keepalive-interval-secs": d.KeepAliveIntervalSecs,
		"keepalive-timeout-secs":  d.KeepAliveTimeoutSecs,
	})
	if err := readOrSeed(v, path); err != nil {
		return nil, err
	}
	var out ProxyConfig
	if err := v.Unmarshal(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoadServer reads server.toml at path, with the same first-run seeding
// behavior as LoadProxy.
func LoadServer(path string) (*ServerConfig, error) {
	d := defaultServerConfig()
	v := viper.New()
	setDefaults(v, map[string]any{
		"listen-address":          d.ListenAddress,
		"max-players":             d.MaxPlayers,
		"keepalive-interval-secs": d.KeepAliveIntervalSecs,
		"keepalive-timeout-secs":  d.KeepAliveTimeoutSecs,
	})
	if err := readOrSeed(v, path); err != nil {
		return nil, err
	}
	var out ServerConfig
	if err := v.Unmarshal(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func setDefaults(v *viper.Viper, defaults map[string]any) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

func readOrSeed(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound *os.PathError
	if !errors.As(err, &notFound) {
		var vnf viper.ConfigFileNotFoundError
		if !errors.As(err, &vnf) {
			return err
		}
	}
	if err := v.SafeWriteConfigAs(path); err != nil {
		return err
	}
	return v.ReadInConfig()
}
