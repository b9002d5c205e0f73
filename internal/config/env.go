package config

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. BNETCHAT_USERNAME.
const EnvPrefix = "BNETCHAT"

// Override keys. Command-line flags are bound to viper under these names.
const (
	KeyUsername  = "username"
	KeyPassword  = "password"
	KeyProduct   = "product"
	KeyCDKey     = "cdkey"
	KeyChannel   = "channel"
	KeyRegister  = "register"
	KeyChatHost  = "chat-host"
	KeyChatPort  = "chat-port"
	KeyRelayHost = "relay-host"
	KeyRelayPort = "relay-port"
	KeyLogLevel  = "log-level"
	KeyAPIPort   = "api-port"
)

// NewViper returns a viper instance reading BNETCHAT_* environment
// variables, with dashes in keys mapped to underscores.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// ApplyOverrides copies every key that is set in v, from the environment
// or a bound flag, over the loaded configuration. Overrides are not saved.
func ApplyOverrides(cfg *Config, v *viper.Viper) {
	if v == nil {
		return
	}

	cfg.mu.Lock()
	defer cfg.mu.Unlock()

	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			if s := v.GetString(key); s != "" {
				*dst = s
			}
		}
	}
	setInt := func(key string, dst *int) {
		if v.IsSet(key) {
			if n := v.GetInt(key); n > 0 {
				*dst = n
			}
		}
	}

	setString(KeyUsername, &cfg.Account.Username)
	setString(KeyPassword, &cfg.Account.Password)
	setString(KeyProduct, &cfg.Account.Product)
	setString(KeyCDKey, &cfg.Account.CDKey)
	setString(KeyChannel, &cfg.Chat.DefaultChannel)
	setString(KeyChatHost, &cfg.Servers.ChatHost)
	setInt(KeyChatPort, &cfg.Servers.ChatPort)
	setString(KeyRelayHost, &cfg.Servers.RelayHost)
	setInt(KeyRelayPort, &cfg.Servers.RelayPort)
	setString(KeyLogLevel, &cfg.ApplicationData.Logging.Level)
	setInt(KeyAPIPort, &cfg.ApplicationData.API.Port)

	if v.IsSet(KeyRegister) {
		cfg.Account.Register = v.GetBool(KeyRegister)
	}
}
