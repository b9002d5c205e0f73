// Package config handles configuration loading, validation, and persistence
// for the bnetchat client.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultConfigDir  = "config"
	DefaultConfigFile = "config.json"
	DefaultChatHost   = "useast.battle.net"
	DefaultChatPort   = 6112
	DefaultRelayHost  = "jbls.davnit.net"
	DefaultRelayPort  = 9367
	DefaultAPIPort    = 5080
	DefaultProduct    = "RATS"
	DefaultChannel    = "Chat"
	DefaultAwayText   = "Not available"
)

// Config is the root configuration structure for bnetchat.
type Config struct {
	mu   sync.RWMutex
	path string

	Account         AccountConfig   `json:"account"`
	Servers         ServersConfig   `json:"servers"`
	Chat            ChatConfig      `json:"chat"`
	ApplicationData ApplicationData `json:"application"`
}

// AccountConfig holds the logon credentials and product.
type AccountConfig struct {
	// Username may carry the server as "user@server".
	Username       string `json:"username"`
	Password       string `json:"password"`
	CDKey          string `json:"cdkey"`
	CDKeyExpansion string `json:"cdkey_expansion"`
	// KeyOwner defaults to the username.
	KeyOwner string `json:"key_owner"`
	// Product is the reversed product code, e.g. "RATS".
	Product string `json:"product"`
	// Register creates the account if it does not exist.
	Register bool `json:"register"`
	// NewPassword switches the session to change-password mode.
	NewPassword string `json:"new_password"`
}

// ServersConfig holds the chat server and login relay addresses.
type ServersConfig struct {
	ChatHost          string `json:"chat_host"`
	ChatPort          int    `json:"chat_port"`
	RelayHost         string `json:"relay_host"`
	RelayPort         int    `json:"relay_port"`
	ConnectTimeoutSec int    `json:"connect_timeout_sec"`
}

// ChatConfig holds chat behaviour settings.
type ChatConfig struct {
	DefaultChannel    string  `json:"default_channel"`
	HideMutualNotices bool    `json:"hide_mutual_notices"`
	AwayMessage       string  `json:"away_message"`
	DNDMessage        string  `json:"dnd_message"`
	FloodRatePerSec   float64 `json:"flood_rate_per_sec"`
	FloodBurst        int     `json:"flood_burst"`
	LookupTTLSec      int     `json:"lookup_ttl_sec"`
}

// ApplicationData contains host application configuration.
type ApplicationData struct {
	Logging LoggingConfig `json:"logging"`
	MQTT    MQTTConfig    `json:"mqtt"`
	API     APIConfig     `json:"api"`
	Storage StorageConfig `json:"storage"`
	Webhook WebhookConfig `json:"webhook"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `json:"level"`
	Directory  string `json:"directory"`
	MaxBackups int    `json:"max_backups"`
}

// MQTTConfig holds MQTT telemetry settings.
type MQTTConfig struct {
	Enabled     bool   `json:"enabled"`
	BrokerURL   string `json:"broker_url"`
	Port        int    `json:"port"`
	UseTLS      bool   `json:"use_tls"`
	CertFile    string `json:"cert_file"`
	KeyFile     string `json:"key_file"`
	CAFile      string `json:"ca_file"`
	ClientID    string `json:"client_id"`
	TopicPrefix string `json:"topic_prefix"`
}

// APIConfig holds REST API settings.
type APIConfig struct {
	Enabled        bool     `json:"enabled"`
	Port           int      `json:"port"`
	AllowedOrigins []string `json:"allowed_origins"`
	// Token, when set, must be presented as a bearer token on action endpoints.
	Token string `json:"token"`
}

// WebhookConfig holds the Discord-compatible webhook that receives
// whispers while away and session failures.
type WebhookConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
}

// StorageConfig holds the SQLite history store settings.
type StorageConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
	// RetentionDays bounds how long chat lines are kept; 0 keeps them forever.
	RetentionDays int `json:"retention_days"`
	// CleanupTime is the local "HH:MM" at which old lines are pruned.
	CleanupTime string `json:"cleanup_time"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Account: AccountConfig{
			Product: DefaultProduct,
		},
		Servers: ServersConfig{
			ChatHost:          DefaultChatHost,
			ChatPort:          DefaultChatPort,
			RelayHost:         DefaultRelayHost,
			RelayPort:         DefaultRelayPort,
			ConnectTimeoutSec: 30,
		},
		Chat: ChatConfig{
			DefaultChannel:    DefaultChannel,
			HideMutualNotices: true,
			AwayMessage:       DefaultAwayText,
			DNDMessage:        DefaultAwayText,
			FloodRatePerSec:   1,
			FloodBurst:        4,
			LookupTTLSec:      60,
		},
		ApplicationData: ApplicationData{
			Logging: LoggingConfig{
				Level:      "info",
				Directory:  "logs",
				MaxBackups: 5,
			},
			MQTT: MQTTConfig{
				Enabled:     false,
				Port:        1883,
				TopicPrefix: "bnetchat",
			},
			API: APIConfig{
				Enabled:        true,
				Port:           DefaultAPIPort,
				AllowedOrigins: []string{"*"},
			},
			Storage: StorageConfig{
				Enabled:       true,
				Path:          "data/bnetchat.db",
				RetentionDays: 30,
				CleanupTime:   "04:00",
			},
		},
	}
}

// Load reads configuration from a JSON file.
func Load(configDir string) (*Config, error) {
	configPath := filepath.Join(configDir, DefaultConfigFile)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", configPath).Msg("config file not found, creating default")
			cfg := DefaultConfig()
			cfg.path = configPath
			if saveErr := cfg.Save(); saveErr != nil {
				return nil, fmt.Errorf("failed to save default config: %w", saveErr)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig() // Start with defaults, then overlay
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	cfg.path = configPath
	log.Info().Str("path", configPath).Msg("configuration loaded")

	// Re-save so the file picks up fields added since it was written.
	if saveErr := cfg.Save(); saveErr != nil {
		log.Warn().Err(saveErr).Msg("failed to re-save config with updated defaults")
	}

	return cfg, nil
}

// Save writes the current configuration to disk.
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// credentials live in this file
	if err := os.WriteFile(c.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Debug().Str("path", c.path).Msg("configuration saved")
	return nil
}

// GetAccount returns a copy of the account configuration.
func (c *Config) GetAccount() AccountConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Account
}

// SetAccount updates the account configuration.
func (c *Config) SetAccount(a AccountConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Account = a
}

// GetServers returns a copy of the server addresses.
func (c *Config) GetServers() ServersConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Servers
}

// GetChat returns a copy of the chat settings.
func (c *Config) GetChat() ChatConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Chat
}

// GetApplicationData returns a copy of the application data configuration.
func (c *Config) GetApplicationData() ApplicationData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ApplicationData
}

// UpdateChatField updates a single chat setting by its JSON name.
func (c *Config) UpdateChatField(key string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, _ := json.Marshal(c.Chat)
	m := make(map[string]interface{})
	json.Unmarshal(data, &m)

	if _, ok := m[key]; !ok {
		return fmt.Errorf("unknown chat setting %s", key)
	}
	m[key] = value

	updated, _ := json.Marshal(m)
	if err := json.Unmarshal(updated, &c.Chat); err != nil {
		return fmt.Errorf("failed to update field %s: %w", key, err)
	}
	return nil
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.path
}

// IsFirstRun returns true if no account has been configured yet.
func (c *Config) IsFirstRun() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Account.Username == "" || c.Account.Password == ""
}

// ChatAddr returns the chat server as host:port. A server given in the
// username ("user@server") takes precedence over chat_host.
func (s ServersConfig) ChatAddr(serverOverride string) string {
	host := s.ChatHost
	if serverOverride != "" {
		host = serverOverride
	}
	return fmt.Sprintf("%s:%d", host, s.ChatPort)
}

// RelayAddr returns the login relay as host:port.
func (s ServersConfig) RelayAddr() string {
	return fmt.Sprintf("%s:%d", s.RelayHost, s.RelayPort)
}

// ConnectTimeout returns the dial timeout.
func (s ServersConfig) ConnectTimeout() time.Duration {
	if s.ConnectTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.ConnectTimeoutSec) * time.Second
}

// LookupTTL returns how long a pending lookup or whisper target is remembered.
func (c ChatConfig) LookupTTL() time.Duration {
	if c.LookupTTLSec <= 0 {
		return time.Minute
	}
	return time.Duration(c.LookupTTLSec) * time.Second
}

// EffectiveKeyOwner returns the key owner, defaulting to the account name.
func (a AccountConfig) EffectiveKeyOwner(user string) string {
	if a.KeyOwner != "" {
		return a.KeyOwner
	}
	return user
}
