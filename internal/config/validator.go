package config

import (
	"fmt"
	"strings"

	"github.com/energizer-project/bnetchat/internal/protocol"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationResult holds the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// IsValid returns true if there are no validation errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// AddError adds a validation error.
func (r *ValidationResult) AddError(field, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

// AddWarning adds a validation warning.
func (r *ValidationResult) AddWarning(field, message string) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Message: message})
}

// Validate performs comprehensive validation of the configuration.
func Validate(cfg *Config) *ValidationResult {
	result := &ValidationResult{}

	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	validateAccount(&cfg.Account, result)
	validateServers(&cfg.Servers, result)
	validateChat(&cfg.Chat, result)
	validateApplicationData(&cfg.ApplicationData, result)

	return result
}

func validateAccount(a *AccountConfig, result *ValidationResult) {
	if strings.TrimSpace(a.Username) == "" {
		result.AddError("account.username", "username is required")
	} else if strings.ContainsAny(a.Username, " \t\v\r\n") {
		result.AddError("account.username", "Battle.net username or server may not contain whitespace")
	}

	if a.Password == "" {
		result.AddError("account.password", "password is required")
	}

	product, err := protocol.ParseProduct(a.Product)
	if err != nil {
		result.AddError("account.product", err.Error())
		return
	}

	keys := product.KeyCount()
	if keys >= 1 && strings.TrimSpace(a.CDKey) == "" {
		result.AddWarning("account.cdkey",
			fmt.Sprintf("%s needs a CD-key; logon will fail without one", product.Name()))
	}
	if keys >= 2 && strings.TrimSpace(a.CDKeyExpansion) == "" {
		result.AddWarning("account.cdkey_expansion",
			fmt.Sprintf("%s needs an expansion CD-key; logon will fail without one", product.Name()))
	}

	if a.Register && a.NewPassword != "" {
		result.AddError("account.register", "register and new_password cannot be combined")
	}
}

func validateServers(s *ServersConfig, result *ValidationResult) {
	if strings.TrimSpace(s.ChatHost) == "" {
		result.AddError("servers.chat_host", "chat server host is required")
	}
	if strings.TrimSpace(s.RelayHost) == "" {
		result.AddError("servers.relay_host", "login relay host is required")
	}
	validatePort(s.ChatPort, "servers.chat_port", result)
	validatePort(s.RelayPort, "servers.relay_port", result)

	if s.ConnectTimeoutSec < 5 {
		result.AddWarning("servers.connect_timeout_sec",
			"connect timeout less than 5s may fail on slow networks")
	}
}

func validateChat(c *ChatConfig, result *ValidationResult) {
	if strings.TrimSpace(c.DefaultChannel) == "" {
		result.AddError("chat.default_channel", "default channel is required")
	}
	if c.FloodRatePerSec <= 0 {
		result.AddWarning("chat.flood_rate_per_sec",
			"flood protection is disabled, the server may disconnect you for flooding")
	}
	if len(c.AwayMessage) > 200 {
		result.AddWarning("chat.away_message", "away message will be truncated by the server")
	}
}

func validateApplicationData(data *ApplicationData, result *ValidationResult) {
	if data.MQTT.Enabled {
		if strings.TrimSpace(data.MQTT.BrokerURL) == "" {
			result.AddError("application.mqtt.broker_url", "MQTT broker URL is required when enabled")
		}
		if data.MQTT.Port < 1 || data.MQTT.Port > 65535 {
			result.AddError("application.mqtt.port", "invalid MQTT port")
		}
	}

	if data.API.Enabled {
		validatePort(data.API.Port, "application.api.port", result)
		if data.API.Token == "" {
			result.AddWarning("application.api.token",
				"API token is empty, action endpoints are unauthenticated")
		}
	}

	if data.Storage.Enabled && strings.TrimSpace(data.Storage.Path) == "" {
		result.AddError("application.storage.path", "storage path is required when enabled")
	}

	if data.Webhook.Enabled && !strings.HasPrefix(data.Webhook.URL, "https://") && !strings.HasPrefix(data.Webhook.URL, "http://") {
		result.AddError("application.webhook.url", "webhook URL must be an http or https URL")
	}
}

func validatePort(port int, field string, result *ValidationResult) {
	if port < 1 || port > 65535 {
		result.AddError(field, fmt.Sprintf("invalid port number: %d (must be 1-65535)", port))
		return
	}
	if port < 1024 {
		result.AddWarning(field,
			fmt.Sprintf("port %d is a privileged port, may require elevated permissions", port))
	}
}
