package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Account.Username = "someone"
	cfg.Account.Password = "secret"
	cfg.Account.CDKey = "1234-5678-9012"
	cfg.ApplicationData.API.Token = "token"
	return cfg
}

func hasField(errs []ValidationError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		wantError   string
		wantWarning string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing username", mutate: func(c *Config) { c.Account.Username = "" }, wantError: "account.username"},
		{name: "whitespace in username", mutate: func(c *Config) { c.Account.Username = "some one" }, wantError: "account.username"},
		{name: "missing password", mutate: func(c *Config) { c.Account.Password = "" }, wantError: "account.password"},
		{name: "unknown product", mutate: func(c *Config) { c.Account.Product = "XXXX" }, wantError: "account.product"},
		{name: "missing key", mutate: func(c *Config) { c.Account.CDKey = "" }, wantWarning: "account.cdkey"},
		{name: "expansion key", mutate: func(c *Config) { c.Account.Product = "PX3W" }, wantWarning: "account.cdkey_expansion"},
		{name: "bad chat port", mutate: func(c *Config) { c.Servers.ChatPort = 70000 }, wantError: "servers.chat_port"},
		{name: "register and change password", mutate: func(c *Config) {
			c.Account.Register = true
			c.Account.NewPassword = "x"
		}, wantError: "account.register"},
		{name: "mqtt without broker", mutate: func(c *Config) { c.ApplicationData.MQTT.Enabled = true }, wantError: "application.mqtt.broker_url"},
		{name: "flood protection off", mutate: func(c *Config) { c.Chat.FloodRatePerSec = 0 }, wantWarning: "chat.flood_rate_per_sec"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			res := Validate(cfg)

			if tt.wantError == "" {
				assert.True(t, res.IsValid(), "unexpected errors: %v", res.Errors)
			} else {
				assert.True(t, hasField(res.Errors, tt.wantError), "errors: %v", res.Errors)
			}
			if tt.wantWarning != "" {
				assert.True(t, hasField(res.Warnings, tt.wantWarning), "warnings: %v", res.Warnings)
			}
		})
	}
}

func TestLoadCreatesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultChatHost, cfg.GetServers().ChatHost)
	assert.Equal(t, DefaultChannel, cfg.GetChat().DefaultChannel)
	assert.True(t, cfg.IsFirstRun())

	_, err = os.Stat(filepath.Join(dir, DefaultConfigFile))
	require.NoError(t, err)

	acct := cfg.GetAccount()
	acct.Username = "someone"
	acct.Password = "secret"
	cfg.SetAccount(acct)
	require.NoError(t, cfg.Save())

	again, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "someone", again.GetAccount().Username)
	assert.False(t, again.IsFirstRun())
}

func TestApplyOverrides(t *testing.T) {
	t.Setenv("BNETCHAT_USERNAME", "fromenv")
	t.Setenv("BNETCHAT_CHAT_HOST", "europe.battle.net")

	v := NewViper()
	v.Set(KeyChannel, "Op Test")
	v.Set(KeyRegister, true)

	cfg := validConfig()
	ApplyOverrides(cfg, v)

	assert.Equal(t, "fromenv", cfg.GetAccount().Username)
	assert.True(t, cfg.GetAccount().Register)
	assert.Equal(t, "europe.battle.net", cfg.GetServers().ChatHost)
	assert.Equal(t, "Op Test", cfg.GetChat().DefaultChannel)
	// untouched keys keep their values
	assert.Equal(t, "secret", cfg.GetAccount().Password)
}

func TestServerAddresses(t *testing.T) {
	s := DefaultConfig().Servers
	assert.Equal(t, "useast.battle.net:6112", s.ChatAddr(""))
	assert.Equal(t, "asia.battle.net:6112", s.ChatAddr("asia.battle.net"))
	assert.Equal(t, "jbls.davnit.net:9367", s.RelayAddr())
}

func TestUpdateChatField(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.UpdateChatField("away_message", "brb"))
	assert.Equal(t, "brb", cfg.GetChat().AwayMessage)
	assert.Error(t, cfg.UpdateChatField("no_such_field", 1))
}

func TestRunSetupWizard(t *testing.T) {
	cfg := DefaultConfig()
	cfg.path = filepath.Join(t.TempDir(), DefaultConfigFile)
	cfg.ApplicationData.API.Token = "token"

	answers := strings.Join([]string{
		"someone@uswest.battle.net", // username
		"secret",                    // password
		"",                          // product keeps RATS
		"1111-2222-3333",            // cdkey
		"",                          // key owner
		"no",                        // register
		"", "", "", "",              // servers keep defaults
		"Op Test", // channel
		"",        // hide mutual keeps default
	}, "\n") + "\n"

	var out bytes.Buffer
	require.NoError(t, RunSetupWizard(cfg, strings.NewReader(answers), &out))

	acct := cfg.GetAccount()
	assert.Equal(t, "someone@uswest.battle.net", acct.Username)
	assert.Equal(t, "secret", acct.Password)
	assert.Equal(t, DefaultProduct, acct.Product)
	assert.Equal(t, "1111-2222-3333", acct.CDKey)
	assert.False(t, acct.Register)
	assert.Equal(t, "Op Test", cfg.GetChat().DefaultChannel)
	assert.True(t, cfg.GetChat().HideMutualNotices)
	assert.Contains(t, out.String(), "Configuration saved.")
}
