// bnetchat is a Battle.net chat client. It logs on through a login relay,
// joins chat and exposes the session through an interactive console, a
// REST API, MQTT telemetry and a local SQLite history.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/energizer-project/bnetchat/internal/config"
	"github.com/energizer-project/bnetchat/internal/util"
)

const Banner = `
  _                _        _           _
 | |__  _ __   ___| |_  ___| |__   __ _| |_
 | '_ \| '_ \ / _ \ __|/ __| '_ \ / _' | __|
 | |_) | | | |  __/ |_| (__| | | | (_| | |_
 |_.__/|_| |_|\___|\__|\___|_| |_|\__,_|\__|  %s
`

// options holds the flags that are not config overrides.
type options struct {
	configDir string
	noConsole bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.NewViper()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "bnetchat",
		Short:         "Battle.net chat client",
		Long:          "bnetchat logs on to a Battle.net chat server through a login relay and keeps the session in chat, with a console, REST API, MQTT telemetry and local history.",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return connect(cmd, v, opts, false)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configDir, "config-dir", config.DefaultConfigDir, "directory holding config.json")
	flags.BoolVar(&opts.noConsole, "no-console", false, "run without the interactive console and log to the terminal instead")
	flags.String(config.KeyUsername, "", "account name, optionally user@server")
	flags.String(config.KeyPassword, "", "account password (prefer BNETCHAT_PASSWORD)")
	flags.String(config.KeyProduct, "", "product code, e.g. RATS or PX3W")
	flags.String(config.KeyCDKey, "", "CD-key for the product")
	flags.String(config.KeyChannel, "", "channel to join after logon")
	flags.String(config.KeyChatHost, "", "chat server host")
	flags.Int(config.KeyChatPort, 0, "chat server port")
	flags.String(config.KeyRelayHost, "", "login relay host")
	flags.Int(config.KeyRelayPort, 0, "login relay port")
	flags.String(config.KeyLogLevel, "", "log level (trace, debug, info, warn, error)")
	flags.Int(config.KeyAPIPort, 0, "REST API port")

	for _, key := range []string{
		config.KeyUsername, config.KeyPassword, config.KeyProduct, config.KeyCDKey,
		config.KeyChannel, config.KeyChatHost, config.KeyChatPort, config.KeyRelayHost,
		config.KeyRelayPort, config.KeyLogLevel, config.KeyAPIPort,
	} {
		_ = v.BindPFlag(key, flags.Lookup(key))
	}

	rootCmd.AddCommand(
		newConnectCmd(v, opts),
		newRegisterCmd(v, opts),
		newSetCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

func newConnectCmd(v *viper.Viper, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Log on and stay in chat (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return connect(cmd, v, opts, false)
		},
	}
}

func newRegisterCmd(v *viper.Viper, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create the configured account if it does not exist, then log on",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return connect(cmd, v, opts, true)
		},
	}
}

func newSetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set <chat-setting> <value>",
		Short: "Change one chat setting in config.json, e.g. set away_message brb",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configDir)
			if err != nil {
				return err
			}
			if err := cfg.UpdateChatField(args[0], settingValue(args[1])); err != nil {
				return err
			}
			if err := cfg.Save(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s updated in %s\n", args[0], cfg.Path())
			return err
		},
	}
}

// settingValue reads numbers and booleans as JSON and anything else as text.
func settingValue(arg string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(arg), &v); err == nil {
		if _, isString := v.(string); !isString {
			return v
		}
	}
	return arg
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := util.GetSystemInfo()
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "bnetchat %s (%s, %s/%s)\n",
				util.Version, info.GoVersion, info.OS, info.Architecture)
			return err
		},
	}
}
