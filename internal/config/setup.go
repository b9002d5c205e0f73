package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/energizer-project/bnetchat/internal/protocol"
)

// RunSetupWizard walks the user through first-time configuration, reading
// answers from in and writing prompts to out.
func RunSetupWizard(cfg *Config, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "bnetchat first run setup")
	fmt.Fprintln(out, "Press enter to keep the value in brackets.")
	fmt.Fprintln(out)

	cfg.mu.Lock()
	acct := &cfg.Account
	srv := &cfg.Servers
	chat := &cfg.Chat

	fmt.Fprintln(out, "── Account ──")
	acct.Username = promptString(reader, out, "Username (user or user@server)", acct.Username)
	acct.Password = promptString(reader, out, "Password", "")
	acct.Product = promptString(reader, out, "Product code (RATS, PXES, NB2W, VD2D, PX2D, 3RAW, PX3W)", acct.Product)

	if product, err := protocol.ParseProduct(acct.Product); err == nil {
		if product.KeyCount() >= 1 {
			acct.CDKey = promptString(reader, out, "CD-key", acct.CDKey)
		}
		if product.KeyCount() >= 2 {
			acct.CDKeyExpansion = promptString(reader, out, "Expansion CD-key", acct.CDKeyExpansion)
		}
		if product.KeyCount() >= 1 {
			acct.KeyOwner = promptString(reader, out, "CD-key owner name", acct.KeyOwner)
		}
	}
	acct.Register = promptBool(reader, out, "Create the account if it does not exist", acct.Register)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "── Servers ──")
	srv.ChatHost = promptString(reader, out, "Battle.net server", srv.ChatHost)
	srv.ChatPort = promptInt(reader, out, "Battle.net port", srv.ChatPort)
	srv.RelayHost = promptString(reader, out, "Logon relay (BNLS) server", srv.RelayHost)
	srv.RelayPort = promptInt(reader, out, "Logon relay port", srv.RelayPort)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "── Chat ──")
	chat.DefaultChannel = promptString(reader, out, "Channel to join after logon", chat.DefaultChannel)
	chat.HideMutualNotices = promptBool(reader, out, "Hide mutual friend status notices", chat.HideMutualNotices)
	cfg.mu.Unlock()

	result := Validate(cfg)
	if !result.IsValid() {
		fmt.Fprintln(out, "\nConfiguration has errors:")
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  - [%s] %s\n", e.Field, e.Message)
		}
		retry := promptString(reader, out, "Would you like to try again? (yes/no)", "yes")
		if strings.ToLower(retry) == "yes" {
			return RunSetupWizard(cfg, reader, out)
		}
		return fmt.Errorf("configuration validation failed")
	}

	for _, w := range result.Warnings {
		log.Warn().Str("field", w.Field).Msg(w.Message)
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration saved.")
	return nil
}

func promptString(reader *bufio.Reader, out io.Writer, prompt string, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "  %s [%s]: ", prompt, defaultVal)
	} else {
		fmt.Fprintf(out, "  %s: ", prompt)
	}

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}

func promptInt(reader *bufio.Reader, out io.Writer, prompt string, defaultVal int) int {
	fmt.Fprintf(out, "  %s [%d]: ", prompt, defaultVal)

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}

	val, err := strconv.Atoi(input)
	if err != nil {
		fmt.Fprintf(out, "    Invalid number, using default: %d\n", defaultVal)
		return defaultVal
	}
	return val
}

func promptBool(reader *bufio.Reader, out io.Writer, prompt string, defaultVal bool) bool {
	defaultStr := "no"
	if defaultVal {
		defaultStr = "yes"
	}

	fmt.Fprintf(out, "  %s [%s]: ", prompt, defaultStr)

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))

	if input == "" {
		return defaultVal
	}

	return input == "yes" || input == "y" || input == "true" || input == "1"
}
