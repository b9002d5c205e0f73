package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/energizer-project/bnetchat/internal/api"
	"github.com/energizer-project/bnetchat/internal/cli"
	"github.com/energizer-project/bnetchat/internal/config"
	"github.com/energizer-project/bnetchat/internal/connector"
	"github.com/energizer-project/bnetchat/internal/db"
	"github.com/energizer-project/bnetchat/internal/events"
	"github.com/energizer-project/bnetchat/internal/notify"
	"github.com/energizer-project/bnetchat/internal/scheduler"
	"github.com/energizer-project/bnetchat/internal/telemetry"
	"github.com/energizer-project/bnetchat/internal/util"
)

// connect loads the configuration, starts the host components and runs one
// chat session until it ends or the process is signalled.
func connect(cmd *cobra.Command, v *viper.Viper, opts *options, register bool) error {
	cfg, err := loadConfig(cmd, v, opts, register)
	if err != nil {
		return err
	}

	appData := cfg.GetApplicationData()
	logFile, err := util.InitLogger(util.LogConfigFrom(appData.Logging, opts.noConsole))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	sysInfo := util.GetSystemInfo()
	log.Info().
		Str("version", util.Version).
		Str("hostname", sysInfo.Hostname).
		Str("os", sysInfo.OS).
		Str("log_file", logFile).
		Msg("starting bnetchat")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eventBus := events.NewEventBus()
	defer eventBus.Stop()

	var history *db.HistoryStore
	if appData.Storage.Enabled {
		history, err = db.NewHistoryStore(appData.Storage.Path)
		if err != nil {
			log.Warn().Err(err).Msg("failed to open history store, history disabled")
		} else {
			defer history.Close()
			history.Register(eventBus)
		}
	}

	session, err := connector.NewSession(cfg, eventBus)
	if err != nil {
		return err
	}

	if appData.Webhook.Enabled {
		notify.NewWebhookNotifier(appData.Webhook.URL, func() bool {
			return session.Status().Away
		}).Register(eventBus)
	}

	var wg sync.WaitGroup

	if history != nil {
		sched := scheduler.NewScheduler(appData.Storage, history)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.Start(ctx)
		}()
	}

	if appData.MQTT.Enabled {
		mqttHandler, err := telemetry.NewMQTTHandler(appData.MQTT)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize MQTT, telemetry disabled")
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := mqttHandler.Start(ctx, eventBus); err != nil {
					log.Warn().Err(err).Msg("MQTT telemetry failed")
				}
			}()
		}
	}

	if appData.API.Enabled {
		apiServer := api.NewServer(appData.API, session, history, appData.Logging.Level == "debug")
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := startWithRetry(ctx, "API server", apiServer.Start, 5); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn().Err(err).Msg("API server failed after retries (non-fatal)")
			}
		}()
	}

	if !opts.noConsole {
		console := cli.NewCLI(session, cmd.InOrStdin(), cmd.OutOrStdout())
		console.Register(eventBus)
		fmt.Fprintf(cmd.OutOrStdout(), Banner, util.Version)
		// not tracked by wg: the console may be blocked reading stdin
		go func() {
			if console.Start(ctx) {
				cancel()
			}
		}()
	}

	runErr := session.Run(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(15 * time.Second):
		log.Warn().Msg("shutdown timed out, forcing exit")
	}

	log.Info().Msg("bnetchat stopped")
	return runErr
}

// loadConfig loads the config file, applies environment and flag overrides
// and runs the setup wizard when no account is configured yet.
func loadConfig(cmd *cobra.Command, v *viper.Viper, opts *options, register bool) (*config.Config, error) {
	cfg, err := config.Load(opts.configDir)
	if err != nil {
		return nil, err
	}
	config.ApplyOverrides(cfg, v)

	if cfg.IsFirstRun() {
		if err := config.RunSetupWizard(cfg, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
			return nil, fmt.Errorf("setup wizard failed: %w", err)
		}
		if err := cfg.Save(); err != nil {
			return nil, err
		}
	}

	if register {
		account := cfg.GetAccount()
		account.Register = true
		cfg.SetAccount(account)
	}

	validation := config.Validate(cfg)
	for _, w := range validation.Warnings {
		log.Warn().Str("field", w.Field).Msg(w.Message)
	}
	if !validation.IsValid() {
		for _, e := range validation.Errors {
			log.Error().Str("field", e.Field).Msg(e.Message)
		}
		return nil, fmt.Errorf("configuration validation failed with %d errors", len(validation.Errors))
	}
	return cfg, nil
}

// startWithRetry retries startFn, for listeners whose port may still be
// held by a previous run.
func startWithRetry(ctx context.Context, name string, startFn func(context.Context) error, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = startFn(ctx)
		if lastErr == nil {
			return nil
		}
		if i < maxRetries {
			log.Warn().Err(lastErr).Str("component", name).Int("retry", i+1).Int("max", maxRetries).Msg("bind failed, retrying in 3s...")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(3 * time.Second):
			}
		}
	}
	return lastErr
}
