package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/ngrelay/internal/bot"
	"github.com/iamwavecut/ngrelay/internal/config"
	"github.com/iamwavecut/ngrelay/internal/db"
	"github.com/iamwavecut/ngrelay/internal/db/postgres"
	"github.com/iamwavecut/ngrelay/internal/db/sqlite"
	"github.com/iamwavecut/ngrelay/internal/handlers"
	"github.com/iamwavecut/ngrelay/internal/i18n"
	"github.com/iamwavecut/ngrelay/internal/infra"
	"github.com/iamwavecut/ngrelay/internal/infrastructure/telegram"
	"github.com/iamwavecut/ngrelay/internal/lifecycle"
	"github.com/iamwavecut/ngrelay/internal/observability"
	"github.com/iamwavecut/ngrelay/internal/relay"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WithError(err).Warn("cant load .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}
	log.SetFormatter(&config.Formatter{Colors: cfg.LogColors})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dbClient, err := openStore(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatalln("cant open blocklist store")
	}

	botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		_ = dbClient.Close()
		log.WithError(err).Errorln("cant initialize bot api")
		time.Sleep(1 * time.Second)
		log.Fatalln("exiting")
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
	}
	log.WithFields(log.Fields{
		"bot":      botAPI.Self.UserName,
		"language": i18n.GetLanguageName(cfg.DefaultLanguage),
	}).Info("authorized")

	transport := telegram.NewTransport(botAPI)
	service := bot.NewService(botAPI, dbClient, transport, bot.ServiceConfig{
		OperatorID: cfg.OperatorID,
		Language:   cfg.DefaultLanguage,
	})
	coordinator := relay.NewCoordinator(transport, dbClient, relay.Config{
		OperatorID: cfg.OperatorID,
		Language:   cfg.DefaultLanguage,
	})
	updateProcessor := bot.NewUpdateProcessor(cfg.EnabledHandlers, map[string]bot.Handler{
		"admin": handlers.NewAdmin(service),
		"relay": handlers.NewRelay(service, coordinator),
	})
	dispatcher := bot.NewDispatcher(updateProcessor, cfg.Dispatch.Workers, cfg.Dispatch.EventTimeout)

	if err := observability.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		log.WithError(err).Warn("cant register metrics")
	}

	runtime := lifecycle.NewRuntime()
	runtime.Register("tracing", observability.NewTracing())
	runtime.Register("service", service)
	if cfg.MetricsAddr != "" {
		runtime.Register("ops_server", observability.NewServer(cfg.MetricsAddr, prometheus.DefaultGatherer, dbClient.Ping))
	}
	if err := runtime.Start(ctx); err != nil {
		_ = dbClient.Close()
		log.WithError(err).Fatalln("cant start")
	}

	pollErr := make(chan error, 1)
	go infra.GoRecoverable(-1, "process_updates", func() {
		updateConfig := api.NewUpdate(0)
		updateConfig.Timeout = cfg.Dispatch.PollTimeout
		updates, errs := bot.GetUpdatesChans(ctx, botAPI, updateConfig, bot.DefaultPollOptions)

		go func() {
			if err, ok := <-errs; ok && err != nil && ctx.Err() == nil {
				pollErr <- err
			}
		}()
		if err := dispatcher.Run(ctx, updates); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Errorln("dispatcher stopped")
		}
	})

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-pollErr:
		log.WithError(err).Errorln("bot api get updates error")
		exitCode = 1
	case <-infra.MonitorExecutable(ctx):
		log.Warn("executable file was modified")
	}
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := runtime.Stop(stopCtx); err != nil {
		log.WithError(err).Warn("unclean shutdown")
	}
	stopCancel()
	os.Exit(exitCode)
}

func openStore(ctx context.Context, cfg config.Config) (db.Client, error) {
	if cfg.Storage.DatabaseURL != "" {
		log.Info("using postgres blocklist")
		return postgres.NewClient(ctx, cfg.Storage.DatabaseURL)
	}

	dir, err := infra.GetWorkDir(cfg.DotPath)
	if err != nil {
		return nil, err
	}
	log.WithField("dir", dir).Info("using sqlite blocklist")
	return sqlite.NewSQLiteClient(ctx, dir, cfg.Storage.DBName)
}
