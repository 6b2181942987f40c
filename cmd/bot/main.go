package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"homework_status_bot/internal/app"
	"homework_status_bot/internal/infra/config"
	"homework_status_bot/internal/infra/logger"
	"homework_status_bot/internal/infra/practicum"
	"homework_status_bot/internal/infra/scheduler"
	"homework_status_bot/internal/infra/telegram"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The configured logger does not exist yet; Fatal exits with code 1.
		logrus.WithError(err).Fatal("Could not load application configuration")
	}

	log := logger.New(cfg)
	mainLogger := logger.Component(log, "main")
	mainLogger.WithFields(logrus.Fields{
		"log_level":     cfg.LogLevel,
		"environment":   cfg.Environment,
		"poll_schedule": cfg.PollSchedule,
		"chat_id":       cfg.TelegramChatID,
	}).Info("Configuration loaded")

	// Initialize Telegram Bot
	bot, err := telegram.NewBot(cfg.TelegramToken, cfg.RequestTimeout)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}
	notifier := app.NewNotifier(telegram.NewTelebotAdapter(bot), cfg.TelegramChatID, logger.Component(log, "notifier"))

	apiClient := practicum.NewClient(practicum.ClientConfig{
		Endpoint: cfg.PracticumEndpoint,
		Token:    cfg.PracticumToken,
		Timeout:  cfg.RequestTimeout,
	}, logger.Component(log, "practicum"))

	pollService := app.NewPollService(apiClient, notifier, logger.Component(log, "poller"), time.Now())

	pollScheduler, err := scheduler.NewPollScheduler(pollService, cfg.PollSchedule, cfg.PollMaxBackoff, logger.Component(log, "scheduler"))
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create poll scheduler")
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mainLogger.Info("Application setup complete. Polling for homework statuses...")
	pollScheduler.Run(ctx)
	mainLogger.Info("Application shut down gracefully.")
}
