package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/gookit/color"
)

const maxRaceRounds = 3

func main() {
	logFile, err := os.OpenFile("jdmask.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		color.Red.Printf("Cannot open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := newBotLogger(logFile)

	cfg, err := LoadConfig()
	if err != nil {
		logger.Error("Bad configuration: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(run(ctx, cfg, logger))
}

func run(ctx context.Context, cfg *Config, logger *botLogger) int {
	runID := uuid.New().String()[:8]
	logger.Log("Starting run %s for SKU %s", runID, cfg.SkuID)

	notifier := NewNotifier(cfg.Notify, cfg.PushKey, logger)
	client, err := NewClient(nil)
	if err != nil {
		logger.Error("Cannot build HTTP client: %v", err)
		return 1
	}
	jc := NewJdClient(client, cfg, logger, notifier)

	if server, err := jc.ServerTime(); err == nil {
		logger.Log("JD server time: %s", server.Format("2006-01-02 15:04:05.000"))
	}

	if !jc.LoadCookies() {
		logger.Log("No valid saved session, starting QR login")
		if err := jc.LoginByQRCode(ctx); err != nil {
			logger.Error("QR login failed: %v", err)
			return 1
		}
		if err := jc.SaveCookies(); err != nil {
			logger.Log("Could not persist cookies: %v", err)
		}
	}

	if err := jc.Login(ctx); err != nil {
		logger.Error("Session check failed: %v", err)
		return 1
	}
	logger.Success("Logged in as %s", jc.Nickname())

	if cfg.Reserve {
		if err := jc.MakeReserve(ctx); err != nil {
			logger.Error("Reservation failed: %v", err)
			return 1
		}
	}

	jc.SyncTime()
	if !cfg.BuyTime.IsZero() {
		if err := jc.WaitUntil(ctx, cfg.BuyTime); err != nil {
			logger.Error("Interrupted while waiting: %v", err)
			return 1
		}
	}

	for round := 1; round <= maxRaceRounds; round++ {
		logger.Log("Race round %d of %d", round, maxRaceRounds)
		order, err := jc.RaceOnce(ctx)
		if err != nil {
			logger.Error("Race aborted: %v", err)
			return 1
		}
		if order != nil {
			logger.Success("Order %d placed, pay at %s", order.OrderID, order.PayURL)
			return 0
		}
	}
	logger.Error("No order placed after %d rounds", maxRaceRounds)
	return 1
}
