package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the bot reads from the environment. A .env file in
// the working directory is honored via godotenv.
type Config struct {
	SkuID     string    // product to buy (required)
	Eid       string    // anti-forgery device id, submitted with the order
	Fp        string    // anti-forgery fingerprint, submitted with the order
	UserAgent string    // overrides the default Chrome UA
	BuyTime   time.Time // sale start; zero means race immediately
	Reserve   bool      // run the pre-sale reservation flow
	Notify    bool      // push milestone messages
	PushKey   string    // ServerChan key for the notifier
	CookieDir string    // where <nickname>.cookies files live
}

// LoadConfig reads the environment (plus an optional .env file) into a
// validated Config.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		SkuID:     os.Getenv("JD_SKU_ID"),
		Eid:       os.Getenv("JD_EID"),
		Fp:        os.Getenv("JD_FP"),
		UserAgent: os.Getenv("JD_USER_AGENT"),
		PushKey:   os.Getenv("JD_PUSH_KEY"),
		CookieDir: os.Getenv("JD_COOKIE_DIR"),
		Reserve:   envBool("JD_RESERVE"),
		Notify:    envBool("JD_NOTIFY"),
	}

	if cfg.SkuID == "" {
		return nil, fmt.Errorf("JD_SKU_ID is required")
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultProfile.UserAgent
	}
	if cfg.CookieDir == "" {
		cfg.CookieDir = "./cookies"
	}
	if cfg.Notify && cfg.PushKey == "" {
		return nil, fmt.Errorf("JD_NOTIFY requires JD_PUSH_KEY")
	}

	if raw := os.Getenv("JD_BUY_TIME"); raw != "" {
		t, err := parseBuyTime(raw, time.Now())
		if err != nil {
			return nil, fmt.Errorf("JD_BUY_TIME: %w", err)
		}
		cfg.BuyTime = t
	}

	return cfg, nil
}

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes"
}

// parseBuyTime accepts a full datetime or a bare clock time in the local
// zone; a clock time already in the past rolls over to tomorrow.
func parseBuyTime(raw string, now time.Time) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", raw, time.Local); err == nil {
		return t, nil
	}

	t, err := time.ParseInLocation("15:04:05", raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("unsupported time format %q", raw)
	}
	t = time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.Local)
	if t.Before(now) {
		t = t.Add(24 * time.Hour)
	}
	return t, nil
}
