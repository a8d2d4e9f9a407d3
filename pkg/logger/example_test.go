package logger_test

import (
	"errors"
	"os"

	"github.com/wonny/hedgestress/pkg/config"
	"github.com/wonny/hedgestress/pkg/logger"
)

// Example_basic demonstrates basic logger usage
func Example_basic() {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "info",
		LogFormat: "console",
	}

	// Create logger (SSOT)
	log := logger.New(cfg)

	log.Debug("This won't appear (level is info)")
	log.Info("Stress run started")
	log.Warnf("Scenario %s did not converge after %d iterations", "equity_crash", 5000)
}

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	log := logger.NewWithWriter(os.Stderr, "info")

	log.WithFields(map[string]interface{}{
		"scenario":    "equity_crash",
		"loss_ratio":  0.2683,
		"joint_sigma": 10.0,
	}).Info("worst-case search finished")
}

// Example_withError demonstrates error logging
func Example_withError() {
	log := logger.NewWithWriter(os.Stderr, "error")

	err := errors.New("invalid risk stats: corr_crisis: must be positive definite")
	log.WithError(err).
		WithField("scenario", "rates_up").
		Error("scenario skipped")
}
