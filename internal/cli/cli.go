// Package cli holds the start-up steps shared by the falconadmin commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"falconadmin/internal/config"
	"falconadmin/internal/prompt"

	"github.com/sirupsen/logrus"
)

// Credential prompts.
const (
	ClientIDPrompt     = "Enter the CrowdStrike API Client: "
	ClientSecretPrompt = "Enter the CrowdStrike API Client Secret: "
)

// NewLogger returns a text logger on stderr, at debug level when debug is set.
func NewLogger(debug bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(logrus.InfoLevel)
	if debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// EnsureCredentials prompts for whichever of client ID and secret is still
// missing after the config file and environment were applied.
func EnsureCredentials(cfg *config.Config, p *prompt.Prompter) error {
	if cfg.Falcon.ClientID == "" {
		id, err := p.Line(ClientIDPrompt)
		if err != nil {
			return fmt.Errorf("failed to read client id: %w", err)
		}
		cfg.Falcon.ClientID = id
	}
	if cfg.Falcon.ClientSecret == "" {
		secret, err := p.Secret(ClientSecretPrompt)
		if err != nil {
			return fmt.Errorf("failed to read client secret: %w", err)
		}
		cfg.Falcon.ClientSecret = secret
	}
	return cfg.Validate()
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
