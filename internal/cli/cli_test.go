package cli

import (
	"bytes"
	"strings"
	"testing"

	"falconadmin/internal/config"
	"falconadmin/internal/prompt"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureCredentialsPromptsForMissing(t *testing.T) {
	var out bytes.Buffer
	p := prompt.New(strings.NewReader("prompted-id\nprompted-secret\n"), &out)

	cfg := config.Default()
	require.NoError(t, EnsureCredentials(cfg, p))

	assert.Equal(t, "prompted-id", cfg.Falcon.ClientID)
	assert.Equal(t, "prompted-secret", cfg.Falcon.ClientSecret)
	assert.Equal(t, ClientIDPrompt+ClientSecretPrompt, out.String())
}

func TestEnsureCredentialsKeepsConfigured(t *testing.T) {
	var out bytes.Buffer
	p := prompt.New(strings.NewReader("prompted-secret\n"), &out)

	cfg := config.Default()
	cfg.Falcon.ClientID = "from-file"
	require.NoError(t, EnsureCredentials(cfg, p))

	assert.Equal(t, "from-file", cfg.Falcon.ClientID)
	assert.Equal(t, "prompted-secret", cfg.Falcon.ClientSecret)
	assert.Equal(t, ClientSecretPrompt, out.String())
}

func TestEnsureCredentialsEmptyAnswers(t *testing.T) {
	p := prompt.New(strings.NewReader("\n\n"), &bytes.Buffer{})
	err := EnsureCredentials(config.Default(), p)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	assert.Equal(t, logrus.InfoLevel, NewLogger(false).GetLevel())
	assert.Equal(t, logrus.DebugLevel, NewLogger(true).GetLevel())
}
