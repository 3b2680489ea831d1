package di

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestBuildDispatcher_NoChannelsConfiguredStillBuilds(t *testing.T) {
	cfg := loadTestConfig(t)

	d := buildDispatcher(cfg, zerolog.Nop())
	assert.NotNil(t, d)
}

func TestBuildDispatcher_RegistersConfiguredChannels(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.SMTPHost = "smtp.example.internal"
	cfg.WebhookURL = "https://hooks.example.internal/notify"

	d := buildDispatcher(cfg, zerolog.Nop())
	assert.NotNil(t, d)
}
