package di

import (
	"github.com/rs/zerolog"

	"github.com/zhstock/dsa/internal/config"
	"github.com/zhstock/dsa/internal/notify"
)

// buildDispatcher wires a channel only when its configuration is
// present: an email channel needs an SMTP host, a webhook channel
// needs a URL.
func buildDispatcher(cfg *config.Config, log zerolog.Logger) *notify.Dispatcher {
	var channels []notify.Channel

	if cfg.SMTPHost != "" {
		channels = append(channels, notify.NewEmailChannel(notify.EmailConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUsername,
			Password:    cfg.SMTPPassword,
			FromAddress: cfg.SMTPFromAddress,
			DefaultTo:   cfg.SMTPDefaultTo,
		}, log))
	}
	if cfg.WebhookURL != "" {
		channels = append(channels, notify.NewWebhookChannel("im", notify.WebhookConfig{
			URL:       cfg.WebhookURL,
			DefaultTo: cfg.WebhookDefaultTo,
		}, log))
	}

	return notify.New(channels, cfg.NotificationGroups, cfg.NotifyChunkBytesOverrides, log)
}
