package config

import "slices"

// RedactedConfig returns a copy of cfg with sensitive fields replaced by the
// redaction placeholder "***". Use this when logging or printing the active
// configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Server.APIKey)
	redact(&out.Redis.Password)
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	out.Symbols = slices.Clone(cfg.Symbols)
	out.Server.CORSOrigins = slices.Clone(cfg.Server.CORSOrigins)
	out.Notify.Events = slices.Clone(cfg.Notify.Events)
	out.Router.ImpactNotionals = slices.Clone(cfg.Router.ImpactNotionals)
	out.Metrics.DepthPcts = slices.Clone(cfg.Metrics.DepthPcts)
	out.Sources = slices.Clone(cfg.Sources)
	for i := range out.Sources {
		out.Sources[i].Bids = slices.Clone(cfg.Sources[i].Bids)
		out.Sources[i].Asks = slices.Clone(cfg.Sources[i].Asks)
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
