package bootstrap

import (
	"log/slog"

	"github.com/Rainking6693/autobolt-scheduler/config"
	"github.com/Rainking6693/autobolt-scheduler/internal/observability/notify/pagerduty"
	"github.com/Rainking6693/autobolt-scheduler/internal/observability/notify/slack"
	"github.com/Rainking6693/autobolt-scheduler/internal/observability/statsd"
	"github.com/Rainking6693/autobolt-scheduler/internal/service/eventnotifier"
)

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
	Notifier      *eventnotifier.Service
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  cfg.Metrics.StatsdPrefix,
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	notifier := buildEventNotifier(obsLogger, cfg.Notifications)

	return ObservabilityContainer{
		MetricsSink:   metricsSink,
		MetricsConfig: cfg.Metrics,
		Notifier:      notifier,
	}
}

// buildEventNotifier wires the configured notification sinks. A notifier
// with no sinks is still returned so callers never need nil checks.
func buildEventNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *eventnotifier.Service {
	var sinks []eventnotifier.SinkRegistration

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
			Username:   cfg.Slack.Username,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			logger.Error("failed to initialise slack sink", "error", err)
		} else {
			sinks = append(sinks, eventnotifier.SinkRegistration{Name: "slack", Sink: client})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			logger.Error("failed to initialise pagerduty sink", "error", err)
		} else {
			sinks = append(sinks, eventnotifier.SinkRegistration{Name: "pagerduty", Sink: client})
		}
	}

	return eventnotifier.NewService(eventnotifier.Options{
		Logger: logger,
		Sinks:  sinks,
	})
}
