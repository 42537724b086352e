package main

import (
	"go.uber.org/zap"

	"dbstream/internal/config"
	"dbstream/internal/metrics"
	"dbstream/internal/metrics/datadog"
	"dbstream/internal/metrics/prompush"
)

// setupMetrics installs the configured metrics backend and returns a flush
// function to run when the command finishes. Backend failures fall back to
// the nop backend.
func setupMetrics(m config.Metrics, job string, log *zap.Logger) func() {
	var b metrics.Backend
	switch m.Backend {
	case "pushgateway":
		pb, err := prompush.NewBackend(job, m.PushgatewayURL)
		if err != nil {
			log.Warn("metrics: failed to init prom push backend; using nop", zap.Error(err))
			return func() {}
		}
		b = pb
	case "datadog":
		db, err := datadog.NewBackend(datadog.Config{
			Addr:      m.DatadogAddr,
			Namespace: "dbstream.",
			Job:       job,
		})
		if err != nil {
			log.Warn("metrics: failed to init datadog backend; using nop", zap.Error(err))
			return func() {}
		}
		b = db
	case "", "none":
		log.Debug("metrics: disabled")
		return func() {}
	default:
		log.Warn("metrics: unknown backend; metrics disabled", zap.String("backend", m.Backend))
		return func() {}
	}

	log.Info("metrics: enabled", zap.String("backend", m.Backend), zap.String("job", job))
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics: flush error", zap.Error(err))
		}
	}
}
