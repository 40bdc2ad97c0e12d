// Package metrics records build observability data.
//
// Pipeline code receives a Recorder and never checks whether metrics are
// enabled: NoopRecorder is the default and PrometheusRecorder is injected
// when a registry exists. Short-lived builds hand their registry to Push so
// a Pushgateway can keep the samples after the process exits. Long-running
// watch mode serves the same registry through HTTPHandler.
package metrics
