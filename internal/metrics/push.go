package metrics

import (
	"context"
	"fmt"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends every metric of reg to a Prometheus Pushgateway, replacing the
// metrics previously pushed under job. buildID, when set, is added as the
// "instance" grouping label.
func Push(ctx context.Context, gatewayURL, job, buildID string, reg *prom.Registry) error {
	p := push.New(gatewayURL, job).Gatherer(reg)
	if buildID != "" {
		p = p.Grouping("instance", buildID)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
