package publisher

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/prometheus/common/model"
)

// PushgatewaySink pushes each sample as a gauge to a Prometheus Pushgateway.
// The Pushgateway records its own push time, so sample timestamps are dropped.
type PushgatewaySink struct {
	URL string
	Job string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient push.HTTPDoer
}

// NewPushgatewaySink returns a sink pushing to url under job.
func NewPushgatewaySink(url, job string) *PushgatewaySink {
	return &PushgatewaySink{URL: url, Job: job}
}

// PutMetric pushes a single gauge with POST semantics, so metrics of other
// calls in the same group are kept.
func (s *PushgatewaySink) PutMetric(ctx context.Context, sample Sample) error {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: model.EscapeName(sample.Namespace, model.UnderscoreEscaping),
		Name:      model.EscapeName(sample.Name, model.UnderscoreEscaping),
		Help:      fmt.Sprintf("%s (%s)", sample.Name, strings.ToLower(sample.Unit)),
	})
	gauge.Set(sample.Value)

	pusher := push.New(s.URL, s.Job).Collector(gauge)
	for _, d := range sample.Dimensions {
		pusher = pusher.Grouping(labelName(d.Name), d.Value)
	}

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	if err := pusher.Client(client).AddContext(ctx); err != nil {
		return fmt.Errorf("failed to push to %s: %w", s.URL, err)
	}
	return nil
}

// labelName escapes a dimension name like a metric name; label names
// additionally exclude colons.
func labelName(s string) string {
	return strings.ReplaceAll(model.EscapeName(s, model.UnderscoreEscaping), ":", "_")
}
