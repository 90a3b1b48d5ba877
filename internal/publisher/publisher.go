// Package publisher emits derived capacity metrics to a metrics backend,
// one data point per backend call.
package publisher

import (
	"context"
	"fmt"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mehdiazizian/eni-capacity-agent/internal/capacity"
)

// UnitCount is the unit declared on every published sample.
const UnitCount = "Count"

// Dimension is a name/value pair attached to a sample.
type Dimension struct {
	Name  string
	Value string
}

// Sample is a single timestamped metric data point.
type Sample struct {
	Namespace  string
	Name       string
	Dimensions []Dimension
	Timestamp  time.Time
	Value      float64
	Unit       string

	// StorageResolution is the storage granularity in seconds.
	StorageResolution int32
}

// Sink abstracts the metrics backend (publisher-side interface)
// Implementations: CloudWatch, Prometheus Pushgateway.
type Sink interface {
	// PutMetric stores one sample
	PutMetric(ctx context.Context, sample Sample) error
}

// MetricNames names the three published metrics.
type MetricNames struct {
	RemainingInterfaces string
	RemainingCPU        string
	RemainingMemory     string
}

// Publisher turns DerivedMetrics into samples and hands them to a Sink.
type Publisher struct {
	Sink Sink

	Namespace         string
	Names             MetricNames
	DimensionName     string
	DimensionValue    string
	StorageResolution int32
}

// Publish sends one sample per defined metric, all sharing timestamp. Every
// metric is attempted; failures are returned together.
func (p *Publisher) Publish(ctx context.Context, m capacity.DerivedMetrics, timestamp time.Time) error {
	logger := log.FromContext(ctx).WithName("publisher")

	type point struct {
		name  string
		value float64
	}

	points := []point{{p.Names.RemainingInterfaces, float64(m.RemainingInterfaceCapacity)}}
	if m.CPUPercentDefined {
		points = append(points, point{p.Names.RemainingCPU, m.RemainingCPUPercent})
	}
	if m.MemoryPercentDefined {
		points = append(points, point{p.Names.RemainingMemory, m.RemainingMemoryPercent})
	}

	var errs []error
	for _, pt := range points {
		sample := Sample{
			Namespace:         p.Namespace,
			Name:              pt.name,
			Dimensions:        []Dimension{{Name: p.DimensionName, Value: p.DimensionValue}},
			Timestamp:         timestamp,
			Value:             pt.value,
			Unit:              UnitCount,
			StorageResolution: p.StorageResolution,
		}

		if err := p.Sink.PutMetric(ctx, sample); err != nil {
			logger.Error(err, "Failed to publish metric", "metric", pt.name, "value", pt.value)
			errs = append(errs, fmt.Errorf("failed to publish %s: %w", pt.name, err))
			continue
		}
		logger.Info("Published metric", "namespace", p.Namespace, "metric", pt.name, "value", pt.value)
	}

	return utilerrors.NewAggregate(errs)
}
