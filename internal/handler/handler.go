/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mehdiazizian/eni-capacity-agent/internal/capacity"
	"github.com/mehdiazizian/eni-capacity-agent/internal/publisher"
	"github.com/mehdiazizian/eni-capacity-agent/internal/source"
)

// Complete is returned by a successful invocation.
const Complete = "complete"

// Handler runs one capacity evaluation per trigger event. It keeps no state
// between calls and may be invoked concurrently.
type Handler struct {
	Source    source.HostSource
	Publisher *publisher.Publisher

	ClusterName       string
	InterfacesPerHost int

	// Clock provides the capture timestamp; defaults to the real clock.
	Clock clock.PassiveClock
}

// Handle fetches the cluster's active hosts, derives the capacity metrics and
// publishes them. The event payload is not inspected.
//
// A cluster without registered CPU or memory is reported as an error in the
// log and the matching percentage metric is skipped; the invocation still
// completes. Fetch and publish failures fail the invocation.
func (h *Handler) Handle(ctx context.Context, _ json.RawMessage) (string, error) {
	logger := log.FromContext(ctx).WithName("handler").WithValues("cluster", h.ClusterName)
	ctx = log.IntoContext(ctx, logger)

	hosts, err := h.Source.ActiveHosts(ctx, h.ClusterName)
	if err != nil {
		return "", fmt.Errorf("failed to fetch hosts of cluster %s: %w", h.ClusterName, err)
	}

	agg := capacity.Aggregate(hosts)
	logger.Info("Aggregated cluster resources",
		"instances", agg.HostCount,
		"attachedENIs", agg.TotalAttachedInterfaces)
	logResources(logger, agg)
	for _, anomaly := range agg.Anomalies() {
		logger.Info("Inconsistent resource figures reported by the cluster", "severity", "warning", "anomaly", anomaly)
	}

	derived, err := capacity.Derive(agg, h.InterfacesPerHost)
	switch {
	case errors.Is(err, capacity.ErrInvalidInterfacesPerHost):
		return "", err
	case err != nil:
		logger.Error(err, "Cluster has no registered capacity, skipping percentage metrics",
			"availableCPU", agg.AvailableCPU,
			"availableMemory", agg.AvailableMemory)
	}

	logger.Info("Derived capacity metrics",
		"supportedENIs", derived.SupportedInterfaceCapacity,
		"availableENIs", derived.RemainingInterfaceCapacity,
		"cpuPercent", roundedPercent(derived.RemainingCPUPercent, derived.CPUPercentDefined),
		"memoryPercent", roundedPercent(derived.RemainingMemoryPercent, derived.MemoryPercentDefined))

	if err := h.Publisher.Publish(ctx, derived, h.now()); err != nil {
		return "", fmt.Errorf("failed to publish metrics: %w", err)
	}

	return Complete, nil
}

func (h *Handler) now() time.Time {
	if h.Clock == nil {
		return clock.RealClock{}.Now()
	}
	return h.Clock.Now()
}

// logResources prints the totals in cores and GiB.
func logResources(logger logr.Logger, agg capacity.ClusterAggregate) {
	logger.V(1).Info("Registered cluster resources",
		"cpuCores", math.Round(float64(agg.AvailableCPU)/1024),
		"memoryGiB", math.Round(float64(agg.AvailableMemory)/1024))
	logger.V(1).Info("Remaining cluster resources",
		"cpuCores", math.Round(float64(agg.RemainingCPU)/1024),
		"memoryGiB", math.Round(float64(agg.RemainingMemory)/1024))
}

func roundedPercent(v float64, defined bool) string {
	if !defined {
		return "undefined"
	}
	return fmt.Sprintf("%.0f%%", v)
}
