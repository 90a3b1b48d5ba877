package capacity

import (
	"errors"
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

var (
	// ErrInvalidInterfacesPerHost is returned when the per-host interface limit is below one.
	ErrInvalidInterfacesPerHost = errors.New("interfaces per host must be at least 1")

	// ErrZeroCPUCapacity is returned when no CPU is registered in the cluster.
	ErrZeroCPUCapacity = errors.New("cluster has no registered CPU")

	// ErrZeroMemoryCapacity is returned when no memory is registered in the cluster.
	ErrZeroMemoryCapacity = errors.New("cluster has no registered memory")
)

// Derive computes the published metrics from a cluster aggregate.
//
// One interface per host is reserved for the host's primary network, so a
// cluster supports (interfacesPerHost-1) interfaces per host. A cluster
// without hosts supports -interfacesPerHost rather than the 0 the formula
// would give; this exception is intentional and signals an empty cluster to
// the autoscaler. The remaining capacity is never clamped.
//
// When a percentage cannot be computed because its denominator is zero the
// matching Defined flag stays false and the returned error wraps
// ErrZeroCPUCapacity or ErrZeroMemoryCapacity; the other values are still
// valid. ErrInvalidInterfacesPerHost leaves the result empty.
func Derive(agg ClusterAggregate, interfacesPerHost int) (DerivedMetrics, error) {
	if interfacesPerHost < 1 {
		return DerivedMetrics{}, fmt.Errorf("%w: got %d", ErrInvalidInterfacesPerHost, interfacesPerHost)
	}

	var m DerivedMetrics

	if agg.HostCount == 0 {
		m.SupportedInterfaceCapacity = -int64(interfacesPerHost)
	} else {
		m.SupportedInterfaceCapacity = int64(interfacesPerHost-1) * agg.HostCount
	}
	m.RemainingInterfaceCapacity = m.SupportedInterfaceCapacity - agg.TotalAttachedInterfaces

	var errs []error

	if agg.AvailableCPU != 0 {
		m.RemainingCPUPercent = (float64(agg.RemainingCPU) / float64(agg.AvailableCPU)) * 100
		m.CPUPercentDefined = true
	} else {
		errs = append(errs, ErrZeroCPUCapacity)
	}

	if agg.AvailableMemory != 0 {
		m.RemainingMemoryPercent = (float64(agg.RemainingMemory) / float64(agg.AvailableMemory)) * 100
		m.MemoryPercentDefined = true
	} else {
		errs = append(errs, ErrZeroMemoryCapacity)
	}

	return m, utilerrors.NewAggregate(errs)
}
