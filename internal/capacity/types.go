package capacity

import "fmt"

// Resource names as reported by the container orchestrator.
const (
	ResourceCPU    = "CPU"
	ResourceMemory = "MEMORY"
)

// HostSnapshot is one active host as seen at fetch time.
type HostSnapshot struct {
	// ID identifies the host in logs only.
	ID string

	// AttachmentCount is the number of network interfaces attached to the host
	AttachmentCount int

	// RegisteredResources is the capacity the host advertised, keyed by resource name.
	// CPU is in CPU units, memory in MiB.
	RegisteredResources map[string]int64

	// RemainingResources is the unallocated part of RegisteredResources
	RemainingResources map[string]int64
}

// ClusterAggregate holds the sums over all hosts of a snapshot.
type ClusterAggregate struct {
	HostCount               int64
	TotalAttachedInterfaces int64

	AvailableCPU    int64
	AvailableMemory int64
	RemainingCPU    int64
	RemainingMemory int64
}

// Anomalies reports upstream inconsistencies in the aggregate. They never
// stop an invocation.
func (a ClusterAggregate) Anomalies() []string {
	var out []string
	if a.RemainingCPU > a.AvailableCPU {
		out = append(out, fmt.Sprintf("remaining CPU %d exceeds registered CPU %d", a.RemainingCPU, a.AvailableCPU))
	}
	if a.RemainingMemory > a.AvailableMemory {
		out = append(out, fmt.Sprintf("remaining memory %d exceeds registered memory %d", a.RemainingMemory, a.AvailableMemory))
	}
	return out
}

// DerivedMetrics are the values published for a cluster.
type DerivedMetrics struct {
	// SupportedInterfaceCapacity is the number of interfaces the hosts can hand
	// out to tasks, one interface per host being kept for the host itself.
	SupportedInterfaceCapacity int64

	// RemainingInterfaceCapacity may be negative when hosts already carry more
	// attachments than supported.
	RemainingInterfaceCapacity int64

	RemainingCPUPercent    float64
	RemainingMemoryPercent float64

	// CPUPercentDefined and MemoryPercentDefined are false when the cluster has
	// no registered capacity of that kind.
	CPUPercentDefined    bool
	MemoryPercentDefined bool
}
