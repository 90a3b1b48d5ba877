package capacity

// Aggregate sums a host snapshot into cluster totals. Resource names other
// than CPU and MEMORY are ignored. An empty snapshot yields the zero value.
func Aggregate(hosts []HostSnapshot) ClusterAggregate {
	var agg ClusterAggregate

	for _, host := range hosts {
		agg.HostCount++
		agg.TotalAttachedInterfaces += int64(host.AttachmentCount)

		for name, value := range host.RegisteredResources {
			switch name {
			case ResourceCPU:
				agg.AvailableCPU += value
			case ResourceMemory:
				agg.AvailableMemory += value
			}
		}

		for name, value := range host.RemainingResources {
			switch name {
			case ResourceCPU:
				agg.RemainingCPU += value
			case ResourceMemory:
				agg.RemainingMemory += value
			}
		}
	}

	return agg
}
