// Package capacity turns per-host resource records into the cluster-wide
// figures an autoscaler reacts to: remaining network interfaces and the
// remaining share of registered CPU and memory. Nothing in this package
// performs I/O; callers fetch hosts and publish results.
package capacity
