// Package source defines where host snapshots come from.
package source

import (
	"context"

	"github.com/mehdiazizian/eni-capacity-agent/internal/capacity"
)

// HostSource abstracts the cluster orchestration API (agent-side interface)
// Implementations: ECS container instances, Kubernetes nodes.
type HostSource interface {
	// ActiveHosts returns one snapshot per host currently in the active state
	ActiveHosts(ctx context.Context, cluster string) ([]capacity.HostSnapshot, error)
}
