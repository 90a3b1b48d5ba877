package kubernetes

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mehdiazizian/eni-capacity-agent/internal/capacity"
)

// PodENIAnnotation is set by the VPC resource controller on pods that were
// given a branch network interface.
const PodENIAnnotation = "vpc.amazonaws.com/pod-eni"

const mebibyte = 1024 * 1024

// Source collects host snapshots from cluster nodes
type Source struct {
	Client client.Client

	// NodeSelector restricts the nodes considered. Empty selects all nodes.
	NodeSelector map[string]string
}

// ActiveHosts returns one snapshot per Ready, schedulable node. The cluster argument only
// labels log lines; the client already points at a single cluster.
func (s *Source) ActiveHosts(ctx context.Context, cluster string) ([]capacity.HostSnapshot, error) {
	logger := log.FromContext(ctx).WithName("kubernetes-source").WithValues("cluster", cluster)

	nodeList := &corev1.NodeList{}
	if err := s.Client.List(ctx, nodeList, client.MatchingLabels(s.NodeSelector)); err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	podList := &corev1.PodList{}
	if err := s.Client.List(ctx, podList); err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}

	podsByNode := make(map[string][]*corev1.Pod)
	for i := range podList.Items {
		pod := &podList.Items[i]
		if pod.Spec.NodeName == "" || isTerminal(pod) {
			continue
		}
		podsByNode[pod.Spec.NodeName] = append(podsByNode[pod.Spec.NodeName], pod)
	}

	hosts := make([]capacity.HostSnapshot, 0, len(nodeList.Items))
	for i := range nodeList.Items {
		node := &nodeList.Items[i]
		if !isNodeReady(node) {
			logger.V(1).Info("skipping node that is not ready", "node", node.Name)
			continue
		}

		host := nodeSnapshot(node, podsByNode[node.Name])
		logger.V(1).Info("node", "node", host.ID, "enis", host.AttachmentCount)
		hosts = append(hosts, host)
	}

	return hosts, nil
}

func nodeSnapshot(node *corev1.Node, pods []*corev1.Pod) capacity.HostSnapshot {
	requested := corev1.ResourceList{}
	attachments := 0

	for _, pod := range pods {
		if _, ok := pod.Annotations[PodENIAnnotation]; ok {
			attachments++
		}
		for name, q := range podRequests(pod) {
			total := requested[name]
			total.Add(q)
			requested[name] = total
		}
	}

	registered := make(map[string]int64, len(node.Status.Allocatable))
	remaining := make(map[string]int64, len(node.Status.Allocatable))
	for name, allocatable := range node.Status.Allocatable {
		free := allocatable.DeepCopy()
		if used, ok := requested[name]; ok {
			free.Sub(used)
		}
		key := resourceKey(name)
		registered[key] = toUnits(name, allocatable)
		remaining[key] = toUnits(name, free)
	}

	return capacity.HostSnapshot{
		ID:                  node.Name,
		AttachmentCount:     attachments,
		RegisteredResources: registered,
		RemainingResources:  remaining,
	}
}

// podRequests returns the effective requests of a pod: the larger of the sum
// over containers and the largest init container, plus pod overhead.
func podRequests(pod *corev1.Pod) corev1.ResourceList {
	out := corev1.ResourceList{}

	for _, container := range pod.Spec.Containers {
		for name, q := range container.Resources.Requests {
			total := out[name]
			total.Add(q)
			out[name] = total
		}
	}

	for _, initContainer := range pod.Spec.InitContainers {
		for name, q := range initContainer.Resources.Requests {
			if current, ok := out[name]; !ok || q.Cmp(current) > 0 {
				out[name] = q.DeepCopy()
			}
		}
	}

	for name, q := range pod.Spec.Overhead {
		total := out[name]
		total.Add(q)
		out[name] = total
	}

	return out
}

// resourceKey maps core resources to the orchestrator names the aggregator
// understands and passes everything else through.
func resourceKey(name corev1.ResourceName) string {
	switch name {
	case corev1.ResourceCPU:
		return capacity.ResourceCPU
	case corev1.ResourceMemory:
		return capacity.ResourceMemory
	default:
		return string(name)
	}
}

// toUnits converts CPU to millicores and memory to MiB.
func toUnits(name corev1.ResourceName, q resource.Quantity) int64 {
	switch name {
	case corev1.ResourceCPU:
		return q.MilliValue()
	case corev1.ResourceMemory:
		return q.Value() / mebibyte
	default:
		return q.Value()
	}
}

func isTerminal(pod *corev1.Pod) bool {
	return pod.Status.Phase == corev1.PodSucceeded || pod.Status.Phase == corev1.PodFailed
}

// isNodeReady checks if a node is in Ready condition
func isNodeReady(node *corev1.Node) bool {
	if node.Spec.Unschedulable {
		return false
	}
	for _, condition := range node.Status.Conditions {
		if condition.Type == corev1.NodeReady {
			return condition.Status == corev1.ConditionTrue
		}
	}
	return false
}
