// Package kubernetes reads host snapshots from the nodes of a Kubernetes
// cluster. Node allocatable resources are reported as registered capacity,
// allocatable minus the requests of the pods bound to the node as remaining
// capacity, and pods holding a branch network interface as attachments.
package kubernetes
