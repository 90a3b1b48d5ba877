package ecs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mehdiazizian/eni-capacity-agent/internal/capacity"
)

// describeBatchSize is the DescribeContainerInstances limit per request.
const describeBatchSize = 100

// API is the subset of the ECS client used to read container instances.
type API interface {
	awsecs.ListContainerInstancesAPIClient
	DescribeContainerInstances(ctx context.Context, params *awsecs.DescribeContainerInstancesInput, optFns ...func(*awsecs.Options)) (*awsecs.DescribeContainerInstancesOutput, error)
}

// Source reads hosts from the container instances registered to an ECS cluster.
type Source struct {
	Client API
}

// New returns a Source backed by client.
func New(client API) *Source {
	return &Source{Client: client}
}

// ActiveHosts lists the ACTIVE container instances of cluster and describes them.
func (s *Source) ActiveHosts(ctx context.Context, cluster string) ([]capacity.HostSnapshot, error) {
	logger := log.FromContext(ctx).WithName("ecs-source")

	arns, err := s.listActive(ctx, cluster)
	if err != nil {
		return nil, err
	}
	for _, arn := range arns {
		logger.V(1).Info("found container instance", "arn", arn)
	}

	hosts := make([]capacity.HostSnapshot, 0, len(arns))
	for start := 0; start < len(arns); start += describeBatchSize {
		end := min(start+describeBatchSize, len(arns))

		out, err := s.Client.DescribeContainerInstances(ctx, &awsecs.DescribeContainerInstancesInput{
			Cluster:            aws.String(cluster),
			ContainerInstances: arns[start:end],
		})
		if err != nil {
			return nil, fmt.Errorf("failed to describe container instances: %w", err)
		}
		if len(out.Failures) > 0 {
			for _, f := range out.Failures {
				logger.Error(nil, "container instance could not be described",
					"arn", aws.ToString(f.Arn), "reason", aws.ToString(f.Reason), "detail", aws.ToString(f.Detail))
			}
			return nil, fmt.Errorf("failed to describe %d container instances in cluster %s", len(out.Failures), cluster)
		}

		for _, ci := range out.ContainerInstances {
			host := toSnapshot(ci)
			logger.V(1).Info("container instance", "instanceID", host.ID, "enis", host.AttachmentCount)
			hosts = append(hosts, host)
		}
	}

	return hosts, nil
}

func (s *Source) listActive(ctx context.Context, cluster string) ([]string, error) {
	var arns []string

	paginator := awsecs.NewListContainerInstancesPaginator(s.Client, &awsecs.ListContainerInstancesInput{
		Cluster: aws.String(cluster),
		Status:  types.ContainerInstanceStatusActive,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list container instances: %w", err)
		}
		arns = append(arns, page.ContainerInstanceArns...)
	}

	return arns, nil
}

func toSnapshot(ci types.ContainerInstance) capacity.HostSnapshot {
	id := aws.ToString(ci.Ec2InstanceId)
	if id == "" {
		id = aws.ToString(ci.ContainerInstanceArn)
	}

	return capacity.HostSnapshot{
		ID:                  id,
		AttachmentCount:     len(ci.Attachments),
		RegisteredResources: resourceMap(ci.RegisteredResources),
		RemainingResources:  resourceMap(ci.RemainingResources),
	}
}

// resourceMap indexes resources by name. PORTS-style resources carry a
// string set instead of an integer and map to zero.
func resourceMap(resources []types.Resource) map[string]int64 {
	out := make(map[string]int64, len(resources))
	for _, r := range resources {
		name := aws.ToString(r.Name)
		if name == "" {
			continue
		}
		out[name] += int64(r.IntegerValue)
	}
	return out
}
