// Package setup builds a handler from configuration, creating the clients
// for the selected host source and metric sink.
package setup

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/mehdiazizian/eni-capacity-agent/internal/config"
	"github.com/mehdiazizian/eni-capacity-agent/internal/handler"
	"github.com/mehdiazizian/eni-capacity-agent/internal/publisher"
	"github.com/mehdiazizian/eni-capacity-agent/internal/source"
	"github.com/mehdiazizian/eni-capacity-agent/internal/source/ecs"
	"github.com/mehdiazizian/eni-capacity-agent/internal/source/kubernetes"
)

var scheme = runtime.NewScheme()

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
}

// Clients lets callers supply pre-built clients. Nil fields are created from
// the environment.
type Clients struct {
	ECS        ecs.API
	CloudWatch publisher.CloudWatchAPI
	Kubernetes client.Client
}

// NewHandler validates cfg and assembles a handler for it.
func NewHandler(ctx context.Context, cfg *config.Config, clients Clients) (*handler.Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	needsAWS := (cfg.HostSource == config.SourceECS && clients.ECS == nil) ||
		(cfg.Sink == config.SinkCloudWatch && clients.CloudWatch == nil)

	var awsCfg aws.Config
	if needsAWS {
		var err error
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
		}
	}

	src, err := newSource(cfg, clients, awsCfg)
	if err != nil {
		return nil, err
	}

	sink := newSink(cfg, clients, awsCfg)

	return &handler.Handler{
		Source: src,
		Publisher: &publisher.Publisher{
			Sink:      sink,
			Namespace: cfg.Metrics.Namespace,
			Names: publisher.MetricNames{
				RemainingInterfaces: cfg.Metrics.RemainingENIName,
				RemainingCPU:        cfg.Metrics.RemainingCPUName,
				RemainingMemory:     cfg.Metrics.RemainingMemoryName,
			},
			DimensionName:     cfg.Metrics.DimensionName,
			DimensionValue:    cfg.ClusterName,
			StorageResolution: int32(cfg.Metrics.StorageResolution),
		},
		ClusterName:       cfg.ClusterName,
		InterfacesPerHost: cfg.InterfacesPerHost,
		Clock:             clock.RealClock{},
	}, nil
}

func newSource(cfg *config.Config, clients Clients, awsCfg aws.Config) (source.HostSource, error) {
	switch cfg.HostSource {
	case config.SourceKubernetes:
		selector, err := cfg.NodeLabels()
		if err != nil {
			return nil, fmt.Errorf("invalid node selector %q: %w", cfg.NodeSelector, err)
		}

		c := clients.Kubernetes
		if c == nil {
			restCfg, err := ctrl.GetConfig()
			if err != nil {
				return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
			}
			c, err = client.New(restCfg, client.Options{Scheme: scheme})
			if err != nil {
				return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
			}
		}
		return &kubernetes.Source{Client: c, NodeSelector: selector}, nil

	default:
		c := clients.ECS
		if c == nil {
			c = awsecs.NewFromConfig(awsCfg)
		}
		return ecs.New(c), nil
	}
}

func newSink(cfg *config.Config, clients Clients, awsCfg aws.Config) publisher.Sink {
	switch cfg.Sink {
	case config.SinkPushgateway:
		return publisher.NewPushgatewaySink(cfg.Pushgateway.URL, cfg.Pushgateway.Job)
	default:
		c := clients.CloudWatch
		if c == nil {
			c = cloudwatch.NewFromConfig(awsCfg)
		}
		return publisher.NewCloudWatchSink(c)
	}
}
