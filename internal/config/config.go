// Package config holds the static deployment configuration. Values come from
// environment variables (the Lambda runtime) and can be overridden by flags
// (the command line runner).
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"k8s.io/apimachinery/pkg/labels"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// Host sources.
const (
	SourceECS        = "ecs"
	SourceKubernetes = "kubernetes"
)

// Metric sinks.
const (
	SinkCloudWatch  = "cloudwatch"
	SinkPushgateway = "pushgateway"
)

// Config holds all application configuration.
type Config struct {
	// ClusterName selects the cluster to inspect and is the metric dimension value
	ClusterName string

	// InterfacesPerHost is the ENI limit of the cluster's instance type
	InterfacesPerHost int

	Metrics    MetricsConfig
	HostSource string
	Sink       string

	Pushgateway PushgatewayConfig

	// NodeSelector restricts the Kubernetes nodes considered, as key=value pairs
	NodeSelector string

	Debug bool

	// loadErrs holds environment values Load could not parse
	loadErrs []error
}

type MetricsConfig struct {
	Namespace     string
	DimensionName string

	RemainingENIName    string
	RemainingCPUName    string
	RemainingMemoryName string

	StorageResolution int
}

type PushgatewayConfig struct {
	URL string
	Job string
}

// Load loads configuration from environment variables with defaults. Values
// that cannot be parsed are reported by Validate.
func Load() *Config {
	var errs []error
	envInt := func(key string, defaultValue int) int { return getEnvInt(key, defaultValue, &errs) }
	envBool := func(key string, defaultValue bool) bool { return getEnvBool(key, defaultValue, &errs) }

	cfg := &Config{
		ClusterName:       getEnv("ECS_CLUSTER_NAME", "ecs-autoscaling"),
		InterfacesPerHost: envInt("ENI_PER_INSTANCE", 8),
		Metrics: MetricsConfig{
			Namespace:           getEnv("METRIC_NAMESPACE", "ECS/ClusterCapacity"),
			DimensionName:       getEnv("METRIC_DIMENSION_NAME", "ClusterName"),
			RemainingENIName:    getEnv("METRIC_NAME_ENI", "ecs-remaining-eni"),
			RemainingCPUName:    getEnv("METRIC_NAME_CPU", "ecs-remaining-cpu"),
			RemainingMemoryName: getEnv("METRIC_NAME_MEMORY", "ecs-remaining-mem"),
			StorageResolution:   envInt("METRIC_STORAGE_RESOLUTION", 1),
		},
		HostSource: getEnv("HOST_SOURCE", SourceECS),
		Sink:       getEnv("METRIC_SINK", SinkCloudWatch),
		Pushgateway: PushgatewayConfig{
			URL: getEnv("PUSHGATEWAY_URL", ""),
			Job: getEnv("PUSHGATEWAY_JOB", "eni-capacity"),
		},
		NodeSelector: getEnv("NODE_SELECTOR", ""),
		Debug:        envBool("DEBUG", false),
	}
	cfg.loadErrs = errs

	return cfg
}

// BindFlags registers a flag for every field, using the current values as defaults.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ClusterName, "cluster-name", c.ClusterName, "Cluster to inspect; also the metric dimension value")
	fs.IntVar(&c.InterfacesPerHost, "interfaces-per-host", c.InterfacesPerHost,
		"Maximum network interfaces supported by the cluster's instance type")
	fs.StringVar(&c.Metrics.Namespace, "metric-namespace", c.Metrics.Namespace, "Namespace of the published metrics")
	fs.StringVar(&c.Metrics.DimensionName, "metric-dimension-name", c.Metrics.DimensionName,
		"Dimension name carrying the cluster name")
	fs.StringVar(&c.Metrics.RemainingENIName, "metric-name-eni", c.Metrics.RemainingENIName, "Name of the remaining interfaces metric")
	fs.StringVar(&c.Metrics.RemainingCPUName, "metric-name-cpu", c.Metrics.RemainingCPUName, "Name of the remaining CPU percent metric")
	fs.StringVar(&c.Metrics.RemainingMemoryName, "metric-name-memory", c.Metrics.RemainingMemoryName,
		"Name of the remaining memory percent metric")
	fs.IntVar(&c.Metrics.StorageResolution, "metric-storage-resolution", c.Metrics.StorageResolution,
		"Storage resolution in seconds (1 for high resolution, 60 for standard)")
	fs.StringVar(&c.HostSource, "host-source", c.HostSource, "Where hosts are read from (ecs|kubernetes)")
	fs.StringVar(&c.Sink, "metric-sink", c.Sink, "Where metrics are published (cloudwatch|pushgateway)")
	fs.StringVar(&c.Pushgateway.URL, "pushgateway-url", c.Pushgateway.URL, "Pushgateway URL (e.g., http://pushgateway:9091)")
	fs.StringVar(&c.Pushgateway.Job, "pushgateway-job", c.Pushgateway.Job, "Pushgateway job label")
	fs.StringVar(&c.NodeSelector, "node-selector", c.NodeSelector,
		"Label selector for Kubernetes nodes, comma separated key=value pairs")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "Enable verbose diagnostic output")
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.loadErrs...)

	if c.ClusterName == "" {
		errs = append(errs, errors.New("cluster name must not be empty"))
	}
	if c.InterfacesPerHost < 1 {
		errs = append(errs, fmt.Errorf("interfaces per host must be at least 1, got %d", c.InterfacesPerHost))
	}
	if c.Metrics.Namespace == "" {
		errs = append(errs, errors.New("metric namespace must not be empty"))
	}
	if c.Metrics.DimensionName == "" {
		errs = append(errs, errors.New("metric dimension name must not be empty"))
	}
	if c.Metrics.RemainingENIName == "" || c.Metrics.RemainingCPUName == "" || c.Metrics.RemainingMemoryName == "" {
		errs = append(errs, errors.New("metric names must not be empty"))
	}
	if c.Metrics.StorageResolution != 1 && c.Metrics.StorageResolution != 60 {
		errs = append(errs, fmt.Errorf("storage resolution must be 1 or 60, got %d", c.Metrics.StorageResolution))
	}

	switch c.HostSource {
	case SourceECS, SourceKubernetes:
	default:
		errs = append(errs, fmt.Errorf("unknown host source %q", c.HostSource))
	}

	if _, err := c.NodeLabels(); err != nil {
		errs = append(errs, fmt.Errorf("invalid node selector %q: %w", c.NodeSelector, err))
	}

	switch c.Sink {
	case SinkCloudWatch:
	case SinkPushgateway:
		if _, err := url.ParseRequestURI(c.Pushgateway.URL); err != nil {
			errs = append(errs, fmt.Errorf("invalid pushgateway url %q: %w", c.Pushgateway.URL, err))
		}
		if c.Pushgateway.Job == "" {
			errs = append(errs, errors.New("pushgateway job must not be empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown metric sink %q", c.Sink))
	}

	return utilerrors.NewAggregate(errs)
}

// NodeLabels parses NodeSelector. An empty selector yields nil.
func (c *Config) NodeLabels() (map[string]string, error) {
	if c.NodeSelector == "" {
		return nil, nil
	}
	set, err := labels.ConvertSelectorToLabelsMap(c.NodeSelector)
	if err != nil {
		return nil, err
	}
	return set, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s %q: %w", key, value, err))
		return defaultValue
	}
	return i
}

func getEnvBool(key string, defaultValue bool, errs *[]error) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s %q: %w", key, value, err))
		return defaultValue
	}
	return b
}
