package publisher

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// CloudWatchAPI is the subset of the CloudWatch client used by CloudWatchSink.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchSink writes samples as CloudWatch custom metrics.
type CloudWatchSink struct {
	Client CloudWatchAPI
}

// NewCloudWatchSink returns a sink backed by client.
func NewCloudWatchSink(client CloudWatchAPI) *CloudWatchSink {
	return &CloudWatchSink{Client: client}
}

// PutMetric issues one PutMetricData call carrying a single datum.
func (s *CloudWatchSink) PutMetric(ctx context.Context, sample Sample) error {
	dimensions := make([]types.Dimension, 0, len(sample.Dimensions))
	for _, d := range sample.Dimensions {
		dimensions = append(dimensions, types.Dimension{
			Name:  aws.String(d.Name),
			Value: aws.String(d.Value),
		})
	}

	out, err := s.Client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(sample.Namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName:        aws.String(sample.Name),
				Dimensions:        dimensions,
				Timestamp:         aws.Time(sample.Timestamp),
				Value:             aws.Float64(sample.Value),
				Unit:              types.StandardUnit(sample.Unit),
				StorageResolution: aws.Int32(sample.StorageResolution),
			},
		},
	})
	if err != nil {
		return err
	}

	log.FromContext(ctx).WithName("cloudwatch").V(1).Info("PutMetricData response",
		"metric", sample.Name, "requestID", requestID(out))
	return nil
}

func requestID(out *cloudwatch.PutMetricDataOutput) string {
	if out == nil {
		return ""
	}
	id, _ := awsmiddleware.GetRequestIDMetadata(out.ResultMetadata)
	return id
}
