package publisher_test

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mehdiazizian/eni-capacity-agent/internal/publisher"
)

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

var _ = Describe("CloudWatchSink", func() {
	var (
		ctx    context.Context
		client *fakeCloudWatch
		sample publisher.Sample
	)

	BeforeEach(func() {
		ctx = context.Background()
		client = &fakeCloudWatch{}
		sample = publisher.Sample{
			Namespace:         "ECS/ClusterCapacity",
			Name:              "ecs-remaining-eni",
			Dimensions:        []publisher.Dimension{{Name: "ClusterName", Value: "ecs-autoscaling"}},
			Timestamp:         time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC),
			Value:             15,
			Unit:              publisher.UnitCount,
			StorageResolution: 1,
		}
	})

	It("should put a single high-resolution datum", func() {
		Expect(publisher.NewCloudWatchSink(client).PutMetric(ctx, sample)).To(Succeed())

		Expect(client.inputs).To(HaveLen(1))
		in := client.inputs[0]
		Expect(aws.ToString(in.Namespace)).To(Equal("ECS/ClusterCapacity"))
		Expect(in.MetricData).To(HaveLen(1))

		datum := in.MetricData[0]
		Expect(aws.ToString(datum.MetricName)).To(Equal("ecs-remaining-eni"))
		Expect(datum.Dimensions).To(HaveLen(1))
		Expect(aws.ToString(datum.Dimensions[0].Name)).To(Equal("ClusterName"))
		Expect(aws.ToString(datum.Dimensions[0].Value)).To(Equal("ecs-autoscaling"))
		Expect(aws.ToTime(datum.Timestamp)).To(Equal(sample.Timestamp))
		Expect(aws.ToFloat64(datum.Value)).To(Equal(15.0))
		Expect(datum.Unit).To(Equal(types.StandardUnitCount))
		Expect(aws.ToInt32(datum.StorageResolution)).To(Equal(int32(1)))
	})

	It("should return the client error", func() {
		client.err = errors.New("InvalidParameterValue")

		err := publisher.NewCloudWatchSink(client).PutMetric(ctx, sample)

		Expect(err).To(MatchError(client.err))
	})
})
