package publisher_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mehdiazizian/eni-capacity-agent/internal/capacity"
	"github.com/mehdiazizian/eni-capacity-agent/internal/publisher"
)

// recordingSink stores every sample and fails for names listed in failFor.
type recordingSink struct {
	samples []publisher.Sample
	failFor map[string]error
}

func (s *recordingSink) PutMetric(_ context.Context, sample publisher.Sample) error {
	s.samples = append(s.samples, sample)
	if err, ok := s.failFor[sample.Name]; ok {
		return err
	}
	return nil
}

func newPublisher(sink publisher.Sink) *publisher.Publisher {
	return &publisher.Publisher{
		Sink:      sink,
		Namespace: "ECS/ClusterCapacity",
		Names: publisher.MetricNames{
			RemainingInterfaces: "ecs-remaining-eni",
			RemainingCPU:        "ecs-remaining-cpu",
			RemainingMemory:     "ecs-remaining-mem",
		},
		DimensionName:     "ClusterName",
		DimensionValue:    "ecs-autoscaling",
		StorageResolution: 1,
	}
}

var _ = Describe("Publisher", func() {
	var (
		ctx       context.Context
		sink      *recordingSink
		timestamp time.Time
		metrics   capacity.DerivedMetrics
	)

	BeforeEach(func() {
		ctx = context.Background()
		sink = &recordingSink{}
		timestamp = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
		metrics = capacity.DerivedMetrics{
			RemainingInterfaceCapacity: -1,
			RemainingCPUPercent:        100.0 / 3,
			RemainingMemoryPercent:     12.5,
			CPUPercentDefined:          true,
			MemoryPercentDefined:       true,
		}
	})

	It("should send one sample per metric with shared attributes", func() {
		Expect(newPublisher(sink).Publish(ctx, metrics, timestamp)).To(Succeed())

		Expect(sink.samples).To(HaveLen(3))
		Expect(sink.samples[0].Name).To(Equal("ecs-remaining-eni"))
		Expect(sink.samples[0].Value).To(Equal(-1.0))
		Expect(sink.samples[1].Name).To(Equal("ecs-remaining-cpu"))
		Expect(sink.samples[1].Value).To(Equal(100.0 / 3))
		Expect(sink.samples[2].Name).To(Equal("ecs-remaining-mem"))
		Expect(sink.samples[2].Value).To(Equal(12.5))

		for _, s := range sink.samples {
			Expect(s.Namespace).To(Equal("ECS/ClusterCapacity"))
			Expect(s.Dimensions).To(Equal([]publisher.Dimension{{Name: "ClusterName", Value: "ecs-autoscaling"}}))
			Expect(s.Timestamp).To(Equal(timestamp))
			Expect(s.Unit).To(Equal(publisher.UnitCount))
			Expect(s.StorageResolution).To(Equal(int32(1)))
		}
	})

	It("should skip undefined percentages", func() {
		metrics.CPUPercentDefined = false
		metrics.MemoryPercentDefined = false

		Expect(newPublisher(sink).Publish(ctx, metrics, timestamp)).To(Succeed())

		Expect(sink.samples).To(HaveLen(1))
		Expect(sink.samples[0].Name).To(Equal("ecs-remaining-eni"))
	})

	It("should attempt every metric when one publish fails", func() {
		throttled := errors.New("Throttling: Rate exceeded")
		sink.failFor = map[string]error{"ecs-remaining-cpu": throttled}

		err := newPublisher(sink).Publish(ctx, metrics, timestamp)

		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, throttled)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("ecs-remaining-cpu"))
		Expect(sink.samples).To(HaveLen(3))
	})

	It("should report every failed metric", func() {
		down := errors.New("connection refused")
		sink.failFor = map[string]error{
			"ecs-remaining-eni": down,
			"ecs-remaining-cpu": down,
			"ecs-remaining-mem": down,
		}

		err := newPublisher(sink).Publish(ctx, metrics, timestamp)

		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("ecs-remaining-eni"))
		Expect(err.Error()).To(ContainSubstring("ecs-remaining-mem"))
		Expect(sink.samples).To(HaveLen(3))
	})
})
