package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/eventstream/kafka"
	"github.com/papercomputeco/recall/pkg/logger"
)

type fakeWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
	deadline time.Time
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	f.deadline, _ = ctx.Deadline()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var writer *fakeWriter

	BeforeEach(func() {
		writer = &fakeWriter{}
	})

	newPublisher := func() *kafka.Publisher {
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: []string{"localhost:9092"},
			Topic:   "recall.retrievals",
			Writer:  writer,
		}, logger.Nop())
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
		return p
	}

	Describe("NewPublisher", func() {
		It("rejects empty brokers", func() {
			_, err := kafka.NewPublisher(kafka.Config{Topic: "t"}, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("broker")))
		})

		It("rejects an empty topic", func() {
			_, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}}, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("topic")))
		})

		It("rejects a nil logger", func() {
			_, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"b"}, Topic: "t"}, nil)
			Expect(err).To(MatchError("logger is required"))
		})

		It("builds a kafka-go writer when none is injected", func() {
			p, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}, Topic: "t"}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Close()).To(Succeed())
		})
	})

	Describe("PublishRetrieval", func() {
		It("returns ErrNilRetrievalEvent for nil events", func() {
			Expect(newPublisher().PublishRetrieval(context.Background(), nil)).
				To(MatchError(eventstream.ErrNilRetrievalEvent))
			Expect(writer.messages).To(BeEmpty())
		})

		It("writes the event as JSON keyed by method", func() {
			event := eventstream.NewRetrievalCompletedEvent(
				eventstream.EventSource{Surface: "api"},
				eventstream.RetrievalRequest{Method: "bm25", Query: "q", TopK: 5},
				2, nil,
			)

			Expect(newPublisher().PublishRetrieval(context.Background(), event)).To(Succeed())
			Expect(writer.messages).To(HaveLen(1))

			msg := writer.messages[0]
			Expect(string(msg.Key)).To(Equal("bm25"))
			Expect(msg.Headers).To(ContainElement(kafkago.Header{Key: "event_id", Value: []byte(event.EventID)}))

			var got eventstream.RetrievalCompletedEvent
			Expect(json.Unmarshal(msg.Value, &got)).To(Succeed())
			Expect(got.EventID).To(Equal(event.EventID))
			Expect(got.Result.Count).To(Equal(2))
		})

		It("bounds the write with a deadline", func() {
			event := eventstream.NewRetrievalCompletedEvent(eventstream.EventSource{}, eventstream.RetrievalRequest{}, 0, nil)
			Expect(newPublisher().PublishRetrieval(context.Background(), event)).To(Succeed())
			Expect(writer.deadline).NotTo(BeZero())
		})

		It("wraps writer failures", func() {
			writer.err = errors.New("broker down")
			event := eventstream.NewRetrievalCompletedEvent(eventstream.EventSource{}, eventstream.RetrievalRequest{}, 0, nil)

			err := newPublisher().PublishRetrieval(context.Background(), event)
			Expect(err).To(MatchError(ContainSubstring("broker down")))
			Expect(err).To(MatchError(ContainSubstring("recall.retrievals")))
		})
	})

	It("closes the writer", func() {
		Expect(newPublisher().Close()).To(Succeed())
		Expect(writer.closed).To(BeTrue())
	})
})
