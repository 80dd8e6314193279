package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/IBM/sarama"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/donation-service/internal/core/events"
)

type fakeSession struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32 { return nil }
func (s *fakeSession) MemberID() string { return "member-1" }
func (s *fakeSession) GenerationID() int32 { return 1 }
func (s *fakeSession) MarkOffset(topic string, partition int32, offset int64, metadata string) {}
func (s *fakeSession) Commit() {}
func (s *fakeSession) ResetOffset(topic string, partition int32, offset int64, metadata string) {}
func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, metadata string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string { return "donation-events" }
func (c *fakeClaim) Partition() int32 { return 0 }
func (c *fakeClaim) InitialOffset() int64 { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64 { return int64(len(c.messages)) }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

var _ = Describe("KafkaConsumer", func() {
	var (
		bus     *events.EventBus
		logger  *slog.Logger
		session *fakeSession
		claim   *fakeClaim
	)

	encode := func(offset int64, e *events.DonationStatusChangedEvent) *sarama.ConsumerMessage {
		value, err := json.Marshal(e)
		Expect(err).NotTo(HaveOccurred())
		return &sarama.ConsumerMessage{Topic: "donation-events", Offset: offset, Value: value}
	}

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		bus = events.NewEventBus(logger)
		session = &fakeSession{ctx: context.Background()}
		claim = &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 4)}
	})

	It("should republish decoded events and mark them", func() {
		var received []*events.DonationStatusChangedEvent
		bus.Subscribe(events.EventTypeDonationSucceeded, func(ctx context.Context, e events.Event) error {
			received = append(received, e.(*events.DonationStatusChangedEvent))
			return nil
		})

		claim.messages <- encode(0, events.NewDonationStatusChangedEvent(events.EventTypeDonationSucceeded, "DON-1", "REF-1", 50000, "SUCCESS", "00"))
		claim.messages <- &sarama.ConsumerMessage{Topic: "donation-events", Offset: 1, Value: []byte("not json")}
		close(claim.messages)

		Expect(events.NewKafkaConsumer(bus, logger).ConsumeClaim(session, claim)).To(Succeed())

		Expect(received).To(HaveLen(1))
		Expect(received[0].MerchantOrderID).To(Equal("DON-1"))
		Expect(received[0].Amount).To(Equal(int64(50000)))
		Expect(session.marked).To(Equal([]int64{0, 1}))
	})

	It("should end the claim without marking past a failed event", func() {
		downstream := errors.New("downstream unavailable")
		bus.Subscribe(events.EventTypeDonationFailed, func(ctx context.Context, e events.Event) error {
			return downstream
		})
		var later []string
		bus.Subscribe(events.EventTypeDonationSucceeded, func(ctx context.Context, e events.Event) error {
			later = append(later, e.(*events.DonationStatusChangedEvent).MerchantOrderID)
			return nil
		})

		claim.messages <- encode(7, events.NewDonationStatusChangedEvent(events.EventTypeDonationFailed, "DON-2", "REF-2", 20000, "FAILED", "01"))
		claim.messages <- encode(8, events.NewDonationStatusChangedEvent(events.EventTypeDonationSucceeded, "DON-3", "REF-3", 10000, "SUCCESS", "00"))
		close(claim.messages)

		err := events.NewKafkaConsumer(bus, logger).ConsumeClaim(session, claim)

		Expect(err).To(MatchError(downstream))
		Expect(session.marked).To(BeEmpty())
		Expect(later).To(BeEmpty())
	})

	It("should stop when the session ends", func() {
		ctx, cancel := context.WithCancel(context.Background())
		session.ctx = ctx
		cancel()

		Expect(events.NewKafkaConsumer(bus, logger).ConsumeClaim(session, claim)).To(Succeed())
	})
})

var _ = Describe("DecodeDonationEvent", func() {
	It("should fall back to the event_type header", func() {
		msg := &sarama.ConsumerMessage{
			Value:   []byte(`{"merchant_order_id":"DON-3","amount":10000}`),
			Headers: []*sarama.RecordHeader{{Key: []byte("event_type"), Value: []byte(events.EventTypeDonationSucceeded)}},
		}

		event, err := events.DecodeDonationEvent(msg)
		Expect(err).NotTo(HaveOccurred())
		Expect(event.EventType()).To(Equal(events.EventTypeDonationSucceeded))
	})

	It("should reject events without a merchant order id", func() {
		_, err := events.DecodeDonationEvent(&sarama.ConsumerMessage{Value: []byte(`{"type":"donation.failed"}`)})
		Expect(err).To(MatchError(ContainSubstring("missing type or merchant_order_id")))
	})
})
