package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	domainnotification "bookly/internal/domain/notification"
	"bookly/internal/infra/inbox"
)

type recordingNotifier struct {
	got []domainnotification.Notification
	err error
}

func (r *recordingNotifier) Notify(ctx context.Context, n domainnotification.Notification) error {
	r.got = append(r.got, n)
	return r.err
}

type recordingPublisher struct {
	topic, key string
	payload    []byte
	headers    map[string]string
}

func (p *recordingPublisher) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	p.topic, p.key, p.payload, p.headers = topic, key, payload, headers
	return nil
}

func sample() domainnotification.Notification {
	return domainnotification.Notification{
		ID:        "n1",
		UserID:    "u1",
		Type:      domainnotification.TypeBookingApproval,
		Title:     "Booking approved",
		Message:   "Your booking was approved.",
		Payload:   map[string]any{"booking_id": "b1"},
		CreatedAt: time.Date(2030, 1, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestFanoutJoinsErrors(t *testing.T) {
	ok := &recordingNotifier{}
	boom := &recordingNotifier{err: errors.New("boom")}
	err := Fanout{boom, ok}.Notify(context.Background(), sample())
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(ok.got) != 1 {
		t.Fatal("a failing notifier must not stop the others")
	}
}

func TestBrokerNotifierKeysByRecipient(t *testing.T) {
	pub := &recordingPublisher{}
	if err := (BrokerNotifier{Publisher: pub, Topic: "notifications"}).Notify(context.Background(), sample()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if pub.topic != "notifications" || pub.key != "u1" || pub.headers["notification-id"] != "n1" {
		t.Fatalf("unexpected publish %+v", pub)
	}
	var decoded domainnotification.Notification
	if err := json.Unmarshal(pub.payload, &decoded); err != nil || decoded.Type != domainnotification.TypeBookingApproval {
		t.Fatalf("payload did not round-trip: %v %+v", err, decoded)
	}
}

func TestConsumerDeduplicates(t *testing.T) {
	deliver := &recordingNotifier{}
	c := Consumer{Inbox: inbox.NewMemory(), Deliver: deliver}
	body, _ := json.Marshal(sample())
	for i := 0; i < 2; i++ {
		if err := c.Handle(context.Background(), body, nil); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}
	if len(deliver.got) != 1 {
		t.Fatalf("expected one delivery, got %d", len(deliver.got))
	}
	if err := c.Handle(context.Background(), []byte("not json"), nil); err != nil {
		t.Fatalf("malformed messages are dropped, got %v", err)
	}
}
