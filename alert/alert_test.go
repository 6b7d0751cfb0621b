package alert

import (
	"context"
	"errors"
	"testing"

	"github.com/zooarc/menagerie/mq"
)

type fakeProducer struct {
	sent []*mq.Message
	err  error
}

func (f *fakeProducer) SendSync(ctx context.Context, msg *mq.Message) (*mq.SendResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, msg)
	return &mq.SendResult{MsgID: "m-1", Topic: msg.Topic, Status: mq.SendStatusOK}, nil
}

func (f *fakeProducer) SendAsync(ctx context.Context, msg *mq.Message, callback mq.SendCallback) error {
	return nil
}

func (f *fakeProducer) Close() error { return nil }

func TestBrokerAlerterPublishes(t *testing.T) {
	producer := &fakeProducer{}
	alerter := NewBrokerAlerter(producer, Config{}, nil)

	if err := alerter.Alert(context.Background(), "audit-append-failure", []byte(`{"op":"x"}`)); err != nil {
		t.Fatalf("alert: %v", err)
	}

	if len(producer.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(producer.sent))
	}
	msg := producer.sent[0]
	if msg.Topic != DefaultTopic {
		t.Errorf("topic = %q, want %q", msg.Topic, DefaultTopic)
	}
	if msg.Key != "audit-append-failure" {
		t.Errorf("key = %q", msg.Key)
	}
	if msg.Headers["subject"] != "audit-append-failure" {
		t.Errorf("headers = %v", msg.Headers)
	}
	if len(msg.Headers["alert_id"]) != 26 {
		t.Errorf("alert_id = %q, want a ULID", msg.Headers["alert_id"])
	}
}

func TestBrokerAlerterCustomTopic(t *testing.T) {
	producer := &fakeProducer{}
	alerter := NewBrokerAlerter(producer, Config{Topic: "ops-incidents"}, nil)

	if err := alerter.Alert(context.Background(), "s", nil); err != nil {
		t.Fatalf("alert: %v", err)
	}
	if producer.sent[0].Topic != "ops-incidents" {
		t.Errorf("topic = %q", producer.sent[0].Topic)
	}
}

func TestBrokerAlerterPropagatesError(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker down")}
	alerter := NewBrokerAlerter(producer, Config{}, nil)

	if err := alerter.Alert(context.Background(), "s", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestLogAlerterNeverFails(t *testing.T) {
	alerter := NewLogAlerter(nil)
	if err := alerter.Alert(context.Background(), "s", []byte("b")); err != nil {
		t.Fatalf("alert: %v", err)
	}
}
