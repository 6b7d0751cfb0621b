package mq

import (
	"context"
	"time"
)

/* ========================================================================
 * Message broker abstraction
 * ========================================================================
 * A thin producer interface over the broker, used for out-of-band
 * escalation of audit incidents and other operational events. The
 * records core only ever publishes; consumption belongs to the
 * downstream incident tooling.
 * ======================================================================== */

// Producer publishes messages to the broker.
type Producer interface {
	// SendSync publishes msg and waits for the broker acknowledgement.
	SendSync(ctx context.Context, msg *Message) (*SendResult, error)

	// SendAsync enqueues msg and reports the outcome through callback.
	SendAsync(ctx context.Context, msg *Message, callback SendCallback) error

	// Close flushes and shuts the producer down.
	Close() error
}

// Message is a broker-agnostic message.
type Message struct {
	Topic   string
	Body    []byte
	Key     string // partitioning key
	Headers map[string]string
}

// NewMessage creates a message for a topic.
func NewMessage(topic string, body []byte) *Message {
	return &Message{
		Topic:   topic,
		Body:    body,
		Headers: make(map[string]string),
	}
}

// WithKey sets the partitioning key.
func (m *Message) WithKey(key string) *Message {
	m.Key = key
	return m
}

// WithHeader sets one header.
func (m *Message) WithHeader(key, value string) *Message {
	if m.Headers == nil {
		m.Headers = make(map[string]string)
	}
	m.Headers[key] = value
	return m
}

// SendResult describes an acknowledged publication.
type SendResult struct {
	MsgID     string
	Topic     string
	Partition int32
	Offset    int64
	Status    SendStatus
	SentAt    time.Time
}

// SendStatus is the broker acknowledgement status.
type SendStatus int

const (
	SendStatusOK SendStatus = iota
	SendStatusUnknownError
)

// SendCallback receives the outcome of an asynchronous publication.
type SendCallback func(result *SendResult, err error)

// Type names a broker implementation.
type Type string

const (
	TypeKafka Type = "kafka"
)
