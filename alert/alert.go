package alert

import (
	"context"

	"github.com/zooarc/menagerie/logger"
	"github.com/zooarc/menagerie/mq"
	"github.com/zooarc/menagerie/utils/id-generator/ulid"

	"go.uber.org/zap"
)

/* ========================================================================
 * Operational alerting
 * ========================================================================
 * Publishes incidents to a broker topic for the on-call tooling to pick
 * up. The audit recorder escalates append failures here; nothing in the
 * request path ever waits on an alert.
 * ======================================================================== */

// DefaultTopic is the incident topic when none is configured.
const DefaultTopic = "menagerie-alerts"

// Config configures the broker-backed alerter.
type Config struct {
	// Topic to publish incidents to. Defaults to DefaultTopic.
	Topic string `yaml:"topic" mapstructure:"topic"`
}

// BrokerAlerter publishes alerts through a message producer.
type BrokerAlerter struct {
	producer mq.Producer
	topic    string
	log      *logger.Logger
}

// NewBrokerAlerter creates an alerter on top of a producer.
func NewBrokerAlerter(producer mq.Producer, cfg Config, log *logger.Logger) *BrokerAlerter {
	if log == nil {
		log = logger.NewNop()
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	return &BrokerAlerter{
		producer: producer,
		topic:    topic,
		log:      log,
	}
}

// Alert publishes one incident. subject becomes the partitioning key so
// incidents of the same kind land on the same partition, in order. The
// alert_id header is a ULID, sortable by emission time on the consumer
// side.
func (a *BrokerAlerter) Alert(ctx context.Context, subject string, body []byte) error {
	msg := mq.NewMessage(a.topic, body).
		WithKey(subject).
		WithHeader("subject", subject).
		WithHeader("alert_id", ulid.GenerateString())

	res, err := a.producer.SendSync(ctx, msg)
	if err != nil {
		a.log.Error("failed to publish alert",
			zap.String("subject", subject),
			zap.Error(err),
		)
		return err
	}

	a.log.Info("alert published",
		zap.String("subject", subject),
		zap.String("msg_id", res.MsgID),
	)
	return nil
}

// LogAlerter writes incidents to the log. It is the fallback when no
// broker is configured so escalations are never silently dropped.
type LogAlerter struct {
	log *logger.Logger
}

// NewLogAlerter creates a log-only alerter.
func NewLogAlerter(log *logger.Logger) *LogAlerter {
	if log == nil {
		log = logger.NewNop()
	}
	return &LogAlerter{log: log}
}

// Alert logs the incident at error level.
func (a *LogAlerter) Alert(ctx context.Context, subject string, body []byte) error {
	a.log.Error("ALERT",
		zap.String("subject", subject),
		zap.ByteString("body", body),
	)
	return nil
}
