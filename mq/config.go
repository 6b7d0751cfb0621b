package mq

import "time"

/* ========================================================================
 * Broker configuration
 * ======================================================================== */

// Config selects and configures the broker implementation.
type Config struct {
	// Type of broker: kafka.
	Type Type `yaml:"type" mapstructure:"type"`

	Kafka *KafkaConfig `yaml:"kafka" mapstructure:"kafka"`
}

// DefaultConfig returns a config suitable for local development.
func DefaultConfig() *Config {
	return &Config{
		Type:  TypeKafka,
		Kafka: DefaultKafkaConfig(),
	}
}

// KafkaConfig configures the Kafka producer.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	Version string   `yaml:"version" mapstructure:"version"`

	SASL KafkaSASLConfig `yaml:"sasl" mapstructure:"sasl"`
	TLS  KafkaTLSConfig  `yaml:"tls" mapstructure:"tls"`

	Producer KafkaProducerConfig `yaml:"producer" mapstructure:"producer"`
}

// KafkaSASLConfig configures SASL authentication.
type KafkaSASLConfig struct {
	Enable    bool   `yaml:"enable" mapstructure:"enable"`
	Mechanism string `yaml:"mechanism" mapstructure:"mechanism"` // PLAIN / SCRAM-SHA-256 / SCRAM-SHA-512
	Username  string `yaml:"username" mapstructure:"username"`
	Password  string `yaml:"password" mapstructure:"password"`
}

// KafkaTLSConfig configures transport encryption.
type KafkaTLSConfig struct {
	Enable   bool   `yaml:"enable" mapstructure:"enable"`
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile  string `yaml:"key_file" mapstructure:"key_file"`
	CAFile   string `yaml:"ca_file" mapstructure:"ca_file"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure"`
}

// KafkaProducerConfig tunes the producer.
type KafkaProducerConfig struct {
	RequiredAcks    string        `yaml:"required_acks" mapstructure:"required_acks"` // none / leader / all
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxMessageBytes int           `yaml:"max_message_bytes" mapstructure:"max_message_bytes"`
	Compression     string        `yaml:"compression" mapstructure:"compression"` // none / gzip / snappy / lz4 / zstd
	Idempotent      bool          `yaml:"idempotent" mapstructure:"idempotent"`
	RetryMax        int           `yaml:"retry_max" mapstructure:"retry_max"`
}

// DefaultKafkaConfig returns Kafka defaults for local development.
func DefaultKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Brokers: []string{"127.0.0.1:9092"},
		Version: "2.8.0",
		Producer: KafkaProducerConfig{
			RequiredAcks:    "all",
			Timeout:         10 * time.Second,
			MaxMessageBytes: 1024 * 1024,
			Compression:     "none",
			Idempotent:      false,
			RetryMax:        3,
		},
	}
}
