// Package config loads and validates the settings shared by the API gateway,
// the booking worker and the operator CLI.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the full runtime configuration. It is assembled once at startup
// and passed down explicitly; nothing reads it as ambient state.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Company     CompanyConfig
	Extraction  ExtractionConfig
}

type ApplicationConfig struct {
	Env  string
	Name string
}

type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxUploadBytes  int64 // Upper bound for a single uploaded document
}

// KafkaConfig covers the document intake stream, the booking event stream and the DLQ.
type KafkaConfig struct {
	Brokers             string
	DocumentIntakeTopic string // Fed by the external email fetcher
	BookingEventsTopic  string // Outbox events are republished here
	DLQTopic            string
	NumPartitions       int
	ReplicationFactor   int
	ConsumerGroup       string
	MinBytes            int
	MaxBytes            int
	MaxWait             time.Duration
	StartOffset         int64
}

type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

type MongoDBConfig struct {
	AppName           string // Reported to the server; taken from APP_NAME
	URI               string
	Database          string
	JournalCollection string
	Timeout           time.Duration
	MaxPoolSize       uint64
	MinPoolSize       uint64
	MaxConnIdleTime   time.Duration
}

type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int
}

// WorkerPoolConfig sizes the pool used for bulk commission recalculation.
type WorkerPoolConfig struct {
	Size int
}

// CompanyConfig holds the values used before the company record is configured.
type CompanyConfig struct {
	DefaultCommissionRate decimal.Decimal
}

// ExtractionConfig tunes the data-quality checks run on AI extraction payloads.
type ExtractionConfig struct {
	ConfidenceThreshold int             // Fields scored below this produce a warning
	ChargeTolerance     decimal.Decimal // Allowed drift between summed charges and subtotal
}

func (c *Config) validate() error {
	var problems []string

	if c.Server.Port <= 0 {
		problems = append(problems, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		problems = append(problems, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		problems = append(problems, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		problems = append(problems, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		problems = append(problems, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}
	if c.Server.MaxUploadBytes <= 0 {
		problems = append(problems, "SERVER_MAX_UPLOAD_BYTES must be greater than 0")
	}

	if c.Kafka.Brokers == "" {
		problems = append(problems, "KAFKA_BROKERS is required")
	}
	if c.Kafka.DocumentIntakeTopic == "" {
		problems = append(problems, "KAFKA_DOCUMENT_INTAKE_TOPIC is required")
	}
	if c.Kafka.BookingEventsTopic == "" {
		problems = append(problems, "KAFKA_BOOKING_EVENTS_TOPIC is required")
	}
	if c.Kafka.DLQTopic == "" {
		problems = append(problems, "KAFKA_DLQ_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		problems = append(problems, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		problems = append(problems, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes < c.Kafka.MinBytes {
		problems = append(problems, "KAFKA_CONSUMER_MAX_BYTES must not be lower than KAFKA_CONSUMER_MIN_BYTES")
	}
	if c.Kafka.MaxWait <= 0 {
		problems = append(problems, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}

	if c.Postgres.URL == "" {
		problems = append(problems, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		problems = append(problems, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 || c.Postgres.MinConns > c.Postgres.MaxConns {
		problems = append(problems, "POSTGRES_MIN_CONNS must be between 1 and POSTGRES_MAX_CONNS")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		problems = append(problems, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		problems = append(problems, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	if c.MongoDB.URI == "" {
		problems = append(problems, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		problems = append(problems, "MONGO_DATABASE is required")
	}
	if c.MongoDB.JournalCollection == "" {
		problems = append(problems, "MONGO_JOURNAL_COLLECTION is required")
	}
	if c.MongoDB.Timeout <= 0 {
		problems = append(problems, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize == 0 {
		problems = append(problems, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}

	if c.Outbox.PollingInterval <= 0 {
		problems = append(problems, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		problems = append(problems, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		problems = append(problems, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	if c.WorkerPool.Size <= 0 {
		problems = append(problems, "WORKER_POOL_SIZE must be greater than 0")
	}

	if c.Company.DefaultCommissionRate.IsNegative() || c.Company.DefaultCommissionRate.GreaterThan(decimal.NewFromInt(1)) {
		problems = append(problems, "COMPANY_DEFAULT_COMMISSION_RATE must be between 0 and 1")
	}

	if c.Extraction.ConfidenceThreshold < 0 || c.Extraction.ConfidenceThreshold > 100 {
		problems = append(problems, "EXTRACTION_CONFIDENCE_THRESHOLD must be between 0 and 100")
	}
	if c.Extraction.ChargeTolerance.IsNegative() {
		problems = append(problems, "EXTRACTION_CHARGE_TOLERANCE must not be negative")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, ", "))
	}
	return nil
}
