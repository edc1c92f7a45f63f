package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServiceName string
	HTTPPort    string

	// Bus de eventos
	UseKafka     bool
	KafkaBrokers []string
	EventsTopic  string

	// Almacenes
	MongoURI        string
	MongoDB         string
	RedisAddr       string
	LocalDeployment bool // SQLite en local, Postgres en despliegue
	SQLitePath      string
	PostgresURI     string
	ClickHouseAddr  string
	ClickHouseDB    string

	// Gateway de petición/respuesta
	RequestTimeout time.Duration

	// Outbox relayer
	OutboxPeriod time.Duration
	OutboxLimit  int

	// Relay / observadores en vivo
	RingSize int

	// Worker de push
	PreSendDelay    time.Duration
	FallbackEnabled bool
	PushPrimaryURL  string
	PushFallbackURL string

	// Verificación
	SMSProviderURL string
	WebhookSecret  string

	// Engagement tracker
	TrackerURL string
}

func LoadConfig() *Config {
	getEnv := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	getBool := func(key string, fallback bool) bool {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err == nil {
				return b
			}
		}
		return fallback
	}

	kafkaBrokers := strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")

	return &Config{
		ServiceName: getEnv("SERVICE_NAME", "care-messaging"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),

		UseKafka:     getBool("USE_KAFKA", false),
		KafkaBrokers: kafkaBrokers,
		EventsTopic:  getEnv("EVENTS_TOPIC", "care-events"),

		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:         getEnv("MONGO_DB", "carelink"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		LocalDeployment: getBool("LOCAL_DEPLOYMENT", true),
		SQLitePath:      getEnv("SQLITE_PATH", "./carelink_deadletters.db"),
		PostgresURI:     getEnv("POSTGRES_URI", ""),
		ClickHouseAddr:  getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDB:    getEnv("CLICKHOUSE_DB", "care_analytics"),

		RequestTimeout: 10 * time.Second,

		OutboxPeriod: 1 * time.Second,
		OutboxLimit:  10,

		RingSize: 100,

		PreSendDelay:    500 * time.Millisecond,
		FallbackEnabled: getBool("PUSH_FALLBACK_ENABLED", true),
		PushPrimaryURL:  getEnv("PUSH_PRIMARY_URL", ""),
		PushFallbackURL: getEnv("PUSH_FALLBACK_URL", ""),

		SMSProviderURL: getEnv("SMS_PROVIDER_URL", ""),
		WebhookSecret:  getEnv("WEBHOOK_SECRET", ""),

		TrackerURL: getEnv("TRACKER_URL", ""),
	}
}
