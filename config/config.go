package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppName            string `env:"APP_NAME" env-default:"clover-api"`
	Port               int    `env:"PORT" env-default:"3004"`
	Version            string `env:"VERSION" env-default:"dev"`
	LogLevel           string `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs         bool   `env:"PRETTY_LOGS" env-default:"false"`
	TraceExporter      string `env:"TRACE_EXPORTER" env-default:"console"`
	TraceOTLPEndpoint  string `env:"TRACE_OTLP_ENDPOINT" env-default:"localhost:4317"`
	StartupMaxAttempts int    `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// PostgreSQL (Canonical Contact Store)
	DatabaseDriver              string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                string        `env:"DB_HOST" env-default:""`
	DatabasePort                string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName            string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword            string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                string        `env:"DB_NAME" env-default:"clover"`
	DatabaseSSLMode             string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns        int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns        int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime     time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion    int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce      int           `env:"DB_MIGRATION_FORCE" env-default:"0"`

	// Graph Database (Memgraph)
	GraphDBEnabled  bool   `env:"GRAPH_DB_ENABLED" env-default:"false"`
	GraphDBHost     string `env:"GRAPH_DB_HOST" env-default:"localhost"`
	GraphDBPort     int    `env:"GRAPH_DB_PORT" env-default:"7687"`
	GraphDBUser     string `env:"GRAPH_DB_USER" env-default:""`
	GraphDBPassword string `env:"GRAPH_DB_PASSWORD" env-default:""`

	// Kafka Consumers (collector output - ingestion)
	KafkaBrokers                 []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaRecordsTopic            string   `env:"KAFKA_RECORDS_TOPIC" env-default:"source-records"`
	KafkaTouchPointsTopic        string   `env:"KAFKA_TOUCH_POINTS_TOPIC" env-default:"touch-points"`
	KafkaConsumerGroup           string   `env:"KAFKA_CONSUMER_GROUP" env-default:"clover-consumer"`
	KafkaTouchPointConsumerGroup string   `env:"KAFKA_TOUCH_POINT_CONSUMER_GROUP" env-default:"clover-touchpoint-consumer"`
	KafkaConsumerEnabled         bool     `env:"KAFKA_CONSUMER_ENABLED" env-default:"true"`

	// Kafka Producer settings
	KafkaOutputTopic  string `env:"KAFKA_OUTPUT_TOPIC" env-default:"contact-events"`
	KafkaBatchSize    int    `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int    `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int    `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Redis (identity locks)
	RedisEnabled    bool          `env:"REDIS_ENABLED" env-default:"false"`
	RedisHost       string        `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort       int           `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword   string        `env:"REDIS_PASSWORD" env-default:""`
	RedisDB         int           `env:"REDIS_DB" env-default:"0"`
	LockTTL         time.Duration `env:"LOCK_TTL" env-default:"30s"`
	LockWaitTimeout time.Duration `env:"LOCK_WAIT_TIMEOUT" env-default:"10s"`

	// Processing
	MergeThreshold          string        `env:"MERGE_THRESHOLD" env-default:"high"`
	NameSimilarityThreshold float64       `env:"NAME_SIMILARITY_THRESHOLD" env-default:"0.8"`
	NameSimilarityMetric    string        `env:"NAME_SIMILARITY_METRIC" env-default:"levenshtein"`
	BatchWorkerCount        int           `env:"BATCH_WORKER_COUNT" env-default:"4"`
	MaxFailureDetails       int           `env:"MAX_FAILURE_DETAILS" env-default:"25"`
	StatsSampleSize         int           `env:"STATS_SAMPLE_SIZE" env-default:"0"`
	StatsBudget             time.Duration `env:"STATS_BUDGET" env-default:"0s"`
}

// Load reads configuration from the environment, applying the defaults above.
// A .env file is honored when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:            getEnvString("APP_NAME", "clover-api"),
		Port:               getEnvInt("PORT", 3004),
		Version:            getEnvString("VERSION", "dev"),
		LogLevel:           getEnvString("LOG_LEVEL", "info"),
		PrettyLogs:         getEnvBool("PRETTY_LOGS", false),
		TraceExporter:      getEnvString("TRACE_EXPORTER", "console"),
		TraceOTLPEndpoint:  getEnvString("TRACE_OTLP_ENDPOINT", "localhost:4317"),
		StartupMaxAttempts: getEnvInt("STARTUP_MAX_ATTEMPTS", 5),

		DatabaseDriver:              getEnvString("DB_DRIVER", "postgres"),
		DatabaseHost:                getEnvString("DB_HOST", ""),
		DatabasePort:                getEnvString("DB_PORT", "5432"),
		DatabaseUserName:            getEnvString("DB_USER_NAME", ""),
		DatabasePassword:            getEnvString("DB_PASSWORD", ""),
		DatabaseName:                getEnvString("DB_NAME", "clover"),
		DatabaseSSLMode:             getEnvString("DB_SQL_MODE", "disable"),
		DatabaseMaxOpenConns:        getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DatabaseMaxIdleConns:        getEnvInt("DB_MAX_IDLE_CONNS", 10),
		DatabaseConnMaxLifetime:     getEnvDuration("DB_CONN_MAX_LIFETIME", 10*time.Second),
		DatabaseMigrationFolderPath: getEnvString("DB_MIGRATION_FOLDER_PATH", "db/pg"),
		DatabaseMigrationVersion:    getEnvInt("DB_MIGRATION_VERSION", 0),
		DatabaseMigrationForce:      getEnvInt("DB_MIGRATION_FORCE", 0),

		GraphDBEnabled:  getEnvBool("GRAPH_DB_ENABLED", false),
		GraphDBHost:     getEnvString("GRAPH_DB_HOST", "localhost"),
		GraphDBPort:     getEnvInt("GRAPH_DB_PORT", 7687),
		GraphDBUser:     getEnvString("GRAPH_DB_USER", ""),
		GraphDBPassword: getEnvString("GRAPH_DB_PASSWORD", ""),

		KafkaBrokers:                 getEnvStrings("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaRecordsTopic:            getEnvString("KAFKA_RECORDS_TOPIC", "source-records"),
		KafkaTouchPointsTopic:        getEnvString("KAFKA_TOUCH_POINTS_TOPIC", "touch-points"),
		KafkaConsumerGroup:           getEnvString("KAFKA_CONSUMER_GROUP", "clover-consumer"),
		KafkaTouchPointConsumerGroup: getEnvString("KAFKA_TOUCH_POINT_CONSUMER_GROUP", "clover-touchpoint-consumer"),
		KafkaConsumerEnabled:         getEnvBool("KAFKA_CONSUMER_ENABLED", true),

		KafkaOutputTopic:  getEnvString("KAFKA_OUTPUT_TOPIC", "contact-events"),
		KafkaBatchSize:    getEnvInt("KAFKA_BATCH_SIZE", 100),
		KafkaBatchTimeout: getEnvInt("KAFKA_BATCH_TIMEOUT_MS", 100),
		KafkaRequiredAcks: getEnvInt("KAFKA_REQUIRED_ACKS", 1),
		KafkaCompression:  getEnvString("KAFKA_COMPRESSION", "snappy"),

		RedisEnabled:    getEnvBool("REDIS_ENABLED", false),
		RedisHost:       getEnvString("REDIS_HOST", "localhost"),
		RedisPort:       getEnvInt("REDIS_PORT", 6379),
		RedisPassword:   getEnvString("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		LockTTL:         getEnvDuration("LOCK_TTL", 30*time.Second),
		LockWaitTimeout: getEnvDuration("LOCK_WAIT_TIMEOUT", 10*time.Second),

		MergeThreshold:          getEnvString("MERGE_THRESHOLD", "high"),
		NameSimilarityThreshold: getEnvFloat("NAME_SIMILARITY_THRESHOLD", 0.8),
		NameSimilarityMetric:    getEnvString("NAME_SIMILARITY_METRIC", "levenshtein"),
		BatchWorkerCount:        getEnvInt("BATCH_WORKER_COUNT", 4),
		MaxFailureDetails:       getEnvInt("MAX_FAILURE_DETAILS", 25),
		StatsSampleSize:         getEnvInt("STATS_SAMPLE_SIZE", 0),
		StatsBudget:             getEnvDuration("STATS_BUDGET", 0),
	}
}

func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvStrings(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
