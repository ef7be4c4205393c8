package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// HTTP
	HTTPPort string `yaml:"http_port"`
	LogLevel string `yaml:"log_level"`

	// Subscriber connections
	SendQueueSize  int           `yaml:"send_queue_size"`
	WSPingInterval time.Duration `yaml:"ws_ping_interval"`
	WSWriteTimeout time.Duration `yaml:"ws_write_timeout"`
	WSReadTimeout  time.Duration `yaml:"ws_read_timeout"`

	// Sink channels
	ArchiveChannelSize int `yaml:"archive_channel_size"`
	RedisChannelSize   int `yaml:"redis_channel_size"`
	StreamChannelSize  int `yaml:"stream_channel_size"`

	// Archive writer tuning
	ArchiveEnabled         bool `yaml:"archive_enabled"`
	ArchiveBatchSize       int  `yaml:"archive_batch_size"`
	ArchiveFlushIntervalMS int  `yaml:"archive_flush_interval_ms"`

	// TimescaleDB
	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`
	DBMaxConns int32  `yaml:"db_max_conns"`

	// Redis
	RedisEnabled  bool          `yaml:"redis_enabled"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	LastAlertTTL  time.Duration `yaml:"last_alert_ttl"`

	// Kafka
	KafkaEnabled bool     `yaml:"kafka_enabled"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
}

// Defaults returns the configuration used when neither a config file nor
// environment variables say otherwise.
func Defaults() *Config {
	return &Config{
		HTTPPort:               "8000",
		LogLevel:               "info",
		SendQueueSize:          64,
		WSPingInterval:         30 * time.Second,
		WSWriteTimeout:         10 * time.Second,
		WSReadTimeout:          60 * time.Second,
		ArchiveChannelSize:     10000,
		RedisChannelSize:       10000,
		StreamChannelSize:      10000,
		ArchiveBatchSize:       500,
		ArchiveFlushIntervalMS: 100,
		DBHost:                 "localhost",
		DBPort:                 "5432",
		DBUser:                 "fleet_user",
		DBPassword:             "fleet_password",
		DBName:                 "fleet_monitor",
		DBMaxConns:             15,
		RedisAddr:              "localhost:6379",
		LastAlertTTL:           10 * time.Minute,
		KafkaBrokers:           []string{"localhost:9092"},
		KafkaTopic:             "driver.alerts",
	}
}

// Load builds the configuration with priority defaults < CONFIG_FILE < env.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTPPort = getEnv("HTTP_PORT", c.HTTPPort)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.SendQueueSize = getEnvInt("SEND_QUEUE_SIZE", c.SendQueueSize)
	c.WSPingInterval = getEnvDuration("WS_PING_INTERVAL", c.WSPingInterval)
	c.WSWriteTimeout = getEnvDuration("WS_WRITE_TIMEOUT", c.WSWriteTimeout)
	c.WSReadTimeout = getEnvDuration("WS_READ_TIMEOUT", c.WSReadTimeout)
	c.ArchiveChannelSize = getEnvInt("ARCHIVE_CHANNEL_SIZE", c.ArchiveChannelSize)
	c.RedisChannelSize = getEnvInt("REDIS_CHANNEL_SIZE", c.RedisChannelSize)
	c.StreamChannelSize = getEnvInt("STREAM_CHANNEL_SIZE", c.StreamChannelSize)
	c.ArchiveEnabled = getEnvBool("ARCHIVE_ENABLED", c.ArchiveEnabled)
	c.ArchiveBatchSize = getEnvInt("ARCHIVE_BATCH_SIZE", c.ArchiveBatchSize)
	c.ArchiveFlushIntervalMS = getEnvInt("ARCHIVE_FLUSH_INTERVAL_MS", c.ArchiveFlushIntervalMS)
	c.DBHost = getEnv("DB_HOST", c.DBHost)
	c.DBPort = getEnv("DB_PORT", c.DBPort)
	c.DBUser = getEnv("DB_USER", c.DBUser)
	c.DBPassword = getEnv("DB_PASSWORD", c.DBPassword)
	c.DBName = getEnv("DB_NAME", c.DBName)
	c.DBMaxConns = int32(getEnvInt("DB_MAX_CONNS", int(c.DBMaxConns)))
	c.RedisEnabled = getEnvBool("REDIS_ENABLED", c.RedisEnabled)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.LastAlertTTL = getEnvDuration("LAST_ALERT_TTL", c.LastAlertTTL)
	c.KafkaEnabled = getEnvBool("KAFKA_ENABLED", c.KafkaEnabled)
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = strings.Split(v, ",")
	}
	c.KafkaTopic = getEnv("KAFKA_TOPIC", c.KafkaTopic)
}

// DatabaseURL is the pgxpool connection string for the alert archive.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?pool_max_conns=%d",
		c.DBUser,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBMaxConns,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
