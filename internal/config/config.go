package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config — конфигурация планировщика.
//
// Источники (в порядке приоритета): переменные окружения STUDYFLOW_*,
// затем дефолты из defaults.go. Секция отделяется двойным подчёркиванием:
//
//	STUDYFLOW_REDIS__ADDR=redis:6379
//	STUDYFLOW_SCHEDULER__SCAN_CRON="*/5 * * * *"
type Config struct {
	AMQP      AMQPConfig      `koanf:"amqp"`
	Redis     RedisConfig     `koanf:"redis"`
	Postgres  PostgresConfig  `koanf:"postgres"`
	API       APIConfig       `koanf:"api"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
}

// AMQPConfig — подключение к RabbitMQ.
type AMQPConfig struct {
	URL string `koanf:"url"`

	// ConnectTries — количество попыток первичного подключения.
	// После исчерпания сервис продолжает работу без messaging.
	ConnectTries int `koanf:"connect_tries"`

	// RetryDelayMs — начальная задержка между попытками (удваивается).
	RetryDelayMs int `koanf:"retry_delay_ms"`
}

// RedisConfig — подключение к Redis (primary store).
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// PostgresConfig — подключение к Postgres (архив processed items).
type PostgresConfig struct {
	DSN string `koanf:"dsn"`

	// Archive — включает перенос processed items в Postgres.
	Archive bool `koanf:"archive"`
}

// APIConfig — HTTP API сервиса.
type APIConfig struct {
	Port int `koanf:"port"`
}

// SchedulerConfig — параметры цикла сканирования.
type SchedulerConfig struct {
	// ScanCron — cron-выражение для периодического scan.
	ScanCron string `koanf:"scan_cron"`

	// ReviewIntervalSec — интервал повторения по умолчанию.
	ReviewIntervalSec int `koanf:"review_interval_sec"`

	// RetentionAgeSec — возраст processed items, после которого
	// они переносятся в архив.
	RetentionAgeSec int `koanf:"retention_age_sec"`

	// HorizonSec — горизонт window-запроса по умолчанию.
	HorizonSec int `koanf:"horizon_sec"`
}

// RetryDelay возвращает начальную задержку переподключения.
func (c AMQPConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// ReviewInterval возвращает интервал повторения.
func (c SchedulerConfig) ReviewInterval() time.Duration {
	return time.Duration(c.ReviewIntervalSec) * time.Second
}

// RetentionAge возвращает возраст для архивации.
func (c SchedulerConfig) RetentionAge() time.Duration {
	return time.Duration(c.RetentionAgeSec) * time.Second
}

// Horizon возвращает горизонт window-запроса по умолчанию.
func (c SchedulerConfig) Horizon() time.Duration {
	return time.Duration(c.HorizonSec) * time.Second
}

// Load загружает конфигурацию: дефолты + переменные окружения.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if err := k.Load(env.Provider("STUDYFLOW_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "STUDYFLOW_")
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
