package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	JWT struct {
		Secret string `env:"SECRET,required"`
	} `envPrefix:"JWT_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		Exchange       string `env:"EXCHANGE" envDefault:"booking_events"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host           string `env:"HOST" envDefault:"localhost"`
		Port           int    `env:"PORT" envDefault:"6379"`
		Password       string `env:"PASSWORD,required"`
		ConnectTimeout int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
	} `envPrefix:"REDIS_"`
	Booking struct {
		HoldTTL                time.Duration `env:"HOLD_TTL" envDefault:"48h"`
		MaxActiveHolds         int           `env:"MAX_ACTIVE_HOLDS" envDefault:"0"` // 0 表示不限制
		Timezone               string        `env:"TIMEZONE" envDefault:"Asia/Shanghai"`
		BitmapBackend          string        `env:"BITMAP_BACKEND" envDefault:"redis"`
		BitmapRetentionDays    int           `env:"BITMAP_RETENTION_DAYS" envDefault:"30"`
		BitmapOperationTimeout int           `env:"BITMAP_OPERATION_TIMEOUT" envDefault:"3"`
	} `envPrefix:"BOOKING_"`
	Sweeper struct {
		Interval      time.Duration `env:"INTERVAL" envDefault:"1m"`
		BatchSize     int           `env:"BATCH_SIZE" envDefault:"200"`
		LeaseKey      string        `env:"LEASE_KEY" envDefault:"crew_booking:sweeper:lease"`
		LeaseDuration time.Duration `env:"LEASE_DURATION" envDefault:"90s"`
	} `envPrefix:"SWEEPER_"`
	Metrics struct {
		Enabled bool   `env:"ENABLED" envDefault:"true"`
		Path    string `env:"PATH" envDefault:"/metrics"`
	} `envPrefix:"METRICS_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	return cfg, nil
}

// Location 返回计算时间片所使用的参考时区
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Booking.Timezone)
}
