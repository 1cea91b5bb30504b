package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	MaxRetries  int
	DialTimeout int
	Timeout     int
	Prefix      string
}

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
	Prefix          string
}

type ProcessorConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

type EmailConfig struct {
	Driver    string // "sendgrid" or "console"
	APIKey    string
	FromName  string
	FromEmail string
}

type AppConfig struct {
	Port          string
	ExternalURL   string
	StorageDriver string // "s3" or "local"
	ReceiptDir    string
	ReceiptPrefix string

	Postgres  PostgresConfig
	Redis     RedisConfig
	S3        S3Config
	Processor ProcessorConfig
	Email     EmailConfig

	OverdueSweepEvery time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int value %q: %v", s, err)
	}
	return i
}

func mustBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		log.Fatalf("invalid bool value %q: %v", s, err)
	}
	return b
}

func Load() AppConfig {
	return AppConfig{
		Port:          getenv("APP_PORT", "8020"),
		ExternalURL:   getenv("APP_EXTERNAL_URL", ""),
		StorageDriver: getenv("STORAGE_DRIVER", "local"),
		ReceiptDir:    getenv("RECEIPT_DIR", "./receipts"),
		ReceiptPrefix: getenv("RECEIPT_PUBLIC_PREFIX", "/receipts"),
		Postgres: PostgresConfig{
			Host:     getenv("PG_HOST", "127.0.0.1"),
			Port:     mustAtoi(getenv("PG_PORT", "5432")),
			User:     getenv("PG_USER", "root"),
			Password: getenv("PG_PASSWORD", "hello-world"),
			DBName:   getenv("PG_DB", "schoolpay"),
			SSLMode:  getenv("PG_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:        getenv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:    getenv("REDIS_PASSWORD", ""),
			DB:          mustAtoi(getenv("REDIS_DB", "0")),
			MaxRetries:  mustAtoi(getenv("REDIS_MAX_RETRIES", "5")),
			DialTimeout: mustAtoi(getenv("REDIS_DIAL_TIMEOUT", "10")),
			Timeout:     mustAtoi(getenv("REDIS_TIMEOUT", "5")),
			Prefix:      getenv("REDIS_PREFIX", "schoolpay_"),
		},
		S3: S3Config{
			Endpoint:        getenv("S3_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getenv("S3_ACCESS_KEY", "minio"),
			SecretAccessKey: getenv("S3_SECRET_KEY", "minio123"),
			Bucket:          getenv("S3_BUCKET", "receipts"),
			Region:          getenv("S3_REGION", "us-east-1"),
			UseSSL:          mustBool(getenv("S3_USE_SSL", "false")),
			Prefix:          getenv("S3_PREFIX", ""),
		},
		Processor: ProcessorConfig{
			BaseURL:   getenv("PROCESSOR_BASE_URL", "https://api.processor.test"),
			SecretKey: getenv("PROCESSOR_SECRET_KEY", ""),
			Timeout:   time.Duration(mustAtoi(getenv("PROCESSOR_TIMEOUT", "15"))) * time.Second,
		},
		Email: EmailConfig{
			Driver:    getenv("EMAIL_DRIVER", "console"),
			APIKey:    getenv("SENDGRID_API_KEY", ""),
			FromName:  getenv("EMAIL_FROM_NAME", "SchoolPay"),
			FromEmail: getenv("EMAIL_FROM", "no-reply@schoolpay.test"),
		},
		OverdueSweepEvery: time.Duration(mustAtoi(getenv("OVERDUE_SWEEP_MINUTES", "60"))) * time.Minute,
	}
}
