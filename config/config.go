package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	HTTP     ServerConfig
	MySQL    MySQLConfig
	Log      LogConfig
	Pelecard PelecardConfig
	Sumit    SumitConfig
	Relay    RelayConfig
	Jobs     JobsConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type PelecardConfig struct {
	GatewayURL  string
	Terminal    string
	User        string
	Password    string
	GoodMail    string
	ErrorMail   string
	MinPayments int
	MaxPayments int
	HTTPTimeout time.Duration
}

type SumitConfig struct {
	APIURL      string
	CompanyID   int64
	APIKey      string
	HTTPTimeout time.Duration
}

type RelayConfig struct {
	PublicBaseURL     string
	FormForwardURL    string
	DefaultTotalMinor int64
	PlaceholderName   string
	PlaceholderEmail  string
	PlaceholderCourse string
	InvoiceStaleAfter time.Duration
	JobBatchSize      int32
}

type JobsConfig struct {
	InvoiceRetryInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "payment-relay"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Pelecard: PelecardConfig{
			GatewayURL:  getEnv("PELECARD_GATEWAY_URL", "https://gateway21.pelecard.biz/PaymentGW/init"),
			Terminal:    getEnv("PELECARD_TERMINAL", ""),
			User:        getEnv("PELECARD_USER", ""),
			Password:    getEnv("PELECARD_PASSWORD", ""),
			GoodMail:    getEnv("PELECARD_NOTIFICATION_GOOD_MAIL", ""),
			ErrorMail:   getEnv("PELECARD_NOTIFICATION_ERROR_MAIL", ""),
			MinPayments: getIntEnv("PELECARD_MIN_PAYMENTS", 1),
			MaxPayments: getIntEnv("PELECARD_MAX_PAYMENTS", 10),
			HTTPTimeout: getSecondsEnv("PELECARD_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Sumit: SumitConfig{
			APIURL:      getEnv("SUMIT_API_URL", "https://app.sumit.co.il/accounting/documents/create/"),
			CompanyID:   getInt64Env("SUMIT_COMPANY_ID", 0),
			APIKey:      getEnv("SUMIT_API_KEY", ""),
			HTTPTimeout: getSecondsEnv("SUMIT_HTTP_TIMEOUT_SECONDS", 15*time.Second),
		},
		Relay: RelayConfig{
			PublicBaseURL:     getEnv("RELAY_PUBLIC_BASE_URL", ""),
			FormForwardURL:    getEnv("RELAY_FORM_FORWARD_URL", ""),
			DefaultTotalMinor: getInt64Env("RELAY_DEFAULT_TOTAL_MINOR", 6500),
			PlaceholderName:   getEnv("RELAY_PLACEHOLDER_NAME", "Unknown"),
			PlaceholderEmail:  getEnv("RELAY_PLACEHOLDER_EMAIL", "unknown@example.com"),
			PlaceholderCourse: getEnv("RELAY_PLACEHOLDER_COURSE", "Course"),
			InvoiceStaleAfter: getMinutesEnv("RELAY_INVOICE_STALE_AFTER_MINUTES", 15*time.Minute),
			JobBatchSize:      int32(getIntEnv("RELAY_JOB_BATCH_SIZE", 100)),
		},
		Jobs: JobsConfig{
			InvoiceRetryInterval: getMinutesEnv("RELAY_INVOICE_RETRY_INTERVAL_MINUTES", 5*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
