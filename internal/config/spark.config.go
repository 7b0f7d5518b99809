package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type OTPConfig struct {
	TTL          time.Duration
	Window       time.Duration
	MaxPerWindow int
	Cooldown     time.Duration
}

type JWTConfig struct {
	PrivPath string
	PubPath  string
	Issuer   string
	Audience string
	KID      string
	TTL      time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

type AppConfig struct {
	Env             string
	HTTPAddr        string
	GRPCAddr        string
	RedisAddr       string
	RedisPass       string
	RedisDB         int
	KafkaBrokers    []string
	KafkaTopic      string
	MachineID       int64
	AllowedOrigins  []string
	RateLimitPerMin int
	TrustProxy      bool
	Schedules       bool
	OTP             OTPConfig
	JWT             JWTConfig
	SMTP            SMTPConfig
}

// Load reads an optional .env file and then the process environment.
func Load() AppConfig {
	_ = godotenv.Load()

	return AppConfig{
		Env:             getEnv("APP_ENV", "production"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:        getEnv("GRPC_ADDR", ":8081"),
		RedisAddr:       getEnv("REDIS_ADDR", "redis:6379"),
		RedisPass:       getEnv("REDIS_PASS", ""),
		RedisDB:         getEnvAsInt("REDIS_DB", 0),
		KafkaBrokers:    parseCSVEnv("KAFKA_BROKERS", ""),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "spark.events"),
		MachineID:       int64(getEnvAsInt("MACHINE_ID", 1)),
		AllowedOrigins:  parseCSVEnv("ALLOWED_ORIGINS", "*"),
		RateLimitPerMin: getEnvAsInt("RATE_LIMIT_PER_MIN", 120),
		TrustProxy:      getEnvAsBool("TRUST_PROXY", false),
		Schedules:       getEnvAsBool("AUTOMATION_SCHEDULES", true),
		OTP: OTPConfig{
			TTL:          getEnvAsDuration("OTP_TTL", 10*time.Minute),
			Window:       getEnvAsDuration("OTP_WINDOW", 10*time.Minute),
			MaxPerWindow: getEnvAsInt("OTP_MAX_PER_WINDOW", 5),
			Cooldown:     getEnvAsDuration("OTP_COOLDOWN", 45*time.Second),
		},
		JWT: JWTConfig{
			PrivPath: getEnv("JWT_PRIVATE_KEY_PATH", ""),
			PubPath:  getEnv("JWT_PUBLIC_KEY_PATH", ""),
			Issuer:   getEnv("JWT_ISSUER", "spark-auth"),
			Audience: getEnv("JWT_AUDIENCE", "spark-clients"),
			KID:      getEnv("JWT_KID", ""),
			TTL:      getEnvAsDuration("JWT_TTL", 24*time.Hour),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASS", ""),
			From:     getEnv("SMTP_FROM", "no-reply@spark.gov.in"),
			FromName: getEnv("SMTP_FROM_NAME", "SPARK Platform"),
		},
	}
}

func (c AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "on", "yes":
			return true
		case "0", "false", "off", "no":
			return false
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

// parseCSVEnv splits a comma separated value; empty entries are dropped.
func parseCSVEnv(key, fallback string) []string {
	val := getEnv(key, fallback)
	var out []string
	for _, p := range strings.Split(val, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
