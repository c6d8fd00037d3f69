package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	OTP      OTPConfig
	Pincode  PincodeConfig
	Media    MediaConfig
	Jobs     JobsConfig
}

type ServerConfig struct {
	Port           string
	GinMode        string
	Env            string
	AllowedOrigins []string
	UploadDir      string
}

type DatabaseConfig struct {
	URL          string
	Backend      string // "postgres" or "memory"
	MaxOpenConns int
	MaxIdleConns int
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type OTPConfig struct {
	Provider    string // "local" or "2factor"
	APIKey      string
	BaseURL     string
	CountryCode string
	Expiry      time.Duration
}

type PincodeConfig struct {
	BaseURL       string
	CacheTTL      time.Duration
	LookupTimeout time.Duration
}

type MediaConfig struct {
	CloudinaryURL string
	Folder        string
}

type JobsConfig struct {
	CleanupSchedule string
}

var AppConfig *Config

// Load reads the configuration from the environment into AppConfig.
func Load() *Config {
	AppConfig = &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "5000"),
			GinMode:        getEnv("GIN_MODE", "debug"),
			Env:            getEnv("ENV", "development"),
			AllowedOrigins: getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
			UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		},
		Database: DatabaseConfig{
			URL:          getEnv("DB_URL", ""),
			Backend:      getEnv("STORE_BACKEND", "postgres"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "snapfix-dev-secret-change-me"),
			ExpiryHours: getEnvAsInt("JWT_EXPIRY_HOURS", 24*7),
		},
		OTP: OTPConfig{
			Provider:    getEnv("OTP_PROVIDER", "local"),
			APIKey:      getEnv("TWOFACTOR_API_KEY", ""),
			BaseURL:     getEnv("TWOFACTOR_BASE_URL", "https://2factor.in/API/V1"),
			CountryCode: getEnv("TWOFACTOR_COUNTRY_CODE", "91"),
			Expiry:      time.Duration(getEnvAsInt("OTP_EXPIRY_MINUTES", 10)) * time.Minute,
		},
		Pincode: PincodeConfig{
			BaseURL:       getEnv("INDIA_POST_BASE_URL", "https://api.postalpincode.in"),
			CacheTTL:      getEnvAsDuration("PINCODE_CACHE_TTL", 14*24*time.Hour),
			LookupTimeout: getEnvAsDuration("PINCODE_LOOKUP_TIMEOUT", 8*time.Second),
		},
		Media: MediaConfig{
			CloudinaryURL: getEnv("CLOUDINARY_URL", ""),
			Folder:        getEnv("CLOUDINARY_FOLDER", "snapfix/bookings"),
		},
		Jobs: JobsConfig{
			CleanupSchedule: getEnv("CLEANUP_SCHEDULE", "@every 1h"),
		},
	}
	return AppConfig
}

// IsProduction reports whether detailed error output should be suppressed.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.GinMode == "release"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
