package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port   string
	Env    string
	APIUrl string

	// Database
	DBDriver   string // "postgres" | "sqlite"
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBTimeZone string
	SQLitePath string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// JWT
	JWTSecret               string
	JWTAccessTokenDuration  time.Duration
	JWTRefreshTokenDuration time.Duration

	// Bootstrap super admin (skipped when email is empty)
	SuperAdminEmail    string
	SuperAdminPassword string

	// Object storage
	StorageBackend         string // "s3" | "local"
	MediaS3Endpoint        string
	MediaS3Region          string
	MediaS3AccessKeyID     string
	MediaS3SecretAccessKey string
	MediaS3UsePathStyle    bool
	MediaBucket            string
	MediaPublicURL         string
	LocalAssetsPath        string
	LocalPublicURL         string

	// Media processing
	ThumbnailSize int
	PosterSize    int
	WebPQuality   int
	FFmpegPath    string
	CWebPPath     string
	MagickPath    string
	MaxUploadSize int64

	// Security
	BcryptCost                  int
	RateLimitRequests           int
	RateLimitDuration           time.Duration
	UploadMaxPerDay             int
	AdminRateLimitActions       int
	AdminRateLimitWindowMinutes int

	// CORS
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string

	// Observability
	LogLevel       string
	TracingEnabled bool
}

func New() *Config {
	return &Config{
		// Server
		Port:   getEnv("PORT", "8080"),
		Env:    getEnv("ENV", "development"),
		APIUrl: getEnv("API_URL", "http://localhost:8080"),

		// Database
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "beamdash"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "beamdash"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),
		DBTimeZone: getEnv("DB_TIMEZONE", "UTC"),
		SQLitePath: getEnv("SQLITE_PATH", "data/beamdash.db"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// JWT
		JWTSecret:               getEnv("JWT_SECRET", "your-secret-key"),
		JWTAccessTokenDuration:  getEnvAsDuration("JWT_ACCESS_TOKEN_DURATION", "1h"),
		JWTRefreshTokenDuration: getEnvAsDuration("JWT_REFRESH_TOKEN_DURATION", "168h"),

		// Bootstrap
		SuperAdminEmail:    getEnv("SUPER_ADMIN_EMAIL", ""),
		SuperAdminPassword: getEnv("SUPER_ADMIN_PASSWORD", ""),

		// Object storage
		StorageBackend:         getEnv("STORAGE_BACKEND", "local"),
		MediaS3Endpoint:        getEnv("MEDIA_S3_ENDPOINT", ""),
		MediaS3Region:          getEnv("MEDIA_S3_REGION", "us-east-1"),
		MediaS3AccessKeyID:     getEnv("MEDIA_S3_ACCESS_KEY_ID", ""),
		MediaS3SecretAccessKey: getEnv("MEDIA_S3_SECRET_ACCESS_KEY", ""),
		MediaS3UsePathStyle:    getEnvAsBool("MEDIA_S3_USE_PATH_STYLE", true),
		MediaBucket:            getEnv("MEDIA_BUCKET", "media-uploads"),
		MediaPublicURL:         getEnv("MEDIA_PUBLIC_URL", ""),
		LocalAssetsPath:        getEnv("LOCAL_ASSETS_PATH", "data/assets"),
		LocalPublicURL:         getEnv("LOCAL_PUBLIC_URL", "http://localhost:8080/files"),

		// Media processing
		ThumbnailSize: getEnvAsInt("THUMBNAIL_SIZE", 256),
		PosterSize:    getEnvAsInt("POSTER_SIZE", 1024),
		WebPQuality:   getEnvAsInt("WEBP_QUALITY", 75),
		FFmpegPath:    getEnv("FFMPEG_PATH", "ffmpeg"),
		CWebPPath:     getEnv("CWEBP_PATH", "cwebp"),
		MagickPath:    getEnv("MAGICK_PATH", "magick"),
		MaxUploadSize: int64(getEnvAsInt("MAX_UPLOAD_SIZE_MB", 50)) << 20,

		// Security
		BcryptCost:                  getEnvAsInt("BCRYPT_COST", 12),
		RateLimitRequests:           getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitDuration:           getEnvAsDuration("RATE_LIMIT_DURATION", "1m"),
		UploadMaxPerDay:             getEnvAsInt("UPLOAD_MAX_PER_DAY", 200),
		AdminRateLimitActions:       getEnvAsInt("ADMIN_RATE_LIMIT_ACTIONS", 3),
		AdminRateLimitWindowMinutes: getEnvAsInt("ADMIN_RATE_LIMIT_WINDOW_MINUTES", 5),

		// CORS
		AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		AllowedMethods: getEnvAsSlice("ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		AllowedHeaders: getEnvAsSlice("ALLOWED_HEADERS", []string{"Content-Type", "Authorization", "X-Request-ID"}),

		// Observability
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		TracingEnabled: getEnvAsBool("TRACING_ENABLED", false),
	}
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	if duration, err := time.ParseDuration(defaultValue); err == nil {
		return duration
	}
	return time.Hour
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
