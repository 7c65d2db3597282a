package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	App       AppConfig
	GCP       GCPConfig
	Storage   StorageConfig
	Metadata  MetadataConfig
	Redis     RedisConfig
	Fetch     FetchConfig
	Ingest    IngestConfig
	Reconcile ReconcileConfig
	AI        AIConfig
}

type ServerConfig struct {
	Port               string
	CORSAllowedOrigins []string
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

// GCPConfig holds the decoded service-account JSON documents.
type GCPConfig struct {
	StorageCredentials  []byte
	FirebaseCredentials []byte
	FirebaseProjectID   string
}

type StorageConfig struct {
	Driver        string // gcs, s3, minio, memory
	Bucket        string
	PublicBaseURL string
	Overwrite     string // allow, deny

	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string
	S3PathStyle bool

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
}

type MetadataConfig struct {
	Driver             string // firestore, memory
	ProjectsCollection string
	ChatsCollection    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	RelayTTL time.Duration
}

type FetchConfig struct {
	AllowedHosts []string
	Timeout      time.Duration
	MaxBytes     int64
	RateLimit    float64
	RateBurst    int
	UserAgent    string
}

type IngestConfig struct {
	UploadMaxBytes  int64
	IndexMaxEntries int
}

type ReconcileConfig struct {
	Enabled  bool
	Schedule string
	After    time.Duration
}

type AIConfig struct {
	APIKey string
	Model  string
}

const (
	DriverGCS       = "gcs"
	DriverS3        = "s3"
	DriverMinio     = "minio"
	DriverMemory    = "memory"
	DriverFirestore = "firestore"

	OverwriteAllow = "allow"
	OverwriteDeny  = "deny"
)

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	storageCreds, err := getEnvBase64JSON("GCLOUD_KEY_BASE64")
	if err != nil {
		return nil, err
	}
	firebaseCreds, err := getEnvBase64JSON("FIREBASE_KEY_BASE64")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "4000"),
			CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		GCP: GCPConfig{
			StorageCredentials:  storageCreds,
			FirebaseCredentials: firebaseCreds,
			FirebaseProjectID:   getEnv("FIREBASE_PROJECT_ID", ""),
		},
		Storage: StorageConfig{
			Driver:         strings.ToLower(getEnv("STORAGE_DRIVER", DriverGCS)),
			Bucket:         getEnv("STORAGE_BUCKET", "novacode"),
			PublicBaseURL:  getEnv("STORAGE_PUBLIC_BASE_URL", ""),
			Overwrite:      strings.ToLower(getEnv("OBJECT_OVERWRITE", OverwriteAllow)),
			S3Region:       getEnv("S3_REGION", "us-east-1"),
			S3AccessKey:    getEnv("S3_ACCESS_KEY", ""),
			S3SecretKey:    getEnv("S3_SECRET_KEY", ""),
			S3Endpoint:     getEnv("S3_ENDPOINT", ""),
			S3PathStyle:    getEnvAsBool("S3_USE_PATH_STYLE", false),
			MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
			MinioUseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
		},
		Metadata: MetadataConfig{
			Driver:             strings.ToLower(getEnv("METADATA_DRIVER", DriverFirestore)),
			ProjectsCollection: getEnv("PROJECTS_COLLECTION", "projects"),
			ChatsCollection:    getEnv("CHATS_COLLECTION", "chats"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			RelayTTL: getEnvAsDuration("RELAY_CACHE_TTL", 10*time.Minute),
		},
		Fetch: FetchConfig{
			AllowedHosts: getEnvAsList("FETCH_ALLOWED_HOSTS", []string{
				"github.com",
				"codeload.github.com",
				"raw.githubusercontent.com",
				"api.github.com",
				"storage.googleapis.com",
			}),
			Timeout:   getEnvAsDuration("FETCH_TIMEOUT", 2*time.Minute),
			MaxBytes:  int64(getEnvAsInt("FETCH_MAX_BYTES", 200<<20)),
			RateLimit: getEnvAsFloat("FETCH_RATE_LIMIT", 5),
			RateBurst: getEnvAsInt("FETCH_RATE_BURST", 10),
			UserAgent: getEnv("FETCH_USER_AGENT", "novacode-backend"),
		},
		Ingest: IngestConfig{
			UploadMaxBytes:  int64(getEnvAsInt("UPLOAD_MAX_BYTES", 10<<20)),
			IndexMaxEntries: getEnvAsInt("INDEX_MAX_ENTRIES", 5000),
		},
		Reconcile: ReconcileConfig{
			Enabled:  getEnvAsBool("RECONCILE_ENABLED", true),
			Schedule: getEnv("RECONCILE_SCHEDULE", "0 */15 * * * *"),
			After:    getEnvAsDuration("RECONCILE_AFTER", time.Hour),
		},
		AI: AIConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("AI_MODEL", "gemini-1.5-flash-001"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Storage.Driver {
	case DriverGCS:
		if len(c.GCP.StorageCredentials) == 0 {
			return fmt.Errorf("GCLOUD_KEY_BASE64 is required for the gcs storage driver")
		}
	case DriverS3, DriverMinio, DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Storage.Driver != DriverMemory && c.Storage.Bucket == "" {
		return fmt.Errorf("STORAGE_BUCKET is required")
	}

	switch c.Storage.Overwrite {
	case OverwriteAllow, OverwriteDeny:
	default:
		return fmt.Errorf("OBJECT_OVERWRITE must be %q or %q", OverwriteAllow, OverwriteDeny)
	}

	switch c.Metadata.Driver {
	case DriverFirestore:
		if len(c.GCP.FirebaseCredentials) == 0 {
			return fmt.Errorf("FIREBASE_KEY_BASE64 is required for the firestore metadata driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown METADATA_DRIVER %q", c.Metadata.Driver)
	}

	if c.Ingest.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	if c.Fetch.MaxBytes <= 0 {
		return fmt.Errorf("FETCH_MAX_BYTES must be positive")
	}

	return nil
}

// OverwriteAllowed reports whether the store may replace an existing object.
func (c StorageConfig) OverwriteAllowed() bool {
	return c.Overwrite != OverwriteDeny
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid number for %s, using default: %v", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean for %s, using default: %t", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnvBase64JSON decodes a base64 service-account key. An unset
// variable yields nil; a set but malformed one is a startup error.
func getEnvBase64JSON(key string) ([]byte, error) {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return nil, nil
	}

	raw, err := base64.StdEncoding.DecodeString(valueStr)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid base64: %w", key, err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%s does not decode to a JSON document", key)
	}
	return raw, nil
}
