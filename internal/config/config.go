package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Logging     LoggingConfig
	Detection   DetectionConfig
	Remediation RemediationConfig
	Schedule    ScheduleConfig
	AWS         AWSConfig
	GCP         GCPConfig
	Azure       AzureConfig
	OpenAI      OpenAIConfig
	GitHub      GitHubConfig
	Slack       SlackConfig
	Retrieval   RetrievalConfig
}

// ServerConfig contains ops HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// DetectionConfig contains anomaly detection tuning
type DetectionConfig struct {
	WindowDays         int     // trailing cost window per entity
	MinObservations    int     // minimum daily observations before a series is scored
	SigmaMultiplier    float64 // spike threshold in standard deviations above the mean
	WasteScoreMin      int     // snapshots at or below this score are ignored
	SnapshotWindowHrs  int
}

// RemediationConfig contains orchestrator tuning
type RemediationConfig struct {
	Workers      int
	StageTimeout time.Duration
	RatePerSec   float64 // collaborator call budget shared across workers
}

// ScheduleConfig contains cron schedules
type ScheduleConfig struct {
	DetectionSpec string // cron spec for the detection+remediation job
}

// AWSConfig contains AWS access configuration
type AWSConfig struct {
	Enabled         bool
	AccessKeyID     string
	SecretAccessKey string
	Region          string
}

// GCPConfig contains GCP billing export configuration
type GCPConfig struct {
	Enabled            bool
	ProjectID          string
	ServiceAccountJSON string
	BillingDataset     string
}

// AzureConfig contains Azure cost management configuration
type AzureConfig struct {
	Enabled        bool
	TenantID       string
	ClientID       string
	ClientSecret   string
	SubscriptionID string
}

// OpenAIConfig contains recommendation generator configuration
type OpenAIConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
}

// GitHubConfig contains change proposal sink configuration
type GitHubConfig struct {
	Token      string
	Owner      string
	Repo       string
	BaseBranch string
}

// SlackConfig contains notifier configuration
type SlackConfig struct {
	WebhookURL string
	Channel    string
}

// RetrievalConfig contains context retrieval service configuration
type RetrievalConfig struct {
	BaseURL string
	TopK    int
	Timeout time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Detection: DetectionConfig{
			WindowDays:        getEnvAsInt("DETECTION_WINDOW_DAYS", 30),
			MinObservations:   getEnvAsInt("DETECTION_MIN_OBSERVATIONS", 7),
			SigmaMultiplier:   getEnvAsFloat("DETECTION_SIGMA_MULTIPLIER", 2.0),
			WasteScoreMin:     getEnvAsInt("DETECTION_WASTE_SCORE_MIN", 70),
			SnapshotWindowHrs: getEnvAsInt("DETECTION_SNAPSHOT_WINDOW_HOURS", 24),
		},
		Remediation: RemediationConfig{
			Workers:      getEnvAsInt("REMEDIATION_WORKERS", 4),
			StageTimeout: getEnvAsDuration("REMEDIATION_STAGE_TIMEOUT", 60*time.Second),
			RatePerSec:   getEnvAsFloat("REMEDIATION_RATE_PER_SEC", 2.0),
		},
		Schedule: ScheduleConfig{
			DetectionSpec: getEnv("DETECTION_CRON", "0 * * * *"),
		},
		AWS: AWSConfig{
			Enabled:         getEnvAsBool("AWS_ENABLED", true),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Region:          getEnv("AWS_DEFAULT_REGION", "us-east-1"),
		},
		GCP: GCPConfig{
			Enabled:            getEnvAsBool("GCP_ENABLED", false),
			ProjectID:          getEnv("GCP_PROJECT_ID", ""),
			ServiceAccountJSON: getEnv("GCP_SERVICE_ACCOUNT_JSON", ""),
			BillingDataset:     getEnv("GCP_BILLING_DATASET", ""),
		},
		Azure: AzureConfig{
			Enabled:        getEnvAsBool("AZURE_ENABLED", false),
			TenantID:       getEnv("AZURE_TENANT_ID", ""),
			ClientID:       getEnv("AZURE_CLIENT_ID", ""),
			ClientSecret:   getEnv("AZURE_CLIENT_SECRET", ""),
			SubscriptionID: getEnv("AZURE_SUBSCRIPTION_ID", ""),
		},
		OpenAI: OpenAIConfig{
			APIKey:    getEnv("OPENAI_API_KEY", ""),
			Model:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			MaxTokens: getEnvAsInt("OPENAI_MAX_TOKENS", 4096),
		},
		GitHub: GitHubConfig{
			Token:      getEnv("GITHUB_TOKEN", ""),
			Owner:      getEnv("GITHUB_OWNER", ""),
			Repo:       getEnv("GITHUB_REPO", ""),
			BaseBranch: getEnv("GITHUB_BASE_BRANCH", "main"),
		},
		Slack: SlackConfig{
			WebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),
			Channel:    getEnv("SLACK_CHANNEL", ""),
		},
		Retrieval: RetrievalConfig{
			BaseURL: getEnv("RETRIEVAL_URL", ""),
			TopK:    getEnvAsInt("RETRIEVAL_TOP_K", 5),
			Timeout: getEnvAsDuration("RETRIEVAL_TIMEOUT", 10*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Detection.WindowDays < 1 {
		return fmt.Errorf("detection window must be at least 1 day")
	}
	if c.Detection.MinObservations < 2 {
		return fmt.Errorf("detection requires at least 2 observations")
	}
	if c.Detection.SigmaMultiplier <= 0 {
		return fmt.Errorf("sigma multiplier must be positive")
	}
	if c.Remediation.Workers < 1 {
		return fmt.Errorf("remediation worker count must be at least 1")
	}
	if c.Remediation.RatePerSec <= 0 {
		return fmt.Errorf("remediation rate limit must be positive")
	}
	return nil
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
		return defaultValue
	}
	return value
}
