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
	Server    ServerConfig
	Logging   LoggingConfig
	Fetch     FetchConfig
	Analytics AnalyticsConfig
	Snapshot  SnapshotConfig
	History   HistoryConfig
	Collector CollectorConfig
	Providers ProvidersConfig
	Insights  InsightsConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Environment     string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// FetchConfig bounds upstream provider fetches.
type FetchConfig struct {
	Timeout     time.Duration // per-provider fetch deadline
	MaxRetries  int           // extra attempts for transient failures
	RetryDelay  time.Duration // base backoff, doubled per attempt
	RatePerSec  float64       // per-provider request rate
	RateBurst   int
}

// AnalyticsConfig carries the tunable constants of the analytics engines.
// The defaults reproduce the documented heuristics; none of them is baked
// into the engine code.
type AnalyticsConfig struct {
	AnomalyBaselineDays  int     // rolling window for the median baseline
	AnomalySpikeRatio    float64 // amount > baseline*ratio flags a spike
	AnomalyDropRatio     float64 // amount < baseline*ratio flags a drop
	ForecastPeriods      int     // forward 30-day periods to project
	ForecastConfidence   float64 // half-width of the confidence band, fraction
	RiskRunningPoints    int
	RiskNoExternalIPPts  int
	RiskIdleMaxPoints    int     // cap on the scaled idle-signal contribution
	RiskIdleScale        float64 // idle_signal multiplier
	RiskHighCostPts      int
	RiskHighCost         float64 // cost_30d threshold for high-cost
	RiskVeryHighCost     float64 // cost_30d threshold for the stacking bonus
	IdleScoreThreshold   int     // idle_resources cutoff, exclusive
	PolicyFile           string  // optional YAML governance policy file
}

// DefaultAnalytics returns the documented heuristic defaults.
func DefaultAnalytics() AnalyticsConfig {
	return AnalyticsConfig{
		AnomalyBaselineDays: 7,
		AnomalySpikeRatio:   1.5,
		AnomalyDropRatio:    0.5,
		ForecastPeriods:     3,
		ForecastConfidence:  0.15,
		RiskRunningPoints:   20,
		RiskNoExternalIPPts: 10,
		RiskIdleMaxPoints:   60,
		RiskIdleScale:       0.6,
		RiskHighCostPts:     20,
		RiskHighCost:        100,
		RiskVeryHighCost:    500,
		IdleScoreThreshold:  50,
	}
}

// SnapshotConfig locates the snapshot store.
type SnapshotConfig struct {
	Dir string
}

// HistoryConfig locates the embedded cost history database.
type HistoryConfig struct {
	Path string
}

// CollectorConfig drives the scheduled collection worker.
type CollectorConfig struct {
	Enabled  bool
	Schedule string // cron spec
	Days     int    // window length per collection run
}

// ProvidersConfig carries per-provider credentials. Empty credentials mean
// the provider falls back to its ambient credential chain.
type ProvidersConfig struct {
	AWS   AWSConfig
	GCP   GCPConfig
	Azure AzureConfig
}

// AWSConfig contains AWS credentials and region
type AWSConfig struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
}

// GCPConfig contains GCP project and billing export settings
type GCPConfig struct {
	ProjectID          string
	ServiceAccountJSON string
	BillingTable       string // fully qualified billing export table
}

// AzureConfig contains Azure service principal settings
type AzureConfig struct {
	TenantID       string
	ClientID       string
	ClientSecret   string
	SubscriptionID string
}

// InsightsConfig configures the optional narrative engine.
type InsightsConfig struct {
	OpenAIAPIKey string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			Environment:     getEnv("ENVIRONMENT", "development"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Fetch: FetchConfig{
			Timeout:    getEnvAsDuration("FETCH_TIMEOUT", 90*time.Second),
			MaxRetries: getEnvAsInt("FETCH_MAX_RETRIES", 2),
			RetryDelay: getEnvAsDuration("FETCH_RETRY_DELAY", 2*time.Second),
			RatePerSec: getEnvAsFloat("FETCH_RATE_PER_SEC", 5),
			RateBurst:  getEnvAsInt("FETCH_RATE_BURST", 10),
		},
		Analytics: loadAnalytics(),
		Snapshot: SnapshotConfig{
			Dir: getEnv("SNAPSHOT_DIR", defaultDataPath("snapshots")),
		},
		History: HistoryConfig{
			Path: getEnv("HISTORY_DB_PATH", defaultDataPath("history.db")),
		},
		Collector: CollectorConfig{
			Enabled:  getEnvAsBool("COLLECTOR_ENABLED", false),
			Schedule: getEnv("COLLECTOR_SCHEDULE", "@daily"),
			Days:     getEnvAsInt("COLLECTOR_DAYS", 30),
		},
		Providers: ProvidersConfig{
			AWS: AWSConfig{
				AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
				Region:          getEnv("AWS_REGION", "us-east-1"),
			},
			GCP: GCPConfig{
				ProjectID:          getEnv("GCP_PROJECT_ID", ""),
				ServiceAccountJSON: getEnv("GCP_SERVICE_ACCOUNT_JSON", ""),
				BillingTable:       getEnv("GCP_BILLING_TABLE", ""),
			},
			Azure: AzureConfig{
				TenantID:       getEnv("AZURE_TENANT_ID", ""),
				ClientID:       getEnv("AZURE_CLIENT_ID", ""),
				ClientSecret:   getEnv("AZURE_CLIENT_SECRET", ""),
				SubscriptionID: getEnv("AZURE_SUBSCRIPTION_ID", ""),
			},
		},
		Insights: InsightsConfig{
			OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadAnalytics() AnalyticsConfig {
	def := DefaultAnalytics()
	return AnalyticsConfig{
		AnomalyBaselineDays: getEnvAsInt("ANOMALY_BASELINE_DAYS", def.AnomalyBaselineDays),
		AnomalySpikeRatio:   getEnvAsFloat("ANOMALY_SPIKE_RATIO", def.AnomalySpikeRatio),
		AnomalyDropRatio:    getEnvAsFloat("ANOMALY_DROP_RATIO", def.AnomalyDropRatio),
		ForecastPeriods:     getEnvAsInt("FORECAST_PERIODS", def.ForecastPeriods),
		ForecastConfidence:  getEnvAsFloat("FORECAST_CONFIDENCE", def.ForecastConfidence),
		RiskRunningPoints:   getEnvAsInt("RISK_RUNNING_POINTS", def.RiskRunningPoints),
		RiskNoExternalIPPts: getEnvAsInt("RISK_NO_EXTERNAL_IP_POINTS", def.RiskNoExternalIPPts),
		RiskIdleMaxPoints:   getEnvAsInt("RISK_IDLE_MAX_POINTS", def.RiskIdleMaxPoints),
		RiskIdleScale:       getEnvAsFloat("RISK_IDLE_SCALE", def.RiskIdleScale),
		RiskHighCostPts:     getEnvAsInt("RISK_HIGH_COST_POINTS", def.RiskHighCostPts),
		RiskHighCost:        getEnvAsFloat("RISK_HIGH_COST", def.RiskHighCost),
		RiskVeryHighCost:    getEnvAsFloat("RISK_VERY_HIGH_COST", def.RiskVeryHighCost),
		IdleScoreThreshold:  getEnvAsInt("IDLE_SCORE_THRESHOLD", def.IdleScoreThreshold),
		PolicyFile:          getEnv("POLICY_FILE", ""),
	}
}

func (c *Config) validate() error {
	if c.Analytics.AnomalyBaselineDays < 2 {
		return fmt.Errorf("ANOMALY_BASELINE_DAYS must be at least 2, got %d", c.Analytics.AnomalyBaselineDays)
	}
	if c.Analytics.AnomalySpikeRatio <= 1 {
		return fmt.Errorf("ANOMALY_SPIKE_RATIO must be greater than 1, got %v", c.Analytics.AnomalySpikeRatio)
	}
	if c.Analytics.AnomalyDropRatio <= 0 || c.Analytics.AnomalyDropRatio >= 1 {
		return fmt.Errorf("ANOMALY_DROP_RATIO must be in (0,1), got %v", c.Analytics.AnomalyDropRatio)
	}
	if c.Analytics.ForecastPeriods < 1 {
		return fmt.Errorf("FORECAST_PERIODS must be at least 1, got %d", c.Analytics.ForecastPeriods)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	return nil
}

func defaultDataPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return home + "/.spendlens/" + name
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
