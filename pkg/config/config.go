package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional: empty URL disables persistence)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Stress engine
	Optimizer OptimizerConfig
	Targets   TargetsConfig
	Batch     BatchConfig
	Scheduler SchedulerConfig
	API       APIConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	CacheTTL time.Duration // stress result cache TTL
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether persistence is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// OptimizerConfig worst-case search settings
type OptimizerConfig struct {
	MaxIterations   int
	ObjectiveTol    float64
	ConstraintTol   float64
	InitialStep     float64
	StallIterations int
	CornerRestarts  bool
	PenaltyWeight   float64 // λ for externally proposed shocks
}

// TargetsConfig scenario metrics targets
type TargetsConfig struct {
	LossRatio  float64
	JointSigma float64
}

// BatchConfig parallel scenario dispatch
type BatchConfig struct {
	Workers         int
	ScenarioTimeout time.Duration
}

// SchedulerConfig periodic stress run
type SchedulerConfig struct {
	Schedule string // cron spec with seconds field
	BookPath string
}

// APIConfig HTTP API limits
type APIConfig struct {
	RateLimit float64 // requests per second for POST endpoints
	RateBurst int
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			CacheTTL: getEnvAsDuration("STRESS_CACHE_TTL", "1h"),
		},

		Optimizer: OptimizerConfig{
			MaxIterations:   getEnvAsInt("OPT_MAX_ITERATIONS", 5000),
			ObjectiveTol:    getEnvAsFloat("OPT_OBJECTIVE_TOL", 1e-4),
			ConstraintTol:   getEnvAsFloat("OPT_CONSTRAINT_TOL", 1e-4),
			InitialStep:     getEnvAsFloat("OPT_INITIAL_STEP", 1.0),
			StallIterations: getEnvAsInt("OPT_STALL_ITERATIONS", 100),
			CornerRestarts:  getEnvAsBool("OPT_CORNER_RESTARTS", false),
			PenaltyWeight:   getEnvAsFloat("OPT_PENALTY_WEIGHT", 1e9),
		},

		Targets: TargetsConfig{
			LossRatio:  getEnvAsFloat("TARGET_LOSS_RATIO", 0.10),
			JointSigma: getEnvAsFloat("TARGET_JOINT_SIGMA", 6.0),
		},

		Batch: BatchConfig{
			Workers:         getEnvAsInt("BATCH_WORKERS", 4),
			ScenarioTimeout: getEnvAsDuration("BATCH_SCENARIO_TIMEOUT", "30s"),
		},

		Scheduler: SchedulerConfig{
			Schedule: getEnv("STRESS_SCHEDULE", "0 0 7 * * 1-5"),
			BookPath: getEnv("STRESS_BOOK_PATH", "config/scenarios.yaml"),
		},

		API: APIConfig{
			RateLimit: getEnvAsFloat("API_RATE_LIMIT", 5),
			RateBurst: getEnvAsInt("API_RATE_BURST", 10),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks configuration values
// 기본값으로 대체하지 않고 즉시 실패
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Optimizer.MaxIterations <= 0 {
		return fmt.Errorf("OPT_MAX_ITERATIONS must be > 0")
	}
	if c.Optimizer.ObjectiveTol <= 0 || c.Optimizer.ConstraintTol <= 0 {
		return fmt.Errorf("OPT_OBJECTIVE_TOL and OPT_CONSTRAINT_TOL must be > 0")
	}
	if c.Optimizer.InitialStep <= 0 {
		return fmt.Errorf("OPT_INITIAL_STEP must be > 0")
	}
	if c.Optimizer.StallIterations <= 0 {
		return fmt.Errorf("OPT_STALL_ITERATIONS must be > 0")
	}
	if c.Optimizer.PenaltyWeight < 0 {
		return fmt.Errorf("OPT_PENALTY_WEIGHT must be >= 0")
	}

	if c.Targets.LossRatio <= 0 || c.Targets.JointSigma <= 0 {
		return fmt.Errorf("TARGET_LOSS_RATIO and TARGET_JOINT_SIGMA must be > 0")
	}

	if c.Batch.Workers <= 0 {
		return fmt.Errorf("BATCH_WORKERS must be > 0")
	}
	if c.Batch.ScenarioTimeout <= 0 {
		return fmt.Errorf("BATCH_SCENARIO_TIMEOUT must be > 0")
	}

	if c.API.RateLimit <= 0 || c.API.RateBurst <= 0 {
		return fmt.Errorf("API_RATE_LIMIT and API_RATE_BURST must be > 0")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
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

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
