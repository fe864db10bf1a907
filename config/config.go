package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Execution environments understood by the fuzzing daemons.
// "debug" turns on verbose logging; "test" disables all external collaborators.
const (
	EnvDebug      = "debug"
	EnvProduction = "production"
	EnvTest       = "test"
)

type AppConfig struct {
	Environment        string // debug | production | test
	DatabaseURL        string
	RabbitMQURL        string
	RedisSentinelHosts string
	RedisMasterName    string
	RedisUrl           string
	CompilerPath       string // path to the solc binary
	EchidnaPath        string // path to the echidna binary
	LogLevel           string
	CampaignConfig     CampaignConfig
	CoreCount          int
	ServiceName        string
}

type CampaignConfig struct {
	SchedulingInterval time.Duration // how long one campaign epoch runs
	TestLimit          int           // transactions per campaign epoch
	SeqLen             int           // transactions per call sequence
}

func LoadConfig() *AppConfig {
	// use a temporary logger for now
	logger := zap.NewExample().Named("config")

	godotenv.Load()

	config := &AppConfig{
		Environment:        os.Getenv("SOLFUZZ_ENV"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RabbitMQURL:        os.Getenv("RABBITMQ_URL"),
		RedisSentinelHosts: os.Getenv("REDIS_SENTINEL_HOSTS"),
		RedisMasterName:    os.Getenv("REDIS_MASTER"),
		RedisUrl:           os.Getenv("OVERRIDE_REDIS_URL"), // optional, for local dev
		CompilerPath:       os.Getenv("SOLC_PATH"),
		EchidnaPath:        os.Getenv("ECHIDNA_PATH"),
		LogLevel:           os.Getenv("LOG_LEVEL"),
		CampaignConfig: CampaignConfig{
			SchedulingInterval: parseDuration(os.Getenv("CAMPAIGN_INTERVAL"), 10*time.Minute),
			TestLimit:          parseInt(os.Getenv("CAMPAIGN_TEST_LIMIT"), 50000),
			SeqLen:             parseInt(os.Getenv("CAMPAIGN_SEQ_LEN"), 100),
		},
		CoreCount:   parseInt(os.Getenv("CORE_COUNT"), 8),
		ServiceName: os.Getenv("SERVICE_NAME"),
	}

	if config.Environment == "" {
		config.Environment = EnvProduction
	}
	if config.LogLevel == "" {
		config.LogLevel = "info" // Set default log level
	}
	if config.Environment == EnvDebug {
		// the debug environment always logs at debug level
		config.LogLevel = "debug"
	}

	if config.CompilerPath == "" {
		config.CompilerPath = "solc"
	}
	if config.EchidnaPath == "" {
		config.EchidnaPath = "echidna"
	}

	// external collaborators are mandatory outside the test environment
	if config.Environment != EnvTest {
		if config.DatabaseURL == "" {
			logger.Fatal("DATABASE_URL environment variable is required")
		}
		if config.RabbitMQURL == "" {
			logger.Fatal("RABBITMQ_URL environment variable is required")
		}
		if config.RedisUrl == "" && config.RedisSentinelHosts == "" {
			logger.Fatal("REDIS_SENTINEL_HOSTS environment variable is required")
		}
		if config.RedisUrl == "" && config.RedisMasterName == "" {
			logger.Fatal("REDIS_MASTER environment variable is required")
		}
	}
	if config.ServiceName == "" {
		config.ServiceName = "solfuzz" // Default service name
	}

	return config
}

func parseDuration(val string, defaultVal time.Duration) time.Duration {
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func parseInt(val string, defaultVal int) int {
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}
