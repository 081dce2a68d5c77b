// Package config loads service configuration from defaults, an optional
// config file, and ASRS_* environment variables, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/wms-platform/asrs-service/internal/application"
	"github.com/wms-platform/asrs-service/internal/domain"
)

// Store backends
const (
	BackendMongoDB = "mongodb"
	BackendMemory  = "memory"
)

// Dispatchers
const (
	DispatcherInProcess = "inprocess"
	DispatcherTemporal  = "temporal"
)

// Config is the full service configuration
type Config struct {
	ServiceName string                    `mapstructure:"serviceName"`
	Environment string                    `mapstructure:"environment"`
	Server      ServerConfig              `mapstructure:"server"`
	Store       StoreConfig               `mapstructure:"store"`
	Dispatcher  string                    `mapstructure:"dispatcher"`
	MongoDB     MongoDBConfig             `mapstructure:"mongodb"`
	Kafka       KafkaConfig               `mapstructure:"kafka"`
	Redis       RedisConfig               `mapstructure:"redis"`
	Temporal    TemporalConfig            `mapstructure:"temporal"`
	Routing     application.RouteConfig   `mapstructure:"routing"`
	Scoring     ScoringConfig             `mapstructure:"scoring"`
	Layout      domain.LayoutGeometry     `mapstructure:"layout"`
	Robot       RobotConfig               `mapstructure:"robot"`
	Monitor     application.MonitorConfig `mapstructure:"monitor"`
	Tracing     TracingConfig             `mapstructure:"tracing"`
	Logging     LoggingConfig             `mapstructure:"logging"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

// MongoDBConfig holds the MongoDB connection settings
type MongoDBConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connectTimeout"`
}

// KafkaConfig holds the outbox relay settings
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	ClientID     string        `mapstructure:"clientId"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
}

// RedisConfig holds the lock backend settings. An empty addr selects the
// in-process locker.
type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	LockTTL     time.Duration `mapstructure:"lockTTL"`
	WaitTimeout time.Duration `mapstructure:"waitTimeout"`
}

// TemporalConfig holds the Temporal client settings
type TemporalConfig struct {
	HostPort  string `mapstructure:"hostPort"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"taskQueue"`
}

// ScoringConfig tunes the plan efficiency score
type ScoringConfig struct {
	UnitDistance float64 `mapstructure:"unitDistance"`
}

// RobotConfig holds robot defaults and simulated timings
type RobotConfig struct {
	DefaultSpeed      float64       `mapstructure:"defaultSpeed"`
	MoveWaitCeiling   time.Duration `mapstructure:"moveWaitCeiling"`
	CalibrateDuration time.Duration `mapstructure:"calibrateDuration"`
}

// TracingConfig holds the OpenTelemetry exporter settings
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	Endpoint   string  `mapstructure:"endpoint"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// LoggingConfig holds the log level
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Executor returns the command executor timings
func (c *Config) Executor() application.ExecutorConfig {
	return application.ExecutorConfig{
		MoveWaitCeiling:   c.Robot.MoveWaitCeiling,
		CalibrateDuration: c.Robot.CalibrateDuration,
	}
}

func setDefaults(v *viper.Viper) {
	route := application.DefaultRouteConfig()
	geometry := domain.DefaultLayoutGeometry()
	executor := application.DefaultExecutorConfig()
	monitor := application.DefaultMonitorConfig()

	v.SetDefault("serviceName", "asrs-service")
	v.SetDefault("environment", "development")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdownTimeout", 30*time.Second)

	v.SetDefault("store.backend", BackendMongoDB)
	v.SetDefault("dispatcher", DispatcherInProcess)

	v.SetDefault("mongodb.uri", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("mongodb.database", "asrs")
	v.SetDefault("mongodb.connectTimeout", 10*time.Second)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.clientId", "asrs-service")
	v.SetDefault("kafka.pollInterval", time.Second)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lockTTL", application.DefaultLockTTL)
	v.SetDefault("redis.waitTimeout", 2*time.Second)

	v.SetDefault("temporal.hostPort", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.taskQueue", "asrs-robot-commands")

	v.SetDefault("routing.travelSecondsPerUnit", route.TravelSecondsPerUnit)
	v.SetDefault("routing.fixedPickSeconds", route.FixedPickSeconds)
	v.SetDefault("routing.weightPenaltyPerKg", route.WeightPenaltyPerKg)
	v.SetDefault("routing.weightPenaltyCapSeconds", route.WeightPenaltyCapSeconds)

	v.SetDefault("scoring.unitDistance", application.DefaultUnitDistance)

	v.SetDefault("layout.aisleSpacing", geometry.AisleSpacing)
	v.SetDefault("layout.rackWidth", geometry.RackWidth)
	v.SetDefault("layout.slotWidth", geometry.SlotWidth)
	v.SetDefault("layout.levelHeight", geometry.LevelHeight)

	v.SetDefault("robot.defaultSpeed", domain.DefaultRobotSpeed)
	v.SetDefault("robot.moveWaitCeiling", executor.MoveWaitCeiling)
	v.SetDefault("robot.calibrateDuration", executor.CalibrateDuration)

	v.SetDefault("monitor.stallThreshold", monitor.StallThreshold)
	v.SetDefault("monitor.interval", monitor.Interval)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.sampleRate", 1.0)

	v.SetDefault("logging.level", "info")
}

// Load reads the configuration. The file named by ASRS_CONFIG_FILE is read
// when set; environment variables override it, e.g. ASRS_STORE_BACKEND.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ASRS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("ASRS_CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMongoDB, BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Dispatcher {
	case DispatcherInProcess, DispatcherTemporal:
	default:
		return fmt.Errorf("unknown dispatcher %q", c.Dispatcher)
	}
	if c.Dispatcher == DispatcherTemporal && c.Store.Backend == BackendMemory {
		return fmt.Errorf("the temporal dispatcher needs a shared store; memory is process-local")
	}
	if c.Robot.DefaultSpeed <= 0 {
		return fmt.Errorf("robot.defaultSpeed must be positive")
	}
	if c.Layout.AisleSpacing <= 0 || c.Layout.RackWidth <= 0 || c.Layout.SlotWidth <= 0 || c.Layout.LevelHeight <= 0 {
		return fmt.Errorf("layout geometry must be positive")
	}
	return nil
}
