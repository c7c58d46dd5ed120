package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/codearena/judge-api/internal/logger"
	"github.com/codearena/judge-api/internal/validator"
)

type PostgresConfig struct {
	User               string        `validate:"required"`
	Password           string        `validate:"required"`
	Host               string        `validate:"required"`
	Database           string        `validate:"required"`
	MaxIdleConnections int           `validate:"required" mapstructure:"max_idle_connections"`
	MaxOpenConnections int           `validate:"required" mapstructure:"max_open_connections"`
	ConnectionTTL      time.Duration `validate:"required" mapstructure:"connection_ttl"`
	Port               int16         `validate:"required"`
}

type SlogConfig struct {
	Level int `mapstructure:"level"`
}

type GormLogConfig struct {
	Level        int  `mapstructure:"level"`
	TraceQueries bool `mapstructure:"trace_queries"`
}

type LoggingConfig struct {
	Gorm    GormLogConfig `mapstructure:"gorm"`
	App     SlogConfig    `mapstructure:"app"`
	UseOTLP bool          `mapstructure:"use_otlp"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"     validate:"required"`
	Port     int    `mapstructure:"port"     validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type QueueBackend string

const (
	QueueBackendAzure QueueBackend = "azure"
	QueueBackendRedis QueueBackend = "redis"
)

type AzureQueueConfig struct {
	AccountName string `mapstructure:"account_name"`
	AccountKey  string `mapstructure:"account_key"`
	URL         string `mapstructure:"url"`
	Name        string `mapstructure:"name"`
	// Create the queue on startup, used against azurite
	Dev bool `mapstructure:"dev"`
}

type RedisQueueConfig struct {
	Key string `mapstructure:"key" validate:"required"`
}

type QueueConfig struct {
	Azure   *AzureQueueConfig `mapstructure:"azure"`
	Redis   *RedisQueueConfig `mapstructure:"redis"   validate:"required"`
	Backend QueueBackend      `mapstructure:"backend" validate:"required,oneof=azure redis"`
	// Upper bound on handling a single verdict message
	HandlerTimeout time.Duration `mapstructure:"handler_timeout" validate:"required"`
}

type LiveConfig struct {
	Channel string `mapstructure:"channel" validate:"required"`
	// Fan updates out through redis pub/sub so every instance's websocket clients see them
	Relay bool `mapstructure:"relay"`
}

type RateLimitConfig struct {
	StandingsPerMinute int64 `mapstructure:"standings_per_minute"`
	FailOpen           bool  `mapstructure:"fail_open"`
}

// See judgeapi.example.yaml for a full config
type Config struct {
	Postgres             *PostgresConfig  `mapstructure:"postgres"               validate:"required"`
	Logging              *LoggingConfig   `mapstructure:"logging"                validate:"required"`
	Redis                *RedisConfig     `mapstructure:"redis"                  validate:"required"`
	Queue                *QueueConfig     `mapstructure:"queue"                  validate:"required"`
	Live                 *LiveConfig      `mapstructure:"live"                   validate:"required"`
	RateLimit            *RateLimitConfig `mapstructure:"ratelimit"`
	ListenAddress        string           `mapstructure:"listen_address"         validate:"required"`
	GracefulShutdownSecs int64            `mapstructure:"graceful_shutdown_secs"`
}

const (
	AppLogLevel                string = "logging.app.level"
	EnvPrefix                  string = "judgeapi"
	UseOTLP                    string = "logging.use_otlp"
	GormLogLevel               string = "logging.gorm.level"
	GormTraceQueries           string = "logging.gorm.trace_queries"
	GracefulShutdownSecs       string = "graceful_shutdown_secs"
	ListenAddress              string = "listen_address"
	PostgresDatabase           string = "postgres.database"
	PostgresHost               string = "postgres.host"
	PostgresPassword           string = "postgres.password"
	PostgresPort               string = "postgres.port"
	PostgresUser               string = "postgres.user"
	PostgresMaxIdleConnections string = "postgres.max_idle_connections"
	PostgresMaxOpenConnections string = "postgres.max_open_connections"
	PostgresConnectonTTL       string = "postgres.connection_ttl"
	RedisHost                  string = "redis.host"
	RedisPort                  string = "redis.port"
	RedisPassword              string = "redis.password"
	RedisDB                    string = "redis.db"
	QueueBackendKey            string = "queue.backend"
	QueueHandlerTimeout        string = "queue.handler_timeout"
	QueueAzureAccountName      string = "queue.azure.account_name"
	QueueAzureAccountKey       string = "queue.azure.account_key"
	QueueAzureURL              string = "queue.azure.url"
	QueueAzureName             string = "queue.azure.name"
	QueueAzureDev              string = "queue.azure.dev"
	QueueRedisKey              string = "queue.redis.key"
	LiveChannel                string = "live.channel"
	LiveRelay                  string = "live.relay"
	RateLimitStandingsPerMin   string = "ratelimit.standings_per_minute"
	RateLimitFailOpen          string = "ratelimit.fail_open"
)

var configReady = false
var config Config

func GetConfig() (*Config, error) {
	if configReady {
		logger.Logger.Debug("returning already-loaded config")
		return &config, nil
	}
	logger.Logger.Info("loading config")

	v := viper.New()

	v.SetConfigName("judgeapi")

	v.AddConfigPath("/etc/judgeapi/")
	v.AddConfigPath(".")

	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.AutomaticEnv()

	// workaround for https://github.com/spf13/viper/issues/761
	// bind env vars explicitly so they unmarshal into the nested struct
	for _, key := range []string{
		PostgresUser,
		PostgresPassword,
		PostgresDatabase,
		RedisPassword,
		QueueAzureAccountName,
		QueueAzureAccountKey,
		QueueAzureURL,
		QueueAzureName,
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	v.SetDefault(ListenAddress, "[::]:1323")
	v.SetDefault(PostgresHost, "localhost")
	v.SetDefault(PostgresPort, 5432)
	v.SetDefault(PostgresMaxIdleConnections, 2)
	v.SetDefault(PostgresMaxOpenConnections, 10)
	v.SetDefault(PostgresConnectonTTL, 10*time.Minute)
	v.SetDefault(GormLogLevel, int(slog.LevelDebug))
	v.SetDefault(GormTraceQueries, false)
	v.SetDefault(AppLogLevel, int(slog.LevelDebug))

	v.SetDefault(RedisHost, "localhost")
	v.SetDefault(RedisPort, 6379)
	v.SetDefault(RedisDB, 0)

	v.SetDefault(QueueBackendKey, string(QueueBackendRedis))
	v.SetDefault(QueueHandlerTimeout, time.Minute)
	v.SetDefault(QueueAzureDev, false)
	v.SetDefault(QueueRedisKey, "judgeapi:verdicts")

	v.SetDefault(LiveChannel, "judgeapi:live")
	v.SetDefault(LiveRelay, false)

	v.SetDefault(RateLimitStandingsPerMin, 0)
	v.SetDefault(RateLimitFailOpen, true)

	v.SetDefault(UseOTLP, false)
	v.SetDefault(GracefulShutdownSecs, 30)

	err := v.ReadInConfig()
	if err != nil {
		// ignore config file not found to allow pure env config
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	err = v.Unmarshal(&config)
	if err != nil {
		configReady = false
		return nil, err
	}

	valid := validator.Create()
	err = valid.Validate(&config)
	if err != nil {
		configReady = false
		return nil, err
	}

	if err = config.validateQueue(); err != nil {
		configReady = false
		return nil, err
	}

	configReady = true
	return &config, nil
}

// Azure settings are only required when azure is the selected backend
func (c *Config) validateQueue() error {
	if c.Queue.Backend != QueueBackendAzure {
		return nil
	}

	az := c.Queue.Azure
	if az == nil || az.AccountName == "" || az.AccountKey == "" || az.URL == "" || az.Name == "" {
		return fmt.Errorf(
			"queue backend %q requires queue.azure.account_name, account_key, url and name",
			c.Queue.Backend,
		)
	}

	return nil
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s",
		url.QueryEscape(c.Postgres.User),
		url.QueryEscape(c.Postgres.Password),
		c.Postgres.Host, c.Postgres.Port,
		url.QueryEscape(c.Postgres.Database),
	)
}
