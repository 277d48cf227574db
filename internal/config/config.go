package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Leader      LeaderConfig      `mapstructure:"leader"`
	Lock        LockConfig        `mapstructure:"lock"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Instance    InstanceConfig    `mapstructure:"instance"`
	Admin       AdminConfig       `mapstructure:"admin"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DatabaseConfig selects the persistent store. Driver is "mysql" or "sqlite";
// for sqlite the URL is a file path.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type CacheConfig struct {
	Prefix string `mapstructure:"prefix"`
}

type LeaderConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type LockConfig struct {
	TTL  time.Duration `mapstructure:"ttl"`
	Wait time.Duration `mapstructure:"wait"`
}

type SchedulerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type LeaderboardConfig struct {
	Refresh time.Duration `mapstructure:"refresh"`
}

type InstanceConfig struct {
	ID string `mapstructure:"id"`
}

type AdminConfig struct {
	Token string `mapstructure:"token"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/ece-marketplace/")

	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, config.Validate()
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, config.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.url", "ece_user:ece_pass@tcp(localhost:3306)/ece_marketplace?parseTime=true")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("cache.prefix", "ece:")
	v.SetDefault("leader.ttl", 30*time.Second)
	v.SetDefault("lock.ttl", 10*time.Second)
	v.SetDefault("lock.wait", 5*time.Second)
	v.SetDefault("scheduler.interval", 10*time.Second)
	v.SetDefault("leaderboard.refresh", 5*time.Minute)
	v.SetDefault("instance.id", "marketplace-1")
	v.SetDefault("admin.token", "")
	v.SetDefault("log.level", "info")
}

func bindEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"server.port":                {"SERVER_PORT"},
		"server.host":                {"SERVER_HOST"},
		"redis.host":                 {"REDIS_HOST"},
		"redis.port":                 {"REDIS_PORT"},
		"redis.password":             {"REDIS_PASSWORD"},
		"redis.db":                   {"REDIS_DB"},
		"database.driver":            {"DATABASE_DRIVER"},
		"database.url":               {"DATABASE_URL_ACCELERATE", "DATABASE_URL"},
		"database.max_open_conns":    {"DATABASE_MAX_OPEN_CONNS"},
		"database.max_idle_conns":    {"DATABASE_MAX_IDLE_CONNS"},
		"database.conn_max_lifetime": {"DATABASE_CONN_MAX_LIFETIME"},
		"cache.prefix":               {"CACHE_PREFIX"},
		"leader.ttl":                 {"LEADER_TTL"},
		"lock.ttl":                   {"LOCK_TTL"},
		"lock.wait":                  {"LOCK_WAIT"},
		"scheduler.interval":         {"SCHEDULER_INTERVAL"},
		"leaderboard.refresh":        {"LEADERBOARD_REFRESH"},
		"instance.id":                {"INSTANCE_ID"},
		"admin.token":                {"ADMIN_TOKEN"},
		"log.level":                  {"LOG_LEVEL"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required")
	}
	return nil
}

func (c *Config) RedisAddress() string {
	return net.JoinHostPort(c.Redis.Host, strconv.Itoa(c.Redis.Port))
}

// GetConfigString returns a formatted string representation of the config
func (c *Config) GetConfigString() string {
	return fmt.Sprintf(
		"Server: %s:%d, Redis: %s, Database: %s, Instance: %s",
		c.Server.Host,
		c.Server.Port,
		c.RedisAddress(),
		c.Database.Driver,
		c.Instance.ID,
	)
}
