package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}
type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name       string
	Env        string
	HTTP       HTTP
	Admin      AdminHTTP
	RefreshSec int
}

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTLMin   int    `mapstructure:"ttlmin"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	LogLevel           string
}

type Summarizer struct {
	BaseURL    string `mapstructure:"baseurl"`
	APIKey     string `mapstructure:"apikey"`
	Model      string `mapstructure:"model"`
	TimeoutSec int    `mapstructure:"timeoutsec"`
	Fallback   string `mapstructure:"fallback"`
}

type Seed struct {
	Departments []string
}

type Config struct {
	App        App
	Log        Log
	JWT        JWT
	DB         DB
	Redis      Redis      `mapstructure:"redis"`
	Summarizer Summarizer `mapstructure:"summarizer"`
	Seed       Seed
}

const DefaultPath = "./configs/config.local.yaml"

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "change-request-tracker")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readtimeoutsec", 5)
	v.SetDefault("app.http.writetimeoutsec", 30)
	v.SetDefault("app.http.idletimeoutsec", 60)
	v.SetDefault("app.admin.host", "0.0.0.0")
	v.SetDefault("app.admin.port", 8081)
	v.SetDefault("app.refreshsec", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.enable", false)
	v.SetDefault("log.file.compress", false)
	v.SetDefault("log.file.filename", "logs/app.log")
	v.SetDefault("log.file.maxsizemb", 100)
	v.SetDefault("log.file.maxbackups", 7)
	v.SetDefault("log.file.maxagedays", 30)

	// keys without a default are invisible to AutomaticEnv during Unmarshal
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "change-request-tracker")
	v.SetDefault("jwt.accesstokenttlmin", 480)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "data/change_requests.db")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.maxopenconns", 20)
	v.SetDefault("db.maxidleconns", 5)
	v.SetDefault("db.connmaxlifetimemin", 30)
	v.SetDefault("db.loglevel", "warn")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttlmin", 24*60)

	v.SetDefault("summarizer.apikey", "")

	v.SetDefault("summarizer.model", "gemini-2.5-flash")
	v.SetDefault("summarizer.baseurl", "https://generativelanguage.googleapis.com/v1beta/openai/")
	v.SetDefault("summarizer.timeoutsec", 15)
	v.SetDefault("summarizer.fallback", "Could not generate summary due to an error.")

	v.SetDefault("seed.departments", []string{"Engineering", "Marketing", "Human Resources", "Finance", "Operations"})
}

// Load reads the YAML file at path (CONFIG_PATH, then DefaultPath, when
// empty). A missing file leaves the defaults; APP_* env vars override both,
// e.g. APP_DB_DSN or APP_SUMMARIZER_APIKEY.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = DefaultPath
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return errors.New("config: jwt.secret is required")
	}
	if c.Summarizer.TimeoutSec <= 0 {
		return errors.New("config: summarizer.timeoutsec must be positive")
	}
	return nil
}
