package config

import (
	"log"
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
	Host  string
	Port  int
	Token string // static service token for the operator API
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
}

type Log struct {
	Level string
	JSON  bool
	// File enables rotated file output alongside stdout when non-empty.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// JWT describes the token the upstream identity provider issues. The
// signature is verified before requests reach this service; the key here is
// only used to re-parse the claims set.
type JWT struct {
	Secret string
	Issuer string
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DB holds pool and retry tuning. Credentials come from the secret source,
// never from this file.
type DB struct {
	Driver            string
	MaxOpenConns      int
	MaxIdleConns      int
	IdleTimeoutSec    int
	ConnectTimeoutSec int
	AutoMigrate       bool
	LogLevel          string
	Retry             Retry
}

type Retry struct {
	MaxRetries     int
	InitialDelayMs int
	Multiplier     float64
	MaxDelayMs     int
}

// Secrets points at the credential source entry holding
// {username, password, host, port, dbname}.
type Secrets struct {
	VaultAddr   string
	VaultToken  string
	SecretPath  string
	CacheTTLMin int
}

// Identity configures the identity provider admin endpoint. Mode "local"
// swaps in the in-memory implementation for development.
type Identity struct {
	Mode    string
	BaseURL string
	Token   string
}

type Embed struct {
	DashboardBaseURL string
	Token            string
	SessionTTLMin    int
	GovernanceTTLSec int
}

type Config struct {
	App      App
	Log      Log
	JWT      JWT
	DB       DB
	Redis    Redis `mapstructure:"redis"`
	Secrets  Secrets
	Identity Identity
	Embed    Embed
}

func Load(path string) *Config {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("read config: %v", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		log.Fatalf("unmarshal config: %v", err)
	}
	return &c
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.maxopenconns", 10)
	v.SetDefault("db.maxidleconns", 5)
	v.SetDefault("db.idletimeoutsec", 30)
	v.SetDefault("db.connecttimeoutsec", 10)
	v.SetDefault("db.retry.maxretries", 3)
	v.SetDefault("db.retry.initialdelayms", 100)
	v.SetDefault("db.retry.multiplier", 2.0)
	v.SetDefault("db.retry.maxdelayms", 5000)
	v.SetDefault("log.maxsizemb", 100)
	v.SetDefault("log.maxbackups", 7)
	v.SetDefault("log.maxagedays", 14)
	v.SetDefault("secrets.cachettlmin", 5)
	v.SetDefault("identity.mode", "http")
	v.SetDefault("embed.sessionttlmin", 10)
	v.SetDefault("embed.governancettlsec", 30)
}
