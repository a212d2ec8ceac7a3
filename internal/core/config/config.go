package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

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
	Name  string
	Env   string
	HTTP   HTTP
	Admin  AdminHTTP
	Mailer AdminHTTP // mailer 只暴露 /health 与 /metrics
}

type Log struct {
	Level string
	JSON  bool
	// 可选：文件切割
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type JWT struct {
	Secret string
	Issuer string
	// 以小时计，默认值与原有策略保持一致
	SessionTTLHours     int
	UserVerifyTTLHours  int
	AdminVerifyTTLHours int
}

func (j JWT) SessionTTL() time.Duration { return time.Duration(j.SessionTTLHours) * time.Hour }
func (j JWT) UserVerifyTTL() time.Duration {
	return time.Duration(j.UserVerifyTTLHours) * time.Hour
}
func (j JWT) AdminVerifyTTL() time.Duration {
	return time.Duration(j.AdminVerifyTTLHours) * time.Hour
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

// Access holds the trust configuration of the verification workflow.
type Access struct {
	AdminRollNumbers []string
	AdminEmails      []string
}

type Frontend struct {
	StudentBaseURL string
	AdminBaseURL   string
	CORSOrigins    []string
}

type Mail struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Notify struct {
	Queue        string // memory | redis | amqp
	Stream       string
	Group        string
	AMQPURL      string
	AMQPQueue    string
	MaxRetries   int
	Buffer       int
	Workers      int
	InlineWorker bool
}

type Limits struct {
	RPS                   float64
	Burst                 int
	Concurrency           int64
	MaxBodyBytes          int64
	RequestTimeoutSec     int
	AuthAttemptsPerMinute int
}

type Config struct {
	App      App
	Log      Log
	JWT      JWT
	DB       DB
	Redis    Redis `mapstructure:"redis"`
	Access   Access
	Frontend Frontend
	Mail     Mail
	Notify   Notify
	Limits   Limits
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "campus-notice")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8000)
	v.SetDefault("app.http.readTimeoutSec", 5)
	v.SetDefault("app.http.writeTimeoutSec", 10)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.admin.host", "0.0.0.0")
	v.SetDefault("app.admin.port", 8001)
	v.SetDefault("app.mailer.host", "0.0.0.0")
	v.SetDefault("app.mailer.port", 8002)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.maxSizeMB", 100)
	v.SetDefault("log.maxBackups", 7)
	v.SetDefault("log.maxAgeDays", 30)
	v.SetDefault("log.compress", true)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "campus-notice")
	v.SetDefault("jwt.sessionTTLHours", 100*24)
	v.SetDefault("jwt.userVerifyTTLHours", 365*24)
	v.SetDefault("jwt.adminVerifyTTLHours", 24)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "file:campus-notice.db?_pragma=busy_timeout(5000)")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.maxOpenConns", 20)
	v.SetDefault("db.maxIdleConns", 10)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("db.autoMigrate", true)
	v.SetDefault("db.logLevel", "warn")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("access.adminRollNumbers", []string{})
	v.SetDefault("access.adminEmails", []string{})

	v.SetDefault("frontend.studentBaseURL", "http://localhost:3000")
	v.SetDefault("frontend.adminBaseURL", "http://localhost:3001")
	v.SetDefault("frontend.corsOrigins", []string{})

	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "no-reply@campus-notice.local")

	v.SetDefault("notify.queue", "memory")
	v.SetDefault("notify.stream", "campus-notice:mail")
	v.SetDefault("notify.group", "mailer")
	v.SetDefault("notify.amqpURL", "")
	v.SetDefault("notify.amqpQueue", "campus-notice.mail")
	v.SetDefault("notify.maxRetries", 3)
	v.SetDefault("notify.buffer", 256)
	v.SetDefault("notify.workers", 2)
	v.SetDefault("notify.inlineWorker", true)

	v.SetDefault("limits.rps", 200)
	v.SetDefault("limits.burst", 400)
	v.SetDefault("limits.concurrency", 300)
	v.SetDefault("limits.maxBodyBytes", 1<<20)
	v.SetDefault("limits.requestTimeoutSec", 10)
	v.SetDefault("limits.authAttemptsPerMinute", 20)
}

// Load 读取配置，失败直接退出
func Load(path string) *Config {
	c, err := Read(path)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	return c
}

// Read loads defaults, then the YAML file (if present), then APP_* env overrides.
func Read(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	explicit := path != ""
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 未显式指定且文件不存在时，只用默认值 + 环境变量
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Access.AdminRollNumbers = cleanList(c.Access.AdminRollNumbers)
	c.Access.AdminEmails = cleanList(c.Access.AdminEmails)
	c.Frontend.CORSOrigins = cleanList(c.Frontend.CORSOrigins)
	c.Frontend.StudentBaseURL = strings.TrimRight(c.Frontend.StudentBaseURL, "/")
	c.Frontend.AdminBaseURL = strings.TrimRight(c.Frontend.AdminBaseURL, "/")
	if c.JWT.Secret == "" {
		return nil, errors.New("jwt.secret is required (APP_JWT_SECRET)")
	}
	return &c, nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
