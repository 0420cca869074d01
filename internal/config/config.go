// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Telegram                `yaml:"telegram"`
	Payment                 `yaml:"payment"`
	Scheduler               `yaml:"scheduler"`
	RabbitMQ                `yaml:"rabbitmq"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8001"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// JWTToken структура для работы с jwt-токеном админ-панели
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"30m"`
}

// Telegram настройки бота и каналов
type Telegram struct {
	Token            string `yaml:"token" env:"TELEGRAM_TOKEN"`
	FreeChannelID    int64  `yaml:"free_channel_id"`
	PaidChannelID    int64  `yaml:"paid_channel_id"`
	PrivateChatLink  string `yaml:"private_chat_link"`
	PrivacyPolicyURL string `yaml:"privacy_policy_url"`
}

// Payment настройки платёжной привязки: секрет подписи cookie,
// время жизни токена и параметры подписки по умолчанию.
type Payment struct {
	Secret       string        `yaml:"secret" env:"PAYMENT_SECRET"`
	CookieMaxAge time.Duration `yaml:"cookie_max_age" env-default:"1h"`
	ClockSkew    time.Duration `yaml:"clock_skew" env-default:"60s"`
	Price        int64         `yaml:"price" env-default:"999"`
	Currency     string        `yaml:"currency" env-default:"RUB"`
	DurationDays int           `yaml:"duration_days" env-default:"30"`
	PageBaseURL  string        `yaml:"page_base_url"`
}

// Scheduler настройки фонового обхода подписок
type Scheduler struct {
	Interval  time.Duration `yaml:"interval" env-default:"1h"`
	LeadTimes []int         `yaml:"lead_times" env-default:"7,3,1"`
	InviteTTL time.Duration `yaml:"invite_ttl" env-default:"24h"`
}

// RabbitMQ настройки подключения к брокеру событий
type RabbitMQ struct {
	Connection string        `yaml:"connection"`
	Retries    int           `yaml:"retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// MustLoad функция для загрузки конфига, путь берётся из переменной CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
