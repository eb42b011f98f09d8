package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"development"` // environment
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	JWT        JWTConfig        `yaml:"jwt"`
	SMTP       SMTPConfig       `yaml:"smtp"`
	Orders     OrdersConfig     `yaml:"orders"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Uploads    UploadsConfig    `yaml:"uploads"`
	Migrations MigrationsConfig `yaml:"migrations"`
}

// HTTPServerConfig структура http сервера
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// DatabaseConfig структура по работе с MySQL
type DatabaseConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"3306"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name     string `yaml:"name" env-required:"true"`
}

// RedisConfig — подключение к Redis (хранилище OTP-кодов)
type RedisConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

// JWTConfig настройка jwt
type JWTConfig struct {
	Secret   string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	TokenTTL int    `yaml:"token_ttl" env-default:"60"` // минуты
}

// SMTPConfig — отправка OTP-кодов на почту
type SMTPConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"587"`
	From     string `yaml:"from" env-default:"no-reply@ute-shop.local"`
	Username string `yaml:"username"`
	Password string `yaml:"-" env:"SMTP_PASSWORD"`
}

// OrdersConfig — тайминги жизненного цикла заказа
type OrdersConfig struct {
	// Окно, в течение которого пользователь может отменить заказ напрямую,
	// без заявки на отмену
	CancelWindow time.Duration `yaml:"cancel_window" env-default:"30m"`
	// Задержка перед автоподтверждением заказа в статусе new
	AutoConfirmAfter time.Duration `yaml:"auto_confirm_after" env-default:"1h"`
	// Период сканирования заказов фоновым воркером
	AutoConfirmInterval time.Duration `yaml:"auto_confirm_interval" env-default:"5m"`
	// Время жизни OTP-кода
	OTPTTL time.Duration `yaml:"otp_ttl" env-default:"10m"`
}

// RateLimitConfig — ограничение частоты запросов по IP
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" env-default:"20"`
	Burst int     `yaml:"burst" env-default:"40"`
}

// UploadsConfig — загрузка изображений товаров
type UploadsConfig struct {
	Dir       string `yaml:"dir" env-default:"./uploads"`
	MaxSizeMB int64  `yaml:"max_size_mb" env-default:"5"`
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// MustLoad - если не загружаем - паникуем
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s", configPath)
	}

	return &cfg
}
