package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"autosender/models"
)

type Config struct {
	TelegramConfig
	StorageConfig
	AutoSendConfig
	HTTPConfig
	LoggerConfig
}

type TelegramConfig struct {
	APIID         int    `envconfig:"TELEGRAM_API_ID" required:"true"`   // ID приложения MTProto
	APIHash       string `envconfig:"TELEGRAM_API_HASH" required:"true"` // Хеш приложения MTProto
	ProxyIP       string `envconfig:"TELEGRAM_PROXY_IP"`                 // SOCKS5-прокси, пустое значение отключает прокси
	ProxyPort     int    `envconfig:"TELEGRAM_PROXY_PORT" default:"1080"`
	ProxyLogin    string `envconfig:"TELEGRAM_PROXY_LOGIN"`
	ProxyPassword string `envconfig:"TELEGRAM_PROXY_PASSWORD"`
	RateLimit     int    `envconfig:"TELEGRAM_RATE_LIMIT" default:"10"` // Запросов в секунду на одну сессию
}

type StorageConfig struct {
	AccountsDir    string `envconfig:"ACCOUNTS_DIR" default:"./accounts"` // Каталог с данными аккаунтов
	SessionStorage string `envconfig:"SESSION_STORAGE" default:"file"`    // file или postgres
	PostgresDSN    string `envconfig:"POSTGRES_DSN"`                      // Нужен только для SESSION_STORAGE=postgres
}

type AutoSendConfig struct {
	CheckInterval    time.Duration `envconfig:"AUTO_SEND_CHECK_INTERVAL" default:"60s"`   // Пауза между проходами планировщика
	ErrorCooldown    time.Duration `envconfig:"AUTO_SEND_ERROR_COOLDOWN" default:"60s"`   // Пауза после сбоя цикла
	DelayBetweenSend int           `envconfig:"MESSAGE_DELAY_BETWEEN_GROUPS" default:"2"` // Запасное значение send_delay, секунды
	LoginTTL         time.Duration `envconfig:"LOGIN_TTL" default:"10m"`                  // Время жизни незавершённого входа
}

type HTTPConfig struct {
	Port     string `envconfig:"HTTP_PORT" default:"8080"`
	APIToken string `envconfig:"API_TOKEN"` // Пустой токен отключает проверку
}

type LoggerConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load читает .env (если он есть) и переменные окружения.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет сочетания параметров, которые envconfig проверить не может.
func (c *Config) Validate() error {
	switch c.SessionStorage {
	case "file":
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN обязателен при SESSION_STORAGE=postgres")
		}
	default:
		return fmt.Errorf("неизвестный SESSION_STORAGE: %q", c.SessionStorage)
	}
	if c.CheckInterval <= 0 || c.ErrorCooldown <= 0 {
		return fmt.Errorf("интервалы планировщика должны быть положительными")
	}
	return nil
}

// Proxy возвращает настройки прокси или nil, если прокси не задан.
func (c *Config) Proxy() *models.Proxy {
	if c.ProxyIP == "" {
		return nil
	}
	return &models.Proxy{
		IP:       c.ProxyIP,
		Port:     c.ProxyPort,
		Login:    c.ProxyLogin,
		Password: c.ProxyPassword,
	}
}
