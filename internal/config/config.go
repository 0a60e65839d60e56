// Пакет config — загрузка и валидация конфигурации клиентского ядра
// BugSheriff из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации клиентского ядра.
type Config struct {
	// --- Платформа ---

	// Базовый URL API платформы BugSheriff
	APIBaseURL string
	// Таймаут обычных запросов к API (по умолчанию 15s)
	HTTPTimeout time.Duration
	// Таймаут скачивания PDF-артефактов (по умолчанию 60s)
	DownloadTimeout time.Duration

	// --- Локальное хранилище ---

	// Каталог кэша артефактов
	CacheDir string
	// Путь файла с персистентным токеном сессии
	TokenPath string

	// --- Логирование ---

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- Встроенный просмотрщик ---

	// Порт локального HTTP-сервера просмотра артефактов
	ViewerPort int
	// Таймаут чтения HTTP-сервера (по умолчанию 30s)
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера (по умолчанию 60s)
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера (по умолчанию 120s)
	HTTPIdleTimeout time.Duration
	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- Кэш дескрипторов артефактов ---

	// Максимальное количество записей LRU-кэша дескрипторов
	HandleCacheSize int
	// TTL записи кэша дескрипторов
	HandleCacheTTL time.Duration

	// --- Мониторинг зависимостей (topologymetrics) ---

	// Включён ли мониторинг доступности API
	DephealthEnabled bool
	// Имя группы в метриках dephealth
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration
	// Лейбл isentry=yes для зависимостей
	DephealthIsEntry bool
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Платформа ---

	// BS_API_URL — базовый URL API платформы (обязательная)
	cfg.APIBaseURL, err = getEnvRequired("BS_API_URL")
	if err != nil {
		return nil, err
	}
	if parsed, perr := url.Parse(cfg.APIBaseURL); perr != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("BS_API_URL: некорректный URL %q", cfg.APIBaseURL)
	}

	// BS_HTTP_TIMEOUT — таймаут запросов к API (по умолчанию 15s)
	cfg.HTTPTimeout, err = getEnvDuration("BS_HTTP_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("BS_HTTP_TIMEOUT: %w", err)
	}

	// BS_DOWNLOAD_TIMEOUT — таймаут скачивания артефактов (по умолчанию 60s)
	cfg.DownloadTimeout, err = getEnvDuration("BS_DOWNLOAD_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("BS_DOWNLOAD_TIMEOUT: %w", err)
	}

	// --- Локальное хранилище ---

	// BS_CACHE_DIR — каталог кэша артефактов (по умолчанию в user cache dir)
	cfg.CacheDir = getEnvDefault("BS_CACHE_DIR", defaultCacheDir())

	// BS_TOKEN_PATH — файл токена сессии (по умолчанию рядом с кэшем)
	cfg.TokenPath = getEnvDefault("BS_TOKEN_PATH", filepath.Join(defaultStateDir(), "token"))

	// --- Логирование ---

	// BS_LOG_LEVEL — уровень логирования (по умолчанию info)
	logLevel := getEnvDefault("BS_LOG_LEVEL", "info")
	cfg.LogLevel, err = parseLogLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("BS_LOG_LEVEL: %w", err)
	}

	// BS_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("BS_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("BS_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- Встроенный просмотрщик ---

	// BS_VIEWER_PORT — порт локального просмотрщика (по умолчанию 8040)
	cfg.ViewerPort, err = getEnvInt("BS_VIEWER_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("BS_VIEWER_PORT: %w", err)
	}

	// BS_HTTP_READ_TIMEOUT — таймаут чтения (по умолчанию 30s)
	cfg.HTTPReadTimeout, err = getEnvDuration("BS_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("BS_HTTP_READ_TIMEOUT: %w", err)
	}

	// BS_HTTP_WRITE_TIMEOUT — таймаут записи (по умолчанию 60s)
	cfg.HTTPWriteTimeout, err = getEnvDuration("BS_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("BS_HTTP_WRITE_TIMEOUT: %w", err)
	}

	// BS_HTTP_IDLE_TIMEOUT — таймаут простоя (по умолчанию 120s)
	cfg.HTTPIdleTimeout, err = getEnvDuration("BS_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("BS_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// BS_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("BS_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("BS_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- Кэш дескрипторов ---

	// BS_HANDLE_CACHE_SIZE — размер LRU-кэша дескрипторов (по умолчанию 128)
	cfg.HandleCacheSize, err = getEnvInt("BS_HANDLE_CACHE_SIZE", 128)
	if err != nil {
		return nil, fmt.Errorf("BS_HANDLE_CACHE_SIZE: %w", err)
	}
	if cfg.HandleCacheSize <= 0 {
		return nil, fmt.Errorf("BS_HANDLE_CACHE_SIZE: значение должно быть > 0")
	}

	// BS_HANDLE_CACHE_TTL — TTL записи кэша (по умолчанию 5m)
	cfg.HandleCacheTTL, err = getEnvDuration("BS_HANDLE_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("BS_HANDLE_CACHE_TTL: %w", err)
	}

	// --- Мониторинг зависимостей ---

	// BS_DEPHEALTH_ENABLED — мониторинг доступности API (по умолчанию true)
	cfg.DephealthEnabled, err = getEnvBool("BS_DEPHEALTH_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("BS_DEPHEALTH_ENABLED: %w", err)
	}

	// BS_DEPHEALTH_GROUP — имя группы в метриках (по умолчанию bugsheriff)
	cfg.DephealthGroup = getEnvDefault("BS_DEPHEALTH_GROUP", "bugsheriff")

	// BS_DEPHEALTH_CHECK_INTERVAL — интервал проверки (по умолчанию 30s)
	cfg.DephealthCheckInterval, err = getEnvDuration("BS_DEPHEALTH_CHECK_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("BS_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// BS_DEPHEALTH_ISENTRY — лейбл isentry=yes (по умолчанию false)
	cfg.DephealthIsEntry, err = getEnvBool("BS_DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("BS_DEPHEALTH_ISENTRY: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// defaultCacheDir — каталог кэша артефактов по умолчанию.
func defaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "bugsheriff", "artifacts")
}

// defaultStateDir — каталог состояния (токен) по умолчанию.
func defaultStateDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "bugsheriff")
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
