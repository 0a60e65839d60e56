// Пакет health — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Клиентское ядро мониторит единственную зависимость:
//   - API платформы BugSheriff — HTTP checker к базовому URL (critical)
//
// Базы данных нет — всё состояние клиента лежит в файле токена и каталоге
// кэша артефактов, поэтому SQL checker не используется.
//
// Метрики доступны на /metrics встроенного просмотрщика вместе с остальными
// Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
//   - app_dependency_status — категория статуса
//   - app_dependency_status_detail — детальный статус
package health

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/prometheus/client_golang/prometheus"
)

// Service — сервис мониторинга зависимостей через topologymetrics.
type Service struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// New создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
//
// Параметры:
//   - serviceID — имя вершины графа текущего приложения (e.g. "bugsheriff-client")
//   - group — имя группы в метриках (BS_DEPHEALTH_GROUP)
//   - apiURL — базовый URL API платформы
//   - checkInterval — интервал проверки (BS_DEPHEALTH_CHECK_INTERVAL)
//   - isEntry — при true добавляет лейбл isentry=yes (BS_DEPHEALTH_ISENTRY)
func New(
	serviceID string,
	group string,
	apiURL string,
	checkInterval time.Duration,
	isEntry bool,
	logger *slog.Logger,
) (*Service, error) {
	return newService(serviceID, group, apiURL, checkInterval, isEntry, logger)
}

// NewWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewWithRegisterer(
	serviceID string,
	group string,
	apiURL string,
	checkInterval time.Duration,
	isEntry bool,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*Service, error) {
	return newService(serviceID, group, apiURL, checkInterval, isEntry,
		logger, dephealth.WithRegisterer(registerer))
}

// newService — внутренний конструктор.
func newService(
	serviceID string,
	group string,
	apiURL string,
	checkInterval time.Duration,
	isEntry bool,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*Service, error) {
	apiDepOpts := []dephealth.DependencyOption{
		dephealth.FromURL(apiURL),
		dephealth.CheckInterval(checkInterval),
		dephealth.Critical(true),
	}
	if isEntry {
		apiDepOpts = append(apiDepOpts, dephealth.WithLabel("isentry", "yes"))
	}

	// Для HTTPS проверяем сертификат платформы
	if parsed, err := url.Parse(apiURL); err == nil && parsed.Scheme == "https" {
		apiDepOpts = append(apiDepOpts, dephealth.WithHTTPTLSSkipVerify(false))
	}

	opts := make([]dephealth.Option, 0, 2+len(extraOpts))
	opts = append(opts,
		dephealth.WithLogger(logger),
		// API платформы — HTTP checker к базовому URL
		dephealth.HTTP("bugsheriff-api", apiDepOpts...),
	)
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(serviceID, group, opts...)
	if err != nil {
		return nil, err
	}

	return &Service{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("Мониторинг доступности API запущен")
	return s.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (s *Service) Stop() {
	s.dh.Stop()
	s.logger.Info("Мониторинг доступности API остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (s *Service) Health() map[string]bool {
	return s.dh.Health()
}
