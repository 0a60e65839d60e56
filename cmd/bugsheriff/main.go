// main.go — точка входа клиентского ядра BugSheriff.
// Собирает слои: сессия, шлюз, контроллеры коллекций, кэш артефактов,
// встроенный просмотрщик и мониторинг доступности API.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"

	"github.com/bugsheriff/client-core/internal/apiclient"
	"github.com/bugsheriff/client-core/internal/artifact"
	"github.com/bugsheriff/client-core/internal/collection"
	"github.com/bugsheriff/client-core/internal/config"
	"github.com/bugsheriff/client-core/internal/domain/model"
	"github.com/bugsheriff/client-core/internal/gateway"
	"github.com/bugsheriff/client-core/internal/health"
	"github.com/bugsheriff/client-core/internal/nav"
	"github.com/bugsheriff/client-core/internal/session"
	"github.com/bugsheriff/client-core/internal/viewer"
)

// serviceID — имя вершины графа зависимостей в метриках.
const serviceID = "bugsheriff-client"

// app — корень композиции: все слои ядра, собранные для UI.
type app struct {
	sess         *session.Store
	client       *apiclient.Client
	programs     *collection.Controller[model.Program]
	reports      *collection.Controller[model.Report]
	adminReports *collection.Controller[model.Report]
	artifacts    *artifact.Manager
	adminArts    *artifact.Manager
	logger       *slog.Logger
}

// newApp собирает ядро поверх конфигурации.
func newApp(cfg *config.Config, logger *slog.Logger) *app {
	sess := session.NewStore(cfg.TokenPath, logger)
	if sess.Expired() {
		logger.Info("Сохранённый токен истёк, требуется повторный логин")
		sess.Clear()
	}

	// Два шлюза: обычный и с увеличенным таймаутом для скачивания PDF
	gw := gateway.New(cfg.APIBaseURL, cfg.HTTPTimeout, sess, logger)
	downloadGW := gateway.New(cfg.APIBaseURL, cfg.DownloadTimeout, sess, logger)

	handles := artifact.NewHandleCache(cfg.HandleCacheSize, cfg.HandleCacheTTL)
	opener := artifact.NewSystemOpener(logger)

	return &app{
		sess:         sess,
		client:       apiclient.New(gw, sess, logger),
		programs:     collection.NewPrograms(gw, logger),
		reports:      collection.NewReports(gw, logger),
		adminReports: collection.NewAdminReports(gw, logger),
		artifacts:    artifact.NewUser(downloadGW, cfg.CacheDir, handles, opener, logger),
		adminArts:    artifact.NewAdmin(downloadGW, cfg.CacheDir, handles, opener, logger),
		logger:       logger,
	}
}

// warmUp прогревает состояние по сохранённой сессии: профиль и коллекции.
// Ошибки не фатальны — UI повторит запросы после логина.
func (a *app) warmUp(ctx context.Context) {
	if a.sess.Token() == "" {
		a.logger.Info("Сессии нет, синхронизация начнётся после логина")
		return
	}

	profile, err := a.client.Profile(ctx)
	if err != nil {
		if errors.Is(err, gateway.ErrUnauthenticated) {
			a.logger.Info("Сессия отклонена сервером, требуется повторный логин")
			return
		}
		a.logger.Warn("Профиль недоступен", slog.String("error", err.Error()))
		return
	}
	a.logger.Info("Сессия восстановлена",
		slog.String("username", profile.Username),
		slog.String("screen", nav.HomeScreen(a.sess.Role())),
	)

	if err := a.programs.Sync(ctx); err != nil {
		a.logger.Warn("Синхронизация программ", slog.String("error", err.Error()))
	} else {
		a.logger.Info("Программы синхронизированы",
			slog.Int("count", len(a.programs.Items())))
	}

	// Очередь отчётов зависит от роли
	reports := a.reports
	if a.sess.Role() == model.RoleAdmin {
		reports = a.adminReports
	}
	if err := reports.Sync(ctx); err != nil {
		a.logger.Warn("Синхронизация отчётов", slog.String("error", err.Error()))
	} else {
		a.logger.Info("Отчёты синхронизированы",
			slog.Int("count", len(reports.Items())))
	}
}

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	// 2. Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Клиентское ядро BugSheriff запускается",
		slog.String("version", config.Version),
		slog.String("api_url", cfg.APIBaseURL),
	)

	// 3. Сборка ядра: сессия, шлюзы, клиент, контроллеры, кэш артефактов
	a := newApp(cfg, logger)

	// 4. Прогрев состояния по сохранённой сессии
	a.warmUp(context.Background())

	// 5. Мониторинг доступности API (topologymetrics)
	if cfg.DephealthEnabled {
		dh, err := health.New(serviceID, cfg.DephealthGroup, cfg.APIBaseURL,
			cfg.DephealthCheckInterval, cfg.DephealthIsEntry, logger)
		if err != nil {
			logger.Error("Инициализация мониторинга зависимостей",
				slog.String("error", err.Error()))
		} else if err := dh.Start(context.Background()); err != nil {
			logger.Error("Запуск мониторинга зависимостей",
				slog.String("error", err.Error()))
		} else {
			defer dh.Stop()
		}
	}

	// 6. Встроенный просмотрщик (блокирующий вызов с graceful shutdown)
	srv := viewer.New(cfg, logger)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		log.Fatalf("Сервер завершился с ошибкой: %v", err)
	}

	logger.Info("Клиентское ядро BugSheriff остановлено")
}
