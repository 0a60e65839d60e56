// Пакет viewer — встроенный просмотрщик PDF-артефактов.
// Локальный HTTP-сервер с graceful shutdown: отдаёт файлы из каталога
// кэша, когда системный просмотрщик недоступен. Слушает только loopback.
package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bugsheriff/client-core/internal/config"
)

// Server — локальный HTTP-сервер просмотра артефактов.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
	cacheDir   string
}

// artifactInfo — элемент листинга кэша.
type artifactInfo struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
}

// New создаёт сервер просмотрщика над каталогом кэша артефактов.
func New(cfg *config.Config, logger *slog.Logger) *Server {
	s := &Server{
		logger:   logger.With(slog.String("component", "viewer")),
		cfg:      cfg,
		cacheDir: cfg.CacheDir,
	}

	router := chi.NewRouter()
	router.Use(requestLogger(s.logger))
	router.Use(metricsMiddleware())

	router.Get("/artifacts", s.listArtifacts)
	router.Get("/artifacts/{name}", s.serveArtifact)
	router.Get("/health/live", s.healthLive)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.ViewerPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
	return s
}

// URL возвращает адрес артефакта во встроенном просмотрщике.
func (s *Server) URL(key string) string {
	return fmt.Sprintf("http://%s/artifacts/%s", s.httpServer.Addr, key)
}

// listArtifacts отдаёт JSON-листинг скачанных артефактов.
// Пустые файлы не показываются: они невалидны и будут скачаны заново.
func (s *Server) listArtifacts(w http.ResponseWriter, _ *http.Request) {
	entries, err := os.ReadDir(s.cacheDir)
	if err != nil && !os.IsNotExist(err) {
		s.logger.Error("Чтение каталога кэша", slog.String("error", err.Error()))
		http.Error(w, `{"message":"cache unavailable"}`, http.StatusInternalServerError)
		return
	}

	list := make([]artifactInfo, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || e.IsDir() || info.Size() == 0 {
			continue
		}
		list = append(list, artifactInfo{
			Name:     e.Name(),
			Size:     info.Size(),
			Modified: info.ModTime().UTC().Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

// serveArtifact отдаёт локальную копию артефакта.
func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request) {
	// Только имя файла, без вложенных путей
	name := path.Base(chi.URLParam(r, "name"))
	if name == "." || name == "/" {
		http.NotFound(w, r)
		return
	}

	local := filepath.Join(s.cacheDir, name)
	info, err := os.Stat(local)
	if err != nil || info.IsDir() || info.Size() == 0 {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	http.ServeFile(w, r, local)
}

// healthLive — liveness probe. Возвращает 200 если процесс жив.
func (s *Server) healthLive(w http.ResponseWriter, _ *http.Request) {
	resp := struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
		Version   string `json:"version"`
		Service   string `json:"service"`
	}{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   "bugsheriff-client",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("Встроенный просмотрщик запущен",
			slog.String("addr", s.httpServer.Addr),
			slog.String("cache_dir", s.cacheDir),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("Встроенный просмотрщик остановлен")
	return nil
}
