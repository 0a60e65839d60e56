// manager.go — менеджер кэша PDF-артефактов.
// Полный pipeline: ссылка отчёта → локальный ключ → кэш или скачивание → открытие.
// Скачивание выполняется не более одного раза на ссылку, пока локальная
// копия существует и непуста.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bugsheriff/client-core/internal/gateway"
)

// Ошибки менеджера артефактов.
var (
	// ErrBusy — другой запрос на скачивание уже выполняется.
	ErrBusy = errors.New("скачивание уже выполняется")
)

// DownloadFailed — сервер вернул неуспешный статус при скачивании артефакта.
type DownloadFailed struct {
	Status int
}

func (e *DownloadFailed) Error() string {
	return fmt.Sprintf("скачивание артефакта: сервер вернул статус %d", e.Status)
}

// Prometheus-метрики артефактов.
var (
	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bs_artifact_resolutions_total",
		Help: "Общее количество разрешений артефактов (по исходу).",
	}, []string{"outcome"})

	downloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bs_artifact_download_duration_seconds",
		Help:    "Длительность скачивания артефакта.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	downloadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bs_artifact_download_bytes_total",
		Help: "Общее количество скачанных байт артефактов.",
	})
)

// defaultName — имя локального файла, когда ссылка пуста или не содержит сегментов.
const defaultName = "report.pdf"

// Handle — дескриптор локальной копии артефакта.
type Handle struct {
	Key  string // имя файла в каталоге кэша
	Path string // абсолютный путь к локальной копии
	Size int64
}

// Manager — менеджер кэша артефактов одного экрана.
// Одновременно выполняется не более одного скачивания: конкурирующий
// запрос немедленно отклоняется с ErrBusy, очереди нет.
type Manager struct {
	gw       *gateway.Gateway
	dir      string
	endpoint string // префикс endpoint'а скачивания, например "/uploads"
	handles  *HandleCache
	opener   Opener
	logger   *slog.Logger

	busy atomic.Bool
}

// New создаёт менеджер артефактов.
// dir — каталог локального кэша (создаётся при необходимости).
// endpoint — префикс пути скачивания без завершающего слэша.
func New(gw *gateway.Gateway, dir, endpoint string, handles *HandleCache, opener Opener, logger *slog.Logger) *Manager {
	return &Manager{
		gw:       gw,
		dir:      dir,
		endpoint: strings.TrimRight(endpoint, "/"),
		handles:  handles,
		opener:   opener,
		logger:   logger.With(slog.String("component", "artifact_manager")),
	}
}

// NewUser создаёт менеджер для артефактов собственных отчётов пользователя.
func NewUser(gw *gateway.Gateway, dir string, handles *HandleCache, opener Opener, logger *slog.Logger) *Manager {
	return New(gw, dir, "/uploads", handles, opener, logger)
}

// NewAdmin создаёт менеджер для артефактов из очереди администратора.
func NewAdmin(gw *gateway.Gateway, dir string, handles *HandleCache, opener Opener, logger *slog.Logger) *Manager {
	return New(gw, dir, "/admin/uploads", handles, opener, logger)
}

// Key вычисляет детерминированный локальный ключ из ссылки на артефакт:
// последний непустой сегмент пути, либо запасное имя report.pdf.
func Key(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return defaultName
	}
	// Ссылка приходит как путь ("uploads/report_7.pdf"), нормализуем слэши
	ref = strings.ReplaceAll(ref, "\\", "/")
	segments := strings.Split(ref, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(segments[i]); s != "" {
			return s
		}
	}
	return defaultName
}

// Resolve разрешает ссылку артефакта в локальную копию.
//
// Pipeline:
//  1. Захватить guard от параллельных скачиваний (иначе ErrBusy)
//  2. Вычислить локальный ключ из ссылки
//  3. Проверить кэш: существующий непустой файл возвращается без сети
//  4. Промах — авторизованное скачивание во временный файл + rename
//
// Пустой локальный файл считается невалидным и скачивается заново.
func (m *Manager) Resolve(ctx context.Context, ref string) (*Handle, error) {
	if !m.busy.CompareAndSwap(false, true) {
		resolutionsTotal.WithLabelValues("busy").Inc()
		return nil, ErrBusy
	}
	defer m.busy.Store(false)

	key := Key(ref)
	local := filepath.Join(m.dir, key)

	// Дескриптор из кэша пригоден, только если файл всё ещё на месте
	if h, ok := m.handles.Get(key); ok {
		if valid(h.Path) {
			resolutionsTotal.WithLabelValues("hit").Inc()
			return h, nil
		}
		m.handles.Delete(key)
	}

	if info, err := os.Stat(local); err == nil && info.Size() > 0 {
		h := &Handle{Key: key, Path: local, Size: info.Size()}
		m.handles.Set(key, h)
		resolutionsTotal.WithLabelValues("hit").Inc()
		m.logger.Debug("Артефакт найден в локальном кэше",
			slog.String("key", key),
			slog.Int64("size", info.Size()),
		)
		return h, nil
	}

	h, err := m.download(ctx, key, local)
	if err != nil {
		return nil, err
	}
	m.handles.Set(key, h)
	return h, nil
}

// View разрешает ссылку и передаёт локальную копию системному просмотрщику.
// Неудача открытия не отменяет успешное разрешение: дескриптор возвращается,
// UI показывает файл через встроенный просмотрщик.
func (m *Manager) View(ctx context.Context, ref string) (*Handle, error) {
	h, err := m.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	if m.opener != nil {
		if err := m.opener.Open(h.Path); err != nil {
			m.logger.Warn("Системный просмотрщик недоступен, файл откроет встроенный",
				slog.String("key", h.Key),
				slog.String("error", err.Error()),
			)
		}
	}
	return h, nil
}

// download скачивает артефакт во временный файл и атомарно переименовывает.
func (m *Manager) download(ctx context.Context, key, local string) (*Handle, error) {
	start := time.Now()

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		resolutionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("создание каталога кэша: %w", err)
	}

	resp, err := m.gw.Download(ctx, m.endpoint+"/"+url.PathEscape(key))
	if err != nil {
		resolutionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		resolutionsTotal.WithLabelValues("download_failed").Inc()
		m.logger.Warn("Сервер отклонил скачивание артефакта",
			slog.String("key", key),
			slog.Int("status", resp.StatusCode),
		)
		return nil, &DownloadFailed{Status: resp.StatusCode}
	}

	// Временное имя — чтобы параллельный читатель не увидел недокачанный файл
	tmp := filepath.Join(m.dir, uuid.NewString()+".part")
	out, err := os.Create(tmp)
	if err != nil {
		resolutionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("создание временного файла: %w", err)
	}

	written, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		resolutionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("запись артефакта %s: %w", key, err)
	}
	if written == 0 {
		os.Remove(tmp)
		resolutionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("артефакт %s: сервер вернул пустое тело", key)
	}

	if err := os.Rename(tmp, local); err != nil {
		os.Remove(tmp)
		resolutionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("перемещение артефакта в кэш: %w", err)
	}

	duration := time.Since(start)
	resolutionsTotal.WithLabelValues("downloaded").Inc()
	downloadDuration.Observe(duration.Seconds())
	downloadBytesTotal.Add(float64(written))

	m.logger.Info("Артефакт скачан",
		slog.String("key", key),
		slog.Int64("bytes", written),
		slog.Duration("duration", duration),
	)

	return &Handle{Key: key, Path: local, Size: written}, nil
}

// valid сообщает, пригодна ли локальная копия: существует и непуста.
func valid(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}
