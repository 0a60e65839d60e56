// Пакет collection — синхронизация серверных коллекций (программы, отчёты)
// с локальным состоянием экрана. Контроллер держит авторитетную копию,
// производное отфильтрованное представление и выполняет мутации
// с обязательным re-sync: после успешной мутации состояние всегда
// перечитывается с сервера, оптимистичные правки не применяются.
package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bugsheriff/client-core/internal/gateway"
)

// ErrUnsupported — операция не настроена для этой коллекции
// (например, пользовательские отчёты не удаляются).
var ErrUnsupported = fmt.Errorf("операция не поддерживается этой коллекцией")

// Prometheus-метрики синхронизации.
var (
	syncsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bs_collection_syncs_total",
		Help: "Общее количество синхронизаций коллекций (по исходу).",
	}, []string{"collection", "outcome"})

	staleSyncsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bs_collection_stale_syncs_total",
		Help: "Количество отброшенных устаревших ответов sync.",
	}, []string{"collection"})

	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bs_collection_mutations_total",
		Help: "Количество мутаций коллекций (по операции).",
	}, []string{"collection", "op"})
)

// Item — элемент серверной коллекции со стабильным идентификатором.
type Item interface {
	ItemID() int64
}

// Endpoints — маршруты API для коллекции.
// Пустой/небезопасный endpoint означает, что операция недоступна.
type Endpoints struct {
	// List — GET-endpoint списка
	List string
	// Create — POST-endpoint создания (пустая строка — создание недоступно)
	Create string
	// Update — PUT-endpoint обновления по id (nil — обновление недоступно)
	Update func(id int64) string
	// Delete — DELETE-endpoint удаления по id (nil — удаление недоступно)
	Delete func(id int64) string
}

// Controller — контроллер синхронизации одной коллекции.
// Каждый экран владеет собственным экземпляром; состояние между
// экземплярами не разделяется.
type Controller[T Item] struct {
	gw     *gateway.Gateway
	name   string
	eps    Endpoints
	fields func(T) []string
	logger *slog.Logger

	// seq — монотонный номер запущенных sync; ответы старше последнего
	// применённого отбрасываются, устаревший список не может затереть
	// более новое авторитетное состояние.
	seq atomic.Uint64

	mu            sync.Mutex
	applied       uint64
	authoritative []T
	filtered      []T
	query         string
}

// New создаёт контроллер коллекции.
// name — имя коллекции для логов и метрик.
// fields — поля элемента, участвующие в поиске (OR-совпадение по подстроке).
func New[T Item](gw *gateway.Gateway, name string, eps Endpoints, fields func(T) []string, logger *slog.Logger) *Controller[T] {
	return &Controller[T]{
		gw:     gw,
		name:   name,
		eps:    eps,
		fields: fields,
		logger: logger.With(
			slog.String("component", "collection_controller"),
			slog.String("collection", name),
		),
	}
}

// Sync перечитывает коллекцию с сервера и заменяет авторитетную копию.
// Фильтр пересчитывается по текущему запросу. При ошибке прежнее
// состояние не изменяется. Устаревший ответ (обогнанный более новым
// sync) отбрасывается без ошибки.
func (c *Controller[T]) Sync(ctx context.Context) error {
	seq := c.seq.Add(1)

	payload, err := c.gw.Call(ctx, http.MethodGet, c.eps.List, nil)
	if err != nil {
		syncsTotal.WithLabelValues(c.name, "error").Inc()
		return err
	}

	var items []T
	if err := json.Unmarshal(payload, &items); err != nil {
		syncsTotal.WithLabelValues(c.name, "error").Inc()
		return fmt.Errorf("декодирование коллекции %s: %w", c.name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq <= c.applied {
		// Пока этот ответ шёл, применился более новый
		staleSyncsTotal.WithLabelValues(c.name).Inc()
		c.logger.Debug("Устаревший ответ sync отброшен",
			slog.Uint64("seq", seq),
			slog.Uint64("applied", c.applied),
		)
		return nil
	}

	c.applied = seq
	c.authoritative = items
	c.refilterLocked()

	syncsTotal.WithLabelValues(c.name, "ok").Inc()
	c.logger.Debug("Коллекция синхронизирована",
		slog.Int("items", len(items)),
		slog.Uint64("seq", seq),
	)
	return nil
}

// SetQuery сохраняет поисковый запрос и пересчитывает фильтр.
// Пустой запрос — фильтр совпадает с авторитетной копией.
func (c *Controller[T]) SetQuery(q string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = q
	c.refilterLocked()
}

// Query возвращает текущий поисковый запрос.
func (c *Controller[T]) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Items возвращает снимок отфильтрованного представления.
func (c *Controller[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.filtered))
	copy(out, c.filtered)
	return out
}

// Authoritative возвращает снимок авторитетной копии.
func (c *Controller[T]) Authoritative() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.authoritative))
	copy(out, c.authoritative)
	return out
}

// Create создаёт элемент на сервере и выполняет re-sync.
// body — тело запроса (может отличаться от T: даты в формате API и т.п.).
func (c *Controller[T]) Create(ctx context.Context, body any) error {
	if c.eps.Create == "" {
		return ErrUnsupported
	}
	if _, err := c.gw.Call(ctx, http.MethodPost, c.eps.Create, body); err != nil {
		return err
	}
	mutationsTotal.WithLabelValues(c.name, "create").Inc()
	return c.Sync(ctx)
}

// Update перезаписывает элемент на сервере (полная перезапись, не дельта)
// и выполняет re-sync.
func (c *Controller[T]) Update(ctx context.Context, id int64, body any) error {
	if c.eps.Update == nil {
		return ErrUnsupported
	}
	if _, err := c.gw.Call(ctx, http.MethodPut, c.eps.Update(id), body); err != nil {
		return err
	}
	mutationsTotal.WithLabelValues(c.name, "update").Inc()
	return c.Sync(ctx)
}

// Remove удаляет элемент на сервере и выполняет re-sync.
// Подтверждение удаления — забота UI: контроллер выполняет удаление
// безусловно.
func (c *Controller[T]) Remove(ctx context.Context, id int64) error {
	if c.eps.Delete == nil {
		return ErrUnsupported
	}
	if _, err := c.gw.Call(ctx, http.MethodDelete, c.eps.Delete(id), nil); err != nil {
		return err
	}
	mutationsTotal.WithLabelValues(c.name, "delete").Inc()
	return c.Sync(ctx)
}

// refilterLocked пересчитывает filtered по текущему query.
// Совпадение: хотя бы одно поле содержит запрос без учёта регистра.
// Вызывается под mu.
func (c *Controller[T]) refilterLocked() {
	if c.query == "" {
		c.filtered = c.authoritative
		return
	}

	needle := strings.ToLower(c.query)
	filtered := make([]T, 0, len(c.authoritative))
	for _, item := range c.authoritative {
		for _, field := range c.fields(item) {
			if strings.Contains(strings.ToLower(field), needle) {
				filtered = append(filtered, item)
				break
			}
		}
	}
	c.filtered = filtered
}
