// Пакет artifact — локальный кэш PDF-артефактов отчётов.
// HandleCache — LRU-кэш дескрипторов скачанных файлов с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package artifact

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus-метрики кэша дескрипторов.
var (
	handleCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bs_artifact_handle_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш дескрипторов артефактов.",
	})
	handleCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bs_artifact_handle_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша дескрипторов артефактов.",
	})
)

// HandleCache — LRU-кэш дескрипторов локальных артефактов с TTL.
// Снимает повторные stat-вызовы на горячем пути открытия PDF.
type HandleCache struct {
	cache *expirable.LRU[string, *Handle]
}

// NewHandleCache создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewHandleCache(maxSize int, ttl time.Duration) *HandleCache {
	cache := expirable.NewLRU[string, *Handle](maxSize, nil, ttl)
	return &HandleCache{cache: cache}
}

// Get возвращает дескриптор по ключу артефакта.
// Возвращает (дескриптор, true) при hit или (nil, false) при miss.
func (c *HandleCache) Get(key string) (*Handle, bool) {
	val, ok := c.cache.Get(key)
	if ok {
		handleCacheHitsTotal.Inc()
		return val, true
	}
	handleCacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет дескриптор в кэше.
func (c *HandleCache) Set(key string, h *Handle) {
	c.cache.Add(key, h)
}

// Delete удаляет дескриптор (инвалидация при исчезновении файла).
func (c *HandleCache) Delete(key string) {
	c.cache.Remove(key)
}
