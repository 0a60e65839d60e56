// Пакет gateway — аутентифицированный HTTP-шлюз к API платформы.
// Каждый удалённый вызов проходит через него: подстановка bearer-токена,
// классификация ответа, обработка истечения сессии (401 → очистка токена).
// Retry-политики нет — повтор, если нужен, ответственность вызывающего.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bugsheriff/client-core/internal/session"
)

// Ошибки шлюза.
var (
	// ErrUnauthenticated — токена нет или сервер его отверг (401).
	// UI обязан перенаправить на экран логина.
	ErrUnauthenticated = errors.New("требуется вход в систему")
	// ErrTransport — сетевая ошибка, таймаут или 5xx.
	ErrTransport = errors.New("ошибка соединения с сервером")
)

// RequestError — отказ сервера на уровне бизнес-логики (4xx кроме 401).
// Message — текст сервера, показывается пользователю как есть.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("сервер отклонил запрос (%d): %s", e.Status, e.Message)
}

// Тексты сообщений для UI (копия из мобильного приложения).
const (
	msgSessionExpired = "Session expired. Redirecting to login..."
	msgNetworkError   = "Network error. Please try again."
)

// Prometheus-метрики шлюза.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bs_gateway_requests_total",
		Help: "Общее количество вызовов API (по классу исхода).",
	}, []string{"outcome"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bs_gateway_request_duration_seconds",
		Help:    "Длительность вызовов API.",
		Buckets: prometheus.DefBuckets,
	})
)

// Gateway — аутентифицированный клиент API платформы.
// Токен читается из session.Store при каждом вызове (не кэшируется
// при создании), поэтому смена токена видна немедленно.
type Gateway struct {
	httpClient *http.Client
	baseURL    string
	sess       *session.Store
	logger     *slog.Logger
}

// New создаёт шлюз.
// baseURL — базовый URL API (например, https://api.bugsheriff.io).
// timeout — таймаут HTTP-запросов (из конфигурации BS_HTTP_TIMEOUT).
func New(baseURL string, timeout time.Duration, sess *session.Store, logger *slog.Logger) *Gateway {
	return &Gateway{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		sess:       sess,
		logger:     logger.With(slog.String("component", "gateway")),
	}
}

// Call выполняет аутентифицированный JSON-вызов API.
// body == nil — запрос без тела. Возвращает тело успешного (2xx) ответа.
//
// Классификация ответа:
//   - нет токена → ErrUnauthenticated без сетевого вызова
//   - 2xx → тело ответа
//   - 401 → очистка сессии + ErrUnauthenticated
//   - прочие 4xx → *RequestError с текстом сервера
//   - 5xx и транспортные ошибки → ErrTransport
func (g *Gateway) Call(ctx context.Context, method, path string, body any) ([]byte, error) {
	token := g.sess.Token()
	if token == "" {
		requestsTotal.WithLabelValues("unauthenticated").Inc()
		return nil, ErrUnauthenticated
	}

	return g.do(ctx, method, path, body, token)
}

// CallPublic выполняет вызов без сессии (login, register, reset-password).
// 401 здесь — отказ в учётных данных, а не истечение сессии:
// классифицируется как *RequestError и сессию не трогает.
func (g *Gateway) CallPublic(ctx context.Context, method, path string, body any) ([]byte, error) {
	return g.do(ctx, method, path, body, "")
}

// Upload выполняет аутентифицированный POST с произвольным телом
// (multipart для загрузки отчётов). Классификация ответа та же, что у Call.
func (g *Gateway) Upload(ctx context.Context, path, contentType string, body io.Reader) error {
	token := g.sess.Token()
	if token == "" {
		requestsTotal.WithLabelValues("unauthenticated").Inc()
		return ErrUnauthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("создание запроса upload: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues("transport").Inc()
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		requestsTotal.WithLabelValues("transport").Inc()
		return fmt.Errorf("%w: чтение ответа: %v", ErrTransport, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		requestsTotal.WithLabelValues("ok").Inc()
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		requestsTotal.WithLabelValues("unauthenticated").Inc()
		g.expireSession()
		return ErrUnauthenticated
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		requestsTotal.WithLabelValues("rejected").Inc()
		return &RequestError{Status: resp.StatusCode, Message: serverMessage(payload)}
	default:
		requestsTotal.WithLabelValues("server_error").Inc()
		return fmt.Errorf("%w: статус %d", ErrTransport, resp.StatusCode)
	}
}

// Download выполняет аутентифицированную бинарную загрузку.
// Возвращает *http.Response — вызывающий код ОБЯЗАН закрыть resp.Body.
// Статусы, кроме 401, не классифицируются: решение за вызывающим
// (Artifact Cache Manager трактует не-200 как DownloadFailed).
func (g *Gateway) Download(ctx context.Context, path string) (*http.Response, error) {
	token := g.sess.Token()
	if token == "" {
		requestsTotal.WithLabelValues("unauthenticated").Inc()
		return nil, ErrUnauthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("создание запроса download: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues("transport").Inc()
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		g.expireSession()
		return nil, ErrUnauthenticated
	}

	// Не закрываем resp.Body — вызывающий код отвечает за это (streaming)
	return resp, nil
}

// do — общий путь выполнения запроса и классификации ответа.
// token == "" означает публичный вызов.
func (g *Gateway) do(ctx context.Context, method, path string, body any, token string) ([]byte, error) {
	start := time.Now()

	var reqBody io.Reader = http.NoBody
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("сериализация тела запроса: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("создание запроса %s %s: %w", method, path, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues("transport").Inc()
		g.logger.Warn("Транспортная ошибка вызова API",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		requestsTotal.WithLabelValues("transport").Inc()
		return nil, fmt.Errorf("%w: чтение ответа: %v", ErrTransport, err)
	}

	requestDuration.Observe(time.Since(start).Seconds())

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		requestsTotal.WithLabelValues("ok").Inc()
		return payload, nil

	case resp.StatusCode == http.StatusUnauthorized && token != "":
		// Сессия отвергнута сервером — чистим токен, UI уходит на логин
		requestsTotal.WithLabelValues("unauthenticated").Inc()
		g.expireSession()
		return nil, ErrUnauthenticated

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		requestsTotal.WithLabelValues("rejected").Inc()
		return nil, &RequestError{
			Status:  resp.StatusCode,
			Message: serverMessage(payload),
		}

	default:
		requestsTotal.WithLabelValues("server_error").Inc()
		g.logger.Warn("Сервер вернул ошибку",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("%w: статус %d", ErrTransport, resp.StatusCode)
	}
}

// expireSession очищает сессию после 401.
func (g *Gateway) expireSession() {
	g.sess.Clear()
	g.logger.Info("Сессия истекла, токен удалён")
}

// serverMessage извлекает текст ошибки из тела ответа сервера.
// API отдаёт ошибки в формате {"message": "..."}.
func serverMessage(payload []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return "Unknown error"
}

// UserMessage переводит ошибку шлюза в текст для пользователя.
// Текст сервера (RequestError) показывается как есть, остальное —
// фиксированные сообщения приложения.
func UserMessage(err error) string {
	var reqErr *RequestError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return msgSessionExpired
	case errors.As(err, &reqErr):
		return reqErr.Message
	case errors.Is(err, ErrTransport):
		return msgNetworkError
	default:
		return msgNetworkError
	}
}
