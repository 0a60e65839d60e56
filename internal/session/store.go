// Пакет session — хранение bearer-токена текущей сессии.
// Токен персистится в один файл и переживает перезапуск процесса.
// Роль никогда не сохраняется отдельно: она выводится из identity,
// использованного при логине, и исчезает вместе с токеном.
package session

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bugsheriff/client-core/internal/domain/model"
)

// adminIdentity — identity, дающая административную роль.
// Авторизация при этом выполняется сервером: роль на клиенте
// выбирает только набор экранов и endpoints.
const adminIdentity = "admin"

// expiryBuffer — запас до истечения токена, после которого
// сессия считается истёкшей (как в Admin UI goartstore).
const expiryBuffer = 30 * time.Second

// Store — файловое хранилище bearer-токена.
// Один writer (login/logout/401), много readers (Gateway при каждом вызове).
type Store struct {
	path   string
	logger *slog.Logger

	mu    sync.RWMutex
	token string
	role  model.Role
}

// NewStore создаёт хранилище сессии и читает персистированный токен,
// если он есть. Ошибки чтения не фатальны — сессия просто отсутствует.
func NewStore(path string, logger *slog.Logger) *Store {
	s := &Store{
		path:   path,
		logger: logger.With(slog.String("component", "session_store")),
	}

	data, err := os.ReadFile(path)
	if err == nil {
		s.token = strings.TrimSpace(string(data))
		if s.token != "" {
			s.logger.Debug("Токен сессии восстановлен из файла",
				slog.String("path", path),
			)
		}
	}

	return s
}

// Token возвращает текущий токен или пустую строку, если сессии нет.
// Никогда не возвращает ошибку.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Role возвращает роль текущей сессии.
// Без токена роль всегда RoleUndetermined.
func (s *Store) Role() model.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return model.RoleUndetermined
	}
	return s.role
}

// SetToken сохраняет токен и роль сессии и персистирует токен в файл.
// identity — имя пользователя, использованное при логине (для вывода роли).
func (s *Store) SetToken(token, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(token); err != nil {
		return err
	}

	s.token = token
	s.role = DeriveRole(identity)

	s.logger.Debug("Токен сессии сохранён",
		slog.String("role", string(s.role)),
	)
	return nil
}

// Clear удаляет токен из памяти и с диска. Идемпотентен.
// Вызывается при logout и при 401 от Gateway.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.role = model.RoleUndetermined

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Не удалось удалить файл токена",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
	}
}

// Expired сообщает, истёк ли текущий токен.
// Читает exp claim без проверки подписи (токен для клиента непрозрачен,
// подпись проверяет сервер). Токен без exp или нераспознаваемый токен
// считается неистёкшим — окончательное слово за сервером (401).
func (s *Store) Expired() bool {
	token := s.Token()
	if token == "" {
		return true
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}

	return time.Now().After(exp.Time.Add(-expiryBuffer))
}

// persist атомарно записывает токен в файл (temp + rename).
// Вызывается под write lock.
func (s *Store) persist(token string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("создание каталога токена: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("создание временного файла токена: %w", err)
	}

	if _, err := tmp.WriteString(token); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("запись токена: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("установка прав файла токена: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("закрытие файла токена: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("сохранение файла токена: %w", err)
	}

	return nil
}

// DeriveRole — чистая функция вывода роли из identity логина.
// Литерал "admin" даёт административную роль, любой другой успешный
// логин — обычного пользователя.
func DeriveRole(identity string) model.Role {
	if identity == adminIdentity {
		return model.RoleAdmin
	}
	return model.RoleUser
}
