package artifact

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bugsheriff/client-core/internal/gateway"
	"github.com/bugsheriff/client-core/internal/session"
)

const testPDF = "%PDF-1.4 test artifact content"

// noopOpener — просмотрщик-заглушка для тестов.
type noopOpener struct {
	opened []string
	fail   bool
}

func (o *noopOpener) Open(path string) error {
	if o.fail {
		return errors.New("просмотрщик недоступен")
	}
	o.opened = append(o.opened, path)
	return nil
}

// newTestManager создаёт менеджер с mock сервером артефактов и активной сессией.
func newTestManager(t *testing.T, handler http.HandlerFunc) (*Manager, *noopOpener, string) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.Default()
	sess := session.NewStore(filepath.Join(t.TempDir(), "token"), logger)
	if err := sess.SetToken("test-token", "hunter"); err != nil {
		t.Fatalf("SetToken ошибка: %v", err)
	}
	gw := gateway.New(srv.URL, 5*time.Second, sess, logger)

	dir := t.TempDir()
	opener := &noopOpener{}
	m := NewUser(gw, dir, NewHandleCache(16, time.Minute), opener, logger)
	return m, opener, dir
}

func serveArtifact(t *testing.T, downloads *int) http.HandlerFunc {
	t.Helper()
	var mu sync.Mutex
	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		*downloads++
		mu.Unlock()
		if !strings.HasPrefix(r.URL.Path, "/uploads/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte(testPDF))
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"uploads/report_7.pdf", "report_7.pdf"},
		{"/uploads/nested/dir/scan.pdf", "scan.pdf"},
		{"plain.pdf", "plain.pdf"},
		{"uploads/report.pdf/", "report.pdf"},
		{"", "report.pdf"},
		{"   ", "report.pdf"},
		{"///", "report.pdf"},
	}
	for _, tt := range tests {
		if got := Key(tt.ref); got != tt.want {
			t.Errorf("Key(%q) = %q, ожидалось %q", tt.ref, got, tt.want)
		}
	}
}

// TestResolve_DownloadOnce проверяет гарантию download-once:
// повторное разрешение той же ссылки не ходит в сеть.
func TestResolve_DownloadOnce(t *testing.T) {
	downloads := 0
	m, _, dir := newTestManager(t, serveArtifact(t, &downloads))

	h, err := m.Resolve(context.Background(), "uploads/report_1.pdf")
	if err != nil {
		t.Fatalf("Resolve ошибка: %v", err)
	}
	if h.Key != "report_1.pdf" || h.Size != int64(len(testPDF)) {
		t.Errorf("дескриптор = %+v", h)
	}
	data, err := os.ReadFile(filepath.Join(dir, "report_1.pdf"))
	if err != nil || string(data) != testPDF {
		t.Fatalf("локальная копия: %q, %v", data, err)
	}

	// Второе разрешение — из кэша, без сети
	if _, err := m.Resolve(context.Background(), "uploads/report_1.pdf"); err != nil {
		t.Fatalf("повторный Resolve ошибка: %v", err)
	}
	if downloads != 1 {
		t.Errorf("выполнено %d скачиваний, ожидалось 1", downloads)
	}

	// Во временном каталоге нет обрывков .part
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".part") {
			t.Errorf("остался временный файл %s", e.Name())
		}
	}
}

// TestResolve_EmptyFileRefetched проверяет, что пустая локальная копия
// невалидна и скачивается заново.
func TestResolve_EmptyFileRefetched(t *testing.T) {
	downloads := 0
	m, _, dir := newTestManager(t, serveArtifact(t, &downloads))

	// Пустой файл на месте будущего артефакта
	if err := os.WriteFile(filepath.Join(dir, "report_2.pdf"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	h, err := m.Resolve(context.Background(), "uploads/report_2.pdf")
	if err != nil {
		t.Fatalf("Resolve ошибка: %v", err)
	}
	if downloads != 1 {
		t.Errorf("выполнено %d скачиваний, ожидалось 1", downloads)
	}
	if h.Size != int64(len(testPDF)) {
		t.Errorf("размер = %d после повторного скачивания", h.Size)
	}
}

// TestResolve_Busy проверяет guard параллельных разрешений:
// второй запрос отклоняется немедленно, без постановки в очередь.
func TestResolve_Busy(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})

	m, _, _ := newTestManager(t, func(w http.ResponseWriter, _ *http.Request) {
		close(arrived)
		<-release
		_, _ = w.Write([]byte(testPDF))
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := m.Resolve(context.Background(), "uploads/a.pdf"); err != nil {
			t.Errorf("первый Resolve ошибка: %v", err)
		}
	}()

	<-arrived
	if _, err := m.Resolve(context.Background(), "uploads/b.pdf"); !errors.Is(err, ErrBusy) {
		t.Errorf("ошибка = %v, ожидалась ErrBusy", err)
	}

	close(release)
	wg.Wait()

	// После завершения guard снят
	if _, err := m.Resolve(context.Background(), "uploads/a.pdf"); err != nil {
		t.Errorf("Resolve после освобождения guard: %v", err)
	}
}

// TestResolve_DownloadFailed проверяет, что неуспешный статус фатален
// для вызова и не оставляет записи в кэше.
func TestResolve_DownloadFailed(t *testing.T) {
	m, _, dir := newTestManager(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := m.Resolve(context.Background(), "uploads/missing.pdf")
	var df *DownloadFailed
	if !errors.As(err, &df) || df.Status != http.StatusNotFound {
		t.Fatalf("ошибка = %v, ожидалась DownloadFailed(404)", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "missing.pdf")); !os.IsNotExist(err) {
		t.Error("после неудачного скачивания появился файл в кэше")
	}
}

// TestResolve_Unauthenticated: без сессии разрешение не ходит в сеть
// и guard не остаётся захваченным.
func TestResolve_Unauthenticated(t *testing.T) {
	downloads := 0
	m, _, _ := newTestManager(t, serveArtifact(t, &downloads))

	// Отдельная сессия без токена
	logger := slog.Default()
	sess := session.NewStore(filepath.Join(t.TempDir(), "token"), logger)
	m.gw = gateway.New("http://127.0.0.1:0", time.Second, sess, logger)

	if _, err := m.Resolve(context.Background(), "uploads/x.pdf"); !errors.Is(err, gateway.ErrUnauthenticated) {
		t.Fatalf("ошибка = %v, ожидалась ErrUnauthenticated", err)
	}
	if m.busy.Load() {
		t.Error("guard остался захваченным после ошибки")
	}
}

// TestView проверяет передачу файла просмотрщику и мягкую деградацию.
func TestView(t *testing.T) {
	downloads := 0
	m, opener, _ := newTestManager(t, serveArtifact(t, &downloads))

	h, err := m.View(context.Background(), "uploads/view.pdf")
	if err != nil {
		t.Fatalf("View ошибка: %v", err)
	}
	if len(opener.opened) != 1 || opener.opened[0] != h.Path {
		t.Errorf("просмотрщик получил %v, ожидался %s", opener.opened, h.Path)
	}

	// Сломанный просмотрщик не превращает успешное разрешение в ошибку
	opener.fail = true
	if _, err := m.View(context.Background(), "uploads/view.pdf"); err != nil {
		t.Errorf("View с недоступным просмотрщиком: %v", err)
	}
}
