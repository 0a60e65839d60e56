package viewer

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bugsheriff/client-core/internal/config"
)

// newTestServer создаёт просмотрщик над временным каталогом кэша.
func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		CacheDir:         dir,
		ViewerPort:       0,
		HTTPReadTimeout:  5 * time.Second,
		HTTPWriteTimeout: 5 * time.Second,
		HTTPIdleTimeout:  5 * time.Second,
		ShutdownTimeout:  time.Second,
	}
	return New(cfg, slog.Default()), dir
}

func TestServeArtifact(t *testing.T) {
	s, dir := newTestServer(t)
	content := "%PDF-1.4 viewer test"
	if err := os.WriteFile(filepath.Join(dir, "report.pdf"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/artifacts/report.pdf", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Errorf("Content-Type = %q", got)
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != content {
		t.Errorf("тело = %q", body)
	}
}

func TestServeArtifact_MissingAndEmpty(t *testing.T) {
	s, dir := newTestServer(t)
	if err := os.WriteFile(filepath.Join(dir, "empty.pdf"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"missing.pdf", "empty.pdf"} {
		rec := httptest.NewRecorder()
		s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/artifacts/"+name, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: статус = %d, ожидалось 404", name, rec.Code)
		}
	}
}

func TestServeArtifact_NoTraversal(t *testing.T) {
	s, dir := newTestServer(t)
	// Файл за пределами каталога кэша не должен быть достижим
	outside := filepath.Join(filepath.Dir(dir), "secret.pdf")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Remove(outside) })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/artifacts/..%2Fsecret.pdf", nil)
	s.httpServer.Handler.ServeHTTP(rec, req)
	if rec.Code == http.StatusOK {
		t.Error("просмотрщик отдал файл за пределами каталога кэша")
	}
}

func TestListArtifacts(t *testing.T) {
	s, dir := newTestServer(t)
	if err := os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("%PDF a"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Пустой файл в листинг не попадает
	if err := os.WriteFile(filepath.Join(dir, "empty.pdf"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/artifacts", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d", rec.Code)
	}

	var list []artifactInfo
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("декодирование листинга: %v", err)
	}
	if len(list) != 1 || list[0].Name != "a.pdf" {
		t.Errorf("листинг = %+v", list)
	}
}

func TestHealthLive(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d", rec.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" || resp["service"] != "bugsheriff-client" {
		t.Errorf("ответ = %v", resp)
	}
}
