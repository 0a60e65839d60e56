// opener.go — передача локального файла системному просмотрщику.
package artifact

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
)

// Opener открывает локальный файл во внешнем приложении.
type Opener interface {
	Open(path string) error
}

// SystemOpener открывает файл штатной утилитой ОС (xdg-open / open).
type SystemOpener struct {
	logger *slog.Logger
}

// NewSystemOpener создаёт системный просмотрщик.
func NewSystemOpener(logger *slog.Logger) *SystemOpener {
	return &SystemOpener{logger: logger.With(slog.String("component", "system_opener"))}
}

// Open запускает просмотрщик и не ждёт его завершения.
func (o *SystemOpener) Open(path string) error {
	tool := "xdg-open"
	if runtime.GOOS == "darwin" {
		tool = "open"
	}

	bin, err := exec.LookPath(tool)
	if err != nil {
		return fmt.Errorf("просмотрщик %s не найден: %w", tool, err)
	}

	cmd := exec.Command(bin, path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("запуск просмотрщика: %w", err)
	}
	o.logger.Debug("Файл передан системному просмотрщику",
		slog.String("path", path),
		slog.String("tool", tool),
	)

	// Процесс живёт своей жизнью, zombie не оставляем
	go func() { _ = cmd.Wait() }()
	return nil
}
