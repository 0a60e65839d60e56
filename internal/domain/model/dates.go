// dates.go — конвертация дат между форматом API (YYYY-MM-DD)
// и форматом отображения (MM-DD-YYYY).
// Конвертация строковая: для валидных дат round-trip точный.
package model

import (
	"regexp"
	"strings"
	"time"
)

// Форматы дат.
const (
	// apiDateLayout — формат дат на проводе
	apiDateLayout = "2006-01-02"
	// displayDateLayout — формат дат в UI
	displayDateLayout = "01-02-2006"
)

// displayDateRe — дата уже в формате отображения MM-DD-YYYY.
var displayDateRe = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)

// apiDateRe — дата в формате API YYYY-MM-DD.
var apiDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// FormatDisplayDate конвертирует дату из формата API в формат отображения.
// Уже отформатированные строки возвращаются как есть. Нераспознанный ввод
// (включая HTTP-date от сервера) парсится по мере возможности, иначе
// возвращается без изменений — ошибок нет.
func FormatDisplayDate(s string) string {
	if s == "" {
		return ""
	}
	if displayDateRe.MatchString(s) {
		return s
	}
	if apiDateRe.MatchString(s) {
		// Строковая перестановка сегментов — без валидации календаря,
		// чтобы round-trip был точным для любого ввода по шаблону
		parts := strings.SplitN(s, "-", 3)
		return parts[1] + "-" + parts[2] + "-" + parts[0]
	}
	// Сервер иногда отдаёт даты в HTTP-date (GMT)
	if t, err := time.Parse(time.RFC1123, s); err == nil {
		return t.Format(displayDateLayout)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(displayDateLayout)
	}
	return s
}

// FormatAPIDate конвертирует дату из формата отображения в формат API.
// Ввод не по шаблону MM-DD-YYYY возвращается как есть.
func FormatAPIDate(s string) string {
	if !displayDateRe.MatchString(s) {
		return s
	}
	parts := strings.SplitN(s, "-", 3)
	return parts[2] + "-" + parts[0] + "-" + parts[1]
}

// ValidDisplayDate проверяет, что строка — существующая календарная дата
// в формате MM-DD-YYYY.
func ValidDisplayDate(s string) bool {
	_, err := time.Parse(displayDateLayout, s)
	return err == nil
}
