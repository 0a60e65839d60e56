package model

import "testing"

// TestFormatAPIDate проверяет конвертацию MM-DD-YYYY → YYYY-MM-DD.
func TestFormatAPIDate(t *testing.T) {
	if got := FormatAPIDate("03-15-2025"); got != "2025-03-15" {
		t.Errorf("FormatAPIDate = %q, ожидался 2025-03-15", got)
	}

	// Ввод не по шаблону возвращается без изменений
	if got := FormatAPIDate("2025-03-15"); got != "2025-03-15" {
		t.Errorf("FormatAPIDate = %q, ожидался passthrough", got)
	}
	if got := FormatAPIDate(""); got != "" {
		t.Errorf("FormatAPIDate(\"\") = %q, ожидалась пустая строка", got)
	}
}

// TestFormatDisplayDate проверяет конвертацию YYYY-MM-DD → MM-DD-YYYY.
func TestFormatDisplayDate(t *testing.T) {
	if got := FormatDisplayDate("2025-03-15"); got != "03-15-2025" {
		t.Errorf("FormatDisplayDate = %q, ожидался 03-15-2025", got)
	}

	// Уже отформатированная дата — как есть
	if got := FormatDisplayDate("03-15-2025"); got != "03-15-2025" {
		t.Errorf("FormatDisplayDate = %q, ожидался passthrough", got)
	}

	// HTTP-date от сервера
	if got := FormatDisplayDate("Sat, 15 Mar 2025 00:00:00 GMT"); got != "03-15-2025" {
		t.Errorf("FormatDisplayDate(GMT) = %q, ожидался 03-15-2025", got)
	}

	// Нераспознанный ввод возвращается без изменений
	if got := FormatDisplayDate("not-a-date"); got != "not-a-date" {
		t.Errorf("FormatDisplayDate = %q, ожидался passthrough", got)
	}
}

// TestDateRoundTrip проверяет точный round-trip для дат в формате отображения.
func TestDateRoundTrip(t *testing.T) {
	dates := []string{"01-01-2024", "12-31-2025", "03-15-2025", "02-29-2024"}
	for _, d := range dates {
		if got := FormatDisplayDate(FormatAPIDate(d)); got != d {
			t.Errorf("round-trip %q = %q, ожидался исходный", d, got)
		}
	}

	// И в обратную сторону: API → display → API
	apiDates := []string{"2024-01-01", "2025-12-31"}
	for _, d := range apiDates {
		if got := FormatAPIDate(FormatDisplayDate(d)); got != d {
			t.Errorf("round-trip %q = %q, ожидался исходный", d, got)
		}
	}
}

// TestValidDisplayDate проверяет календарную валидацию.
func TestValidDisplayDate(t *testing.T) {
	if !ValidDisplayDate("03-15-2025") {
		t.Error("ожидалась валидная дата 03-15-2025")
	}
	if ValidDisplayDate("13-45-2025") {
		t.Error("13-45-2025 не должна быть валидной")
	}
	if ValidDisplayDate("2025-03-15") {
		t.Error("формат API не должен проходить валидацию display-формата")
	}
}
