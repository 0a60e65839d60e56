// Пакет model — доменные модели клиента BugSheriff.
// Структуры полностью совместимы с JSON-ответами API платформы
// (snake_case поля, даты в формате YYYY-MM-DD).
package model

// Role — роль текущей сессии. Определяется из identity, использованного
// при логине, и никогда не сохраняется отдельно от токена.
type Role string

const (
	// RoleUndetermined — роль неизвестна (нет активной сессии).
	RoleUndetermined Role = ""
	// RoleUser — обычный пользователь (отправляет отчёты).
	RoleUser Role = "user"
	// RoleAdmin — администратор (управляет программами и отчётами).
	RoleAdmin Role = "admin"
)

// Статусы программы.
const (
	ProgramStatusOpen   = "Open"
	ProgramStatusClosed = "Closed"
)

// Статусы отчёта.
const (
	ReportStatusPending  = "Pending"
	ReportStatusAccepted = "Accepted"
	ReportStatusRejected = "Rejected"
)

// Program — bug-bounty программа.
// Создаётся и изменяется администратором, читается всеми ролями.
type Program struct {
	// ID — идентификатор программы (задаётся сервером)
	ID int64 `json:"id"`
	// Name — название программы
	Name string `json:"name"`
	// Description — описание программы
	Description string `json:"description"`
	// ApplicationStartDate — дата начала приёма заявок (YYYY-MM-DD на проводе)
	ApplicationStartDate string `json:"application_start_date"`
	// ApplicationEndDate — дата окончания приёма заявок (YYYY-MM-DD на проводе)
	ApplicationEndDate string `json:"application_end_date"`
	// Status — статус программы: Open, Closed
	Status string `json:"status"`
}

// Report — отчёт об уязвимости.
// Пользователь создаёт отчёт (с одним PDF-артефактом) и читает свои,
// администратор меняет статус и размер вознаграждения.
type Report struct {
	// ID — идентификатор отчёта (задаётся сервером)
	ID int64 `json:"id"`
	// ProgramID — идентификатор программы, к которой относится отчёт
	ProgramID int64 `json:"program_id,omitempty"`
	// ProgramName — название программы (денормализовано сервером для отображения)
	ProgramName string `json:"program_name"`
	// Status — статус отчёта: Pending, Accepted, Rejected
	Status string `json:"status"`
	// RewardAmount — размер вознаграждения (строка на проводе)
	RewardAmount string `json:"reward_amount"`
	// IBAN — платёжные реквизиты отправителя (видны только администратору)
	IBAN string `json:"iban,omitempty"`
	// ReportPDFPath — ссылка на загруженный PDF-артефакт
	ReportPDFPath string `json:"report_pdf_path"`
}

// ItemID возвращает серверный идентификатор программы.
func (p Program) ItemID() int64 { return p.ID }

// ItemID возвращает серверный идентификатор отчёта.
func (r Report) ItemID() int64 { return r.ID }

// UserProfile — профиль пользователя (/user-details).
type UserProfile struct {
	// Username — имя пользователя
	Username string `json:"username"`
	// SecretQuestion — секретный вопрос для восстановления пароля
	SecretQuestion string `json:"secret_question"`
	// SecretAnswer — ответ на секретный вопрос
	SecretAnswer string `json:"secret_answer"`
	// IBAN — реквизиты для выплаты вознаграждений
	IBAN string `json:"iban"`
}

// ProfileUpdate — изменяемые поля профиля (PUT /update-user).
type ProfileUpdate struct {
	// Password — новый пароль (пустая строка — не менять)
	Password string `json:"password"`
	// SecretQuestion — секретный вопрос
	SecretQuestion string `json:"secret_question"`
	// SecretAnswer — ответ на секретный вопрос
	SecretAnswer string `json:"secret_answer"`
	// IBAN — реквизиты для выплат
	IBAN string `json:"iban"`
}

// ReportUpdate — поля отчёта, изменяемые администратором (PUT /admin/report/{id}).
// Каждое обновление — полная перезапись, не дельта.
type ReportUpdate struct {
	// Status — новый статус отчёта
	Status string `json:"status"`
	// RewardAmount — новый размер вознаграждения
	RewardAmount string `json:"reward_amount"`
}
