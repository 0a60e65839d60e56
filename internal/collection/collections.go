// collections.go — конструкторы контроллеров для конкретных коллекций.
// Набор поисковых полей и endpoints каждой коллекции зафиксирован здесь,
// generic-логика — в controller.go.
package collection

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/bugsheriff/client-core/internal/domain/model"
	"github.com/bugsheriff/client-core/internal/gateway"
)

// NewPrograms создаёт контроллер программ.
// Список читают все роли (/programs); мутации идут через админские
// endpoints — сервер сам отвергнет их для обычного пользователя.
func NewPrograms(gw *gateway.Gateway, logger *slog.Logger) *Controller[model.Program] {
	eps := Endpoints{
		List:   "/programs",
		Create: "/admin/newprogram",
		Update: func(id int64) string { return fmt.Sprintf("/admin/program/%d", id) },
		Delete: func(id int64) string { return fmt.Sprintf("/admin/program/%d", id) },
	}
	return New(gw, "programs", eps, programFields, logger)
}

// NewReports создаёт контроллер собственных отчётов пользователя.
// Только чтение: создание отчёта идёт через multipart-загрузку
// (apiclient.UploadReport), изменение — прерогатива администратора.
func NewReports(gw *gateway.Gateway, logger *slog.Logger) *Controller[model.Report] {
	eps := Endpoints{
		List: "/reports",
	}
	return New(gw, "reports", eps, reportFields, logger)
}

// NewAdminReports создаёт контроллер административной очереди отчётов:
// список всех отчётов и перезапись статуса/вознаграждения.
func NewAdminReports(gw *gateway.Gateway, logger *slog.Logger) *Controller[model.Report] {
	eps := Endpoints{
		List:   "/admin/getreports",
		Update: func(id int64) string { return fmt.Sprintf("/admin/report/%d", id) },
	}
	return New(gw, "admin_reports", eps, reportFields, logger)
}

// programFields — поисковые поля программы: название, описание, статус,
// обе даты и id. Даты участвуют в поиске в том виде, в каком пришли
// с сервера.
func programFields(p model.Program) []string {
	return []string{
		p.Name,
		p.Description,
		p.Status,
		p.ApplicationStartDate,
		p.ApplicationEndDate,
		strconv.FormatInt(p.ID, 10),
	}
}

// reportFields — поисковые поля отчёта: id, название программы, статус
// и размер вознаграждения.
func reportFields(r model.Report) []string {
	return []string{
		strconv.FormatInt(r.ID, 10),
		r.ProgramName,
		r.Status,
		r.RewardAmount,
	}
}
