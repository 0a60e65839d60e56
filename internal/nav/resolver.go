// Пакет nav — раскладка экранов по ролям.
// Статическая таблица: роль → упорядоченный набор экранов боковой панели.
// Переходов и состояния нет, только предикат над текущей ролью.
package nav

import (
	"github.com/bugsheriff/client-core/internal/domain/model"
)

// Screen — описание экрана приложения.
type Screen struct {
	Name   string // имя маршрута, уникально в пределах приложения
	Title  string // заголовок для боковой панели
	Hidden bool   // доступен только прямой навигацией, в панели не показывается
}

// Наборы экранов. Порядок фиксирован и совпадает с порядком в боковой панели.
var (
	userScreens = []Screen{
		{Name: "Home", Title: "Home"},
		{Name: "Login", Title: "Login"},
		{Name: "Signup", Title: "Signup"},
		{Name: "Profile", Title: "Profile"},
		{Name: "Programs", Title: "Programs"},
		{Name: "Reports", Title: "Reports"},
	}

	adminScreens = []Screen{
		{Name: "Admin's Home", Title: "Admin's Home"},
		{Name: "Admin's Login", Title: "Admin's Login"},
		{Name: "Admin's Signup", Title: "Admin's Signup"},
		{Name: "Admin's Profile", Title: "Admin's Profile"},
		{Name: "Admin's Programs", Title: "Admin's Programs"},
		{Name: "Admin's Reports", Title: "Admin's Reports"},
	}

	// Экраны вне панели: до них добираются только прямым переходом
	hiddenScreens = []Screen{
		{Name: "Program Details", Title: "Program Details", Hidden: true},
		{Name: "Forgot Password", Title: "Forgot Password", Hidden: true},
		{Name: "Admin Program Details", Title: "Admin Program Details", Hidden: true},
	}
)

// InitialScreen — экран, открываемый при старте приложения.
const InitialScreen = "Home"

// Sidebar возвращает набор экранов боковой панели для роли.
// Неопределённая роль получает пользовательский набор: до логина
// видны только общедоступные экраны этого набора.
func Sidebar(role model.Role) []Screen {
	if role == model.RoleAdmin {
		return append([]Screen(nil), adminScreens...)
	}
	return append([]Screen(nil), userScreens...)
}

// Lookup находит экран по имени маршрута среди всех экранов,
// включая скрытые. Возвращает (экран, true) либо (Screen{}, false).
func Lookup(name string) (Screen, bool) {
	for _, set := range [][]Screen{userScreens, adminScreens, hiddenScreens} {
		for _, s := range set {
			if s.Name == name {
				return s, true
			}
		}
	}
	return Screen{}, false
}

// HomeScreen возвращает стартовый экран для роли после логина.
func HomeScreen(role model.Role) string {
	if role == model.RoleAdmin {
		return "Admin's Home"
	}
	return InitialScreen
}
