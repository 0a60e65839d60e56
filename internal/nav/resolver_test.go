package nav

import (
	"testing"

	"github.com/bugsheriff/client-core/internal/domain/model"
)

func TestSidebar_RoleSets(t *testing.T) {
	user := Sidebar(model.RoleUser)
	admin := Sidebar(model.RoleAdmin)

	if len(user) != 6 || len(admin) != 6 {
		t.Fatalf("размеры наборов: user=%d admin=%d, ожидалось по 6", len(user), len(admin))
	}
	if user[0].Name != "Home" || admin[0].Name != "Admin's Home" {
		t.Errorf("первые экраны: %q и %q", user[0].Name, admin[0].Name)
	}

	// Наборы не пересекаются
	names := make(map[string]bool, len(user))
	for _, s := range user {
		names[s.Name] = true
	}
	for _, s := range admin {
		if names[s.Name] {
			t.Errorf("экран %q присутствует в обоих наборах", s.Name)
		}
	}
}

func TestSidebar_UndeterminedRole(t *testing.T) {
	screens := Sidebar(model.RoleUndetermined)
	if len(screens) == 0 || screens[0].Name != "Home" {
		t.Errorf("до логина ожидался пользовательский набор, получено %+v", screens)
	}
}

func TestSidebar_ReturnsCopy(t *testing.T) {
	first := Sidebar(model.RoleUser)
	first[0].Name = "Mutated"
	if second := Sidebar(model.RoleUser); second[0].Name != "Home" {
		t.Error("Sidebar возвращает разделяемый срез")
	}
}

func TestLookup_HiddenScreens(t *testing.T) {
	// Скрытые экраны доступны прямым переходом
	for _, name := range []string{"Program Details", "Forgot Password", "Admin Program Details"} {
		s, ok := Lookup(name)
		if !ok {
			t.Errorf("Lookup(%q): экран не найден", name)
			continue
		}
		if !s.Hidden {
			t.Errorf("экран %q должен быть скрытым", name)
		}
	}

	// Но ни в одной боковой панели их нет
	for _, role := range []model.Role{model.RoleUser, model.RoleAdmin} {
		for _, s := range Sidebar(role) {
			if s.Hidden {
				t.Errorf("скрытый экран %q попал в панель роли %q", s.Name, role)
			}
		}
	}

	if _, ok := Lookup("No Such Screen"); ok {
		t.Error("Lookup нашёл несуществующий экран")
	}
}

func TestHomeScreen(t *testing.T) {
	if got := HomeScreen(model.RoleAdmin); got != "Admin's Home" {
		t.Errorf("HomeScreen(admin) = %q", got)
	}
	if got := HomeScreen(model.RoleUser); got != "Home" {
		t.Errorf("HomeScreen(user) = %q", got)
	}
}
