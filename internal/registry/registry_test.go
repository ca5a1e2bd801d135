package registry

import (
	"testing"

	"github.com/ndinh/deckhand/internal/model"
)

func TestCommandsRoleContainment(t *testing.T) {
	for _, role := range model.Roles() {
		for _, c := range Commands(role, func() {}) {
			if !c.VisibleTo(role) {
				t.Errorf("Commands(%q) returned %q, which is not visible to that role", role, c.ID)
			}
		}
	}
}

func TestCommandsFailClosedOnInvalidRole(t *testing.T) {
	items := Commands(model.Role(""), func() {})

	for _, c := range items {
		if len(c.Roles) != 0 {
			t.Errorf("Commands with empty role returned restricted item %q", c.ID)
		}
	}
	if len(items) == 0 {
		t.Error("Commands with empty role should still return unrestricted items")
	}
}

func TestCommandsAdminOnlyVisibility(t *testing.T) {
	tests := []struct {
		role      model.Role
		id        string
		wantShown bool
	}{
		{model.RoleUser, "admin-users", false},
		{model.RoleAdmin, "admin-users", true},
		{model.RoleSuperadmin, "admin-users", true},
		{model.RoleUser, "admin-broadcast", false},
		{model.RoleAdmin, "admin-broadcast", false},
		{model.RoleSuperadmin, "admin-broadcast", true},
		{model.RoleUser, "dashboard", true},
		{model.RoleAdmin, "dashboard", true},
	}

	for _, tt := range tests {
		items := Commands(tt.role, func() {})
		found := false
		for _, c := range items {
			if c.ID == tt.id {
				found = true
			}
		}
		if found != tt.wantShown {
			t.Errorf("Commands(%q) visibility of %q = %v, want %v", tt.role, tt.id, found, tt.wantShown)
		}
	}
}

func TestCommandsBindsLogoutAction(t *testing.T) {
	called := false
	items := Commands(model.RoleUser, func() { called = true })

	var logout *model.CommandItem
	for i := range items {
		if items[i].ID == "logout" {
			logout = &items[i]
		}
	}
	if logout == nil {
		t.Fatal("registry has no logout item")
	}
	if logout.Action == nil {
		t.Fatal("logout item has no bound action")
	}

	logout.Action()
	if !called {
		t.Error("logout action did not invoke the injected callback")
	}
}

func TestCommandsAllInvokable(t *testing.T) {
	for _, c := range Commands(model.RoleSuperadmin, func() {}) {
		if !c.Invokable() {
			t.Errorf("item %q has neither href nor action", c.ID)
		}
	}
}

func TestCommandsStableOrder(t *testing.T) {
	a := Commands(model.RoleSuperadmin, func() {})
	b := Commands(model.RoleSuperadmin, func() {})

	if len(a) != len(b) {
		t.Fatalf("repeated calls returned different lengths: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Errorf("order differs at %d: %q vs %q", i, a[i].ID, b[i].ID)
		}
	}
}
