// Package registry holds the static catalog of palette commands. Entries
// are immutable for the lifetime of the process; the caller's role and the
// injected logout callback are the only per-request inputs.
package registry

import "github.com/ndinh/deckhand/internal/model"

// commands is the full registry in display order. Role-restricted entries
// list every role allowed to see them; everything else is visible to all.
var commands = []model.CommandItem{
	{
		ID:          "dashboard",
		Title:       "Dashboard",
		Description: "Go to the main dashboard",
		Href:        "/dashboard",
		Shortcut:    "g d",
		Keywords:    []string{"home", "overview", "start"},
		Category:    model.CategoryNavigation,
	},
	{
		ID:          "notifications",
		Title:       "Notifications",
		Description: "View all notifications",
		Href:        "/notifications",
		Shortcut:    "g n",
		Keywords:    []string{"alerts", "inbox", "unread"},
		Category:    model.CategoryNavigation,
	},
	{
		ID:          "profile-settings",
		Title:       "Profile settings",
		Description: "Update your name and email",
		Href:        "/settings/profile",
		Keywords:    []string{"account", "name", "email"},
		Category:    model.CategorySettings,
	},
	{
		ID:          "password-settings",
		Title:       "Password",
		Description: "Change your password",
		Href:        "/settings/password",
		Keywords:    []string{"security", "credentials"},
		Category:    model.CategorySettings,
	},
	{
		ID:          "appearance-settings",
		Title:       "Appearance",
		Description: "Switch color theme",
		Href:        "/settings/appearance",
		Keywords:    []string{"theme", "dark", "light"},
		Category:    model.CategorySettings,
	},
	{
		ID:          "cli-devices",
		Title:       "CLI devices",
		Description: "Manage authorized command-line devices",
		Href:        "/settings/devices",
		Keywords:    []string{"tokens", "sessions", "authorization"},
		Category:    model.CategorySettings,
	},
	{
		ID:          "admin-users",
		Title:       "Manage users",
		Description: "Browse and edit user accounts",
		Href:        "/admin/users",
		Keywords:    []string{"accounts", "members", "roles"},
		Roles:       []model.Role{model.RoleAdmin, model.RoleSuperadmin},
		Category:    model.CategoryAdministration,
	},
	{
		ID:          "admin-send-notification",
		Title:       "Send notification",
		Description: "Send a notification to a user",
		Href:        "/admin/notifications/send",
		Keywords:    []string{"message", "notify", "compose"},
		Roles:       []model.Role{model.RoleAdmin, model.RoleSuperadmin},
		Category:    model.CategoryAdministration,
	},
	{
		ID:          "admin-broadcast",
		Title:       "Broadcast notification",
		Description: "Send a notification to every user",
		Href:        "/admin/notifications/broadcast",
		Keywords:    []string{"announce", "everyone", "all users"},
		Roles:       []model.Role{model.RoleSuperadmin},
		Category:    model.CategoryAdministration,
	},
	{
		ID:          "logout",
		Title:       "Log out",
		Description: "End your session",
		Keywords:    []string{"sign out", "exit", "quit"},
		Category:    model.CategoryActions,
	},
}

// Commands returns the registry entries visible to the given role, in
// registry order. The logout callback is bound to the single action item;
// it is the only runtime state admitted into the otherwise static catalog.
func Commands(role model.Role, logout func()) []model.CommandItem {
	out := make([]model.CommandItem, 0, len(commands))
	for _, c := range commands {
		if !c.VisibleTo(role) {
			continue
		}
		if c.ID == "logout" {
			c.Action = logout
		}
		out = append(out, c)
	}
	return out
}
