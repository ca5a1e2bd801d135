package model

// Category groups palette commands for display. Grouping iterates in the
// fixed order returned by Categories, never in map order.
type Category string

const (
	CategoryNavigation     Category = "navigation"
	CategorySettings       Category = "settings"
	CategoryAdministration Category = "administration"
	CategoryActions        Category = "actions"
)

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{
		CategoryNavigation,
		CategorySettings,
		CategoryAdministration,
		CategoryActions,
	}
}

// CommandItem is a single invokable entry in the command registry: either
// a navigation target (Href) or a side-effecting callback (Action).
type CommandItem struct {
	// ID is the stable unique key for this command.
	ID string

	// Title is the display name matched first during search.
	Title string

	// Description is an optional subtitle, also searched.
	Description string

	// Href is the in-app navigation target. Empty when Action is set.
	Href string

	// Action is a zero-argument side-effecting callback (e.g. logout).
	// An item with neither Href nor Action is unselectable.
	Action func()

	// Shortcut is a display-only key-combo hint; it is not bound.
	Shortcut string

	// Keywords are extra search terms. Order is irrelevant.
	Keywords []string

	// Roles restricts visibility to holders of one of the listed roles.
	// Empty means visible to everyone.
	Roles []Role

	// Category determines the display group.
	Category Category
}

// Invokable reports whether selecting the item can do anything.
func (c CommandItem) Invokable() bool {
	return c.Action != nil || c.Href != ""
}

// VisibleTo applies the registry visibility rule: unrestricted items pass
// always; restricted items pass only when the caller holds a valid role
// that is a member of the item's role set (fail closed).
func (c CommandItem) VisibleTo(role Role) bool {
	if len(c.Roles) == 0 {
		return true
	}
	if !role.Valid() {
		return false
	}
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
