// Package search filters the command registry against a free-text query.
// The registry is small, so plain substring containment with stable
// registry order is deliberate; no scoring, no caching.
package search

import (
	"strings"

	"github.com/ndinh/deckhand/internal/model"
	"github.com/ndinh/deckhand/internal/registry"
)

// Search returns the role-visible commands matching query, preserving
// registry order. An empty (or all-whitespace) query returns the full
// role-filtered registry.
func Search(query string, role model.Role, logout func()) []model.CommandItem {
	items := registry.Commands(role, logout)

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items
	}

	out := make([]model.CommandItem, 0, len(items))
	for _, item := range items {
		if Matches(item, q) {
			out = append(out, item)
		}
	}
	return out
}

// Matches reports whether the item satisfies the substring rule for the
// already-normalized (trimmed, lowercased) query: a hit on the title, the
// description, or any keyword.
func Matches(item model.CommandItem, q string) bool {
	if strings.Contains(strings.ToLower(item.Title), q) {
		return true
	}
	if item.Description != "" &&
		strings.Contains(strings.ToLower(item.Description), q) {
		return true
	}
	for _, kw := range item.Keywords {
		if strings.Contains(strings.ToLower(kw), q) {
			return true
		}
	}
	return false
}

// Group buckets items by category in the fixed order returned by
// model.Categories, preserving item order within each bucket and omitting
// empty categories.
func Group(items []model.CommandItem) []CategoryGroup {
	var groups []CategoryGroup
	for _, cat := range model.Categories() {
		var bucket []model.CommandItem
		for _, item := range items {
			if item.Category == cat {
				bucket = append(bucket, item)
			}
		}
		if len(bucket) > 0 {
			groups = append(groups, CategoryGroup{Category: cat, Items: bucket})
		}
	}
	return groups
}

// CategoryGroup is one display bucket of search results.
type CategoryGroup struct {
	Category model.Category
	Items    []model.CommandItem
}
