// Package synonyms expands search queries through a static alias table,
// with zero latency and no network calls.
//
// Matching is exact against the whole normalized query. Substring
// expansion is deliberately avoided so that "checkbox" never picks up the
// "check" aliases.
package synonyms

import (
	"sort"
	"strings"
)

// aliases maps common search terms to the icon names they should also
// match. Lookups run both directions: a query equal to a key unions its
// values; a query equal to some value unions that key plus its siblings.
var aliases = map[string][]string{
	// Common misspellings and alternatives
	"checkmark": {"check", "check-circle", "circle-check"},
	"tick":      {"check", "check-circle"},
	"cross":     {"x", "x-circle", "close"},
	"close":     {"x", "x-circle"},
	"cancel":    {"x", "x-circle", "ban"},

	// UI element aliases
	"hamburger":   {"menu", "menu-square"},
	"burger":      {"menu"},
	"cog":         {"settings", "gear", "settings-2"},
	"gear":        {"settings", "cog", "settings-2"},
	"cogwheel":    {"settings", "gear"},
	"preferences": {"settings", "sliders"},
	"config":      {"settings", "sliders"},

	// Arrow aliases
	"back":     {"arrow-left", "chevron-left"},
	"forward":  {"arrow-right", "chevron-right"},
	"next":     {"arrow-right", "chevron-right"},
	"previous": {"arrow-left", "chevron-left"},
	"up":       {"arrow-up", "chevron-up"},
	"down":     {"arrow-down", "chevron-down"},

	// Action aliases
	"remove": {"trash", "trash-2", "x", "minus"},
	"delete": {"trash", "trash-2"},
	"bin":    {"trash", "trash-2"},
	"add":    {"plus", "plus-circle"},
	"create": {"plus", "plus-circle"},
	"new":    {"plus", "plus-circle", "file-plus"},

	// User aliases
	"person":  {"user", "user-circle", "contact"},
	"profile": {"user", "user-circle", "contact"},
	"account": {"user", "user-circle"},
	"avatar":  {"user", "user-circle", "circle-user"},
	"people":  {"users", "users-2"},
	"team":    {"users", "users-2"},
	"group":   {"users", "users-2"},

	// Communication aliases
	"email":   {"mail", "inbox", "at-sign"},
	"message": {"mail", "message-circle", "message-square"},
	"chat":    {"message-circle", "message-square", "messages-square"},
	"comment": {"message-circle", "message-square"},

	// Media aliases
	"photo":   {"image", "camera", "picture"},
	"picture": {"image", "camera", "photo"},
	"movie":   {"video", "film", "clapperboard"},
	"audio":   {"music", "headphones", "speaker", "volume-2"},
	"sound":   {"volume", "volume-2", "speaker"},

	// File aliases
	"document":  {"file", "file-text", "file-type"},
	"doc":       {"file", "file-text"},
	"directory": {"folder", "folder-open"},

	// Shopping aliases
	"cart":     {"shopping-cart", "shopping-bag"},
	"basket":   {"shopping-cart", "shopping-bag"},
	"bag":      {"shopping-bag", "shopping-cart"},
	"buy":      {"shopping-cart", "credit-card"},
	"purchase": {"shopping-cart", "credit-card"},

	// Status aliases
	"warning":  {"alert-triangle", "alert-circle", "triangle-alert"},
	"error":    {"alert-circle", "x-circle", "circle-x"},
	"success":  {"check-circle", "circle-check", "check"},
	"info":     {"info", "help-circle", "circle-help"},
	"question": {"help-circle", "circle-help"},

	// Time aliases
	"time":     {"clock", "timer", "watch"},
	"schedule": {"calendar", "clock", "calendar-clock"},
	"date":     {"calendar", "calendar-days"},

	// Location aliases
	"location": {"map-pin", "navigation", "locate", "pin"},
	"place":    {"map-pin", "map", "pin"},
	"address":  {"map-pin", "home", "building"},

	// Security aliases
	"password":  {"lock", "key", "eye-off"},
	"secure":    {"lock", "shield", "shield-check"},
	"protected": {"lock", "shield"},

	// Social aliases
	"like":     {"heart", "thumbs-up"},
	"love":     {"heart"},
	"favorite": {"heart", "star", "bookmark"},
	"share":    {"share", "share-2", "send"},

	// Device aliases
	"phone":    {"smartphone", "phone", "mobile"},
	"mobile":   {"smartphone", "phone"},
	"computer": {"monitor", "laptop", "desktop"},
	"desktop":  {"monitor", "laptop"},

	// Loading aliases
	"loading": {"loader", "loader-2", "refresh-cw"},
	"spinner": {"loader", "loader-2"},
	"refresh": {"refresh-cw", "refresh-ccw", "rotate-cw"},
	"reload":  {"refresh-cw", "refresh-ccw"},

	// Visibility aliases
	"show":      {"eye", "eye-open"},
	"hide":      {"eye-off", "eye-closed"},
	"visible":   {"eye"},
	"invisible": {"eye-off"},

	// Session aliases
	"logout":  {"log-out", "door-open", "exit"},
	"signout": {"log-out"},
	"login":   {"log-in", "door-closed"},
	"signin":  {"log-in"},
	"exit":    {"log-out", "door-open"},
}

// HasEntry reports whether the whole normalized query hits the alias
// table, either as a key or as one of a key's values.
func HasEntry(query string) bool {
	q := normalize(query)
	if _, ok := aliases[q]; ok {
		return true
	}
	for _, values := range aliases {
		for _, v := range values {
			if v == q {
				return true
			}
		}
	}
	return false
}

// Expand returns the query joined with its aliases, or the query itself
// unchanged when the table has no entry for it. The original query always
// comes first; added terms are sorted for determinism.
func Expand(query string) string {
	q := normalize(query)

	added := make(map[string]struct{})

	if values, ok := aliases[q]; ok {
		for _, v := range values {
			added[v] = struct{}{}
		}
	}

	for key, values := range aliases {
		for _, v := range values {
			if v != q {
				continue
			}
			added[key] = struct{}{}
			for _, sibling := range values {
				added[sibling] = struct{}{}
			}
			break
		}
	}
	delete(added, q)

	if len(added) == 0 {
		return query
	}

	terms := make([]string, 0, len(added)+1)
	for t := range added {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return q + " " + strings.Join(terms, " ")
}

func normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
