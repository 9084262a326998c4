// Package userutil derives per-user object names for the pipe and the
// single-instance mutex.
package userutil

import (
	"os"
	"os/user"
	"regexp"
	"strings"
)

var invalidUsernameRune = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

var currentUserFn = user.Current

// SanitizeUsername normalizes username-like values used in pipe/mutex names.
func SanitizeUsername(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return invalidUsernameRune.ReplaceAllString(value, "_")
}

// CurrentUsername returns the sanitized name of the interactive user.
// USERNAME wins over the account lookup so that elevated shells still
// resolve to the same objects.
func CurrentUsername() string {
	name := strings.TrimSpace(os.Getenv("USERNAME"))
	if name == "" {
		if current, err := currentUserFn(); err == nil {
			name = current.Username
		}
	}
	return SanitizeUsername(name)
}

// ScopedName appends the sanitized current user to prefix.
func ScopedName(prefix string) string {
	return prefix + CurrentUsername()
}
